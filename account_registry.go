package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRegistry resolves connected accounts and tracks their credential
// validity. Scans always resolve the account here before touching tweets.
type AccountRegistry struct {
	db *gorm.DB
}

func NewAccountRegistry(db *gorm.DB) *AccountRegistry {
	return &AccountRegistry{db: db}
}

// CreateAccount stores a new account. An internal ID is generated when the
// caller leaves it empty.
func (r *AccountRegistry) CreateAccount(account AccountModel) (*AccountModel, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.ScanPurpose == "" {
		account.ScanPurpose = DEFAULT_SCAN_PURPOSE
	}
	// A freshly connected account starts with working credentials.
	account.AuthValid = true
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()

	if err := r.db.Create(&account).Error; err != nil {
		return nil, fmt.Errorf("create account %s: %w", account.Handle, errors.Join(ErrStorage, err))
	}
	return &account, nil
}

// EnsureAccount creates the account for an external platform ID if it is not
// registered yet and returns the stored row either way.
func (r *AccountRegistry) EnsureAccount(externalID, handle, displayName string) (*AccountModel, error) {
	account := AccountModel{
		ID:          uuid.New().String(),
		ExternalID:  externalID,
		Handle:      handle,
		DisplayName: displayName,
		AuthValid:   true,
		ScanPurpose: DEFAULT_SCAN_PURPOSE,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&account).Error
	if err != nil {
		return nil, fmt.Errorf("ensure account %s: %w", handle, errors.Join(ErrStorage, err))
	}

	return r.GetAccountByExternalID(externalID)
}

func (r *AccountRegistry) GetAccount(id string) (*AccountModel, error) {
	var account AccountModel
	err := r.db.Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, errors.Join(ErrStorage, err))
	}
	return &account, nil
}

func (r *AccountRegistry) GetAccountByHandle(handle string) (*AccountModel, error) {
	var account AccountModel
	err := r.db.Where("handle = ?", handle).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account @%s: %w", handle, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account @%s: %w", handle, errors.Join(ErrStorage, err))
	}
	return &account, nil
}

func (r *AccountRegistry) GetAccountByExternalID(externalID string) (*AccountModel, error) {
	var account AccountModel
	err := r.db.Where("external_id = ?", externalID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("external account %s: %w", externalID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get external account %s: %w", externalID, errors.Join(ErrStorage, err))
	}
	return &account, nil
}

// AccountExists checks for an account by internal ID.
func (r *AccountRegistry) AccountExists(id string) bool {
	var count int64
	r.db.Model(&AccountModel{}).Where("id = ?", id).Count(&count)
	return count > 0
}

// MarkAuthExpired flags the account credentials as invalid so the
// reconnection flow can pick it up. Scheduled scans skip such accounts.
func (r *AccountRegistry) MarkAuthExpired(id string) error {
	return r.updateAuthValid(id, false)
}

// MarkAuthValid restores the credential flag after the account reconnects.
func (r *AccountRegistry) MarkAuthValid(id string) error {
	return r.updateAuthValid(id, true)
}

func (r *AccountRegistry) updateAuthValid(id string, valid bool) error {
	result := r.db.Model(&AccountModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"auth_valid": valid,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("update auth flag for account %s: %w", id, errors.Join(ErrStorage, result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetAutoScan toggles scheduled scanning for the account.
func (r *AccountRegistry) SetAutoScan(id string, enabled bool) error {
	result := r.db.Model(&AccountModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"auto_scan":  enabled,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("update auto-scan flag for account %s: %w", id, errors.Join(ErrStorage, result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListAutoScanAccounts returns accounts the scheduler should enqueue.
// Accounts with expired credentials are excluded, a fetch would fail anyway.
func (r *AccountRegistry) ListAutoScanAccounts() ([]AccountModel, error) {
	var accounts []AccountModel
	err := r.db.Where("auto_scan = ? AND auth_valid = ?", true, true).Order("handle ASC").Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list auto-scan accounts: %w", errors.Join(ErrStorage, err))
	}
	return accounts, nil
}

func (r *AccountRegistry) ListAccounts(limit int) ([]AccountModel, error) {
	var accounts []AccountModel
	err := r.db.Order("created_at DESC").Limit(limit).Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", errors.Join(ErrStorage, err))
	}
	return accounts, nil
}

func (r *AccountRegistry) GetAccountCount() (int64, error) {
	var count int64
	err := r.db.Model(&AccountModel{}).Count(&count).Error
	return count, err
}

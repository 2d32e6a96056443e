package main

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

const SCAN_STATUS_FILE = "scan_status.json"

type ScanStatus string

const (
	SCAN_STATUS_IDLE      ScanStatus = "idle"
	SCAN_STATUS_QUEUED    ScanStatus = "queued"
	SCAN_STATUS_RUNNING   ScanStatus = "running"
	SCAN_STATUS_COMPLETED ScanStatus = "completed"
	SCAN_STATUS_FAILED    ScanStatus = "failed"
)

type AccountScanInfo struct {
	AccountID    string     `json:"account_id"`
	Handle       string     `json:"handle"`
	Status       ScanStatus `json:"status"`
	LastPurpose  string     `json:"last_purpose,omitempty"`
	LastStrategy string     `json:"last_strategy,omitempty"`
	LastScore    float64    `json:"last_score,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	LastScanAt   string     `json:"last_scan_at,omitempty"`
	ScanCount    int        `json:"scan_count"`
	FailureCount int        `json:"failure_count"`
}

// ScanStatusManager tracks per-account scan lifecycle in memory and persists
// it to a JSON file so operators can inspect it between restarts. It is also
// the in-flight guard: one running scan per account at a time.
type ScanStatusManager struct {
	accounts  map[string]*AccountScanInfo
	filePath  string
	mutex     sync.RWMutex
	isRunning bool
}

func NewScanStatusManager(filePath string) *ScanStatusManager {
	if filePath == "" {
		filePath = SCAN_STATUS_FILE
	}
	manager := &ScanStatusManager{
		accounts: make(map[string]*AccountScanInfo),
		filePath: filePath,
	}

	manager.loadFromFile()

	return manager
}

func (ssm *ScanStatusManager) StartPeriodicSave() {
	ssm.mutex.Lock()
	if ssm.isRunning {
		ssm.mutex.Unlock()
		return
	}
	ssm.isRunning = true
	ssm.mutex.Unlock()

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for ssm.running() {
			<-ticker.C
			err := ssm.saveToFile()
			if err != nil {
				log.Printf("Error saving scan status: %v", err)
			}
		}
	}()

	log.Println("Scan status manager started periodic save")
}

func (ssm *ScanStatusManager) StopPeriodicSave() {
	ssm.mutex.Lock()
	ssm.isRunning = false
	ssm.mutex.Unlock()

	// Final save before stopping
	ssm.saveToFile()
	log.Println("Scan status manager stopped periodic save")
}

func (ssm *ScanStatusManager) running() bool {
	ssm.mutex.RLock()
	defer ssm.mutex.RUnlock()
	return ssm.isRunning
}

// MarkQueued records that a scan request entered the queue. A queued or
// running account stays as is.
func (ssm *ScanStatusManager) MarkQueued(accountID, handle string) {
	ssm.mutex.Lock()
	defer ssm.mutex.Unlock()

	info, exists := ssm.accounts[accountID]
	if !exists {
		info = &AccountScanInfo{AccountID: accountID, Handle: handle}
		ssm.accounts[accountID] = info
	}
	info.Handle = handle
	if info.Status != SCAN_STATUS_RUNNING {
		info.Status = SCAN_STATUS_QUEUED
	}
}

// TryBeginScan flips the account to running unless a scan is already in
// flight. Returns false when the caller must skip this request.
func (ssm *ScanStatusManager) TryBeginScan(accountID, handle string) bool {
	ssm.mutex.Lock()
	defer ssm.mutex.Unlock()

	info, exists := ssm.accounts[accountID]
	if exists && info.Status == SCAN_STATUS_RUNNING {
		return false
	}
	if !exists {
		info = &AccountScanInfo{AccountID: accountID, Handle: handle}
		ssm.accounts[accountID] = info
	}
	info.Handle = handle
	info.Status = SCAN_STATUS_RUNNING
	return true
}

// CompleteScan records the terminal state of a run started via TryBeginScan.
func (ssm *ScanStatusManager) CompleteScan(accountID string, outcome *ScanOutcome, scanErr error) {
	ssm.mutex.Lock()
	defer ssm.mutex.Unlock()

	info, exists := ssm.accounts[accountID]
	if !exists {
		info = &AccountScanInfo{AccountID: accountID}
		ssm.accounts[accountID] = info
	}

	info.LastScanAt = time.Now().Format(time.RFC3339)
	info.ScanCount++

	if scanErr != nil {
		info.Status = SCAN_STATUS_FAILED
		info.LastError = scanErr.Error()
		info.FailureCount++
		return
	}

	info.Status = SCAN_STATUS_COMPLETED
	info.LastError = ""
	if outcome != nil {
		info.LastStrategy = string(outcome.Stats.Strategy)
		if outcome.Result != nil {
			info.LastPurpose = outcome.Result.Purpose
			info.LastScore = outcome.Result.OverallScore
		}
	}
}

func (ssm *ScanStatusManager) GetScanStatus(accountID string) ScanStatus {
	ssm.mutex.RLock()
	defer ssm.mutex.RUnlock()

	if info, exists := ssm.accounts[accountID]; exists {
		return info.Status
	}
	return SCAN_STATUS_IDLE
}

func (ssm *ScanStatusManager) GetScanInfo(accountID string) *AccountScanInfo {
	ssm.mutex.RLock()
	defer ssm.mutex.RUnlock()

	if info, exists := ssm.accounts[accountID]; exists {
		// Return a copy to avoid race conditions
		infoCopy := *info
		return &infoCopy
	}
	return nil
}

func (ssm *ScanStatusManager) IsScanInFlight(accountID string) bool {
	return ssm.GetScanStatus(accountID) == SCAN_STATUS_RUNNING
}

func (ssm *ScanStatusManager) GetStats() map[string]int {
	ssm.mutex.RLock()
	defer ssm.mutex.RUnlock()

	stats := map[string]int{
		"total_accounts": len(ssm.accounts),
		"queued":         0,
		"running":        0,
		"completed":      0,
		"failed":         0,
	}

	for _, info := range ssm.accounts {
		switch info.Status {
		case SCAN_STATUS_QUEUED:
			stats["queued"]++
		case SCAN_STATUS_RUNNING:
			stats["running"]++
		case SCAN_STATUS_COMPLETED:
			stats["completed"]++
		case SCAN_STATUS_FAILED:
			stats["failed"]++
		}
	}

	return stats
}

func (ssm *ScanStatusManager) loadFromFile() error {
	if _, err := os.Stat(ssm.filePath); os.IsNotExist(err) {
		log.Println("Scan status file doesn't exist, starting with empty data")
		return nil
	}

	data, err := os.ReadFile(ssm.filePath)
	if err != nil {
		log.Printf("Error reading scan status file: %v", err)
		return err
	}

	var accounts map[string]*AccountScanInfo
	err = json.Unmarshal(data, &accounts)
	if err != nil {
		log.Printf("Error unmarshaling scan status: %v", err)
		return err
	}

	// A crash can leave running or queued markers behind, which would block
	// TryBeginScan forever. Reset them on load.
	for _, info := range accounts {
		if info.Status == SCAN_STATUS_RUNNING || info.Status == SCAN_STATUS_QUEUED {
			info.Status = SCAN_STATUS_IDLE
		}
	}

	ssm.mutex.Lock()
	ssm.accounts = accounts
	ssm.mutex.Unlock()

	log.Printf("Loaded %d accounts from scan status file", len(accounts))
	return nil
}

func (ssm *ScanStatusManager) saveToFile() error {
	ssm.mutex.RLock()
	data, err := json.MarshalIndent(ssm.accounts, "", "  ")
	ssm.mutex.RUnlock()

	if err != nil {
		return err
	}

	return os.WriteFile(ssm.filePath, data, 0644)
}

package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// scanRunner lets worker tests substitute the scan pipeline.
type scanRunner interface {
	Scan(ctx context.Context, request ScanRequest) (*ScanOutcome, error)
}

// ScanWorkerPool consumes scan requests from the request channel, runs them
// through the scan pipeline and reports every outcome to the status manager,
// the activity log and the notification channel.
type ScanWorkerPool struct {
	scanner       scanRunner
	registry      *AccountRegistry
	status        *ScanStatusManager
	activity      *ActivityLog
	requests      chan ScanRequest
	notifications chan ScanNotification
	workerCount   int
}

func NewScanWorkerPool(scanner scanRunner, registry *AccountRegistry, status *ScanStatusManager, activity *ActivityLog, requests chan ScanRequest, notifications chan ScanNotification, workerCount int) *ScanWorkerPool {
	if workerCount <= 0 {
		workerCount = DEFAULT_SCAN_WORKERS
	}
	return &ScanWorkerPool{
		scanner:       scanner,
		registry:      registry,
		status:        status,
		activity:      activity,
		requests:      requests,
		notifications: notifications,
		workerCount:   workerCount,
	}
}

// Enqueue adds a scan request without blocking. Returns false when the
// queue is full.
func (p *ScanWorkerPool) Enqueue(request ScanRequest) bool {
	select {
	case p.requests <- request:
		p.status.MarkQueued(request.AccountID, p.lookupHandle(request.AccountID))
		return true
	default:
		log.Printf("Scan queue full, dropping request for account %s", request.AccountID)
		return false
	}
}

// Run blocks until the context is canceled or the request channel closes.
func (p *ScanWorkerPool) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for i := 1; i <= p.workerCount; i++ {
		workerID := i
		group.Go(func() error {
			p.workerLoop(groupCtx, workerID)
			return nil
		})
	}

	return group.Wait()
}

func (p *ScanWorkerPool) workerLoop(ctx context.Context, workerID int) {
	log.Printf("Scan worker %d started", workerID)
	for {
		select {
		case <-ctx.Done():
			log.Printf("Scan worker %d stopping", workerID)
			return
		case request, ok := <-p.requests:
			if !ok {
				log.Printf("Scan worker %d: request channel closed", workerID)
				return
			}
			p.process(ctx, workerID, request)
		}
	}
}

func (p *ScanWorkerPool) process(ctx context.Context, workerID int, request ScanRequest) {
	if request.Purpose == "" {
		request.Purpose = DEFAULT_SCAN_PURPOSE
	}
	if request.Source == "" {
		request.Source = SCAN_SOURCE_MANUAL
	}

	handle := p.lookupHandle(request.AccountID)

	if !p.status.TryBeginScan(request.AccountID, handle) {
		log.Printf("Worker %d: scan already running for @%s, skipping", workerID, handle)
		return
	}

	runUUID := uuid.New().String()
	log.Printf("Worker %d: scan %s started for @%s purpose=%s source=%s", workerID, runUUID, handle, request.Purpose, request.Source)

	if err := p.activity.LogScanStarted(runUUID, request.AccountID, handle, request.Purpose, request.Source); err != nil {
		log.Printf("Worker %d: failed to log scan start: %v", workerID, err)
	}

	outcome, err := p.scanner.Scan(ctx, request)
	p.status.CompleteScan(request.AccountID, outcome, err)

	if err != nil {
		log.Printf("Worker %d: scan %s failed for @%s: %v", workerID, runUUID, handle, err)
		if logErr := p.activity.LogScanFailed(runUUID, err.Error()); logErr != nil {
			log.Printf("Worker %d: failed to log scan failure: %v", workerID, logErr)
		}
	} else {
		log.Printf("Worker %d: scan %s completed for @%s strategy=%s", workerID, runUUID, handle, outcome.Stats.Strategy)
		if logErr := p.activity.LogScanCompleted(runUUID, outcome); logErr != nil {
			log.Printf("Worker %d: failed to log scan completion: %v", workerID, logErr)
		}
	}

	p.notify(ScanNotification{
		RunUUID:   runUUID,
		AccountID: request.AccountID,
		Handle:    handle,
		Purpose:   request.Purpose,
		Outcome:   outcome,
		Err:       err,
	})
}

func (p *ScanWorkerPool) notify(notification ScanNotification) {
	select {
	case p.notifications <- notification:
	default:
		log.Printf("Notification channel full, dropping notification for @%s", notification.Handle)
	}
}

func (p *ScanWorkerPool) lookupHandle(accountID string) string {
	account, err := p.registry.GetAccount(accountID)
	if err != nil {
		return accountID
	}
	return account.Handle
}

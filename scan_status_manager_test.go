package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStatusManager(t *testing.T) (*ScanStatusManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan_status.json")
	return NewScanStatusManager(path), path
}

func TestScanStatusLifecycle(t *testing.T) {
	manager, _ := newTestStatusManager(t)

	assert.Equal(t, SCAN_STATUS_IDLE, manager.GetScanStatus("acc-1"))
	assert.Nil(t, manager.GetScanInfo("acc-1"))

	manager.MarkQueued("acc-1", "alice")
	assert.Equal(t, SCAN_STATUS_QUEUED, manager.GetScanStatus("acc-1"))

	ok := manager.TryBeginScan("acc-1", "alice")
	require.True(t, ok)
	assert.Equal(t, SCAN_STATUS_RUNNING, manager.GetScanStatus("acc-1"))
	assert.True(t, manager.IsScanInFlight("acc-1"))

	outcome := &ScanOutcome{
		Result: &AnalysisResultModel{Purpose: DEFAULT_SCAN_PURPOSE, OverallScore: 87.5},
		Stats:  ScanStats{Strategy: StrategyColdFetch},
	}
	manager.CompleteScan("acc-1", outcome, nil)

	info := manager.GetScanInfo("acc-1")
	require.NotNil(t, info)
	assert.Equal(t, SCAN_STATUS_COMPLETED, info.Status)
	assert.Equal(t, "alice", info.Handle)
	assert.Equal(t, DEFAULT_SCAN_PURPOSE, info.LastPurpose)
	assert.Equal(t, string(StrategyColdFetch), info.LastStrategy)
	assert.Equal(t, 87.5, info.LastScore)
	assert.Equal(t, 1, info.ScanCount)
	assert.Empty(t, info.LastError)
	assert.NotEmpty(t, info.LastScanAt)
	assert.False(t, manager.IsScanInFlight("acc-1"))
}

func TestScanStatusBusyGuard(t *testing.T) {
	manager, _ := newTestStatusManager(t)

	require.True(t, manager.TryBeginScan("acc-1", "alice"))

	// Second attempt while the first is running must be refused.
	assert.False(t, manager.TryBeginScan("acc-1", "alice"))

	// Other accounts are not affected.
	assert.True(t, manager.TryBeginScan("acc-2", "bob"))

	manager.CompleteScan("acc-1", nil, nil)
	assert.True(t, manager.TryBeginScan("acc-1", "alice"))
}

func TestScanStatusQueuedDoesNotDowngradeRunning(t *testing.T) {
	manager, _ := newTestStatusManager(t)

	require.True(t, manager.TryBeginScan("acc-1", "alice"))
	manager.MarkQueued("acc-1", "alice")

	assert.Equal(t, SCAN_STATUS_RUNNING, manager.GetScanStatus("acc-1"))
}

func TestScanStatusFailureTracking(t *testing.T) {
	manager, _ := newTestStatusManager(t)

	require.True(t, manager.TryBeginScan("acc-1", "alice"))
	manager.CompleteScan("acc-1", nil, errors.New("rate limited by twitter api"))

	info := manager.GetScanInfo("acc-1")
	require.NotNil(t, info)
	assert.Equal(t, SCAN_STATUS_FAILED, info.Status)
	assert.Equal(t, "rate limited by twitter api", info.LastError)
	assert.Equal(t, 1, info.ScanCount)
	assert.Equal(t, 1, info.FailureCount)

	// A later success clears the error but keeps the failure count.
	require.True(t, manager.TryBeginScan("acc-1", "alice"))
	manager.CompleteScan("acc-1", &ScanOutcome{Stats: ScanStats{Strategy: StrategyUseCache}}, nil)

	info = manager.GetScanInfo("acc-1")
	assert.Equal(t, SCAN_STATUS_COMPLETED, info.Status)
	assert.Empty(t, info.LastError)
	assert.Equal(t, 2, info.ScanCount)
	assert.Equal(t, 1, info.FailureCount)
}

func TestScanStatusPersistenceRoundtrip(t *testing.T) {
	manager, path := newTestStatusManager(t)

	require.True(t, manager.TryBeginScan("acc-1", "alice"))
	manager.CompleteScan("acc-1", &ScanOutcome{
		Result: &AnalysisResultModel{Purpose: "employment", OverallScore: 42},
		Stats:  ScanStats{Strategy: StrategyIncrementalFetch},
	}, nil)
	manager.MarkQueued("acc-2", "bob")

	require.NoError(t, manager.saveToFile())

	_, err := os.Stat(path)
	require.NoError(t, err)

	reloaded := NewScanStatusManager(path)

	info := reloaded.GetScanInfo("acc-1")
	require.NotNil(t, info)
	assert.Equal(t, SCAN_STATUS_COMPLETED, info.Status)
	assert.Equal(t, "employment", info.LastPurpose)
	assert.Equal(t, float64(42), info.LastScore)
	assert.Equal(t, 1, info.ScanCount)
}

func TestScanStatusStaleRunningResetOnLoad(t *testing.T) {
	manager, path := newTestStatusManager(t)

	require.True(t, manager.TryBeginScan("acc-1", "alice"))
	manager.MarkQueued("acc-2", "bob")
	require.NoError(t, manager.saveToFile())

	// Simulates a restart after a crash mid-scan.
	reloaded := NewScanStatusManager(path)

	assert.Equal(t, SCAN_STATUS_IDLE, reloaded.GetScanStatus("acc-1"))
	assert.Equal(t, SCAN_STATUS_IDLE, reloaded.GetScanStatus("acc-2"))
	assert.True(t, reloaded.TryBeginScan("acc-1", "alice"))
}

func TestScanStatusStats(t *testing.T) {
	manager, _ := newTestStatusManager(t)

	manager.MarkQueued("acc-1", "alice")
	require.True(t, manager.TryBeginScan("acc-2", "bob"))
	require.True(t, manager.TryBeginScan("acc-3", "carol"))
	manager.CompleteScan("acc-3", nil, nil)
	require.True(t, manager.TryBeginScan("acc-4", "dave"))
	manager.CompleteScan("acc-4", nil, errors.New("boom"))

	stats := manager.GetStats()
	assert.Equal(t, 4, stats["total_accounts"])
	assert.Equal(t, 1, stats["queued"])
	assert.Equal(t, 1, stats["running"])
	assert.Equal(t, 1, stats["completed"])
	assert.Equal(t, 1, stats["failed"])
}

func TestScanStatusPeriodicSave(t *testing.T) {
	manager, _ := newTestStatusManager(t)

	manager.StartPeriodicSave()
	require.True(t, manager.TryBeginScan("acc-1", "alice"))
	manager.StopPeriodicSave()

	// StopPeriodicSave performs a final save, the file must reflect state.
	reloadedPath := manager.filePath
	reloaded := NewScanStatusManager(reloadedPath)
	require.NotNil(t, reloaded.GetScanInfo("acc-1"))
}

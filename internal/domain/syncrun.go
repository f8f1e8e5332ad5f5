package domain

import "time"

type SyncRunStatus string

const (
	SyncRunStarted   SyncRunStatus = "STARTED"
	SyncRunSucceeded SyncRunStatus = "SUCCEEDED"
	SyncRunFailed    SyncRunStatus = "FAILED"
)

type SyncType string

const (
	SyncTypeScheduled SyncType = "SCHEDULED"
	SyncTypeManual    SyncType = "MANUAL"
)

// SyncRun is the audit and mutual-exclusion record for one reconciliation
// pass. At most one run may be STARTED and fresh at any time; a STARTED run
// older than the staleness window is reclaimed as FAILED by the next pass.
type SyncRun struct {
	ID           int64
	Status       SyncRunStatus
	SyncType     SyncType
	TriggeredBy  string
	DealsFound   int
	DealsCreated int
	DealsUpdated int
	DealsRemoved int
	Errors       []string
	StartedAt    time.Time
	CompletedAt  *time.Time
}

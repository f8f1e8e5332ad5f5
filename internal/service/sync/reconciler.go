package sync

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/skyops/emptylegs/internal/domain"
	"github.com/skyops/emptylegs/internal/provider"
	"github.com/skyops/emptylegs/internal/repository"
)

type ProviderClient interface {
	FetchSnapshot(ctx context.Context) ([]provider.SnapshotItem, error)
}

type DealsCache interface {
	InvalidateDeals(ctx context.Context) error
}

type RunInput struct {
	SyncType    domain.SyncType `json:"sync_type"`
	TriggeredBy string          `json:"triggered_by"`
}

type RunResult struct {
	RunID        int64    `json:"run_id"`
	Success      bool     `json:"success"`
	DealsFound   int      `json:"deals_found"`
	DealsCreated int      `json:"deals_created"`
	DealsUpdated int      `json:"deals_updated"`
	DealsRemoved int      `json:"deals_removed"`
	DurationMs   int64    `json:"duration_ms"`
	Errors       []string `json:"errors"`
}

// Reconciler converges the set of PROVIDER-sourced deals to exactly match
// the marketplace's current snapshot. Mutual exclusion between runs lives in
// the sync_runs table, not in process state, so multiple instances stay
// serialized.
type Reconciler struct {
	runs      repository.SyncRunRepository
	deals     repository.DealRepository
	provider  ProviderClient
	cache     DealsCache
	staleness time.Duration
	now       func() time.Time
}

func NewReconciler(runs repository.SyncRunRepository, deals repository.DealRepository, client ProviderClient, cache DealsCache, staleness time.Duration) *Reconciler {
	return &Reconciler{
		runs:      runs,
		deals:     deals,
		provider:  client,
		cache:     cache,
		staleness: staleness,
		now:       time.Now,
	}
}

// Run executes one reconciliation pass. A fresh STARTED run makes it return
// domain.ErrSyncInProgress without touching anything; a stale STARTED run is
// first reclaimed as FAILED. Per-item mapping errors are collected into the
// run's error list and do not fail the run; only a snapshot fetch failure
// does.
func (r *Reconciler) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	started := r.now()
	freshAfter := started.Add(-r.staleness)

	reclaimed, err := r.runs.FailStaleStarted(ctx, freshAfter)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale runs: %w", err)
	}
	if reclaimed > 0 {
		log.Printf("sync: reclaimed %d stale run(s) as timed out", reclaimed)
	}

	run := &domain.SyncRun{SyncType: input.SyncType, TriggeredBy: input.TriggeredBy}
	if err := r.runs.CreateStarted(ctx, run, freshAfter); err != nil {
		return nil, err
	}

	// Single snapshot read: the upserts and the delete-missing step below
	// must see the same provider state.
	items, err := r.provider.FetchSnapshot(ctx)
	if err != nil {
		run.Status = domain.SyncRunFailed
		run.Errors = append(run.Errors, err.Error())
		if finErr := r.runs.Finalize(ctx, run); finErr != nil {
			log.Printf("sync: finalize failed run %d: %v", run.ID, finErr)
		}
		return nil, err
	}

	var (
		created, updated int
		errs             []string
		seenIDs          = make([]string, 0, len(items))
	)

	for _, item := range items {
		if item.ExternalID != "" {
			// Membership in the snapshot is what protects a deal from the
			// delete step, even when its mapping fails below.
			seenIDs = append(seenIDs, item.ExternalID)
		}

		deal, err := mapItem(item)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		outcome, err := r.deals.UpsertProvider(ctx, deal)
		if err != nil {
			errs = append(errs, fmt.Sprintf("item %s: upsert: %v", item.ExternalID, err))
			continue
		}
		switch outcome {
		case repository.UpsertCreated:
			created++
		case repository.UpsertUpdated:
			updated++
		}
	}

	removed, err := r.deals.DeleteProviderMissingFrom(ctx, seenIDs)
	if err != nil {
		errs = append(errs, fmt.Sprintf("delete missing: %v", err))
	}

	run.Status = domain.SyncRunSucceeded
	run.DealsFound = len(items)
	run.DealsCreated = created
	run.DealsUpdated = updated
	run.DealsRemoved = int(removed)
	run.Errors = errs
	if err := r.runs.Finalize(ctx, run); err != nil {
		return nil, fmt.Errorf("finalize run %d: %w", run.ID, err)
	}

	if r.cache != nil {
		if err := r.cache.InvalidateDeals(ctx); err != nil {
			log.Printf("sync: invalidate deals cache: %v", err)
		}
	}

	result := &RunResult{
		RunID:        run.ID,
		Success:      true,
		DealsFound:   len(items),
		DealsCreated: created,
		DealsUpdated: updated,
		DealsRemoved: int(removed),
		DurationMs:   r.now().Sub(started).Milliseconds(),
		Errors:       errs,
	}
	log.Printf("sync run %d: found=%d created=%d updated=%d removed=%d errors=%d",
		run.ID, result.DealsFound, created, updated, removed, len(errs))
	return result, nil
}

// History returns the last N runs, newest first, for operational visibility.
func (r *Reconciler) History(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.runs.ListRecent(ctx, limit)
}

// mapItem converts one snapshot entry to the internal deal shape. The slug is
// derived from the route and external id only, so re-mapping the same item
// always yields the same row.
func mapItem(item provider.SnapshotItem) (*domain.Deal, error) {
	if item.ExternalID == "" {
		return nil, fmt.Errorf("item %s->%s: missing external id", item.Origin, item.Destination)
	}
	if item.Origin == "" || item.Destination == "" {
		return nil, fmt.Errorf("item %s: missing route", item.ExternalID)
	}
	if item.DepartureTime.IsZero() {
		return nil, fmt.Errorf("item %s: missing departure time", item.ExternalID)
	}
	if item.TotalSeats <= 0 {
		return nil, fmt.Errorf("item %s: non-positive seat count", item.ExternalID)
	}
	if item.AvailableSeats < 0 || item.AvailableSeats > item.TotalSeats {
		return nil, fmt.Errorf("item %s: available seats %d out of range 0..%d", item.ExternalID, item.AvailableSeats, item.TotalSeats)
	}
	if item.Price < 0 || item.DiscountPrice < 0 {
		return nil, fmt.Errorf("item %s: negative price", item.ExternalID)
	}

	externalID := item.ExternalID
	return &domain.Deal{
		ExternalID:         &externalID,
		Slug:               slugFor(item),
		FromLocation:       item.Origin,
		ToLocation:         item.Destination,
		DepartureTime:      item.DepartureTime,
		Aircraft:           item.AircraftType,
		TotalSeats:         item.TotalSeats,
		AvailableSeats:     item.AvailableSeats,
		OriginalPriceCents: toCents(item.Price),
		DiscountPriceCents: toCents(item.DiscountPrice),
		Source:             domain.DealSourceProvider,
		Status:             domain.DealStatusPublished,
	}, nil
}

func slugFor(item provider.SnapshotItem) string {
	return strings.ToLower(fmt.Sprintf("%s-%s-%s", item.Origin, item.Destination, item.ExternalID))
}

func toCents(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

package domain

import "errors"

var (
	// ErrSyncInProgress is a busy signal, not a failure: a fresh STARTED
	// sync run already holds the reconciliation lock.
	ErrSyncInProgress = errors.New("sync already in progress")

	ErrNotFound          = errors.New("not found")
	ErrInsufficientSeats = errors.New("not enough available seats")
	ErrInvalidTransition = errors.New("booking state does not allow this transition")
	ErrDeadlinePassed    = errors.New("payment deadline has passed")
	ErrNotOverdue        = errors.New("payment deadline has not passed")
	ErrEvidenceRequired  = errors.New("no payment evidence recorded")

	// Inbound contact resolution must be deterministic and total.
	ErrNoApprovedBooking = errors.New("no approved booking for contact")
	ErrAmbiguousContact  = errors.New("contact has multiple approved bookings")
)

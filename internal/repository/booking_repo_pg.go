package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skyops/emptylegs/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	Approve(ctx context.Context, id int64, deadline time.Time, paymentLink string) (*domain.Booking, error)
	Reject(ctx context.Context, id int64, reason domain.RejectionReason, note string) (*domain.Booking, error)
	ConfirmPaid(ctx context.Context, id int64, actor string, now time.Time, ticketPrefix string) (*domain.Booking, error)
	ExpireOne(ctx context.Context, id int64, now time.Time) (*domain.Booking, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Booking, error)
	AddEvidence(ctx context.Context, ev *domain.Evidence) error
	CountEvidence(ctx context.Context, bookingID int64) (int, error)
	SetReviewFlag(ctx context.Context, bookingID int64) error
	FindApprovedByContact(ctx context.Context, contactPhone string) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, reference, deal_id, requested_seats, contact_name, contact_phone, status, payment_deadline, payment_link, rejection_reason, rejection_note, ticket_number, review_flag, confirmed_by, confirmed_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Reference, &b.DealID, &b.RequestedSeats, &b.ContactName, &b.ContactPhone, &b.Status, &b.PaymentDeadline, &b.PaymentLink, &b.RejectionReason, &b.RejectionNote, &b.TicketNumber, &b.ReviewFlag, &b.ConfirmedBy, &b.ConfirmedAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusPending
	return r.db.QueryRow(ctx, `
		INSERT INTO bookings (reference, deal_id, requested_seats, contact_name, contact_phone, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		booking.Reference, booking.DealID, booking.RequestedSeats, booking.ContactName, booking.ContactPhone, booking.Status).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// lockBooking reads the booking row FOR UPDATE so the transition decision and
// its side effects stay serialized per booking.
func lockBooking(ctx context.Context, tx pgx.Tx, id int64) (*domain.Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// Approve moves a PENDING booking to APPROVED and decrements the deal's
// available seats in the same transaction. The seat check lives in the
// UPDATE's WHERE clause, so concurrent approvals against the same deal each
// re-check capacity and overselling is impossible.
func (r *PGBookingRepository) Approve(ctx context.Context, id int64, deadline time.Time, paymentLink string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.BookingStatusPending {
		return nil, domain.ErrInvalidTransition
	}

	cmd, err := tx.Exec(ctx, `
		UPDATE deals SET available_seats = available_seats - $2, updated_at = now()
		WHERE id=$1 AND available_seats >= $2`, current.DealID, current.RequestedSeats)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrInsufficientSeats
	}

	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings SET status='APPROVED', payment_deadline=$2, payment_link=$3, updated_at=now()
		WHERE id=$1 RETURNING `+bookingColumns, id, deadline, paymentLink))
	if err != nil {
		return nil, err
	}
	return updated, tx.Commit(ctx)
}

func (r *PGBookingRepository) Reject(ctx context.Context, id int64, reason domain.RejectionReason, note string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.BookingStatusPending {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings SET status='REJECTED', rejection_reason=$2, rejection_note=$3, updated_at=now()
		WHERE id=$1 RETURNING `+bookingColumns, id, reason, note))
	if err != nil {
		return nil, err
	}
	return updated, tx.Commit(ctx)
}

// ConfirmPaid assigns the next ticket number from the shared counter row and
// marks the booking PAID, all in one transaction. The counter increment uses
// UPDATE ... RETURNING so concurrent confirmations cannot observe the same
// sequence value.
func (r *PGBookingRepository) ConfirmPaid(ctx context.Context, id int64, actor string, now time.Time, ticketPrefix string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.BookingStatusApproved {
		return nil, domain.ErrInvalidTransition
	}
	if current.PaymentDeadline != nil && now.After(*current.PaymentDeadline) {
		return nil, domain.ErrDeadlinePassed
	}

	var seq int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO ticket_counters (year, seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = ticket_counters.seq + 1
		RETURNING seq`, now.Year()).Scan(&seq); err != nil {
		return nil, err
	}
	ticket := fmt.Sprintf("%s%d%05d", ticketPrefix, now.Year(), seq)

	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings SET status='PAID', ticket_number=$2, confirmed_by=$3, confirmed_at=$4, updated_at=now()
		WHERE id=$1 RETURNING `+bookingColumns, id, ticket, actor, now))
	if err != nil {
		return nil, err
	}
	return updated, tx.Commit(ctx)
}

// ExpireOne expires a single overdue APPROVED booking and returns the seats
// taken at approval. A booking already in a terminal state is returned as-is
// with no error: the caller lost a race with ConfirmPaid or another sweep and
// that is the expected outcome, not a failure.
func (r *PGBookingRepository) ExpireOne(ctx context.Context, id int64, now time.Time) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return current, tx.Commit(ctx)
	}
	if current.Status != domain.BookingStatusApproved {
		return nil, domain.ErrInvalidTransition
	}
	if current.PaymentDeadline == nil || !now.After(*current.PaymentDeadline) {
		return nil, domain.ErrNotOverdue
	}

	if err := restoreSeats(ctx, tx, current.DealID, current.RequestedSeats); err != nil {
		return nil, err
	}

	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings SET status='EXPIRED', updated_at=now()
		WHERE id=$1 RETURNING `+bookingColumns, id))
	if err != nil {
		return nil, err
	}
	return updated, tx.Commit(ctx)
}

// ExpireOverdue sweeps every APPROVED booking past its payment deadline.
// The status flip and the seat restitution for each booking happen in one
// transaction; rows locked by a concurrent ConfirmPaid are re-checked after
// the lock is released and skipped once they are PAID.
func (r *PGBookingRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		UPDATE bookings SET status='EXPIRED', updated_at=now()
		WHERE status='APPROVED' AND payment_deadline < $1
		RETURNING `+bookingColumns, now)
	if err != nil {
		return nil, err
	}

	var expired []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		expired = append(expired, *b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, b := range expired {
		if err := restoreSeats(ctx, tx, b.DealID, b.RequestedSeats); err != nil {
			return nil, err
		}
	}
	return expired, tx.Commit(ctx)
}

// restoreSeats returns seats taken at approval to the deal. The result is
// capped at total_seats: a sync upsert may have already overwritten
// available_seats with the provider's own count, and blowing the capacity
// CHECK here would wedge every expiry of that booking.
func restoreSeats(ctx context.Context, tx pgx.Tx, dealID int64, seats int) error {
	_, err := tx.Exec(ctx, `
		UPDATE deals SET available_seats = LEAST(available_seats + $2, total_seats), updated_at = now()
		WHERE id=$1`, dealID, seats)
	return err
}

func (r *PGBookingRepository) AddEvidence(ctx context.Context, ev *domain.Evidence) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO booking_evidence (booking_id, media_ref, raw_text)
		VALUES ($1, $2, $3)
		RETURNING id, received_at`, ev.BookingID, ev.MediaRef, ev.RawText).
		Scan(&ev.ID, &ev.ReceivedAt)
}

func (r *PGBookingRepository) CountEvidence(ctx context.Context, bookingID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM booking_evidence WHERE booking_id=$1`, bookingID).Scan(&n)
	return n, err
}

func (r *PGBookingRepository) SetReviewFlag(ctx context.Context, bookingID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE bookings SET review_flag=true, updated_at=now() WHERE id=$1`, bookingID)
	return err
}

func (r *PGBookingRepository) FindApprovedByContact(ctx context.Context, contactPhone string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE contact_phone=$1 AND status='APPROVED' ORDER BY updated_at DESC`, contactPhone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)

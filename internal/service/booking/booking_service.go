package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/skyops/emptylegs/internal/domain"
	"github.com/skyops/emptylegs/internal/kafka"
	"github.com/skyops/emptylegs/internal/repository"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	Approve(ctx context.Context, id int64, actor string) (*domain.Booking, error)
	Reject(ctx context.Context, id int64, reason domain.RejectionReason, note string, noteVisible bool, actor string) (*domain.Booking, error)
	ConfirmPayment(ctx context.Context, id int64, actor string, override bool) (*domain.Booking, error)
	AttachEvidence(ctx context.Context, id int64, mediaRef, rawText string) error
	ExpireIfOverdue(ctx context.Context, id int64) (*domain.Booking, error)
	ExpireOverdueBookings(ctx context.Context) ([]domain.Booking, error)
	ResolveInboundEvidence(ctx context.Context, contactPhone, mediaRef, rawText string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type DealsCache interface {
	InvalidateDeals(ctx context.Context) error
}

type CreateBookingInput struct {
	DealID         int64  `json:"deal_id"`
	RequestedSeats int    `json:"requested_seats"`
	ContactName    string `json:"contact_name"`
	ContactPhone   string `json:"contact_phone"`
}

// BookingService drives the booking state machine:
// PENDING -> APPROVED -> PAID, PENDING -> REJECTED, APPROVED -> EXPIRED.
// Every transition commits in its own transaction inside the repository;
// notifications are published after the commit and never roll it back.
type BookingService struct {
	bookings           repository.BookingRepository
	deals              repository.DealRepository
	cache              DealsCache
	producer           Producer
	notificationsTopic string
	paymentWindow      time.Duration
	ticketPrefix       string
	paymentLinkBase    string
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	deals repository.DealRepository,
	cache DealsCache,
	producer Producer,
	paymentWindow time.Duration,
	ticketPrefix string,
	paymentLinkBase string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:        bookings,
		deals:           deals,
		cache:           cache,
		producer:        producer,
		paymentWindow:   paymentWindow,
		ticketPrefix:    ticketPrefix,
		paymentLinkBase: paymentLinkBase,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.RequestedSeats <= 0 {
		return nil, errors.New("requested seats must be positive")
	}
	if input.ContactPhone == "" {
		return nil, errors.New("contact phone is required")
	}

	deal, err := s.deals.GetByID(ctx, input.DealID)
	if err != nil {
		return nil, err
	}
	if !deal.Live() {
		return nil, errors.New("deal is not open for booking")
	}
	// Advisory only; the authoritative seat check happens inside the
	// Approve transaction.
	if input.RequestedSeats > deal.AvailableSeats {
		return nil, domain.ErrInsufficientSeats
	}

	booking := &domain.Booking{
		Reference:      newReference(),
		DealID:         input.DealID,
		RequestedSeats: input.RequestedSeats,
		ContactName:    input.ContactName,
		ContactPhone:   input.ContactPhone,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_requested", booking)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// Approve decrements the deal's seats and sets the payment deadline in one
// transaction. A capacity failure performs no mutation at all.
func (s *BookingService) Approve(ctx context.Context, id int64, actor string) (*domain.Booking, error) {
	deadline := s.now().Add(s.paymentWindow)
	link := fmt.Sprintf("%s/%s", s.paymentLinkBase, uuid.NewString())

	updated, err := s.bookings.Approve(ctx, id, deadline, link)
	if err != nil {
		return nil, err
	}
	log.Printf("booking %s approved by %s, payment due %s", updated.Reference, actor, deadline.Format(time.RFC3339))

	s.invalidateDeals(ctx)
	s.publish(ctx, "booking_approved", updated)
	return updated, nil
}

// Reject declines a PENDING booking. noteVisible marks the free-text note as
// client-facing so the rejection message includes it even for a non-OTHER
// reason; otherwise the note stays internal.
func (s *BookingService) Reject(ctx context.Context, id int64, reason domain.RejectionReason, note string, noteVisible bool, actor string) (*domain.Booking, error) {
	if !reason.Valid() {
		return nil, fmt.Errorf("unknown rejection reason %q", reason)
	}

	updated, err := s.bookings.Reject(ctx, id, reason, note)
	if err != nil {
		return nil, err
	}
	log.Printf("booking %s rejected by %s: %s", updated.Reference, actor, reason)

	s.publish(ctx, "booking_rejected", updated, func(e *kafka.NotificationEvent) {
		e.RejectionNoteVisible = noteVisible
	})
	return updated, nil
}

// ConfirmPayment requires recorded evidence unless override is set (an admin
// confirming an out-of-band payment). The deadline check, ticket assignment
// and status flip are one transaction; losing the race against expiry
// surfaces as ErrInvalidTransition from the repository.
func (s *BookingService) ConfirmPayment(ctx context.Context, id int64, actor string, override bool) (*domain.Booking, error) {
	if !override {
		n, err := s.bookings.CountEvidence(ctx, id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, domain.ErrEvidenceRequired
		}
	}

	updated, err := s.bookings.ConfirmPaid(ctx, id, actor, s.now(), s.ticketPrefix)
	if err != nil {
		return nil, err
	}
	log.Printf("booking %s paid, ticket %s issued by %s", updated.Reference, updated.TicketNumber, actor)

	s.publish(ctx, "booking_paid", updated)
	return updated, nil
}

// AttachEvidence records an inbound artifact without changing state. A
// booking sitting in APPROVED gets flagged for admin review; the transition
// to PAID still requires an explicit ConfirmPayment by an authorized actor.
func (s *BookingService) AttachEvidence(ctx context.Context, id int64, mediaRef, rawText string) error {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ev := &domain.Evidence{BookingID: id, MediaRef: mediaRef, RawText: rawText}
	if err := s.bookings.AddEvidence(ctx, ev); err != nil {
		return err
	}

	if booking.Status == domain.BookingStatusApproved {
		if err := s.bookings.SetReviewFlag(ctx, id); err != nil {
			return err
		}
		s.publish(ctx, "evidence_received", booking)
	}
	return nil
}

func (s *BookingService) ExpireIfOverdue(ctx context.Context, id int64) (*domain.Booking, error) {
	updated, err := s.bookings.ExpireOne(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	if updated.Status == domain.BookingStatusExpired {
		s.invalidateDeals(ctx)
		s.publish(ctx, "booking_expired", updated)
	}
	return updated, nil
}

func (s *BookingService) ExpireOverdueBookings(ctx context.Context) ([]domain.Booking, error) {
	expired, err := s.bookings.ExpireOverdue(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		s.invalidateDeals(ctx)
	}
	for i := range expired {
		s.publish(ctx, "booking_expired", &expired[i])
	}
	return expired, nil
}

// ResolveInboundEvidence routes a gateway message to a booking by contact:
// exactly one APPROVED booking matches, or the message is refused with a
// named error. Picking one of several silently is how receipts end up on
// the wrong booking.
func (s *BookingService) ResolveInboundEvidence(ctx context.Context, contactPhone, mediaRef, rawText string) error {
	matches, err := s.bookings.FindApprovedByContact(ctx, contactPhone)
	if err != nil {
		return err
	}
	switch len(matches) {
	case 0:
		return domain.ErrNoApprovedBooking
	case 1:
		return s.AttachEvidence(ctx, matches[0].ID, mediaRef, rawText)
	default:
		return domain.ErrAmbiguousContact
	}
}

func (s *BookingService) invalidateDeals(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDeals(ctx); err != nil {
		log.Printf("invalidate deals cache: %v", err)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking, decorate ...func(*kafka.NotificationEvent)) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}

	dealSlug := ""
	if deal, err := s.deals.GetByID(ctx, booking.DealID); err == nil {
		dealSlug = deal.Slug
	}

	reason := ""
	if booking.RejectionReason != nil {
		reason = string(*booking.RejectionReason)
	}
	event := kafka.NotificationEvent{
		Type:            eventType,
		BookingRef:      booking.Reference,
		ContactName:     booking.ContactName,
		ContactPhone:    booking.ContactPhone,
		DealSlug:        dealSlug,
		PaymentDeadline: booking.PaymentDeadline,
		PaymentLink:     booking.PaymentLink,
		TicketNumber:    booking.TicketNumber,
		RejectionReason: reason,
		RejectionNote:   booking.RejectionNote,
	}
	for _, d := range decorate {
		d(&event)
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Reference, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %s: %v", eventType, booking.Reference, err)
	}
}

func newReference() string {
	return "BK-" + uuid.NewString()[:8]
}

var _ BookingUseCase = (*BookingService)(nil)

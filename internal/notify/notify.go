package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/skyops/emptylegs/internal/domain"
	"github.com/skyops/emptylegs/internal/kafka"
)

// rejectionTexts maps a rejection reason to the human-facing message body.
var rejectionTexts = map[domain.RejectionReason]string{
	domain.RejectionSoldOut:         "Unfortunately the requested seats are no longer available on this flight.",
	domain.RejectionFlightCancelled: "The flight for this deal has been cancelled by the operator.",
	domain.RejectionNoPaymentMade:   "We did not receive your payment within the payment window.",
	domain.RejectionInvalidRequest:  "Your booking request could not be processed as submitted.",
	domain.RejectionOther:           "Your booking request was declined.",
}

// RejectionText returns the message body for a rejection. The free-text note
// is appended for OTHER, where the canned text alone says nothing useful, or
// when the rejecting actor marked it as client-facing.
func RejectionText(reason domain.RejectionReason, note string, noteVisible bool) string {
	text, ok := rejectionTexts[reason]
	if !ok {
		text = rejectionTexts[domain.RejectionOther]
	}
	if note != "" && (reason == domain.RejectionOther || noteVisible) {
		text = fmt.Sprintf("%s %s", text, note)
	}
	return text
}

// Sender renders notification events into message text and hands them to the
// delivery channel. Failures are logged, never fatal: the state transition
// that produced the event has already committed.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.NotificationEvent) error {
	body := Render(event)
	if body == "" {
		log.Printf("notify: unknown event type %q for booking %s, skipping", event.Type, event.BookingRef)
		return nil
	}
	log.Printf("notify %s (%s): %s", event.ContactPhone, event.Type, body)
	return nil
}

// Render builds the message body for an event. Returns "" for event types
// that carry no client-facing message.
func Render(event kafka.NotificationEvent) string {
	switch event.Type {
	case "booking_requested":
		return fmt.Sprintf("We received your request %s for flight %s. We will confirm availability shortly.",
			event.BookingRef, event.DealSlug)
	case "booking_approved":
		deadline := ""
		if event.PaymentDeadline != nil {
			deadline = event.PaymentDeadline.Format(time.RFC1123)
		}
		return fmt.Sprintf("Good news! Booking %s for flight %s is approved. Please complete payment by %s: %s",
			event.BookingRef, event.DealSlug, deadline, event.PaymentLink)
	case "booking_rejected":
		return fmt.Sprintf("Booking %s: %s",
			event.BookingRef, RejectionText(domain.RejectionReason(event.RejectionReason), event.RejectionNote, event.RejectionNoteVisible))
	case "booking_paid":
		return fmt.Sprintf("Payment confirmed for booking %s on flight %s. Your ticket number is %s. Safe travels!",
			event.BookingRef, event.DealSlug, event.TicketNumber)
	case "booking_expired":
		return fmt.Sprintf("Booking %s expired: payment was not confirmed before the deadline. The seats have been released.",
			event.BookingRef)
	case "evidence_received":
		return fmt.Sprintf("We received your payment receipt for booking %s. Our team will verify it and confirm shortly.",
			event.BookingRef)
	}
	return ""
}

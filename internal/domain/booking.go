package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "PENDING"
	BookingStatusApproved BookingStatus = "APPROVED"
	BookingStatusPaid     BookingStatus = "PAID"
	BookingStatusRejected BookingStatus = "REJECTED"
	BookingStatusExpired  BookingStatus = "EXPIRED"
)

// Terminal reports whether no further transition is accepted from s.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusPaid || s == BookingStatusRejected || s == BookingStatusExpired
}

type RejectionReason string

const (
	RejectionSoldOut         RejectionReason = "SOLD_OUT"
	RejectionFlightCancelled RejectionReason = "FLIGHT_CANCELLED"
	RejectionNoPaymentMade   RejectionReason = "NO_PAYMENT_MADE"
	RejectionInvalidRequest  RejectionReason = "INVALID_REQUEST"
	RejectionOther           RejectionReason = "OTHER"
)

func (r RejectionReason) Valid() bool {
	switch r {
	case RejectionSoldOut, RejectionFlightCancelled, RejectionNoPaymentMade, RejectionInvalidRequest, RejectionOther:
		return true
	}
	return false
}

type Booking struct {
	ID              int64
	Reference       string
	DealID          int64
	RequestedSeats  int
	ContactName     string
	ContactPhone    string
	Status          BookingStatus
	PaymentDeadline *time.Time
	PaymentLink     string
	RejectionReason *RejectionReason
	RejectionNote   string
	TicketNumber    string
	ReviewFlag      bool
	ConfirmedBy     string
	ConfirmedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Evidence is a client-submitted artifact (payment receipt etc.) attached to
// a booking. Attaching evidence never changes booking state.
type Evidence struct {
	ID         int64
	BookingID  int64
	MediaRef   string
	RawText    string
	ReceivedAt time.Time
}

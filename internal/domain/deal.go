package domain

import "time"

type DealSource string

const (
	DealSourceInternal DealSource = "INTERNAL"
	DealSourceOperator DealSource = "OPERATOR"
	DealSourceProvider DealSource = "PROVIDER"
)

type DealStatus string

const (
	DealStatusDraft     DealStatus = "DRAFT"
	DealStatusPublished DealStatus = "PUBLISHED"
	DealStatusOpen      DealStatus = "OPEN"
	DealStatusExpired   DealStatus = "EXPIRED"
	DealStatusRemoved   DealStatus = "REMOVED"
)

// Deal is a sellable empty-leg flight segment. ExternalID is set only for
// provider-sourced deals and is unique within the provider namespace.
type Deal struct {
	ID                 int64
	ExternalID         *string
	Slug               string
	FromLocation       string
	ToLocation         string
	DepartureTime      time.Time
	Aircraft           string
	TotalSeats         int
	AvailableSeats     int
	OriginalPriceCents int64
	DiscountPriceCents int64
	Source             DealSource
	Status             DealStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Live reports whether the deal is in one of the two interchangeable
// sellable states.
func (d *Deal) Live() bool {
	return d.Status == DealStatusPublished || d.Status == DealStatusOpen
}

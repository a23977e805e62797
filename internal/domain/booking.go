package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// Terminal reports whether no further status change is allowed.
// CANCELLED and COMPLETED bookings are immutable.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// CanTransitionTo encodes the booking state machine:
// PENDING -> CONFIRMED -> COMPLETED, and PENDING|CONFIRMED -> CANCELLED.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return target == BookingStatusConfirmed || target == BookingStatusCancelled
	case BookingStatusConfirmed:
		return target == BookingStatusCompleted || target == BookingStatusCancelled
	}
	return false
}

type CargoMeta struct {
	Description string `json:"description"`
	WeightKg    int    `json:"weight_kg"`
	HazardClass string `json:"hazard_class,omitempty"`
}

type Booking struct {
	ID               int64
	Reference        string
	UserID           int64
	VoyageID         int64
	ContainerType    ContainerType
	Quantity         int
	UnitPriceCents   int64
	TotalPriceCents  int64
	Status           BookingStatus
	CargoMeta        CargoMeta
	CapacityReleased bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

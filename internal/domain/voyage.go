package domain

import "time"

type VoyageStatus string

const (
	VoyageStatusAvailable VoyageStatus = "AVAILABLE"
	VoyageStatusClosed    VoyageStatus = "CLOSED"
)

type Voyage struct {
	ID            int64
	VesselName    string
	FromPort      string
	ToPort        string
	DepartureDate time.Time
	ArrivalDate   time.Time
	Status        VoyageStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ContainerType string

const (
	ContainerType20GP ContainerType = "20GP"
	ContainerType40GP ContainerType = "40GP"
	ContainerType40HC ContainerType = "40HC"
	ContainerType45HC ContainerType = "45HC"
)

func (t ContainerType) Valid() bool {
	switch t {
	case ContainerType20GP, ContainerType40GP, ContainerType40HC, ContainerType45HC:
		return true
	}
	return false
}

// ContainerAllocation is the sellable capacity pool for one container
// type on one voyage. AvailableQuantity is mutated only through
// AllocationRepository.Reserve and Release.
type ContainerAllocation struct {
	VoyageID          int64
	ContainerType     ContainerType
	TotalQuantity     int
	AvailableQuantity int
	UnitPriceCents    int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

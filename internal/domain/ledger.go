package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
)

const TransactionTypeBookingPayment = "BOOKING_PAYMENT"

// TransactionRecord is an append-only audit entry written once per
// booking. The only allowed mutation is the PENDING -> CONFIRMED
// settlement move.
type TransactionRecord struct {
	ID          uuid.UUID
	BookingID   int64
	Type        string
	PayerUserID int64
	Payee       string
	AmountCents int64
	Status      TransactionStatus
	CreatedAt   time.Time
}

type ContractStatus string

const (
	ContractStatusDeployed ContractStatus = "DEPLOYED"
	ContractStatusExecuted ContractStatus = "EXECUTED"
)

// ContractRecord freezes the booking terms at creation time.
// Terms is an immutable JSON snapshot; Execute is one-way and
// exactly-once.
type ContractRecord struct {
	ID         uuid.UUID
	BookingID  int64
	Terms      []byte
	Status     ContractStatus
	DeployedAt time.Time
	ExecutedAt *time.Time
}

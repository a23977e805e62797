package repository

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"shipbooking/internal/domain"
)

// LedgerRepository appends immutable audit records derived from a
// persisted booking. Records are never updated or deleted apart from
// two one-way status moves: transaction settlement and contract
// execution.
type LedgerRepository interface {
	AppendTransaction(ctx context.Context, q Querier, booking *domain.Booking) (*domain.TransactionRecord, error)
	AppendContract(ctx context.Context, q Querier, booking *domain.Booking) (*domain.ContractRecord, error)
	SettleTransaction(ctx context.Context, q Querier, bookingID int64) error
	ExecuteContract(ctx context.Context, q Querier, contractID uuid.UUID) error
	TransactionsByBooking(ctx context.Context, q Querier, bookingID int64) ([]domain.TransactionRecord, error)
	ContractsByBooking(ctx context.Context, q Querier, bookingID int64) ([]domain.ContractRecord, error)
}

// PGLedgerRepository always writes and reads through the caller's
// Querier: every ledger access happens inside a booking unit of work.
type PGLedgerRepository struct{}

func NewLedgerRepository() LedgerRepository {
	return &PGLedgerRepository{}
}

const payeeCarrier = "CARRIER"

// contractTerms is the frozen snapshot written into a ContractRecord.
// Later price or allocation changes never touch it.
type contractTerms struct {
	Reference       string           `json:"reference"`
	UserID          int64            `json:"user_id"`
	VoyageID        int64            `json:"voyage_id"`
	ContainerType   string           `json:"container_type"`
	Quantity        int              `json:"quantity"`
	UnitPriceCents  int64            `json:"unit_price_cents"`
	TotalPriceCents int64            `json:"total_price_cents"`
	Cargo           domain.CargoMeta `json:"cargo"`
}

func (r *PGLedgerRepository) AppendTransaction(ctx context.Context, q Querier, booking *domain.Booking) (*domain.TransactionRecord, error) {
	rec := &domain.TransactionRecord{
		ID:          uuid.New(),
		BookingID:   booking.ID,
		Type:        domain.TransactionTypeBookingPayment,
		PayerUserID: booking.UserID,
		Payee:       payeeCarrier,
		AmountCents: booking.TotalPriceCents,
		Status:      domain.TransactionStatusPending,
	}
	err := q.QueryRow(ctx, `INSERT INTO transaction_records (id, booking_id, type, payer_user_id, payee, amount_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		rec.ID, rec.BookingID, rec.Type, rec.PayerUserID, rec.Payee, rec.AmountCents, rec.Status).
		Scan(&rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *PGLedgerRepository) AppendContract(ctx context.Context, q Querier, booking *domain.Booking) (*domain.ContractRecord, error) {
	terms, err := json.Marshal(contractTerms{
		Reference:       booking.Reference,
		UserID:          booking.UserID,
		VoyageID:        booking.VoyageID,
		ContainerType:   string(booking.ContainerType),
		Quantity:        booking.Quantity,
		UnitPriceCents:  booking.UnitPriceCents,
		TotalPriceCents: booking.TotalPriceCents,
		Cargo:           booking.CargoMeta,
	})
	if err != nil {
		return nil, err
	}

	rec := &domain.ContractRecord{
		ID:        uuid.New(),
		BookingID: booking.ID,
		Terms:     terms,
		Status:    domain.ContractStatusDeployed,
	}
	err = q.QueryRow(ctx, `INSERT INTO contract_records (id, booking_id, terms, status)
		VALUES ($1, $2, $3, $4)
		RETURNING deployed_at`,
		rec.ID, rec.BookingID, rec.Terms, rec.Status).
		Scan(&rec.DeployedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SettleTransaction performs the single allowed PENDING -> CONFIRMED
// move on the booking's transaction record.
func (r *PGLedgerRepository) SettleTransaction(ctx context.Context, q Querier, bookingID int64) error {
	_, err := q.Exec(ctx, `UPDATE transaction_records SET status=$1 WHERE booking_id=$2 AND status=$3`,
		domain.TransactionStatusConfirmed, bookingID, domain.TransactionStatusPending)
	return err
}

// ExecuteContract is one-way and exactly-once. Executing a missing or
// already-executed contract is an error, never a silent no-op.
func (r *PGLedgerRepository) ExecuteContract(ctx context.Context, q Querier, contractID uuid.UUID) error {
	cmd, err := q.Exec(ctx, `UPDATE contract_records SET status=$1, executed_at=now() WHERE id=$2 AND status=$3`,
		domain.ContractStatusExecuted, contractID, domain.ContractStatusDeployed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var status domain.ContractStatus
	err = q.QueryRow(ctx, `SELECT status FROM contract_records WHERE id=$1`, contractID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrapf(domain.ErrContractNotFound, "contract %s", contractID)
	}
	if err != nil {
		return err
	}
	return errors.Wrapf(domain.ErrContractExecuted, "contract %s", contractID)
}

func (r *PGLedgerRepository) TransactionsByBooking(ctx context.Context, q Querier, bookingID int64) ([]domain.TransactionRecord, error) {
	rows, err := q.Query(ctx, `SELECT id, booking_id, type, payer_user_id, payee, amount_cents, status, created_at
		FROM transaction_records WHERE booking_id=$1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.TransactionRecord, 0)
	for rows.Next() {
		var rec domain.TransactionRecord
		if err := rows.Scan(&rec.ID, &rec.BookingID, &rec.Type, &rec.PayerUserID, &rec.Payee, &rec.AmountCents, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PGLedgerRepository) ContractsByBooking(ctx context.Context, q Querier, bookingID int64) ([]domain.ContractRecord, error) {
	rows, err := q.Query(ctx, `SELECT id, booking_id, terms, status, deployed_at, executed_at
		FROM contract_records WHERE booking_id=$1 ORDER BY deployed_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ContractRecord, 0)
	for rows.Next() {
		var rec domain.ContractRecord
		if err := rows.Scan(&rec.ID, &rec.BookingID, &rec.Terms, &rec.Status, &rec.DeployedAt, &rec.ExecutedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ LedgerRepository = (*PGLedgerRepository)(nil)

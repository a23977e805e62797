package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shipbooking/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, q Querier, booking *domain.Booking) error
	GetByReference(ctx context.Context, q Querier, reference string) (*domain.Booking, error)
	// GetByReferenceForUpdate takes a row lock so cancel and confirm on
	// the same reference serialize against each other.
	GetByReferenceForUpdate(ctx context.Context, q Querier, reference string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, q Querier, id int64, status domain.BookingStatus) error
	// MarkCancelled flips a live booking to CANCELLED and records that
	// its capacity has been handed back. Returns false when the guard
	// matched no row, so a retried cancel can never double-release.
	MarkCancelled(ctx context.Context, q Querier, id int64) (bool, error)
	ListPendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, reference, user_id, voyage_id, container_type, quantity, unit_price_cents, total_price_cents, status, cargo_meta, capacity_released, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var cargo []byte
	if err := row.Scan(&b.ID, &b.Reference, &b.UserID, &b.VoyageID, &b.ContainerType, &b.Quantity, &b.UnitPriceCents, &b.TotalPriceCents, &b.Status, &cargo, &b.CapacityReleased, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if len(cargo) > 0 {
		if err := json.Unmarshal(cargo, &b.CargoMeta); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

func (r *PGBookingRepository) Create(ctx context.Context, q Querier, booking *domain.Booking) error {
	cargo, err := json.Marshal(booking.CargoMeta)
	if err != nil {
		return err
	}

	booking.Status = domain.BookingStatusPending
	return q.QueryRow(ctx, `INSERT INTO bookings (reference, user_id, voyage_id, container_type, quantity, unit_price_cents, total_price_cents, status, cargo_meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		booking.Reference, booking.UserID, booking.VoyageID, booking.ContainerType, booking.Quantity,
		booking.UnitPriceCents, booking.TotalPriceCents, booking.Status, cargo).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, q Querier, reference string) (*domain.Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference=$1`, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(domain.ErrBookingNotFound, "reference %s", reference)
		}
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) GetByReferenceForUpdate(ctx context.Context, q Querier, reference string) (*domain.Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference=$1 FOR UPDATE`, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(domain.ErrBookingNotFound, "reference %s", reference)
		}
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, q Querier, id int64, status domain.BookingStatus) error {
	cmd, err := q.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrBookingNotFound, "id %d", id)
	}
	return nil
}

func (r *PGBookingRepository) MarkCancelled(ctx context.Context, q Querier, id int64) (bool, error) {
	cmd, err := q.Exec(ctx, `UPDATE bookings
		SET status=$1, capacity_released=TRUE, updated_at=now()
		WHERE id=$2 AND status IN ($3, $4) AND capacity_released=FALSE`,
		domain.BookingStatusCancelled, id, domain.BookingStatusPending, domain.BookingStatusConfirmed)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGBookingRepository) ListPendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status=$1 AND created_at <= $2 ORDER BY created_at`, domain.BookingStatusPending, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, *b)
	}
	return pending, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)

package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shipbooking/internal/domain"
)

// AllocationRepository is the capacity store. Reserve and Release are
// the only operations that mutate available_quantity, and both accept a
// Querier so BookingService can run them inside the booking transaction.
type AllocationRepository interface {
	Get(ctx context.Context, voyageID int64, containerType domain.ContainerType) (*domain.ContainerAllocation, error)
	ListByVoyage(ctx context.Context, voyageID int64) ([]domain.ContainerAllocation, error)
	Reserve(ctx context.Context, q Querier, voyageID int64, containerType domain.ContainerType, qty int) (unitPriceCents int64, err error)
	Release(ctx context.Context, q Querier, voyageID int64, containerType domain.ContainerType, qty int) error
}

type PGAllocationRepository struct {
	db *pgxpool.Pool
}

func NewAllocationRepository(db *pgxpool.Pool) AllocationRepository {
	return &PGAllocationRepository{db: db}
}

const allocationColumns = `voyage_id, container_type, total_quantity, available_quantity, unit_price_cents, created_at, updated_at`

func (r *PGAllocationRepository) Get(ctx context.Context, voyageID int64, containerType domain.ContainerType) (*domain.ContainerAllocation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+allocationColumns+` FROM container_allocations WHERE voyage_id=$1 AND container_type=$2`, voyageID, containerType)
	var a domain.ContainerAllocation
	if err := row.Scan(&a.VoyageID, &a.ContainerType, &a.TotalQuantity, &a.AvailableQuantity, &a.UnitPriceCents, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(domain.ErrAllocationNotFound, "voyage %d type %s", voyageID, containerType)
		}
		return nil, err
	}
	return &a, nil
}

func (r *PGAllocationRepository) ListByVoyage(ctx context.Context, voyageID int64) ([]domain.ContainerAllocation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+allocationColumns+` FROM container_allocations WHERE voyage_id=$1 ORDER BY container_type`, voyageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	allocations := make([]domain.ContainerAllocation, 0)
	for rows.Next() {
		var a domain.ContainerAllocation
		if err := rows.Scan(&a.VoyageID, &a.ContainerType, &a.TotalQuantity, &a.AvailableQuantity, &a.UnitPriceCents, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// Reserve decrements available_quantity by qty in a single conditional
// UPDATE. Check and decrement are never split: two concurrent reserves
// on the same key cannot both pass the availability check and overshoot.
// The unit price is snapshotted from the same statement.
func (r *PGAllocationRepository) Reserve(ctx context.Context, q Querier, voyageID int64, containerType domain.ContainerType, qty int) (int64, error) {
	var unitPriceCents int64
	err := q.QueryRow(ctx, `UPDATE container_allocations
		SET available_quantity = available_quantity - $3, updated_at = now()
		WHERE voyage_id=$1 AND container_type=$2 AND available_quantity >= $3
		RETURNING unit_price_cents`, voyageID, containerType, qty).Scan(&unitPriceCents)
	if err == nil {
		return unitPriceCents, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// Zero rows: either the allocation does not exist or capacity is
	// short. Re-read for the remaining-quantity hint.
	var remaining int
	err = q.QueryRow(ctx, `SELECT available_quantity FROM container_allocations WHERE voyage_id=$1 AND container_type=$2`, voyageID, containerType).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.Wrapf(domain.ErrAllocationNotFound, "voyage %d type %s", voyageID, containerType)
	}
	if err != nil {
		return 0, err
	}
	return 0, errors.Wrapf(domain.ErrInsufficientCapacity, "requested %d, only %d left", qty, remaining)
}

// Release restores qty units. It always mirrors a prior successful
// Reserve of the same amount, so no upper-bound check is needed.
func (r *PGAllocationRepository) Release(ctx context.Context, q Querier, voyageID int64, containerType domain.ContainerType, qty int) error {
	cmd, err := q.Exec(ctx, `UPDATE container_allocations
		SET available_quantity = available_quantity + $3, updated_at = now()
		WHERE voyage_id=$1 AND container_type=$2`, voyageID, containerType, qty)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrAllocationNotFound, "voyage %d type %s", voyageID, containerType)
	}
	return nil
}

var _ AllocationRepository = (*PGAllocationRepository)(nil)

package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shipbooking/internal/domain"
)

// VoyageRepository is read-only: voyages are created and mutated by an
// external scheduling process.
type VoyageRepository interface {
	List(ctx context.Context) ([]domain.Voyage, error)
	GetByID(ctx context.Context, id int64) (*domain.Voyage, error)
}

type PGVoyageRepository struct {
	db *pgxpool.Pool
}

func NewVoyageRepository(db *pgxpool.Pool) VoyageRepository {
	return &PGVoyageRepository{db: db}
}

const voyageColumns = `id, vessel_name, from_port, to_port, departure_date, arrival_date, status, created_at, updated_at`

func (r *PGVoyageRepository) List(ctx context.Context) ([]domain.Voyage, error) {
	rows, err := r.db.Query(ctx, `SELECT `+voyageColumns+` FROM voyages ORDER BY departure_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	voyages := make([]domain.Voyage, 0)
	for rows.Next() {
		var v domain.Voyage
		if err := rows.Scan(&v.ID, &v.VesselName, &v.FromPort, &v.ToPort, &v.DepartureDate, &v.ArrivalDate, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		voyages = append(voyages, v)
	}
	return voyages, rows.Err()
}

func (r *PGVoyageRepository) GetByID(ctx context.Context, id int64) (*domain.Voyage, error) {
	row := r.db.QueryRow(ctx, `SELECT `+voyageColumns+` FROM voyages WHERE id=$1`, id)
	var v domain.Voyage
	if err := row.Scan(&v.ID, &v.VesselName, &v.FromPort, &v.ToPort, &v.DepartureDate, &v.ArrivalDate, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(domain.ErrVoyageNotFound, "voyage %d", id)
		}
		return nil, err
	}
	return &v, nil
}

var _ VoyageRepository = (*PGVoyageRepository)(nil)

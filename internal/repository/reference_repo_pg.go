package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReferenceGenerator produces globally unique booking references of the
// form SHIP-YYYYMMDD-NNNN, backed by a per-day monotonic sequence.
// An unchecked random suffix would risk collisions; the sequence makes
// uniqueness structural, and the unique index on bookings.reference is
// the backstop.
//
// Next runs in its own autocommit round trip, never inside the booking
// transaction: the upsert locks the day row, and holding that lock
// until commit would serialize every create of the day. A sequence gap
// left by a later rollback is harmless, only uniqueness matters.
type ReferenceGenerator interface {
	Next(ctx context.Context, at time.Time) (string, error)
}

type PGReferenceGenerator struct {
	db *pgxpool.Pool
}

func NewReferenceGenerator(db *pgxpool.Pool) ReferenceGenerator {
	return &PGReferenceGenerator{db: db}
}

func (g *PGReferenceGenerator) Next(ctx context.Context, at time.Time) (string, error) {
	day := at.UTC().Format("20060102")
	var seq int64
	err := g.db.QueryRow(ctx, `INSERT INTO booking_reference_seq (day, last_seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_seq = booking_reference_seq.last_seq + 1
		RETURNING last_seq`, day).Scan(&seq)
	if err != nil {
		return "", err
	}
	return formatReference(day, seq), nil
}

func formatReference(day string, seq int64) string {
	return fmt.Sprintf("SHIP-%s-%04d", day, seq)
}

var _ ReferenceGenerator = (*PGReferenceGenerator)(nil)

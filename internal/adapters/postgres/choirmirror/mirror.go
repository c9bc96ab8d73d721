package choirmirror

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

// Mirror pushes choir rows into a Postgres table so an external reporting
// database tracks the console's choir roster. Writes are last-write-wins
// upserts keyed by choir id.
type Mirror struct {
	pool *pgxpool.Pool
}

func NewMirror(pool *pgxpool.Pool) *Mirror {
	return &Mirror{pool: pool}
}

func (m *Mirror) Upsert(ctx context.Context, c domain.Choir) error {
	if m.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := m.pool.Exec(ctx, `
		INSERT INTO choirs (id, name, initials, status, photo_url, attendance, streak)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    initials = EXCLUDED.initials,
		    status = EXCLUDED.status,
		    photo_url = EXCLUDED.photo_url,
		    attendance = EXCLUDED.attendance,
		    streak = EXCLUDED.streak
	`, string(c.ID), c.Name, c.Initials, string(c.Status), c.PhotoURL, c.Attendance, c.Streak)
	return err
}

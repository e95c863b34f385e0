package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

type WebinarRepository struct {
	DB *sql.DB
}

func NewWebinarRepository(db *sql.DB) *WebinarRepository {
	return &WebinarRepository{DB: db}
}

func (r *WebinarRepository) Create(ctx context.Context, w *entity.Webinar) error {
	query := `
		INSERT INTO webinars (id, title, event_type, date, time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.DB.ExecContext(ctx, query, w.ID, w.Title, w.EventType, w.Date, w.Time, w.Status, w.CreatedAt)
	return mapError(err)
}

const webinarColumns = `id, title, event_type, date, time, status, created_at`

func scanWebinar(row rowScanner) (*entity.Webinar, error) {
	var w entity.Webinar
	if err := row.Scan(&w.ID, &w.Title, &w.EventType, &w.Date, &w.Time, &w.Status, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WebinarRepository) FindByID(ctx context.Context, id string) (*entity.Webinar, error) {
	w, err := scanWebinar(r.DB.QueryRowContext(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("webinar %s: %w", id, entity.ErrNotFound)
	}
	return w, err
}

// FindActive returns the most recent active webinar. Registrations without an
// explicit webinar are attached to it.
func (r *WebinarRepository) FindActive(ctx context.Context) (*entity.Webinar, error) {
	w, err := scanWebinar(r.DB.QueryRowContext(ctx, `
		SELECT `+webinarColumns+`
		FROM webinars
		WHERE status = 'active'
		ORDER BY date DESC, created_at DESC
		LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active webinar: %w", entity.ErrNotFound)
	}
	return w, err
}

func (r *WebinarRepository) List(ctx context.Context) ([]entity.Webinar, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+webinarColumns+` FROM webinars ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Webinar{}
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (r *WebinarRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE webinars SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("webinar %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

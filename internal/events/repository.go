package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/pkg/database"
)

var (
	ErrNotFound = errors.New("event not found")
	// ErrInvalidEvent is returned when a write breaks the event type, end time and duration rules.
	ErrInvalidEvent = errors.New("event type requires duration for Show events and end time otherwise")
)

const eventColumns = `id, name, location, image, description, start_time, end_time, duration,
	event_type, event_url, created_at, updated_at`

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Name, &e.Location, &e.Image, &e.Description, &e.StartTime, &e.EndTime,
		&e.Duration, &e.EventType, &e.EventURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// List returns every event in schedule order.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	list, err := r.list(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_time, name`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return list, nil
}

// Random returns up to count events in random order.
func (r *Repository) Random(ctx context.Context, count int) ([]models.Event, error) {
	list, err := r.list(ctx, `SELECT `+eventColumns+` FROM events ORDER BY random() LIMIT $1`, count)
	if err != nil {
		return nil, fmt.Errorf("random events: %w", err)
	}
	return list, nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// Create inserts e. The caller assigns e.ID so EventURL is written in the same statement.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, name, location, image, description, start_time, end_time, duration, event_type, event_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.ID, e.Name, e.Location, e.Image, e.Description, e.StartTime, e.EndTime,
		e.Duration, string(e.EventType), e.EventURL).Scan(&e.CreatedAt, &e.UpdatedAt)
	if database.IsCheckViolation(err) {
		return ErrInvalidEvent
	}
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update writes every mutable field of e.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET name = $1, location = $2, image = $3, description = $4, start_time = $5,
			end_time = $6, duration = $7, event_type = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, e.Name, e.Location, e.Image, e.Description, e.StartTime, e.EndTime,
		e.Duration, string(e.EventType), e.ID).Scan(&e.UpdatedAt)
	if database.IsNotFound(err) {
		return ErrNotFound
	}
	if database.IsCheckViolation(err) {
		return ErrInvalidEvent
	}
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event with its scans, votes and teams in one transaction and
// returns the image URLs that are no longer referenced.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) ([]string, error) {
	var images []string
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var eventImage string
		err := tx.QueryRow(ctx, `SELECT image FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&eventImage)
		if database.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `DELETE FROM teams WHERE event_id = $1 RETURNING image`, id)
		if err != nil {
			return err
		}
		teamImages, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}

		for _, q := range []string{
			`DELETE FROM scans WHERE event_id = $1`,
			`DELETE FROM votes WHERE event_id = $1`,
			`DELETE FROM events WHERE id = $1`,
		} {
			if _, err := tx.Exec(ctx, q, id); err != nil {
				return err
			}
		}
		images = append([]string{eventImage}, teamImages...)
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete event: %w", err)
	}
	return images, nil
}

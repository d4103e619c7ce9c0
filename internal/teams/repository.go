package teams

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/pkg/database"
)

var (
	ErrNotFound          = errors.New("team not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrTeamsActivityOnly = errors.New("teams can only be added to Activity events")
)

const teamColumns = `t.id, t.event_id, t.name, t.location, t.description, t.image, t.students,
	t.start_time, t.end_time, t.created_at, t.updated_at`

// Repository handles team persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a teams repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(row rowScanner, withEvent bool) (*models.Team, error) {
	var t models.Team
	dest := []any{&t.ID, &t.EventID, &t.Name, &t.Location, &t.Description, &t.Image, &t.Students,
		&t.StartTime, &t.EndTime, &t.CreatedAt, &t.UpdatedAt}
	var ref models.EventRef
	if withEvent {
		dest = append(dest, &ref.ID, &ref.Name)
	}
	if err := row.Scan(dest...); err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if withEvent {
		t.Event = &ref
	}
	if t.Students == nil {
		t.Students = []string{}
	}
	return &t, nil
}

func (r *Repository) list(ctx context.Context, withEvent bool, q string, args ...any) ([]models.Team, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Team{}
	for rows.Next() {
		t, err := scanTeam(rows, withEvent)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// Random returns up to count teams in random order, each with its event.
func (r *Repository) Random(ctx context.Context, count int) ([]models.Team, error) {
	q := `SELECT ` + teamColumns + `, e.id, e.name
		FROM teams t JOIN events e ON e.id = t.event_id
		ORDER BY random() LIMIT $1`
	list, err := r.list(ctx, true, q, count)
	if err != nil {
		return nil, fmt.Errorf("random teams: %w", err)
	}
	return list, nil
}

// GetByID returns a team with its event.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	q := `SELECT ` + teamColumns + `, e.id, e.name
		FROM teams t JOIN events e ON e.id = t.event_id
		WHERE t.id = $1`
	return scanTeam(r.pool.QueryRow(ctx, q, id), true)
}

// GetInEvent returns a team only if it belongs to eventID.
func (r *Repository) GetInEvent(ctx context.Context, eventID, teamID uuid.UUID) (*models.Team, error) {
	q := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1 AND t.event_id = $2`
	return scanTeam(r.pool.QueryRow(ctx, q, teamID, eventID), false)
}

// ListByEvent returns an event's teams ordered by name.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Team, error) {
	q := `SELECT ` + teamColumns + ` FROM teams t WHERE t.event_id = $1 ORDER BY t.name, t.id`
	list, err := r.list(ctx, false, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event teams: %w", err)
	}
	return list, nil
}

// ListByEvents returns the teams of every given event, grouped by event id.
func (r *Repository) ListByEvents(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID][]models.Team, error) {
	out := make(map[uuid.UUID][]models.Team, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	q := `SELECT ` + teamColumns + ` FROM teams t WHERE t.event_id = ANY($1) ORDER BY t.name, t.id`
	list, err := r.list(ctx, false, q, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("list teams by events: %w", err)
	}
	for _, t := range list {
		out[t.EventID] = append(out[t.EventID], t)
	}
	return out, nil
}

// EventType returns the type of an event, or ErrEventNotFound.
func (r *Repository) EventType(ctx context.Context, eventID uuid.UUID) (models.EventType, error) {
	var typ models.EventType
	err := r.pool.QueryRow(ctx, `SELECT event_type FROM events WHERE id = $1`, eventID).Scan(&typ)
	if database.IsNotFound(err) {
		return "", ErrEventNotFound
	}
	if err != nil {
		return "", fmt.Errorf("event type: %w", err)
	}
	return typ, nil
}

// Create inserts a team. A missing parent event yields ErrEventNotFound.
func (r *Repository) Create(ctx context.Context, t *models.Team) error {
	const q = `INSERT INTO teams (event_id, name, location, description, image, students, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, t.EventID, t.Name, t.Location, t.Description, t.Image, t.Students, t.StartTime, t.EndTime).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if database.IsForeignKeyViolation(err) {
		return ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

// Update writes every mutable field of t, scoped to its event.
func (r *Repository) Update(ctx context.Context, t *models.Team) error {
	const q = `UPDATE teams SET name = $1, location = $2, description = $3, image = $4, students = $5,
			start_time = $6, end_time = $7, updated_at = NOW()
		WHERE id = $8 AND event_id = $9
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, t.Name, t.Location, t.Description, t.Image, t.Students, t.StartTime, t.EndTime, t.ID, t.EventID).
		Scan(&t.UpdatedAt)
	if database.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	return nil
}

// Delete removes a team and, through the cascade, its votes. It returns the team's image URL.
func (r *Repository) Delete(ctx context.Context, eventID, teamID uuid.UUID) (string, error) {
	var image string
	err := r.pool.QueryRow(ctx, `DELETE FROM teams WHERE id = $1 AND event_id = $2 RETURNING image`, teamID, eventID).Scan(&image)
	if database.IsNotFound(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete team: %w", err)
	}
	return image, nil
}

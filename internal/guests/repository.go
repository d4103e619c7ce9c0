package guests

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
	ErrDuplicateVote    = errors.New("guest already voted for this event")
	ErrAlreadyScanned   = errors.New("event already scanned by guest")
	ErrUnknownReference = errors.New("event or team not found")
)

const (
	voteConstraint = "votes_guest_event_key"
	scanConstraint = "scans_guest_event_key"
)

// Repository stores votes and scans. The unique constraints on
// (guest_id, event_id) are the only guard against duplicates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a guests repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HasVoted reports whether the guest already voted in the event.
func (r *Repository) HasVoted(ctx context.Context, guestID string, eventID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM votes WHERE guest_id = $1 AND event_id = $2)`,
		guestID, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

// CreateVote inserts a vote. The losing insert of a race gets ErrDuplicateVote.
func (r *Repository) CreateVote(ctx context.Context, guestID string, eventID, teamID uuid.UUID) (*models.Vote, error) {
	const q = `INSERT INTO votes (guest_id, event_id, team_id) VALUES ($1, $2, $3)
		RETURNING id, guest_id, event_id, team_id, created_at`
	var v models.Vote
	err := r.pool.QueryRow(ctx, q, guestID, eventID, teamID).
		Scan(&v.ID, &v.GuestID, &v.EventID, &v.TeamID, &v.CreatedAt)
	if err != nil {
		return nil, classify(err, voteConstraint, ErrDuplicateVote, "create vote")
	}
	return &v, nil
}

// CreateScan inserts a scan. A second scan of the same event gets ErrAlreadyScanned.
func (r *Repository) CreateScan(ctx context.Context, guestID string, eventID uuid.UUID) (*models.Scan, error) {
	const q = `INSERT INTO scans (guest_id, event_id) VALUES ($1, $2)
		RETURNING id, guest_id, event_id, created_at`
	var s models.Scan
	err := r.pool.QueryRow(ctx, q, guestID, eventID).
		Scan(&s.ID, &s.GuestID, &s.EventID, &s.CreatedAt)
	if err != nil {
		return nil, classify(err, scanConstraint, ErrAlreadyScanned, "create scan")
	}
	return &s, nil
}

func classify(err error, constraint string, duplicate error, op string) error {
	switch {
	case database.IsUniqueViolation(err, constraint):
		return duplicate
	case database.IsForeignKeyViolation(err):
		return ErrUnknownReference
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// ListVotes returns the guest's votes with event and team expanded, oldest first.
func (r *Repository) ListVotes(ctx context.Context, guestID string) ([]models.GuestVote, error) {
	const q = `SELECT v.id, v.guest_id, v.event_id, v.team_id, v.created_at,
			e.id, e.name, t.id, t.name, t.image
		FROM votes v
		JOIN events e ON e.id = v.event_id
		JOIN teams t ON t.id = v.team_id
		WHERE v.guest_id = $1
		ORDER BY v.created_at, v.id`
	rows, err := r.pool.Query(ctx, q, guestID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	list := []models.GuestVote{}
	for rows.Next() {
		var gv models.GuestVote
		if err := rows.Scan(&gv.ID, &gv.GuestID, &gv.EventID, &gv.TeamID, &gv.CreatedAt,
			&gv.Event.ID, &gv.Event.Name, &gv.Team.ID, &gv.Team.Name, &gv.Team.Image); err != nil {
			return nil, err
		}
		list = append(list, gv)
	}
	return list, rows.Err()
}

// EventsScanStatus returns every event once, flagged with whether the guest scanned it.
func (r *Repository) EventsScanStatus(ctx context.Context, guestID string) ([]models.EventScanStatus, error) {
	const q = `SELECT e.id, e.name, e.location, e.image, e.description, e.start_time, e.end_time,
			e.duration, e.event_type, e.event_url, e.created_at, e.updated_at,
			EXISTS (SELECT 1 FROM scans s WHERE s.event_id = e.id AND s.guest_id = $1)
		FROM events e
		ORDER BY e.start_time, e.name`
	rows, err := r.pool.Query(ctx, q, guestID)
	if err != nil {
		return nil, fmt.Errorf("events scan status: %w", err)
	}
	defer rows.Close()

	list := []models.EventScanStatus{}
	for rows.Next() {
		var s models.EventScanStatus
		if err := rows.Scan(&s.ID, &s.Name, &s.Location, &s.Image, &s.Description, &s.StartTime, &s.EndTime,
			&s.Duration, &s.EventType, &s.EventURL, &s.CreatedAt, &s.UpdatedAt, &s.Scanned); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

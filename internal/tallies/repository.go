package tallies

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/designday-guide/backend/internal/models"
)

// Repository computes vote and scan aggregates from the raw records on every call.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tallies repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EventVotes counts votes per team for one event, most votes first.
func (r *Repository) EventVotes(ctx context.Context, eventID uuid.UUID) ([]models.TeamVoteCount, error) {
	const q = `SELECT t.id, t.name, COUNT(*)
		FROM votes v
		JOIN teams t ON t.id = v.team_id
		WHERE v.event_id = $1
		GROUP BY t.id, t.name
		ORDER BY COUNT(*) DESC, t.name`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("event votes: %w", err)
	}
	defer rows.Close()

	list := []models.TeamVoteCount{}
	for rows.Next() {
		var tv models.TeamVoteCount
		if err := rows.Scan(&tv.TeamID, &tv.Team, &tv.VoteCount); err != nil {
			return nil, err
		}
		list = append(list, tv)
	}
	return list, rows.Err()
}

// EventScans counts scans per event, most scanned first. Events without scans are omitted.
func (r *Repository) EventScans(ctx context.Context) ([]models.EventScanCount, error) {
	const q = `SELECT e.id, e.name, COUNT(*)
		FROM scans s
		JOIN events e ON e.id = s.event_id
		GROUP BY e.id, e.name
		ORDER BY COUNT(*) DESC, e.name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("event scans: %w", err)
	}
	defer rows.Close()

	list := []models.EventScanCount{}
	for rows.Next() {
		var sc models.EventScanCount
		if err := rows.Scan(&sc.EventID, &sc.Event, &sc.ScanCount); err != nil {
			return nil, err
		}
		list = append(list, sc)
	}
	return list, rows.Err()
}

// TotalVotes counts every vote across all events.
func (r *Repository) TotalVotes(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("total votes: %w", err)
	}
	return n, nil
}

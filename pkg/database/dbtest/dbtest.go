// Package dbtest provides a migrated PostgreSQL pool for repository tests.
// Tests using it are skipped unless TEST_DATABASE_URL is set.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/pkg/database"
)

// Pool returns a pool on a freshly truncated schema.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE scans, votes, teams, events, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

// SeedEvent inserts an event of the given type and returns its id.
func SeedEvent(t *testing.T, pool *pgxpool.Pool, name string, typ models.EventType) uuid.UUID {
	t.Helper()
	id := uuid.New()
	var endTime *string
	var duration *int
	if typ == models.EventShow {
		d := 30
		duration = &d
	} else {
		e := "2025-04-25T16:00:00Z"
		endTime = &e
	}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO events (id, name, location, image, description, start_time, end_time, duration, event_type, event_url)
		VALUES ($1, $2, 'ECSW', 'https://bucket.s3.us-east-2.amazonaws.com/events/1_a.jpg', 'desc', '2025-04-25T14:00:00Z', $3, $4, $5, $6)`,
		id, name, endTime, duration, string(typ), models.EventURL("utdesignday", id))
	require.NoError(t, err)
	return id
}

// SeedTeam inserts a team under eventID and returns its id.
func SeedTeam(t *testing.T, pool *pgxpool.Pool, eventID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO teams (event_id, name, location, description, image, students, start_time, end_time)
		VALUES ($1, $2, 'Table 4', 'desc', 'https://bucket.s3.us-east-2.amazonaws.com/teams/1_t.png', $3, '14:00', '16:00')
		RETURNING id`,
		eventID, name, []string{"Ada", "Grace"}).Scan(&id)
	require.NoError(t, err)
	return id
}

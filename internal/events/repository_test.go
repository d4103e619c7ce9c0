package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/pkg/database/dbtest"
)

func TestRepository_DeleteCascade(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	e1 := dbtest.SeedEvent(t, pool, "E1", models.EventActivity)
	e2 := dbtest.SeedEvent(t, pool, "E2", models.EventActivity)
	t1 := dbtest.SeedTeam(t, pool, e1, "T1")
	t2 := dbtest.SeedTeam(t, pool, e1, "T2")
	other := dbtest.SeedTeam(t, pool, e2, "Other")

	for _, q := range []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO votes (guest_id, event_id, team_id) VALUES ('g1', $1, $2)`, []any{e1, t1}},
		{`INSERT INTO votes (guest_id, event_id, team_id) VALUES ('g2', $1, $2)`, []any{e1, t2}},
		{`INSERT INTO votes (guest_id, event_id, team_id) VALUES ('g1', $1, $2)`, []any{e2, other}},
		{`INSERT INTO scans (guest_id, event_id) VALUES ('g1', $1)`, []any{e1}},
		{`INSERT INTO scans (guest_id, event_id) VALUES ('g1', $1)`, []any{e2}},
	} {
		_, err := pool.Exec(ctx, q.sql, q.args...)
		require.NoError(t, err)
	}

	images, err := repo.Delete(ctx, e1)
	require.NoError(t, err)
	assert.Len(t, images, 3)

	count := func(q string, args ...any) int {
		var n int
		require.NoError(t, pool.QueryRow(ctx, q, args...).Scan(&n))
		return n
	}
	assert.Zero(t, count(`SELECT COUNT(*) FROM votes WHERE event_id = $1`, e1))
	assert.Zero(t, count(`SELECT COUNT(*) FROM scans WHERE event_id = $1`, e1))
	assert.Zero(t, count(`SELECT COUNT(*) FROM teams WHERE id = ANY($1)`, []uuid.UUID{t1, t2}))
	assert.Equal(t, 1, count(`SELECT COUNT(*) FROM votes`))
	assert.Equal(t, 1, count(`SELECT COUNT(*) FROM scans`))

	_, err = repo.GetByID(ctx, e1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Delete(ctx, e1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_CreateUpdate(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	d := 40
	e := &models.Event{ID: uuid.New(), Name: "Keynote", Location: "Auditorium", Image: "img", Description: "d",
		StartTime: "09:00", Duration: &d, EventType: models.EventShow}
	e.EventURL = models.EventURL("utdesignday", e.ID)
	require.NoError(t, repo.Create(ctx, e))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.EventURL, got.EventURL)
	assert.Nil(t, got.EndTime)

	// The CHECK constraint backs up handler validation.
	bad := &models.Event{ID: uuid.New(), Name: "x", Location: "x", Image: "x", Description: "x", StartTime: "x", EventType: models.EventActivity, EventURL: "x"}
	assert.ErrorIs(t, repo.Create(ctx, bad), ErrInvalidEvent)

	switched := *got
	switched.EventType, switched.Duration = models.EventExhibit, nil
	assert.ErrorIs(t, repo.Update(ctx, &switched), ErrInvalidEvent)

	got.Name = "Opening Keynote"
	require.NoError(t, repo.Update(ctx, got))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Opening Keynote", list[0].Name)

	missing := *got
	missing.ID = uuid.New()
	assert.ErrorIs(t, repo.Update(ctx, &missing), ErrNotFound)
}

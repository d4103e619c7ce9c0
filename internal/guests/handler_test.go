package guests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/internal/realtime"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type voteKey struct {
	guest string
	event uuid.UUID
}

// memStore enforces the same uniqueness rules as the SQL constraints, atomically.
type memStore struct {
	mu       sync.Mutex
	teams    map[uuid.UUID]uuid.UUID // team -> event
	events   []models.Event
	votes    map[voteKey]*models.Vote
	scans    map[voteKey]*models.Scan
	order    []voteKey
	nextID   int64
	skipFast bool // hide existing votes from HasVoted to force the constraint path
}

func newMemStore() *memStore {
	return &memStore{
		teams: make(map[uuid.UUID]uuid.UUID),
		votes: make(map[voteKey]*models.Vote),
		scans: make(map[voteKey]*models.Scan),
	}
}

func (m *memStore) addEvent(name string) uuid.UUID {
	id := uuid.New()
	m.events = append(m.events, models.Event{ID: id, Name: name, EventType: models.EventActivity})
	return id
}

func (m *memStore) addTeam(eventID uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.teams[id] = eventID
	return id
}

func (m *memStore) hasEvent(id uuid.UUID) bool {
	for _, e := range m.events {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (m *memStore) HasVoted(_ context.Context, guestID string, eventID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipFast {
		return false, nil
	}
	_, ok := m.votes[voteKey{guestID, eventID}]
	return ok, nil
}

func (m *memStore) CreateVote(_ context.Context, guestID string, eventID, teamID uuid.UUID) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.teams[teamID]; !ok || ev != eventID {
		return nil, ErrUnknownReference
	}
	k := voteKey{guestID, eventID}
	if _, ok := m.votes[k]; ok {
		return nil, ErrDuplicateVote
	}
	m.nextID++
	v := &models.Vote{ID: m.nextID, GuestID: guestID, EventID: eventID, TeamID: teamID, CreatedAt: time.Now()}
	m.votes[k] = v
	m.order = append(m.order, k)
	return v, nil
}

func (m *memStore) CreateScan(_ context.Context, guestID string, eventID uuid.UUID) (*models.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasEvent(eventID) {
		return nil, ErrUnknownReference
	}
	k := voteKey{guestID, eventID}
	if _, ok := m.scans[k]; ok {
		return nil, ErrAlreadyScanned
	}
	m.nextID++
	s := &models.Scan{ID: m.nextID, GuestID: guestID, EventID: eventID, CreatedAt: time.Now()}
	m.scans[k] = s
	return s, nil
}

func (m *memStore) ListVotes(_ context.Context, guestID string) ([]models.GuestVote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.GuestVote{}
	for _, k := range m.order {
		if k.guest == guestID {
			v := m.votes[k]
			list = append(list, models.GuestVote{Vote: *v, Event: models.EventRef{ID: v.EventID}, Team: models.TeamRef{ID: v.TeamID}})
		}
	}
	return list, nil
}

func (m *memStore) EventsScanStatus(_ context.Context, guestID string) ([]models.EventScanStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.EventScanStatus{}
	for _, e := range m.events {
		_, scanned := m.scans[voteKey{guestID, e.ID}]
		list = append(list, models.EventScanStatus{Event: e, Scanned: scanned})
	}
	return list, nil
}

type recordingHub struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingHub) Publish(event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingHub) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func newRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.POST("/guests/:guestId/votes", h.Vote)
	r.GET("/guests/:guestId/votes", h.Votes)
	r.POST("/guests/:guestId/scans", h.Scan)
	r.GET("/guests/:guestId/events-scans", h.EventsScans)
	return r
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func vote(eventID, teamID uuid.UUID) VoteRequest {
	return VoteRequest{EventID: eventID.String(), TeamID: teamID.String()}
}

func TestVote_ScenarioA(t *testing.T) {
	store := newMemStore()
	e1, e2 := store.addEvent("E1"), store.addEvent("E2")
	t1, t2 := store.addTeam(e1), store.addTeam(e1)
	t1e2 := store.addTeam(e2)
	hub := &recordingHub{}
	r := newRouter(NewHandler(store, nil, hub, nil))

	w := postJSON(r, "/guests/G1/votes", vote(e1, t1))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Message string      `json:"message"`
		Vote    models.Vote `json:"vote"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, "G1", created.Vote.GuestID)
	assert.Equal(t, t1, created.Vote.TeamID)

	w = postJSON(r, "/guests/G1/votes", vote(e1, t2))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrDuplicateVote.Error(), decode(t, w).Error)

	w = postJSON(r, "/guests/G1/votes", vote(e2, t1e2))
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, 2, hub.count(realtime.EventGuestVoted))
}

func TestVote_ConstraintPathMapsToDuplicate(t *testing.T) {
	store := newMemStore()
	e1 := store.addEvent("E1")
	t1 := store.addTeam(e1)
	r := newRouter(NewHandler(store, nil, &recordingHub{}, nil))

	require.Equal(t, http.StatusCreated, postJSON(r, "/guests/G1/votes", vote(e1, t1)).Code)
	store.skipFast = true
	w := postJSON(r, "/guests/G1/votes", vote(e1, t1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrDuplicateVote.Error(), decode(t, w).Error)
}

func TestVote_ConcurrentDuplicatesYieldOneSuccess(t *testing.T) {
	store := newMemStore()
	store.skipFast = true
	e1 := store.addEvent("E1")
	t1 := store.addTeam(e1)
	hub := &recordingHub{}
	r := newRouter(NewHandler(store, nil, hub, nil))

	const n = 20
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- postJSON(r, "/guests/racer/votes", vote(e1, t1)).Code
		}()
	}
	wg.Wait()
	close(codes)

	created, dup := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			dup++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, dup)
	assert.Equal(t, 1, hub.count(realtime.EventGuestVoted))
}

func TestVote_Validation(t *testing.T) {
	store := newMemStore()
	e1 := store.addEvent("E1")
	t1 := store.addTeam(e1)
	other := store.addTeam(store.addEvent("E2"))
	r := newRouter(NewHandler(store, nil, &recordingHub{}, nil))

	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/guests/G1/votes", map[string]string{"eventId": e1.String()}).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/guests/G1/votes", VoteRequest{EventID: "nope", TeamID: t1.String()}).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/guests/"+strings.Repeat("g", MaxGuestIDLength+1)+"/votes", vote(e1, t1)).Code)
	// Team from another event.
	assert.Equal(t, http.StatusNotFound, postJSON(r, "/guests/G1/votes", vote(e1, other)).Code)
	assert.Equal(t, http.StatusNotFound, postJSON(r, "/guests/G1/votes", vote(uuid.New(), t1)).Code)
}

func TestScan_ScenarioB(t *testing.T) {
	store := newMemStore()
	e1, e2 := store.addEvent("E1"), store.addEvent("E2")
	hub := &recordingHub{}
	r := newRouter(NewHandler(store, nil, hub, nil))

	assert.Equal(t, http.StatusCreated, postJSON(r, "/guests/G2/scans", ScanRequest{EventID: e1.String()}).Code)

	w := postJSON(r, "/guests/G2/scans", ScanRequest{EventID: e1.String()})
	assert.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Equal(t, ErrAlreadyScanned.Error(), env.Error)
	assert.JSONEq(t, `{"alreadyScanned":true}`, string(env.Data))

	assert.Equal(t, http.StatusCreated, postJSON(r, "/guests/G2/scans", ScanRequest{EventID: e2.String()}).Code)
	assert.Equal(t, http.StatusNotFound, postJSON(r, "/guests/G2/scans", ScanRequest{EventID: uuid.NewString()}).Code)
	assert.Equal(t, 2, hub.count(realtime.EventGuestScanned))
}

func TestScan_ConcurrentDuplicatesYieldOneSuccess(t *testing.T) {
	store := newMemStore()
	e1 := store.addEvent("E1")
	r := newRouter(NewHandler(store, nil, &recordingHub{}, nil))

	const n = 20
	var created, conflicts int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := postJSON(r, "/guests/racer/scans", ScanRequest{EventID: e1.String()}).Code
			mu.Lock()
			defer mu.Unlock()
			if code == http.StatusCreated {
				created++
			} else if code == http.StatusConflict {
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}

type fakeTeamIndex map[uuid.UUID][]models.Team

func (f fakeTeamIndex) ListByEvents(_ context.Context, _ []uuid.UUID) (map[uuid.UUID][]models.Team, error) {
	return f, nil
}

func TestEventsScans_EveryEventOnce(t *testing.T) {
	store := newMemStore()
	e1, e2, e3 := store.addEvent("E1"), store.addEvent("E2"), store.addEvent("E3")
	teams := fakeTeamIndex{e1: {{ID: uuid.New(), EventID: e1, Name: "T1"}}}
	r := newRouter(NewHandler(store, teams, &recordingHub{}, nil))

	require.Equal(t, http.StatusCreated, postJSON(r, "/guests/G3/scans", ScanRequest{EventID: e2.String()}).Code)

	w := get(r, "/guests/G3/events-scans")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Events []models.EventScanStatus `json:"events"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
	require.Len(t, body.Events, 3)

	scanned := map[uuid.UUID]bool{}
	for _, e := range body.Events {
		scanned[e.ID] = e.Scanned
		assert.NotNil(t, e.Teams)
	}
	assert.Equal(t, map[uuid.UUID]bool{e1: false, e2: true, e3: false}, scanned)
	assert.Len(t, body.Events[0].Teams, 1)
}

func TestVotes_InsertionOrder(t *testing.T) {
	store := newMemStore()
	e1, e2 := store.addEvent("E1"), store.addEvent("E2")
	t1, t2 := store.addTeam(e1), store.addTeam(e2)
	r := newRouter(NewHandler(store, nil, &recordingHub{}, nil))

	w := get(r, "/guests/G4/votes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"votes":[]}`, string(decode(t, w).Data))

	require.Equal(t, http.StatusCreated, postJSON(r, "/guests/G4/votes", vote(e2, t2)).Code)
	require.Equal(t, http.StatusCreated, postJSON(r, "/guests/G4/votes", vote(e1, t1)).Code)

	var body struct {
		Votes []models.GuestVote `json:"votes"`
	}
	require.NoError(t, json.Unmarshal(decode(t, get(r, "/guests/G4/votes")).Data, &body))
	require.Len(t, body.Votes, 2)
	assert.Equal(t, e2, body.Votes[0].Event.ID)
	assert.Equal(t, t1, body.Votes[1].Team.ID)
}

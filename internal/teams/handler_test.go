package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designday-guide/backend/internal/models"
	"github.com/designday-guide/backend/internal/realtime"
	"github.com/designday-guide/backend/internal/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]models.EventType
	teams  map[uuid.UUID]*models.Team
}

func newMemStore() *memStore {
	return &memStore{events: map[uuid.UUID]models.EventType{}, teams: map[uuid.UUID]*models.Team{}}
}

func (m *memStore) Random(_ context.Context, count int) ([]models.Team, error) {
	list := []models.Team{}
	for _, t := range m.teams {
		if len(list) == count {
			break
		}
		list = append(list, *t)
	}
	return list, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Team, error) {
	if t, ok := m.teams[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) GetInEvent(ctx context.Context, eventID, teamID uuid.UUID) (*models.Team, error) {
	t, err := m.GetByID(ctx, teamID)
	if err != nil || t.EventID != eventID {
		return nil, ErrNotFound
	}
	return t, nil
}

func (m *memStore) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.Team, error) {
	list := []models.Team{}
	for _, t := range m.teams {
		if t.EventID == eventID {
			list = append(list, *t)
		}
	}
	return list, nil
}

func (m *memStore) EventType(_ context.Context, eventID uuid.UUID) (models.EventType, error) {
	typ, ok := m.events[eventID]
	if !ok {
		return "", ErrEventNotFound
	}
	return typ, nil
}

func (m *memStore) Create(_ context.Context, t *models.Team) error {
	t.ID = uuid.New()
	cp := *t
	m.teams[t.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, t *models.Team) error {
	if _, ok := m.teams[t.ID]; !ok {
		return ErrNotFound
	}
	cp := *t
	m.teams[t.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, eventID, teamID uuid.UUID) (string, error) {
	t, ok := m.teams[teamID]
	if !ok || t.EventID != eventID {
		return "", ErrNotFound
	}
	delete(m.teams, teamID)
	return t.Image, nil
}

type fakeUploader struct{ n int }

func (f *fakeUploader) UploadImage(_ context.Context, folder, filename, _ string, body io.Reader, _ int64) (string, error) {
	_, _ = io.Copy(io.Discard, body)
	f.n++
	return "https://bucket.s3.us-east-2.amazonaws.com/" + folder + "/" + filename, nil
}

type fakeReleaser struct{ released map[string][]string }

func (f *fakeReleaser) Release(_ context.Context, reason string, urls ...string) {
	if f.released == nil {
		f.released = map[string][]string{}
	}
	f.released[reason] = append(f.released[reason], urls...)
}

type recordingHub struct{ events []string }

func (r *recordingHub) Publish(event string, _ interface{}) { r.events = append(r.events, event) }

type fixture struct {
	store    *memStore
	uploader *fakeUploader
	releaser *fakeReleaser
	hub      *recordingHub
	router   *gin.Engine
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), uploader: &fakeUploader{}, releaser: &fakeReleaser{}, hub: &recordingHub{}}
	h := NewHandler(f.store, f.uploader, f.releaser, f.hub, nil)
	r := gin.New()
	r.GET("/teams/random", h.Random)
	r.GET("/teams/:teamId", h.Get)
	r.GET("/events/:eventId/teams", h.ListForEvent)
	r.GET("/events/:eventId/teams/:teamId", h.GetForEvent)
	r.POST("/events/:eventId/teams", h.Create)
	r.PUT("/events/:eventId/teams/:teamId", h.Edit)
	r.DELETE("/events/:eventId/teams/:teamId", h.Delete)
	f.router = r
	return f
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, image string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+image+`"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("png"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

var teamFields = map[string]string{
	"name":        "Team Rocket",
	"location":    "ECSW 2.412",
	"description": "Autonomous rover",
	"startTime":   "13:00",
	"endTime":     "15:00",
	"students":    `["Ada","Grace"]`,
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error
}

func TestCreate_ScenarioD_ShowEventRejected(t *testing.T) {
	f := newFixture()
	show := uuid.New()
	f.store.events[show] = models.EventShow

	w := f.do(multipartRequest(t, http.MethodPost, "/events/"+show.String()+"/teams", teamFields, "t.png"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "Activity events")
	assert.Zero(t, f.uploader.n)
	assert.Empty(t, f.store.teams)
}

func TestCreate_ActivityEvent(t *testing.T) {
	f := newFixture()
	ev := uuid.New()
	f.store.events[ev] = models.EventActivity

	w := f.do(multipartRequest(t, http.MethodPost, "/events/"+ev.String()+"/teams", teamFields, "t.png"))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data struct {
			Team models.Team `json:"team"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Ada", "Grace"}, body.Data.Team.Students)
	assert.Equal(t, "https://bucket.s3.us-east-2.amazonaws.com/teams/t.png", body.Data.Team.Image)
	assert.Equal(t, []string{realtime.EventTeamCreated}, f.hub.events)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	ev := uuid.New()
	f.store.events[ev] = models.EventActivity

	assert.Equal(t, http.StatusNotFound, f.do(multipartRequest(t, http.MethodPost, "/events/"+uuid.NewString()+"/teams", teamFields, "t.png")).Code)

	w := f.do(multipartRequest(t, http.MethodPost, "/events/"+ev.String()+"/teams", teamFields, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "image file is required", errorOf(t, w))

	missing := map[string]string{"name": "x"}
	assert.Equal(t, http.StatusBadRequest, f.do(multipartRequest(t, http.MethodPost, "/events/"+ev.String()+"/teams", missing, "t.png")).Code)
}

func TestEdit_ReplacesImageAndReleasesOld(t *testing.T) {
	f := newFixture()
	ev := uuid.New()
	id := uuid.New()
	f.store.teams[id] = &models.Team{ID: id, EventID: ev, Name: "Old", Location: "L", Description: "D",
		StartTime: "1", EndTime: "2", Image: "https://bucket.s3.us-east-2.amazonaws.com/teams/old.png", Students: []string{"A"}}

	w := f.do(multipartRequest(t, http.MethodPut, "/events/"+ev.String()+"/teams/"+id.String(), map[string]string{"name": "New"}, "new.png"))
	require.Equal(t, http.StatusOK, w.Code)

	stored := f.store.teams[id]
	assert.Equal(t, "New", stored.Name)
	assert.Equal(t, "L", stored.Location)
	assert.Equal(t, []string{"A"}, stored.Students)
	assert.Equal(t, "https://bucket.s3.us-east-2.amazonaws.com/teams/new.png", stored.Image)
	assert.Equal(t, []string{"https://bucket.s3.us-east-2.amazonaws.com/teams/old.png"}, f.releaser.released[worker.ReasonImageReplaced])
	assert.Equal(t, []string{realtime.EventTeamUpdated}, f.hub.events)
}

func TestEdit_WrongEvent(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.store.teams[id] = &models.Team{ID: id, EventID: uuid.New()}

	w := f.do(multipartRequest(t, http.MethodPut, "/events/"+uuid.NewString()+"/teams/"+id.String(), map[string]string{"name": "x"}, ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ev, id := uuid.New(), uuid.New()
	f.store.teams[id] = &models.Team{ID: id, EventID: ev, Image: "https://bucket.s3.us-east-2.amazonaws.com/teams/a.png"}

	w := f.do(httptest.NewRequest(http.MethodDelete, "/events/"+ev.String()+"/teams/"+id.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.store.teams)
	assert.Equal(t, []string{"https://bucket.s3.us-east-2.amazonaws.com/teams/a.png"}, f.releaser.released[worker.ReasonTeamDeleted])
	assert.Equal(t, []string{realtime.EventTeamDeleted}, f.hub.events)

	w = f.do(httptest.NewRequest(http.MethodDelete, "/events/"+ev.String()+"/teams/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReads(t *testing.T) {
	f := newFixture()
	ev, id := uuid.New(), uuid.New()
	f.store.teams[id] = &models.Team{ID: id, EventID: ev, Name: "T"}

	assert.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/teams/"+id.String(), nil)).Code)
	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodGet, "/teams/"+uuid.NewString(), nil)).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(httptest.NewRequest(http.MethodGet, "/teams/nope", nil)).Code)
	assert.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/events/"+ev.String()+"/teams/"+id.String(), nil)).Code)
	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodGet, "/events/"+uuid.NewString()+"/teams/"+id.String(), nil)).Code)

	w := f.do(httptest.NewRequest(http.MethodGet, "/teams/random?count=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"teams":[`)
}

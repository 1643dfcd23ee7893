package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"EventSync/internal/model"
	"EventSync/internal/repository"
	"EventSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeReader struct {
	filter repository.EventFilter
	limit  int
	offset int
	events map[string]*model.CanonicalEvent
	err    error
}

func (f *fakeReader) ListEvents(_ context.Context, filter repository.EventFilter, limit, offset int) ([]*model.CanonicalEvent, error) {
	f.filter, f.limit, f.offset = filter, limit, offset
	if f.err != nil {
		return nil, f.err
	}
	out := []*model.CanonicalEvent{}
	for _, e := range f.events {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeReader) GetEventByID(_ context.Context, id string, includeInactive bool) (*model.CanonicalEvent, error) {
	e, ok := f.events[id]
	if !ok || (!e.IsActive && !includeInactive) {
		return nil, nil
	}
	return e, nil
}

type fakeRunner struct {
	report *service.RunReport
	runErr error
	swept  int64
}

func (f *fakeRunner) Run(context.Context) (*service.RunReport, error) { return f.report, f.runErr }
func (f *fakeRunner) Sweep(context.Context) (int64, error)            { return f.swept, nil }

func newTestRouter(reader EventReader, runner IngestionRunner) *gin.Engine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRouter(gin.TestMode, NewEventHandler(reader, logger), NewSyncHandler(runner, logger), http.NotFoundHandler())
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestListEvents_ParsesFilter(t *testing.T) {
	reader := &fakeReader{events: map[string]*model.CanonicalEvent{
		"e1": {ID: "e1", Title: "Test Show", IsActive: true},
	}}
	r := newTestRouter(reader, &fakeRunner{})

	q := url.Values{}
	q.Set("category", "Festival")
	q.Set("city", "台北")
	q.Set("start_date", "2026-11-01")
	q.Set("end_date", "2026-11-30T23:59:59+08:00")
	q.Set("limit", "10")
	q.Set("offset", "20")
	q.Set("include_inactive", "true")
	w := do(r, http.MethodGet, "/api/events?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, model.CategoryFestival, reader.filter.Category)
	assert.Equal(t, "台北", reader.filter.City)
	require.NotNil(t, reader.filter.StartDate)
	assert.True(t, reader.filter.StartDate.Equal(time.Date(2026, 10, 31, 16, 0, 0, 0, time.UTC)))
	require.NotNil(t, reader.filter.EndDate)
	assert.True(t, reader.filter.IncludeInactive)
	assert.Equal(t, 10, reader.limit)
	assert.Equal(t, 20, reader.offset)

	var body struct {
		Events []model.CanonicalEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "Test Show", body.Events[0].Title)
}

func TestListEvents_DateOnlyEndCoversWholeDay(t *testing.T) {
	reader := &fakeReader{}
	r := newTestRouter(reader, &fakeRunner{})

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/events?end_date=2026-11-30").Code)
	require.NotNil(t, reader.filter.EndDate)
	lastMoment := time.Date(2026, 11, 30, 15, 59, 59, 999999999, time.UTC)
	assert.True(t, reader.filter.EndDate.Equal(lastMoment), "end=%s", reader.filter.EndDate)
}

func TestListEvents_BadParams(t *testing.T) {
	r := newTestRouter(&fakeReader{}, &fakeRunner{})

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/events?category=opera").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/events?start_date=tomorrow").Code)
}

func TestListEvents_StoreError(t *testing.T) {
	r := newTestRouter(&fakeReader{err: errors.New("db down")}, &fakeRunner{})
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/api/events").Code)
}

func TestGetEvent(t *testing.T) {
	reader := &fakeReader{events: map[string]*model.CanonicalEvent{
		"live": {ID: "live", IsActive: true},
		"gone": {ID: "gone", IsActive: false},
	}}
	r := newTestRouter(reader, &fakeRunner{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/events/live").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/events/missing").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/events/gone").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/events/gone?include_inactive=true").Code)
}

func TestGetEvent_CoverImage(t *testing.T) {
	ev := &model.CanonicalEvent{ID: "poster", Title: "Poster Show", IsActive: true}
	ev.Images = datatypes.NewJSONType([]model.Image{
		{URL: "https://img/gallery.jpg", Type: model.ImageTypeGallery},
		{URL: "https://img/cover.jpg", Type: model.ImageTypeCover},
	})
	r := newTestRouter(&fakeReader{events: map[string]*model.CanonicalEvent{"poster": ev}}, &fakeRunner{})

	w := do(r, http.MethodGet, "/api/events/poster")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		ID         string       `json:"id"`
		Title      string       `json:"title"`
		CoverImage *model.Image `json:"coverImage"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "poster", body.ID)
	assert.Equal(t, "Poster Show", body.Title)
	require.NotNil(t, body.CoverImage)
	assert.Equal(t, "https://img/cover.jpg", body.CoverImage.URL)

	w = do(r, http.MethodGet, "/api/events/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncHandlers(t *testing.T) {
	runner := &fakeRunner{
		report: &service.RunReport{Total: model.UpsertResult{Inserted: 2, Updated: 1}},
		swept:  3,
	}
	r := newTestRouter(&fakeReader{}, runner)

	w := do(r, http.MethodPost, "/sync")
	require.Equal(t, http.StatusOK, w.Code)
	var report service.RunReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Total.Inserted)

	w = do(r, http.MethodPost, "/sync/sweep")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deactivated":3}`, w.Body.String())

	runner.runErr = service.ErrRunInProgress
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/sync").Code)
}

package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forktv/forkd/internal/api"
	"github.com/forktv/forkd/internal/cleaner"
	"github.com/forktv/forkd/internal/config"
	"github.com/forktv/forkd/internal/recdb"
	"github.com/forktv/forkd/internal/recdb/recdbtest"
)

func newTestServer(t *testing.T, opts ...api.ServerOption) (*httptest.Server, *recdb.Store) {
	t.Helper()
	store, err := recdb.NewStore(filepath.Join(t.TempDir(), "host.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	recdbtest.CreateHostSchema(t, store.DB)

	cfg := config.Config{
		Listen:        ":0",
		DBPath:        "unused",
		ThumbnailsDir: t.TempDir(),
	}
	srv := api.New(cfg, store, cleaner.New(store, cfg.ThumbnailsDir), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func localDay(hour int) time.Time {
	return time.Date(2025, 10, 20, hour, 0, 0, 0, time.Local)
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestTimetableEndpoint(t *testing.T) {
	ts, store := newTestServer(t)
	recdbtest.InsertChannel(t, store.DB, recdbtest.ChannelSpec{ID: "gr011", Name: "Test TV"})
	recdbtest.InsertProgram(t, store.DB, recdbtest.ProgramSpec{
		ID:           1,
		ChannelID:    recdbtest.Ptr("gr011"),
		Title:        "Evening News",
		StartTime:    localDay(21),
		EndTime:      localDay(22),
		CommentCount: recdbtest.Ptr(int64(321)),
	})
	// Outside the broadcast day of 2025-10-20.
	recdbtest.InsertProgram(t, store.DB, recdbtest.ProgramSpec{
		ID: 2, StartTime: localDay(1), EndTime: localDay(2),
	})

	var body struct {
		Total            int                      `json:"total"`
		RecordedPrograms []*recdb.RecordedProgram `json:"recorded_programs"`
	}
	code := getJSON(t, ts.URL+"/api/fork/video/timetable?search_date=2025-10-20", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.RecordedPrograms, 1)
	p := body.RecordedPrograms[0]
	assert.Equal(t, "Evening News", p.Title)
	require.NotNil(t, p.Channel)
	assert.Equal(t, "Test TV", p.Channel.Name)
	require.NotNil(t, p.RecordedVideo.ForkRecordedVideo)
	assert.Equal(t, int64(321), p.RecordedVideo.ForkRecordedVideo.CommentCount)
}

func TestTimetableEndpointBadDate(t *testing.T) {
	ts, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/fork/video/timetable", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/fork/video/timetable?search_date=20-10-2025", nil))
}

func TestTimetableEndpointEmptyDay(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Total            int               `json:"total"`
		RecordedPrograms []json.RawMessage `json:"recorded_programs"`
	}
	code := getJSON(t, ts.URL+"/api/fork/video/timetable?search_date=2025-10-20", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Zero(t, body.Total)
	assert.NotNil(t, body.RecordedPrograms, "empty day is an empty list, not null")
}

func TestNextProgramEndpoint(t *testing.T) {
	ts, store := newTestServer(t)
	recdbtest.InsertChannel(t, store.DB, recdbtest.ChannelSpec{ID: "ch1"})
	recdbtest.InsertProgram(t, store.DB, recdbtest.ProgramSpec{
		ID: 1, ChannelID: recdbtest.Ptr("ch1"), StartTime: localDay(9), EndTime: localDay(10),
	})
	recdbtest.InsertProgram(t, store.DB, recdbtest.ProgramSpec{
		ID: 2, ChannelID: recdbtest.Ptr("ch1"), Title: "Follow-up", StartTime: localDay(10), EndTime: localDay(11),
	})

	var body struct {
		NextProgram *recdb.RecordedProgram `json:"next_program"`
	}
	code := getJSON(t, ts.URL+"/api/fork/videos/1/next", &body)

	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, body.NextProgram)
	assert.Equal(t, int64(2), body.NextProgram.ID)
	assert.Equal(t, "Follow-up", body.NextProgram.Title)
}

func TestNextProgramEndpointNoSuccessor(t *testing.T) {
	ts, store := newTestServer(t)
	recdbtest.InsertChannel(t, store.DB, recdbtest.ChannelSpec{ID: "ch1"})
	recdbtest.InsertProgram(t, store.DB, recdbtest.ProgramSpec{
		ID: 1, ChannelID: recdbtest.Ptr("ch1"), StartTime: localDay(9), EndTime: localDay(10),
	})

	var body struct {
		NextProgram *recdb.RecordedProgram `json:"next_program"`
	}
	code := getJSON(t, ts.URL+"/api/fork/videos/1/next", &body)

	assert.Equal(t, http.StatusOK, code, "no successor is not an error")
	assert.Nil(t, body.NextProgram)
}

func TestNextProgramEndpointNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	code := getJSON(t, ts.URL+"/api/fork/videos/999/next", nil)
	assert.Equal(t, http.StatusNotFound, code, "unknown id is 404, not a null successor")

	code = getJSON(t, ts.URL+"/api/fork/videos/abc/next", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCleanDatabaseEndpoint(t *testing.T) {
	type call struct{ folderPath string }
	calls := make(chan call, 1)
	ts, _ := newTestServer(t, api.WithCleanupRunner(func(_ context.Context, folderPath string) {
		calls <- call{folderPath: folderPath}
	}))

	resp, err := http.Post(ts.URL+"/api/fork/clean/database", "application/json",
		strings.NewReader(`{"folder_path":"/rec/old"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ack string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.Equal(t, "OK", ack, "caller gets the acknowledgement immediately")

	select {
	case c := <-calls:
		assert.Equal(t, "/rec/old", c.folderPath)
	case <-time.After(2 * time.Second):
		t.Fatal("background cleanup was never started")
	}
}

func TestCleanDatabaseEndpointBadBody(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/fork/clean/database", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/fork/clean/database", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", nil))
}

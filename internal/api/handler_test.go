package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benny59/architetti/internal/api"
	"github.com/benny59/architetti/internal/db"
	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/metrics"
	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/scraper"
	"github.com/benny59/architetti/internal/store"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	st := store.NewSQLStore(conn)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.EnsurePartitions(ctx, []string{"demanio", "aria"}))
	for _, title := range []string{"uno", "due", "tre"} {
		require.NoError(t, st.Insert(ctx, "demanio", model.Record{
			Title: title, Date: "d", Category: "c", Summary: "s", URL: model.URLNotAvailable, Checksum: title,
		}))
	}

	regs := []scraper.Registration{
		{Nickname: "demanio", Enabled: true, Seeds: []string{"https://www.agenziademanio.it/"}},
		{Nickname: "aria", Enabled: false, Seeds: []string{"https://sintel.example/"}},
	}
	h := api.NewHandler(st, regs, metrics.New().Handler(), "test", logger.NewNop())

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListSources(t *testing.T) {
	srv := newServer(t)
	var sources []api.Source
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/sources", &sources))

	require.Len(t, sources, 2)
	assert.Equal(t, "demanio", sources[0].Nickname)
	assert.True(t, sources[0].Enabled)
	assert.Equal(t, 3, sources[0].Stored)
	assert.Equal(t, "aria", sources[1].Nickname)
	assert.Zero(t, sources[1].Stored)
}

func TestListRecords(t *testing.T) {
	srv := newServer(t)

	var resp api.RecordsResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/sources/demanio/records?limit=2", &resp))
	assert.Equal(t, "demanio", resp.Source)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "tre", resp.Records[0].Title)
}

func TestListRecords_Errors(t *testing.T) {
	srv := newServer(t)

	cases := map[string]int{
		"/sources/unknown/records":         http.StatusNotFound,
		"/sources/demanio/records?limit=0": http.StatusBadRequest,
		"/sources/demanio/records?limit=x": http.StatusBadRequest,
		"/sources/demanio/other":           http.StatusNotFound,
	}
	for path, want := range cases {
		var body map[string]string
		assert.Equal(t, want, getJSON(t, srv.URL+path, &body), path)
		assert.NotEmpty(t, body["error"], path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Post(srv.URL+"/sources", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

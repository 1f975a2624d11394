package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chhz0/polytasks/core"
	"github.com/chhz0/polytasks/storage"
	"github.com/chhz0/polytasks/transport"
	"github.com/chhz0/polytasks/types"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *core.Manager, storage.Storage) {
	t.Helper()

	store := storage.NewMemoryStorage()
	m := core.NewManager(context.Background(), core.NewAdapter(store))
	srv, err := NewServer(Config{Manager: m})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, m, store
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestNewServerRequiresManager(t *testing.T) {
	t.Parallel()

	_, err := NewServer(Config{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts, _, _ := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTaskEndpoints(t *testing.T) {
	t.Parallel()

	ts, m, _ := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/tasks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[listResponse](t, resp)
	require.Empty(t, list.Tasks)
	require.NotNil(t, list.Tasks)

	resp = do(t, http.MethodPost, ts.URL+"/tasks", `{"text":"  Buy milk "}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[types.Task](t, resp)
	require.Equal(t, "Buy milk", created.Text)
	require.False(t, created.Completed)

	resp = do(t, http.MethodPatch, ts.URL+"/tasks/"+created.ID, `{"completed":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[types.Task](t, resp)
	require.True(t, updated.Completed)
	require.Equal(t, 0, m.RemainingCount())

	resp = do(t, http.MethodGet, ts.URL+"/tasks", "")
	list = decode[listResponse](t, resp)
	require.Equal(t, []types.Task{updated}, list.Tasks)
	require.Equal(t, 0, list.Remaining)

	resp = do(t, http.MethodDelete, ts.URL+"/tasks/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, m.GetTasks())
}

func TestTaskEndpointSentinels(t *testing.T) {
	t.Parallel()

	ts, _, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/tasks", `{"text":"   "}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/tasks", `not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPatch, ts.URL+"/tasks/missing", `{"completed":true}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPatch, ts.URL+"/tasks/missing", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/tasks/missing", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReloadPicksUpExternalWrites(t *testing.T) {
	t.Parallel()

	ts, m, store := newTestServer(t)
	other := core.NewManager(context.Background(), core.NewAdapter(store))
	_, _, err := other.AddTask(context.Background(), "from elsewhere")
	require.NoError(t, err)
	require.Empty(t, m.GetTasks())

	resp := do(t, http.MethodPost, ts.URL+"/tasks/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[listResponse](t, resp)
	require.Len(t, list.Tasks, 1)
	require.Equal(t, 1, list.Remaining)
}

func TestExportEndpoint(t *testing.T) {
	t.Parallel()

	ts, m, _ := newTestServer(t)
	_, _, err := m.AddTask(context.Background(), "export me")
	require.NoError(t, err)

	resp := do(t, http.MethodGet, ts.URL+"/tasks/export?format=csv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "export me,false")

	resp = do(t, http.MethodGet, ts.URL+"/tasks/export?format=xml", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartRunsSyncerAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStorage()
	bus := transport.NewLocal()
	defer bus.Close()

	m := core.NewManager(context.Background(),
		core.NewAdapter(storage.Notifying(store, bus, "server", nil)), core.WithOrigin("server"))
	reloaded := make(chan struct{}, 1)
	syncer := core.NewSyncer(m, bus, func([]types.Task) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	srv, err := NewServer(Config{HTTPAddr: "127.0.0.1:0", Manager: m, Syncer: syncer, ShutdownTimeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	writer := core.NewManager(context.Background(),
		core.NewAdapter(storage.Notifying(store, bus, "cli", nil)), core.WithOrigin("cli"))
	require.Eventually(t, func() bool {
		if _, _, err := writer.AddTask(context.Background(), "ping"); err != nil {
			return false
		}
		select {
		case <-reloaded:
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
	require.NotEmpty(t, m.GetTasks())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsebcm/calendar-sync/internal/model"
)

// upstream serves WHO at /who and UN at /un and counts requests.
type upstream struct {
	srv  *httptest.Server
	hits atomic.Int32
	fail bool

	mu    sync.Mutex
	years []string
}

func newUpstream(t *testing.T, fail bool) *upstream {
	t.Helper()
	u := &upstream{fail: fail}
	mux := http.NewServeMux()
	mux.HandleFunc("/who", func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.mu.Lock()
		u.years = append(u.years, r.URL.Query().Get("year"))
		u.mu.Unlock()
		if u.fail {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `[{"title": "World Health Day", "date": "2025-04-07"}]`)
	})
	mux.HandleFunc("/un", func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		if u.fail {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data": [{"name": "World Oceans Day", "date": "2025-06-08", "theme": "ocean conservation"}]}`)
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func writeConfig(t *testing.T, baseURL, cachePath string) string {
	t.Helper()
	cfg := fmt.Sprintf(`sources:
  - kind: WHO
    base_url: %[1]s
    endpoint: /who
  - kind: UN
    base_url: %[1]s
    endpoint: /un
cache:
  backend: sqlite
  sqlite_path: %[2]s
sync:
  year: 2025
logging:
  level: error
`, baseURL, cachePath)

	path := filepath.Join(t.TempDir(), "hsebcm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSyncCommand_JSON(t *testing.T) {
	up := newUpstream(t, false)
	cfgPath := writeConfig(t, up.srv.URL, filepath.Join(t.TempDir(), "cache.db"))

	out, err := execute(t, "--config", cfgPath, "--format", "json", "sync")
	require.NoError(t, err)

	var result model.SyncResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Events, 2)
	assert.Equal(t, "World Health Day", result.Events[0].Title)
	assert.Equal(t, model.SourceWHO, result.Events[0].SourceID)
	assert.Equal(t, 4, result.Events[0].Month)
	assert.Equal(t, "World Oceans Day", result.Events[1].Title)
	assert.Equal(t, model.CategoryEnvironment, result.Events[1].Category)
	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, []string{"2025"}, up.years)
}

func TestSyncCommand_Text(t *testing.T) {
	up := newUpstream(t, false)
	cfgPath := writeConfig(t, up.srv.URL, filepath.Join(t.TempDir(), "cache.db"))

	out, err := execute(t, "--config", cfgPath, "sync")
	require.NoError(t, err)

	assert.Contains(t, out, "sync ok: 2 events, 0 failed sources")
	assert.Contains(t, out, "2025-04-07")
	assert.Contains(t, out, "World Oceans Day")
}

func TestSyncCommand_AllSourcesFail(t *testing.T) {
	up := newUpstream(t, true)
	cfgPath := writeConfig(t, up.srv.URL, filepath.Join(t.TempDir(), "cache.db"))

	out, err := execute(t, "--config", cfgPath, "sync")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "all 2 sources failed")
	assert.Contains(t, out, "sync failed: 0 events, 2 failed sources")
}

func TestSyncCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "sync")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSyncCommand_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - kind: NASA\n    base_url: https://nasa.example\n"), 0o600))

	_, err := execute(t, "--config", path, "sync")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSyncCommand_DurableCacheSurvivesRuns(t *testing.T) {
	up := newUpstream(t, false)
	cfgPath := writeConfig(t, up.srv.URL, filepath.Join(t.TempDir(), "cache.db"))

	_, err := execute(t, "--config", cfgPath, "sync")
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.hits.Load())

	// Second process-equivalent run is served from the sqlite tier.
	_, err = execute(t, "--config", cfgPath, "sync")
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.hits.Load())

	out, err := execute(t, "--config", cfgPath, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cache cleared (sqlite)")

	_, err = execute(t, "--config", cfgPath, "sync")
	require.NoError(t, err)
	assert.Equal(t, int32(4), up.hits.Load())
}

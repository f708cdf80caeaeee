package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/config"
	"github.com/stkw0/lms/internal/database"
	"github.com/stkw0/lms/internal/events"
	"github.com/stkw0/lms/internal/metadata"
	"github.com/stkw0/lms/internal/scanner"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	store := catalog.NewStore(db)

	bus := events.NewEventBus(events.DefaultEventBusConfig())
	require.NoError(t, bus.Start())
	t.Cleanup(func() { _ = bus.Stop() })

	parser, err := metadata.NewParser("dhowden")
	require.NoError(t, err)

	service := scanner.NewService(store, bus, parser)
	service.Start()
	t.Cleanup(service.Stop)

	return New(config.Default(), store, service, bus)
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestScannerStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/api/scanner/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status scanner.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, scanner.StateNotScheduled, status.State)
}

func TestScanTriggerEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/api/scanner/scan?force=true", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["force"])
}

func TestLibraryLifecycle(t *testing.T) {
	srv := newTestServer(t)
	root := t.TempDir()

	w := do(t, srv, http.MethodPost, "/api/libraries", map[string]string{
		"name":      "Music",
		"root_path": root,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var library database.MediaLibrary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &library))
	assert.NotEmpty(t, library.ID)
	assert.Equal(t, root, library.RootPath)

	// Duplicate root path conflicts.
	w = do(t, srv, http.MethodPost, "/api/libraries", map[string]string{
		"name":      "Music again",
		"root_path": root,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, srv, http.MethodGet, "/api/libraries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Libraries []database.MediaLibrary `json:"libraries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Libraries, 1)

	w = do(t, srv, http.MethodDelete, "/api/libraries/"+library.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestScanSettingsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/settings/scan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var settings database.ScanSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, 0, settings.Version)

	w = do(t, srv, http.MethodPut, "/api/settings/scan", map[string]any{
		"update_period": "daily",
		"start_time":    "03:30",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, 1, settings.Version)
	assert.Equal(t, database.PeriodDaily, settings.UpdatePeriod)

	w = do(t, srv, http.MethodPut, "/api/settings/scan", map[string]any{
		"update_period": "sometimes",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPut, "/api/settings/scan", map[string]any{
		"start_time": "25:99",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/api/events?limit=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/api/events/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

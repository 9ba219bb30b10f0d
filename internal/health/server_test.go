package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubPlatforms map[string]string

func (p stubPlatforms) PlatformStates() map[string]string { return p }

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, ReadyResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestLiveAndHealth(t *testing.T) {
	s := NewServer(Config{ServiceName: "fop-engine", Version: "1.0.0"})
	for _, path := range []string{"/health", "/live"} {
		t.Run(path, func(t *testing.T) {
			rec, body := get(t, s, path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ok", body.Status)
			assert.Equal(t, "fop-engine", body.Service)
		})
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		db       DatabasePinger
		wantCode int
		wantDB   string
	}{
		{name: "not marked ready", ready: false, wantCode: http.StatusServiceUnavailable},
		{name: "ready without database", ready: true, wantCode: http.StatusOK},
		{name: "database ok", ready: true, db: stubPinger{}, wantCode: http.StatusOK, wantDB: "ok"},
		{name: "database down", ready: true, db: stubPinger{err: errors.New("refused")}, wantCode: http.StatusServiceUnavailable, wantDB: "error: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(Config{ServiceName: "fop-engine", DB: tt.db})
			s.SetReady(tt.ready)

			rec, body := get(t, s, "/ready")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantDB, body.Checks["database"])
		})
	}
}

func TestReadyReportsPlatformStates(t *testing.T) {
	s := NewServer(Config{
		ServiceName: "fop-engine",
		Platforms:   stubPlatforms{"A": "CURRENT_ATHLETE_DISPLAYED", "B": "BREAK"},
	})
	s.SetReady(true)

	rec, body := get(t, s, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CURRENT_ATHLETE_DISPLAYED", body.Checks["platform:A"])
	assert.Equal(t, "BREAK", body.Checks["platform:B"])
}

func TestNewServerPort(t *testing.T) {
	assert.Equal(t, "8081", NewServer(Config{}).port)
	assert.Equal(t, "9000", NewServer(Config{Port: 9000}).port)
}

func TestReadyNamedChecks(t *testing.T) {
	s := NewServer(Config{
		ServiceName: "fop-engine",
		Checks: map[string]Check{
			"publisher": func(context.Context) error { return nil },
			"store":     func(context.Context) error { return errors.New("locked") },
		},
	})
	s.SetReady(true)

	rec, body := get(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Checks["publisher"])
	assert.Equal(t, "error: locked", body.Checks["store"])
	assert.Equal(t, "ok", body.Checks["service"])
}

func TestProbesRejectOtherMethods(t *testing.T) {
	s := NewServer(Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

func bufferedLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf})
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLoggingCarriesActorResolvedDownstream(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := bufferedLogger(buf)
	token, payload := mintTestToken(t, enums.RoleLocalManager)

	handler := Logging(logg)(Auth(testJWT, stubSessionVerifier{ok: true}, logg)(okHandler()))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastEntry(t, buf)
	assert.Equal(t, "request.complete", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, payload.OrganizationID.String(), entry["organization_id"])
	assert.Equal(t, payload.UserID.String(), entry["user_id"])
	assert.Equal(t, string(enums.RoleLocalManager), entry["actor_role"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		status  int
		level   string
		message string
	}{
		{"success", "/api/v1/orders", http.StatusCreated, "info", "request.complete"},
		{"client error", "/api/v1/orders", http.StatusConflict, "warn", "request.rejected"},
		{"server error", "/api/v1/orders", http.StatusServiceUnavailable, "error", "request.failed"},
		{"health check", "/health/live", http.StatusOK, "debug", "request.complete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			handler := Logging(bufferedLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, tt.path, nil))

			entry := lastEntry(t, buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.message, entry["message"])
			assert.NotContains(t, entry, "organization_id")
		})
	}
}

func TestRequestIDReusesSafeHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"safe", "client-abc_123", true},
		{"missing", "", false},
		{"unsafe characters", "abc\ndef", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(requestIDHeader, tt.header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, resp.Header().Get(requestIDHeader))
			if tt.reuse {
				assert.Equal(t, tt.header, seen)
			} else {
				assert.NotEqual(t, tt.header, seen)
			}
		})
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := RequestID(nil)(Recoverer(bufferedLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))
	assert.Contains(t, buf.String(), "http.panic")
}

func TestRecovererRepanicsAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

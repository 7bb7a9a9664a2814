package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/literature-backend/internal/inventory"
	"github.com/angelmondragon/literature-backend/internal/reports"
	"github.com/angelmondragon/literature-backend/internal/users"
	pkgAuth "github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/auth/session"
	"github.com/angelmondragon/literature-backend/pkg/config"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessions struct {
	active bool
}

func (s stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return s.active, nil
}

type stubUsersService struct {
	users.Service
}

func (stubUsersService) Me(ctx context.Context, actor pkgAuth.Actor) (*users.UserDTO, error) {
	return &users.UserDTO{ID: actor.UserID, Role: actor.Role, OrganizationID: actor.OrganizationID}, nil
}

type stubInventoryService struct {
	inventory.Service
}

func (stubInventoryService) List(ctx context.Context, actor pkgAuth.Actor, filter inventory.ListFilter) (pagination.Page[inventory.RecordDTO], error) {
	return pagination.Page[inventory.RecordDTO]{Items: []inventory.RecordDTO{}}, nil
}

type stubReportsService struct {
	reports.Service
}

func (stubReportsService) InventorySnapshot(ctx context.Context, actor pkgAuth.Actor, orgID uuid.UUID) (*reports.InventorySnapshot, error) {
	return &reports.InventorySnapshot{OrganizationID: orgID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test", Port: "0"},
		Service: config.ServiceConfig{Kind: "api"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config, sessions stubSessions) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil,
		sessions,
		prometheus.NewRegistry(),
		Services{
			Users:     stubUsersService{},
			Inventory: stubInventoryService{},
			Reports:   stubReportsService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Role:           role,
		JTI:            session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutesArePublic(t *testing.T) {
	router := newTestRouter(testConfig(), stubSessions{})
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		if resp := serve(router, http.MethodGet, path, ""); resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubSessions{active: true})
	if resp := serve(router, http.MethodGet, "/api/v1/users/me", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAPIRejectsRevokedSession(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSessions{active: false})
	resp := serve(router, http.MethodGet, "/api/v1/users/me", buildToken(t, cfg, enums.RoleOperator))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session got %d", resp.Code)
	}
}

func TestCurrentUserRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSessions{active: true})
	resp := serve(router, http.MethodGet, "/api/v1/users/me", buildToken(t, cfg, enums.RoleOperator))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	var env struct {
		Data users.UserDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Role != enums.RoleOperator {
		t.Fatalf("unexpected role %s", env.Data.Role)
	}
}

func TestPermissionGates(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSessions{active: true})

	cases := []struct {
		name   string
		role   enums.Role
		method string
		path   string
		want   int
	}{
		{name: "viewer lists inventory", role: enums.RoleViewer, method: http.MethodGet, path: "/api/v1/inventory", want: http.StatusOK},
		{name: "viewer cannot reserve", role: enums.RoleViewer, method: http.MethodPost, path: "/api/v1/inventory/reserve", want: http.StatusForbidden},
		{name: "operator cannot read reports", role: enums.RoleOperator, method: http.MethodGet, path: "/api/v1/reports/inventory", want: http.StatusForbidden},
		{name: "viewer reads reports", role: enums.RoleViewer, method: http.MethodGet, path: "/api/v1/reports/inventory", want: http.StatusOK},
		{name: "operator cannot reverse", role: enums.RoleOperator, method: http.MethodPost, path: "/api/v1/transactions/" + uuid.NewString() + "/reverse", want: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := serve(router, tc.method, tc.path, buildToken(t, cfg, tc.role))
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d (%s)", tc.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestUnwiredServiceAnswers500(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubSessions{active: true})
	resp := serve(router, http.MethodGet, "/api/v1/orders", buildToken(t, cfg, enums.RoleAdmin))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing orders service got %d", resp.Code)
	}
}

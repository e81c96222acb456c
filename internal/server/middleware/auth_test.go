package middleware

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/labstack/echo/v4"
)

func runAuth(t *testing.T, app *App, header string, guard echo.MiddlewareFunc) (*httptest.ResponseRecorder, *AppUser) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	cc := &AppContext{Context: e.NewContext(req, rec), App: app}

	var seen *AppUser
	final := func(c echo.Context) error {
		seen = c.(*AppContext).User
		return c.NoContent(http.StatusNoContent)
	}
	h := AuthMiddleware(guard(final))
	if err := h(cc); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec, seen
}

func TestAuthMiddleware(t *testing.T) {
	app := &App{MasterAPIKey: "secret", MasterUserID: 7, MasterUserRole: "admin"}

	tests := []struct {
		name       string
		header     string
		permission string
		wantStatus int
	}{
		{name: "missing header", header: "", permission: "query.execute", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic secret", permission: "query.execute", wantStatus: http.StatusUnauthorized},
		{name: "unknown token without jwks", header: "Bearer other", permission: "query.execute", wantStatus: http.StatusUnauthorized},
		{name: "master key", header: "Bearer secret", permission: "query.execute", wantStatus: http.StatusNoContent},
		{name: "master key explain", header: "Bearer secret", permission: "query.explain", wantStatus: http.StatusNoContent},
		{name: "unknown permission", header: "Bearer secret", permission: "index.write", wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, user := runAuth(t, app, tt.header, RequirePermission(tt.permission))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusNoContent && (user == nil || user.UserID != 7) {
				t.Fatalf("expected master user, got %+v", user)
			}
		})
	}
}

func TestHasAnyPermission(t *testing.T) {
	user := &AppUser{Permissions: []string{"query.execute"}}
	if !HasAnyPermission(user, "query.optimize", "query.execute") {
		t.Fatal("expected permission")
	}
	if HasAnyPermission(nil, "query.execute") {
		t.Fatal("nil user must not have permissions")
	}
	if IsAdmin(user) {
		t.Fatal("user is not admin")
	}
}

func TestGrantDefaults(t *testing.T) {
	tests := []struct {
		name string
		user *AppUser
		want []string
	}{
		{name: "admin without claims", user: &AppUser{Role: RoleAdmin}, want: allPermissions},
		{name: "admin with claims", user: &AppUser{Role: RoleAdmin, Permissions: []string{PermQueryExplain}}, want: []string{PermQueryExplain}},
		{name: "user without claims", user: &AppUser{Role: "user"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grantDefaults(tt.user)
			if !slices.Equal(tt.user.Permissions, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, tt.user.Permissions)
			}
		})
	}
}

func TestRequireAnyPermission(t *testing.T) {
	app := &App{MasterAPIKey: "secret", MasterUserID: 7, MasterUserRole: RoleAdmin}

	rec, _ := runAuth(t, app, "Bearer secret", RequireAnyPermission("index.write", PermQueryOptimize))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	rec, _ = runAuth(t, app, "Bearer secret", RequireAnyPermission("index.write"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

const (
	PermQueryExecute  = "query.execute"
	PermQueryOptimize = "query.optimize"
	PermQueryExplain  = "query.explain"

	RoleAdmin = "admin"
)

var allPermissions = []string{PermQueryExecute, PermQueryOptimize, PermQueryExplain}

func HasPermission(user *AppUser, permission string) bool {
	if user == nil {
		return false
	}
	return slices.Contains(user.Permissions, permission)
}

func HasAnyPermission(user *AppUser, permissions ...string) bool {
	return slices.ContainsFunc(permissions, func(p string) bool {
		return HasPermission(user, p)
	})
}

func IsAdmin(user *AppUser) bool {
	return user != nil && user.Role == RoleAdmin
}

// grantDefaults gives admins without explicit permission claims every query
// permission.
func grantDefaults(user *AppUser) {
	if IsAdmin(user) && len(user.Permissions) == 0 {
		user.Permissions = slices.Clone(allPermissions)
	}
}

func requireUser(allowed func(*AppUser) bool, forbidden string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			if !allowed(user) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": forbidden})
			}
			return next(c)
		}
	}
}

func RequirePermission(permission string) echo.MiddlewareFunc {
	return requireUser(func(u *AppUser) bool {
		return HasPermission(u, permission)
	}, "Forbidden: missing permission "+permission)
}

func RequireAnyPermission(permissions ...string) echo.MiddlewareFunc {
	return requireUser(func(u *AppUser) bool {
		return HasAnyPermission(u, permissions...)
	}, "Forbidden: missing required permission")
}

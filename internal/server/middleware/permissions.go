package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	PermRunCreate = "run.create"
	PermRunView   = "run.view"
)

var allPermissions = []string{PermRunCreate, PermRunView}

func HasPermission(user *AppUser, permission string) bool {
	return user != nil && slices.Contains(user.Permissions, permission)
}

// RequirePermission lets the request through when the user holds any of
// the given permissions.
func RequirePermission(permissions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return unauthorized(c, "Unauthorized")
			}
			for _, p := range permissions {
				if HasPermission(user, p) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "missing permission " + strings.Join(permissions, " or "),
			})
		}
	}
}

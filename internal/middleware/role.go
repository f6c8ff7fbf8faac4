package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that enforces that the authenticated
// user carries one of the given roles.  Evaluation order is fixed: an
// unauthenticated request is rejected 401 (SessionAuth already does this
// when chained before), an authenticated request lacking every required
// role is rejected 403 with a generic body that does not reveal which role
// was needed.  The role set is recomputed from the freshly loaded user on
// every request and never cached.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			for _, r := range roles {
				if u.HasRole(r) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		}
	}
}

package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/linguaclub/linguaclub/internal/model"
	"github.com/linguaclub/linguaclub/internal/repository"
	"github.com/linguaclub/linguaclub/internal/utils"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "lc_session"

// Context keys populated by SessionAuth.
const (
	ctxUserKey        = "user"
	ctxSessionHashKey = "session_hash"
)

// SessionAuth returns an Echo middleware that resolves the current
// identity from the session cookie.  The cookie value is a signed JWT
// wrapping a random server-side session token; the signature check rejects
// tampered cookies before the database is consulted.  The identity is then
// re-resolved from the users table on every request, so a user deleted
// since login is treated as unauthenticated and role changes take effect
// immediately.  Handlers access the identity via CurrentUser(c).
func SessionAuth(secret string, sessions *repository.SessionRepo, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			// Verify the cookie signature and unwrap the raw session token.
			raw, err := utils.ParseSessionCookie(secret, cookie.Value)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			hash := utils.HashSessionRaw(raw)

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			// The session must exist server-side, unrevoked and unexpired.
			userID, err := sessions.Validate(ctx, hash)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			// Replay the stored identifier through the identity store.  A
			// user deleted since login resolves to unauthenticated.
			u, err := users.GetByID(ctx, userID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			c.Set(ctxUserKey, &u)
			c.Set(ctxSessionHashKey, hash)
			return next(c)
		}
	}
}

// CurrentUser returns the identity resolved by SessionAuth, or false when
// the request is unauthenticated.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(ctxUserKey).(*model.User)
	return u, ok
}

// CurrentSessionHash returns the hash of the active session token, used by
// logout and account deletion to revoke exactly this session.
func CurrentSessionHash(c echo.Context) (string, bool) {
	h, ok := c.Get(ctxSessionHashKey).(string)
	return h, ok
}

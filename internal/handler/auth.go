package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/linguaclub/linguaclub/internal/config"
	"github.com/linguaclub/linguaclub/internal/middleware"
	"github.com/linguaclub/linguaclub/internal/model"
	"github.com/linguaclub/linguaclub/internal/repository"
	"github.com/linguaclub/linguaclub/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *repository.SessionRepo
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, sessions *repository.SessionRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Sessions: sessions}
}

// ----- DTOs -----

type registerReq struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Bio       string `json:"bio"`
	BirthDate string `json:"birth_date"`
	IsHost    bool   `json:"is_host"`
}

type loginReq struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Remember   bool   `json:"remember"`
}

type updateMeReq struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	BirthDate       *string `json:"birth_date"`
	Email           *string `json:"email"`
	CurrentPassword *string `json:"current_password"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type deleteAccountReq struct {
	CurrentPassword string `json:"current_password"`
}

// validationStatus maps a field validation failure to a 400 response.
func validationStatus(c echo.Context, err error) error {
	var ve *utils.ValidationError
	if errors.As(err, &ve) {
		return badRequest(c, http.StatusBadRequest, ve.Reason, ve.Field)
	}
	return badRequest(c, http.StatusBadRequest, "invalid input", "")
}

// Register creates a user (and host profile when requested) and starts a
// session immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}

	username, err := utils.Trimmed(req.Username, "username", 32, true)
	if err != nil {
		return validationStatus(c, err)
	}
	email, err := utils.Trimmed(req.Email, "email", 254, true)
	if err != nil {
		return validationStatus(c, err)
	}
	firstName, err := utils.Trimmed(req.FirstName, "first_name", 80, true)
	if err != nil {
		return validationStatus(c, err)
	}
	lastName, err := utils.Trimmed(req.LastName, "last_name", 80, true)
	if err != nil {
		return validationStatus(c, err)
	}
	password, err := utils.Trimmed(req.Password, "password", 0, true)
	if err != nil {
		return validationStatus(c, err)
	}
	if !utils.EmailOK(email) {
		return badRequest(c, http.StatusBadRequest, "invalid email", "email")
	}
	if len(password) < utils.MinPasswordLen {
		return badRequest(c, http.StatusBadRequest, "password too short (min 8)", "password")
	}
	if len(password) > utils.MaxPasswordLen {
		return badRequest(c, http.StatusBadRequest, "password too long (max 72)", "password")
	}
	birthDate, err := utils.ValidateBirthDate(req.BirthDate, utils.MinAge)
	if err != nil {
		return validationStatus(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Pre-check uniqueness so the caller learns which field clashed.
	// Username takes priority; the UNIQUE keys stay the final authority.
	conflict, err := h.Users.FindConflict(ctx, username, email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	switch conflict {
	case "username":
		return badRequest(c, http.StatusConflict, "username already taken", "username")
	case "email":
		return badRequest(c, http.StatusConflict, "email already registered", "email")
	}

	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	var bio *string
	if b, _ := utils.Trimmed(req.Bio, "bio", 0, false); b != "" {
		bio = &b
	}
	u := model.User{
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		BirthDate:    birthDate,
		PasswordHash: hash,
	}
	if err := h.Users.Create(ctx, &u, req.IsHost, bio); err != nil {
		// A race past the pre-check rolled the whole transaction back.
		// Deliberately flat: which constraint tripped is ambiguous here.
		if errors.Is(err, repository.ErrDuplicate) {
			return badRequest(c, http.StatusBadRequest, "registration failed", "")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	// Log the fresh account in right away with an ephemeral session.
	if err := h.issueSession(c, u.ID, false); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": userPayload(&u)})
}

// Login authenticates by username or email.  The failure message never
// reveals whether the identifier or the password was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}
	identifier, err := utils.Trimmed(req.Identifier, "identifier", 0, true)
	if err != nil {
		return validationStatus(c, err)
	}
	password, err := utils.Trimmed(req.Password, "password", 0, true)
	if err != nil {
		return validationStatus(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := h.issueSession(c, u.ID, req.Remember); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userPayload(&u)})
}

// Me returns the current identity (protected).
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userPayload(u)})
}

// UpdateMe mutates first_name, last_name, birth_date and email only.
// Changing email re-verifies the password and re-checks uniqueness.
// Disallowed fields in the body are silently ignored.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}

	var patch repository.ProfilePatch
	if req.FirstName != nil {
		v, err := utils.Trimmed(*req.FirstName, "first_name", 80, false)
		if err != nil {
			return validationStatus(c, err)
		}
		if v != "" {
			patch.FirstName = &v
		}
	}
	if req.LastName != nil {
		v, err := utils.Trimmed(*req.LastName, "last_name", 80, false)
		if err != nil {
			return validationStatus(c, err)
		}
		if v != "" {
			patch.LastName = &v
		}
	}
	if req.BirthDate != nil && *req.BirthDate != "" {
		d, err := utils.ValidateBirthDate(*req.BirthDate, utils.MinAge)
		if err != nil {
			return validationStatus(c, err)
		}
		patch.BirthDate = d
		patch.SetBirthDate = true
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if req.Email != nil {
		email, err := utils.Trimmed(*req.Email, "email", 254, false)
		if err != nil {
			return validationStatus(c, err)
		}
		if email != "" && email != u.Email {
			if !utils.EmailOK(email) {
				return badRequest(c, http.StatusBadRequest, "invalid email", "email")
			}
			// Email changes need the current password, valid or not.
			if req.CurrentPassword == nil || *req.CurrentPassword == "" {
				return badRequest(c, http.StatusBadRequest, "required", "current_password")
			}
			if !utils.VerifyPassword(u.PasswordHash, *req.CurrentPassword) {
				return badRequest(c, http.StatusUnauthorized, "wrong password", "current_password")
			}
			taken, err := h.Users.EmailTakenByOther(ctx, email, u.ID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
			}
			if taken {
				return badRequest(c, http.StatusConflict, "email already registered", "email")
			}
			patch.Email = &email
		}
	}

	fresh, err := h.Users.UpdateProfile(ctx, u.ID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return badRequest(c, http.StatusConflict, "email already registered", "email")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userPayload(&fresh)})
}

// ChangePassword re-verifies the current password, stores a new hash and
// revokes every existing session, reissuing one for the current client.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}
	current, err := utils.Trimmed(req.CurrentPassword, "current_password", 0, true)
	if err != nil {
		return validationStatus(c, err)
	}
	next, err := utils.Trimmed(req.NewPassword, "new_password", 0, true)
	if err != nil {
		return validationStatus(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return badRequest(c, http.StatusUnauthorized, "wrong password", "current_password")
	}
	if len(next) < utils.MinPasswordLen {
		return badRequest(c, http.StatusBadRequest, "password too short (min 8)", "new_password")
	}
	if len(next) > utils.MaxPasswordLen {
		return badRequest(c, http.StatusBadRequest, "password too long (max 72)", "new_password")
	}

	hash, err := utils.HashPassword(next, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	// A new password invalidates every open session, this device included,
	// then the current client gets a fresh one so it stays logged in.
	if err := h.Sessions.RevokeAllForUser(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := h.issueSession(c, u.ID, false); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// DeleteAccount removes the account after password confirmation.  Hosted
// clubs block deletion.  Session teardown after the delete committed is
// best-effort; its failure does not turn the response into an error.
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req deleteAccountReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}
	current, err := utils.Trimmed(req.CurrentPassword, "current_password", 0, true)
	if err != nil {
		return validationStatus(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return badRequest(c, http.StatusUnauthorized, "wrong password", "current_password")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.Delete(ctx, u.ID); err != nil {
		if errors.Is(err, repository.ErrHostedClubs) {
			return badRequest(c, http.StatusConflict, "account still hosts clubs", "clubs")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	// The sessions rows are already gone through ON DELETE CASCADE; just
	// drop the cookie.  Failures here are swallowed.
	if hash, ok := middleware.CurrentSessionHash(c); ok {
		_ = h.Sessions.RevokeByHash(ctx, hash)
	}
	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Logout revokes the current session.  Revoking an already dead session is
// not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if hash, ok := middleware.CurrentSessionHash(c); ok {
		_ = h.Sessions.RevokeByHash(ctx, hash)
	}
	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// issueSession creates a server-side session and sets the signed cookie.
// remember extends both the row TTL and the cookie lifetime; without it
// the cookie lives only as long as the browser session.
func (h *AuthHandler) issueSession(c echo.Context, userID uint64, remember bool) error {
	ttl := time.Duration(h.Cfg.SessionTTLHours) * time.Hour
	if remember {
		ttl = time.Duration(h.Cfg.RememberTTLDays) * 24 * time.Hour
	}
	tok, err := utils.NewSessionToken(ttl)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Sessions.Store(ctx, userID, utils.HashSessionRaw(tok.Raw), tok.Exp); err != nil {
		return err
	}
	signed, err := utils.SignSessionCookie(h.Cfg.SessionSecret, tok.Raw, tok.Exp)
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.Expires = tok.Exp
	}
	c.SetCookie(cookie)
	return nil
}

// clearSessionCookie expires the cookie on the client.
func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

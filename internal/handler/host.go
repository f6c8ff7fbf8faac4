package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/linguaclub/linguaclub/internal/middleware"
	"github.com/linguaclub/linguaclub/internal/repository"
	"github.com/linguaclub/linguaclub/internal/utils"
)

// HostHandler serves the host profile and the promote/demote transitions.
type HostHandler struct {
	Users *repository.UserRepo
}

func NewHostHandler(users *repository.UserRepo) *HostHandler {
	return &HostHandler{Users: users}
}

type hostProfileReq struct {
	Bio string `json:"bio"`
}

// GetProfile returns the caller's host profile (host role required).
func (h *HostHandler) GetProfile(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var bio *string
	host, err := h.Users.GetHost(ctx, u.ID)
	if err == nil {
		bio = host.Bio
	} else if !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":         userPayload(u),
		"host_profile": echo.Map{"bio": bio},
	})
}

// UpdateProfile stores the caller's bio, creating the profile row when it
// is missing.
func (h *HostHandler) UpdateProfile(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req hostProfileReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}
	var bio *string
	if b, _ := utils.Trimmed(req.Bio, "bio", 0, false); b != "" {
		bio = &b
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.UpsertHostBio(ctx, u.ID, bio); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "host_profile": echo.Map{"bio": bio}})
}

// Promote grants the host role.  Idempotent: promoting an existing host
// changes nothing and keeps the stored bio.
func (h *HostHandler) Promote(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.Promote(ctx, u.ID, nil); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	fresh, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userPayload(&fresh)})
}

// Demote removes the host role and deletes the profile row.  Idempotent.
// Clubs the user already hosts stay valid; only the capability is lost.
func (h *HostHandler) Demote(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.Demote(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	fresh, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userPayload(&fresh)})
}

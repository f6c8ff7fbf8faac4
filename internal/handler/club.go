package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/linguaclub/linguaclub/internal/middleware"
	"github.com/linguaclub/linguaclub/internal/model"
	"github.com/linguaclub/linguaclub/internal/repository"
	"github.com/linguaclub/linguaclub/internal/utils"
)

// ClubHandler serves public club browsing and host-only club management.
type ClubHandler struct {
	Clubs  *repository.ClubRepo
	Levels *repository.LevelRepo
}

func NewClubHandler(clubs *repository.ClubRepo, levels *repository.LevelRepo) *ClubHandler {
	return &ClubHandler{Clubs: clubs, Levels: levels}
}

type createClubReq struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	LevelCode   string  `json:"level_code"`
	StartsAt    string  `json:"starts_at"`
	DurationMin uint16  `json:"duration_min"`
	Capacity    *uint16 `json:"capacity"`
	MeetingURL  string  `json:"meeting_url"`
	PriceCents  uint32  `json:"price_cents"`
	Currency    string  `json:"currency"`
}

type updateClubReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	LevelCode   *string `json:"level_code"`
	StartsAt    *string `json:"starts_at"`
	DurationMin *uint16 `json:"duration_min"`
	Capacity    *uint16 `json:"capacity"`
	MeetingURL  *string `json:"meeting_url"`
	PriceCents  *uint32 `json:"price_cents"`
	Currency    *string `json:"currency"`
	Status      *string `json:"status"`
}

func clubID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// ListLevels returns the seeded reference levels (public).
func (h *ClubHandler) ListLevels(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	levels, err := h.Levels.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(levels))
	for _, lv := range levels {
		out = append(out, echo.Map{"code": lv.Code, "label": lv.Label})
	}
	return c.JSON(http.StatusOK, echo.Map{"levels": out})
}

// ListClubs browses clubs with optional ?level= and ?status= filters
// (public).  Without a status filter only SCHEDULED clubs are shown.
func (h *ClubHandler) ListClubs(c echo.Context) error {
	level := strings.TrimSpace(c.QueryParam("level"))
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	switch status {
	case "":
		status = model.ClubScheduled
	case model.ClubScheduled, model.ClubCanceled, model.ClubCompleted:
	default:
		return badRequest(c, http.StatusBadRequest, "unknown status", "status")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	clubs, err := h.Clubs.List(ctx, level, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(clubs))
	for i := range clubs {
		out = append(out, clubPayload(&clubs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"clubs": out})
}

// GetClub returns one club by id (public).
func (h *ClubHandler) GetClub(c echo.Context) error {
	id, err := clubID(c)
	if err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid club id", "")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	club, err := h.Clubs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"club": clubPayload(&club)})
}

// CreateClub schedules a new club hosted by the caller (host role).
func (h *ClubHandler) CreateClub(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req createClubReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}

	title, err := utils.Trimmed(req.Title, "title", 120, true)
	if err != nil {
		return validationStatus(c, err)
	}
	levelCode, err := utils.Trimmed(req.LevelCode, "level_code", 10, true)
	if err != nil {
		return validationStatus(c, err)
	}
	if req.DurationMin == 0 {
		return badRequest(c, http.StatusBadRequest, "required", "duration_min")
	}
	startsRaw, err := utils.Trimmed(req.StartsAt, "starts_at", 0, true)
	if err != nil {
		return validationStatus(c, err)
	}
	startsAt, err := time.Parse(time.RFC3339, startsRaw)
	if err != nil {
		return badRequest(c, http.StatusBadRequest, "must be RFC3339", "starts_at")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	known, err := h.Levels.Exists(ctx, levelCode)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !known {
		return badRequest(c, http.StatusBadRequest, "unknown level code", "level_code")
	}

	club := model.Club{
		Title:       title,
		LevelCode:   levelCode,
		HostID:      u.ID,
		StartsAt:    startsAt,
		DurationMin: req.DurationMin,
		Capacity:    12,
		PriceCents:  req.PriceCents,
		Currency:    "EUR",
	}
	if req.Capacity != nil && *req.Capacity > 0 {
		club.Capacity = *req.Capacity
	}
	if cur := strings.ToUpper(strings.TrimSpace(req.Currency)); cur != "" {
		if len(cur) != 3 {
			return badRequest(c, http.StatusBadRequest, "must be a 3-letter code", "currency")
		}
		club.Currency = cur
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		club.Description = &d
	}
	if m := strings.TrimSpace(req.MeetingURL); m != "" {
		club.MeetingURL = &m
	}

	if err := h.Clubs.Create(ctx, &club); err != nil {
		if errors.Is(err, repository.ErrLevelUnknown) {
			return badRequest(c, http.StatusBadRequest, "unknown level code", "level_code")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create club"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"club": clubPayload(&club)})
}

// UpdateClub patches a club the caller hosts.  Status may only move from
// SCHEDULED to CANCELED or COMPLETED.
func (h *ClubHandler) UpdateClub(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := clubID(c)
	if err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid club id", "")
	}
	var req updateClubReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var patch repository.ClubPatch
	if req.Title != nil {
		v, err := utils.Trimmed(*req.Title, "title", 120, true)
		if err != nil {
			return validationStatus(c, err)
		}
		patch.Title = &v
	}
	if req.Description != nil {
		patch.Description = req.Description
	}
	if req.LevelCode != nil {
		v, err := utils.Trimmed(*req.LevelCode, "level_code", 10, true)
		if err != nil {
			return validationStatus(c, err)
		}
		known, err := h.Levels.Exists(ctx, v)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !known {
			return badRequest(c, http.StatusBadRequest, "unknown level code", "level_code")
		}
		patch.LevelCode = &v
	}
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.StartsAt))
		if err != nil {
			return badRequest(c, http.StatusBadRequest, "must be RFC3339", "starts_at")
		}
		patch.StartsAt = &t
	}
	if req.DurationMin != nil {
		if *req.DurationMin == 0 {
			return badRequest(c, http.StatusBadRequest, "must be positive", "duration_min")
		}
		patch.DurationMin = req.DurationMin
	}
	if req.Capacity != nil {
		if *req.Capacity == 0 {
			return badRequest(c, http.StatusBadRequest, "must be positive", "capacity")
		}
		patch.Capacity = req.Capacity
	}
	if req.MeetingURL != nil {
		patch.MeetingURL = req.MeetingURL
	}
	if req.PriceCents != nil {
		patch.PriceCents = req.PriceCents
	}
	if req.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(cur) != 3 {
			return badRequest(c, http.StatusBadRequest, "must be a 3-letter code", "currency")
		}
		patch.Currency = &cur
	}
	if req.Status != nil {
		next := strings.ToUpper(strings.TrimSpace(*req.Status))
		if next != model.ClubCanceled && next != model.ClubCompleted {
			return badRequest(c, http.StatusBadRequest, "allowed: CANCELED, COMPLETED", "status")
		}
		existing, err := h.Clubs.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if existing.Status != model.ClubScheduled {
			return badRequest(c, http.StatusBadRequest, "club is no longer scheduled", "status")
		}
		patch.Status = &next
	}

	club, err := h.Clubs.UpdateOwned(ctx, id, u.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		case errors.Is(err, repository.ErrLevelUnknown):
			return badRequest(c, http.StatusBadRequest, "unknown level code", "level_code")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"club": clubPayload(&club)})
}

// DeleteClub removes a club the caller hosts.  Enrollments and wishlist
// entries cascade.
func (h *ClubHandler) DeleteClub(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := clubID(c)
	if err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid club id", "")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Clubs.DeleteOwned(ctx, id, u.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// MyClubs lists the caller's hosted clubs (host role).
func (h *ClubHandler) MyClubs(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	clubs, err := h.Clubs.ListByHost(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(clubs))
	for i := range clubs {
		out = append(out, clubPayload(&clubs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"clubs": out})
}

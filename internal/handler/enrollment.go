package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/linguaclub/linguaclub/internal/middleware"
	"github.com/linguaclub/linguaclub/internal/model"
	"github.com/linguaclub/linguaclub/internal/queue"
	"github.com/linguaclub/linguaclub/internal/repository"
	queue_publisher "github.com/linguaclub/linguaclub/internal/service"
)

// EnrollmentHandler serves enrollment, cancellation, reviews and the
// host-side attendance bookkeeping.
type EnrollmentHandler struct {
	Enrollments *repository.EnrollmentRepo
	Clubs       *repository.ClubRepo
}

func NewEnrollmentHandler(enrollments *repository.EnrollmentRepo, clubs *repository.ClubRepo) *EnrollmentHandler {
	return &EnrollmentHandler{Enrollments: enrollments, Clubs: clubs}
}

type reviewReq struct {
	Rating  uint8  `json:"rating"`
	Comment string `json:"comment"`
}

type setEnrollmentStatusReq struct {
	Status string `json:"status"`
}

// Enroll creates a CONFIRMED enrollment in the club (authenticated).
func (h *EnrollmentHandler) Enroll(c echo.Context) error {
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

	e, err := h.Enrollments.Enroll(ctx, u.ID, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already enrolled"})
		case errors.Is(err, repository.ErrClubNotOpen):
			return c.JSON(http.StatusConflict, echo.Map{"error": "club not open for enrollment"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "enroll failed"})
	}

	// Publish the confirmation for downstream consumers.  Best-effort:
	// the enrollment is committed either way.
	if club, cerr := h.Clubs.GetByID(ctx, id); cerr == nil {
		ev := queue.EnrollmentConfirmedEvent{
			EnrollmentID: e.ID,
			UserID:       u.ID,
			Username:     u.Username,
			ClubID:       club.ID,
			ClubTitle:    club.Title,
			LevelCode:    club.LevelCode,
			StartsAt:     club.StartsAt.UTC().Format(time.RFC3339),
			ConfirmedAt:  time.Now().UTC().Format(time.RFC3339),
		}
		if perr := queue_publisher.PublishEnrollmentConfirmed(ctx, ev); perr != nil {
			log.Printf("enroll: publish event failed: %v", perr)
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{"enrollment": echo.Map{
		"id":      e.ID,
		"club_id": e.ClubID,
		"status":  e.Status,
	}})
}

// CancelEnrollment moves the caller's enrollment to CANCELLED.
func (h *EnrollmentHandler) CancelEnrollment(c echo.Context) error {
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
	if err := h.Enrollments.Cancel(ctx, u.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotEnrolled) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not enrolled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// MyEnrollments lists the caller's enrollments with club info.
func (h *EnrollmentHandler) MyEnrollments(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	list, err := h.Enrollments.ListByUser(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"enrollments": list})
}

// UpsertReview stores the single review for one of the caller's
// enrollments.  Cancelled and no-show enrollments cannot be reviewed.
func (h *EnrollmentHandler) UpsertReview(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	eid, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid enrollment id", "")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return badRequest(c, http.StatusBadRequest, "must be between 1 and 5", "rating")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Enrollments.GetForUser(ctx, eid, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "enrollment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if e.Status != model.EnrollConfirmed && e.Status != model.EnrollAttended {
		return badRequest(c, http.StatusBadRequest, "enrollment cannot be reviewed", "")
	}

	var comment *string
	if v := strings.TrimSpace(req.Comment); v != "" {
		comment = &v
	}
	if err := h.Enrollments.UpsertReview(ctx, e.ID, req.Rating, comment); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "review failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// AuditTrail returns the state-change history of an enrollment in one of
// the caller's clubs (host role).
func (h *EnrollmentHandler) AuditTrail(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	eid, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid enrollment id", "")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	trail, err := h.Enrollments.ListAuditForHost(ctx, eid, u.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "enrollment not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(trail))
	for _, a := range trail {
		out = append(out, echo.Map{
			"action":     a.Action,
			"old_status": a.OldStatus,
			"new_status": a.NewStatus,
			"changed_by": a.ChangedBy,
			"changed_at": a.ChangedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"audit": out})
}

// SetEnrollmentStatus lets the hosting user mark attendance (host role).
// Allowed targets are ATTENDED and NO_SHOW.
func (h *EnrollmentHandler) SetEnrollmentStatus(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	eid, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid enrollment id", "")
	}
	var req setEnrollmentStatusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid body", "")
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status != model.EnrollAttended && status != model.EnrollNoShow {
		return badRequest(c, http.StatusBadRequest, "allowed: ATTENDED, NO_SHOW", "status")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Enrollments.SetStatusByHost(ctx, eid, status, u.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "enrollment not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/linguaclub/linguaclub/internal/model"
)

// userPayload is the identity shape returned by every auth endpoint.  The
// roles list is derived from persisted state on each call, "user" first.
func userPayload(u *model.User) echo.Map {
	var birth interface{}
	if u.BirthDate != nil {
		birth = u.BirthDate.Format("2006-01-02")
	}
	return echo.Map{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"birth_date": birth,
		"is_host":    u.IsHost,
		"roles":      u.Roles(),
	}
}

// clubPayload is the public club shape.
func clubPayload(c *model.Club) echo.Map {
	return echo.Map{
		"id":           c.ID,
		"title":        c.Title,
		"description":  c.Description,
		"level_code":   c.LevelCode,
		"host_id":      c.HostID,
		"starts_at":    c.StartsAt,
		"duration_min": c.DurationMin,
		"capacity":     c.Capacity,
		"meeting_url":  c.MeetingURL,
		"price_cents":  c.PriceCents,
		"currency":     c.Currency,
		"status":       c.Status,
	}
}

// badRequest writes the structured error body {error, field?} with the
// given status code.
func badRequest(c echo.Context, code int, msg, field string) error {
	body := echo.Map{"error": msg}
	if field != "" {
		body["field"] = field
	}
	return c.JSON(code, body)
}

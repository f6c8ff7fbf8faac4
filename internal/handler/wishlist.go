package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/linguaclub/linguaclub/internal/middleware"
	"github.com/linguaclub/linguaclub/internal/repository"
)

// WishlistHandler manages the caller's wishlist.
type WishlistHandler struct {
	Wishlist *repository.WishlistRepo
}

func NewWishlistHandler(wishlist *repository.WishlistRepo) *WishlistHandler {
	return &WishlistHandler{Wishlist: wishlist}
}

func wishlistClubID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("club_id"), 10, 64)
}

// Add puts a club on the caller's wishlist.
func (h *WishlistHandler) Add(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := wishlistClubID(c)
	if err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid club id", "")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Wishlist.Add(ctx, u.ID, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyWishlisted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already on wishlist"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "wishlist failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"ok": true})
}

// Remove drops a club from the caller's wishlist.
func (h *WishlistHandler) Remove(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := wishlistClubID(c)
	if err != nil {
		return badRequest(c, http.StatusBadRequest, "invalid club id", "")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Wishlist.Remove(ctx, u.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not on wishlist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "wishlist failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// List returns the caller's wishlist with club info.
func (h *WishlistHandler) List(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	list, err := h.Wishlist.ListByUser(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"wishlist": list})
}

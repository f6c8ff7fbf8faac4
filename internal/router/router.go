package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/linguaclub/linguaclub/internal/config"
	"github.com/linguaclub/linguaclub/internal/handler"
	"github.com/linguaclub/linguaclub/internal/middleware"
	"github.com/linguaclub/linguaclub/internal/model"
	"github.com/linguaclub/linguaclub/internal/repository"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Cfg      config.Config
	Redis    *redis.Client
	Users    *repository.UserRepo
	Sessions *repository.SessionRepo

	Auth        *handler.AuthHandler
	Host        *handler.HostHandler
	Clubs       *handler.ClubHandler
	Enrollments *handler.EnrollmentHandler
	Wishlist    *handler.WishlistHandler
}

// Register wires every route.  Three tiers:
//
//	public     – health, levels, club browsing, register/login
//	session    – anything under an active session (401 without one)
//	host       – session plus the host role (403 without it)
//
// The role check runs after session resolution, so an unauthenticated
// caller always sees 401 and never 403.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	// Public browse endpoints.
	e.GET("/api/levels", d.Clubs.ListLevels)
	e.GET("/api/clubs", d.Clubs.ListClubs)
	e.GET("/api/clubs/:id", d.Clubs.GetClub)

	// Credential endpoints run before any session exists.  They carry the
	// rate limiter to slow down enumeration and stuffing.
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)
	e.POST("/api/auth/register", d.Auth.Register, limiter)
	e.POST("/api/auth/login", d.Auth.Login, limiter)

	// Everything below requires a live session.
	session := middleware.SessionAuth(d.Cfg.SessionSecret, d.Sessions, d.Users)

	auth := e.Group("/api/auth", session)
	auth.GET("/me", d.Auth.Me)
	auth.PATCH("/me", d.Auth.UpdateMe)
	auth.DELETE("/me", d.Auth.DeleteAccount)
	auth.POST("/password", d.Auth.ChangePassword)
	auth.POST("/logout", d.Auth.Logout)

	me := e.Group("/api/me", session)
	me.GET("/enrollments", d.Enrollments.MyEnrollments)
	me.GET("/wishlist", d.Wishlist.List)
	me.POST("/wishlist/:club_id", d.Wishlist.Add)
	me.DELETE("/wishlist/:club_id", d.Wishlist.Remove)

	e.POST("/api/clubs/:id/enroll", d.Enrollments.Enroll, session)
	e.DELETE("/api/clubs/:id/enroll", d.Enrollments.CancelEnrollment, session)
	e.PUT("/api/enrollments/:id/review", d.Enrollments.UpsertReview, session)

	// Promote/demote only need a session: any user may opt into hosting.
	e.POST("/api/host/promote", d.Host.Promote, session)
	e.POST("/api/host/demote", d.Host.Demote, session)

	// Host-gated surface.
	hostOnly := middleware.RequireRole(model.RoleHost)
	host := e.Group("/api/host", session, hostOnly)
	host.GET("/profile", d.Host.GetProfile)
	host.PUT("/profile", d.Host.UpdateProfile)

	e.POST("/api/clubs", d.Clubs.CreateClub, session, hostOnly)
	e.PATCH("/api/clubs/:id", d.Clubs.UpdateClub, session, hostOnly)
	e.DELETE("/api/clubs/:id", d.Clubs.DeleteClub, session, hostOnly)
	e.GET("/api/me/clubs", d.Clubs.MyClubs, session, hostOnly)
	e.PATCH("/api/enrollments/:id", d.Enrollments.SetEnrollmentStatus, session, hostOnly)
	e.GET("/api/enrollments/:id/audit", d.Enrollments.AuditTrail, session, hostOnly)
}

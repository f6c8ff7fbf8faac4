package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/linguaclub/linguaclub/internal/config"
	"github.com/linguaclub/linguaclub/internal/database"
	"github.com/linguaclub/linguaclub/internal/handler"
	"github.com/linguaclub/linguaclub/internal/queue"
	"github.com/linguaclub/linguaclub/internal/repository"
	"github.com/linguaclub/linguaclub/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	// The full schema is registered in dependency order and the level
	// reference data seeded before any request is served.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.InitSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("init schema: %v", err)
	}
	cancel()

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	levels := repository.NewLevelRepo(db)
	clubs := repository.NewClubRepo(db)
	enrollments := repository.NewEnrollmentRepo(db)
	wishlist := repository.NewWishlistRepo(db)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	// Hourly sweep of expired session rows.  Revocation does not depend
	// on it; this only keeps the table from growing without bound.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := sessions.PurgeExpired(ctx); err != nil {
				log.Printf("purge sessions: %v", err)
			}
			cancel()
		}
	}()

	// Background consumer logging confirmed enrollments.  Runs its own
	// reconnect loop; a missing broker never blocks the API.
	go func() {
		if err := queue.StartEnrollmentConsumer(); err != nil {
			log.Printf("enrollment consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, router.Deps{
		Cfg:         cfg,
		Redis:       rdb,
		Users:       users,
		Sessions:    sessions,
		Auth:        handler.NewAuthHandler(cfg, users, sessions),
		Host:        handler.NewHostHandler(users),
		Clubs:       handler.NewClubHandler(clubs, levels),
		Enrollments: handler.NewEnrollmentHandler(enrollments, clubs),
		Wishlist:    handler.NewWishlistHandler(wishlist),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates every table in dependency order.  Referenced
// tables come first so that foreign keys resolve.  All statements are
// idempotent; running the bootstrap twice is harmless.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS levels (
		code  VARCHAR(10)  NOT NULL,
		label VARCHAR(32)  NOT NULL,
		PRIMARY KEY (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		username      VARCHAR(32)     NOT NULL,
		email         VARCHAR(254)    NOT NULL,
		first_name    VARCHAR(80)     NOT NULL,
		last_name     VARCHAR(80)     NOT NULL,
		birth_date    DATE            NULL,
		password_hash VARBINARY(60)   NOT NULL,
		is_host       TINYINT UNSIGNED NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS hosts (
		user_id BIGINT UNSIGNED NOT NULL,
		bio     TEXT NULL,
		PRIMARY KEY (user_id),
		CONSTRAINT fk_hosts_user FOREIGN KEY (user_id) REFERENCES users(id)
			ON DELETE CASCADE ON UPDATE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_sessions_token (token_hash),
		KEY idx_sessions_user (user_id),
		CONSTRAINT fk_sessions_user FOREIGN KEY (user_id) REFERENCES users(id)
			ON DELETE CASCADE ON UPDATE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS clubs (
		id           BIGINT UNSIGNED   NOT NULL AUTO_INCREMENT,
		title        VARCHAR(120)      NOT NULL,
		description  TEXT              NULL,
		level_code   VARCHAR(10)       NOT NULL,
		host_id      BIGINT UNSIGNED   NOT NULL,
		starts_at    DATETIME          NOT NULL,
		duration_min SMALLINT UNSIGNED NOT NULL,
		capacity     SMALLINT UNSIGNED NOT NULL DEFAULT 12,
		meeting_url  VARCHAR(255)      NULL,
		price_cents  INT UNSIGNED      NOT NULL DEFAULT 0,
		currency     CHAR(3)           NOT NULL DEFAULT 'EUR',
		status       ENUM('SCHEDULED','CANCELED','COMPLETED') NOT NULL DEFAULT 'SCHEDULED',
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_clubs_starts_at (starts_at),
		KEY idx_clubs_level (level_code),
		KEY idx_clubs_search (status, level_code, starts_at),
		CONSTRAINT fk_clubs_level FOREIGN KEY (level_code) REFERENCES levels(code)
			ON DELETE RESTRICT ON UPDATE CASCADE,
		CONSTRAINT fk_clubs_host FOREIGN KEY (host_id) REFERENCES users(id)
			ON DELETE RESTRICT ON UPDATE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS enrollments (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    BIGINT UNSIGNED NOT NULL,
		club_id    BIGINT UNSIGNED NOT NULL,
		status     ENUM('PENDING','CONFIRMED','CANCELLED','ATTENDED','NO_SHOW') NOT NULL DEFAULT 'CONFIRMED',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_enrollments_user_club (user_id, club_id),
		KEY idx_enrollments_club (club_id),
		KEY idx_enrollments_club_status (club_id, status),
		CONSTRAINT fk_enrollments_user FOREIGN KEY (user_id) REFERENCES users(id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		CONSTRAINT fk_enrollments_club FOREIGN KEY (club_id) REFERENCES clubs(id)
			ON DELETE CASCADE ON UPDATE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reviews (
		id            BIGINT UNSIGNED  NOT NULL AUTO_INCREMENT,
		enrollment_id BIGINT UNSIGNED  NOT NULL,
		rating        TINYINT UNSIGNED NOT NULL,
		comment       TEXT             NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_reviews_enrollment (enrollment_id),
		CONSTRAINT fk_reviews_enrollment FOREIGN KEY (enrollment_id) REFERENCES enrollments(id)
			ON DELETE CASCADE ON UPDATE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS enrollment_audit (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		enrollment_id BIGINT UNSIGNED NOT NULL,
		action        ENUM('INSERT','UPDATE','DELETE') NOT NULL,
		old_status    VARCHAR(16) NULL,
		new_status    VARCHAR(16) NULL,
		changed_by    BIGINT UNSIGNED NULL,
		changed_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_audit_enrollment (enrollment_id),
		CONSTRAINT fk_audit_enrollment FOREIGN KEY (enrollment_id) REFERENCES enrollments(id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		CONSTRAINT fk_audit_user FOREIGN KEY (changed_by) REFERENCES users(id)
			ON DELETE SET NULL ON UPDATE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS wishlists (
		user_id    BIGINT UNSIGNED NOT NULL,
		club_id    BIGINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, club_id),
		CONSTRAINT fk_wishlists_user FOREIGN KEY (user_id) REFERENCES users(id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		CONSTRAINT fk_wishlists_club FOREIGN KEY (club_id) REFERENCES clubs(id)
			ON DELETE CASCADE ON UPDATE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// seedLevels is the fixed CEFR reference set.  INSERT IGNORE keeps the
// seeding idempotent across restarts.
var seedLevels = [][2]string{
	{"A1", "Beginner"},
	{"A2", "Elementary"},
	{"B1", "Intermediate"},
	{"B2", "Upper Intermediate"},
	{"C1", "Advanced"},
	{"C2", "Proficient"},
}

// InitSchema creates all tables in order and seeds the level reference
// data.  It must run to completion before the HTTP server starts serving
// requests; any failure is returned to the caller and is fatal at startup.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	for _, lv := range seedLevels {
		if _, err := db.ExecContext(ctx,
			"INSERT IGNORE INTO levels (code, label) VALUES (?,?)", lv[0], lv[1]); err != nil {
			return fmt.Errorf("seed level %s: %w", lv[0], err)
		}
	}
	return nil
}

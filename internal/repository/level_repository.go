package repository

import (
	"context"
	"database/sql"

	"github.com/linguaclub/linguaclub/internal/model"
)

// LevelRepo reads the static level reference table.  Levels are seeded at
// startup and never mutated afterwards, so this repository is read-only.
type LevelRepo struct{ DB *sql.DB }

func NewLevelRepo(db *sql.DB) *LevelRepo { return &LevelRepo{DB: db} }

// List returns all levels ordered by code.
func (r *LevelRepo) List(ctx context.Context) ([]model.Level, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT code, label FROM levels ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Level
	for rows.Next() {
		var lv model.Level
		if err := rows.Scan(&lv.Code, &lv.Label); err != nil {
			return nil, err
		}
		out = append(out, lv)
	}
	return out, rows.Err()
}

// Exists reports whether a level code is part of the seeded set.
func (r *LevelRepo) Exists(ctx context.Context, code string) (bool, error) {
	var got string
	err := r.DB.QueryRowContext(ctx,
		"SELECT code FROM levels WHERE code=? LIMIT 1", code).Scan(&got)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

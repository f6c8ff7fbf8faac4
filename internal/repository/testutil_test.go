package repository

import (
	"strings"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// testTime is a fixed timestamp used wherever a test row needs one.
func testTime() time.Time {
	return time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
}

// userRow builds a single-row result matching userColumns.
func userRow(id uint64, username, email, firstName string, isHost bool) *sqlmock.Rows {
	host := 0
	if isHost {
		host = 1
	}
	return sqlmock.NewRows(strings.Split(userColumns, ",")).
		AddRow(id, username, email, firstName, "Petrova", nil, []byte("digest"), host, testTime(), testTime())
}

package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguaclub/linguaclub/internal/model"
)

func newEnrollMock(t *testing.T) (*EnrollmentRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewEnrollmentRepo(db), mock
}

func TestEnrollWritesAuditRow(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM clubs WHERE id=? LIMIT 1")).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.ClubScheduled))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO enrollments (user_id, club_id, status) VALUES (?,?,?)")).
		WithArgs(uint64(1), uint64(2), model.EnrollConfirmed).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO enrollment_audit (enrollment_id, action, old_status, new_status, changed_by) VALUES (?,?,?,?,?)")).
		WithArgs(int64(10), model.AuditInsert, nil, model.EnrollConfirmed, uint64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT created_at, updated_at FROM enrollments WHERE id=?")).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(testTime(), testTime()))
	mock.ExpectCommit()

	e, err := repo.Enroll(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), e.ID)
	assert.Equal(t, model.EnrollConfirmed, e.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollClubNotScheduled(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM clubs").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.ClubCanceled))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrClubNotOpen)
}

func TestEnrollMissingClub(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM clubs").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnrollDuplicate(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM clubs").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.ClubScheduled))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestCancelWritesAuditRow(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, status FROM enrollments").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(10, model.EnrollConfirmed))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status=? WHERE id=?")).
		WithArgs(model.EnrollCancelled, uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollment_audit").
		WithArgs(uint64(10), model.AuditUpdate, model.EnrollConfirmed, model.EnrollCancelled, uint64(1)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Cancel(context.Background(), 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAlreadyCancelledIsNoop(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, status FROM enrollments").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(10, model.EnrollCancelled))
	mock.ExpectCommit()

	require.NoError(t, repo.Cancel(context.Background(), 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelNotEnrolled(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, status FROM enrollments").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Cancel(context.Background(), 1, 2), ErrNotEnrolled)
}

func TestSetStatusByHostRejectsForeignHost(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT e.status, c.host_id FROM enrollments e JOIN clubs c").
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "host_id"}).
			AddRow(model.EnrollConfirmed, 7))
	mock.ExpectRollback()

	err := repo.SetStatusByHost(context.Background(), 10, model.EnrollAttended, 8)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSetStatusByHostWritesAudit(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT e.status, c.host_id FROM enrollments e JOIN clubs c").
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "host_id"}).
			AddRow(model.EnrollConfirmed, 7))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status=? WHERE id=?")).
		WithArgs(model.EnrollAttended, uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollment_audit").
		WithArgs(uint64(10), model.AuditUpdate, model.EnrollConfirmed, model.EnrollAttended, uint64(7)).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetStatusByHost(context.Background(), 10, model.EnrollAttended, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAuditForHostOrdersOldestFirst(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectQuery("SELECT c.host_id FROM enrollments e JOIN clubs c").
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(7))
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "action", "old_status", "new_status", "changed_by", "changed_at"}).
		AddRow(1, 10, model.AuditInsert, nil, model.EnrollConfirmed, 1, testTime()).
		AddRow(2, 10, model.AuditUpdate, model.EnrollConfirmed, model.EnrollCancelled, nil, testTime())
	mock.ExpectQuery("SELECT id, enrollment_id, action, old_status, new_status, changed_by, changed_at").
		WithArgs(uint64(10)).
		WillReturnRows(rows)

	trail, err := repo.ListAuditForHost(context.Background(), 10, 7)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Nil(t, trail[0].OldStatus)
	require.NotNil(t, trail[1].OldStatus)
	assert.Equal(t, model.EnrollConfirmed, *trail[1].OldStatus)
	assert.Nil(t, trail[1].ChangedBy)
}

func TestListAuditForHostForeignHost(t *testing.T) {
	repo, mock := newEnrollMock(t)

	mock.ExpectQuery("SELECT c.host_id FROM enrollments e JOIN clubs c").
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(7))

	_, err := repo.ListAuditForHost(context.Background(), 10, 99)
	assert.ErrorIs(t, err, ErrForbidden)
}

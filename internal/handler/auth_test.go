package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguaclub/linguaclub/internal/config"
	"github.com/linguaclub/linguaclub/internal/model"
	"github.com/linguaclub/linguaclub/internal/repository"
	"github.com/linguaclub/linguaclub/internal/utils"
)

// Low bcrypt cost keeps the tests fast.
func testConfig() config.Config {
	return config.Config{
		SessionSecret:   "test-secret",
		SessionTTLHours: 12,
		RememberTTLDays: 30,
		BcryptCost:      4,
	}
}

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAuthHandler(testConfig(),
		repository.NewUserRepo(db), repository.NewSessionRepo(db)), mock
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

var userCols = []string{"id", "username", "email", "first_name", "last_name",
	"birth_date", "password_hash", "is_host", "created_at", "updated_at"}

func storedUser(t *testing.T, id uint64, username, email, password string, isHost bool) (*model.User, *sqlmock.Rows) {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	u := &model.User{ID: id, Username: username, Email: email,
		FirstName: "Ana", LastName: "Petrova", PasswordHash: hash, IsHost: isHost,
		CreatedAt: now, UpdatedAt: now}
	host := 0
	if isHost {
		host = 1
	}
	rows := sqlmock.NewRows(userCols).
		AddRow(id, username, email, "Ana", "Petrova", nil, hash, host, now, now)
	return u, rows
}

// setAuthed mimics what the session middleware stores for a logged-in
// request.
func setAuthed(c echo.Context, u *model.User) {
	c.Set("user", u)
	c.Set("session_hash", "testhash")
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()

	mock.ExpectQuery("SELECT username,email FROM users").
		WithArgs("ana", "ana@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("ana", "ana@x.com", "Ana", "Petrova", nil, sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT created_at, updated_at FROM users").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(uint64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req, rec := jsonRequest(http.MethodPost, "/api/auth/register",
		`{"username":"ana","email":"ana@x.com","first_name":"Ana","last_name":"Petrova","password":"secret-pass"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"ana"`)
	assert.NotContains(t, rec.Body.String(), "password")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "lc_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	// Ephemeral session: no Expires on the cookie.
	assert.True(t, cookies[0].Expires.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterUsernameConflict(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()

	// The existing row matches both fields; username wins the report.
	mock.ExpectQuery("SELECT username,email FROM users").
		WithArgs("ana", "ana@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}).AddRow("ana", "ana@x.com"))

	req, rec := jsonRequest(http.MethodPost, "/api/auth/register",
		`{"username":"ana","email":"ana@x.com","first_name":"Ana","last_name":"Petrova","password":"secret-pass"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"username"`)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()

	req, rec := jsonRequest(http.MethodPost, "/api/auth/register",
		`{"username":"ana","email":"ana@x.com","first_name":"Ana","last_name":"Petrova","password":"short"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"password"`)
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()

	// bcrypt caps input at 72 bytes; anything longer must fail validation
	// instead of surfacing as a hashing error.
	req, rec := jsonRequest(http.MethodPost, "/api/auth/register",
		`{"username":"ana","email":"ana@x.com","first_name":"Ana","last_name":"Petrova","password":"`+strings.Repeat("a", 80)+`"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"password"`)
}

func TestRegisterRejectsUnderage(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()

	young := time.Now().UTC().AddDate(-10, 0, 0).Format("2006-01-02")
	req, rec := jsonRequest(http.MethodPost, "/api/auth/register",
		`{"username":"ana","email":"ana@x.com","first_name":"Ana","last_name":"Petrova","password":"secret-pass","birth_date":"`+young+`"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"birth_date"`)
}

func TestLoginSuccess(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()
	_, rows := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	mock.ExpectQuery("FROM users WHERE BINARY username=").
		WithArgs("ana", "ana").
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(uint64(4), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req, rec := jsonRequest(http.MethodPost, "/api/auth/login",
		`{"identifier":"ana","password":"secret-pass"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRememberSetsCookieExpiry(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()
	_, rows := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	mock.ExpectQuery("FROM users WHERE BINARY username=").
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	req, rec := jsonRequest(http.MethodPost, "/api/auth/login",
		`{"identifier":"ana","password":"secret-pass","remember":true}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Login(c))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.False(t, cookies[0].Expires.IsZero())
	assert.True(t, cookies[0].Expires.After(time.Now().Add(29*24*time.Hour)))
}

func TestLoginUnknownIdentifier(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()

	mock.ExpectQuery("FROM users WHERE BINARY username=").
		WithArgs("ghost", "ghost").
		WillReturnRows(sqlmock.NewRows(userCols))

	req, rec := jsonRequest(http.MethodPost, "/api/auth/login",
		`{"identifier":"ghost","password":"whatever-pass"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()
	_, rows := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	mock.ExpectQuery("FROM users WHERE BINARY username=").
		WillReturnRows(rows)

	req, rec := jsonRequest(http.MethodPost, "/api/auth/login",
		`{"identifier":"ana","password":"wrong-pass"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// Deliberately the same message as the unknown-identifier case.
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestMeRequiresAuth(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()

	req, rec := jsonRequest(http.MethodGet, "/api/auth/me", "")
	c := e.NewContext(req, rec)

	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMeEmailChangeNeedsPassword(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	req, rec := jsonRequest(http.MethodPatch, "/api/auth/me",
		`{"email":"new@x.com"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.UpdateMe(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"current_password"`)
}

func TestUpdateMeEmailChangeWrongPassword(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	req, rec := jsonRequest(http.MethodPatch, "/api/auth/me",
		`{"email":"new@x.com","current_password":"wrong-pass"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.UpdateMe(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMeEmailTaken(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id FROM users WHERE email=? AND id<>? LIMIT 1")).
		WithArgs("new@x.com", uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	req, rec := jsonRequest(http.MethodPatch, "/api/auth/me",
		`{"email":"new@x.com","current_password":"secret-pass"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.UpdateMe(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"email"`)
}

func TestUpdateMeNamesOnly(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)
	_, fresh := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET first_name=? WHERE id=?")).
		WithArgs("Mira", uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM users WHERE id=").
		WithArgs(uint64(4)).
		WillReturnRows(fresh)

	req, rec := jsonRequest(http.MethodPatch, "/api/auth/me",
		`{"first_name":"Mira"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.UpdateMe(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	req, rec := jsonRequest(http.MethodPost, "/api/auth/password",
		`{"current_password":"wrong-pass","new_password":"another-pass"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordTooShort(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	req, rec := jsonRequest(http.MethodPost, "/api/auth/password",
		`{"current_password":"secret-pass","new_password":"tiny"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"new_password"`)
}

func TestChangePasswordTooLong(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	req, rec := jsonRequest(http.MethodPost, "/api/auth/password",
		`{"current_password":"secret-pass","new_password":"`+strings.Repeat("a", 80)+`"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"new_password"`)
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash=? WHERE id=?")).
		WithArgs(sqlmock.AnyArg(), uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL")).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(uint64(4), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req, rec := jsonRequest(http.MethodPost, "/api/auth/password",
		`{"current_password":"secret-pass","new_password":"another-pass"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The client keeps working on a freshly issued session.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "lc_session", cookies[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAccountBlockedByHostedClubs(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", true)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM clubs WHERE host_id=?")).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	req, rec := jsonRequest(http.MethodDelete, "/api/auth/me",
		`{"current_password":"secret-pass"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.DeleteAccount(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"clubs"`)
}

func TestDeleteAccountClearsCookie(t *testing.T) {
	h, mock := newAuthHandler(t)
	e := echo.New()
	u, _ := storedUser(t, 4, "ana", "ana@x.com", "secret-pass", false)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM clubs WHERE host_id=?")).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM users").
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions SET revoked_at=NOW").
		WithArgs("testhash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req, rec := jsonRequest(http.MethodDelete, "/api/auth/me",
		`{"current_password":"secret-pass"}`)
	c := e.NewContext(req, rec)
	setAuthed(c, u)

	require.NoError(t, h.DeleteAccount(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "lc_session", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MinPasswordLen is the minimum accepted password length.
const MinPasswordLen = 8

// MaxPasswordLen is the maximum accepted password length in bytes.
// bcrypt only reads the first 72 bytes, so longer inputs are rejected
// up front instead of being silently truncated.
const MaxPasswordLen = 72

// MinAge is the minimum age in whole years required at registration.
const MinAge = 13

// ValidationError describes a single rejected input field.  The first
// failing field wins; callers stop at the first error instead of
// aggregating several.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Trimmed returns the whitespace-trimmed value of a raw field after
// checking required-ness and maximum length.  Length is counted in
// runes to line up with the character-counted VARCHAR columns.  A
// maxLen of zero disables the length check.
func Trimmed(raw, field string, maxLen int, required bool) (string, error) {
	v := strings.TrimSpace(raw)
	if required && v == "" {
		return "", &ValidationError{Field: field, Reason: "required"}
	}
	if maxLen > 0 && utf8.RuneCountInString(v) > maxLen {
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("too long (max %d)", maxLen)}
	}
	return v, nil
}

// EmailOK performs a coarse syntactic check: non-empty, contains an "@"
// that is neither the first nor the last character, and at most 254 bytes.
// It is deliberately not RFC-complete.
func EmailOK(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

// Age computes whole years between birth and now, subtracting one when the
// birthday has not yet been reached this year.
func Age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

// ValidateBirthDate parses raw as an ISO calendar date (YYYY-MM-DD) and
// enforces the minimum-age rule.  An empty raw value is valid and yields a
// nil date: birth date is an optional field.
func ValidateBirthDate(raw string, minAge int) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, &ValidationError{Field: "birth_date", Reason: "must be YYYY-MM-DD"}
	}
	now := time.Now().UTC()
	if d.After(now) {
		return nil, &ValidationError{Field: "birth_date", Reason: "must not be in the future"}
	}
	if Age(d, now) < minAge {
		return nil, &ValidationError{Field: "birth_date", Reason: fmt.Sprintf("minimum age is %d", minAge)}
	}
	return &d, nil
}

package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindInvalidState ErrorKind = "INVALID_STATE"
	KindForbidden    ErrorKind = "FORBIDDEN"
)

// Error is the single error type returned by the service layer.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error { return newError(KindValidation, format, args...) }
func NotFoundf(format string, args ...any) error { return newError(KindNotFound, format, args...) }
func Conflictf(format string, args ...any) error { return newError(KindConflict, format, args...) }
func InvalidStatef(format string, args ...any) error { return newError(KindInvalidState, format, args...) }
func Forbiddenf(format string, args ...any) error { return newError(KindForbidden, format, args...) }

// KindOf returns the kind of a wrapped *Error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrVisitCapacity is wrapped by the conflict raised when a visit pack is used up.
var ErrVisitCapacity = errors.New("visit capacity exceeded")

// TranslateDBError maps PostgreSQL constraint violations and transaction
// aborts onto error kinds so raw driver errors never reach callers. Other
// errors are returned unchanged.
func TranslateDBError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// SQLSTATE 23505 = unique_violation
		case "23505":
			return &Error{Kind: KindConflict, Message: duplicateMessage(pgErr.ConstraintName), Err: err}
		// 23503 = foreign_key_violation
		case "23503":
			return &Error{Kind: KindValidation, Message: "referenced record does not exist", Err: err}
		// 23514 = check_violation, 23502 = not_null_violation
		case "23514", "23502":
			return &Error{Kind: KindValidation, Message: "value violates constraint " + pgErr.ConstraintName, Err: err}
		// 22P02 = invalid_text_representation (bad enum literal or uuid)
		case "22P02":
			return &Error{Kind: KindValidation, Message: "invalid value", Err: err}
		// 40P01 = deadlock_detected, 40001 = serialization_failure
		case "40P01", "40001":
			return &Error{Kind: KindConflict, Message: "concurrent update, retry the request", Err: err}
		}
	}

	// Fallback on the message when the driver error was flattened
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint") {
		return &Error{Kind: KindConflict, Message: "record already exists", Err: err}
	}

	return err
}

func duplicateMessage(constraint string) string {
	name := strings.ToLower(constraint)
	switch {
	case strings.Contains(name, "email"):
		return "email already exists"
	case strings.Contains(name, "attendance"):
		return "attendance already recorded for this child and session"
	case strings.Contains(name, "family_links"):
		return "parent is already linked to this child"
	case strings.Contains(name, "class_sessions"):
		return "batch already has a session at this time"
	case strings.Contains(name, "progression_levels"):
		return "level number already used in this category"
	case strings.Contains(name, "code"):
		return "code already exists"
	}
	return "record already exists"
}

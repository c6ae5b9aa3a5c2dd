package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, KindConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, KindValidation},
		{"check", &pgconn.PgError{Code: "23514"}, KindValidation},
		{"bad literal", &pgconn.PgError{Code: "22P02"}, KindValidation},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, KindConflict},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, KindConflict},
		{"wrapped deadlock", fmt.Errorf("update enrollment: %w", &pgconn.PgError{Code: "40P01"}), KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateDBError(tt.err)
			if KindOf(got) != tt.want {
				t.Errorf("TranslateDBError() kind = %q, want %q", KindOf(got), tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("TranslateDBError() dropped the driver error")
			}
		})
	}

	plain := errors.New("connection reset")
	if got := TranslateDBError(plain); got != plain {
		t.Errorf("TranslateDBError() = %v, want unchanged", got)
	}
}

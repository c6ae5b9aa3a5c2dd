// Package postgres implements store.Store on PostgreSQL through database/sql
// and the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store runs every transaction at READ COMMITTED; rows that must not be
// written concurrently are taken with SELECT ... FOR UPDATE.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return models.TranslateDBError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

type tx struct {
	tx *sql.Tx
}

var _ store.Tx = (*tx)(nil)

type scanner interface {
	Scan(dest ...any) error
}

// dbErr wraps a driver error and maps constraint violations onto error kinds.
func dbErr(op string, err error) error {
	return models.TranslateDBError(fmt.Errorf("failed to %s: %w", op, err))
}

// rowErr turns sql.ErrNoRows into store.ErrNotFound.
func rowErr(what string, id any, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, store.ErrNotFound)
	}
	return dbErr("load "+what, err)
}

func (t *tx) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return dbErr(op, err)
	}
	return nil
}

// update runs an UPDATE that must touch exactly one row.
func (t *tx) update(ctx context.Context, what string, id uuid.UUID, query string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return dbErr("update "+what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr("update "+what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, store.ErrNotFound)
	}
	return nil
}

// list runs query and scans every row with scan.
func list[T any](ctx context.Context, t *tx, what, query string, args []any, scan func(scanner) (*T, error)) ([]*T, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("query "+what, err)
	}
	defer rows.Close()

	out := []*T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, dbErr("scan "+what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("query "+what, err)
	}
	return out, nil
}

// where accumulates AND-ed conditions with numbered placeholders. Every "?"
// in a condition refers to its single argument.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) archived(include bool) {
	if !include {
		w.raw("NOT is_archived")
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends ORDER BY and LIMIT/OFFSET to a query built from w.
func (w *where) page(orderBy string, opts store.ListOptions) string {
	opts = opts.Normalize()
	w.args = append(w.args, opts.Limit, opts.Offset)
	n := len(w.args)
	return fmt.Sprintf("%s ORDER BY %s LIMIT $%d OFFSET $%d", w.String(), orderBy, n-1, n)
}

func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(search)) + "%"
}

func weekdaysToArray(days []models.Weekday) pq.StringArray {
	out := make(pq.StringArray, len(days))
	for i, d := range days {
		out[i] = string(d)
	}
	return out
}

func weekdaysFromArray(arr pq.StringArray) []models.Weekday {
	out := make([]models.Weekday, len(arr))
	for i, d := range arr {
		out[i] = models.Weekday(d)
	}
	return out
}

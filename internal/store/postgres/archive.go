package postgres

import (
	"context"
	"fmt"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

// EntityKind values double as table names. Only kinds and foreign keys named
// by models.CascadePolicy ever reach the query text.
func archiveTable(kind models.EntityKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("cannot archive %s: %w", kind, store.ErrNotFound)
	}
	return string(kind), nil
}

func knownRule(rule models.CascadeRule) bool {
	for _, rules := range models.CascadePolicy {
		for _, r := range rules {
			if r == rule {
				return true
			}
		}
	}
	return false
}

func (t *tx) SetArchived(ctx context.Context, kind models.EntityKind, centerID, id uuid.UUID, archived bool, by *uuid.UUID) error {
	table, err := archiveTable(kind)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s SET is_archived = $1, updated_by = $2, updated_at = NOW() WHERE id = $3`, table)
	args := []any{archived, by, id}
	if kind.TenantScoped() {
		q += ` AND center_id = $4`
		args = append(args, centerID)
	}
	return t.update(ctx, string(kind), id, q, args...)
}

// ArchiveByParent archives live children of parentID and returns their ids
// in creation order.
func (t *tx) ArchiveByParent(ctx context.Context, rule models.CascadeRule, centerID, parentID uuid.UUID, by *uuid.UUID) ([]uuid.UUID, error) {
	if !knownRule(rule) {
		return nil, fmt.Errorf("no cascade from %s: %w", rule.Child, store.ErrNotFound)
	}
	table, err := archiveTable(rule.Child)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
		WITH archived AS (
			UPDATE %s SET is_archived = TRUE, updated_by = $1, updated_at = NOW()
			WHERE %s = $2 AND NOT is_archived`, table, rule.ForeignKey)
	args := []any{by, parentID}
	if rule.Child.TenantScoped() {
		q += ` AND center_id = $3`
		args = append(args, centerID)
	}
	q += `
			RETURNING id, created_at
		)
		SELECT id FROM archived ORDER BY created_at, id`

	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dbErr("archive "+string(rule.Child), err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, dbErr("scan archived id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("archive "+string(rule.Child), err)
	}
	return ids, nil
}

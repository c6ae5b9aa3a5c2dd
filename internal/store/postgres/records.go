package postgres

import (
	"context"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// --- billing ---

const discountCols = tenantCols + `, enrollment_id, discount_type, value, reason, approved_by`

func scanDiscount(row scanner) (*models.Discount, error) {
	d := &models.Discount{}
	err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.CreatedBy, &d.UpdatedBy, &d.CenterID, &d.IsArchived,
		&d.EnrollmentID, &d.Type, &d.Value, &d.Reason, &d.ApprovedBy)
	return d, err
}

func (t *tx) CreateDiscount(ctx context.Context, d *models.Discount) error {
	return t.exec(ctx, "create discount", `
		INSERT INTO discounts (`+discountCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, d.ID, d.CreatedAt, d.UpdatedAt, d.CreatedBy, d.UpdatedBy, d.CenterID, d.IsArchived,
		d.EnrollmentID, d.Type, d.Value, d.Reason, d.ApprovedBy)
}

func (t *tx) ListDiscounts(ctx context.Context, centerID, enrollmentID uuid.UUID, includeArchived bool) ([]*models.Discount, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.add("enrollment_id = ?", enrollmentID)
	w.archived(includeArchived)
	q := `SELECT ` + discountCols + ` FROM discounts` + w.String() + ` ORDER BY created_at, id`
	return list(ctx, t, "discounts", q, w.args, scanDiscount)
}

const paymentCols = tenantCols + `, enrollment_id, amount, discount_total, net_amount, method, status, paid_at, reference, notes`

func scanPayment(row scanner) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy, &p.CenterID, &p.IsArchived,
		&p.EnrollmentID, &p.Amount, &p.DiscountTotal, &p.NetAmount, &p.Method, &p.Status, &p.PaidAt, &p.Reference, &p.Notes)
	return p, err
}

func (t *tx) CreatePayment(ctx context.Context, p *models.Payment) error {
	return t.exec(ctx, "create payment", `
		INSERT INTO payments (`+paymentCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, p.ID, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy, p.CenterID, p.IsArchived,
		p.EnrollmentID, p.Amount, p.DiscountTotal, p.NetAmount, p.Method, p.Status, p.PaidAt, p.Reference, p.Notes)
}

// GetPayment ignores the archive flag: payments are history.
func (t *tx) GetPayment(ctx context.Context, centerID, id uuid.UUID) (*models.Payment, error) {
	w := scoped(centerID, id, true)
	p, err := scanPayment(t.tx.QueryRowContext(ctx, `SELECT `+paymentCols+` FROM payments`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("payment", id, err)
	}
	return p, nil
}

func (t *tx) ListPayments(ctx context.Context, centerID, enrollmentID uuid.UUID, opts store.ListOptions) ([]*models.Payment, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.add("enrollment_id = ?", enrollmentID)
	q := `SELECT ` + paymentCols + ` FROM payments` + w.page("created_at, id", opts)
	return list(ctx, t, "payments", q, w.args, scanPayment)
}

// --- progress ---

const progressCols = tenantCols + `, child_id, skill_id, level, notes`

func scanProgress(row scanner) (*models.SkillProgress, error) {
	p := &models.SkillProgress{}
	err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy, &p.CenterID, &p.IsArchived,
		&p.ChildID, &p.SkillID, &p.Level, &p.Notes)
	return p, err
}

// SaveSkillProgress upserts on (child_id, skill_id) and copies the stored
// id and creation stamp back into p.
func (t *tx) SaveSkillProgress(ctx context.Context, p *models.SkillProgress) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO skill_progress (`+progressCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (child_id, skill_id) DO UPDATE
		SET level = EXCLUDED.level, notes = EXCLUDED.notes, is_archived = EXCLUDED.is_archived,
			updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by
		RETURNING id, created_at, created_by
	`, p.ID, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy, p.CenterID, p.IsArchived,
		p.ChildID, p.SkillID, p.Level, p.Notes).Scan(&p.ID, &p.CreatedAt, &p.CreatedBy)
	if err != nil {
		return dbErr("save skill progress", err)
	}
	return nil
}

func (t *tx) GetSkillProgress(ctx context.Context, centerID, childID, skillID uuid.UUID) (*models.SkillProgress, error) {
	p, err := scanProgress(t.tx.QueryRowContext(ctx, `
		SELECT `+progressCols+` FROM skill_progress
		WHERE center_id = $1 AND child_id = $2 AND skill_id = $3
	`, centerID, childID, skillID))
	if err != nil {
		return nil, rowErr("skill progress for", skillID, err)
	}
	return p, nil
}

func (t *tx) ListSkillProgress(ctx context.Context, centerID, childID uuid.UUID, includeArchived bool) ([]*models.SkillProgress, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.add("child_id = ?", childID)
	w.archived(includeArchived)
	q := `SELECT ` + progressCols + ` FROM skill_progress` + w.String() + ` ORDER BY created_at, id`
	return list(ctx, t, "skill progress", q, w.args, scanProgress)
}

const attainmentCols = tenantCols + `, child_id, progression_level_id, achieved_at, assessed_by`

func scanAttainment(row scanner) (*models.LevelAttainment, error) {
	a := &models.LevelAttainment{}
	err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy, &a.CenterID, &a.IsArchived,
		&a.ChildID, &a.ProgressionLevelID, &a.AchievedAt, &a.AssessedBy)
	return a, err
}

func (t *tx) CreateLevelAttainment(ctx context.Context, a *models.LevelAttainment) error {
	return t.exec(ctx, "create level attainment", `
		INSERT INTO level_attainments (`+attainmentCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.CreatedAt, a.UpdatedAt, a.CreatedBy, a.UpdatedBy, a.CenterID, a.IsArchived,
		a.ChildID, a.ProgressionLevelID, a.AchievedAt, a.AssessedBy)
}

func (t *tx) ListLevelAttainments(ctx context.Context, centerID, childID uuid.UUID) ([]*models.LevelAttainment, error) {
	q := `SELECT ` + attainmentCols + ` FROM level_attainments
		WHERE center_id = $1 AND child_id = $2
		ORDER BY achieved_at, created_at, id`
	return list(ctx, t, "level attainments", q, []any{centerID, childID}, scanAttainment)
}

// --- report cards ---

const reportCardCols = tenantCols + `, child_id, period_start, period_end, skill_snapshot, level_snapshot,
	summary, generated_by, generated_at`

func scanReportCard(row scanner) (*models.ReportCard, error) {
	r := &models.ReportCard{}
	var skills datatypes.JSONType[[]models.SkillSnapshotEntry]
	var levels datatypes.JSONType[[]models.LevelSnapshotEntry]
	err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt, &r.CreatedBy, &r.UpdatedBy, &r.CenterID, &r.IsArchived,
		&r.ChildID, &r.PeriodStart, &r.PeriodEnd, &skills, &levels,
		&r.Summary, &r.GeneratedBy, &r.GeneratedAt)
	r.SkillSnapshot = skills.Data()
	r.LevelSnapshot = levels.Data()
	return r, err
}

// snapshot keeps an empty list encoded as [] rather than null.
func snapshot[T any](entries []T) datatypes.JSONType[[]T] {
	if entries == nil {
		entries = []T{}
	}
	return datatypes.NewJSONType(entries)
}

func (t *tx) CreateReportCard(ctx context.Context, r *models.ReportCard) error {
	return t.exec(ctx, "create report card", `
		INSERT INTO report_cards (`+reportCardCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, r.ID, r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.UpdatedBy, r.CenterID, r.IsArchived,
		r.ChildID, r.PeriodStart, r.PeriodEnd, snapshot(r.SkillSnapshot), snapshot(r.LevelSnapshot),
		r.Summary, r.GeneratedBy, r.GeneratedAt)
}

func (t *tx) GetReportCard(ctx context.Context, centerID, id uuid.UUID) (*models.ReportCard, error) {
	w := scoped(centerID, id, true)
	r, err := scanReportCard(t.tx.QueryRowContext(ctx, `SELECT `+reportCardCols+` FROM report_cards`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("report card", id, err)
	}
	return r, nil
}

func (t *tx) ListReportCards(ctx context.Context, centerID, childID uuid.UUID, opts store.ListOptions) ([]*models.ReportCard, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.add("child_id = ?", childID)
	q := `SELECT ` + reportCardCols + ` FROM report_cards` + w.page("generated_at DESC, created_at DESC, id DESC", opts)
	return list(ctx, t, "report cards", q, w.args, scanReportCard)
}

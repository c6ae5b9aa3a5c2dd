package postgres

import (
	"context"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

const leadCols = tenantCols + `, child_name, child_dob, parent_name, phone, email, source, status, notes,
	assigned_to, dead_reason, converted_at, parent_id, child_id, enrollment_id`

func scanLead(row scanner) (*models.Lead, error) {
	l := &models.Lead{}
	err := row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt, &l.CreatedBy, &l.UpdatedBy, &l.CenterID, &l.IsArchived,
		&l.ChildName, &l.ChildDOB, &l.ParentName, &l.Phone, &l.Email, &l.Source, &l.Status, &l.Notes,
		&l.AssignedTo, &l.DeadReason, &l.ConvertedAt, &l.ParentID, &l.ChildID, &l.EnrollmentID)
	return l, err
}

func (t *tx) CreateLead(ctx context.Context, l *models.Lead) error {
	return t.exec(ctx, "create lead", `
		INSERT INTO leads (`+leadCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`, l.ID, l.CreatedAt, l.UpdatedAt, l.CreatedBy, l.UpdatedBy, l.CenterID, l.IsArchived,
		l.ChildName, l.ChildDOB, l.ParentName, l.Phone, l.Email, l.Source, l.Status, l.Notes,
		l.AssignedTo, l.DeadReason, l.ConvertedAt, l.ParentID, l.ChildID, l.EnrollmentID)
}

func (t *tx) GetLead(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Lead, error) {
	w := scoped(centerID, id, includeArchived)
	l, err := scanLead(t.tx.QueryRowContext(ctx, `SELECT `+leadCols+` FROM leads`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("lead", id, err)
	}
	return l, nil
}

// LockLead holds the row until commit so two conversions of the same lead
// serialise on it.
func (t *tx) LockLead(ctx context.Context, centerID, id uuid.UUID) (*models.Lead, error) {
	w := scoped(centerID, id, false)
	l, err := scanLead(t.tx.QueryRowContext(ctx, `SELECT `+leadCols+` FROM leads`+w.String()+` FOR UPDATE`, w.args...))
	if err != nil {
		return nil, rowErr("lead", id, err)
	}
	return l, nil
}

func (t *tx) UpdateLead(ctx context.Context, l *models.Lead) error {
	return t.update(ctx, "lead", l.ID, `
		UPDATE leads
		SET child_name = $1, child_dob = $2, parent_name = $3, phone = $4, email = $5, source = $6,
			status = $7, notes = $8, assigned_to = $9, dead_reason = $10, converted_at = $11,
			parent_id = $12, child_id = $13, enrollment_id = $14, updated_at = $15, updated_by = $16
		WHERE id = $17 AND center_id = $18
	`, l.ChildName, l.ChildDOB, l.ParentName, l.Phone, l.Email, l.Source,
		l.Status, l.Notes, l.AssignedTo, l.DeadReason, l.ConvertedAt,
		l.ParentID, l.ChildID, l.EnrollmentID, l.UpdatedAt, l.UpdatedBy, l.ID, l.CenterID)
}

func (t *tx) ListLeads(ctx context.Context, centerID uuid.UUID, f store.LeadFilter) ([]*models.Lead, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.archived(f.IncludeArchived)
	if f.Status != nil {
		w.add("status = ?", *f.Status)
	}
	if f.AssignedTo != nil {
		w.add("assigned_to = ?", *f.AssignedTo)
	}
	if f.Search != "" {
		w.add("(child_name ILIKE ? OR parent_name ILIKE ? OR phone ILIKE ? OR email ILIKE ?)", likePattern(f.Search))
	}
	q := `SELECT ` + leadCols + ` FROM leads` + w.page("created_at DESC, id DESC", f.ListOptions)
	return list(ctx, t, "leads", q, w.args, scanLead)
}

const activityCols = tenantCols + `, lead_id, activity_type, old_status, new_status, description, performed_by, performed_at`

func scanActivity(row scanner) (*models.LeadActivity, error) {
	a := &models.LeadActivity{}
	err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy, &a.CenterID, &a.IsArchived,
		&a.LeadID, &a.Type, &a.OldStatus, &a.NewStatus, &a.Description, &a.PerformedBy, &a.PerformedAt)
	return a, err
}

// AppendLeadActivity inserts only; lead_activities has no update path.
func (t *tx) AppendLeadActivity(ctx context.Context, a *models.LeadActivity) error {
	return t.exec(ctx, "append lead activity", `
		INSERT INTO lead_activities (`+activityCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, a.ID, a.CreatedAt, a.UpdatedAt, a.CreatedBy, a.UpdatedBy, a.CenterID, a.IsArchived,
		a.LeadID, a.Type, a.OldStatus, a.NewStatus, a.Description, a.PerformedBy, a.PerformedAt)
}

func (t *tx) ListLeadActivities(ctx context.Context, centerID, leadID uuid.UUID) ([]*models.LeadActivity, error) {
	q := `SELECT ` + activityCols + ` FROM lead_activities
		WHERE center_id = $1 AND lead_id = $2
		ORDER BY performed_at, created_at, id`
	return list(ctx, t, "lead activities", q, []any{centerID, leadID}, scanActivity)
}

const introVisitCols = tenantCols + `, lead_id, batch_id, scheduled_at, attended_at, outcome, trainer_id, notes`

func scanIntroVisit(row scanner) (*models.IntroVisit, error) {
	v := &models.IntroVisit{}
	err := row.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt, &v.CreatedBy, &v.UpdatedBy, &v.CenterID, &v.IsArchived,
		&v.LeadID, &v.BatchID, &v.ScheduledAt, &v.AttendedAt, &v.Outcome, &v.TrainerID, &v.Notes)
	return v, err
}

func (t *tx) CreateIntroVisit(ctx context.Context, v *models.IntroVisit) error {
	return t.exec(ctx, "create intro visit", `
		INSERT INTO intro_visits (`+introVisitCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, v.ID, v.CreatedAt, v.UpdatedAt, v.CreatedBy, v.UpdatedBy, v.CenterID, v.IsArchived,
		v.LeadID, v.BatchID, v.ScheduledAt, v.AttendedAt, v.Outcome, v.TrainerID, v.Notes)
}

func (t *tx) GetIntroVisit(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.IntroVisit, error) {
	w := scoped(centerID, id, includeArchived)
	v, err := scanIntroVisit(t.tx.QueryRowContext(ctx, `SELECT `+introVisitCols+` FROM intro_visits`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("intro visit", id, err)
	}
	return v, nil
}

func (t *tx) UpdateIntroVisit(ctx context.Context, v *models.IntroVisit) error {
	return t.update(ctx, "intro visit", v.ID, `
		UPDATE intro_visits
		SET batch_id = $1, scheduled_at = $2, attended_at = $3, outcome = $4, trainer_id = $5, notes = $6,
			updated_at = $7, updated_by = $8
		WHERE id = $9 AND center_id = $10
	`, v.BatchID, v.ScheduledAt, v.AttendedAt, v.Outcome, v.TrainerID, v.Notes,
		v.UpdatedAt, v.UpdatedBy, v.ID, v.CenterID)
}

func (t *tx) ListIntroVisits(ctx context.Context, centerID, leadID uuid.UUID, includeArchived bool) ([]*models.IntroVisit, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.add("lead_id = ?", leadID)
	w.archived(includeArchived)
	q := `SELECT ` + introVisitCols + ` FROM intro_visits` + w.String() + ` ORDER BY created_at, id`
	return list(ctx, t, "intro visits", q, w.args, scanIntroVisit)
}

const followUpCols = tenantCols + `, lead_id, due_at, channel, status, outcome, assigned_to, completed_at, notes`

func scanFollowUp(row scanner) (*models.FollowUp, error) {
	f := &models.FollowUp{}
	err := row.Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt, &f.CreatedBy, &f.UpdatedBy, &f.CenterID, &f.IsArchived,
		&f.LeadID, &f.DueAt, &f.Channel, &f.Status, &f.Outcome, &f.AssignedTo, &f.CompletedAt, &f.Notes)
	return f, err
}

func (t *tx) CreateFollowUp(ctx context.Context, f *models.FollowUp) error {
	return t.exec(ctx, "create follow-up", `
		INSERT INTO follow_ups (`+followUpCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, f.ID, f.CreatedAt, f.UpdatedAt, f.CreatedBy, f.UpdatedBy, f.CenterID, f.IsArchived,
		f.LeadID, f.DueAt, f.Channel, f.Status, f.Outcome, f.AssignedTo, f.CompletedAt, f.Notes)
}

func (t *tx) GetFollowUp(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.FollowUp, error) {
	w := scoped(centerID, id, includeArchived)
	f, err := scanFollowUp(t.tx.QueryRowContext(ctx, `SELECT `+followUpCols+` FROM follow_ups`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("follow-up", id, err)
	}
	return f, nil
}

func (t *tx) UpdateFollowUp(ctx context.Context, f *models.FollowUp) error {
	return t.update(ctx, "follow-up", f.ID, `
		UPDATE follow_ups
		SET due_at = $1, channel = $2, status = $3, outcome = $4, assigned_to = $5, completed_at = $6, notes = $7,
			updated_at = $8, updated_by = $9
		WHERE id = $10 AND center_id = $11
	`, f.DueAt, f.Channel, f.Status, f.Outcome, f.AssignedTo, f.CompletedAt, f.Notes,
		f.UpdatedAt, f.UpdatedBy, f.ID, f.CenterID)
}

func (t *tx) ListFollowUps(ctx context.Context, centerID uuid.UUID, f store.FollowUpFilter) ([]*models.FollowUp, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.archived(f.IncludeArchived)
	if f.LeadID != nil {
		w.add("lead_id = ?", *f.LeadID)
	}
	if f.Status != nil {
		w.add("status = ?", *f.Status)
	}
	if f.DueBefore != nil {
		w.add("due_at < ?", *f.DueBefore)
	}
	q := `SELECT ` + followUpCols + ` FROM follow_ups` + w.page("due_at, created_at, id", f.ListOptions)
	return list(ctx, t, "follow-ups", q, w.args, scanFollowUp)
}

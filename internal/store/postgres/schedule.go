package postgres

import (
	"context"
	"fmt"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// --- batches ---

const batchCols = tenantCols + `, name, min_age_months, max_age_months, days_of_week, start_time, end_time,
	capacity, trainer_id, is_active`

func scanBatch(row scanner) (*models.Batch, error) {
	b := &models.Batch{}
	var days pq.StringArray
	err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt, &b.CreatedBy, &b.UpdatedBy, &b.CenterID, &b.IsArchived,
		&b.Name, &b.MinAgeMonths, &b.MaxAgeMonths, &days, &b.StartTime, &b.EndTime,
		&b.Capacity, &b.TrainerID, &b.IsActive)
	b.DaysOfWeek = weekdaysFromArray(days)
	return b, err
}

func (t *tx) CreateBatch(ctx context.Context, b *models.Batch) error {
	return t.exec(ctx, "create batch", `
		INSERT INTO batches (`+batchCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, b.ID, b.CreatedAt, b.UpdatedAt, b.CreatedBy, b.UpdatedBy, b.CenterID, b.IsArchived,
		b.Name, b.MinAgeMonths, b.MaxAgeMonths, weekdaysToArray(b.DaysOfWeek), b.StartTime, b.EndTime,
		b.Capacity, b.TrainerID, b.IsActive)
}

func (t *tx) GetBatch(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Batch, error) {
	w := scoped(centerID, id, includeArchived)
	b, err := scanBatch(t.tx.QueryRowContext(ctx, `SELECT `+batchCols+` FROM batches`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("batch", id, err)
	}
	return b, nil
}

func (t *tx) UpdateBatch(ctx context.Context, b *models.Batch) error {
	return t.update(ctx, "batch", b.ID, `
		UPDATE batches
		SET name = $1, min_age_months = $2, max_age_months = $3, days_of_week = $4, start_time = $5, end_time = $6,
			capacity = $7, trainer_id = $8, is_active = $9, updated_at = $10, updated_by = $11
		WHERE id = $12 AND center_id = $13
	`, b.Name, b.MinAgeMonths, b.MaxAgeMonths, weekdaysToArray(b.DaysOfWeek), b.StartTime, b.EndTime,
		b.Capacity, b.TrainerID, b.IsActive, b.UpdatedAt, b.UpdatedBy, b.ID, b.CenterID)
}

func (t *tx) ListBatches(ctx context.Context, centerID uuid.UUID, opts store.ListOptions) ([]*models.Batch, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.archived(opts.IncludeArchived)
	q := `SELECT ` + batchCols + ` FROM batches` + w.page("created_at, id", opts)
	return list(ctx, t, "batches", q, w.args, scanBatch)
}

const mappingCols = tenantCols + `, batch_id, class_type_id, curriculum_id`

func scanMapping(row scanner) (*models.BatchMapping, error) {
	m := &models.BatchMapping{}
	err := row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt, &m.CreatedBy, &m.UpdatedBy, &m.CenterID, &m.IsArchived,
		&m.BatchID, &m.ClassTypeID, &m.CurriculumID)
	return m, err
}

// SaveBatchMapping replaces an existing mapping in place, keeping its id and
// creation stamp, which are copied back into m.
func (t *tx) SaveBatchMapping(ctx context.Context, m *models.BatchMapping) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO batch_mappings (`+mappingCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (batch_id) DO UPDATE
		SET class_type_id = EXCLUDED.class_type_id, curriculum_id = EXCLUDED.curriculum_id,
			is_archived = EXCLUDED.is_archived, updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by
		RETURNING id, created_at, created_by
	`, m.ID, m.CreatedAt, m.UpdatedAt, m.CreatedBy, m.UpdatedBy, m.CenterID, m.IsArchived,
		m.BatchID, m.ClassTypeID, m.CurriculumID).Scan(&m.ID, &m.CreatedAt, &m.CreatedBy)
	if err != nil {
		return dbErr("save batch mapping", err)
	}
	return nil
}

func (t *tx) GetBatchMapping(ctx context.Context, centerID, batchID uuid.UUID) (*models.BatchMapping, error) {
	m, err := scanMapping(t.tx.QueryRowContext(ctx, `
		SELECT `+mappingCols+` FROM batch_mappings
		WHERE center_id = $1 AND batch_id = $2 AND NOT is_archived
	`, centerID, batchID))
	if err != nil {
		return nil, rowErr("batch mapping for", batchID, err)
	}
	return m, nil
}

// --- enrollments ---

const enrollmentCols = tenantCols + `, child_id, batch_id, lead_id, plan_type, start_date, end_date,
	visits_included, visits_used, fee_amount, status, version`

func scanEnrollment(row scanner) (*models.Enrollment, error) {
	e := &models.Enrollment{}
	err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt, &e.CreatedBy, &e.UpdatedBy, &e.CenterID, &e.IsArchived,
		&e.ChildID, &e.BatchID, &e.LeadID, &e.PlanType, &e.StartDate, &e.EndDate,
		&e.VisitsIncluded, &e.VisitsUsed, &e.FeeAmount, &e.Status, &e.Version)
	return e, err
}

func (t *tx) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	return t.exec(ctx, "create enrollment", `
		INSERT INTO enrollments (`+enrollmentCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, e.ID, e.CreatedAt, e.UpdatedAt, e.CreatedBy, e.UpdatedBy, e.CenterID, e.IsArchived,
		e.ChildID, e.BatchID, e.LeadID, e.PlanType, e.StartDate, e.EndDate,
		e.VisitsIncluded, e.VisitsUsed, e.FeeAmount, e.Status, e.Version)
}

func (t *tx) GetEnrollment(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Enrollment, error) {
	w := scoped(centerID, id, includeArchived)
	e, err := scanEnrollment(t.tx.QueryRowContext(ctx, `SELECT `+enrollmentCols+` FROM enrollments`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("enrollment", id, err)
	}
	return e, nil
}

func (t *tx) LockEnrollment(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Enrollment, error) {
	w := scoped(centerID, id, includeArchived)
	e, err := scanEnrollment(t.tx.QueryRowContext(ctx, `SELECT `+enrollmentCols+` FROM enrollments`+w.String()+` FOR UPDATE`, w.args...))
	if err != nil {
		return nil, rowErr("enrollment", id, err)
	}
	return e, nil
}

// UpdateEnrollment writes only when the stored version still matches e.Version.
func (t *tx) UpdateEnrollment(ctx context.Context, e *models.Enrollment) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE enrollments
		SET batch_id = $1, plan_type = $2, start_date = $3, end_date = $4, visits_included = $5,
			visits_used = $6, fee_amount = $7, status = $8, updated_at = $9, updated_by = $10,
			version = version + 1
		WHERE id = $11 AND center_id = $12 AND version = $13
	`, e.BatchID, e.PlanType, e.StartDate, e.EndDate, e.VisitsIncluded,
		e.VisitsUsed, e.FeeAmount, e.Status, e.UpdatedAt, e.UpdatedBy,
		e.ID, e.CenterID, e.Version)
	if err != nil {
		return dbErr("update enrollment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr("update enrollment", err)
	}
	if n == 0 {
		var exists bool
		err := t.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM enrollments WHERE id = $1 AND center_id = $2)`,
			e.ID, e.CenterID).Scan(&exists)
		if err != nil {
			return dbErr("check enrollment", err)
		}
		if !exists {
			return fmt.Errorf("enrollment %s: %w", e.ID, store.ErrNotFound)
		}
		return models.Conflictf("enrollment %s was modified concurrently", e.ID)
	}
	e.Version++
	return nil
}

func (t *tx) ListEnrollments(ctx context.Context, centerID uuid.UUID, f store.EnrollmentFilter) ([]*models.Enrollment, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.archived(f.IncludeArchived)
	if f.ChildID != nil {
		w.add("child_id = ?", *f.ChildID)
	}
	if f.BatchID != nil {
		w.add("batch_id = ?", *f.BatchID)
	}
	if f.Status != nil {
		w.add("status = ?", *f.Status)
	}
	q := `SELECT ` + enrollmentCols + ` FROM enrollments` + w.page("created_at, id", f.ListOptions)
	return list(ctx, t, "enrollments", q, w.args, scanEnrollment)
}

func (t *tx) CountActiveEnrollments(ctx context.Context, centerID, batchID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM enrollments
		WHERE center_id = $1 AND batch_id = $2 AND status = $3 AND NOT is_archived
	`, centerID, batchID, models.EnrollmentActive).Scan(&n)
	if err != nil {
		return 0, dbErr("count enrollments", err)
	}
	return n, nil
}

func (t *tx) ListLapsedEnrollments(ctx context.Context, asOf time.Time) ([]*models.Enrollment, error) {
	q := `SELECT ` + enrollmentCols + ` FROM enrollments
		WHERE status = $1 AND end_date IS NOT NULL AND end_date < $2 AND NOT is_archived
		ORDER BY created_at, id`
	return list(ctx, t, "lapsed enrollments", q, []any{models.EnrollmentActive, models.DateOnly(asOf)}, scanEnrollment)
}

// --- sessions & attendance ---

const sessionCols = tenantCols + `, batch_id, session_date, start_time, end_time, trainer_id, status, notes`

func scanSession(row scanner) (*models.ClassSession, error) {
	s := &models.ClassSession{}
	err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.CreatedBy, &s.UpdatedBy, &s.CenterID, &s.IsArchived,
		&s.BatchID, &s.SessionDate, &s.StartTime, &s.EndTime, &s.TrainerID, &s.Status, &s.Notes)
	return s, err
}

func (t *tx) CreateClassSession(ctx context.Context, s *models.ClassSession) error {
	return t.exec(ctx, "create class session", `
		INSERT INTO class_sessions (`+sessionCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, s.ID, s.CreatedAt, s.UpdatedAt, s.CreatedBy, s.UpdatedBy, s.CenterID, s.IsArchived,
		s.BatchID, s.SessionDate, s.StartTime, s.EndTime, s.TrainerID, s.Status, s.Notes)
}

func (t *tx) GetClassSession(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.ClassSession, error) {
	w := scoped(centerID, id, includeArchived)
	s, err := scanSession(t.tx.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM class_sessions`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("class session", id, err)
	}
	return s, nil
}

func (t *tx) UpdateClassSession(ctx context.Context, s *models.ClassSession) error {
	return t.update(ctx, "class session", s.ID, `
		UPDATE class_sessions
		SET start_time = $1, end_time = $2, trainer_id = $3, status = $4, notes = $5, updated_at = $6, updated_by = $7
		WHERE id = $8 AND center_id = $9
	`, s.StartTime, s.EndTime, s.TrainerID, s.Status, s.Notes, s.UpdatedAt, s.UpdatedBy, s.ID, s.CenterID)
}

func (t *tx) ListClassSessions(ctx context.Context, centerID uuid.UUID, f store.SessionFilter) ([]*models.ClassSession, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.archived(f.IncludeArchived)
	if f.BatchID != nil {
		w.add("batch_id = ?", *f.BatchID)
	}
	if f.From != nil {
		w.add("session_date >= ?", models.DateOnly(*f.From))
	}
	if f.To != nil {
		w.add("session_date <= ?", models.DateOnly(*f.To))
	}
	q := `SELECT ` + sessionCols + ` FROM class_sessions` + w.page("session_date, start_time, created_at, id", f.ListOptions)
	return list(ctx, t, "class sessions", q, w.args, scanSession)
}

const attendanceCols = tenantCols + `, session_id, child_id, enrollment_id, status, marked_by, marked_at, notes`

func scanAttendance(row scanner) (*models.Attendance, error) {
	a := &models.Attendance{}
	err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy, &a.CenterID, &a.IsArchived,
		&a.SessionID, &a.ChildID, &a.EnrollmentID, &a.Status, &a.MarkedBy, &a.MarkedAt, &a.Notes)
	return a, err
}

func (t *tx) CreateAttendance(ctx context.Context, a *models.Attendance) error {
	return t.exec(ctx, "create attendance", `
		INSERT INTO attendance (`+attendanceCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, a.ID, a.CreatedAt, a.UpdatedAt, a.CreatedBy, a.UpdatedBy, a.CenterID, a.IsArchived,
		a.SessionID, a.ChildID, a.EnrollmentID, a.Status, a.MarkedBy, a.MarkedAt, a.Notes)
}

func (t *tx) GetAttendance(ctx context.Context, centerID, id uuid.UUID) (*models.Attendance, error) {
	w := scoped(centerID, id, true)
	a, err := scanAttendance(t.tx.QueryRowContext(ctx, `SELECT `+attendanceCols+` FROM attendance`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("attendance", id, err)
	}
	return a, nil
}

// FindAttendance locks the row so concurrent re-marks of one child serialise.
func (t *tx) FindAttendance(ctx context.Context, centerID, sessionID, childID uuid.UUID) (*models.Attendance, error) {
	a, err := scanAttendance(t.tx.QueryRowContext(ctx, `
		SELECT `+attendanceCols+` FROM attendance
		WHERE center_id = $1 AND session_id = $2 AND child_id = $3
		FOR UPDATE
	`, centerID, sessionID, childID))
	if err != nil {
		return nil, rowErr("attendance for child", childID, err)
	}
	return a, nil
}

func (t *tx) UpdateAttendance(ctx context.Context, a *models.Attendance) error {
	return t.update(ctx, "attendance", a.ID, `
		UPDATE attendance
		SET enrollment_id = $1, status = $2, marked_by = $3, marked_at = $4, notes = $5, updated_at = $6, updated_by = $7
		WHERE id = $8 AND center_id = $9
	`, a.EnrollmentID, a.Status, a.MarkedBy, a.MarkedAt, a.Notes, a.UpdatedAt, a.UpdatedBy, a.ID, a.CenterID)
}

func (t *tx) ListAttendance(ctx context.Context, centerID uuid.UUID, f store.AttendanceFilter) ([]*models.Attendance, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.archived(f.IncludeArchived)
	if f.SessionID != nil {
		w.add("session_id = ?", *f.SessionID)
	}
	if f.ChildID != nil {
		w.add("child_id = ?", *f.ChildID)
	}
	if f.EnrollmentID != nil {
		w.add("enrollment_id = ?", *f.EnrollmentID)
	}
	q := `SELECT ` + attendanceCols + ` FROM attendance` + w.page("created_at, id", f.ListOptions)
	return list(ctx, t, "attendance", q, w.args, scanAttendance)
}

// Package store defines the persistence contract the service layer runs on.
//
// Every read takes the owning center explicitly and every list or lookup
// states whether archived rows are wanted; there is no implicit filtering.
package store

import (
	"context"
	"errors"
	"time"

	"fitkids-crm/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ListOptions is accepted by every list query.
type ListOptions struct {
	IncludeArchived bool
	Offset          int
	Limit           int
}

// Normalize clamps offset and limit into their allowed ranges.
func (o ListOptions) Normalize() ListOptions {
	if o.Offset < 0 {
		o.Offset = 0
	}
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultLimit
	case o.Limit > MaxLimit:
		o.Limit = MaxLimit
	}
	return o
}

type ChildFilter struct {
	ListOptions
	Search string
}

type LeadFilter struct {
	ListOptions
	Status     *models.LeadStatus
	AssignedTo *uuid.UUID
	Search     string
}

type FollowUpFilter struct {
	ListOptions
	LeadID    *uuid.UUID
	Status    *models.FollowUpStatus
	DueBefore *time.Time
}

type EnrollmentFilter struct {
	ListOptions
	ChildID *uuid.UUID
	BatchID *uuid.UUID
	Status  *models.EnrollmentStatus
}

type SessionFilter struct {
	ListOptions
	BatchID *uuid.UUID
	From    *time.Time
	To      *time.Time
}

type AttendanceFilter struct {
	ListOptions
	SessionID    *uuid.UUID
	ChildID      *uuid.UUID
	EnrollmentID *uuid.UUID
}

// Store opens transactions. Implementations must serialise conflicting
// writers on the same Lead or Enrollment row.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of queries available inside one transaction.
type Tx interface {
	CreateCenter(ctx context.Context, c *models.Center) error
	GetCenter(ctx context.Context, id uuid.UUID) (*models.Center, error)
	ListCenters(ctx context.Context, opts ListOptions) ([]*models.Center, error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateParent(ctx context.Context, p *models.Parent) error
	GetParent(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Parent, error)

	CreateChild(ctx context.Context, c *models.Child) error
	GetChild(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Child, error)
	UpdateChild(ctx context.Context, c *models.Child) error
	ListChildren(ctx context.Context, centerID uuid.UUID, f ChildFilter) ([]*models.Child, error)

	CreateFamilyLink(ctx context.Context, l *models.FamilyLink) error
	UpdateFamilyLink(ctx context.Context, l *models.FamilyLink) error
	ListFamilyLinks(ctx context.Context, centerID, childID uuid.UUID, includeArchived bool) ([]*models.FamilyLink, error)

	CreateLead(ctx context.Context, l *models.Lead) error
	GetLead(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Lead, error)
	// LockLead reads a non-archived lead and holds a row lock until commit.
	LockLead(ctx context.Context, centerID, id uuid.UUID) (*models.Lead, error)
	UpdateLead(ctx context.Context, l *models.Lead) error
	ListLeads(ctx context.Context, centerID uuid.UUID, f LeadFilter) ([]*models.Lead, error)

	// AppendLeadActivity is the only write path for activities.
	AppendLeadActivity(ctx context.Context, a *models.LeadActivity) error
	ListLeadActivities(ctx context.Context, centerID, leadID uuid.UUID) ([]*models.LeadActivity, error)

	CreateIntroVisit(ctx context.Context, v *models.IntroVisit) error
	GetIntroVisit(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.IntroVisit, error)
	UpdateIntroVisit(ctx context.Context, v *models.IntroVisit) error
	ListIntroVisits(ctx context.Context, centerID, leadID uuid.UUID, includeArchived bool) ([]*models.IntroVisit, error)

	CreateFollowUp(ctx context.Context, f *models.FollowUp) error
	GetFollowUp(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.FollowUp, error)
	UpdateFollowUp(ctx context.Context, f *models.FollowUp) error
	ListFollowUps(ctx context.Context, centerID uuid.UUID, f FollowUpFilter) ([]*models.FollowUp, error)

	CreateClassType(ctx context.Context, c *models.ClassType) error
	GetClassType(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.ClassType, error)

	CreateCurriculum(ctx context.Context, c *models.Curriculum) error
	GetCurriculum(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.Curriculum, error)
	// ListCurricula returns global curricula plus those owned by centerID.
	ListCurricula(ctx context.Context, centerID uuid.UUID, opts ListOptions) ([]*models.Curriculum, error)

	CreateSkill(ctx context.Context, s *models.Skill) error
	GetSkill(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.Skill, error)
	ListSkills(ctx context.Context, curriculumID uuid.UUID, includeArchived bool) ([]*models.Skill, error)

	CreateActivityCategory(ctx context.Context, c *models.ActivityCategory) error
	GetActivityCategory(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.ActivityCategory, error)
	ListActivityCategories(ctx context.Context, curriculumID uuid.UUID, includeArchived bool) ([]*models.ActivityCategory, error)

	CreateProgressionLevel(ctx context.Context, l *models.ProgressionLevel) error
	GetProgressionLevel(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.ProgressionLevel, error)
	// ListProgressionLevels is ordered by level number.
	ListProgressionLevels(ctx context.Context, categoryID uuid.UUID, includeArchived bool) ([]*models.ProgressionLevel, error)

	CreateBatch(ctx context.Context, b *models.Batch) error
	GetBatch(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Batch, error)
	UpdateBatch(ctx context.Context, b *models.Batch) error
	ListBatches(ctx context.Context, centerID uuid.UUID, opts ListOptions) ([]*models.Batch, error)

	// SaveBatchMapping inserts or replaces the mapping of m.BatchID.
	SaveBatchMapping(ctx context.Context, m *models.BatchMapping) error
	GetBatchMapping(ctx context.Context, centerID, batchID uuid.UUID) (*models.BatchMapping, error)

	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	GetEnrollment(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Enrollment, error)
	// LockEnrollment reads an enrollment and holds a row lock until commit.
	// Archived rows are only visible with includeArchived.
	LockEnrollment(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Enrollment, error)
	// UpdateEnrollment fails with a conflict when e.Version is stale and
	// bumps e.Version on success.
	UpdateEnrollment(ctx context.Context, e *models.Enrollment) error
	ListEnrollments(ctx context.Context, centerID uuid.UUID, f EnrollmentFilter) ([]*models.Enrollment, error)
	CountActiveEnrollments(ctx context.Context, centerID, batchID uuid.UUID) (int, error)
	// ListLapsedEnrollments returns ACTIVE enrollments of every center whose
	// end date is before asOf.
	ListLapsedEnrollments(ctx context.Context, asOf time.Time) ([]*models.Enrollment, error)

	CreateClassSession(ctx context.Context, s *models.ClassSession) error
	GetClassSession(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.ClassSession, error)
	UpdateClassSession(ctx context.Context, s *models.ClassSession) error
	ListClassSessions(ctx context.Context, centerID uuid.UUID, f SessionFilter) ([]*models.ClassSession, error)

	CreateAttendance(ctx context.Context, a *models.Attendance) error
	GetAttendance(ctx context.Context, centerID, id uuid.UUID) (*models.Attendance, error)
	FindAttendance(ctx context.Context, centerID, sessionID, childID uuid.UUID) (*models.Attendance, error)
	UpdateAttendance(ctx context.Context, a *models.Attendance) error
	ListAttendance(ctx context.Context, centerID uuid.UUID, f AttendanceFilter) ([]*models.Attendance, error)

	CreateDiscount(ctx context.Context, d *models.Discount) error
	ListDiscounts(ctx context.Context, centerID, enrollmentID uuid.UUID, includeArchived bool) ([]*models.Discount, error)

	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, centerID, id uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, centerID, enrollmentID uuid.UUID, opts ListOptions) ([]*models.Payment, error)

	// SaveSkillProgress inserts or replaces the row for (ChildID, SkillID).
	SaveSkillProgress(ctx context.Context, p *models.SkillProgress) error
	GetSkillProgress(ctx context.Context, centerID, childID, skillID uuid.UUID) (*models.SkillProgress, error)
	ListSkillProgress(ctx context.Context, centerID, childID uuid.UUID, includeArchived bool) ([]*models.SkillProgress, error)

	CreateLevelAttainment(ctx context.Context, a *models.LevelAttainment) error
	ListLevelAttainments(ctx context.Context, centerID, childID uuid.UUID) ([]*models.LevelAttainment, error)

	CreateReportCard(ctx context.Context, r *models.ReportCard) error
	GetReportCard(ctx context.Context, centerID, id uuid.UUID) (*models.ReportCard, error)
	ListReportCards(ctx context.Context, centerID, childID uuid.UUID, opts ListOptions) ([]*models.ReportCard, error)

	// SetArchived flips is_archived on one row. centerID is ignored for
	// kinds that are not tenant scoped.
	SetArchived(ctx context.Context, kind models.EntityKind, centerID, id uuid.UUID, archived bool, by *uuid.UUID) error
	// ArchiveByParent archives the rows of kind whose foreignKey equals
	// parentID and returns their ids.
	ArchiveByParent(ctx context.Context, rule models.CascadeRule, centerID, parentID uuid.UUID, by *uuid.UUID) ([]uuid.UUID, error)
}

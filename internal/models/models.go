package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit carries the identity and bookkeeping columns shared by every table.
type Audit struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	UpdatedBy *uuid.UUID `json:"updated_by,omitempty"`
}

func (a Audit) Key() uuid.UUID { return a.ID }

// Stamp records a modification.
func (a *Audit) Stamp(at time.Time, by *uuid.UUID) {
	a.UpdatedAt = at
	a.UpdatedBy = by
}

// Tenant carries the owning center and the soft-delete flag.
type Tenant struct {
	CenterID   uuid.UUID `json:"center_id"`
	IsArchived bool      `json:"is_archived"`
}

func (t Tenant) Center() uuid.UUID { return t.CenterID }
func (t Tenant) Archived() bool { return t.IsArchived }
func (t *Tenant) SetArchived(v bool) { t.IsArchived = v }

type Center struct {
	Audit
	Name     string `json:"name"`
	Code     string `json:"code"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Timezone string `json:"timezone"`
	IsActive bool   `json:"is_active"`
}

type User struct {
	Audit
	CenterID     *uuid.UUID `json:"center_id,omitempty"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
}

type Parent struct {
	Audit
	Tenant
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type Child struct {
	Audit
	Tenant
	FullName     string    `json:"full_name"`
	DateOfBirth  time.Time `json:"date_of_birth"`
	Gender       Gender    `json:"gender"`
	MedicalNotes string    `json:"medical_notes,omitempty"`
}

type FamilyLink struct {
	Audit
	Tenant
	ParentID         uuid.UUID    `json:"parent_id"`
	ChildID          uuid.UUID    `json:"child_id"`
	Relationship     Relationship `json:"relationship"`
	IsPrimaryContact bool         `json:"is_primary_contact"`
}

type Lead struct {
	Audit
	Tenant
	ChildName    string     `json:"child_name"`
	ChildDOB     *time.Time `json:"child_dob,omitempty"`
	ParentName   string     `json:"parent_name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email,omitempty"`
	Source       LeadSource `json:"source"`
	Status       LeadStatus `json:"status"`
	Notes        string     `json:"notes,omitempty"`
	AssignedTo   *uuid.UUID `json:"assigned_to,omitempty"`
	DeadReason   string     `json:"dead_reason,omitempty"`
	ConvertedAt  *time.Time `json:"converted_at,omitempty"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	ChildID      *uuid.UUID `json:"child_id,omitempty"`
	EnrollmentID *uuid.UUID `json:"enrollment_id,omitempty"`
}

// LeadActivity is an append-only audit row for a lead.
type LeadActivity struct {
	Audit
	Tenant
	LeadID      uuid.UUID    `json:"lead_id"`
	Type        ActivityType `json:"activity_type"`
	OldStatus   *LeadStatus  `json:"old_status,omitempty"`
	NewStatus   *LeadStatus  `json:"new_status,omitempty"`
	Description string       `json:"description"`
	PerformedBy *uuid.UUID   `json:"performed_by,omitempty"`
	PerformedAt time.Time    `json:"performed_at"`
}

type IntroVisit struct {
	Audit
	Tenant
	LeadID      uuid.UUID     `json:"lead_id"`
	BatchID     *uuid.UUID    `json:"batch_id,omitempty"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	AttendedAt  *time.Time    `json:"attended_at,omitempty"`
	Outcome     *IntroOutcome `json:"outcome,omitempty"`
	TrainerID   *uuid.UUID    `json:"trainer_id,omitempty"`
	Notes       string        `json:"notes,omitempty"`
}

// Resolved reports whether an outcome has already been recorded.
func (v *IntroVisit) Resolved() bool { return v.Outcome != nil }

type FollowUp struct {
	Audit
	Tenant
	LeadID      uuid.UUID        `json:"lead_id"`
	DueAt       time.Time        `json:"due_at"`
	Channel     FollowUpChannel  `json:"channel"`
	Status      FollowUpStatus   `json:"status"`
	Outcome     *FollowUpOutcome `json:"outcome,omitempty"`
	AssignedTo  *uuid.UUID       `json:"assigned_to,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}

type Batch struct {
	Audit
	Tenant
	Name         string     `json:"name"`
	MinAgeMonths int        `json:"min_age_months"`
	MaxAgeMonths int        `json:"max_age_months"`
	DaysOfWeek   []Weekday  `json:"days_of_week"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	Capacity     int        `json:"capacity"`
	TrainerID    *uuid.UUID `json:"trainer_id,omitempty"`
	IsActive     bool       `json:"is_active"`
}

// ClassType is global when CenterID is nil.
type ClassType struct {
	Audit
	CenterID    *uuid.UUID `json:"center_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	IsArchived  bool       `json:"is_archived"`
}

func (c ClassType) Archived() bool { return c.IsArchived }
func (c *ClassType) SetArchived(b bool) { c.IsArchived = b }

// Curriculum is global when CenterID is nil.
type Curriculum struct {
	Audit
	CenterID    *uuid.UUID     `json:"center_id,omitempty"`
	Name        string         `json:"name"`
	Type        CurriculumType `json:"curriculum_type"`
	Description string         `json:"description,omitempty"`
	IsArchived  bool           `json:"is_archived"`
}

func (c Curriculum) Archived() bool { return c.IsArchived }
func (c *Curriculum) SetArchived(b bool) { c.IsArchived = b }

// VisibleTo reports whether a center may use the curriculum.
func (c *Curriculum) VisibleTo(centerID uuid.UUID) bool {
	return c.CenterID == nil || *c.CenterID == centerID
}

type Skill struct {
	Audit
	CurriculumID uuid.UUID `json:"curriculum_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	DisplayOrder int       `json:"display_order"`
	IsArchived   bool      `json:"is_archived"`
}

func (s Skill) Archived() bool { return s.IsArchived }
func (s *Skill) SetArchived(b bool) { s.IsArchived = b }

type ActivityCategory struct {
	Audit
	CurriculumID uuid.UUID `json:"curriculum_id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"display_order"`
	IsArchived   bool      `json:"is_archived"`
}

func (a ActivityCategory) Archived() bool { return a.IsArchived }
func (a *ActivityCategory) SetArchived(b bool) { a.IsArchived = b }

type ProgressionLevel struct {
	Audit
	CategoryID  uuid.UUID `json:"category_id"`
	LevelNumber int       `json:"level_number"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsArchived  bool      `json:"is_archived"`
}

func (p ProgressionLevel) Archived() bool { return p.IsArchived }
func (p *ProgressionLevel) SetArchived(b bool) { p.IsArchived = b }

type BatchMapping struct {
	Audit
	Tenant
	BatchID      uuid.UUID `json:"batch_id"`
	ClassTypeID  uuid.UUID `json:"class_type_id"`
	CurriculumID uuid.UUID `json:"curriculum_id"`
}

type Enrollment struct {
	Audit
	Tenant
	ChildID        uuid.UUID        `json:"child_id"`
	BatchID        uuid.UUID        `json:"batch_id"`
	LeadID         *uuid.UUID       `json:"lead_id,omitempty"`
	PlanType       PlanType         `json:"plan_type"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	VisitsIncluded *int             `json:"visits_included,omitempty"`
	VisitsUsed     int              `json:"visits_used"`
	FeeAmount      int64            `json:"fee_amount"`
	Status         EnrollmentStatus `json:"status"`
	Version        int              `json:"version"`
}

// VisitsRemaining returns nil for plans without a visit cap.
func (e *Enrollment) VisitsRemaining() *int {
	if e.VisitsIncluded == nil {
		return nil
	}
	n := *e.VisitsIncluded - e.VisitsUsed
	return &n
}

type ClassSession struct {
	Audit
	Tenant
	BatchID     uuid.UUID     `json:"batch_id"`
	SessionDate time.Time     `json:"session_date"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	TrainerID   *uuid.UUID    `json:"trainer_id,omitempty"`
	Status      SessionStatus `json:"status"`
	Notes       string        `json:"notes,omitempty"`
}

type Attendance struct {
	Audit
	Tenant
	SessionID    uuid.UUID        `json:"session_id"`
	ChildID      uuid.UUID        `json:"child_id"`
	EnrollmentID *uuid.UUID       `json:"enrollment_id,omitempty"`
	Status       AttendanceStatus `json:"status"`
	MarkedBy     *uuid.UUID       `json:"marked_by,omitempty"`
	MarkedAt     time.Time        `json:"marked_at"`
	Notes        string           `json:"notes,omitempty"`
}

type Discount struct {
	Audit
	Tenant
	EnrollmentID uuid.UUID    `json:"enrollment_id"`
	Type         DiscountType `json:"discount_type"`
	Value        int64        `json:"value"`
	Reason       string       `json:"reason,omitempty"`
	ApprovedBy   *uuid.UUID   `json:"approved_by,omitempty"`
}

type Payment struct {
	Audit
	Tenant
	EnrollmentID  uuid.UUID     `json:"enrollment_id"`
	Amount        int64         `json:"amount"`
	DiscountTotal int64         `json:"discount_total"`
	NetAmount     int64         `json:"net_amount"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	PaidAt        time.Time     `json:"paid_at"`
	Reference     string        `json:"reference,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

type SkillProgress struct {
	Audit
	Tenant
	ChildID uuid.UUID  `json:"child_id"`
	SkillID uuid.UUID  `json:"skill_id"`
	Level   SkillLevel `json:"level"`
	Notes   string     `json:"notes,omitempty"`
}

// LevelAttainment records that a child passed one progression level.
type LevelAttainment struct {
	Audit
	Tenant
	ChildID            uuid.UUID  `json:"child_id"`
	ProgressionLevelID uuid.UUID  `json:"progression_level_id"`
	AchievedAt         time.Time  `json:"achieved_at"`
	AssessedBy         *uuid.UUID `json:"assessed_by,omitempty"`
}

// SkillSnapshotEntry is one frozen skill line on a report card.
type SkillSnapshotEntry struct {
	SkillID      uuid.UUID  `json:"skill_id"`
	SkillName    string     `json:"skill_name"`
	CurriculumID uuid.UUID  `json:"curriculum_id"`
	Level        SkillLevel `json:"level"`
	Notes        string     `json:"notes,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// LevelSnapshotEntry is the highest level attained in one category.
type LevelSnapshotEntry struct {
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name"`
	LevelNumber  int       `json:"level_number"`
	LevelName    string    `json:"level_name"`
}

// ReportCard is immutable once generated.
type ReportCard struct {
	Audit
	Tenant
	ChildID       uuid.UUID            `json:"child_id"`
	PeriodStart   time.Time            `json:"period_start"`
	PeriodEnd     time.Time            `json:"period_end"`
	SkillSnapshot []SkillSnapshotEntry `json:"skill_snapshot"`
	LevelSnapshot []LevelSnapshotEntry `json:"level_snapshot"`
	Summary       string               `json:"summary,omitempty"`
	GeneratedBy   *uuid.UUID           `json:"generated_by,omitempty"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// LeadDetail bundles a lead with its visits, follow-ups and trail.
type LeadDetail struct {
	Lead       *Lead           `json:"lead"`
	Visits     []*IntroVisit   `json:"intro_visits"`
	FollowUps  []*FollowUp     `json:"follow_ups"`
	Activities []*LeadActivity `json:"activities"`
}

type LeadListItem struct {
	Lead       *Lead  `json:"lead"`
	NextAction string `json:"next_action"`
}

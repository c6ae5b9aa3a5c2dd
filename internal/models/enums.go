package models

import "strings"

// Enum is implemented by every closed string enumeration in this package.
type Enum interface {
	Valid() bool
}

func parseEnum[T interface {
	~string
	Enum
}](field, raw string) (T, error) {
	v := T(strings.ToUpper(strings.TrimSpace(raw)))
	if !v.Valid() {
		return v, Validationf("invalid %s: %q", field, raw)
	}
	return v, nil
}

// Role is a staff role.
type Role string

const (
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RoleCenterAdmin   Role = "CENTER_ADMIN"
	RoleCenterManager Role = "CENTER_MANAGER"
	RoleTrainer       Role = "TRAINER"
	RoleCounselor     Role = "COUNSELOR"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCenterAdmin, RoleCenterManager, RoleTrainer, RoleCounselor:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) { return parseEnum[Role]("role", s) }

// LeadStatus is the position of a lead in the enquiry pipeline.
type LeadStatus string

const (
	LeadNew            LeadStatus = "NEW"
	LeadContacted      LeadStatus = "CONTACTED"
	LeadIntroScheduled LeadStatus = "INTRO_SCHEDULED"
	LeadIntroAttended  LeadStatus = "INTRO_ATTENDED"
	LeadFollowUp       LeadStatus = "FOLLOW_UP"
	LeadConverted      LeadStatus = "CONVERTED"
	LeadDead           LeadStatus = "DEAD"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadIntroScheduled, LeadIntroAttended, LeadFollowUp, LeadConverted, LeadDead:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s LeadStatus) Terminal() bool {
	return s == LeadConverted || s == LeadDead
}

func ParseLeadStatus(s string) (LeadStatus, error) { return parseEnum[LeadStatus]("lead status", s) }

type LeadSource string

const (
	SourceWalkIn      LeadSource = "WALK_IN"
	SourcePhone       LeadSource = "PHONE"
	SourceWebsite     LeadSource = "WEBSITE"
	SourceReferral    LeadSource = "REFERRAL"
	SourceSocialMedia LeadSource = "SOCIAL_MEDIA"
	SourceEvent       LeadSource = "EVENT"
	SourceOther       LeadSource = "OTHER"
)

func (s LeadSource) Valid() bool {
	switch s {
	case SourceWalkIn, SourcePhone, SourceWebsite, SourceReferral, SourceSocialMedia, SourceEvent, SourceOther:
		return true
	}
	return false
}

func ParseLeadSource(s string) (LeadSource, error) { return parseEnum[LeadSource]("lead source", s) }

// ActivityType classifies a LeadActivity row.
type ActivityType string

const (
	ActivityCreated           ActivityType = "CREATED"
	ActivityStatusChange      ActivityType = "STATUS_CHANGE"
	ActivityIntroScheduled    ActivityType = "INTRO_SCHEDULED"
	ActivityIntroAttended     ActivityType = "INTRO_ATTENDED"
	ActivityIntroNoShow       ActivityType = "INTRO_NO_SHOW"
	ActivityFollowUpScheduled ActivityType = "FOLLOW_UP_SCHEDULED"
	ActivityFollowUpCompleted ActivityType = "FOLLOW_UP_COMPLETED"
	ActivityNote              ActivityType = "NOTE"
	ActivityConverted         ActivityType = "CONVERTED"
	ActivityMarkedDead        ActivityType = "MARKED_DEAD"
)

func (a ActivityType) Valid() bool {
	switch a {
	case ActivityCreated, ActivityStatusChange, ActivityIntroScheduled, ActivityIntroAttended,
		ActivityIntroNoShow, ActivityFollowUpScheduled, ActivityFollowUpCompleted, ActivityNote,
		ActivityConverted, ActivityMarkedDead:
		return true
	}
	return false
}

type IntroOutcome string

const (
	IntroInterested    IntroOutcome = "INTERESTED"
	IntroNotInterested IntroOutcome = "NOT_INTERESTED"
	IntroNeedsFollowUp IntroOutcome = "NEEDS_FOLLOW_UP"
	IntroNoShow        IntroOutcome = "NO_SHOW"
)

func (o IntroOutcome) Valid() bool {
	switch o {
	case IntroInterested, IntroNotInterested, IntroNeedsFollowUp, IntroNoShow:
		return true
	}
	return false
}

// Attended reports whether the outcome means the child actually came.
func (o IntroOutcome) Attended() bool {
	return o.Valid() && o != IntroNoShow
}

func ParseIntroOutcome(s string) (IntroOutcome, error) {
	return parseEnum[IntroOutcome]("intro visit outcome", s)
}

type FollowUpChannel string

const (
	ChannelCall     FollowUpChannel = "CALL"
	ChannelWhatsApp FollowUpChannel = "WHATSAPP"
	ChannelEmail    FollowUpChannel = "EMAIL"
	ChannelVisit    FollowUpChannel = "VISIT"
)

func (c FollowUpChannel) Valid() bool {
	switch c {
	case ChannelCall, ChannelWhatsApp, ChannelEmail, ChannelVisit:
		return true
	}
	return false
}

func ParseFollowUpChannel(s string) (FollowUpChannel, error) {
	return parseEnum[FollowUpChannel]("follow-up channel", s)
}

type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "PENDING"
	FollowUpCompleted FollowUpStatus = "COMPLETED"
	FollowUpCancelled FollowUpStatus = "CANCELLED"
)

func (s FollowUpStatus) Valid() bool {
	switch s {
	case FollowUpPending, FollowUpCompleted, FollowUpCancelled:
		return true
	}
	return false
}

func ParseFollowUpStatus(s string) (FollowUpStatus, error) {
	return parseEnum[FollowUpStatus]("follow-up status", s)
}

type FollowUpOutcome string

const (
	FollowUpInterested    FollowUpOutcome = "INTERESTED"
	FollowUpNotInterested FollowUpOutcome = "NOT_INTERESTED"
	FollowUpCallBackLater FollowUpOutcome = "CALL_BACK_LATER"
	FollowUpNoResponse    FollowUpOutcome = "NO_RESPONSE"
	FollowUpEnrolled      FollowUpOutcome = "ENROLLED"
)

func (o FollowUpOutcome) Valid() bool {
	switch o {
	case FollowUpInterested, FollowUpNotInterested, FollowUpCallBackLater, FollowUpNoResponse, FollowUpEnrolled:
		return true
	}
	return false
}

func ParseFollowUpOutcome(s string) (FollowUpOutcome, error) {
	return parseEnum[FollowUpOutcome]("follow-up outcome", s)
}

type Relationship string

const (
	RelationMother      Relationship = "MOTHER"
	RelationFather      Relationship = "FATHER"
	RelationGuardian    Relationship = "GUARDIAN"
	RelationGrandparent Relationship = "GRANDPARENT"
	RelationOther       Relationship = "OTHER"
)

func (r Relationship) Valid() bool {
	switch r {
	case RelationMother, RelationFather, RelationGuardian, RelationGrandparent, RelationOther:
		return true
	}
	return false
}

func ParseRelationship(s string) (Relationship, error) {
	return parseEnum[Relationship]("relationship", s)
}

type Gender string

const (
	GenderMale        Gender = "MALE"
	GenderFemale      Gender = "FEMALE"
	GenderUnspecified Gender = "UNSPECIFIED"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnspecified:
		return true
	}
	return false
}

func ParseGender(s string) (Gender, error) { return parseEnum[Gender]("gender", s) }

type Weekday string

const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
	Sunday    Weekday = "SUN"
)

var weekdayByTime = map[Weekday]int{
	Sunday: 0, Monday: 1, Tuesday: 2, Wednesday: 3, Thursday: 4, Friday: 5, Saturday: 6,
}

func (d Weekday) Valid() bool {
	_, ok := weekdayByTime[d]
	return ok
}

func ParseWeekday(s string) (Weekday, error) { return parseEnum[Weekday]("weekday", s) }

type CurriculumType string

const (
	CurriculumFlat    CurriculumType = "FLAT"
	CurriculumLeveled CurriculumType = "LEVELED"
)

func (c CurriculumType) Valid() bool {
	return c == CurriculumFlat || c == CurriculumLeveled
}

func ParseCurriculumType(s string) (CurriculumType, error) {
	return parseEnum[CurriculumType]("curriculum type", s)
}

type PlanType string

const (
	PlanVisitPack  PlanType = "VISIT_PACK"
	PlanMonthly    PlanType = "MONTHLY"
	PlanQuarterly  PlanType = "QUARTERLY"
	PlanHalfYearly PlanType = "HALF_YEARLY"
	PlanYearly     PlanType = "YEARLY"
	PlanCustom     PlanType = "CUSTOM"
)

func (p PlanType) Valid() bool {
	switch p {
	case PlanVisitPack, PlanMonthly, PlanQuarterly, PlanHalfYearly, PlanYearly, PlanCustom:
		return true
	}
	return false
}

// VisitBased reports whether attendance draws down a visit counter.
func (p PlanType) VisitBased() bool { return p == PlanVisitPack }

func ParsePlanType(s string) (PlanType, error) { return parseEnum[PlanType]("plan type", s) }

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentPaused    EnrollmentStatus = "PAUSED"
	EnrollmentExpired   EnrollmentStatus = "EXPIRED"
	EnrollmentCancelled EnrollmentStatus = "CANCELLED"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentPaused, EnrollmentExpired, EnrollmentCancelled, EnrollmentCompleted:
		return true
	}
	return false
}

func ParseEnrollmentStatus(s string) (EnrollmentStatus, error) {
	return parseEnum[EnrollmentStatus]("enrollment status", s)
}

type SessionStatus string

const (
	SessionScheduled SessionStatus = "SCHEDULED"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionCancelled SessionStatus = "CANCELLED"
)

func (s SessionStatus) Valid() bool {
	return s == SessionScheduled || s == SessionCompleted || s == SessionCancelled
}

func ParseSessionStatus(s string) (SessionStatus, error) {
	return parseEnum[SessionStatus]("session status", s)
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent || s == AttendanceExcused
}

func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	return parseEnum[AttendanceStatus]("attendance status", s)
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFlat       DiscountType = "FLAT"
)

func (d DiscountType) Valid() bool { return d == DiscountPercentage || d == DiscountFlat }

func ParseDiscountType(s string) (DiscountType, error) {
	return parseEnum[DiscountType]("discount type", s)
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentUPI          PaymentMethod = "UPI"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCheque       PaymentMethod = "CHEQUE"
	PaymentOther        PaymentMethod = "OTHER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentBankTransfer, PaymentCheque, PaymentOther:
		return true
	}
	return false
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	return parseEnum[PaymentMethod]("payment method", s)
}

type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "PAID"
	PaymentPending  PaymentStatus = "PENDING"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPaid || s == PaymentPending || s == PaymentRefunded
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	return parseEnum[PaymentStatus]("payment status", s)
}

// SkillLevel is ordered; later constants rank higher.
type SkillLevel string

const (
	SkillNotStarted SkillLevel = "NOT_STARTED"
	SkillIntroduced SkillLevel = "INTRODUCED"
	SkillPracticing SkillLevel = "PRACTICING"
	SkillProficient SkillLevel = "PROFICIENT"
	SkillMastered   SkillLevel = "MASTERED"
)

var skillLevelRank = map[SkillLevel]int{
	SkillNotStarted: 0, SkillIntroduced: 1, SkillPracticing: 2, SkillProficient: 3, SkillMastered: 4,
}

func (l SkillLevel) Valid() bool {
	_, ok := skillLevelRank[l]
	return ok
}

// Rank returns the ordinal position of the level, -1 when unknown.
func (l SkillLevel) Rank() int {
	if r, ok := skillLevelRank[l]; ok {
		return r
	}
	return -1
}

func ParseSkillLevel(s string) (SkillLevel, error) { return parseEnum[SkillLevel]("skill level", s) }

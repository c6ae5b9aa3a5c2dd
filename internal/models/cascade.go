package models

// EntityKind names an archivable table.
type EntityKind string

const (
	KindLead             EntityKind = "leads"
	KindIntroVisit       EntityKind = "intro_visits"
	KindFollowUp         EntityKind = "follow_ups"
	KindParent           EntityKind = "parents"
	KindChild            EntityKind = "children"
	KindFamilyLink       EntityKind = "family_links"
	KindEnrollment       EntityKind = "enrollments"
	KindDiscount         EntityKind = "discounts"
	KindBatch            EntityKind = "batches"
	KindBatchMapping     EntityKind = "batch_mappings"
	KindClassSession     EntityKind = "class_sessions"
	KindSkillProgress    EntityKind = "skill_progress"
	KindCurriculum       EntityKind = "curricula"
	KindSkill            EntityKind = "skills"
	KindActivityCategory EntityKind = "activity_categories"
	KindProgressionLevel EntityKind = "progression_levels"
	KindClassType        EntityKind = "class_types"
)

func (k EntityKind) Valid() bool {
	switch k {
	case KindLead, KindIntroVisit, KindFollowUp, KindParent, KindChild, KindFamilyLink,
		KindEnrollment, KindDiscount, KindBatch, KindBatchMapping, KindClassSession,
		KindSkillProgress, KindCurriculum, KindSkill, KindActivityCategory,
		KindProgressionLevel, KindClassType:
		return true
	}
	return false
}

// TenantScoped reports whether rows of the kind carry a mandatory center_id.
func (k EntityKind) TenantScoped() bool {
	switch k {
	case KindCurriculum, KindSkill, KindActivityCategory, KindProgressionLevel, KindClassType:
		return false
	}
	return true
}

func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.Valid() {
		return k, Validationf("invalid entity kind: %q", s)
	}
	return k, nil
}

// CascadeRule archives Child rows whose ForeignKey points at the parent.
type CascadeRule struct {
	Child      EntityKind
	ForeignKey string
}

// CascadePolicy lists what is archived together with each parent kind.
// Kinds that are not listed (attendance, payments, activities, report cards,
// level attainments) are always retained as history.
var CascadePolicy = map[EntityKind][]CascadeRule{
	KindLead: {
		{Child: KindIntroVisit, ForeignKey: "lead_id"},
		{Child: KindFollowUp, ForeignKey: "lead_id"},
	},
	KindParent: {
		{Child: KindFamilyLink, ForeignKey: "parent_id"},
	},
	KindChild: {
		{Child: KindFamilyLink, ForeignKey: "child_id"},
		{Child: KindSkillProgress, ForeignKey: "child_id"},
		{Child: KindEnrollment, ForeignKey: "child_id"},
	},
	KindEnrollment: {
		{Child: KindDiscount, ForeignKey: "enrollment_id"},
	},
	KindBatch: {
		{Child: KindBatchMapping, ForeignKey: "batch_id"},
		{Child: KindClassSession, ForeignKey: "batch_id"},
	},
	KindCurriculum: {
		{Child: KindSkill, ForeignKey: "curriculum_id"},
		{Child: KindActivityCategory, ForeignKey: "curriculum_id"},
	},
	KindActivityCategory: {
		{Child: KindProgressionLevel, ForeignKey: "category_id"},
	},
}

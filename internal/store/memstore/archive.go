package memstore

import (
	"context"
	"fmt"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

type archivable[T any] interface {
	*T
	Key() uuid.UUID
	Archived() bool
	SetArchived(bool)
	Stamp(time.Time, *uuid.UUID)
}

type centered interface {
	Center() uuid.UUID
}

// setArchived flips one row. Rows of tenant-scoped kinds must belong to centerID.
func setArchived[T any, P archivable[T]](m map[uuid.UUID]T, what string, centerID, id uuid.UUID, archived bool, at time.Time, by *uuid.UUID) error {
	v, ok := m[id]
	if !ok {
		return notFound(what, id)
	}
	if c, scoped := any(v).(centered); scoped && c.Center() != centerID {
		return notFound(what, id)
	}
	p := P(&v)
	p.SetArchived(archived)
	p.Stamp(at, by)
	m[id] = v
	return nil
}

// archiveWhere archives every live row accepted by match and returns their ids.
func archiveWhere[T any, P archivable[T]](t *tx, m map[uuid.UUID]T, match func(*T) bool, by *uuid.UUID) []uuid.UUID {
	at := t.now()
	var ids []uuid.UUID
	for id, v := range m {
		p := P(&v)
		if p.Archived() || !match(&v) {
			continue
		}
		p.SetArchived(true)
		p.Stamp(at, by)
		m[id] = v
		ids = append(ids, id)
	}
	t.sortByOrder(ids)
	return ids
}

func (t *tx) SetArchived(ctx context.Context, kind models.EntityKind, centerID, id uuid.UUID, archived bool, by *uuid.UUID) error {
	at := t.now()
	s := t.state
	switch kind {
	case models.KindLead:
		return setArchived(s.leads, "lead", centerID, id, archived, at, by)
	case models.KindIntroVisit:
		return setArchived(s.introVisits, "intro visit", centerID, id, archived, at, by)
	case models.KindFollowUp:
		return setArchived(s.followUps, "follow-up", centerID, id, archived, at, by)
	case models.KindParent:
		return setArchived(s.parents, "parent", centerID, id, archived, at, by)
	case models.KindChild:
		return setArchived(s.children, "child", centerID, id, archived, at, by)
	case models.KindFamilyLink:
		return setArchived(s.familyLinks, "family link", centerID, id, archived, at, by)
	case models.KindEnrollment:
		return setArchived(s.enrollments, "enrollment", centerID, id, archived, at, by)
	case models.KindDiscount:
		return setArchived(s.discounts, "discount", centerID, id, archived, at, by)
	case models.KindBatch:
		return setArchived(s.batches, "batch", centerID, id, archived, at, by)
	case models.KindBatchMapping:
		return setArchived(s.mappings, "batch mapping", centerID, id, archived, at, by)
	case models.KindClassSession:
		return setArchived(s.sessions, "class session", centerID, id, archived, at, by)
	case models.KindSkillProgress:
		return setArchived(s.progress, "skill progress", centerID, id, archived, at, by)
	case models.KindCurriculum:
		return setArchived(s.curricula, "curriculum", centerID, id, archived, at, by)
	case models.KindSkill:
		return setArchived(s.skills, "skill", centerID, id, archived, at, by)
	case models.KindActivityCategory:
		return setArchived(s.categories, "activity category", centerID, id, archived, at, by)
	case models.KindProgressionLevel:
		return setArchived(s.levels, "progression level", centerID, id, archived, at, by)
	case models.KindClassType:
		return setArchived(s.classTypes, "class type", centerID, id, archived, at, by)
	}
	return fmt.Errorf("cannot archive %s: %w", kind, store.ErrNotFound)
}

func (t *tx) ArchiveByParent(ctx context.Context, rule models.CascadeRule, centerID, parentID uuid.UUID, by *uuid.UUID) ([]uuid.UUID, error) {
	s := t.state
	switch rule.Child {
	case models.KindIntroVisit:
		return archiveWhere(t, s.introVisits, func(v *models.IntroVisit) bool {
			return v.CenterID == centerID && v.LeadID == parentID
		}, by), nil
	case models.KindFollowUp:
		return archiveWhere(t, s.followUps, func(f *models.FollowUp) bool {
			return f.CenterID == centerID && f.LeadID == parentID
		}, by), nil
	case models.KindFamilyLink:
		return archiveWhere(t, s.familyLinks, func(l *models.FamilyLink) bool {
			if l.CenterID != centerID {
				return false
			}
			if rule.ForeignKey == "parent_id" {
				return l.ParentID == parentID
			}
			return l.ChildID == parentID
		}, by), nil
	case models.KindSkillProgress:
		return archiveWhere(t, s.progress, func(p *models.SkillProgress) bool {
			return p.CenterID == centerID && p.ChildID == parentID
		}, by), nil
	case models.KindEnrollment:
		return archiveWhere(t, s.enrollments, func(e *models.Enrollment) bool {
			return e.CenterID == centerID && e.ChildID == parentID
		}, by), nil
	case models.KindDiscount:
		return archiveWhere(t, s.discounts, func(d *models.Discount) bool {
			return d.CenterID == centerID && d.EnrollmentID == parentID
		}, by), nil
	case models.KindBatchMapping:
		return archiveWhere(t, s.mappings, func(m *models.BatchMapping) bool {
			return m.CenterID == centerID && m.BatchID == parentID
		}, by), nil
	case models.KindClassSession:
		return archiveWhere(t, s.sessions, func(cs *models.ClassSession) bool {
			return cs.CenterID == centerID && cs.BatchID == parentID
		}, by), nil
	case models.KindSkill:
		return archiveWhere(t, s.skills, func(sk *models.Skill) bool {
			return sk.CurriculumID == parentID
		}, by), nil
	case models.KindActivityCategory:
		return archiveWhere(t, s.categories, func(c *models.ActivityCategory) bool {
			return c.CurriculumID == parentID
		}, by), nil
	case models.KindProgressionLevel:
		return archiveWhere(t, s.levels, func(l *models.ProgressionLevel) bool {
			return l.CategoryID == parentID
		}, by), nil
	}
	return nil, fmt.Errorf("no cascade from %s: %w", rule.Child, store.ErrNotFound)
}

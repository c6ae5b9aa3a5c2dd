package service

import (
	"context"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

// ArchiveResult lists every row archived by one call, the named row first.
type ArchiveResult struct {
	Kind     models.EntityKind                 `json:"kind"`
	ID       uuid.UUID                         `json:"id"`
	Cascaded map[models.EntityKind][]uuid.UUID `json:"cascaded,omitempty"`
}

// Count returns the number of rows archived, including the named one.
func (r *ArchiveResult) Count() int {
	n := 1
	for _, ids := range r.Cascaded {
		n += len(ids)
	}
	return n
}

// Archive soft-deletes a row and, in the same transaction, everything that
// models.CascadePolicy archives along with it. History rows stay untouched.
func (s *Service) Archive(ctx context.Context, actor models.Actor, centerID uuid.UUID, kind models.EntityKind, id uuid.UUID) (*ArchiveResult, error) {
	if err := authorize(actor, centerID, archiveRoles...); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, models.Validationf("invalid entity kind: %q", kind)
	}
	res := &ArchiveResult{Kind: kind, ID: id, Cascaded: map[models.EntityKind][]uuid.UUID{}}
	err := s.inTx(ctx, func(tx store.Tx) error {
		if err := archiveOwner(ctx, tx, actor, centerID, kind, id); err != nil {
			return err
		}
		if err := tx.SetArchived(ctx, kind, centerID, id, true, actor.Ref()); err != nil {
			return err
		}
		return cascade(ctx, tx, actor, centerID, kind, id, res)
	})
	if err != nil {
		return nil, err
	}
	s.logf("Archived %s %s (%d rows)", kind, id, res.Count())
	return res, nil
}

func cascade(ctx context.Context, tx store.Tx, actor models.Actor, centerID uuid.UUID, kind models.EntityKind, id uuid.UUID, res *ArchiveResult) error {
	for _, rule := range models.CascadePolicy[kind] {
		ids, err := tx.ArchiveByParent(ctx, rule, centerID, id, actor.Ref())
		if err != nil {
			return err
		}
		res.Cascaded[rule.Child] = append(res.Cascaded[rule.Child], ids...)
		for _, childID := range ids {
			if err := cascade(ctx, tx, actor, centerID, rule.Child, childID, res); err != nil {
				return err
			}
		}
	}
	return nil
}

// Unarchive restores only the named row. Rows archived along with it stay
// archived until restored one by one.
func (s *Service) Unarchive(ctx context.Context, actor models.Actor, centerID uuid.UUID, kind models.EntityKind, id uuid.UUID) error {
	if err := authorize(actor, centerID, archiveRoles...); err != nil {
		return err
	}
	if !kind.Valid() {
		return models.Validationf("invalid entity kind: %q", kind)
	}
	err := s.inTx(ctx, func(tx store.Tx) error {
		if err := archiveOwner(ctx, tx, actor, centerID, kind, id); err != nil {
			return err
		}
		if kind == models.KindProgressionLevel {
			if err := checkLevelFree(ctx, tx, id); err != nil {
				return err
			}
		}
		return tx.SetArchived(ctx, kind, centerID, id, false, actor.Ref())
	})
	if err != nil {
		return err
	}
	s.logf("Unarchived %s %s", kind, id)
	return nil
}

// archiveOwner checks who may archive rows without a center of their own.
// Shared rows need a super admin; rows owned by another center look missing.
func archiveOwner(ctx context.Context, tx store.Tx, actor models.Actor, centerID uuid.UUID, kind models.EntityKind, id uuid.UUID) error {
	if kind.TenantScoped() {
		return nil
	}
	var owner *uuid.UUID
	switch kind {
	case models.KindClassType:
		ct, err := tx.GetClassType(ctx, id, true)
		if err != nil {
			return err
		}
		owner = ct.CenterID
	default:
		curriculumID, err := owningCurriculum(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		c, err := tx.GetCurriculum(ctx, curriculumID, true)
		if err != nil {
			return err
		}
		owner = c.CenterID
	}
	if owner != nil && *owner != centerID {
		return models.NotFoundf("%s %s not found", kind, id)
	}
	return ownerAccess(actor, owner)
}

func owningCurriculum(ctx context.Context, tx store.Tx, kind models.EntityKind, id uuid.UUID) (uuid.UUID, error) {
	switch kind {
	case models.KindSkill:
		sk, err := tx.GetSkill(ctx, id, true)
		if err != nil {
			return uuid.Nil, err
		}
		return sk.CurriculumID, nil
	case models.KindActivityCategory:
		cat, err := tx.GetActivityCategory(ctx, id, true)
		if err != nil {
			return uuid.Nil, err
		}
		return cat.CurriculumID, nil
	case models.KindProgressionLevel:
		lvl, err := tx.GetProgressionLevel(ctx, id, true)
		if err != nil {
			return uuid.Nil, err
		}
		cat, err := tx.GetActivityCategory(ctx, lvl.CategoryID, true)
		if err != nil {
			return uuid.Nil, err
		}
		return cat.CurriculumID, nil
	}
	return id, nil
}

// checkLevelFree keeps level numbers unique among live levels of a category.
func checkLevelFree(ctx context.Context, tx store.Tx, id uuid.UUID) error {
	lvl, err := tx.GetProgressionLevel(ctx, id, true)
	if err != nil {
		return err
	}
	live, err := tx.ListProgressionLevels(ctx, lvl.CategoryID, false)
	if err != nil {
		return err
	}
	for _, other := range live {
		if other.ID != lvl.ID && other.LevelNumber == lvl.LevelNumber {
			return models.Conflictf("level %d already exists in this category", lvl.LevelNumber)
		}
	}
	return nil
}

package service

import (
	"context"
	"sort"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

type SkillProgressInput struct {
	SkillID uuid.UUID         `json:"skill_id" validate:"required"`
	Level   models.SkillLevel `json:"level" validate:"required,enum"`
	Notes   string            `json:"notes" validate:"max=2000"`
}

// UpdateSkillProgress sets a child's current level on a skill. There is one
// row per child and skill; later updates replace it.
func (s *Service) UpdateSkillProgress(ctx context.Context, actor models.Actor, centerID, childID uuid.UUID, in SkillProgressInput) (*models.SkillProgress, error) {
	if err := authorize(actor, centerID, progressRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	p := &models.SkillProgress{
		Tenant:  models.Tenant{CenterID: centerID},
		ChildID: childID,
		SkillID: in.SkillID,
		Level:   in.Level,
		Notes:   in.Notes,
	}
	s.stamp(&p.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetChild(ctx, centerID, childID, false); err != nil {
			return err
		}
		sk, err := tx.GetSkill(ctx, in.SkillID, false)
		if err != nil {
			return err
		}
		if err := usableCurriculum(ctx, tx, centerID, sk.CurriculumID); err != nil {
			return err
		}
		return tx.SaveSkillProgress(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// usableCurriculum rejects curricula owned by other centers.
func usableCurriculum(ctx context.Context, tx store.Tx, centerID, curriculumID uuid.UUID) error {
	c, err := tx.GetCurriculum(ctx, curriculumID, false)
	if err != nil {
		return err
	}
	if !c.VisibleTo(centerID) {
		return models.NotFoundf("curriculum %s not found", curriculumID)
	}
	return nil
}

func (s *Service) ListSkillProgress(ctx context.Context, actor models.Actor, centerID, childID uuid.UUID, includeArchived bool) ([]*models.SkillProgress, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.SkillProgress
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetChild(ctx, centerID, childID, true); err != nil {
			return err
		}
		var err error
		out, err = tx.ListSkillProgress(ctx, centerID, childID, includeArchived)
		return err
	})
	return out, err
}

type LevelAttainmentInput struct {
	ProgressionLevelID uuid.UUID  `json:"progression_level_id" validate:"required"`
	AchievedAt         *time.Time `json:"achieved_at"`
}

// RecordLevelAttainment records that a child passed a progression level.
// Attainments are history and are never archived.
func (s *Service) RecordLevelAttainment(ctx context.Context, actor models.Actor, centerID, childID uuid.UUID, in LevelAttainmentInput) (*models.LevelAttainment, error) {
	if err := authorize(actor, centerID, progressRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	a := &models.LevelAttainment{
		Tenant:             models.Tenant{CenterID: centerID},
		ChildID:            childID,
		ProgressionLevelID: in.ProgressionLevelID,
		AchievedAt:         s.now(),
		AssessedBy:         actor.Ref(),
	}
	if in.AchievedAt != nil {
		if in.AchievedAt.After(s.now()) {
			return nil, models.Validationf("achieved_at must not be in the future")
		}
		a.AchievedAt = *in.AchievedAt
	}
	s.stamp(&a.Audit, actor)
	var lvl *models.ProgressionLevel
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetChild(ctx, centerID, childID, false); err != nil {
			return err
		}
		var err error
		lvl, err = tx.GetProgressionLevel(ctx, in.ProgressionLevelID, false)
		if err != nil {
			return err
		}
		cat, err := tx.GetActivityCategory(ctx, lvl.CategoryID, false)
		if err != nil {
			return err
		}
		if err := usableCurriculum(ctx, tx, centerID, cat.CurriculumID); err != nil {
			return err
		}
		return tx.CreateLevelAttainment(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.logf("Child %s attained level %d (%s)", childID, lvl.LevelNumber, lvl.Name)
	return a, nil
}

// ChildProgress is the current progress of a child: one line per skill and
// the highest level reached in each category.
type ChildProgress struct {
	ChildID uuid.UUID                   `json:"child_id"`
	Skills  []models.SkillSnapshotEntry `json:"skills"`
	Levels  []models.LevelSnapshotEntry `json:"levels"`
}

func (s *Service) GetChildProgress(ctx context.Context, actor models.Actor, centerID, childID uuid.UUID) (*ChildProgress, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	out := &ChildProgress{ChildID: childID}
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetChild(ctx, centerID, childID, true); err != nil {
			return err
		}
		var err error
		out.Skills, out.Levels, err = progressLines(ctx, tx, centerID, childID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// progressLines collects the live skill progress rows and the highest
// attained level per category.
func progressLines(ctx context.Context, tx store.Tx, centerID, childID uuid.UUID) ([]models.SkillSnapshotEntry, []models.LevelSnapshotEntry, error) {
	rows, err := tx.ListSkillProgress(ctx, centerID, childID, false)
	if err != nil {
		return nil, nil, err
	}
	skills := make([]models.SkillSnapshotEntry, 0, len(rows))
	for _, p := range rows {
		sk, err := tx.GetSkill(ctx, p.SkillID, true)
		if err != nil {
			return nil, nil, err
		}
		skills = append(skills, models.SkillSnapshotEntry{
			SkillID:      sk.ID,
			SkillName:    sk.Name,
			CurriculumID: sk.CurriculumID,
			Level:        p.Level,
			Notes:        p.Notes,
			UpdatedAt:    p.UpdatedAt,
		})
	}
	sort.SliceStable(skills, func(i, j int) bool { return skills[i].SkillName < skills[j].SkillName })

	attained, err := tx.ListLevelAttainments(ctx, centerID, childID)
	if err != nil {
		return nil, nil, err
	}
	best := map[uuid.UUID]models.LevelSnapshotEntry{}
	for _, a := range attained {
		lvl, err := tx.GetProgressionLevel(ctx, a.ProgressionLevelID, true)
		if err != nil {
			return nil, nil, err
		}
		if cur, ok := best[lvl.CategoryID]; ok && cur.LevelNumber >= lvl.LevelNumber {
			continue
		}
		cat, err := tx.GetActivityCategory(ctx, lvl.CategoryID, true)
		if err != nil {
			return nil, nil, err
		}
		best[lvl.CategoryID] = models.LevelSnapshotEntry{
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			LevelNumber:  lvl.LevelNumber,
			LevelName:    lvl.Name,
		}
	}
	levels := make([]models.LevelSnapshotEntry, 0, len(best))
	for _, e := range best {
		levels = append(levels, e)
	}
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].CategoryName != levels[j].CategoryName {
			return levels[i].CategoryName < levels[j].CategoryName
		}
		return levels[i].CategoryID.String() < levels[j].CategoryID.String()
	})
	return skills, levels, nil
}

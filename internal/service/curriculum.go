package service

import (
	"context"
	"strings"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

// ownerAccess checks who may change a record owned by centerID, where nil
// means shared by all centers.
func ownerAccess(actor models.Actor, centerID *uuid.UUID) error {
	if centerID == nil {
		return requireGlobal(actor)
	}
	return authorize(actor, *centerID, curriculumRoles...)
}

// visibleCurriculum loads a curriculum the actor can see. Curricula of other
// centers look missing.
func visibleCurriculum(ctx context.Context, tx store.Tx, actor models.Actor, id uuid.UUID) (*models.Curriculum, error) {
	c, err := tx.GetCurriculum(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if c.CenterID != nil && !actor.CanAccess(*c.CenterID) {
		return nil, models.NotFoundf("curriculum %s not found", id)
	}
	return c, nil
}

type ClassTypeInput struct {
	CenterID    *uuid.UUID `json:"center_id"`
	Name        string     `json:"name" validate:"required,max=120"`
	Description string     `json:"description" validate:"max=2000"`
}

func (s *Service) CreateClassType(ctx context.Context, actor models.Actor, in ClassTypeInput) (*models.ClassType, error) {
	if err := ownerAccess(actor, in.CenterID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	ct := &models.ClassType{
		CenterID:    in.CenterID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	}
	s.stamp(&ct.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		return tx.CreateClassType(ctx, ct)
	})
	if err != nil {
		return nil, err
	}
	return ct, nil
}

type CurriculumInput struct {
	CenterID    *uuid.UUID            `json:"center_id"`
	Name        string                `json:"name" validate:"required,max=120"`
	Type        models.CurriculumType `json:"curriculum_type" validate:"required,enum"`
	Description string                `json:"description" validate:"max=2000"`
}

// CreateCurriculum adds a global curriculum (super admin only) or one owned by a center.
func (s *Service) CreateCurriculum(ctx context.Context, actor models.Actor, in CurriculumInput) (*models.Curriculum, error) {
	if err := ownerAccess(actor, in.CenterID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	c := &models.Curriculum{
		CenterID:    in.CenterID,
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		Description: in.Description,
	}
	s.stamp(&c.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		if c.CenterID != nil {
			if _, err := tx.GetCenter(ctx, *c.CenterID); err != nil {
				return err
			}
		}
		return tx.CreateCurriculum(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

type SkillInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	Description  string `json:"description" validate:"max=2000"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// AddSkill appends a skill to a FLAT curriculum.
func (s *Service) AddSkill(ctx context.Context, actor models.Actor, curriculumID uuid.UUID, in SkillInput) (*models.Skill, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	sk := &models.Skill{
		CurriculumID: curriculumID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		DisplayOrder: in.DisplayOrder,
	}
	s.stamp(&sk.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		c, err := visibleCurriculum(ctx, tx, actor, curriculumID)
		if err != nil {
			return err
		}
		if err := ownerAccess(actor, c.CenterID); err != nil {
			return err
		}
		if c.Type != models.CurriculumFlat {
			return models.Validationf("skills belong to %s curricula; %s is %s", models.CurriculumFlat, c.Name, c.Type)
		}
		return tx.CreateSkill(ctx, sk)
	})
	if err != nil {
		return nil, err
	}
	return sk, nil
}

type CategoryInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// AddActivityCategory appends a category to a LEVELED curriculum.
func (s *Service) AddActivityCategory(ctx context.Context, actor models.Actor, curriculumID uuid.UUID, in CategoryInput) (*models.ActivityCategory, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	cat := &models.ActivityCategory{
		CurriculumID: curriculumID,
		Name:         strings.TrimSpace(in.Name),
		DisplayOrder: in.DisplayOrder,
	}
	s.stamp(&cat.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		c, err := visibleCurriculum(ctx, tx, actor, curriculumID)
		if err != nil {
			return err
		}
		if err := ownerAccess(actor, c.CenterID); err != nil {
			return err
		}
		if c.Type != models.CurriculumLeveled {
			return models.Validationf("categories belong to %s curricula; %s is %s", models.CurriculumLeveled, c.Name, c.Type)
		}
		return tx.CreateActivityCategory(ctx, cat)
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

type LevelInput struct {
	LevelNumber int    `json:"level_number" validate:"gte=1"`
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// AddProgressionLevel adds a numbered level to a category. Numbers are unique
// per category.
func (s *Service) AddProgressionLevel(ctx context.Context, actor models.Actor, categoryID uuid.UUID, in LevelInput) (*models.ProgressionLevel, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	lvl := &models.ProgressionLevel{
		CategoryID:  categoryID,
		LevelNumber: in.LevelNumber,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	}
	s.stamp(&lvl.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		cat, err := tx.GetActivityCategory(ctx, categoryID, false)
		if err != nil {
			return err
		}
		c, err := visibleCurriculum(ctx, tx, actor, cat.CurriculumID)
		if err != nil {
			return err
		}
		if err := ownerAccess(actor, c.CenterID); err != nil {
			return err
		}
		return tx.CreateProgressionLevel(ctx, lvl)
	})
	if err != nil {
		return nil, err
	}
	return lvl, nil
}

// ListCurricula returns the shared curricula plus the center's own.
func (s *Service) ListCurricula(ctx context.Context, actor models.Actor, centerID uuid.UUID, opts store.ListOptions) ([]*models.Curriculum, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.Curriculum
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListCurricula(ctx, centerID, opts)
		return err
	})
	return out, err
}

// CategoryTree is a category with its ordered levels.
type CategoryTree struct {
	Category *models.ActivityCategory   `json:"category"`
	Levels   []*models.ProgressionLevel `json:"levels"`
}

// CurriculumTree is a curriculum with everything below it.
type CurriculumTree struct {
	Curriculum *models.Curriculum `json:"curriculum"`
	Skills     []*models.Skill    `json:"skills"`
	Categories []CategoryTree     `json:"categories"`
}

func (s *Service) GetCurriculumTree(ctx context.Context, actor models.Actor, curriculumID uuid.UUID) (*CurriculumTree, error) {
	tree := &CurriculumTree{}
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if tree.Curriculum, err = visibleCurriculum(ctx, tx, actor, curriculumID); err != nil {
			return err
		}
		if tree.Skills, err = tx.ListSkills(ctx, curriculumID, false); err != nil {
			return err
		}
		cats, err := tx.ListActivityCategories(ctx, curriculumID, false)
		if err != nil {
			return err
		}
		for _, cat := range cats {
			levels, err := tx.ListProgressionLevels(ctx, cat.ID, false)
			if err != nil {
				return err
			}
			tree.Categories = append(tree.Categories, CategoryTree{Category: cat, Levels: levels})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

type BatchMappingInput struct {
	ClassTypeID  uuid.UUID `json:"class_type_id" validate:"required"`
	CurriculumID uuid.UUID `json:"curriculum_id" validate:"required"`
}

// MapBatch sets the class type and curriculum taught in a batch. The
// curriculum must be shared or owned by the batch's center.
func (s *Service) MapBatch(ctx context.Context, actor models.Actor, centerID, batchID uuid.UUID, in BatchMappingInput) (*models.BatchMapping, error) {
	if err := authorize(actor, centerID, curriculumRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	m := &models.BatchMapping{
		Tenant:       models.Tenant{CenterID: centerID},
		BatchID:      batchID,
		ClassTypeID:  in.ClassTypeID,
		CurriculumID: in.CurriculumID,
	}
	s.stamp(&m.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetBatch(ctx, centerID, batchID, false); err != nil {
			return err
		}
		ct, err := tx.GetClassType(ctx, in.ClassTypeID, false)
		if err != nil {
			return err
		}
		if ct.CenterID != nil && *ct.CenterID != centerID {
			return models.Validationf("class type %s belongs to another center", ct.Name)
		}
		c, err := tx.GetCurriculum(ctx, in.CurriculumID, false)
		if err != nil {
			return err
		}
		if !c.VisibleTo(centerID) {
			return models.Validationf("curriculum %s belongs to another center", c.Name)
		}
		return tx.SaveBatchMapping(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// BatchSkills resolves batch -> mapping -> curriculum -> skills.
func (s *Service) BatchSkills(ctx context.Context, actor models.Actor, centerID, batchID uuid.UUID) ([]*models.Skill, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.Skill
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetBatch(ctx, centerID, batchID, false); err != nil {
			return err
		}
		m, err := tx.GetBatchMapping(ctx, centerID, batchID)
		if err != nil {
			return err
		}
		if _, err := tx.GetCurriculum(ctx, m.CurriculumID, false); err != nil {
			return err
		}
		out, err = tx.ListSkills(ctx, m.CurriculumID, false)
		return err
	})
	return out, err
}

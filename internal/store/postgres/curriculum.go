package postgres

import (
	"context"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

// global builds the WHERE clause for lookups on shared catalogue tables.
func global(id uuid.UUID, includeArchived bool) *where {
	w := &where{}
	w.add("id = ?", id)
	w.archived(includeArchived)
	return w
}

const classTypeCols = auditCols + `, center_id, name, description, is_archived`

func scanClassType(row scanner) (*models.ClassType, error) {
	c := &models.ClassType{}
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy,
		&c.CenterID, &c.Name, &c.Description, &c.IsArchived)
	return c, err
}

func (t *tx) CreateClassType(ctx context.Context, c *models.ClassType) error {
	return t.exec(ctx, "create class type", `
		INSERT INTO class_types (`+classTypeCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy, c.CenterID, c.Name, c.Description, c.IsArchived)
}

func (t *tx) GetClassType(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.ClassType, error) {
	w := global(id, includeArchived)
	c, err := scanClassType(t.tx.QueryRowContext(ctx, `SELECT `+classTypeCols+` FROM class_types`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("class type", id, err)
	}
	return c, nil
}

const curriculumCols = auditCols + `, center_id, name, curriculum_type, description, is_archived`

func scanCurriculum(row scanner) (*models.Curriculum, error) {
	c := &models.Curriculum{}
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy,
		&c.CenterID, &c.Name, &c.Type, &c.Description, &c.IsArchived)
	return c, err
}

func (t *tx) CreateCurriculum(ctx context.Context, c *models.Curriculum) error {
	return t.exec(ctx, "create curriculum", `
		INSERT INTO curricula (`+curriculumCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy, c.CenterID, c.Name, c.Type, c.Description, c.IsArchived)
}

func (t *tx) GetCurriculum(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.Curriculum, error) {
	w := global(id, includeArchived)
	c, err := scanCurriculum(t.tx.QueryRowContext(ctx, `SELECT `+curriculumCols+` FROM curricula`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("curriculum", id, err)
	}
	return c, nil
}

func (t *tx) ListCurricula(ctx context.Context, centerID uuid.UUID, opts store.ListOptions) ([]*models.Curriculum, error) {
	w := &where{}
	w.add("(center_id IS NULL OR center_id = ?)", centerID)
	w.archived(opts.IncludeArchived)
	q := `SELECT ` + curriculumCols + ` FROM curricula` + w.page("created_at, id", opts)
	return list(ctx, t, "curricula", q, w.args, scanCurriculum)
}

const skillCols = auditCols + `, curriculum_id, name, description, display_order, is_archived`

func scanSkill(row scanner) (*models.Skill, error) {
	s := &models.Skill{}
	err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.CreatedBy, &s.UpdatedBy,
		&s.CurriculumID, &s.Name, &s.Description, &s.DisplayOrder, &s.IsArchived)
	return s, err
}

func (t *tx) CreateSkill(ctx context.Context, s *models.Skill) error {
	return t.exec(ctx, "create skill", `
		INSERT INTO skills (`+skillCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, s.ID, s.CreatedAt, s.UpdatedAt, s.CreatedBy, s.UpdatedBy, s.CurriculumID, s.Name, s.Description, s.DisplayOrder, s.IsArchived)
}

func (t *tx) GetSkill(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.Skill, error) {
	w := global(id, includeArchived)
	s, err := scanSkill(t.tx.QueryRowContext(ctx, `SELECT `+skillCols+` FROM skills`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("skill", id, err)
	}
	return s, nil
}

func (t *tx) ListSkills(ctx context.Context, curriculumID uuid.UUID, includeArchived bool) ([]*models.Skill, error) {
	w := &where{}
	w.add("curriculum_id = ?", curriculumID)
	w.archived(includeArchived)
	q := `SELECT ` + skillCols + ` FROM skills` + w.String() + ` ORDER BY display_order, created_at, id`
	return list(ctx, t, "skills", q, w.args, scanSkill)
}

const categoryCols = auditCols + `, curriculum_id, name, display_order, is_archived`

func scanCategory(row scanner) (*models.ActivityCategory, error) {
	c := &models.ActivityCategory{}
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy,
		&c.CurriculumID, &c.Name, &c.DisplayOrder, &c.IsArchived)
	return c, err
}

func (t *tx) CreateActivityCategory(ctx context.Context, c *models.ActivityCategory) error {
	return t.exec(ctx, "create activity category", `
		INSERT INTO activity_categories (`+categoryCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy, c.CurriculumID, c.Name, c.DisplayOrder, c.IsArchived)
}

func (t *tx) GetActivityCategory(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.ActivityCategory, error) {
	w := global(id, includeArchived)
	c, err := scanCategory(t.tx.QueryRowContext(ctx, `SELECT `+categoryCols+` FROM activity_categories`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("activity category", id, err)
	}
	return c, nil
}

func (t *tx) ListActivityCategories(ctx context.Context, curriculumID uuid.UUID, includeArchived bool) ([]*models.ActivityCategory, error) {
	w := &where{}
	w.add("curriculum_id = ?", curriculumID)
	w.archived(includeArchived)
	q := `SELECT ` + categoryCols + ` FROM activity_categories` + w.String() + ` ORDER BY display_order, created_at, id`
	return list(ctx, t, "activity categories", q, w.args, scanCategory)
}

const levelCols = auditCols + `, category_id, level_number, name, description, is_archived`

func scanLevel(row scanner) (*models.ProgressionLevel, error) {
	l := &models.ProgressionLevel{}
	err := row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt, &l.CreatedBy, &l.UpdatedBy,
		&l.CategoryID, &l.LevelNumber, &l.Name, &l.Description, &l.IsArchived)
	return l, err
}

// CreateProgressionLevel relies on progression_levels_category_number_key
// to reject a duplicate live level number.
func (t *tx) CreateProgressionLevel(ctx context.Context, l *models.ProgressionLevel) error {
	return t.exec(ctx, "create progression level", `
		INSERT INTO progression_levels (`+levelCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, l.ID, l.CreatedAt, l.UpdatedAt, l.CreatedBy, l.UpdatedBy, l.CategoryID, l.LevelNumber, l.Name, l.Description, l.IsArchived)
}

func (t *tx) GetProgressionLevel(ctx context.Context, id uuid.UUID, includeArchived bool) (*models.ProgressionLevel, error) {
	w := global(id, includeArchived)
	l, err := scanLevel(t.tx.QueryRowContext(ctx, `SELECT `+levelCols+` FROM progression_levels`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("progression level", id, err)
	}
	return l, nil
}

func (t *tx) ListProgressionLevels(ctx context.Context, categoryID uuid.UUID, includeArchived bool) ([]*models.ProgressionLevel, error) {
	w := &where{}
	w.add("category_id = ?", categoryID)
	w.archived(includeArchived)
	q := `SELECT ` + levelCols + ` FROM progression_levels` + w.String() + ` ORDER BY level_number, created_at, id`
	return list(ctx, t, "progression levels", q, w.args, scanLevel)
}

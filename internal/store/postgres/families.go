package postgres

import (
	"context"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

const auditCols = `id, created_at, updated_at, created_by, updated_by`

// --- centers & users ---

const centerCols = auditCols + `, name, code, address, phone, timezone, is_active`

func scanCenter(row scanner) (*models.Center, error) {
	c := &models.Center{}
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy,
		&c.Name, &c.Code, &c.Address, &c.Phone, &c.Timezone, &c.IsActive)
	return c, err
}

func (t *tx) CreateCenter(ctx context.Context, c *models.Center) error {
	return t.exec(ctx, "create center", `
		INSERT INTO centers (`+centerCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy,
		c.Name, c.Code, c.Address, c.Phone, c.Timezone, c.IsActive)
}

func (t *tx) GetCenter(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	c, err := scanCenter(t.tx.QueryRowContext(ctx, `SELECT `+centerCols+` FROM centers WHERE id = $1`, id))
	if err != nil {
		return nil, rowErr("center", id, err)
	}
	return c, nil
}

// ListCenters treats inactive centers as archived.
func (t *tx) ListCenters(ctx context.Context, opts store.ListOptions) ([]*models.Center, error) {
	w := &where{}
	if !opts.IncludeArchived {
		w.raw("is_active")
	}
	q := `SELECT ` + centerCols + ` FROM centers` + w.page("created_at, id", opts)
	return list(ctx, t, "centers", q, w.args, scanCenter)
}

const userCols = auditCols + `, center_id, email, password_hash, full_name, role, is_active`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.CreatedBy, &u.UpdatedBy,
		&u.CenterID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive)
	return u, err
}

func (t *tx) CreateUser(ctx context.Context, u *models.User) error {
	return t.exec(ctx, "create user", `
		INSERT INTO users (`+userCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, u.ID, u.CreatedAt, u.UpdatedAt, u.CreatedBy, u.UpdatedBy,
		u.CenterID, u.Email, u.PasswordHash, u.FullName, u.Role, u.IsActive)
}

func (t *tx) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(t.tx.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, rowErr("user", id, err)
	}
	return u, nil
}

func (t *tx) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(t.tx.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, rowErr("user", email, err)
	}
	return u, nil
}

// --- families ---

const tenantCols = auditCols + `, center_id, is_archived`

const parentCols = tenantCols + `, full_name, phone, email, notes`

func scanParent(row scanner) (*models.Parent, error) {
	p := &models.Parent{}
	err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy, &p.CenterID, &p.IsArchived,
		&p.FullName, &p.Phone, &p.Email, &p.Notes)
	return p, err
}

func (t *tx) CreateParent(ctx context.Context, p *models.Parent) error {
	return t.exec(ctx, "create parent", `
		INSERT INTO parents (`+parentCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy, p.CenterID, p.IsArchived,
		p.FullName, p.Phone, p.Email, p.Notes)
}

// scoped builds the WHERE clause shared by every tenant-scoped lookup.
func scoped(centerID, id uuid.UUID, includeArchived bool) *where {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.add("id = ?", id)
	w.archived(includeArchived)
	return w
}

func (t *tx) GetParent(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Parent, error) {
	w := scoped(centerID, id, includeArchived)
	p, err := scanParent(t.tx.QueryRowContext(ctx, `SELECT `+parentCols+` FROM parents`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("parent", id, err)
	}
	return p, nil
}

const childCols = tenantCols + `, full_name, date_of_birth, gender, medical_notes`

func scanChild(row scanner) (*models.Child, error) {
	c := &models.Child{}
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy, &c.CenterID, &c.IsArchived,
		&c.FullName, &c.DateOfBirth, &c.Gender, &c.MedicalNotes)
	return c, err
}

func (t *tx) CreateChild(ctx context.Context, c *models.Child) error {
	return t.exec(ctx, "create child", `
		INSERT INTO children (`+childCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy, c.CenterID, c.IsArchived,
		c.FullName, c.DateOfBirth, c.Gender, c.MedicalNotes)
}

func (t *tx) GetChild(ctx context.Context, centerID, id uuid.UUID, includeArchived bool) (*models.Child, error) {
	w := scoped(centerID, id, includeArchived)
	c, err := scanChild(t.tx.QueryRowContext(ctx, `SELECT `+childCols+` FROM children`+w.String(), w.args...))
	if err != nil {
		return nil, rowErr("child", id, err)
	}
	return c, nil
}

func (t *tx) UpdateChild(ctx context.Context, c *models.Child) error {
	return t.update(ctx, "child", c.ID, `
		UPDATE children
		SET full_name = $1, date_of_birth = $2, gender = $3, medical_notes = $4, updated_at = $5, updated_by = $6
		WHERE id = $7 AND center_id = $8
	`, c.FullName, c.DateOfBirth, c.Gender, c.MedicalNotes, c.UpdatedAt, c.UpdatedBy, c.ID, c.CenterID)
}

func (t *tx) ListChildren(ctx context.Context, centerID uuid.UUID, f store.ChildFilter) ([]*models.Child, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.archived(f.IncludeArchived)
	if f.Search != "" {
		w.add("full_name ILIKE ?", likePattern(f.Search))
	}
	q := `SELECT ` + childCols + ` FROM children` + w.page("created_at, id", f.ListOptions)
	return list(ctx, t, "children", q, w.args, scanChild)
}

const familyLinkCols = tenantCols + `, parent_id, child_id, relationship, is_primary_contact`

func scanFamilyLink(row scanner) (*models.FamilyLink, error) {
	l := &models.FamilyLink{}
	err := row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt, &l.CreatedBy, &l.UpdatedBy, &l.CenterID, &l.IsArchived,
		&l.ParentID, &l.ChildID, &l.Relationship, &l.IsPrimaryContact)
	return l, err
}

func (t *tx) CreateFamilyLink(ctx context.Context, l *models.FamilyLink) error {
	return t.exec(ctx, "create family link", `
		INSERT INTO family_links (`+familyLinkCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, l.ID, l.CreatedAt, l.UpdatedAt, l.CreatedBy, l.UpdatedBy, l.CenterID, l.IsArchived,
		l.ParentID, l.ChildID, l.Relationship, l.IsPrimaryContact)
}

func (t *tx) UpdateFamilyLink(ctx context.Context, l *models.FamilyLink) error {
	return t.update(ctx, "family link", l.ID, `
		UPDATE family_links
		SET relationship = $1, is_primary_contact = $2, updated_at = $3, updated_by = $4
		WHERE id = $5 AND center_id = $6
	`, l.Relationship, l.IsPrimaryContact, l.UpdatedAt, l.UpdatedBy, l.ID, l.CenterID)
}

func (t *tx) ListFamilyLinks(ctx context.Context, centerID, childID uuid.UUID, includeArchived bool) ([]*models.FamilyLink, error) {
	w := &where{}
	w.add("center_id = ?", centerID)
	w.add("child_id = ?", childID)
	w.archived(includeArchived)
	q := `SELECT ` + familyLinkCols + ` FROM family_links` + w.String() + ` ORDER BY created_at, id`
	return list(ctx, t, "family links", q, w.args, scanFamilyLink)
}

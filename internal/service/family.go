package service

import (
	"context"
	"strings"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

type ParentInput struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type ChildInput struct {
	FullName     string        `json:"full_name" validate:"required,max=120"`
	DateOfBirth  time.Time     `json:"date_of_birth" validate:"required"`
	Gender       models.Gender `json:"gender" validate:"omitempty,enum"`
	MedicalNotes string        `json:"medical_notes" validate:"max=2000"`
}

func (s *Service) newParent(actor models.Actor, centerID uuid.UUID, in ParentInput) *models.Parent {
	p := &models.Parent{
		Tenant:   models.Tenant{CenterID: centerID},
		FullName: strings.TrimSpace(in.FullName),
		Phone:    strings.TrimSpace(in.Phone),
		Email:    strings.TrimSpace(in.Email),
		Notes:    in.Notes,
	}
	s.stamp(&p.Audit, actor)
	return p
}

func (s *Service) newChild(actor models.Actor, centerID uuid.UUID, in ChildInput) (*models.Child, error) {
	if err := models.ValidateChildAge(in.DateOfBirth, s.now()); err != nil {
		return nil, err
	}
	gender := in.Gender
	if gender == "" {
		gender = models.GenderUnspecified
	}
	c := &models.Child{
		Tenant:       models.Tenant{CenterID: centerID},
		FullName:     strings.TrimSpace(in.FullName),
		DateOfBirth:  models.DateOnly(in.DateOfBirth),
		Gender:       gender,
		MedicalNotes: in.MedicalNotes,
	}
	s.stamp(&c.Audit, actor)
	return c, nil
}

func (s *Service) CreateParent(ctx context.Context, actor models.Actor, centerID uuid.UUID, in ParentInput) (*models.Parent, error) {
	if err := authorize(actor, centerID, familyRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	p := s.newParent(actor, centerID, in)
	err := s.inTx(ctx, func(tx store.Tx) error {
		return tx.CreateParent(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetParent(ctx context.Context, actor models.Actor, centerID, id uuid.UUID, includeArchived bool) (*models.Parent, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var p *models.Parent
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetParent(ctx, centerID, id, includeArchived)
		return err
	})
	return p, err
}

func (s *Service) CreateChild(ctx context.Context, actor models.Actor, centerID uuid.UUID, in ChildInput) (*models.Child, error) {
	if err := authorize(actor, centerID, familyRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	c, err := s.newChild(actor, centerID, in)
	if err != nil {
		return nil, err
	}
	err = s.inTx(ctx, func(tx store.Tx) error {
		return tx.CreateChild(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetChild(ctx context.Context, actor models.Actor, centerID, id uuid.UUID, includeArchived bool) (*models.Child, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var c *models.Child
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		c, err = tx.GetChild(ctx, centerID, id, includeArchived)
		return err
	})
	return c, err
}

func (s *Service) ListChildren(ctx context.Context, actor models.Actor, centerID uuid.UUID, f store.ChildFilter) ([]*models.Child, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.Child
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListChildren(ctx, centerID, f)
		return err
	})
	return out, err
}

type FamilyLinkInput struct {
	ParentID         uuid.UUID           `json:"parent_id" validate:"required"`
	ChildID          uuid.UUID           `json:"child_id" validate:"required"`
	Relationship     models.Relationship `json:"relationship" validate:"required,enum"`
	IsPrimaryContact bool                `json:"is_primary_contact"`
}

// LinkParent connects a parent to a child of the same center.
func (s *Service) LinkParent(ctx context.Context, actor models.Actor, centerID uuid.UUID, in FamilyLinkInput) (*models.FamilyLink, error) {
	if err := authorize(actor, centerID, familyRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	link := &models.FamilyLink{
		Tenant:           models.Tenant{CenterID: centerID},
		ParentID:         in.ParentID,
		ChildID:          in.ChildID,
		Relationship:     in.Relationship,
		IsPrimaryContact: in.IsPrimaryContact,
	}
	s.stamp(&link.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetParent(ctx, centerID, in.ParentID, false); err != nil {
			return err
		}
		if _, err := tx.GetChild(ctx, centerID, in.ChildID, false); err != nil {
			return err
		}
		return s.insertFamilyLink(ctx, tx, actor, link)
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// insertFamilyLink stores link, clearing any other primary contact of the child first.
func (s *Service) insertFamilyLink(ctx context.Context, tx store.Tx, actor models.Actor, link *models.FamilyLink) error {
	if link.IsPrimaryContact {
		if err := s.clearPrimary(ctx, tx, actor, link.CenterID, link.ChildID, uuid.Nil); err != nil {
			return err
		}
	}
	return tx.CreateFamilyLink(ctx, link)
}

func (s *Service) clearPrimary(ctx context.Context, tx store.Tx, actor models.Actor, centerID, childID, keep uuid.UUID) error {
	links, err := tx.ListFamilyLinks(ctx, centerID, childID, false)
	if err != nil {
		return err
	}
	for _, l := range links {
		if l.ID == keep || !l.IsPrimaryContact {
			continue
		}
		l.IsPrimaryContact = false
		s.touch(&l.Audit, actor)
		if err := tx.UpdateFamilyLink(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

// SetPrimaryContact makes linkID the only primary contact of its child.
func (s *Service) SetPrimaryContact(ctx context.Context, actor models.Actor, centerID, childID, linkID uuid.UUID) error {
	if err := authorize(actor, centerID, familyRoles...); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx store.Tx) error {
		links, err := tx.ListFamilyLinks(ctx, centerID, childID, false)
		if err != nil {
			return err
		}
		var target *models.FamilyLink
		for _, l := range links {
			if l.ID == linkID {
				target = l
			}
		}
		if target == nil {
			return models.NotFoundf("family link %s not found", linkID)
		}
		if err := s.clearPrimary(ctx, tx, actor, centerID, childID, linkID); err != nil {
			return err
		}
		if target.IsPrimaryContact {
			return nil
		}
		target.IsPrimaryContact = true
		s.touch(&target.Audit, actor)
		return tx.UpdateFamilyLink(ctx, target)
	})
}

func (s *Service) ListFamilyLinks(ctx context.Context, actor models.Actor, centerID, childID uuid.UUID, includeArchived bool) ([]*models.FamilyLink, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.FamilyLink
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListFamilyLinks(ctx, centerID, childID, includeArchived)
		return err
	})
	return out, err
}

// PrimaryContactViolation names a child with more than one primary contact.
type PrimaryContactViolation struct {
	ChildID uuid.UUID   `json:"child_id"`
	LinkIDs []uuid.UUID `json:"link_ids"`
}

// VerifyPrimaryContacts reports children of the center that have more than
// one active primary contact.
func (s *Service) VerifyPrimaryContacts(ctx context.Context, actor models.Actor, centerID uuid.UUID) ([]PrimaryContactViolation, error) {
	if err := authorize(actor, centerID, archiveRoles...); err != nil {
		return nil, err
	}
	var out []PrimaryContactViolation
	err := s.inTx(ctx, func(tx store.Tx) error {
		opts := store.ChildFilter{ListOptions: store.ListOptions{Limit: store.MaxLimit}}
		for {
			children, err := tx.ListChildren(ctx, centerID, opts)
			if err != nil {
				return err
			}
			for _, c := range children {
				links, err := tx.ListFamilyLinks(ctx, centerID, c.ID, false)
				if err != nil {
					return err
				}
				var primary []uuid.UUID
				for _, l := range links {
					if l.IsPrimaryContact {
						primary = append(primary, l.ID)
					}
				}
				if len(primary) > 1 {
					out = append(out, PrimaryContactViolation{ChildID: c.ID, LinkIDs: primary})
				}
			}
			if len(children) < opts.Limit {
				return nil
			}
			opts.Offset += opts.Limit
		}
	})
	return out, err
}

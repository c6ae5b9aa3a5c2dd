package service

import (
	"context"
	"errors"
	"strings"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type CenterInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Code     string `json:"code" validate:"required,alphanum,max=20"`
	Address  string `json:"address" validate:"max=500"`
	Phone    string `json:"phone" validate:"max=30"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

func (s *Service) CreateCenter(ctx context.Context, actor models.Actor, in CenterInput) (*models.Center, error) {
	if err := requireGlobal(actor); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	c := &models.Center{
		Name:     strings.TrimSpace(in.Name),
		Code:     strings.ToUpper(in.Code),
		Address:  in.Address,
		Phone:    in.Phone,
		Timezone: in.Timezone,
		IsActive: true,
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	s.stamp(&c.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		return tx.CreateCenter(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.logf("Center %s (%s) created by %s", c.Code, c.ID, actor.UserID)
	return c, nil
}

func (s *Service) GetCenter(ctx context.Context, actor models.Actor, centerID uuid.UUID) (*models.Center, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var c *models.Center
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		c, err = tx.GetCenter(ctx, centerID)
		return err
	})
	return c, err
}

// ListCenters returns every center for super admins and the own center otherwise.
func (s *Service) ListCenters(ctx context.Context, actor models.Actor, opts store.ListOptions) ([]*models.Center, error) {
	if !actor.Global() {
		if actor.CenterID == nil {
			return nil, models.Forbiddenf("actor has no center")
		}
		c, err := s.GetCenter(ctx, actor, *actor.CenterID)
		if err != nil {
			return nil, err
		}
		return []*models.Center{c}, nil
	}
	var out []*models.Center
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListCenters(ctx, opts)
		return err
	})
	return out, err
}

type UserInput struct {
	CenterID *uuid.UUID  `json:"center_id"`
	Email    string      `json:"email" validate:"required,email,max=254"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	FullName string      `json:"full_name" validate:"required,max=120"`
	Role     models.Role `json:"role" validate:"required,enum"`
}

// CreateUser stores a staff account with a bcrypt password hash. Center admins
// may only create non-admin staff for their own center.
func (s *Service) CreateUser(ctx context.Context, actor models.Actor, in UserInput) (*models.User, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.Role == models.RoleSuperAdmin {
		if err := requireGlobal(actor); err != nil {
			return nil, err
		}
		if in.CenterID != nil {
			return nil, models.Validationf("%s accounts are not tied to a center", models.RoleSuperAdmin)
		}
	} else {
		if in.CenterID == nil {
			return nil, models.Validationf("center_id is required for role %s", in.Role)
		}
		if err := authorize(actor, *in.CenterID, userAdminRoles...); err != nil {
			return nil, err
		}
		if in.Role == models.RoleCenterAdmin && !actor.Global() {
			return nil, models.Forbiddenf("only %s may create center admins", models.RoleSuperAdmin)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		CenterID:     in.CenterID,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Role:         in.Role,
		IsActive:     true,
	}
	s.stamp(&u.Audit, actor)
	err = s.inTx(ctx, func(tx store.Tx) error {
		if u.CenterID != nil {
			if _, err := tx.GetCenter(ctx, *u.CenterID); err != nil {
				return err
			}
		}
		return tx.CreateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	s.logf("User %s created with role %s", u.Email, u.Role)
	return u, nil
}

// ErrInvalidCredentials is returned by Authenticate for any login failure.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Authenticate checks an email/password pair and returns the actor for the session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, models.Actor, error) {
	var u *models.User
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		return err
	})
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return nil, models.Actor{}, ErrInvalidCredentials
		}
		return nil, models.Actor{}, err
	}
	if !u.IsActive {
		return nil, models.Actor{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, models.Actor{}, ErrInvalidCredentials
	}
	return u, models.Actor{UserID: u.ID, Role: u.Role, CenterID: u.CenterID}, nil
}

func (s *Service) GetUser(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.User, error) {
	var u *models.User
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, id)
		return err
	})
	if actor.Global() || (err == nil && u.ID == actor.UserID) {
		return u, err
	}
	// scoped actors get the same answer for missing and foreign users
	if models.IsKind(err, models.KindNotFound) || (err == nil && (u.CenterID == nil || !actor.CanAccess(*u.CenterID))) {
		return nil, models.Forbiddenf("no access to user %s", id)
	}
	return u, err
}

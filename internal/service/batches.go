package service

import (
	"context"
	"strings"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

type BatchInput struct {
	Name         string           `json:"name" validate:"required,max=120"`
	MinAgeMonths int              `json:"min_age_months" validate:"gte=0,lte=216"`
	MaxAgeMonths int              `json:"max_age_months" validate:"gte=0,lte=216"`
	DaysOfWeek   []models.Weekday `json:"days_of_week" validate:"required,min=1,max=7,unique,dive,enum"`
	StartTime    string           `json:"start_time" validate:"required,hhmm"`
	EndTime      string           `json:"end_time" validate:"required,hhmm"`
	Capacity     int              `json:"capacity" validate:"gt=0"`
	TrainerID    *uuid.UUID       `json:"trainer_id"`
}

func validateBatchShape(in BatchInput) error {
	if in.MinAgeMonths > in.MaxAgeMonths {
		return models.Validationf("min age must not exceed max age")
	}
	// "HH:MM" strings compare in clock order
	if in.StartTime >= in.EndTime {
		return models.Validationf("start time must be before end time")
	}
	return nil
}

func (s *Service) CreateBatch(ctx context.Context, actor models.Actor, centerID uuid.UUID, in BatchInput) (*models.Batch, error) {
	if err := authorize(actor, centerID, scheduleRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if err := validateBatchShape(in); err != nil {
		return nil, err
	}
	b := &models.Batch{
		Tenant:       models.Tenant{CenterID: centerID},
		Name:         strings.TrimSpace(in.Name),
		MinAgeMonths: in.MinAgeMonths,
		MaxAgeMonths: in.MaxAgeMonths,
		DaysOfWeek:   in.DaysOfWeek,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		Capacity:     in.Capacity,
		TrainerID:    in.TrainerID,
		IsActive:     true,
	}
	s.stamp(&b.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		if b.TrainerID != nil {
			if err := checkStaff(ctx, tx, centerID, *b.TrainerID); err != nil {
				return err
			}
		}
		return tx.CreateBatch(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBatch replaces the schedule of a batch. Capacity may not drop below
// the number of active enrollments.
func (s *Service) UpdateBatch(ctx context.Context, actor models.Actor, centerID, batchID uuid.UUID, in BatchInput) (*models.Batch, error) {
	if err := authorize(actor, centerID, scheduleRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if err := validateBatchShape(in); err != nil {
		return nil, err
	}
	var b *models.Batch
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if b, err = tx.GetBatch(ctx, centerID, batchID, false); err != nil {
			return err
		}
		n, err := tx.CountActiveEnrollments(ctx, centerID, batchID)
		if err != nil {
			return err
		}
		if in.Capacity < n {
			return models.Conflictf("batch has %d active enrollments", n)
		}
		if in.TrainerID != nil {
			if err := checkStaff(ctx, tx, centerID, *in.TrainerID); err != nil {
				return err
			}
		}
		b.Name = strings.TrimSpace(in.Name)
		b.MinAgeMonths, b.MaxAgeMonths = in.MinAgeMonths, in.MaxAgeMonths
		b.DaysOfWeek = in.DaysOfWeek
		b.StartTime, b.EndTime = in.StartTime, in.EndTime
		b.Capacity = in.Capacity
		b.TrainerID = in.TrainerID
		s.touch(&b.Audit, actor)
		return tx.UpdateBatch(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// SetBatchActive opens or closes a batch for new enrollments and intro visits.
func (s *Service) SetBatchActive(ctx context.Context, actor models.Actor, centerID, batchID uuid.UUID, active bool) (*models.Batch, error) {
	if err := authorize(actor, centerID, scheduleRoles...); err != nil {
		return nil, err
	}
	var b *models.Batch
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if b, err = tx.GetBatch(ctx, centerID, batchID, false); err != nil {
			return err
		}
		b.IsActive = active
		s.touch(&b.Audit, actor)
		return tx.UpdateBatch(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetBatch(ctx context.Context, actor models.Actor, centerID, batchID uuid.UUID, includeArchived bool) (*models.Batch, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var b *models.Batch
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		b, err = tx.GetBatch(ctx, centerID, batchID, includeArchived)
		return err
	})
	return b, err
}

func (s *Service) ListBatches(ctx context.Context, actor models.Actor, centerID uuid.UUID, opts store.ListOptions) ([]*models.Batch, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.Batch
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListBatches(ctx, centerID, opts)
		return err
	})
	return out, err
}

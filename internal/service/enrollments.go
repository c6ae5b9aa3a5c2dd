package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

// EnrollmentTerms are the commercial terms of a new enrollment.
type EnrollmentTerms struct {
	BatchID        uuid.UUID       `json:"batch_id" validate:"required"`
	PlanType       models.PlanType `json:"plan_type" validate:"required,enum"`
	StartDate      time.Time       `json:"start_date" validate:"required"`
	EndDate        *time.Time      `json:"end_date"`
	VisitsIncluded *int            `json:"visits_included" validate:"omitempty,gt=0"`
	FeeAmount      int64           `json:"fee_amount" validate:"gte=0"`
}

type EnrollmentInput struct {
	ChildID uuid.UUID `json:"child_id" validate:"required"`
	EnrollmentTerms
}

// CreateEnrollment enrolls an existing child into a batch.
func (s *Service) CreateEnrollment(ctx context.Context, actor models.Actor, centerID uuid.UUID, in EnrollmentInput) (*models.Enrollment, error) {
	if err := authorize(actor, centerID, enrollmentRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	var e *models.Enrollment
	err := s.inTx(ctx, func(tx store.Tx) error {
		child, err := tx.GetChild(ctx, centerID, in.ChildID, false)
		if err != nil {
			return err
		}
		e, err = s.createEnrollment(ctx, tx, actor, child, in.EnrollmentTerms, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logf("Enrollment %s created for child %s in batch %s", e.ID, e.ChildID, e.BatchID)
	return e, nil
}

// createEnrollment checks the batch, age band, capacity and plan rules, then
// stores an ACTIVE enrollment for child.
func (s *Service) createEnrollment(ctx context.Context, tx store.Tx, actor models.Actor, child *models.Child, terms EnrollmentTerms, leadID *uuid.UUID) (*models.Enrollment, error) {
	batch, err := tx.GetBatch(ctx, child.CenterID, terms.BatchID, false)
	if err != nil {
		return nil, err
	}
	if !batch.IsActive {
		return nil, models.InvalidStatef("batch %s is not active", batch.Name)
	}

	start := models.DateOnly(terms.StartDate)
	age := models.AgeInMonths(child.DateOfBirth, start)
	if age < batch.MinAgeMonths || age > batch.MaxAgeMonths {
		return nil, models.Validationf("child is %d months old; batch %s takes %d-%d months",
			age, batch.Name, batch.MinAgeMonths, batch.MaxAgeMonths)
	}

	active := models.EnrollmentActive
	existing, err := tx.ListEnrollments(ctx, child.CenterID, store.EnrollmentFilter{
		ChildID: &child.ID, BatchID: &batch.ID, Status: &active,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, models.Conflictf("child already has an active enrollment in batch %s", batch.Name)
	}
	n, err := tx.CountActiveEnrollments(ctx, child.CenterID, batch.ID)
	if err != nil {
		return nil, err
	}
	if n >= batch.Capacity {
		return nil, models.Conflictf("batch %s is full (%d/%d)", batch.Name, n, batch.Capacity)
	}

	if !terms.PlanType.VisitBased() && terms.VisitsIncluded != nil {
		return nil, models.Validationf("%s plans are not visit based", terms.PlanType)
	}
	end := terms.EndDate
	if end == nil {
		end = models.PlanEndDate(terms.PlanType, start)
	} else {
		d := models.DateOnly(*end)
		end = &d
	}

	e := &models.Enrollment{
		Tenant:         models.Tenant{CenterID: child.CenterID},
		ChildID:        child.ID,
		BatchID:        batch.ID,
		LeadID:         leadID,
		PlanType:       terms.PlanType,
		StartDate:      start,
		EndDate:        end,
		VisitsIncluded: terms.VisitsIncluded,
		FeeAmount:      terms.FeeAmount,
		Status:         models.EnrollmentActive,
		Version:        1,
	}
	if err := models.ValidateEnrollmentTerms(e); err != nil {
		return nil, err
	}
	s.stamp(&e.Audit, actor)
	if err := tx.CreateEnrollment(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetEnrollment(ctx context.Context, actor models.Actor, centerID, id uuid.UUID, includeArchived bool) (*models.Enrollment, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var e *models.Enrollment
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		e, err = tx.GetEnrollment(ctx, centerID, id, includeArchived)
		return err
	})
	return e, err
}

func (s *Service) ListEnrollments(ctx context.Context, actor models.Actor, centerID uuid.UUID, f store.EnrollmentFilter) ([]*models.Enrollment, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.Enrollment
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListEnrollments(ctx, centerID, f)
		return err
	})
	return out, err
}

// ChangeEnrollmentStatus applies a staff-initiated status change.
func (s *Service) ChangeEnrollmentStatus(ctx context.Context, actor models.Actor, centerID, id uuid.UUID, to models.EnrollmentStatus) (*models.Enrollment, error) {
	if err := authorize(actor, centerID, billingRoles...); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, models.Validationf("invalid enrollment status: %q", to)
	}
	var e *models.Enrollment
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if e, err = tx.LockEnrollment(ctx, centerID, id, false); err != nil {
			return err
		}
		if err := models.CheckEnrollmentTransition(e.Status, to); err != nil {
			return err
		}
		if to == models.EnrollmentActive && e.EndDate != nil && models.DateOnly(*e.EndDate).Before(models.DateOnly(s.now())) {
			return models.InvalidStatef("enrollment ended on %s", e.EndDate.Format("2006-01-02"))
		}
		from := e.Status
		e.Status = to
		s.touch(&e.Audit, actor)
		if err := tx.UpdateEnrollment(ctx, e); err != nil {
			return err
		}
		s.logf("Enrollment %s moved %s -> %s", e.ID, from, to)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ExpireEnrollments marks ACTIVE enrollments whose end date lies before asOf
// as EXPIRED, across every center. It returns the number expired.
func (s *Service) ExpireEnrollments(ctx context.Context, actor models.Actor, asOf time.Time) (int, error) {
	if err := requireGlobal(actor); err != nil {
		return 0, err
	}
	var expired []string
	err := s.inTx(ctx, func(tx store.Tx) error {
		lapsed, err := tx.ListLapsedEnrollments(ctx, asOf)
		if err != nil {
			return err
		}
		for _, e := range lapsed {
			e.Status = models.EnrollmentExpired
			s.touch(&e.Audit, actor)
			if err := tx.UpdateEnrollment(ctx, e); err != nil {
				return fmt.Errorf("failed to expire enrollment %s: %w", e.ID, err)
			}
			expired = append(expired, e.ID.String())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) > 0 {
		s.logf("Expired %d enrollments: %s", len(expired), strings.Join(expired, ", "))
	}
	return len(expired), nil
}

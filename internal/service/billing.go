package service

import (
	"context"
	"strings"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

type DiscountInput struct {
	Type   models.DiscountType `json:"discount_type" validate:"required,enum"`
	Value  int64               `json:"value" validate:"gt=0"`
	Reason string              `json:"reason" validate:"required,max=500"`
}

// AddDiscount attaches a discount to an enrollment. The combined discounts
// may not exceed the enrollment fee.
func (s *Service) AddDiscount(ctx context.Context, actor models.Actor, centerID, enrollmentID uuid.UUID, in DiscountInput) (*models.Discount, error) {
	if err := authorize(actor, centerID, billingRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	d := &models.Discount{
		Tenant:       models.Tenant{CenterID: centerID},
		EnrollmentID: enrollmentID,
		Type:         in.Type,
		Value:        in.Value,
		Reason:       strings.TrimSpace(in.Reason),
		ApprovedBy:   actor.Ref(),
	}
	if err := models.ValidateDiscount(d); err != nil {
		return nil, err
	}
	s.stamp(&d.Audit, actor)
	err := s.inTx(ctx, func(tx store.Tx) error {
		e, err := tx.LockEnrollment(ctx, centerID, enrollmentID, false)
		if err != nil {
			return err
		}
		current, err := tx.ListDiscounts(ctx, centerID, enrollmentID, false)
		if err != nil {
			return err
		}
		if _, err := models.DiscountTotal(append(current, d), e.FeeAmount); err != nil {
			return err
		}
		return tx.CreateDiscount(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDiscounts(ctx context.Context, actor models.Actor, centerID, enrollmentID uuid.UUID, includeArchived bool) ([]*models.Discount, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.Discount
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListDiscounts(ctx, centerID, enrollmentID, includeArchived)
		return err
	})
	return out, err
}

type PaymentInput struct {
	Amount int64 `json:"amount" validate:"gt=0"`

	// DiscountTotal defaults to whatever part of the enrollment's discounts on
	// its fee earlier payments have not consumed, capped at Amount.
	DiscountTotal *int64 `json:"discount_total" validate:"omitempty,gte=0"`

	// NetAmount, when given, must equal Amount - DiscountTotal.
	NetAmount *int64 `json:"net_amount"`

	Method    models.PaymentMethod `json:"method" validate:"required,enum"`
	Status    models.PaymentStatus `json:"status" validate:"omitempty,enum"`
	PaidAt    *time.Time           `json:"paid_at"`
	Reference string               `json:"reference" validate:"max=120"`
	Notes     string               `json:"notes" validate:"max=2000"`
}

// RecordPayment stores a payment against an enrollment, keeping
// net_amount = amount - discount_total.
func (s *Service) RecordPayment(ctx context.Context, actor models.Actor, centerID, enrollmentID uuid.UUID, in PaymentInput) (*models.Payment, error) {
	if err := authorize(actor, centerID, billingRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	p := &models.Payment{
		Tenant:       models.Tenant{CenterID: centerID},
		EnrollmentID: enrollmentID,
		Amount:       in.Amount,
		Method:       in.Method,
		Status:       in.Status,
		PaidAt:       s.now(),
		Reference:    strings.TrimSpace(in.Reference),
		Notes:        in.Notes,
	}
	if p.Status == "" {
		p.Status = models.PaymentPaid
	}
	if in.PaidAt != nil {
		p.PaidAt = *in.PaidAt
	}
	s.stamp(&p.Audit, actor)

	err := s.inTx(ctx, func(tx store.Tx) error {
		e, err := tx.LockEnrollment(ctx, centerID, enrollmentID, true)
		if err != nil {
			return err
		}
		if in.DiscountTotal != nil {
			p.DiscountTotal = *in.DiscountTotal
		} else {
			unused, err := s.unusedDiscount(ctx, tx, e)
			if err != nil {
				return err
			}
			p.DiscountTotal = min(unused, p.Amount)
		}
		p.NetAmount = p.Amount - p.DiscountTotal
		if in.NetAmount != nil {
			p.NetAmount = *in.NetAmount
		}
		if err := models.ValidatePaymentAmounts(p); err != nil {
			return err
		}
		return tx.CreatePayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logf("Payment %s of %d recorded for enrollment %s", p.ID, p.NetAmount, enrollmentID)
	return p, nil
}

// unusedDiscount is the enrollment's discount total on its fee less what its
// non-refunded payments already took. The caller holds the enrollment lock.
func (s *Service) unusedDiscount(ctx context.Context, tx store.Tx, e *models.Enrollment) (int64, error) {
	discounts, err := tx.ListDiscounts(ctx, e.CenterID, e.ID, false)
	if err != nil {
		return 0, err
	}
	total, err := models.DiscountTotal(discounts, e.FeeAmount)
	if err != nil || total == 0 {
		return 0, err
	}
	var paid []*models.Payment
	opts := store.ListOptions{Limit: store.MaxLimit}
	for {
		page, err := tx.ListPayments(ctx, e.CenterID, e.ID, opts)
		if err != nil {
			return 0, err
		}
		paid = append(paid, page...)
		if len(page) < opts.Limit {
			break
		}
		opts.Offset += opts.Limit
	}
	return models.RemainingDiscount(total, paid), nil
}

func (s *Service) GetPayment(ctx context.Context, actor models.Actor, centerID, id uuid.UUID) (*models.Payment, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var p *models.Payment
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetPayment(ctx, centerID, id)
		return err
	})
	return p, err
}

func (s *Service) ListPayments(ctx context.Context, actor models.Actor, centerID, enrollmentID uuid.UUID, opts store.ListOptions) ([]*models.Payment, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.Payment
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListPayments(ctx, centerID, enrollmentID, opts)
		return err
	})
	return out, err
}

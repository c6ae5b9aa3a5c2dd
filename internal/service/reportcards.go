package service

import (
	"context"
	"strings"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
)

type ReportCardInput struct {
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
	Summary     string     `json:"summary" validate:"max=4000"`
}

// reportPeriod fills a missing bound from the calendar month of the other
// one, or of at when both are missing.
func reportPeriod(in ReportCardInput, at time.Time) (time.Time, time.Time, error) {
	anchor := at
	switch {
	case in.PeriodStart != nil:
		anchor = *in.PeriodStart
	case in.PeriodEnd != nil:
		anchor = *in.PeriodEnd
	}
	month := now.With(anchor)
	start, end := models.DateOnly(month.BeginningOfMonth()), models.DateOnly(month.EndOfMonth())
	if in.PeriodStart != nil {
		start = models.DateOnly(*in.PeriodStart)
	}
	if in.PeriodEnd != nil {
		end = models.DateOnly(*in.PeriodEnd)
	}
	if end.Before(start) {
		return start, end, models.Validationf("period_end must not be before period_start")
	}
	return start, end, nil
}

// GenerateReportCard freezes the child's current skill progress and highest
// levels into a new report card. Cards are never updated; generating again
// for the same or an overlapping period adds another card.
func (s *Service) GenerateReportCard(ctx context.Context, actor models.Actor, centerID, childID uuid.UUID, in ReportCardInput) (*models.ReportCard, error) {
	if err := authorize(actor, centerID, progressRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	at := s.now()
	start, end, err := reportPeriod(in, at)
	if err != nil {
		return nil, err
	}
	rc := &models.ReportCard{
		Tenant:      models.Tenant{CenterID: centerID},
		ChildID:     childID,
		PeriodStart: start,
		PeriodEnd:   end,
		Summary:     strings.TrimSpace(in.Summary),
		GeneratedBy: actor.Ref(),
		GeneratedAt: at,
	}
	s.stamp(&rc.Audit, actor)
	err = s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetChild(ctx, centerID, childID, false); err != nil {
			return err
		}
		var err error
		if rc.SkillSnapshot, rc.LevelSnapshot, err = progressLines(ctx, tx, centerID, childID); err != nil {
			return err
		}
		return tx.CreateReportCard(ctx, rc)
	})
	if err != nil {
		return nil, err
	}
	s.logf("Report card %s generated for child %s (%s to %s)", rc.ID, childID,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	return rc, nil
}

func (s *Service) GetReportCard(ctx context.Context, actor models.Actor, centerID, id uuid.UUID) (*models.ReportCard, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var rc *models.ReportCard
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		rc, err = tx.GetReportCard(ctx, centerID, id)
		return err
	})
	return rc, err
}

// ListReportCards returns a child's cards, newest first.
func (s *Service) ListReportCards(ctx context.Context, actor models.Actor, centerID, childID uuid.UUID, opts store.ListOptions) ([]*models.ReportCard, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.ReportCard
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListReportCards(ctx, centerID, childID, opts)
		return err
	})
	return out, err
}

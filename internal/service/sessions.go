package service

import (
	"context"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

// maxGenerateDays bounds one GenerateSessions call.
const maxGenerateDays = 366

type SessionInput struct {
	BatchID     uuid.UUID  `json:"batch_id" validate:"required"`
	SessionDate time.Time  `json:"session_date" validate:"required"`
	StartTime   string     `json:"start_time" validate:"omitempty,hhmm"`
	EndTime     string     `json:"end_time" validate:"omitempty,hhmm"`
	TrainerID   *uuid.UUID `json:"trainer_id"`
	Notes       string     `json:"notes" validate:"max=2000"`
}

// CreateClassSession adds a one-off occurrence of a batch. Times and trainer
// default to the batch schedule.
func (s *Service) CreateClassSession(ctx context.Context, actor models.Actor, centerID uuid.UUID, in SessionInput) (*models.ClassSession, error) {
	if err := authorize(actor, centerID, scheduleRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	var cs *models.ClassSession
	err := s.inTx(ctx, func(tx store.Tx) error {
		batch, err := tx.GetBatch(ctx, centerID, in.BatchID, false)
		if err != nil {
			return err
		}
		day := models.DateOnly(in.SessionDate)
		existing, err := tx.ListClassSessions(ctx, centerID, store.SessionFilter{BatchID: &batch.ID, From: &day, To: &day})
		if err != nil {
			return err
		}
		cs = s.newSession(actor, batch, day)
		if in.StartTime != "" {
			cs.StartTime = in.StartTime
		}
		if in.EndTime != "" {
			cs.EndTime = in.EndTime
		}
		if cs.StartTime >= cs.EndTime {
			return models.Validationf("start time must be before end time")
		}
		for _, other := range existing {
			if other.StartTime == cs.StartTime {
				return models.Conflictf("batch %s already has a session on %s at %s", batch.Name, day.Format("2006-01-02"), cs.StartTime)
			}
		}
		if in.TrainerID != nil {
			if err := checkStaff(ctx, tx, centerID, *in.TrainerID); err != nil {
				return err
			}
			cs.TrainerID = in.TrainerID
		}
		cs.Notes = in.Notes
		return tx.CreateClassSession(ctx, cs)
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *Service) newSession(actor models.Actor, batch *models.Batch, day time.Time) *models.ClassSession {
	cs := &models.ClassSession{
		Tenant:      models.Tenant{CenterID: batch.CenterID},
		BatchID:     batch.ID,
		SessionDate: day,
		StartTime:   batch.StartTime,
		EndTime:     batch.EndTime,
		TrainerID:   batch.TrainerID,
		Status:      models.SessionScheduled,
	}
	s.stamp(&cs.Audit, actor)
	return cs
}

// GenerateSessions creates the sessions of a batch's weekly schedule for
// every day in [from, to]. Days that already have a session are skipped.
func (s *Service) GenerateSessions(ctx context.Context, actor models.Actor, centerID, batchID uuid.UUID, from, to time.Time) ([]*models.ClassSession, error) {
	if err := authorize(actor, centerID, scheduleRoles...); err != nil {
		return nil, err
	}
	from, to = models.DateOnly(from), models.DateOnly(to)
	if to.Before(from) {
		return nil, models.Validationf("end date must not be before start date")
	}
	if to.Sub(from) > maxGenerateDays*24*time.Hour {
		return nil, models.Validationf("cannot generate more than %d days at once", maxGenerateDays)
	}

	var created []*models.ClassSession
	err := s.inTx(ctx, func(tx store.Tx) error {
		batch, err := tx.GetBatch(ctx, centerID, batchID, false)
		if err != nil {
			return err
		}
		if !batch.IsActive {
			return models.InvalidStatef("batch %s is not active", batch.Name)
		}
		taken := map[string]bool{}
		f := store.SessionFilter{
			BatchID: &batchID, From: &from, To: &to,
			ListOptions: store.ListOptions{IncludeArchived: true, Limit: store.MaxLimit},
		}
		for {
			existing, err := tx.ListClassSessions(ctx, centerID, f)
			if err != nil {
				return err
			}
			for _, cs := range existing {
				taken[cs.SessionDate.Format("2006-01-02")] = true
			}
			if len(existing) < f.Limit {
				break
			}
			f.Offset += f.Limit
		}
		days := make(map[models.Weekday]bool, len(batch.DaysOfWeek))
		for _, d := range batch.DaysOfWeek {
			days[d] = true
		}

		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			if !days[models.WeekdayOf(day)] || taken[day.Format("2006-01-02")] {
				continue
			}
			cs := s.newSession(actor, batch, day)
			if err := tx.CreateClassSession(ctx, cs); err != nil {
				return err
			}
			created = append(created, cs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logf("Generated %d sessions for batch %s", len(created), batchID)
	return created, nil
}

// CancelSession cancels a scheduled session. Sessions that already drew
// visits from an enrollment cannot be cancelled.
func (s *Service) CancelSession(ctx context.Context, actor models.Actor, centerID, sessionID uuid.UUID, reason string) (*models.ClassSession, error) {
	if err := authorize(actor, centerID, scheduleRoles...); err != nil {
		return nil, err
	}
	var cs *models.ClassSession
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if cs, err = tx.GetClassSession(ctx, centerID, sessionID, false); err != nil {
			return err
		}
		if cs.Status != models.SessionScheduled {
			return models.InvalidStatef("session is already %s", cs.Status)
		}
		marks, err := tx.ListAttendance(ctx, centerID, store.AttendanceFilter{SessionID: &sessionID, ListOptions: store.ListOptions{Limit: store.MaxLimit}})
		if err != nil {
			return err
		}
		for _, a := range marks {
			if a.Status == models.AttendancePresent {
				return models.InvalidStatef("session already has children marked present")
			}
		}
		cs.Status = models.SessionCancelled
		if reason != "" {
			cs.Notes = reason
		}
		s.touch(&cs.Audit, actor)
		return tx.UpdateClassSession(ctx, cs)
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *Service) CompleteSession(ctx context.Context, actor models.Actor, centerID, sessionID uuid.UUID) (*models.ClassSession, error) {
	if err := authorize(actor, centerID, attendanceRoles...); err != nil {
		return nil, err
	}
	var cs *models.ClassSession
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if cs, err = tx.GetClassSession(ctx, centerID, sessionID, false); err != nil {
			return err
		}
		if cs.Status != models.SessionScheduled {
			return models.InvalidStatef("session is already %s", cs.Status)
		}
		cs.Status = models.SessionCompleted
		s.touch(&cs.Audit, actor)
		return tx.UpdateClassSession(ctx, cs)
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *Service) GetSession(ctx context.Context, actor models.Actor, centerID, sessionID uuid.UUID, includeArchived bool) (*models.ClassSession, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var cs *models.ClassSession
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		cs, err = tx.GetClassSession(ctx, centerID, sessionID, includeArchived)
		return err
	})
	return cs, err
}

func (s *Service) ListSessions(ctx context.Context, actor models.Actor, centerID uuid.UUID, f store.SessionFilter) ([]*models.ClassSession, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.ClassSession
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListClassSessions(ctx, centerID, f)
		return err
	})
	return out, err
}

package service

import (
	"context"
	"errors"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

type AttendanceInput struct {
	SessionID    uuid.UUID               `json:"session_id" validate:"required"`
	ChildID      uuid.UUID               `json:"child_id" validate:"required"`
	EnrollmentID *uuid.UUID              `json:"enrollment_id"`
	Status       models.AttendanceStatus `json:"status" validate:"required,enum"`
	Notes        string                  `json:"notes" validate:"max=2000"`
}

// MarkAttendance records or re-records a child's attendance at a session and
// reconciles the visit counter of the enrollment it draws from: the counter
// moves by present(new) - present(old), so re-marking never double counts.
func (s *Service) MarkAttendance(ctx context.Context, actor models.Actor, centerID uuid.UUID, in AttendanceInput) (*models.Attendance, error) {
	if err := authorize(actor, centerID, attendanceRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	var mark *models.Attendance
	err := s.inTx(ctx, func(tx store.Tx) error {
		session, err := tx.GetClassSession(ctx, centerID, in.SessionID, false)
		if err != nil {
			return err
		}
		if session.Status == models.SessionCancelled {
			return models.InvalidStatef("session was cancelled")
		}
		child, err := tx.GetChild(ctx, centerID, in.ChildID, true)
		if err != nil {
			return err
		}

		existing, err := tx.FindAttendance(ctx, centerID, session.ID, in.ChildID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		var old *models.AttendanceStatus
		if existing != nil {
			prev := existing.Status
			old = &prev
		}
		// An archived child keeps its marks correctable but gains no new visits.
		if child.IsArchived {
			if existing == nil {
				return models.NotFoundf("child %s not found", in.ChildID)
			}
			if models.VisitDelta(old, in.Status) > 0 {
				return models.InvalidStatef("child is archived")
			}
		}

		enrollment, err := s.attendanceEnrollment(ctx, tx, session, existing, in)
		if err != nil {
			return err
		}
		if in.Status == models.AttendancePresent {
			if enrollment == nil {
				return models.InvalidStatef("child has no active enrollment in this batch")
			}
			if !enrollment.CoversDate(session.SessionDate) {
				return models.InvalidStatef("session date %s is outside the enrollment period",
					session.SessionDate.Format("2006-01-02"))
			}
		}

		if enrollment != nil {
			delta := models.VisitDelta(old, in.Status)
			if delta > 0 && enrollment.IsArchived {
				return models.InvalidStatef("enrollment is archived")
			}
			if delta > 0 && enrollment.Status != models.EnrollmentActive {
				return models.InvalidStatef("enrollment is %s", enrollment.Status)
			}
			before := enrollment.VisitsUsed
			if err := models.ApplyVisitDelta(enrollment, delta); err != nil {
				return err
			}
			if enrollment.VisitsUsed != before {
				s.touch(&enrollment.Audit, actor)
				if err := tx.UpdateEnrollment(ctx, enrollment); err != nil {
					return err
				}
			}
		}

		at := s.now()
		if existing != nil {
			mark = existing
			mark.Status = in.Status
			mark.Notes = in.Notes
			mark.MarkedBy = actor.Ref()
			mark.MarkedAt = at
			if enrollment != nil {
				mark.EnrollmentID = &enrollment.ID
			}
			s.touch(&mark.Audit, actor)
			return tx.UpdateAttendance(ctx, mark)
		}
		mark = &models.Attendance{
			Tenant:    models.Tenant{CenterID: centerID},
			SessionID: session.ID,
			ChildID:   in.ChildID,
			Status:    in.Status,
			MarkedBy:  actor.Ref(),
			MarkedAt:  at,
			Notes:     in.Notes,
		}
		if enrollment != nil {
			mark.EnrollmentID = &enrollment.ID
		}
		s.stamp(&mark.Audit, actor)
		return tx.CreateAttendance(ctx, mark)
	})
	if err != nil {
		return nil, err
	}
	return mark, nil
}

// attendanceEnrollment picks and locks the enrollment an attendance row
// draws from: the explicit one, the one already recorded on the row, or the
// child's active enrollment in the session's batch. It may return nil.
// An enrollment already recorded on the row stays reachable after archiving
// so earlier marks can be corrected.
func (s *Service) attendanceEnrollment(ctx context.Context, tx store.Tx, session *models.ClassSession,
	existing *models.Attendance, in AttendanceInput) (*models.Enrollment, error) {
	id := in.EnrollmentID
	recorded := false
	if existing != nil && existing.EnrollmentID != nil {
		if id != nil && *id != *existing.EnrollmentID {
			return nil, models.InvalidStatef("attendance is already drawn from enrollment %s", *existing.EnrollmentID)
		}
		id = existing.EnrollmentID
		recorded = true
	}
	if id == nil {
		active := models.EnrollmentActive
		found, err := tx.ListEnrollments(ctx, session.CenterID, store.EnrollmentFilter{
			ChildID: &in.ChildID, BatchID: &session.BatchID, Status: &active,
		})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, nil
		}
		id = &found[0].ID
	}

	e, err := tx.LockEnrollment(ctx, session.CenterID, *id, recorded)
	if err != nil {
		return nil, err
	}
	if e.ChildID != in.ChildID {
		return nil, models.Validationf("enrollment %s belongs to another child", e.ID)
	}
	if e.BatchID != session.BatchID {
		return nil, models.Validationf("enrollment %s is for another batch", e.ID)
	}
	return e, nil
}

func (s *Service) ListAttendance(ctx context.Context, actor models.Actor, centerID uuid.UUID, f store.AttendanceFilter) ([]*models.Attendance, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.Attendance
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListAttendance(ctx, centerID, f)
		return err
	})
	return out, err
}

func (s *Service) GetAttendance(ctx context.Context, actor models.Actor, centerID, id uuid.UUID) (*models.Attendance, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var a *models.Attendance
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		a, err = tx.GetAttendance(ctx, centerID, id)
		return err
	})
	return a, err
}

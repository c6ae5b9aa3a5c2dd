package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

type LeadInput struct {
	ChildName  string            `json:"child_name" validate:"required,max=120"`
	ChildDOB   *time.Time        `json:"child_dob"`
	ParentName string            `json:"parent_name" validate:"required,max=120"`
	Phone      string            `json:"phone" validate:"required,max=30"`
	Email      string            `json:"email" validate:"omitempty,email"`
	Source     models.LeadSource `json:"source" validate:"required,enum"`
	Notes      string            `json:"notes" validate:"max=2000"`
	AssignedTo *uuid.UUID        `json:"assigned_to"`
}

// CreateLead records a new enquiry in status NEW.
func (s *Service) CreateLead(ctx context.Context, actor models.Actor, centerID uuid.UUID, in LeadInput) (*models.Lead, error) {
	if err := authorize(actor, centerID, leadRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.ChildDOB != nil {
		if err := models.ValidateChildAge(*in.ChildDOB, s.now()); err != nil {
			return nil, err
		}
		dob := models.DateOnly(*in.ChildDOB)
		in.ChildDOB = &dob
	}

	lead := &models.Lead{
		Tenant:     models.Tenant{CenterID: centerID},
		ChildName:  strings.TrimSpace(in.ChildName),
		ChildDOB:   in.ChildDOB,
		ParentName: strings.TrimSpace(in.ParentName),
		Phone:      strings.TrimSpace(in.Phone),
		Email:      strings.TrimSpace(in.Email),
		Source:     in.Source,
		Status:     models.LeadNew,
		Notes:      in.Notes,
		AssignedTo: in.AssignedTo,
	}
	s.stamp(&lead.Audit, actor)

	err := s.inTx(ctx, func(tx store.Tx) error {
		if lead.AssignedTo != nil {
			if err := checkStaff(ctx, tx, centerID, *lead.AssignedTo); err != nil {
				return err
			}
		}
		if err := tx.CreateLead(ctx, lead); err != nil {
			return err
		}
		status := models.LeadNew
		return s.appendActivity(ctx, tx, actor, lead, models.ActivityCreated, nil, &status,
			fmt.Sprintf("Lead created from %s", lead.Source))
	})
	if err != nil {
		return nil, err
	}
	s.logf("Lead %s created for center %s", lead.ID, centerID)
	return lead, nil
}

// checkStaff verifies that userID is an active staff member of the center.
func checkStaff(ctx context.Context, tx store.Tx, centerID, userID uuid.UUID) error {
	u, err := tx.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Validationf("user %s does not exist", userID)
	}
	if err != nil {
		return err
	}
	if !u.IsActive || u.CenterID == nil || *u.CenterID != centerID {
		return models.Validationf("user %s is not active staff of this center", userID)
	}
	return nil
}

func (s *Service) appendActivity(ctx context.Context, tx store.Tx, actor models.Actor, lead *models.Lead,
	typ models.ActivityType, from, to *models.LeadStatus, description string) error {
	return tx.AppendLeadActivity(ctx, s.newActivity(actor, lead, typ, from, to, description))
}

func (s *Service) newActivity(actor models.Actor, lead *models.Lead, typ models.ActivityType,
	from, to *models.LeadStatus, description string) *models.LeadActivity {
	a := &models.LeadActivity{
		Tenant:      models.Tenant{CenterID: lead.CenterID},
		LeadID:      lead.ID,
		Type:        typ,
		OldStatus:   from,
		NewStatus:   to,
		Description: description,
		PerformedBy: actor.Ref(),
		PerformedAt: s.now(),
	}
	s.stamp(&a.Audit, actor)
	return a
}

// moveLead applies one checked status transition and records it.
func (s *Service) moveLead(ctx context.Context, tx store.Tx, actor models.Actor, lead *models.Lead,
	to models.LeadStatus, typ models.ActivityType, description string) error {
	from := lead.Status
	if err := models.CheckLeadTransition(from, to); err != nil {
		return err
	}
	lead.Status = to
	s.touch(&lead.Audit, actor)
	if err := tx.UpdateLead(ctx, lead); err != nil {
		return err
	}
	s.logf("Lead %s moved %s -> %s", lead.ID, from, to)
	return s.appendActivity(ctx, tx, actor, lead, typ, &from, &to, description)
}

func lockOpenLead(ctx context.Context, tx store.Tx, centerID, leadID uuid.UUID) (*models.Lead, error) {
	lead, err := tx.LockLead(ctx, centerID, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status.Terminal() {
		return nil, models.InvalidStatef("lead is already %s", lead.Status)
	}
	return lead, nil
}

// MarkContacted moves a NEW lead to CONTACTED.
func (s *Service) MarkContacted(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID, note string) (*models.Lead, error) {
	if err := authorize(actor, centerID, leadRoles...); err != nil {
		return nil, err
	}
	var lead *models.Lead
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if lead, err = lockOpenLead(ctx, tx, centerID, leadID); err != nil {
			return err
		}
		desc := "Parent contacted"
		if note = strings.TrimSpace(note); note != "" {
			desc += ": " + note
		}
		return s.moveLead(ctx, tx, actor, lead, models.LeadContacted, models.ActivityStatusChange, desc)
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

type IntroVisitInput struct {
	ScheduledAt time.Time  `json:"scheduled_at" validate:"required"`
	BatchID     *uuid.UUID `json:"batch_id"`
	TrainerID   *uuid.UUID `json:"trainer_id"`
	Notes       string     `json:"notes" validate:"max=2000"`
}

// ScheduleIntroVisit books a trial class. NEW and CONTACTED leads move to
// INTRO_SCHEDULED; later stages keep their status.
func (s *Service) ScheduleIntroVisit(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID, in IntroVisitInput) (*models.IntroVisit, error) {
	if err := authorize(actor, centerID, leadRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	visit := &models.IntroVisit{
		Tenant:      models.Tenant{CenterID: centerID},
		LeadID:      leadID,
		BatchID:     in.BatchID,
		ScheduledAt: in.ScheduledAt,
		TrainerID:   in.TrainerID,
		Notes:       in.Notes,
	}
	s.stamp(&visit.Audit, actor)

	err := s.inTx(ctx, func(tx store.Tx) error {
		lead, err := lockOpenLead(ctx, tx, centerID, leadID)
		if err != nil {
			return err
		}
		if in.BatchID != nil {
			batch, err := tx.GetBatch(ctx, centerID, *in.BatchID, false)
			if err != nil {
				return err
			}
			if !batch.IsActive {
				return models.Validationf("batch %s is not active", batch.Name)
			}
			if visit.TrainerID == nil {
				visit.TrainerID = batch.TrainerID
			}
		}
		if in.TrainerID != nil {
			if err := checkStaff(ctx, tx, centerID, *in.TrainerID); err != nil {
				return err
			}
		}
		if err := tx.CreateIntroVisit(ctx, visit); err != nil {
			return err
		}

		desc := "Intro visit scheduled for " + visit.ScheduledAt.Format("2006-01-02 15:04")
		switch lead.Status {
		case models.LeadNew, models.LeadContacted:
			return s.moveLead(ctx, tx, actor, lead, models.LeadIntroScheduled, models.ActivityIntroScheduled, desc)
		default:
			return s.appendActivity(ctx, tx, actor, lead, models.ActivityIntroScheduled, nil, nil, desc)
		}
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

type IntroOutcomeInput struct {
	Outcome    models.IntroOutcome `json:"outcome" validate:"required,enum"`
	AttendedAt *time.Time          `json:"attended_at"`
	Notes      string              `json:"notes" validate:"max=2000"`
}

// RecordIntroVisitOutcome resolves a visit. Attended outcomes move an
// INTRO_SCHEDULED lead to INTRO_ATTENDED; NO_SHOW sends it back to CONTACTED.
func (s *Service) RecordIntroVisitOutcome(ctx context.Context, actor models.Actor, centerID, visitID uuid.UUID, in IntroOutcomeInput) (*models.IntroVisit, error) {
	if err := authorize(actor, centerID, introRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	var visit *models.IntroVisit
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if visit, err = tx.GetIntroVisit(ctx, centerID, visitID, false); err != nil {
			return err
		}
		lead, err := lockOpenLead(ctx, tx, centerID, visit.LeadID)
		if err != nil {
			return err
		}
		// Outcomes are serialized on the lead row; read the visit again under that lock.
		if visit, err = tx.GetIntroVisit(ctx, centerID, visitID, false); err != nil {
			return err
		}
		if visit.Resolved() {
			return models.InvalidStatef("intro visit already recorded as %s", *visit.Outcome)
		}

		outcome := in.Outcome
		visit.Outcome = &outcome
		if in.Notes != "" {
			visit.Notes = in.Notes
		}
		if outcome.Attended() {
			at := s.now()
			if in.AttendedAt != nil {
				at = *in.AttendedAt
			}
			visit.AttendedAt = &at
		}
		s.touch(&visit.Audit, actor)
		if err := tx.UpdateIntroVisit(ctx, visit); err != nil {
			return err
		}

		desc := fmt.Sprintf("Intro visit outcome: %s", outcome)
		if in.Notes != "" {
			desc += " (" + in.Notes + ")"
		}
		switch {
		case outcome.Attended() && lead.Status == models.LeadIntroScheduled:
			return s.moveLead(ctx, tx, actor, lead, models.LeadIntroAttended, models.ActivityIntroAttended, desc)
		case outcome.Attended():
			return s.appendActivity(ctx, tx, actor, lead, models.ActivityIntroAttended, nil, nil, desc)
		case lead.Status == models.LeadIntroScheduled:
			return s.moveLead(ctx, tx, actor, lead, models.LeadContacted, models.ActivityIntroNoShow, desc)
		default:
			return s.appendActivity(ctx, tx, actor, lead, models.ActivityIntroNoShow, nil, nil, desc)
		}
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

type FollowUpInput struct {
	DueAt      time.Time              `json:"due_at" validate:"required"`
	Channel    models.FollowUpChannel `json:"channel" validate:"required,enum"`
	AssignedTo *uuid.UUID             `json:"assigned_to"`
	Notes      string                 `json:"notes" validate:"max=2000"`
}

// ScheduleFollowUp books a follow-up. Leads past their intro visit move to
// FOLLOW_UP; earlier stages only record the follow-up.
func (s *Service) ScheduleFollowUp(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID, in FollowUpInput) (*models.FollowUp, error) {
	if err := authorize(actor, centerID, leadRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	fu := &models.FollowUp{
		Tenant:     models.Tenant{CenterID: centerID},
		LeadID:     leadID,
		DueAt:      in.DueAt,
		Channel:    in.Channel,
		Status:     models.FollowUpPending,
		AssignedTo: in.AssignedTo,
		Notes:      in.Notes,
	}
	s.stamp(&fu.Audit, actor)

	err := s.inTx(ctx, func(tx store.Tx) error {
		lead, err := lockOpenLead(ctx, tx, centerID, leadID)
		if err != nil {
			return err
		}
		if fu.AssignedTo == nil {
			fu.AssignedTo = lead.AssignedTo
		} else if err := checkStaff(ctx, tx, centerID, *fu.AssignedTo); err != nil {
			return err
		}
		if err := tx.CreateFollowUp(ctx, fu); err != nil {
			return err
		}

		desc := fmt.Sprintf("%s follow-up due %s", fu.Channel, fu.DueAt.Format("2006-01-02 15:04"))
		switch lead.Status {
		case models.LeadIntroAttended, models.LeadFollowUp:
			return s.moveLead(ctx, tx, actor, lead, models.LeadFollowUp, models.ActivityFollowUpScheduled, desc)
		default:
			return s.appendActivity(ctx, tx, actor, lead, models.ActivityFollowUpScheduled, nil, nil, desc)
		}
	})
	if err != nil {
		return nil, err
	}
	return fu, nil
}

type CompleteFollowUpInput struct {
	Outcome models.FollowUpOutcome `json:"outcome" validate:"required,enum"`
	Notes   string                 `json:"notes" validate:"max=2000"`
}

func (s *Service) CompleteFollowUp(ctx context.Context, actor models.Actor, centerID, followUpID uuid.UUID, in CompleteFollowUpInput) (*models.FollowUp, error) {
	if err := authorize(actor, centerID, leadRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	var fu *models.FollowUp
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if fu, err = tx.GetFollowUp(ctx, centerID, followUpID, false); err != nil {
			return err
		}
		lead, err := tx.LockLead(ctx, centerID, fu.LeadID)
		if err != nil {
			return err
		}
		if fu, err = tx.GetFollowUp(ctx, centerID, followUpID, false); err != nil {
			return err
		}
		if fu.Status != models.FollowUpPending {
			return models.InvalidStatef("follow-up is already %s", fu.Status)
		}
		at := s.now()
		outcome := in.Outcome
		fu.Status = models.FollowUpCompleted
		fu.Outcome = &outcome
		fu.CompletedAt = &at
		if in.Notes != "" {
			fu.Notes = in.Notes
		}
		s.touch(&fu.Audit, actor)
		if err := tx.UpdateFollowUp(ctx, fu); err != nil {
			return err
		}
		desc := fmt.Sprintf("Follow-up completed: %s", outcome)
		if in.Notes != "" {
			desc += " (" + in.Notes + ")"
		}
		return s.appendActivity(ctx, tx, actor, lead, models.ActivityFollowUpCompleted, nil, nil, desc)
	})
	if err != nil {
		return nil, err
	}
	return fu, nil
}

func (s *Service) CancelFollowUp(ctx context.Context, actor models.Actor, centerID, followUpID uuid.UUID, reason string) (*models.FollowUp, error) {
	if err := authorize(actor, centerID, leadRoles...); err != nil {
		return nil, err
	}
	var fu *models.FollowUp
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if fu, err = tx.GetFollowUp(ctx, centerID, followUpID, false); err != nil {
			return err
		}
		if _, err = tx.LockLead(ctx, centerID, fu.LeadID); err != nil {
			return err
		}
		if fu, err = tx.GetFollowUp(ctx, centerID, followUpID, false); err != nil {
			return err
		}
		if fu.Status != models.FollowUpPending {
			return models.InvalidStatef("follow-up is already %s", fu.Status)
		}
		fu.Status = models.FollowUpCancelled
		if reason = strings.TrimSpace(reason); reason != "" {
			fu.Notes = reason
		}
		s.touch(&fu.Audit, actor)
		return tx.UpdateFollowUp(ctx, fu)
	})
	if err != nil {
		return nil, err
	}
	return fu, nil
}

type ConvertInput struct {
	// Override allows conversion without an attended intro visit.
	Override     bool                `json:"override"`
	Parent       *ParentInput        `json:"parent"`
	Child        *ChildInput         `json:"child"`
	Relationship models.Relationship `json:"relationship" validate:"omitempty,enum"`
	Enrollment   EnrollmentTerms     `json:"enrollment"`
}

// Conversion is everything ConvertLead created or linked.
type Conversion struct {
	Lead       *models.Lead       `json:"lead"`
	Parent     *models.Parent     `json:"parent"`
	Child      *models.Child      `json:"child"`
	Enrollment *models.Enrollment `json:"enrollment"`
}

// ConvertLead turns a lead into a family with an active enrollment in one
// transaction. The lead row stays locked until commit, so of two concurrent
// conversions the second sees CONVERTED and fails.
func (s *Service) ConvertLead(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID, in ConvertInput) (*Conversion, error) {
	if err := authorize(actor, centerID, enrollmentRoles...); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	out := &Conversion{}
	err := s.inTx(ctx, func(tx store.Tx) error {
		lead, err := lockOpenLead(ctx, tx, centerID, leadID)
		if err != nil {
			return err
		}
		if !in.Override {
			attended, err := hasAttendedVisit(ctx, tx, lead)
			if err != nil {
				return err
			}
			if !attended {
				return models.InvalidStatef("lead has no attended intro visit")
			}
			if !models.CanTransitionLead(lead.Status, models.LeadConverted) {
				return models.InvalidStatef("cannot convert lead in status %s", lead.Status)
			}
		}

		parent, newParent, err := s.conversionParent(ctx, tx, actor, lead, in.Parent)
		if err != nil {
			return err
		}
		child, newChild, err := s.conversionChild(ctx, tx, actor, lead, in.Child)
		if err != nil {
			return err
		}
		if newParent || newChild {
			rel := in.Relationship
			if rel == "" {
				rel = models.RelationGuardian
			}
			link := &models.FamilyLink{
				Tenant:           models.Tenant{CenterID: centerID},
				ParentID:         parent.ID,
				ChildID:          child.ID,
				Relationship:     rel,
				IsPrimaryContact: true,
			}
			s.stamp(&link.Audit, actor)
			if err := s.insertFamilyLink(ctx, tx, actor, link); err != nil {
				return err
			}
		}

		enrollment, err := s.createEnrollment(ctx, tx, actor, child, in.Enrollment, &lead.ID)
		if err != nil {
			return err
		}

		from := lead.Status
		at := s.now()
		lead.Status = models.LeadConverted
		lead.ConvertedAt = &at
		lead.ParentID = &parent.ID
		lead.ChildID = &child.ID
		lead.EnrollmentID = &enrollment.ID
		s.touch(&lead.Audit, actor)
		if err := tx.UpdateLead(ctx, lead); err != nil {
			return err
		}
		to := models.LeadConverted
		desc := fmt.Sprintf("Converted: %s enrollment %s", enrollment.PlanType, enrollment.ID)
		if in.Override {
			desc += " (override)"
		}
		if err := s.appendActivity(ctx, tx, actor, lead, models.ActivityConverted, &from, &to, desc); err != nil {
			return err
		}

		out.Lead, out.Parent, out.Child, out.Enrollment = lead, parent, child, enrollment
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logf("Lead %s converted to enrollment %s", leadID, out.Enrollment.ID)
	return out, nil
}

func hasAttendedVisit(ctx context.Context, tx store.Tx, lead *models.Lead) (bool, error) {
	visits, err := tx.ListIntroVisits(ctx, lead.CenterID, lead.ID, false)
	if err != nil {
		return false, err
	}
	for _, v := range visits {
		if v.AttendedAt != nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) conversionParent(ctx context.Context, tx store.Tx, actor models.Actor, lead *models.Lead, in *ParentInput) (*models.Parent, bool, error) {
	if lead.ParentID != nil {
		p, err := tx.GetParent(ctx, lead.CenterID, *lead.ParentID, false)
		return p, false, err
	}
	pin := ParentInput{FullName: lead.ParentName, Phone: lead.Phone, Email: lead.Email}
	if in != nil {
		pin = *in
	}
	if err := s.check(pin); err != nil {
		return nil, false, err
	}
	p := s.newParent(actor, lead.CenterID, pin)
	if err := tx.CreateParent(ctx, p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *Service) conversionChild(ctx context.Context, tx store.Tx, actor models.Actor, lead *models.Lead, in *ChildInput) (*models.Child, bool, error) {
	if lead.ChildID != nil {
		c, err := tx.GetChild(ctx, lead.CenterID, *lead.ChildID, false)
		return c, false, err
	}
	var cin ChildInput
	switch {
	case in != nil:
		cin = *in
	case lead.ChildDOB != nil:
		cin = ChildInput{FullName: lead.ChildName, DateOfBirth: *lead.ChildDOB}
	default:
		return nil, false, models.Validationf("child date of birth is required to convert")
	}
	if err := s.check(cin); err != nil {
		return nil, false, err
	}
	c, err := s.newChild(actor, lead.CenterID, cin)
	if err != nil {
		return nil, false, err
	}
	if err := tx.CreateChild(ctx, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// MarkLeadDead closes a lead with a reason and cancels its pending follow-ups.
func (s *Service) MarkLeadDead(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID, reason string) (*models.Lead, error) {
	if err := authorize(actor, centerID, leadRoles...); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.Validationf("a reason is required to close a lead")
	}
	var lead *models.Lead
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if lead, err = lockOpenLead(ctx, tx, centerID, leadID); err != nil {
			return err
		}
		pending := models.FollowUpPending
		fus, err := tx.ListFollowUps(ctx, centerID, store.FollowUpFilter{
			LeadID: &leadID, Status: &pending, ListOptions: store.ListOptions{Limit: store.MaxLimit},
		})
		if err != nil {
			return err
		}
		for _, fu := range fus {
			fu.Status = models.FollowUpCancelled
			s.touch(&fu.Audit, actor)
			if err := tx.UpdateFollowUp(ctx, fu); err != nil {
				return err
			}
		}
		lead.DeadReason = reason
		return s.moveLead(ctx, tx, actor, lead, models.LeadDead, models.ActivityMarkedDead, "Closed: "+reason)
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// AddLeadNote appends a NOTE activity. Notes are allowed on closed leads.
func (s *Service) AddLeadNote(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID, note string) (*models.LeadActivity, error) {
	if err := authorize(actor, centerID, introRoles...); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, models.Validationf("note must not be empty")
	}
	var added *models.LeadActivity
	err := s.inTx(ctx, func(tx store.Tx) error {
		lead, err := tx.LockLead(ctx, centerID, leadID)
		if err != nil {
			return err
		}
		added = s.newActivity(actor, lead, models.ActivityNote, nil, nil, note)
		return tx.AppendLeadActivity(ctx, added)
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// AssignLead sets or clears the counselor responsible for a lead.
func (s *Service) AssignLead(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID, userID *uuid.UUID) (*models.Lead, error) {
	if err := authorize(actor, centerID, leadRoles...); err != nil {
		return nil, err
	}
	var lead *models.Lead
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if lead, err = tx.LockLead(ctx, centerID, leadID); err != nil {
			return err
		}
		desc := "Unassigned"
		if userID != nil {
			if err := checkStaff(ctx, tx, centerID, *userID); err != nil {
				return err
			}
			desc = "Assigned to " + userID.String()
		}
		lead.AssignedTo = userID
		s.touch(&lead.Audit, actor)
		if err := tx.UpdateLead(ctx, lead); err != nil {
			return err
		}
		return s.appendActivity(ctx, tx, actor, lead, models.ActivityNote, nil, nil, desc)
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// ListLeads returns leads newest first with the suggested next step.
func (s *Service) ListLeads(ctx context.Context, actor models.Actor, centerID uuid.UUID, f store.LeadFilter) ([]*models.LeadListItem, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var leads []*models.Lead
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		leads, err = tx.ListLeads(ctx, centerID, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make([]*models.LeadListItem, 0, len(leads))
	for _, l := range leads {
		items = append(items, &models.LeadListItem{Lead: l, NextAction: models.GetNextAction(l.Status)})
	}
	return items, nil
}

func (s *Service) GetLead(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID, includeArchived bool) (*models.LeadDetail, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	detail := &models.LeadDetail{}
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		if detail.Lead, err = tx.GetLead(ctx, centerID, leadID, includeArchived); err != nil {
			return err
		}
		if detail.Visits, err = tx.ListIntroVisits(ctx, centerID, leadID, includeArchived); err != nil {
			return err
		}
		detail.FollowUps, err = tx.ListFollowUps(ctx, centerID, store.FollowUpFilter{
			LeadID:      &leadID,
			ListOptions: store.ListOptions{IncludeArchived: includeArchived, Limit: store.MaxLimit},
		})
		if err != nil {
			return err
		}
		detail.Activities, err = tx.ListLeadActivities(ctx, centerID, leadID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Service) ListLeadActivities(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID) ([]*models.LeadActivity, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.LeadActivity
	err := s.inTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetLead(ctx, centerID, leadID, true); err != nil {
			return err
		}
		var err error
		out, err = tx.ListLeadActivities(ctx, centerID, leadID)
		return err
	})
	return out, err
}

func (s *Service) ListIntroVisits(ctx context.Context, actor models.Actor, centerID, leadID uuid.UUID, includeArchived bool) ([]*models.IntroVisit, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	var out []*models.IntroVisit
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListIntroVisits(ctx, centerID, leadID, includeArchived)
		return err
	})
	return out, err
}

// ListFollowUps lists follow-ups; with overdue set only pending ones past due are returned.
func (s *Service) ListFollowUps(ctx context.Context, actor models.Actor, centerID uuid.UUID, f store.FollowUpFilter, overdue bool) ([]*models.FollowUp, error) {
	if err := authorize(actor, centerID); err != nil {
		return nil, err
	}
	if overdue {
		pending := models.FollowUpPending
		at := s.now()
		f.Status = &pending
		f.DueBefore = &at
	}
	var out []*models.FollowUp
	err := s.inTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListFollowUps(ctx, centerID, f)
		return err
	})
	return out, err
}

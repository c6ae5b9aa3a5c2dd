package service

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"
	"fitkids-crm/internal/store/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday, 6 January 2025.
var testNow = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

var everyDay = []models.Weekday{
	models.Monday, models.Tuesday, models.Wednesday, models.Thursday,
	models.Friday, models.Saturday, models.Sunday,
}

type fixture struct {
	ctx    context.Context
	store  *memstore.Store
	svc    *Service
	root   models.Actor
	admin  models.Actor
	center *models.Center
	batch  *models.Batch
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:  context.Background(),
		root: models.Actor{UserID: uuid.New(), Role: models.RoleSuperAdmin},
	}
	f.store = memstore.New()
	f.svc = New(f.store,
		WithClock(func() time.Time { return testNow }),
		WithLogger(log.New(io.Discard, "", 0)))

	var err error
	f.center, err = f.svc.CreateCenter(f.ctx, f.root, CenterInput{Name: "Downtown", Code: "dt01"})
	require.NoError(t, err)
	f.admin = models.Actor{UserID: uuid.New(), Role: models.RoleCenterAdmin, CenterID: &f.center.ID}

	f.batch, err = f.svc.CreateBatch(f.ctx, f.admin, f.center.ID, BatchInput{
		Name:         "Little Movers",
		MinAgeMonths: 36,
		MaxAgeMonths: 120,
		DaysOfWeek:   everyDay,
		StartTime:    "10:00",
		EndTime:      "11:00",
		Capacity:     10,
	})
	require.NoError(t, err)
	return f
}

func requireKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, models.KindOf(err), err.Error())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(n int) *int { return &n }

// attendedLead creates a lead whose intro visit was attended.
func (f *fixture) attendedLead(t *testing.T) *models.Lead {
	t.Helper()
	dob := date(2019, 3, 10)
	lead, err := f.svc.CreateLead(f.ctx, f.admin, f.center.ID, LeadInput{
		ChildName:  "Maya Rao",
		ChildDOB:   &dob,
		ParentName: "Priya Rao",
		Phone:      "+91 98450 12345",
		Source:     models.SourceWalkIn,
	})
	require.NoError(t, err)
	visit, err := f.svc.ScheduleIntroVisit(f.ctx, f.admin, f.center.ID, lead.ID, IntroVisitInput{
		ScheduledAt: testNow.Add(time.Hour),
		BatchID:     &f.batch.ID,
	})
	require.NoError(t, err)
	_, err = f.svc.RecordIntroVisitOutcome(f.ctx, f.admin, f.center.ID, visit.ID, IntroOutcomeInput{Outcome: models.IntroInterested})
	require.NoError(t, err)
	return lead
}

func (f *fixture) convert(t *testing.T, terms EnrollmentTerms) *Conversion {
	t.Helper()
	lead := f.attendedLead(t)
	conv, err := f.svc.ConvertLead(f.ctx, f.admin, f.center.ID, lead.ID, ConvertInput{Enrollment: terms})
	require.NoError(t, err)
	return conv
}

func (f *fixture) visitPack(visits int) EnrollmentTerms {
	return EnrollmentTerms{
		BatchID:        f.batch.ID,
		PlanType:       models.PlanVisitPack,
		StartDate:      testNow,
		VisitsIncluded: intPtr(visits),
		FeeAmount:      5000,
	}
}

func (f *fixture) sessions(t *testing.T, from, to time.Time) []*models.ClassSession {
	t.Helper()
	out, err := f.svc.GenerateSessions(f.ctx, f.admin, f.center.ID, f.batch.ID, from, to)
	require.NoError(t, err)
	return out
}

func (f *fixture) mark(childID, sessionID uuid.UUID, status models.AttendanceStatus) (*models.Attendance, error) {
	return f.svc.MarkAttendance(f.ctx, f.admin, f.center.ID, AttendanceInput{
		SessionID: sessionID,
		ChildID:   childID,
		Status:    status,
	})
}

func TestLeadToEnrollmentEndToEnd(t *testing.T) {
	f := newFixture(t)
	lead := f.attendedLead(t)

	detail, err := f.svc.GetLead(f.ctx, f.admin, f.center.ID, lead.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.LeadIntroAttended, detail.Lead.Status)

	conv, err := f.svc.ConvertLead(f.ctx, f.admin, f.center.ID, lead.ID, ConvertInput{Enrollment: f.visitPack(10)})
	require.NoError(t, err)
	assert.Equal(t, models.LeadConverted, conv.Lead.Status)
	assert.Equal(t, models.EnrollmentActive, conv.Enrollment.Status)
	assert.Equal(t, "Priya Rao", conv.Parent.FullName)
	assert.Equal(t, "Maya Rao", conv.Child.FullName)

	links, err := f.svc.ListFamilyLinks(f.ctx, f.admin, f.center.ID, conv.Child.ID, false)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, links[0].IsPrimaryContact)

	sessions := f.sessions(t, date(2025, 1, 6), date(2025, 1, 16))
	require.Len(t, sessions, 11)

	for i, cs := range sessions[:10] {
		_, err := f.mark(conv.Child.ID, cs.ID, models.AttendancePresent)
		require.NoError(t, err, "mark %d", i+1)
	}
	_, err = f.mark(conv.Child.ID, sessions[10].ID, models.AttendancePresent)
	requireKind(t, err, models.KindConflict)
	assert.ErrorIs(t, err, models.ErrVisitCapacity)

	e, err := f.svc.GetEnrollment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 10, e.VisitsUsed)
	assert.Equal(t, 0, *e.VisitsRemaining())

	activities, err := f.svc.ListLeadActivities(f.ctx, f.admin, f.center.ID, lead.ID)
	require.NoError(t, err)
	var types []models.ActivityType
	for _, a := range activities {
		types = append(types, a.Type)
	}
	assert.Equal(t, []models.ActivityType{
		models.ActivityCreated,
		models.ActivityIntroScheduled,
		models.ActivityIntroAttended,
		models.ActivityConverted,
	}, types)
}

func TestConvertLeadTwice(t *testing.T) {
	f := newFixture(t)
	lead := f.attendedLead(t)

	first, err := f.svc.ConvertLead(f.ctx, f.admin, f.center.ID, lead.ID, ConvertInput{Enrollment: f.visitPack(10)})
	require.NoError(t, err)

	_, err = f.svc.ConvertLead(f.ctx, f.admin, f.center.ID, lead.ID, ConvertInput{Enrollment: f.visitPack(10)})
	requireKind(t, err, models.KindInvalidState)

	detail, err := f.svc.GetLead(f.ctx, f.admin, f.center.ID, lead.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.LeadConverted, detail.Lead.Status)
	assert.Equal(t, first.Enrollment.ID, *detail.Lead.EnrollmentID)

	all, err := f.svc.ListEnrollments(f.ctx, f.admin, f.center.ID, store.EnrollmentFilter{ChildID: &first.Child.ID})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConvertLeadNeedsAttendedVisit(t *testing.T) {
	f := newFixture(t)
	dob := date(2020, 6, 1)
	lead, err := f.svc.CreateLead(f.ctx, f.admin, f.center.ID, LeadInput{
		ChildName: "Arjun", ChildDOB: &dob, ParentName: "Kiran", Phone: "555-0101", Source: models.SourcePhone,
	})
	require.NoError(t, err)

	_, err = f.svc.ConvertLead(f.ctx, f.admin, f.center.ID, lead.ID, ConvertInput{Enrollment: f.visitPack(8)})
	requireKind(t, err, models.KindInvalidState)

	conv, err := f.svc.ConvertLead(f.ctx, f.admin, f.center.ID, lead.ID, ConvertInput{Override: true, Enrollment: f.visitPack(8)})
	require.NoError(t, err)
	assert.Equal(t, models.LeadConverted, conv.Lead.Status)
}

func TestLeadTransitions(t *testing.T) {
	f := newFixture(t)
	lead, err := f.svc.CreateLead(f.ctx, f.admin, f.center.ID, LeadInput{
		ChildName: "Zoe", ParentName: "Sam", Phone: "555-0102", Source: models.SourceWebsite,
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadNew, lead.Status)

	lead, err = f.svc.MarkContacted(f.ctx, f.admin, f.center.ID, lead.ID, "called back")
	require.NoError(t, err)
	assert.Equal(t, models.LeadContacted, lead.Status)

	_, err = f.svc.MarkContacted(f.ctx, f.admin, f.center.ID, lead.ID, "")
	requireKind(t, err, models.KindInvalidState)

	visit, err := f.svc.ScheduleIntroVisit(f.ctx, f.admin, f.center.ID, lead.ID, IntroVisitInput{ScheduledAt: testNow.Add(24 * time.Hour)})
	require.NoError(t, err)
	_, err = f.svc.RecordIntroVisitOutcome(f.ctx, f.admin, f.center.ID, visit.ID, IntroOutcomeInput{Outcome: models.IntroNoShow})
	require.NoError(t, err)

	detail, err := f.svc.GetLead(f.ctx, f.admin, f.center.ID, lead.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.LeadContacted, detail.Lead.Status)

	_, err = f.svc.RecordIntroVisitOutcome(f.ctx, f.admin, f.center.ID, visit.ID, IntroOutcomeInput{Outcome: models.IntroInterested})
	requireKind(t, err, models.KindInvalidState)

	_, err = f.svc.MarkLeadDead(f.ctx, f.admin, f.center.ID, lead.ID, "  ")
	requireKind(t, err, models.KindValidation)

	lead, err = f.svc.MarkLeadDead(f.ctx, f.admin, f.center.ID, lead.ID, "moved away")
	require.NoError(t, err)
	assert.Equal(t, models.LeadDead, lead.Status)

	// dead leads stay dead
	_, err = f.svc.ScheduleIntroVisit(f.ctx, f.admin, f.center.ID, lead.ID, IntroVisitInput{ScheduledAt: testNow})
	requireKind(t, err, models.KindInvalidState)
}

func TestFollowUps(t *testing.T) {
	f := newFixture(t)
	lead := f.attendedLead(t)

	fu, err := f.svc.ScheduleFollowUp(f.ctx, f.admin, f.center.ID, lead.ID, FollowUpInput{
		DueAt:   testNow.Add(-time.Hour),
		Channel: models.ChannelCall,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FollowUpPending, fu.Status)

	detail, err := f.svc.GetLead(f.ctx, f.admin, f.center.ID, lead.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.LeadFollowUp, detail.Lead.Status)

	overdue, err := f.svc.ListFollowUps(f.ctx, f.admin, f.center.ID, store.FollowUpFilter{}, true)
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	fu, err = f.svc.CompleteFollowUp(f.ctx, f.admin, f.center.ID, fu.ID, CompleteFollowUpInput{Outcome: models.FollowUpCallBackLater})
	require.NoError(t, err)
	assert.Equal(t, models.FollowUpCompleted, fu.Status)

	_, err = f.svc.CancelFollowUp(f.ctx, f.admin, f.center.ID, fu.ID, "duplicate")
	requireKind(t, err, models.KindInvalidState)
	_, err = f.svc.CompleteFollowUp(f.ctx, f.admin, f.center.ID, fu.ID, CompleteFollowUpInput{Outcome: models.FollowUpCallBackLater})
	requireKind(t, err, models.KindInvalidState)

	detail, err = f.svc.GetLead(f.ctx, f.admin, f.center.ID, lead.ID, false)
	require.NoError(t, err)
	completed := 0
	for _, a := range detail.Activities {
		if a.Type == models.ActivityFollowUpCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestIntroVisitOutcomeRecordedOnce(t *testing.T) {
	f := newFixture(t)
	lead, err := f.svc.CreateLead(f.ctx, f.admin, f.center.ID, LeadInput{
		ChildName: "Arjun Iyer", ParentName: "Meera Iyer", Phone: "+91 98860 44321", Source: models.SourceWalkIn,
	})
	require.NoError(t, err)
	visit, err := f.svc.ScheduleIntroVisit(f.ctx, f.admin, f.center.ID, lead.ID, IntroVisitInput{ScheduledAt: testNow.Add(time.Hour)})
	require.NoError(t, err)

	_, err = f.svc.RecordIntroVisitOutcome(f.ctx, f.admin, f.center.ID, visit.ID, IntroOutcomeInput{Outcome: models.IntroNoShow})
	require.NoError(t, err)
	_, err = f.svc.RecordIntroVisitOutcome(f.ctx, f.admin, f.center.ID, visit.ID, IntroOutcomeInput{Outcome: models.IntroInterested})
	requireKind(t, err, models.KindInvalidState)

	detail, err := f.svc.GetLead(f.ctx, f.admin, f.center.ID, lead.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.LeadContacted, detail.Lead.Status)
}

func TestMarkAttendanceReconcilesVisits(t *testing.T) {
	tests := []struct {
		name  string
		marks []models.AttendanceStatus
		want  int
	}{
		{"present once", []models.AttendanceStatus{models.AttendancePresent}, 1},
		{"present twice", []models.AttendanceStatus{models.AttendancePresent, models.AttendancePresent}, 1},
		{"present then absent", []models.AttendanceStatus{models.AttendancePresent, models.AttendanceAbsent}, 0},
		{"absent only", []models.AttendanceStatus{models.AttendanceAbsent}, 0},
		{"flip flop", []models.AttendanceStatus{
			models.AttendanceAbsent, models.AttendancePresent, models.AttendanceExcused, models.AttendancePresent,
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			conv := f.convert(t, f.visitPack(3))
			cs := f.sessions(t, testNow, testNow)[0]

			for _, status := range tt.marks {
				_, err := f.mark(conv.Child.ID, cs.ID, status)
				require.NoError(t, err)
			}
			e, err := f.svc.GetEnrollment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.VisitsUsed)

			marks, err := f.svc.ListAttendance(f.ctx, f.admin, f.center.ID, store.AttendanceFilter{SessionID: &cs.ID})
			require.NoError(t, err)
			require.Len(t, marks, 1)
			assert.Equal(t, tt.marks[len(tt.marks)-1], marks[0].Status)
		})
	}
}

func TestMarkAttendanceAfterArchive(t *testing.T) {
	tests := []struct {
		name string
		kind models.EntityKind
	}{
		{"archived enrollment", models.KindEnrollment},
		{"archived child", models.KindChild},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			conv := f.convert(t, f.visitPack(3))
			cs := f.sessions(t, testNow, testNow.AddDate(0, 0, 1))
			_, err := f.mark(conv.Child.ID, cs[0].ID, models.AttendancePresent)
			require.NoError(t, err)

			id := conv.Enrollment.ID
			if tt.kind == models.KindChild {
				id = conv.Child.ID
			}
			_, err = f.svc.Archive(f.ctx, f.admin, f.center.ID, tt.kind, id)
			require.NoError(t, err)

			// a correction that gives the visit back still goes through
			mark, err := f.mark(conv.Child.ID, cs[0].ID, models.AttendanceAbsent)
			require.NoError(t, err)
			assert.Equal(t, models.AttendanceAbsent, mark.Status)
			e, err := f.svc.GetEnrollment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, true)
			require.NoError(t, err)
			assert.Equal(t, 0, e.VisitsUsed)

			// no new visit can be drawn
			_, err = f.mark(conv.Child.ID, cs[0].ID, models.AttendancePresent)
			requireKind(t, err, models.KindInvalidState)
			_, err = f.mark(conv.Child.ID, cs[1].ID, models.AttendancePresent)
			require.Error(t, err)
			e, err = f.svc.GetEnrollment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, true)
			require.NoError(t, err)
			assert.Equal(t, 0, e.VisitsUsed)
		})
	}
}

func TestMarkAttendanceDateRangedPlan(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, EnrollmentTerms{
		BatchID:   f.batch.ID,
		PlanType:  models.PlanMonthly,
		StartDate: date(2025, 1, 8),
		FeeAmount: 12000,
	})
	require.NotNil(t, conv.Enrollment.EndDate)
	assert.Equal(t, date(2025, 2, 7), *conv.Enrollment.EndDate)

	sessions := f.sessions(t, date(2025, 1, 6), date(2025, 1, 9))
	require.Len(t, sessions, 4)

	_, err := f.mark(conv.Child.ID, sessions[0].ID, models.AttendancePresent)
	requireKind(t, err, models.KindInvalidState)

	_, err = f.mark(conv.Child.ID, sessions[2].ID, models.AttendancePresent)
	require.NoError(t, err)

	e, err := f.svc.GetEnrollment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, e.VisitsUsed)
}

func TestCancelledSession(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, f.visitPack(5))
	sessions := f.sessions(t, date(2025, 1, 6), date(2025, 1, 7))

	_, err := f.mark(conv.Child.ID, sessions[0].ID, models.AttendancePresent)
	require.NoError(t, err)
	_, err = f.svc.CancelSession(f.ctx, f.admin, f.center.ID, sessions[0].ID, "rain")
	requireKind(t, err, models.KindInvalidState)

	cs, err := f.svc.CancelSession(f.ctx, f.admin, f.center.ID, sessions[1].ID, "holiday")
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, cs.Status)

	_, err = f.mark(conv.Child.ID, sessions[1].ID, models.AttendancePresent)
	requireKind(t, err, models.KindInvalidState)
}

func TestGenerateSessionsSkipsExisting(t *testing.T) {
	f := newFixture(t)
	first := f.sessions(t, date(2025, 1, 6), date(2025, 1, 8))
	assert.Len(t, first, 3)

	again := f.sessions(t, date(2025, 1, 6), date(2025, 1, 10))
	assert.Len(t, again, 2)

	_, err := f.svc.GenerateSessions(f.ctx, f.admin, f.center.ID, f.batch.ID, date(2025, 1, 10), date(2025, 1, 6))
	requireKind(t, err, models.KindValidation)
}

func TestCreateEnrollmentRules(t *testing.T) {
	f := newFixture(t)
	small, err := f.svc.CreateBatch(f.ctx, f.admin, f.center.ID, BatchInput{
		Name: "Toddlers", MinAgeMonths: 12, MaxAgeMonths: 36, DaysOfWeek: []models.Weekday{models.Saturday},
		StartTime: "09:00", EndTime: "09:45", Capacity: 1,
	})
	require.NoError(t, err)

	newChild := func(dob time.Time) *models.Child {
		c, err := f.svc.CreateChild(f.ctx, f.admin, f.center.ID, ChildInput{FullName: "Kid", DateOfBirth: dob})
		require.NoError(t, err)
		return c
	}
	toddler := newChild(date(2023, 2, 1))
	older := newChild(date(2018, 2, 1))

	tests := []struct {
		name  string
		child *models.Child
		terms EnrollmentTerms
		kind  models.ErrorKind
	}{
		{
			name:  "outside age band",
			child: older,
			terms: EnrollmentTerms{BatchID: small.ID, PlanType: models.PlanMonthly, StartDate: testNow},
			kind:  models.KindValidation,
		},
		{
			name:  "visit pack without visits",
			child: toddler,
			terms: EnrollmentTerms{BatchID: small.ID, PlanType: models.PlanVisitPack, StartDate: testNow},
			kind:  models.KindValidation,
		},
		{
			name:  "custom without end date",
			child: toddler,
			terms: EnrollmentTerms{BatchID: small.ID, PlanType: models.PlanCustom, StartDate: testNow},
			kind:  models.KindValidation,
		},
		{
			name:  "monthly with visits",
			child: toddler,
			terms: EnrollmentTerms{BatchID: small.ID, PlanType: models.PlanMonthly, StartDate: testNow, VisitsIncluded: intPtr(4)},
			kind:  models.KindValidation,
		},
		{
			name:  "ok",
			child: toddler,
			terms: EnrollmentTerms{BatchID: small.ID, PlanType: models.PlanMonthly, StartDate: testNow},
		},
		{
			name:  "already enrolled",
			child: toddler,
			terms: EnrollmentTerms{BatchID: small.ID, PlanType: models.PlanMonthly, StartDate: testNow},
			kind:  models.KindConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateEnrollment(f.ctx, f.admin, f.center.ID, EnrollmentInput{ChildID: tt.child.ID, EnrollmentTerms: tt.terms})
			if tt.kind == "" {
				require.NoError(t, err)
				return
			}
			requireKind(t, err, tt.kind)
		})
	}

	t.Run("batch full", func(t *testing.T) {
		other := newChild(date(2023, 5, 1))
		_, err := f.svc.CreateEnrollment(f.ctx, f.admin, f.center.ID, EnrollmentInput{
			ChildID:         other.ID,
			EnrollmentTerms: EnrollmentTerms{BatchID: small.ID, PlanType: models.PlanMonthly, StartDate: testNow},
		})
		requireKind(t, err, models.KindConflict)
	})
}

func TestEnrollmentStatusAndExpiry(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, EnrollmentTerms{
		BatchID:   f.batch.ID,
		PlanType:  models.PlanCustom,
		StartDate: date(2024, 11, 1),
		EndDate:   &[]time.Time{date(2024, 12, 31)}[0],
		FeeAmount: 9000,
	})

	e, err := f.svc.ChangeEnrollmentStatus(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, models.EnrollmentPaused)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPaused, e.Status)

	_, err = f.svc.ChangeEnrollmentStatus(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, models.EnrollmentActive)
	requireKind(t, err, models.KindInvalidState)

	_, err = f.svc.ExpireEnrollments(f.ctx, f.admin, testNow)
	requireKind(t, err, models.KindForbidden)

	active := f.convert(t, EnrollmentTerms{
		BatchID:   f.batch.ID,
		PlanType:  models.PlanCustom,
		StartDate: date(2024, 12, 1),
		EndDate:   &[]time.Time{date(2025, 1, 5)}[0],
	})
	n, err := f.svc.ExpireEnrollments(f.ctx, models.SystemActor, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	e, err = f.svc.GetEnrollment(f.ctx, f.admin, f.center.ID, active.Enrollment.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentExpired, e.Status)
}

func TestRecordPaymentAmounts(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, f.visitPack(10))
	_, err := f.svc.AddDiscount(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, DiscountInput{
		Type: models.DiscountPercentage, Value: 10, Reason: "sibling",
	})
	require.NoError(t, err)

	i64 := func(n int64) *int64 { return &n }
	tests := []struct {
		name     string
		in       PaymentInput
		wantNet  int64
		wantDisc int64
		kind     models.ErrorKind
	}{
		{"derived discount", PaymentInput{Amount: 5000, Method: models.PaymentCash}, 4500, 500, ""},
		{"explicit discount", PaymentInput{Amount: 5000, DiscountTotal: i64(1000), Method: models.PaymentUPI}, 4000, 1000, ""},
		{"consistent net", PaymentInput{Amount: 5000, DiscountTotal: i64(0), NetAmount: i64(5000), Method: models.PaymentCard}, 5000, 0, ""},
		{"inconsistent net", PaymentInput{Amount: 5000, DiscountTotal: i64(0), NetAmount: i64(4800), Method: models.PaymentCard}, 0, 0, models.KindValidation},
		{"discount above amount", PaymentInput{Amount: 500, DiscountTotal: i64(600), Method: models.PaymentCash}, 0, 0, models.KindValidation},
		{"missing method", PaymentInput{Amount: 5000}, 0, 0, models.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.svc.RecordPayment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, tt.in)
			if tt.kind != "" {
				requireKind(t, err, tt.kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNet, p.NetAmount)
			assert.Equal(t, tt.wantDisc, p.DiscountTotal)
			assert.Equal(t, p.Amount-p.DiscountTotal, p.NetAmount)
		})
	}

	_, err = f.svc.AddDiscount(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, DiscountInput{
		Type: models.DiscountFlat, Value: 4600, Reason: "too much",
	})
	requireKind(t, err, models.KindValidation)
}

func TestRecordPaymentInstallments(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, f.visitPack(10))
	_, err := f.svc.AddDiscount(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, DiscountInput{
		Type: models.DiscountFlat, Value: 1000, Reason: "festival",
	})
	require.NoError(t, err)

	steps := []struct {
		amount   int64
		status   models.PaymentStatus
		wantDisc int64
		wantNet  int64
	}{
		{2000, models.PaymentPaid, 1000, 1000},
		{2000, models.PaymentPaid, 0, 2000},
		{800, models.PaymentPaid, 0, 800},
	}
	var discounted int64
	for _, st := range steps {
		p, err := f.svc.RecordPayment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, PaymentInput{
			Amount: st.amount, Status: st.status, Method: models.PaymentCash,
		})
		require.NoError(t, err)
		assert.Equal(t, st.wantDisc, p.DiscountTotal)
		assert.Equal(t, st.wantNet, p.NetAmount)
		discounted += p.DiscountTotal
	}
	assert.Equal(t, int64(1000), discounted)
}

func TestRecordPaymentRefundReleasesDiscount(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, f.visitPack(10))
	_, err := f.svc.AddDiscount(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, DiscountInput{
		Type: models.DiscountFlat, Value: 1000, Reason: "festival",
	})
	require.NoError(t, err)

	first, err := f.svc.RecordPayment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, PaymentInput{
		Amount: 600, Status: models.PaymentRefunded, Method: models.PaymentUPI,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(600), first.DiscountTotal)
	assert.Equal(t, int64(0), first.NetAmount)

	// the refunded payment gives its share back
	second, err := f.svc.RecordPayment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, PaymentInput{
		Amount: 700, Method: models.PaymentUPI,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(700), second.DiscountTotal)

	third, err := f.svc.RecordPayment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, PaymentInput{
		Amount: 4300, Method: models.PaymentUPI,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300), third.DiscountTotal)
	assert.Equal(t, int64(4000), third.NetAmount)
}

func TestPrimaryContactStaysUnique(t *testing.T) {
	f := newFixture(t)
	child, err := f.svc.CreateChild(f.ctx, f.admin, f.center.ID, ChildInput{FullName: "Kabir Shah", DateOfBirth: date(2019, 5, 2)})
	require.NoError(t, err)
	parent := func(name string) uuid.UUID {
		p, err := f.svc.CreateParent(f.ctx, f.admin, f.center.ID, ParentInput{FullName: name, Phone: "+91 90000 00000"})
		require.NoError(t, err)
		return p.ID
	}
	mother, father, grandma := parent("Nisha Shah"), parent("Rohan Shah"), parent("Asha Shah")

	links := map[string]uuid.UUID{}
	link := func(name string, parentID uuid.UUID, rel models.Relationship, primary bool) func() error {
		return func() error {
			l, err := f.svc.LinkParent(f.ctx, f.admin, f.center.ID, FamilyLinkInput{
				ParentID: parentID, ChildID: child.ID, Relationship: rel, IsPrimaryContact: primary,
			})
			if err == nil {
				links[name] = l.ID
			}
			return err
		}
	}
	setPrimary := func(name string) func() error {
		return func() error {
			return f.svc.SetPrimaryContact(f.ctx, f.admin, f.center.ID, child.ID, links[name])
		}
	}

	steps := []struct {
		name        string
		do          func() error
		wantPrimary string
	}{
		{"mother linked as primary", link("mother", mother, models.RelationMother, true), "mother"},
		{"father linked as primary demotes mother", link("father", father, models.RelationFather, true), "father"},
		{"secondary link keeps father", link("grandma", grandma, models.RelationGrandparent, false), "father"},
		{"switch to mother", setPrimary("mother"), "mother"},
		{"switch to grandma", setPrimary("grandma"), "grandma"},
		{"switch to current primary", setPrimary("grandma"), "grandma"},
	}
	for _, st := range steps {
		require.NoError(t, st.do(), st.name)

		got, err := f.svc.ListFamilyLinks(f.ctx, f.admin, f.center.ID, child.ID, false)
		require.NoError(t, err)
		var primary []uuid.UUID
		for _, l := range got {
			if l.IsPrimaryContact {
				primary = append(primary, l.ID)
			}
		}
		assert.Equal(t, []uuid.UUID{links[st.wantPrimary]}, primary, st.name)

		violations, err := f.svc.VerifyPrimaryContacts(f.ctx, f.admin, f.center.ID)
		require.NoError(t, err)
		assert.Empty(t, violations, st.name)
	}

	// a second primary written behind the service is reported
	stray := models.FamilyLink{
		Audit:            models.Audit{ID: uuid.New(), CreatedAt: testNow, UpdatedAt: testNow},
		Tenant:           models.Tenant{CenterID: f.center.ID},
		ParentID:         parent("Dev Shah"),
		ChildID:          child.ID,
		Relationship:     models.RelationOther,
		IsPrimaryContact: true,
	}
	require.NoError(t, f.store.WithTx(f.ctx, func(tx store.Tx) error {
		return tx.CreateFamilyLink(f.ctx, &stray)
	}))
	violations, err := f.svc.VerifyPrimaryContacts(f.ctx, f.admin, f.center.ID)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, child.ID, violations[0].ChildID)
	assert.ElementsMatch(t, []uuid.UUID{links["grandma"], stray.ID}, violations[0].LinkIDs)

	require.NoError(t, setPrimary("mother")())
	violations, err = f.svc.VerifyPrimaryContacts(f.ctx, f.admin, f.center.ID)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestArchiveChild(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, f.visitPack(10))
	cs := f.sessions(t, testNow, testNow)[0]
	mark, err := f.mark(conv.Child.ID, cs.ID, models.AttendancePresent)
	require.NoError(t, err)
	pay, err := f.svc.RecordPayment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, PaymentInput{Amount: 5000, Method: models.PaymentCash})
	require.NoError(t, err)
	disc, err := f.svc.AddDiscount(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, DiscountInput{Type: models.DiscountFlat, Value: 100, Reason: "promo"})
	require.NoError(t, err)

	res, err := f.svc.Archive(f.ctx, f.admin, f.center.ID, models.KindChild, conv.Child.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{conv.Enrollment.ID}, res.Cascaded[models.KindEnrollment])
	assert.Equal(t, []uuid.UUID{disc.ID}, res.Cascaded[models.KindDiscount])
	assert.Len(t, res.Cascaded[models.KindFamilyLink], 1)
	assert.Equal(t, 4, res.Count())

	live, err := f.svc.ListChildren(f.ctx, f.admin, f.center.ID, store.ChildFilter{})
	require.NoError(t, err)
	assert.Empty(t, live)

	all, err := f.svc.ListChildren(f.ctx, f.admin, f.center.ID, store.ChildFilter{ListOptions: store.ListOptions{IncludeArchived: true}})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.GetChild(f.ctx, f.admin, f.center.ID, conv.Child.ID, false)
	requireKind(t, err, models.KindNotFound)

	gotMark, err := f.svc.GetAttendance(f.ctx, f.admin, f.center.ID, mark.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, gotMark.Status)
	gotPay, err := f.svc.GetPayment(f.ctx, f.admin, f.center.ID, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), gotPay.Amount)

	// unarchive restores only the child
	require.NoError(t, f.svc.Unarchive(f.ctx, f.admin, f.center.ID, models.KindChild, conv.Child.ID))
	_, err = f.svc.GetChild(f.ctx, f.admin, f.center.ID, conv.Child.ID, false)
	require.NoError(t, err)
	_, err = f.svc.GetEnrollment(f.ctx, f.admin, f.center.ID, conv.Enrollment.ID, false)
	requireKind(t, err, models.KindNotFound)
}

func TestArchiveSharedCurriculum(t *testing.T) {
	f := newFixture(t)
	cur, err := f.svc.CreateCurriculum(f.ctx, f.root, CurriculumInput{Name: "Gymnastics", Type: models.CurriculumLeveled})
	require.NoError(t, err)
	cat, err := f.svc.AddActivityCategory(f.ctx, f.root, cur.ID, CategoryInput{Name: "Balance"})
	require.NoError(t, err)
	lvl, err := f.svc.AddProgressionLevel(f.ctx, f.root, cat.ID, LevelInput{LevelNumber: 1, Name: "Beam walk"})
	require.NoError(t, err)

	_, err = f.svc.Archive(f.ctx, f.admin, f.center.ID, models.KindCurriculum, cur.ID)
	requireKind(t, err, models.KindForbidden)

	res, err := f.svc.Archive(f.ctx, f.root, f.center.ID, models.KindCurriculum, cur.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cat.ID}, res.Cascaded[models.KindActivityCategory])
	assert.Equal(t, []uuid.UUID{lvl.ID}, res.Cascaded[models.KindProgressionLevel])
}

func TestReportCardSnapshotIsFrozen(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, f.visitPack(10))

	cur, err := f.svc.CreateCurriculum(f.ctx, f.root, CurriculumInput{Name: "Fundamentals", Type: models.CurriculumFlat})
	require.NoError(t, err)
	ct, err := f.svc.CreateClassType(f.ctx, f.root, ClassTypeInput{Name: "Kids Gym"})
	require.NoError(t, err)
	skill, err := f.svc.AddSkill(f.ctx, f.admin, cur.ID, SkillInput{Name: "Forward roll"})
	requireKind(t, err, models.KindForbidden)
	skill, err = f.svc.AddSkill(f.ctx, f.root, cur.ID, SkillInput{Name: "Forward roll"})
	require.NoError(t, err)

	_, err = f.svc.MapBatch(f.ctx, f.admin, f.center.ID, f.batch.ID, BatchMappingInput{ClassTypeID: ct.ID, CurriculumID: cur.ID})
	require.NoError(t, err)
	skills, err := f.svc.BatchSkills(f.ctx, f.admin, f.center.ID, f.batch.ID)
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, skill.ID, skills[0].ID)

	_, err = f.svc.UpdateSkillProgress(f.ctx, f.admin, f.center.ID, conv.Child.ID, SkillProgressInput{SkillID: skill.ID, Level: models.SkillIntroduced})
	require.NoError(t, err)

	start, end := date(2025, 1, 1), date(2025, 1, 31)
	card, err := f.svc.GenerateReportCard(f.ctx, f.admin, f.center.ID, conv.Child.ID, ReportCardInput{PeriodStart: &start, PeriodEnd: &end})
	require.NoError(t, err)

	_, err = f.svc.UpdateSkillProgress(f.ctx, f.admin, f.center.ID, conv.Child.ID, SkillProgressInput{SkillID: skill.ID, Level: models.SkillMastered})
	require.NoError(t, err)
	progress, err := f.svc.ListSkillProgress(f.ctx, f.admin, f.center.ID, conv.Child.ID, false)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, models.SkillMastered, progress[0].Level)

	got, err := f.svc.GetReportCard(f.ctx, f.admin, f.center.ID, card.ID)
	require.NoError(t, err)
	require.Len(t, got.SkillSnapshot, 1)
	assert.Equal(t, models.SkillIntroduced, got.SkillSnapshot[0].Level)
	assert.Equal(t, "Forward roll", got.SkillSnapshot[0].SkillName)
	assert.Equal(t, start, got.PeriodStart)
	assert.Equal(t, end, got.PeriodEnd)

	again, err := f.svc.GenerateReportCard(f.ctx, f.admin, f.center.ID, conv.Child.ID, ReportCardInput{PeriodStart: &start, PeriodEnd: &end})
	require.NoError(t, err)
	assert.NotEqual(t, card.ID, again.ID)
	assert.Equal(t, models.SkillMastered, again.SkillSnapshot[0].Level)

	cards, err := f.svc.ListReportCards(f.ctx, f.admin, f.center.ID, conv.Child.ID, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, again.ID, cards[0].ID)
}

func TestReportCardPeriod(t *testing.T) {
	feb10 := date(2025, 2, 10)
	jan31 := date(2025, 1, 31)
	tests := []struct {
		name      string
		in        ReportCardInput
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{"current month", ReportCardInput{}, date(2025, 1, 1), date(2025, 1, 31), false},
		{"start only", ReportCardInput{PeriodStart: &feb10}, feb10, date(2025, 2, 28), false},
		{"end only", ReportCardInput{PeriodEnd: &jan31}, date(2025, 1, 1), jan31, false},
		{"end before start", ReportCardInput{PeriodStart: &feb10, PeriodEnd: &jan31}, time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := reportPeriod(tt.in, testNow)
			if tt.wantErr {
				requireKind(t, err, models.KindValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestLevelProgress(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, f.visitPack(10))
	own := f.center.ID

	cur, err := f.svc.CreateCurriculum(f.ctx, f.admin, CurriculumInput{CenterID: &own, Name: "Swim", Type: models.CurriculumLeveled})
	require.NoError(t, err)
	_, err = f.svc.AddSkill(f.ctx, f.admin, cur.ID, SkillInput{Name: "Float"})
	requireKind(t, err, models.KindValidation)

	cat, err := f.svc.AddActivityCategory(f.ctx, f.admin, cur.ID, CategoryInput{Name: "Freestyle"})
	require.NoError(t, err)
	l1, err := f.svc.AddProgressionLevel(f.ctx, f.admin, cat.ID, LevelInput{LevelNumber: 1, Name: "Kick board"})
	require.NoError(t, err)
	l2, err := f.svc.AddProgressionLevel(f.ctx, f.admin, cat.ID, LevelInput{LevelNumber: 2, Name: "Ten metres"})
	require.NoError(t, err)
	_, err = f.svc.AddProgressionLevel(f.ctx, f.admin, cat.ID, LevelInput{LevelNumber: 2, Name: "Duplicate"})
	requireKind(t, err, models.KindConflict)

	for _, lvl := range []*models.ProgressionLevel{l1, l2} {
		_, err := f.svc.RecordLevelAttainment(f.ctx, f.admin, f.center.ID, conv.Child.ID, LevelAttainmentInput{ProgressionLevelID: lvl.ID})
		require.NoError(t, err)
	}
	_, err = f.svc.RecordLevelAttainment(f.ctx, f.admin, f.center.ID, conv.Child.ID, LevelAttainmentInput{ProgressionLevelID: l1.ID})
	requireKind(t, err, models.KindConflict)

	progress, err := f.svc.GetChildProgress(f.ctx, f.admin, f.center.ID, conv.Child.ID)
	require.NoError(t, err)
	require.Len(t, progress.Levels, 1)
	assert.Equal(t, 2, progress.Levels[0].LevelNumber)
	assert.Equal(t, "Freestyle", progress.Levels[0].CategoryName)

	tree, err := f.svc.GetCurriculumTree(f.ctx, f.admin, cur.ID)
	require.NoError(t, err)
	require.Len(t, tree.Categories, 1)
	assert.Len(t, tree.Categories[0].Levels, 2)
}

func TestCenterIsolation(t *testing.T) {
	f := newFixture(t)
	conv := f.convert(t, f.visitPack(10))

	other, err := f.svc.CreateCenter(f.ctx, f.root, CenterInput{Name: "Uptown", Code: "UP02"})
	require.NoError(t, err)
	outsider := models.Actor{UserID: uuid.New(), Role: models.RoleCenterAdmin, CenterID: &other.ID}

	_, err = f.svc.GetLead(f.ctx, outsider, f.center.ID, conv.Lead.ID, false)
	requireKind(t, err, models.KindForbidden)
	_, err = f.svc.GetLead(f.ctx, outsider, f.center.ID, uuid.New(), false)
	requireKind(t, err, models.KindForbidden)
	_, err = f.svc.MarkAttendance(f.ctx, outsider, f.center.ID, AttendanceInput{
		SessionID: uuid.New(), ChildID: conv.Child.ID, Status: models.AttendancePresent,
	})
	requireKind(t, err, models.KindForbidden)

	// naming their own center makes foreign rows look missing
	_, err = f.svc.GetChild(f.ctx, outsider, other.ID, conv.Child.ID, true)
	requireKind(t, err, models.KindNotFound)

	trainer := models.Actor{UserID: uuid.New(), Role: models.RoleTrainer, CenterID: &f.center.ID}
	_, err = f.svc.RecordPayment(f.ctx, trainer, f.center.ID, conv.Enrollment.ID, PaymentInput{Amount: 100, Method: models.PaymentCash})
	requireKind(t, err, models.KindForbidden)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.CreateUser(f.ctx, f.admin, UserInput{
		CenterID: &f.center.ID,
		Email:    "Coach@Example.com",
		Password: "s3cret-pass",
		FullName: "Coach Lee",
		Role:     models.RoleTrainer,
	})
	require.NoError(t, err)
	assert.Equal(t, "coach@example.com", u.Email)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)

	_, err = f.svc.CreateUser(f.ctx, f.admin, UserInput{
		CenterID: &f.center.ID, Email: "coach@example.com", Password: "another-pass", FullName: "Dup", Role: models.RoleTrainer,
	})
	requireKind(t, err, models.KindConflict)

	_, actor, err := f.svc.Authenticate(f.ctx, "coach@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTrainer, actor.Role)
	assert.Equal(t, f.center.ID, *actor.CenterID)

	_, _, err = f.svc.Authenticate(f.ctx, "coach@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

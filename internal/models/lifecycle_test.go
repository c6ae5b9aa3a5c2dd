package models

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckLeadTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    LeadStatus
		to      LeadStatus
		wantErr bool
	}{
		{"new to contacted", LeadNew, LeadContacted, false},
		{"new straight to intro", LeadNew, LeadIntroScheduled, false},
		{"no show back to contacted", LeadIntroScheduled, LeadContacted, false},
		{"attended to converted", LeadIntroAttended, LeadConverted, false},
		{"follow up loops", LeadFollowUp, LeadFollowUp, false},
		{"new cannot convert", LeadNew, LeadConverted, true},
		{"contacted cannot skip intro", LeadContacted, LeadIntroAttended, true},
		{"dead is final", LeadDead, LeadContacted, true},
		{"converted is final", LeadConverted, LeadFollowUp, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLeadTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckLeadTransition(%s, %s) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if err != nil && !IsKind(err, KindInvalidState) {
				t.Errorf("CheckLeadTransition() kind = %s, want %s", KindOf(err), KindInvalidState)
			}
		})
	}
}

func TestPlanEndDate(t *testing.T) {
	tests := []struct {
		plan  PlanType
		start time.Time
		want  *time.Time
	}{
		{PlanMonthly, day(2025, 1, 8), ptr(day(2025, 2, 7))},
		{PlanMonthly, day(2025, 1, 1), ptr(day(2025, 1, 31))},
		{PlanQuarterly, day(2025, 1, 1), ptr(day(2025, 3, 31))},
		{PlanHalfYearly, day(2025, 3, 15), ptr(day(2025, 9, 14))},
		{PlanYearly, day(2024, 2, 1), ptr(day(2025, 1, 31))},
		{PlanVisitPack, day(2025, 1, 1), nil},
		{PlanCustom, day(2025, 1, 1), nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.plan), func(t *testing.T) {
			got := PlanEndDate(tt.plan, tt.start)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("PlanEndDate() = %v, want nil", *got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("PlanEndDate() = %v, want %v", got, *tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestApplyVisitDelta(t *testing.T) {
	tests := []struct {
		name     string
		plan     PlanType
		included *int
		used     int
		delta    int
		wantUsed int
		wantErr  bool
	}{
		{"first visit", PlanVisitPack, ptr(10), 0, 1, 1, false},
		{"last visit", PlanVisitPack, ptr(10), 9, 1, 10, false},
		{"over capacity", PlanVisitPack, ptr(10), 10, 1, 10, true},
		{"refund", PlanVisitPack, ptr(10), 4, -1, 3, false},
		{"never below zero", PlanVisitPack, ptr(10), 0, -1, 0, false},
		{"date ranged plan untouched", PlanMonthly, nil, 0, 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Enrollment{PlanType: tt.plan, VisitsIncluded: tt.included, VisitsUsed: tt.used}
			err := ApplyVisitDelta(e, tt.delta)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyVisitDelta() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrVisitCapacity) || !IsKind(err, KindConflict) {
					t.Errorf("ApplyVisitDelta() error = %v, want a capacity conflict", err)
				}
			}
			if e.VisitsUsed != tt.wantUsed {
				t.Errorf("VisitsUsed = %d, want %d", e.VisitsUsed, tt.wantUsed)
			}
		})
	}
}

func TestVisitDelta(t *testing.T) {
	present, absent := AttendancePresent, AttendanceAbsent
	tests := []struct {
		name string
		old  *AttendanceStatus
		next AttendanceStatus
		want int
	}{
		{"new present", nil, AttendancePresent, 1},
		{"new absent", nil, AttendanceAbsent, 0},
		{"present again", &present, AttendancePresent, 0},
		{"present to excused", &present, AttendanceExcused, -1},
		{"absent to present", &absent, AttendancePresent, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisitDelta(tt.old, tt.next); got != tt.want {
				t.Errorf("VisitDelta() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidatePaymentAmounts(t *testing.T) {
	tests := []struct {
		name    string
		p       Payment
		wantErr bool
	}{
		{"consistent", Payment{Amount: 5000, DiscountTotal: 500, NetAmount: 4500}, false},
		{"no discount", Payment{Amount: 5000, NetAmount: 5000}, false},
		{"net too high", Payment{Amount: 5000, DiscountTotal: 500, NetAmount: 5000}, true},
		{"discount above amount", Payment{Amount: 100, DiscountTotal: 200, NetAmount: -100}, true},
		{"negative amount", Payment{Amount: -1, NetAmount: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePaymentAmounts(&tt.p)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePaymentAmounts() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDiscountTotal(t *testing.T) {
	discounts := []*Discount{
		{Type: DiscountPercentage, Value: 10},
		{Type: DiscountFlat, Value: 250},
		{Type: DiscountFlat, Value: 9999, Tenant: Tenant{IsArchived: true}},
	}
	got, err := DiscountTotal(discounts, 5000)
	if err != nil {
		t.Fatalf("DiscountTotal() error = %v", err)
	}
	if got != 750 {
		t.Errorf("DiscountTotal() = %d, want 750", got)
	}

	if _, err := DiscountTotal(discounts[:2], 200); !IsKind(err, KindValidation) {
		t.Errorf("DiscountTotal() over base error = %v, want VALIDATION", err)
	}
}

func TestRemainingDiscount(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		payments []*Payment
		want     int64
	}{
		{"no payments", 1000, nil, 1000},
		{"partly used", 1000, []*Payment{{DiscountTotal: 400, Status: PaymentPaid}}, 600},
		{"fully used", 1000, []*Payment{{DiscountTotal: 1000, Status: PaymentPaid}, {Status: PaymentPending}}, 0},
		{"refund gives share back", 1000, []*Payment{{DiscountTotal: 1000, Status: PaymentRefunded}}, 1000},
		{"never negative", 500, []*Payment{{DiscountTotal: 800, Status: PaymentPaid}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemainingDiscount(tt.total, tt.payments); got != tt.want {
				t.Errorf("RemainingDiscount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAgeInMonths(t *testing.T) {
	tests := []struct {
		dob, on time.Time
		want    int
	}{
		{day(2020, 1, 15), day(2020, 1, 15), 0},
		{day(2020, 1, 15), day(2020, 2, 14), 0},
		{day(2020, 1, 15), day(2020, 2, 15), 1},
		{day(2019, 3, 10), day(2025, 1, 6), 69},
	}
	for _, tt := range tests {
		if got := AgeInMonths(tt.dob, tt.on); got != tt.want {
			t.Errorf("AgeInMonths(%s, %s) = %d, want %d", tt.dob.Format("2006-01-02"), tt.on.Format("2006-01-02"), got, tt.want)
		}
	}

	if err := ValidateChildAge(day(2026, 1, 1), day(2025, 1, 1)); !IsKind(err, KindValidation) {
		t.Errorf("ValidateChildAge() future dob error = %v, want VALIDATION", err)
	}
}

func TestWeekdayOf(t *testing.T) {
	if got := WeekdayOf(day(2025, 1, 6)); got != Monday {
		t.Errorf("WeekdayOf(2025-01-06) = %s, want %s", got, Monday)
	}
	if got := WeekdayOf(day(2025, 1, 12)); got != Sunday {
		t.Errorf("WeekdayOf(2025-01-12) = %s, want %s", got, Sunday)
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseLeadStatus("WON"); !IsKind(err, KindValidation) {
		t.Errorf("ParseLeadStatus(WON) error = %v, want VALIDATION", err)
	}
	if s, err := ParsePlanType("VISIT_PACK"); err != nil || s != PlanVisitPack {
		t.Errorf("ParsePlanType(VISIT_PACK) = %s, %v", s, err)
	}
	if _, err := ParseEntityKind("payments"); err == nil {
		t.Error("ParseEntityKind(payments) should fail: payments are never archived")
	}
}

package models

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// LeadTransitions is the complete set of allowed lead status moves.
var LeadTransitions = map[LeadStatus][]LeadStatus{
	LeadNew:            {LeadContacted, LeadIntroScheduled, LeadDead},
	LeadContacted:      {LeadIntroScheduled, LeadDead},
	LeadIntroScheduled: {LeadIntroAttended, LeadContacted, LeadDead},
	LeadIntroAttended:  {LeadFollowUp, LeadConverted, LeadDead},
	LeadFollowUp:       {LeadFollowUp, LeadConverted, LeadDead},
}

// CanTransitionLead reports whether from -> to is in LeadTransitions.
func CanTransitionLead(from, to LeadStatus) bool {
	for _, s := range LeadTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckLeadTransition returns an INVALID_STATE error for disallowed moves.
func CheckLeadTransition(from, to LeadStatus) error {
	if from.Terminal() {
		return InvalidStatef("lead is already %s", from)
	}
	if !CanTransitionLead(from, to) {
		return InvalidStatef("cannot move lead from %s to %s", from, to)
	}
	return nil
}

// EnrollmentTransitions lists the explicit status changes staff may make.
var EnrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentActive: {EnrollmentPaused, EnrollmentCancelled, EnrollmentExpired, EnrollmentCompleted},
	EnrollmentPaused: {EnrollmentActive, EnrollmentCancelled, EnrollmentExpired, EnrollmentCompleted},
}

func CheckEnrollmentTransition(from, to EnrollmentStatus) error {
	for _, s := range EnrollmentTransitions[from] {
		if s == to {
			return nil
		}
	}
	return InvalidStatef("cannot move enrollment from %s to %s", from, to)
}

// PlanEndDate derives the last valid day for date-ranged plans. It returns
// nil for plans whose end must be supplied or does not apply.
func PlanEndDate(plan PlanType, start time.Time) *time.Time {
	var months int
	switch plan {
	case PlanMonthly:
		months = 1
	case PlanQuarterly:
		months = 3
	case PlanHalfYearly:
		months = 6
	case PlanYearly:
		months = 12
	default:
		return nil
	}
	end := now.With(start.AddDate(0, months, 0)).BeginningOfDay().AddDate(0, 0, -1)
	return &end
}

// ValidateEnrollmentTerms checks the plan/window/visit rules of an enrollment.
func ValidateEnrollmentTerms(e *Enrollment) error {
	if e.EndDate != nil && DateOnly(*e.EndDate).Before(DateOnly(e.StartDate)) {
		return Validationf("end date must not be before start date")
	}
	if e.VisitsIncluded != nil {
		if *e.VisitsIncluded <= 0 {
			return Validationf("visits included must be positive")
		}
		if e.VisitsUsed < 0 || e.VisitsUsed > *e.VisitsIncluded {
			return Validationf("visits used must be between 0 and %d", *e.VisitsIncluded)
		}
	}
	if e.PlanType.VisitBased() && e.VisitsIncluded == nil {
		return Validationf("%s plans need visits included", e.PlanType)
	}
	if e.PlanType == PlanCustom && e.EndDate == nil {
		return Validationf("%s plans need an end date", e.PlanType)
	}
	if e.FeeAmount < 0 {
		return Validationf("fee amount must not be negative")
	}
	return nil
}

// CoversDate reports whether day falls inside the enrollment window.
func (e *Enrollment) CoversDate(day time.Time) bool {
	d := DateOnly(day)
	if d.Before(DateOnly(e.StartDate)) {
		return false
	}
	return e.EndDate == nil || !d.After(DateOnly(*e.EndDate))
}

// VisitDelta is the change to visits_used when an attendance row moves
// from old (nil for a new row) to next.
func VisitDelta(old *AttendanceStatus, next AttendanceStatus) int {
	was := old != nil && *old == AttendancePresent
	is := next == AttendancePresent
	switch {
	case is && !was:
		return 1
	case was && !is:
		return -1
	}
	return 0
}

// ApplyVisitDelta adjusts the counter, refusing to leave [0, visits_included].
func ApplyVisitDelta(e *Enrollment, delta int) error {
	if delta == 0 || !e.PlanType.VisitBased() || e.VisitsIncluded == nil {
		return nil
	}
	next := e.VisitsUsed + delta
	if next > *e.VisitsIncluded {
		return &Error{
			Kind:    KindConflict,
			Message: fmt.Sprintf("all %d visits of this enrollment are used", *e.VisitsIncluded),
			Err:     ErrVisitCapacity,
		}
	}
	if next < 0 {
		next = 0
	}
	e.VisitsUsed = next
	return nil
}

// DiscountAmount is the money taken off base by one discount.
func DiscountAmount(d *Discount, base int64) int64 {
	switch d.Type {
	case DiscountPercentage:
		return base * d.Value / 100
	case DiscountFlat:
		return d.Value
	}
	return 0
}

// DiscountTotal sums discounts against base and rejects totals above it.
func DiscountTotal(discounts []*Discount, base int64) (int64, error) {
	var total int64
	for _, d := range discounts {
		if d.IsArchived {
			continue
		}
		total += DiscountAmount(d, base)
	}
	if total > base {
		return 0, Validationf("discounts (%d) exceed amount (%d)", total, base)
	}
	return total, nil
}

// RemainingDiscount is the part of an enrollment's discount total not yet
// consumed by earlier payments. Refunded payments give their share back.
func RemainingDiscount(total int64, payments []*Payment) int64 {
	for _, p := range payments {
		if p.Status == PaymentRefunded {
			continue
		}
		total -= p.DiscountTotal
	}
	if total < 0 {
		return 0
	}
	return total
}

// ValidateDiscount checks a single discount value.
func ValidateDiscount(d *Discount) error {
	switch d.Type {
	case DiscountPercentage:
		if d.Value <= 0 || d.Value > 100 {
			return Validationf("percentage discount must be between 1 and 100")
		}
	case DiscountFlat:
		if d.Value <= 0 {
			return Validationf("flat discount must be positive")
		}
	default:
		return Validationf("invalid discount type: %q", d.Type)
	}
	return nil
}

// ValidatePaymentAmounts enforces net_amount = amount - discount_total >= 0.
func ValidatePaymentAmounts(p *Payment) error {
	if p.Amount < 0 || p.DiscountTotal < 0 {
		return Validationf("amounts must not be negative")
	}
	if p.NetAmount != p.Amount-p.DiscountTotal {
		return Validationf("net amount %d does not equal amount %d minus discounts %d",
			p.NetAmount, p.Amount, p.DiscountTotal)
	}
	if p.NetAmount < 0 {
		return Validationf("discounts exceed payment amount")
	}
	return nil
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return now.With(t).BeginningOfDay()
}

// AgeInMonths returns whole months between dob and on.
func AgeInMonths(dob, on time.Time) int {
	months := (on.Year()-dob.Year())*12 + int(on.Month()) - int(dob.Month())
	if on.Day() < dob.Day() {
		months--
	}
	return months
}

// MaxChildAgeMonths bounds the age of children the franchise accepts.
const MaxChildAgeMonths = 18 * 12

// ValidateChildAge rejects dates of birth in the future or beyond the limit.
func ValidateChildAge(dob, on time.Time) error {
	if DateOnly(dob).After(DateOnly(on)) {
		return Validationf("date of birth is in the future")
	}
	if AgeInMonths(dob, on) > MaxChildAgeMonths {
		return Validationf("child is older than %d years", MaxChildAgeMonths/12)
	}
	return nil
}

// WeekdayOf maps a date to its schedule weekday.
func WeekdayOf(t time.Time) Weekday {
	for d, n := range weekdayByTime {
		if time.Weekday(n) == t.Weekday() {
			return d
		}
	}
	return ""
}

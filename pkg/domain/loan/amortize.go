package loan

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// The amortization functions below are pure and deterministic: no I/O,
// no stored state. Monetary results are rounded half-up to two decimal
// places.

// MonthlyPayment computes the fixed monthly installment for an
// amortizing loan using P * r * (1+r)^n / ((1+r)^n - 1). A zero rate
// degrades to an even split; degenerate inputs yield zero.
func MonthlyPayment(principal decimal.Decimal, annualRate float64, termMonths int) decimal.Decimal {
	if principal.LessThanOrEqual(decimal.Zero) || termMonths <= 0 {
		return decimal.Zero
	}
	monthlyRate := annualRate / 12.0
	if monthlyRate == 0 {
		return principal.Div(decimal.NewFromInt(int64(termMonths))).Round(2)
	}
	factor := math.Pow(1+monthlyRate, float64(termMonths))
	payment := principal.InexactFloat64() * monthlyRate * factor / (factor - 1)
	return decimal.NewFromFloat(payment).Round(2)
}

// TotalInterest computes the interest paid over the full term:
// monthlyPayment * termMonths - principal.
func TotalInterest(principal decimal.Decimal, annualRate float64, termMonths int) decimal.Decimal {
	if principal.LessThanOrEqual(decimal.Zero) || termMonths <= 0 {
		return decimal.Zero
	}
	payment := MonthlyPayment(principal, annualRate, termMonths)
	total := payment.Mul(decimal.NewFromInt(int64(termMonths))).Sub(principal).Round(2)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// RemainingBalance computes the closed-form amortization balance after
// paymentsMade installments:
//
//	B_k = P * ((1+r)^n - (1+r)^k) / ((1+r)^n - 1)
//
// A zero rate degrades to the linear remainder; a fully paid loan
// yields zero.
func RemainingBalance(principal decimal.Decimal, annualRate float64, termMonths, paymentsMade int) decimal.Decimal {
	if principal.LessThanOrEqual(decimal.Zero) || termMonths <= 0 {
		return decimal.Zero
	}
	if paymentsMade >= termMonths {
		return decimal.Zero
	}
	if paymentsMade < 0 {
		paymentsMade = 0
	}
	monthlyRate := annualRate / 12.0
	if monthlyRate == 0 {
		remaining := termMonths - paymentsMade
		return principal.
			Mul(decimal.NewFromInt(int64(remaining))).
			Div(decimal.NewFromInt(int64(termMonths))).
			Round(2)
	}
	fn := math.Pow(1+monthlyRate, float64(termMonths))
	fk := math.Pow(1+monthlyRate, float64(paymentsMade))
	balance := principal.InexactFloat64() * (fn - fk) / (fn - 1)
	if balance < 0 {
		balance = 0
	}
	return decimal.NewFromFloat(balance).Round(2)
}

// NextPaymentDue returns the due date of the next installment:
// firstPaymentDate plus paymentsMade months. The second return value is
// false once all installments have been made.
func NextPaymentDue(firstPaymentDate time.Time, paymentsMade, termMonths int) (time.Time, bool) {
	if termMonths <= 0 || paymentsMade >= termMonths {
		return time.Time{}, false
	}
	if paymentsMade < 0 {
		paymentsMade = 0
	}
	return firstPaymentDate.AddDate(0, paymentsMade, 0), true
}

// IsOverdue reports whether the next installment's due date has passed.
// Always recomputed, never persisted.
func IsOverdue(firstPaymentDate time.Time, paymentsMade, termMonths int, now time.Time) bool {
	due, ok := NextPaymentDue(firstPaymentDate, paymentsMade, termMonths)
	if !ok {
		return false
	}
	return due.Before(now)
}

// DaysOverdue returns the number of whole days the next installment is
// past due, zero when not overdue.
func DaysOverdue(firstPaymentDate time.Time, paymentsMade, termMonths int, now time.Time) int {
	due, ok := NextPaymentDue(firstPaymentDate, paymentsMade, termMonths)
	if !ok || !due.Before(now) {
		return 0
	}
	return int(now.Sub(due).Hours() / 24)
}

// ProgressPercentage returns round(100 * paymentsMade / termMonths),
// clamped to [0, 100].
func ProgressPercentage(paymentsMade, termMonths int) int {
	if termMonths <= 0 || paymentsMade <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(paymentsMade) / float64(termMonths)))
	if pct > 100 {
		return 100
	}
	return pct
}

// ScheduleEntry is one period in an amortization schedule.
type ScheduleEntry struct {
	Period           int
	DueDate          time.Time
	Principal        decimal.Decimal
	Interest         decimal.Decimal
	Total            decimal.Decimal
	RemainingBalance decimal.Decimal
}

// Schedule computes the full per-period amortization table. The final
// period absorbs accumulated rounding so the balance lands exactly on
// zero.
func Schedule(principal decimal.Decimal, annualRate float64, termMonths int, firstPaymentDate time.Time) []ScheduleEntry {
	if principal.LessThanOrEqual(decimal.Zero) || termMonths <= 0 {
		return nil
	}
	payment := MonthlyPayment(principal, annualRate, termMonths)
	monthlyRate := decimal.NewFromFloat(annualRate / 12.0)

	entries := make([]ScheduleEntry, 0, termMonths)
	remaining := principal
	for period := 1; period <= termMonths; period++ {
		interest := remaining.Mul(monthlyRate).Round(2)
		principalPart := payment.Sub(interest)
		total := payment
		if period == termMonths {
			principalPart = remaining
			total = principalPart.Add(interest)
		}
		remaining = remaining.Sub(principalPart)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		entries = append(entries, ScheduleEntry{
			Period:           period,
			DueDate:          firstPaymentDate.AddDate(0, period-1, 0),
			Principal:        principalPart,
			Interest:         interest,
			Total:            total,
			RemainingBalance: remaining,
		})
	}
	return entries
}

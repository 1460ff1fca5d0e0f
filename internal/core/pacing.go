package core

import "github.com/shopspring/decimal"

// Health of an allocation given how much of it has been consumed.
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusCritical Status = "critical"
	StatusWarning  Status = "warning"
	StatusHealthy  Status = "healthy"
)

var (
	hundred           = decimal.NewFromInt(100)
	criticalThreshold = decimal.NewFromInt(80)
	warningThreshold  = decimal.NewFromInt(50)
)

// Classify derives the health status of an allocation. A fully consumed (or
// over-spent) budget is empty, not critical: empty takes precedence over the
// percentage thresholds.
func Classify(allocated, spent decimal.Decimal) Status {
	if allocated.IsZero() {
		return StatusEmpty
	}
	if allocated.Sub(spent).Sign() <= 0 {
		return StatusEmpty
	}
	consumed := spent.Div(allocated).Mul(hundred)
	switch {
	case consumed.GreaterThanOrEqual(criticalThreshold):
		return StatusCritical
	case consumed.GreaterThanOrEqual(warningThreshold):
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// RecommendedDailySpend is the amount that can be spent each remaining day
// without going over budget. The result is negative when the budget is
// already over-spent; callers must surface that, not clamp it to zero.
func RecommendedDailySpend(allocated, spent decimal.Decimal, daysRemaining int) decimal.Decimal {
	if daysRemaining <= 0 {
		return decimal.Zero
	}
	return allocated.Sub(spent).Div(decimal.NewFromInt(int64(daysRemaining)))
}

// AverageDailySpend is the mean spend per elapsed day of the month.
func AverageDailySpend(spent decimal.Decimal, daysElapsed int) decimal.Decimal {
	if daysElapsed <= 0 {
		return decimal.Zero
	}
	return spent.Div(decimal.NewFromInt(int64(daysElapsed)))
}

// Pacing annotates an allocation for display: health status plus the spend
// recommendations relative to a reference day. Pure, safe for concurrent use.
type Pacing struct {
	Status                Status
	Remaining             decimal.Decimal
	RecommendedDailySpend decimal.Decimal
	AverageDailySpend     decimal.Decimal
	DaysRemaining         int
	DaysElapsed           int
}

// PacingFor computes the full pacing annotation for an allocation as of the
// given reference date.
func PacingFor(a Allocation, ref Date) Pacing {
	daysRemaining := DaysRemainingInMonth(ref)
	daysElapsed := DaysElapsedInMonth(ref)
	return Pacing{
		Status:                Classify(a.Allocated, a.Spent),
		Remaining:             a.Remaining(),
		RecommendedDailySpend: RecommendedDailySpend(a.Allocated, a.Spent, daysRemaining),
		AverageDailySpend:     AverageDailySpend(a.Spent, daysElapsed),
		DaysRemaining:         daysRemaining,
		DaysElapsed:           daysElapsed,
	}
}

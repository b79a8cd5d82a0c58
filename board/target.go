package board

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopfloor/safety-board/eval"
)

// =============================================================================
// MAN-HOUR TARGET - Formula-driven safety performance figures
// =============================================================================

// TargetVars are the named numeric inputs available to the target formulas.
type TargetVars struct {
	Manpower         float64 `json:"manpower"`
	DaysPerWeek      float64 `json:"daysPerWeek"`
	HoursPerDay      float64 `json:"hoursPerDay"`
	WorkingDaysYear  float64 `json:"workingDaysYear"`
	WorkingDaysSoFar float64 `json:"workingDaysSoFar"`
}

// Bindings returns the variable mapping handed to the expression evaluator.
// Only these five names are resolvable inside a formula.
func (v TargetVars) Bindings() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"manpower":         decimal.NewFromFloat(v.Manpower),
		"daysPerWeek":      decimal.NewFromFloat(v.DaysPerWeek),
		"hoursPerDay":      decimal.NewFromFloat(v.HoursPerDay),
		"workingDaysYear":  decimal.NewFromFloat(v.WorkingDaysYear),
		"workingDaysSoFar": decimal.NewFromFloat(v.WorkingDaysSoFar),
	}
}

// TargetFormulas are the user-authored expressions for the yearly man-hour
// target and the target accumulated to date.
type TargetFormulas struct {
	TotalExpr  string `json:"totalExpr"`
	ToDateExpr string `json:"toDateExpr"`
}

// TargetState is the full target panel state for one year.
type TargetState struct {
	Vars              TargetVars     `json:"vars"`
	Formulas          TargetFormulas `json:"formulas"`
	BestRecord        float64        `json:"bestRecord"`
	LossTimeAccidents float64        `json:"lossTimeAccidents"`
	LastUpdate        time.Time      `json:"lastUpdate"`
}

// DefaultTargetState is the target panel a fresh (or corrupted) year starts
// with.
func DefaultTargetState() TargetState {
	return TargetState{
		Vars: TargetVars{
			Manpower:         675,
			DaysPerWeek:      6,
			HoursPerDay:      8,
			WorkingDaysYear:  300,
			WorkingDaysSoFar: 0,
		},
		Formulas: TargetFormulas{
			TotalExpr:  "manpower * hoursPerDay * workingDaysYear",
			ToDateExpr: "manpower * hoursPerDay * workingDaysSoFar",
		},
	}
}

// TargetResult carries the evaluated formulas. An invalid formula leaves its
// value zero with the valid flag false; display layers render a placeholder.
type TargetResult struct {
	Total       decimal.Decimal
	TotalValid  bool
	ToDate      decimal.Decimal
	ToDateValid bool
}

// ComputeTargets evaluates both formulas over the current variables. It is a
// pure read with no mutation rights; invalid formulas never propagate an
// error past this boundary.
func ComputeTargets(ts TargetState) TargetResult {
	vars := ts.Vars.Bindings()
	var result TargetResult
	if total, err := eval.Evaluate(ts.Formulas.TotalExpr, vars); err == nil {
		result.Total = total
		result.TotalValid = true
	}
	if toDate, err := eval.Evaluate(ts.Formulas.ToDateExpr, vars); err == nil {
		result.ToDate = toDate
		result.ToDateValid = true
	}
	return result
}

package metrics

import (
	"math"
	"sort"
	"time"

	"vinflow/internal/ledger"
	"vinflow/internal/stages"
)

// Defaults applied when a caller passes a zero-valued tunable.
const (
	DefaultDailyHoldingCost   = 32.0
	DefaultAgingThresholdDays = 5.0
)

// StageTime describes how long a unit has spent in one stage, summed
// across every visit. Display only; SLA checks use the open entry.
type StageTime struct {
	Stage      stages.Stage
	Days       float64
	BudgetDays float64
	Overdue    bool
}

// UnitMetrics is the full derived view of one unit's ledger history.
type UnitMetrics struct {
	TotalDays   float64
	HoldingCost float64
	CurrentDays float64
	StageTimes  []StageTime
	Overdue     bool
	Aging       bool
	AgingExcess float64
}

// roundDays truncates a fractional day count to one decimal place,
// rounding half away from zero.
func roundDays(days float64) float64 {
	return math.Round(days*10) / 10
}

func entryDays(entry *ledger.Entry, now time.Time) float64 {
	if entry == nil {
		return 0
	}
	end := now
	if entry.ExitedAt != nil {
		end = *entry.ExitedAt
	}
	elapsed := end.Sub(entry.EnteredAt)
	if elapsed < 0 {
		return 0
	}
	return elapsed.Hours() / 24
}

// ElapsedInStage is the time since the open entry's enteredAt, in
// fractional days rounded to one decimal place. Zero when no open entry
// matches the given stage.
func ElapsedInStage(history []*ledger.Entry, stage stages.Stage, now time.Time) float64 {
	for _, entry := range history {
		if entry.Open() && entry.Stage == stage {
			return roundDays(entryDays(entry, now))
		}
	}
	return 0
}

// DaysInStage sums elapsed time across every visit the history made to
// the given stage, rounded to one decimal place.
func DaysInStage(history []*ledger.Entry, stage stages.Stage, now time.Time) float64 {
	var total float64
	for _, entry := range history {
		if entry.Stage == stage {
			total += entryDays(entry, now)
		}
	}
	return roundDays(total)
}

// TotalDays is the fractional days since the unit was created, rounded
// to one decimal place.
func TotalDays(createdAt time.Time, now time.Time) float64 {
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		return 0
	}
	return roundDays(elapsed.Hours() / 24)
}

// HoldingCost is the carrying cost accrued since creation: total elapsed
// days times the per-day rate, rounded to the nearest dollar.
func HoldingCost(createdAt time.Time, dailyRate float64, now time.Time) float64 {
	if dailyRate == 0 {
		dailyRate = DefaultDailyHoldingCost
	}
	return math.Round(TotalDays(createdAt, now) * dailyRate)
}

// IsOverdue reports whether the unit's open entry in the given stage has
// strictly exceeded that stage's budget. Stages without a budget are
// never overdue.
func IsOverdue(history []*ledger.Entry, stage stages.Stage, now time.Time) bool {
	budget, ok := stages.Budget(stage)
	if !ok {
		return false
	}
	return ElapsedInStage(history, stage, now) > budget
}

// Compute assembles the derived view of one unit from its history.
func Compute(unit *ledger.Unit, history []*ledger.Entry, dailyRate, agingThreshold float64, now time.Time) UnitMetrics {
	if dailyRate == 0 {
		dailyRate = DefaultDailyHoldingCost
	}
	if agingThreshold == 0 {
		agingThreshold = DefaultAgingThresholdDays
	}

	perStage := make(map[stages.Stage]float64)
	var order []stages.Stage
	for _, entry := range history {
		if _, seen := perStage[entry.Stage]; !seen {
			order = append(order, entry.Stage)
		}
		perStage[entry.Stage] += entryDays(entry, now)
	}

	m := UnitMetrics{
		TotalDays:   TotalDays(unit.CreatedAt, now),
		CurrentDays: ElapsedInStage(history, unit.CurrentStage, now),
		Overdue:     IsOverdue(history, unit.CurrentStage, now),
	}
	m.HoldingCost = math.Round(m.TotalDays * dailyRate)

	for _, stage := range order {
		st := StageTime{Stage: stage, Days: roundDays(perStage[stage])}
		if budget, ok := stages.Budget(stage); ok {
			st.BudgetDays = budget
			st.Overdue = st.Days > budget
		}
		m.StageTimes = append(m.StageTimes, st)
	}

	if m.TotalDays > agingThreshold {
		m.Aging = true
		m.AgingExcess = roundDays(m.TotalDays - agingThreshold)
	}
	return m
}

// AgingAlert flags a non-terminal unit that is either overdue in its
// current stage or past the aging threshold overall.
type AgingAlert struct {
	Unit        *ledger.Unit
	TotalDays   float64
	ExcessDays  float64
	HoldingCost float64
	Overdue     bool
}

// AgingAlerts scans units with their histories and returns an alert for
// every non-terminal unit that is overdue in its current stage or whose
// total elapsed time exceeds the aging threshold. Alerts are sorted by
// total elapsed days descending; ties keep their input order, so
// repeated calls over the same ledger produce identical reports.
func AgingAlerts(units []*ledger.Unit, histories map[string][]*ledger.Entry, dailyRate, agingThreshold float64, now time.Time) []AgingAlert {
	if dailyRate == 0 {
		dailyRate = DefaultDailyHoldingCost
	}
	if agingThreshold == 0 {
		agingThreshold = DefaultAgingThresholdDays
	}

	var alerts []AgingAlert
	for _, unit := range units {
		if stages.IsTerminal(unit.CurrentStage) {
			continue
		}
		history := histories[unit.ID]
		total := TotalDays(unit.CreatedAt, now)
		overdue := IsOverdue(history, unit.CurrentStage, now)
		if total <= agingThreshold && !overdue {
			continue
		}
		excess := total - agingThreshold
		if excess < 0 {
			excess = 0
		}
		alerts = append(alerts, AgingAlert{
			Unit:        unit,
			TotalDays:   total,
			ExcessDays:  roundDays(excess),
			HoldingCost: math.Round(total * dailyRate),
			Overdue:     overdue,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].TotalDays > alerts[j].TotalDays
	})
	return alerts
}

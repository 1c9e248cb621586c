package stages

import "strings"

// Stage identifies a step in the reconditioning workflow.
type Stage string

const (
	Appraisal    Stage = "appraisal"
	Decision     Stage = "decision"
	ServiceQueue Stage = "service_queue"
	Service      Stage = "service"
	PartsHold    Stage = "parts_hold"
	Approval     Stage = "approval"
	Vendor       Stage = "vendor"
	Detail       Stage = "detail"
	Inspection   Stage = "inspection"
	Frontline    Stage = "frontline"
)

// Def describes a single workflow stage. MaxDays is the SLA budget for the
// stage in days; zero means the stage carries no budget.
type Def struct {
	ID      Stage
	Name    string
	MaxDays float64
}

// ordered is the authoritative workflow order. parts_hold is entered
// manually and vendor is conditional on vendor dependencies; both are
// treated specially by Next rather than carrying declared flags. If more
// manual-only or conditional stages are ever added this should become
// per-stage metadata.
var ordered = []Def{
	{ID: Appraisal, Name: "Appraisal", MaxDays: 1},
	{ID: Decision, Name: "Trade Decision", MaxDays: 1},
	{ID: ServiceQueue, Name: "Service Queue", MaxDays: 1},
	{ID: Approval, Name: "Approval Needed", MaxDays: 1},
	{ID: Service, Name: "In Service", MaxDays: 2},
	{ID: PartsHold, Name: "Parts Hold", MaxDays: 3},
	{ID: Vendor, Name: "Vendor Work", MaxDays: 2},
	{ID: Detail, Name: "Detail", MaxDays: 1},
	{ID: Inspection, Name: "Final Inspection", MaxDays: 1},
	{ID: Frontline, Name: "Frontline Ready"},
}

var byID = func() map[Stage]Def {
	m := make(map[Stage]Def, len(ordered))
	for _, def := range ordered {
		m[def.ID] = def
	}
	return m
}()

// Ordered returns the full workflow order, first stage first.
func Ordered() []Def {
	cp := make([]Def, len(ordered))
	copy(cp, ordered)
	return cp
}

// First returns the stage every new unit enters on creation.
func First() Def {
	return ordered[0]
}

// Lookup returns the definition for a stage identifier.
func Lookup(id Stage) (Def, bool) {
	def, ok := byID[id]
	return def, ok
}

// Parse converts a string into a known stage identifier.
func Parse(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := byID[normalized]
	return normalized, ok
}

// Budget returns the SLA budget in days for a stage. The second return is
// false when the stage has no budget or is unknown.
func Budget(id Stage) (float64, bool) {
	def, ok := byID[id]
	if !ok || def.MaxDays <= 0 {
		return 0, false
	}
	return def.MaxDays, true
}

// IsTerminal reports whether a unit in the given stage has nowhere further
// to advance regardless of vendor dependencies.
func IsTerminal(id Stage) bool {
	_, ok := Next(id, true)
	return !ok
}

// Next resolves the default advancement target from a stage. parts_hold is
// never a default target (it is entered manually) and vendor is skipped
// when the unit has no vendor dependencies. Returns false when the stage is
// unknown or terminal.
func Next(from Stage, hasVendors bool) (Def, bool) {
	index := -1
	for i, def := range ordered {
		if def.ID == from {
			index = i
			break
		}
	}
	if index == -1 {
		return Def{}, false
	}

	for i := index + 1; i < len(ordered); i++ {
		candidate := ordered[i]
		if candidate.ID == PartsHold {
			continue
		}
		if candidate.ID == Vendor && !hasVendors {
			continue
		}
		return candidate, true
	}
	return Def{}, false
}

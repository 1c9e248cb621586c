package ledger

import (
	"strconv"
	"strings"
	"time"

	"vinflow/internal/stages"
)

// Priority is the closed set of urgency flags. Priority affects sorting and
// escalation only, never transition legality.
type Priority string

const (
	PriorityNone            Priority = "none"
	PrioritySold            Priority = "sold"
	PriorityCustomerWaiting Priority = "customer_waiting"
	PriorityHotUnit         Priority = "hot_unit"
)

var priorityMeta = map[Priority]struct {
	label  string
	weight int
}{
	PriorityNone:            {label: "Normal", weight: 0},
	PrioritySold:            {label: "SOLD - Rush", weight: 3},
	PriorityCustomerWaiting: {label: "Customer Waiting", weight: 2},
	PriorityHotUnit:         {label: "Hot Unit", weight: 1},
}

// ParsePriority converts a string into a known priority flag.
func ParsePriority(value string) (Priority, bool) {
	normalized := Priority(strings.ToLower(strings.TrimSpace(value)))
	_, ok := priorityMeta[normalized]
	return normalized, ok
}

// Label returns the display label for a priority flag.
func (p Priority) Label() string {
	return priorityMeta[p].label
}

// Weight returns the sort weight of a priority flag; higher is more urgent.
func (p Priority) Weight() int {
	return priorityMeta[p].weight
}

// Grade is the reconditioning cost band assigned at appraisal.
type Grade string

const (
	GradeA Grade = "a"
	GradeB Grade = "b"
	GradeC Grade = "c"
	GradeD Grade = "d"
)

// ParseGrade converts a string into a known grade.
func ParseGrade(value string) (Grade, bool) {
	normalized := Grade(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case GradeA, GradeB, GradeC, GradeD:
		return normalized, true
	}
	return "", false
}

// NoteCategory tags audit notes for display grouping only.
type NoteCategory string

const (
	NotePlain    NoteCategory = "note"
	NotePriority NoteCategory = "priority"
	NoteMovement NoteCategory = "movement"
	NoteParts    NoteCategory = "parts"
)

// ParseNoteCategory converts a string into a known note category.
func ParseNoteCategory(value string) (NoteCategory, bool) {
	normalized := NoteCategory(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case NotePlain, NotePriority, NoteMovement, NoteParts:
		return normalized, true
	}
	return "", false
}

// Actor identifies who performed a write, for attribution on ledger rows.
type Actor struct {
	ID   string
	Name string
}

// Unit is a tracked vehicle moving through the workflow. CurrentStage is
// owned by the transition commit path; Revision increments on every write
// and backs the compare-and-commit discipline.
type Unit struct {
	ID              string
	StockNumber     string
	VIN             string
	Year            int
	Make            string
	Model           string
	Grade           Grade
	ServiceLocation string
	Priority        Priority
	CurrentStage    stages.Stage
	EstimatedCost   float64
	ActualCost      float64
	Vendors         []string
	AppraiserID     string
	AppraiserName   string
	Revision        int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasVendors reports whether the unit carries external vendor dependencies.
func (u *Unit) HasVendors() bool {
	return u != nil && len(u.Vendors) > 0
}

// DisplayName is the short human identifier used in notes and notifications.
func (u *Unit) DisplayName() string {
	if u == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	if u.Year > 0 {
		parts = append(parts, strconv.Itoa(u.Year))
	}
	if u.Make != "" {
		parts = append(parts, u.Make)
	}
	if u.Model != "" {
		parts = append(parts, u.Model)
	}
	if len(parts) == 0 {
		return u.StockNumber
	}
	return strings.Join(parts, " ")
}

// Entry is one append-only stage-occupancy record. ExitedAt is nil while
// the unit occupies the stage; it is set exactly once when the unit leaves.
type Entry struct {
	ID          string
	UnitID      string
	Stage       stages.Stage
	EnteredAt   time.Time
	ExitedAt    *time.Time
	MovedByID   string
	MovedByName string
}

// Open reports whether the entry is the unit's current occupancy record.
func (e *Entry) Open() bool {
	return e != nil && e.ExitedAt == nil
}

// Note is an immutable audit note attached to a unit.
type Note struct {
	ID            string
	UnitID        string
	Category      NoteCategory
	Body          string
	CreatedByID   string
	CreatedByName string
	CreatedAt     time.Time
}

// PartsHold records a part a unit is waiting on. Append-only.
type PartsHold struct {
	ID            string
	UnitID        string
	PartName      string
	PartNumber    string
	Supplier      string
	ExpectedAt    time.Time
	OrderedByID   string
	OrderedByName string
	CreatedAt     time.Time
}

// NewUnit carries the attributes needed to create a unit.
type NewUnit struct {
	StockNumber     string
	VIN             string
	Year            int
	Make            string
	Model           string
	Grade           Grade
	ServiceLocation string
	EstimatedCost   float64
	Vendors         []string
}

// VendorInfo describes a known external vendor. Days is display metadata;
// the engine never schedules against it.
type VendorInfo struct {
	Name string
	Days []string
}

var vendorCatalog = map[string]VendorInfo{
	"pdr":        {Name: "PDR Guy", Days: []string{"Monday", "Thursday"}},
	"key_guy":    {Name: "Key Guy", Days: []string{"Tuesday"}},
	"hubcap":     {Name: "Hubcap Jack", Days: []string{"Tuesday"}},
	"wheel_medic": {Name: "Wheel Medic", Days: []string{"Wednesday"}},
	"body_shop":  {Name: "Body Shop", Days: []string{"Any"}},
}

// KnownVendor reports whether a vendor identifier is in the catalog.
func KnownVendor(id string) bool {
	_, ok := vendorCatalog[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// Vendor returns catalog information for a vendor identifier.
func Vendor(id string) (VendorInfo, bool) {
	info, ok := vendorCatalog[strings.ToLower(strings.TrimSpace(id))]
	return info, ok
}

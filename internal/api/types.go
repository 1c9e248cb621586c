package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Unit describes a tracked vehicle in a transport-friendly format.
type Unit struct {
	ID              string   `json:"id"`
	StockNumber     string   `json:"stockNumber"`
	VIN             string   `json:"vin,omitempty"`
	Year            int      `json:"year,omitempty"`
	Make            string   `json:"make,omitempty"`
	Model           string   `json:"model,omitempty"`
	DisplayName     string   `json:"displayName"`
	Grade           string   `json:"grade,omitempty"`
	ServiceLocation string   `json:"serviceLocation,omitempty"`
	Priority        string   `json:"priority"`
	CurrentStage    string   `json:"currentStage"`
	StageName       string   `json:"stageName"`
	EstimatedCost   float64  `json:"estimatedCost"`
	ActualCost      float64  `json:"actualCost"`
	Vendors         []string `json:"vendors,omitempty"`
	AppraiserName   string   `json:"appraiserName,omitempty"`
	Revision        int64    `json:"revision"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	UpdatedAt       string   `json:"updatedAt,omitempty"`
}

// Entry describes one stage-occupancy record.
type Entry struct {
	ID          string `json:"id"`
	UnitID      string `json:"unitId"`
	Stage       string `json:"stage"`
	StageName   string `json:"stageName"`
	EnteredAt   string `json:"enteredAt"`
	ExitedAt    string `json:"exitedAt,omitempty"`
	Open        bool   `json:"open"`
	MovedByName string `json:"movedByName,omitempty"`
}

// Note describes an audit note attached to a unit.
type Note struct {
	ID            string `json:"id"`
	UnitID        string `json:"unitId"`
	Category      string `json:"category"`
	Body          string `json:"body"`
	CreatedByName string `json:"createdByName,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// PartsHold describes a pending part a unit is waiting on.
type PartsHold struct {
	ID            string `json:"id"`
	UnitID        string `json:"unitId"`
	PartName      string `json:"partName"`
	PartNumber    string `json:"partNumber,omitempty"`
	Supplier      string `json:"supplier,omitempty"`
	ExpectedAt    string `json:"expectedAt,omitempty"`
	OrderedByName string `json:"orderedByName,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// StageTime reports time spent in one stage across every visit.
type StageTime struct {
	Stage      string  `json:"stage"`
	StageName  string  `json:"stageName"`
	Days       float64 `json:"days"`
	BudgetDays float64 `json:"budgetDays"`
	Overdue    bool    `json:"overdue"`
}

// UnitMetrics aggregates the derived view of a unit's ledger history.
type UnitMetrics struct {
	TotalDays   float64     `json:"totalDays"`
	HoldingCost float64     `json:"holdingCost"`
	CurrentDays float64     `json:"currentDays"`
	StageTimes  []StageTime `json:"stageTimes,omitempty"`
	Overdue     bool        `json:"overdue"`
	Aging       bool        `json:"aging"`
	AgingExcess float64     `json:"agingExcess"`
}

// AgingAlert flags a unit that needs attention.
type AgingAlert struct {
	Unit        Unit    `json:"unit"`
	TotalDays   float64 `json:"totalDays"`
	ExcessDays  float64 `json:"excessDays"`
	HoldingCost float64 `json:"holdingCost"`
	Overdue     bool    `json:"overdue"`
}

// ApprovalTier describes one cost-based escalation bracket.
type ApprovalTier struct {
	MaxCost      float64  `json:"maxCost,omitempty"`
	Approvers    []string `json:"approvers,omitempty"`
	Label        string   `json:"label"`
	AutoApproved bool     `json:"autoApproved"`
}

// Transition reports a committed stage move.
type Transition struct {
	Unit Unit   `json:"unit"`
	From string `json:"from"`
	To   string `json:"to"`
}

// UnitDetail bundles a unit with its history, notes, holds, and metrics
// for describe-style callers.
type UnitDetail struct {
	Unit       Unit         `json:"unit"`
	History    []Entry      `json:"history"`
	Notes      []Note       `json:"notes,omitempty"`
	PartsHolds []PartsHold  `json:"partsHolds,omitempty"`
	Metrics    UnitMetrics  `json:"metrics"`
	Tier       ApprovalTier `json:"tier"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	LedgerDBPath string         `json:"ledgerDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	StageCounts  map[string]int `json:"stageCounts,omitempty"`
}

// HealthReport mirrors the ledger database health check.
type HealthReport struct {
	DBPath           string   `json:"dbPath"`
	DatabaseExists   bool     `json:"databaseExists"`
	DatabaseReadable bool     `json:"databaseReadable"`
	TablesPresent    bool     `json:"tablesPresent"`
	MissingTables    []string `json:"missingTables,omitempty"`
	IntegrityCheck   string   `json:"integrityCheck,omitempty"`
	TotalUnits       int      `json:"totalUnits"`
	OpenEntries      int      `json:"openEntries"`
	Error            string   `json:"error,omitempty"`
}

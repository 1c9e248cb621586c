package ipc

import (
	"vinflow/internal/api"
	"vinflow/internal/changefeed"
)

// Actor identifies the operator issuing a request.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Unit mirrors the API unit DTO for IPC callers.
type Unit = api.Unit

// Entry mirrors the API entry DTO for IPC callers.
type Entry = api.Entry

// Note mirrors the API note DTO for IPC callers.
type Note = api.Note

// PartsHold mirrors the API parts hold DTO for IPC callers.
type PartsHold = api.PartsHold

// Event mirrors a ledger change event for IPC callers.
type Event = changefeed.Event

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	LedgerDBPath string         `json:"ledger_db_path"`
	LockPath     string         `json:"lock_path"`
	StageCounts  map[string]int `json:"stage_counts"`
}

// UnitCreateRequest registers a new unit in the pipeline.
type UnitCreateRequest struct {
	Actor           Actor    `json:"actor"`
	StockNumber     string   `json:"stock_number"`
	VIN             string   `json:"vin"`
	Year            int      `json:"year"`
	Make            string   `json:"make"`
	Model           string   `json:"model"`
	Grade           string   `json:"grade"`
	ServiceLocation string   `json:"service_location"`
	EstimatedCost   float64  `json:"estimated_cost"`
	Vendors         []string `json:"vendors"`
	Note            string   `json:"note"`
}

// UnitCreateResponse contains the created unit.
type UnitCreateResponse struct {
	Unit Unit `json:"unit"`
}

// UnitListRequest filters unit listing by stage. Empty means all units.
type UnitListRequest struct {
	Stage string `json:"stage"`
}

// UnitListResponse contains matching units.
type UnitListResponse struct {
	Units []Unit `json:"units"`
}

// UnitDescribeRequest fetches a single unit by id or stock number.
type UnitDescribeRequest struct {
	ID          string `json:"id"`
	StockNumber string `json:"stock_number"`
}

// UnitDescribeResponse bundles the unit with its ledger view.
type UnitDescribeResponse struct {
	Detail api.UnitDetail `json:"detail"`
}

// MoveRequest commits an explicit stage transition.
type MoveRequest struct {
	Actor  Actor  `json:"actor"`
	UnitID string `json:"unit_id"`
	Target string `json:"target"`
	Note   string `json:"note"`
}

// MoveResponse reports the committed transition.
type MoveResponse struct {
	Transition api.Transition `json:"transition"`
}

// AdvanceRequest moves a unit to its next stage in workflow order.
type AdvanceRequest struct {
	Actor  Actor  `json:"actor"`
	UnitID string `json:"unit_id"`
	Note   string `json:"note"`
}

// AdvanceResponse reports the committed transition.
type AdvanceResponse struct {
	Transition api.Transition `json:"transition"`
}

// SetPriorityRequest changes a unit's urgency flag.
type SetPriorityRequest struct {
	Actor    Actor  `json:"actor"`
	UnitID   string `json:"unit_id"`
	Priority string `json:"priority"`
}

// SetPriorityResponse contains the updated unit.
type SetPriorityResponse struct {
	Unit Unit `json:"unit"`
}

// AddNoteRequest appends an audit note to a unit.
type AddNoteRequest struct {
	Actor    Actor  `json:"actor"`
	UnitID   string `json:"unit_id"`
	Category string `json:"category"`
	Body     string `json:"body"`
}

// AddNoteResponse contains the recorded note.
type AddNoteResponse struct {
	Note Note `json:"note"`
}

// HoldForPartsRequest moves a unit into the parts hold stage and records
// the part it is waiting on.
type HoldForPartsRequest struct {
	Actor      Actor  `json:"actor"`
	UnitID     string `json:"unit_id"`
	PartName   string `json:"part_name"`
	PartNumber string `json:"part_number"`
	Supplier   string `json:"supplier"`
	Note       string `json:"note"`
}

// HoldForPartsResponse reports the committed transition.
type HoldForPartsResponse struct {
	Transition api.Transition `json:"transition"`
}

// SetCostRequest records the actual repair cost for a unit.
type SetCostRequest struct {
	Actor  Actor   `json:"actor"`
	UnitID string  `json:"unit_id"`
	Cost   float64 `json:"cost"`
}

// SetCostResponse contains the updated unit.
type SetCostResponse struct {
	Unit Unit `json:"unit"`
}

// HistoryRequest fetches the full occupancy ledger for a unit.
type HistoryRequest struct {
	UnitID string `json:"unit_id"`
}

// HistoryResponse contains the entries oldest first.
type HistoryResponse struct {
	Entries []Entry `json:"entries"`
}

// AlertsRequest fetches the aging report.
type AlertsRequest struct{}

// AlertsResponse contains aging alerts, longest-held first.
type AlertsResponse struct {
	Alerts []api.AgingAlert `json:"alerts"`
}

// TierRequest resolves the approval bracket for a repair cost.
type TierRequest struct {
	Cost float64 `json:"cost"`
}

// TierResponse contains the matching bracket.
type TierResponse struct {
	Tier api.ApprovalTier `json:"tier"`
}

// StatsRequest fetches per-stage occupancy counts.
type StatsRequest struct{}

// StatsResponse contains counts keyed by stage id.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// EventsRequest fetches ledger change events after a sequence number.
// Wait blocks until an event newer than Since arrives.
type EventsRequest struct {
	Since uint64 `json:"since"`
	Limit int    `json:"limit"`
	Wait  bool   `json:"wait"`
}

// EventsResponse contains events plus the feed's oldest retained
// sequence. A gap between Since and the first event means the feed
// dropped history and the caller should resync from the ledger.
type EventsResponse struct {
	Events        []Event `json:"events"`
	NextSince     uint64  `json:"next_since"`
	FirstSequence uint64  `json:"first_sequence"`
}

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse indicates whether the notification was sent.
type TestNotificationResponse struct {
	Sent bool `json:"sent"`
}

// DatabaseHealthRequest fetches ledger database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse contains the health report.
type DatabaseHealthResponse struct {
	Health api.HealthReport `json:"health"`
}

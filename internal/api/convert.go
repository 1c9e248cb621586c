package api

import (
	"math"
	"slices"
	"time"

	"vinflow/internal/ledger"
	"vinflow/internal/metrics"
	"vinflow/internal/stages"
)

// FromUnit converts a ledger unit to its API representation.
func FromUnit(unit *ledger.Unit) Unit {
	if unit == nil {
		return Unit{}
	}
	dto := Unit{
		ID:              unit.ID,
		StockNumber:     unit.StockNumber,
		VIN:             unit.VIN,
		Year:            unit.Year,
		Make:            unit.Make,
		Model:           unit.Model,
		DisplayName:     unit.DisplayName(),
		Grade:           string(unit.Grade),
		ServiceLocation: unit.ServiceLocation,
		Priority:        string(unit.Priority),
		CurrentStage:    string(unit.CurrentStage),
		StageName:       stageName(unit.CurrentStage),
		EstimatedCost:   unit.EstimatedCost,
		ActualCost:      unit.ActualCost,
		Vendors:         slices.Clone(unit.Vendors),
		AppraiserName:   unit.AppraiserName,
		Revision:        unit.Revision,
	}
	dto.CreatedAt = formatTime(unit.CreatedAt)
	dto.UpdatedAt = formatTime(unit.UpdatedAt)
	return dto
}

// FromUnits converts a slice of ledger units into API DTOs.
func FromUnits(units []*ledger.Unit) []Unit {
	if len(units) == 0 {
		return nil
	}
	out := make([]Unit, 0, len(units))
	for _, unit := range units {
		out = append(out, FromUnit(unit))
	}
	return out
}

// FromEntry converts a stage-occupancy record to its API representation.
func FromEntry(entry *ledger.Entry) Entry {
	if entry == nil {
		return Entry{}
	}
	dto := Entry{
		ID:          entry.ID,
		UnitID:      entry.UnitID,
		Stage:       string(entry.Stage),
		StageName:   stageName(entry.Stage),
		EnteredAt:   formatTime(entry.EnteredAt),
		Open:        entry.Open(),
		MovedByName: entry.MovedByName,
	}
	if entry.ExitedAt != nil {
		dto.ExitedAt = formatTime(*entry.ExitedAt)
	}
	return dto
}

// FromEntries converts a slice of entries into API DTOs.
func FromEntries(entries []*ledger.Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry))
	}
	return out
}

// FromNote converts an audit note to its API representation.
func FromNote(note *ledger.Note) Note {
	if note == nil {
		return Note{}
	}
	return Note{
		ID:            note.ID,
		UnitID:        note.UnitID,
		Category:      string(note.Category),
		Body:          note.Body,
		CreatedByName: note.CreatedByName,
		CreatedAt:     formatTime(note.CreatedAt),
	}
}

// FromNotes converts a slice of notes into API DTOs.
func FromNotes(notes []*ledger.Note) []Note {
	if len(notes) == 0 {
		return nil
	}
	out := make([]Note, 0, len(notes))
	for _, note := range notes {
		out = append(out, FromNote(note))
	}
	return out
}

// FromPartsHold converts a parts hold record to its API representation.
func FromPartsHold(hold *ledger.PartsHold) PartsHold {
	if hold == nil {
		return PartsHold{}
	}
	dto := PartsHold{
		ID:            hold.ID,
		UnitID:        hold.UnitID,
		PartName:      hold.PartName,
		PartNumber:    hold.PartNumber,
		Supplier:      hold.Supplier,
		OrderedByName: hold.OrderedByName,
		CreatedAt:     formatTime(hold.CreatedAt),
	}
	dto.ExpectedAt = formatTime(hold.ExpectedAt)
	return dto
}

// FromPartsHolds converts a slice of parts holds into API DTOs.
func FromPartsHolds(holds []*ledger.PartsHold) []PartsHold {
	if len(holds) == 0 {
		return nil
	}
	out := make([]PartsHold, 0, len(holds))
	for _, hold := range holds {
		out = append(out, FromPartsHold(hold))
	}
	return out
}

// FromMetrics converts derived unit metrics to their API representation.
func FromMetrics(m metrics.UnitMetrics) UnitMetrics {
	dto := UnitMetrics{
		TotalDays:   m.TotalDays,
		HoldingCost: m.HoldingCost,
		CurrentDays: m.CurrentDays,
		Overdue:     m.Overdue,
		Aging:       m.Aging,
		AgingExcess: m.AgingExcess,
	}
	for _, st := range m.StageTimes {
		dto.StageTimes = append(dto.StageTimes, StageTime{
			Stage:      string(st.Stage),
			StageName:  stageName(st.Stage),
			Days:       st.Days,
			BudgetDays: st.BudgetDays,
			Overdue:    st.Overdue,
		})
	}
	return dto
}

// FromAgingAlert converts an aging alert to its API representation.
func FromAgingAlert(alert metrics.AgingAlert) AgingAlert {
	return AgingAlert{
		Unit:        FromUnit(alert.Unit),
		TotalDays:   alert.TotalDays,
		ExcessDays:  alert.ExcessDays,
		HoldingCost: alert.HoldingCost,
		Overdue:     alert.Overdue,
	}
}

// FromAgingAlerts converts a slice of aging alerts into API DTOs.
func FromAgingAlerts(alerts []metrics.AgingAlert) []AgingAlert {
	if len(alerts) == 0 {
		return nil
	}
	out := make([]AgingAlert, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, FromAgingAlert(alert))
	}
	return out
}

// FromTier converts an approval tier to its API representation. The
// unbounded final bracket reports a zero MaxCost on the wire.
func FromTier(tier metrics.Tier) ApprovalTier {
	dto := ApprovalTier{
		Approvers:    slices.Clone(tier.Approvers),
		Label:        tier.Label,
		AutoApproved: tier.AutoApproved(),
	}
	if !math.IsInf(tier.MaxCost, 1) {
		dto.MaxCost = tier.MaxCost
	}
	return dto
}

// FromHealth converts a ledger health report to its API representation.
func FromHealth(health ledger.DatabaseHealth) HealthReport {
	return HealthReport{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		TablesPresent:    health.TablesPresent,
		MissingTables:    slices.Clone(health.MissingTables),
		IntegrityCheck:   health.IntegrityCheck,
		TotalUnits:       health.TotalUnits,
		OpenEntries:      health.OpenEntries,
		Error:            health.Error,
	}
}

// StageCountsDTO flattens per-stage occupancy counts into string keys.
func StageCountsDTO(counts map[stages.Stage]int) map[string]int {
	if len(counts) == 0 {
		return nil
	}
	out := make(map[string]int, len(counts))
	for stage, n := range counts {
		out[string(stage)] = n
	}
	return out
}

func stageName(id stages.Stage) string {
	if def, ok := stages.Lookup(id); ok {
		return def.Name
	}
	return string(id)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

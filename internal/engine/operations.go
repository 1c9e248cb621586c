package engine

import (
	"context"
	"fmt"
	"strings"

	"vinflow/internal/changefeed"
	"vinflow/internal/ledger"
	"vinflow/internal/logging"
	"vinflow/internal/stages"
)

// SetPriority updates a unit's priority flag and records an audit note.
// Priority never affects transition legality, so no gate check runs here.
func (e *Engine) SetPriority(ctx context.Context, unitID string, priority ledger.Priority, actor Actor) (*ledger.Unit, error) {
	parsed, ok := ledger.ParsePriority(string(priority))
	if !ok {
		return nil, fmt.Errorf("priority %q: %w", priority, ErrInvalidPriority)
	}

	unit, err := e.store.SetPriority(ctx, unitID, parsed)
	if err != nil {
		return nil, err
	}

	e.recordNote(ctx, unit, actor, ledger.NotePriority,
		fmt.Sprintf("Priority set to %s", parsed.Label()))

	e.publish(changefeed.Event{
		Kind:        changefeed.KindPriorityChanged,
		UnitID:      unit.ID,
		StockNumber: unit.StockNumber,
		UnitName:    unit.DisplayName(),
		Actor:       actor.Name,
		Priority:    string(parsed),
	})

	if parsed != ledger.PriorityNone {
		if err := e.notifier.NotifyPriorityChanged(ctx, unit.DisplayName(), parsed.Label()); err != nil {
			e.logger.Warn("priority notification failed",
				logging.UnitID(unit.ID),
				logging.Error(err))
		}
	}
	return unit, nil
}

// AddNote appends an immutable note to a unit's audit trail.
func (e *Engine) AddNote(ctx context.Context, unitID, text string, category ledger.NoteCategory, actor Actor) (*ledger.Note, error) {
	parsed, ok := ledger.ParseNoteCategory(string(category))
	if !ok {
		return nil, fmt.Errorf("category %q: %w", category, ErrInvalidNoteCategory)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("note body must not be empty")
	}

	unit, err := e.store.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, fmt.Errorf("unit %s: %w", unitID, ledger.ErrUnitNotFound)
	}

	note, err := e.store.AddNote(ctx, ledger.Note{
		UnitID:        unit.ID,
		Category:      parsed,
		Body:          text,
		CreatedByID:   actor.ID,
		CreatedByName: actor.Name,
	})
	if err != nil {
		return nil, err
	}

	e.publish(changefeed.Event{
		Kind:        changefeed.KindNoteAdded,
		UnitID:      unit.ID,
		StockNumber: unit.StockNumber,
		UnitName:    unit.DisplayName(),
		Actor:       actor.Name,
		Detail:      text,
	})
	return note, nil
}

// PartsHoldRequest carries the inputs for HoldForParts.
type PartsHoldRequest struct {
	UnitID     string
	PartName   string
	PartNumber string
	Supplier   string
	Note       string
}

// HoldForParts records the part a unit is waiting on and moves the unit
// into the manual-only parts hold stage. The transition runs first so an
// unauthorized actor cannot record holds; once it commits, the hold row,
// note, event, and notification are best-effort like any other
// post-commit bookkeeping.
func (e *Engine) HoldForParts(ctx context.Context, req PartsHoldRequest, actor Actor) (*TransitionResult, error) {
	req.PartName = strings.TrimSpace(req.PartName)
	if req.PartName == "" {
		return nil, fmt.Errorf("part name must not be empty")
	}

	result, err := e.Transition(ctx, req.UnitID, stages.PartsHold, actor, req.Note)
	if err != nil {
		return nil, err
	}

	supplier := strings.TrimSpace(req.Supplier)
	if _, err := e.store.AddPartsHold(ctx, ledger.PartsHold{
		UnitID:        result.Unit.ID,
		PartName:      req.PartName,
		PartNumber:    strings.TrimSpace(req.PartNumber),
		Supplier:      supplier,
		OrderedByID:   actor.ID,
		OrderedByName: actor.Name,
	}); err != nil {
		e.logger.Warn("parts hold record failed",
			logging.UnitID(result.Unit.ID),
			logging.Error(err))
	}

	e.recordNote(ctx, result.Unit, actor, ledger.NoteParts,
		fmt.Sprintf("Waiting on part: %s", req.PartName))

	e.publish(changefeed.Event{
		Kind:        changefeed.KindPartsHold,
		UnitID:      result.Unit.ID,
		StockNumber: result.Unit.StockNumber,
		UnitName:    result.Unit.DisplayName(),
		Actor:       actor.Name,
		Detail:      req.PartName,
	})

	if err := e.notifier.NotifyPartsHold(ctx, result.Unit.DisplayName(), req.PartName, supplier); err != nil {
		e.logger.Warn("parts hold notification failed",
			logging.UnitID(result.Unit.ID),
			logging.Error(err))
	}
	return result, nil
}

// SetActualCost records the final repair cost for a unit.
func (e *Engine) SetActualCost(ctx context.Context, unitID string, cost float64, actor Actor) (*ledger.Unit, error) {
	if cost < 0 {
		return nil, fmt.Errorf("cost must not be negative")
	}
	unit, err := e.store.SetActualCost(ctx, unitID, cost)
	if err != nil {
		return nil, err
	}

	e.publish(changefeed.Event{
		Kind:        changefeed.KindCostChanged,
		UnitID:      unit.ID,
		StockNumber: unit.StockNumber,
		UnitName:    unit.DisplayName(),
		Actor:       actor.Name,
		Detail:      fmt.Sprintf("%.2f", cost),
	})
	return unit, nil
}

// recordNote writes a best-effort audit note. Failure is logged, never
// propagated; the triggering operation has already committed.
func (e *Engine) recordNote(ctx context.Context, unit *ledger.Unit, actor Actor, category ledger.NoteCategory, body string) {
	if _, err := e.store.AddNote(ctx, ledger.Note{
		UnitID:        unit.ID,
		Category:      category,
		Body:          body,
		CreatedByID:   actor.ID,
		CreatedByName: actor.Name,
	}); err != nil {
		e.logger.Warn("audit note emission failed",
			logging.UnitID(unit.ID),
			logging.Error(err))
	}
}

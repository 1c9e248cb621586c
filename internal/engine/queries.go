package engine

import (
	"context"
	"fmt"

	"vinflow/internal/ledger"
	"vinflow/internal/metrics"
	"vinflow/internal/stages"
)

// Unit returns a single unit by identifier.
func (e *Engine) Unit(ctx context.Context, unitID string) (*ledger.Unit, error) {
	unit, err := e.store.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, fmt.Errorf("unit %s: %w", unitID, ledger.ErrUnitNotFound)
	}
	return unit, nil
}

// UnitByStockNumber resolves the human-facing stock number to a unit.
func (e *Engine) UnitByStockNumber(ctx context.Context, stockNumber string) (*ledger.Unit, error) {
	unit, err := e.store.FindByStockNumber(ctx, stockNumber)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, fmt.Errorf("stock number %s: %w", stockNumber, ledger.ErrUnitNotFound)
	}
	return unit, nil
}

// Units lists every unit in the ledger.
func (e *Engine) Units(ctx context.Context) ([]*ledger.Unit, error) {
	return e.store.ListUnits(ctx)
}

// UnitsByStage lists units currently occupying one stage.
func (e *Engine) UnitsByStage(ctx context.Context, stage stages.Stage) ([]*ledger.Unit, error) {
	if _, ok := stages.Lookup(stage); !ok {
		return nil, fmt.Errorf("stage %q: %w", stage, ErrInvalidStage)
	}
	return e.store.UnitsByStage(ctx, stage)
}

// History returns a unit's full occupancy ledger, oldest first.
func (e *Engine) History(ctx context.Context, unitID string) ([]*ledger.Entry, error) {
	if _, err := e.Unit(ctx, unitID); err != nil {
		return nil, err
	}
	return e.store.History(ctx, unitID)
}

// Notes returns a unit's audit notes, newest first.
func (e *Engine) Notes(ctx context.Context, unitID string) ([]*ledger.Note, error) {
	return e.store.NotesForUnit(ctx, unitID)
}

// PartsHolds returns the parts a unit has waited on.
func (e *Engine) PartsHolds(ctx context.Context, unitID string) ([]*ledger.PartsHold, error) {
	return e.store.PartsHoldsForUnit(ctx, unitID)
}

// Metrics computes the derived time and cost view for one unit.
func (e *Engine) Metrics(ctx context.Context, unitID string) (metrics.UnitMetrics, error) {
	unit, err := e.Unit(ctx, unitID)
	if err != nil {
		return metrics.UnitMetrics{}, err
	}
	history, err := e.store.History(ctx, unitID)
	if err != nil {
		return metrics.UnitMetrics{}, err
	}
	return metrics.Compute(unit, history, e.dailyRate, e.agingThreshold, e.now()), nil
}

// AgingAlerts reports every non-terminal unit that is overdue in its
// stage or past the aging threshold, worst first.
func (e *Engine) AgingAlerts(ctx context.Context) ([]metrics.AgingAlert, error) {
	units, err := e.store.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	histories := make(map[string][]*ledger.Entry, len(units))
	for _, unit := range units {
		if stages.IsTerminal(unit.CurrentStage) {
			continue
		}
		history, err := e.store.History(ctx, unit.ID)
		if err != nil {
			return nil, err
		}
		histories[unit.ID] = history
	}
	return metrics.AgingAlerts(units, histories, e.dailyRate, e.agingThreshold, e.now()), nil
}

// ApprovalTier resolves the escalation bracket for a repair cost.
func (e *Engine) ApprovalTier(cost float64) metrics.Tier {
	return metrics.ApprovalTier(cost)
}

// StageCounts returns the number of units currently in each stage.
func (e *Engine) StageCounts(ctx context.Context) (map[stages.Stage]int, error) {
	return e.store.StageCounts(ctx)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vinflow/internal/changefeed"
	"vinflow/internal/config"
	"vinflow/internal/ledger"
	"vinflow/internal/logging"
	"vinflow/internal/metrics"
	"vinflow/internal/notifications"
	"vinflow/internal/roles"
	"vinflow/internal/stages"
)

// Actor identifies who is performing an operation and with what role.
type Actor struct {
	ID   string
	Name string
	Role roles.Role
}

func (a Actor) ledgerActor() ledger.Actor {
	return ledger.Actor{ID: a.ID, Name: a.Name}
}

// TransitionResult reports a committed stage move.
type TransitionResult struct {
	Unit  *ledger.Unit
	Entry *ledger.Entry
	From  stages.Stage
	To    stages.Stage
}

// Engine coordinates stage transitions against the ledger: it runs the
// authorization gate, commits the atomic close+append+pointer update,
// retries bounded on conflicts, and emits audit notes and change events.
type Engine struct {
	store    *ledger.Store
	feed     *changefeed.Feed
	notifier notifications.Service
	logger   *slog.Logger

	retries        int
	dailyRate      float64
	agingThreshold float64

	now func() time.Time
}

// New constructs an engine over the given store. The feed and notifier
// may be nil; events and notifications are then skipped.
func New(cfg *config.Config, store *ledger.Store, feed *changefeed.Feed, notifier notifications.Service, logger *slog.Logger) *Engine {
	retries := cfg.Pipeline.TransitionRetries
	if retries < 1 {
		retries = 1
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Engine{
		store:          store,
		feed:           feed,
		notifier:       notifier,
		logger:         logging.NewComponentLogger(logger, "engine"),
		retries:        retries,
		dailyRate:      cfg.Pipeline.DailyHoldingCost,
		agingThreshold: cfg.Pipeline.AgingThresholdDays,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateUnit creates a unit and opens its initial ledger entry in the
// first pipeline stage as one atomic operation.
func (e *Engine) CreateUnit(ctx context.Context, attrs ledger.NewUnit, actor Actor, initialNote string) (*ledger.Unit, error) {
	if !roles.CanAddUnits(actor.Role) {
		return nil, fmt.Errorf("actor %s (%s): %w", actor.ID, actor.Role, ErrUnauthorized)
	}
	for _, vendor := range attrs.Vendors {
		if !ledger.KnownVendor(vendor) {
			return nil, fmt.Errorf("vendor %q: %w", vendor, ErrUnknownVendor)
		}
	}

	unit, err := e.store.CreateUnit(ctx, attrs, actor.ledgerActor(), initialNote)
	if err != nil {
		return nil, err
	}

	e.publish(changefeed.Event{
		Kind:        changefeed.KindUnitCreated,
		UnitID:      unit.ID,
		StockNumber: unit.StockNumber,
		UnitName:    unit.DisplayName(),
		Actor:       actor.Name,
		ToStage:     unit.CurrentStage,
	})
	e.logger.Info("unit created",
		logging.UnitID(unit.ID),
		logging.StockNumber(unit.StockNumber),
		logging.Actor(actor.ID))
	return unit, nil
}

// Transition moves a unit to an explicit target stage. Conflicting
// concurrent commits are retried against fresh state a bounded number of
// times before ErrConcurrentModification surfaces to the caller.
func (e *Engine) Transition(ctx context.Context, unitID string, target stages.Stage, actor Actor, note string) (*TransitionResult, error) {
	if _, ok := stages.Lookup(target); !ok {
		return nil, fmt.Errorf("stage %q: %w", target, ErrInvalidStage)
	}
	return e.transition(ctx, unitID, actor, note, func(*ledger.Unit) (stages.Stage, error) {
		return target, nil
	})
}

// Advance moves a unit to the next stage in the graph, skipping the
// manual-only parts hold stage and, for units without vendor
// dependencies, the vendor stage.
func (e *Engine) Advance(ctx context.Context, unitID string, actor Actor, note string) (*TransitionResult, error) {
	return e.transition(ctx, unitID, actor, note, func(unit *ledger.Unit) (stages.Stage, error) {
		next, ok := stages.Next(unit.CurrentStage, unit.HasVendors())
		if !ok {
			return "", fmt.Errorf("unit %s at %s: %w", unit.ID, unit.CurrentStage, ErrNoNextStage)
		}
		return next.ID, nil
	})
}

// transition runs the bounded read-check-commit loop. The target is
// resolved against the freshly read unit on every attempt so Advance
// never commits a stale next-stage decision.
func (e *Engine) transition(ctx context.Context, unitID string, actor Actor, note string, resolve func(*ledger.Unit) (stages.Stage, error)) (*TransitionResult, error) {
	if _, ok := roles.Parse(string(actor.Role)); !ok {
		return nil, fmt.Errorf("role %q: %w", actor.Role, ErrUnknownRole)
	}

	var lastErr error
	for attempt := 0; attempt < e.retries; attempt++ {
		unit, err := e.store.GetUnit(ctx, unitID)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, fmt.Errorf("unit %s: %w", unitID, ledger.ErrUnitNotFound)
		}

		target, err := resolve(unit)
		if err != nil {
			return nil, err
		}
		if !roles.CanTransition(actor.Role, unit.CurrentStage, target) {
			return nil, fmt.Errorf("actor %s (%s) moving %s -> %s: %w",
				actor.ID, actor.Role, unit.CurrentStage, target, ErrUnauthorized)
		}

		open, err := e.store.OpenEntry(ctx, unit.ID)
		if err != nil {
			return nil, err
		}
		if open == nil {
			return nil, fmt.Errorf("unit %s has no open ledger entry: %w", unit.ID, ledger.ErrEntryNotFound)
		}

		entry, err := e.store.CommitTransition(ctx, ledger.TransitionCommit{
			UnitID:           unit.ID,
			ObservedRevision: unit.Revision,
			ObservedEntryID:  open.ID,
			Target:           target,
			At:               e.now(),
			Actor:            actor.ledgerActor(),
		})
		if err != nil {
			if errors.Is(err, ledger.ErrConcurrentModification) {
				lastErr = err
				e.logger.Debug("transition conflict, retrying",
					logging.UnitID(unit.ID),
					logging.Int("attempt", attempt+1))
				continue
			}
			return nil, err
		}

		result := &TransitionResult{
			Unit:  unit,
			Entry: entry,
			From:  unit.CurrentStage,
			To:    target,
		}
		if fresh, err := e.store.GetUnit(ctx, unit.ID); err == nil && fresh != nil {
			result.Unit = fresh
		}

		e.afterTransition(ctx, result, actor, note)
		return result, nil
	}
	return nil, lastErr
}

// afterTransition emits the audit note, change event, and notifications
// for a committed move. The commit has already succeeded; failures here
// are logged and never propagated.
func (e *Engine) afterTransition(ctx context.Context, result *TransitionResult, actor Actor, note string) {
	unit := result.Unit

	text := fmt.Sprintf("Moved from %s to %s", stageName(result.From), stageName(result.To))
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		text = fmt.Sprintf("%s: %s", text, trimmed)
	}
	e.recordNote(ctx, unit, actor, ledger.NoteMovement, text)

	e.publish(changefeed.Event{
		Kind:        changefeed.KindStageChanged,
		UnitID:      unit.ID,
		StockNumber: unit.StockNumber,
		UnitName:    unit.DisplayName(),
		Actor:       actor.Name,
		FromStage:   result.From,
		ToStage:     result.To,
		Detail:      strings.TrimSpace(note),
	})

	if result.To == stages.Approval {
		tier := metrics.ApprovalTier(e.approvalCost(unit))
		if !tier.AutoApproved() {
			if err := e.notifier.NotifyApprovalNeeded(ctx, unit.DisplayName(), tier.Label, tier.Approvers); err != nil {
				e.logger.Warn("approval notification failed",
					logging.UnitID(unit.ID),
					logging.Error(err))
			}
		}
	}

	e.logger.Info("unit moved",
		logging.UnitID(unit.ID),
		logging.StockNumber(unit.StockNumber),
		logging.String("from", string(result.From)),
		logging.Stage(string(result.To)),
		logging.Actor(actor.ID))
}

func (e *Engine) approvalCost(unit *ledger.Unit) float64 {
	if unit.ActualCost > 0 {
		return unit.ActualCost
	}
	return unit.EstimatedCost
}

func (e *Engine) publish(evt changefeed.Event) {
	if e.feed != nil {
		e.feed.Publish(evt)
	}
}

func stageName(id stages.Stage) string {
	if def, ok := stages.Lookup(id); ok {
		return def.Name
	}
	return string(id)
}

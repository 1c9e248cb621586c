package engine_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"vinflow/internal/changefeed"
	"vinflow/internal/engine"
	"vinflow/internal/ledger"
	"vinflow/internal/logging"
	"vinflow/internal/roles"
	"vinflow/internal/stages"
	"vinflow/internal/testsupport"
)

var (
	manager = engine.Actor{ID: "u-mgr", Name: "Recon Manager", Role: roles.ReconManager}
	admin   = engine.Actor{ID: "u-adm", Name: "Admin", Role: roles.Admin}
	detail  = engine.Actor{ID: "u-det", Name: "Detailer", Role: roles.Detail}
	service = engine.Actor{ID: "u-svc", Name: "Service Writer", Role: roles.Service}
)

func newTestEngine(t *testing.T) (*engine.Engine, *ledger.Store, *changefeed.Feed) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	feed := changefeed.New(64)
	eng := engine.New(cfg, store, feed, nil, logging.NewNop())
	return eng, store, feed
}

func createUnit(t *testing.T, eng *engine.Engine) *ledger.Unit {
	t.Helper()
	unit, err := eng.CreateUnit(context.Background(), ledger.NewUnit{
		StockNumber:   "T1001",
		VIN:           "1HGCM82633A004352",
		Year:          2022,
		Make:          "Honda",
		Model:         "Civic",
		EstimatedCost: 850,
	}, manager, "")
	if err != nil {
		t.Fatalf("CreateUnit: %v", err)
	}
	return unit
}

func TestCreateUnitOpensInitialEntry(t *testing.T) {
	eng, store, feed := newTestEngine(t)
	ctx := context.Background()

	unit := createUnit(t, eng)
	if unit.CurrentStage != stages.Appraisal {
		t.Errorf("initial stage = %s, want appraisal", unit.CurrentStage)
	}

	open, err := store.OpenEntry(ctx, unit.ID)
	if err != nil {
		t.Fatalf("OpenEntry: %v", err)
	}
	if open.Stage != stages.Appraisal {
		t.Errorf("open entry stage = %s, want appraisal", open.Stage)
	}

	events, _ := feed.Tail(10)
	if len(events) != 1 || events[0].Kind != changefeed.KindUnitCreated {
		t.Errorf("feed events = %v, want one unit_created", events)
	}
}

func TestCreateUnitRequiresAddCapability(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	_, err := eng.CreateUnit(context.Background(), ledger.NewUnit{StockNumber: "T2000"}, detail, "")
	if !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCreateUnitRejectsUnknownVendor(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	_, err := eng.CreateUnit(context.Background(), ledger.NewUnit{
		StockNumber: "T2001",
		Vendors:     []string{"pdr", "mystery_vendor"},
	}, manager, "")
	if !errors.Is(err, engine.ErrUnknownVendor) {
		t.Fatalf("err = %v, want ErrUnknownVendor", err)
	}
}

func TestAdvanceFollowsStageGraph(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	result, err := eng.Advance(ctx, unit.ID, manager, "")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if result.To != stages.Decision {
		t.Errorf("advanced to %s, want decision", result.To)
	}
	if result.Unit.CurrentStage != stages.Decision {
		t.Errorf("stage pointer = %s, want decision", result.Unit.CurrentStage)
	}

	next, _ := stages.Next(stages.Appraisal, false)
	if result.To != next.ID {
		t.Errorf("advance target %s disagrees with stage graph %s", result.To, next.ID)
	}
}

func TestAdvanceSkipsVendorWithoutDependencies(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	if _, err := eng.Transition(ctx, unit.ID, stages.Service, manager, ""); err != nil {
		t.Fatalf("Transition to service: %v", err)
	}
	result, err := eng.Advance(ctx, unit.ID, manager, "")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if result.To != stages.Detail {
		t.Errorf("advanced to %s, want detail", result.To)
	}
}

func TestAdvanceVisitsVendorWithDependencies(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	unit, err := eng.CreateUnit(ctx, ledger.NewUnit{
		StockNumber: "T1002",
		Vendors:     []string{"pdr"},
	}, manager, "")
	if err != nil {
		t.Fatalf("CreateUnit: %v", err)
	}

	if _, err := eng.Transition(ctx, unit.ID, stages.Service, manager, ""); err != nil {
		t.Fatalf("Transition to service: %v", err)
	}
	result, err := eng.Advance(ctx, unit.ID, manager, "")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if result.To != stages.Vendor {
		t.Errorf("advanced to %s, want vendor", result.To)
	}
}

func TestAdvanceFailsAtTerminalStage(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	if _, err := eng.Transition(ctx, unit.ID, stages.Frontline, admin, ""); err != nil {
		t.Fatalf("Transition to frontline: %v", err)
	}
	_, err := eng.Advance(ctx, unit.ID, admin, "")
	if !errors.Is(err, engine.ErrNoNextStage) {
		t.Fatalf("err = %v, want ErrNoNextStage", err)
	}
}

func TestTransitionRejectsUnknownStage(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	unit := createUnit(t, eng)

	_, err := eng.Transition(context.Background(), unit.ID, "paint_booth", manager, "")
	if !errors.Is(err, engine.ErrInvalidStage) {
		t.Fatalf("err = %v, want ErrInvalidStage", err)
	}
}

func TestTransitionUnitNotFound(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	_, err := eng.Transition(context.Background(), "missing", stages.Service, manager, "")
	if !errors.Is(err, ledger.ErrUnitNotFound) {
		t.Fatalf("err = %v, want ErrUnitNotFound", err)
	}
}

func TestTransitionErrorsWhenOpenEntryMissing(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	// Close the open entry out-of-band so the unit violates the
	// one-open-entry invariant.
	open, err := store.OpenEntry(ctx, unit.ID)
	if err != nil {
		t.Fatalf("OpenEntry: %v", err)
	}
	if err := store.CloseEntry(ctx, open.ID, time.Now()); err != nil {
		t.Fatalf("CloseEntry: %v", err)
	}

	_, err = eng.Advance(ctx, unit.ID, manager, "")
	if !errors.Is(err, ledger.ErrEntryNotFound) {
		t.Fatalf("err = %v, want ErrEntryNotFound", err)
	}
	if err != nil && !strings.Contains(err.Error(), unit.ID) {
		t.Errorf("error %q does not name unit %s", err, unit.ID)
	}
}

func TestTransitionDeniedOutsideRoleScope(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	unit := createUnit(t, eng)

	// A detail-scoped role cannot move a unit between appraisal and decision.
	_, err := eng.Transition(context.Background(), unit.ID, stages.Decision, detail, "")
	if !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestTransitionAllowedIntoRoleScope(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	if _, err := eng.Transition(ctx, unit.ID, stages.ServiceQueue, manager, ""); err != nil {
		t.Fatalf("manager transition: %v", err)
	}
	// Service role covers service_queue, so it may move the unit onward.
	result, err := eng.Transition(ctx, unit.ID, stages.Service, service, "")
	if err != nil {
		t.Fatalf("service transition: %v", err)
	}
	if result.To != stages.Service {
		t.Errorf("moved to %s, want service", result.To)
	}
}

func TestTransitionEmitsAuditNoteAndEvent(t *testing.T) {
	eng, _, feed := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	if _, err := eng.Advance(ctx, unit.ID, manager, "clean title confirmed"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	notes, err := eng.Notes(ctx, unit.ID)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	var movement *ledger.Note
	for _, note := range notes {
		if note.Category == ledger.NoteMovement {
			movement = note
			break
		}
	}
	if movement == nil {
		t.Fatal("no movement note recorded")
	}
	if movement.Body != "Moved from Appraisal to Trade Decision: clean title confirmed" {
		t.Errorf("movement note body = %q", movement.Body)
	}

	events, _ := feed.Tail(10)
	var sawMove bool
	for _, evt := range events {
		if evt.Kind == changefeed.KindStageChanged {
			sawMove = true
			if evt.FromStage != stages.Appraisal || evt.ToStage != stages.Decision {
				t.Errorf("event stages = %s -> %s", evt.FromStage, evt.ToStage)
			}
		}
	}
	if !sawMove {
		t.Error("no stage_changed event published")
	}
}

func TestConcurrentAdvancesKeepLedgerConsistent(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Advance(ctx, unit.ID, manager, "")
		}(i)
	}
	wg.Wait()

	// Bounded retries mean both should normally land, each advancing one
	// step. A surfaced conflict is acceptable; a corrupted ledger is not.
	for _, err := range errs {
		if err != nil && !errors.Is(err, ledger.ErrConcurrentModification) {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := store.History(ctx, unit.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	openCount := 0
	for _, entry := range history {
		if entry.Open() {
			openCount++
		}
	}
	if openCount != 1 {
		t.Fatalf("open entries = %d, want exactly 1", openCount)
	}
	for i, entry := range history[:len(history)-1] {
		if entry.Open() {
			t.Errorf("entry %d before the last is still open", i)
		}
	}
}

func TestSetPriorityRecordsNoteAndEvent(t *testing.T) {
	eng, _, feed := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	updated, err := eng.SetPriority(ctx, unit.ID, ledger.PrioritySold, manager)
	if err != nil {
		t.Fatalf("SetPriority: %v", err)
	}
	if updated.Priority != ledger.PrioritySold {
		t.Errorf("priority = %s, want sold", updated.Priority)
	}
	if updated.Revision != unit.Revision+1 {
		t.Errorf("revision = %d, want %d", updated.Revision, unit.Revision+1)
	}

	notes, err := eng.Notes(ctx, unit.ID)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) == 0 || notes[0].Category != ledger.NotePriority {
		t.Error("expected a priority note at the top of the trail")
	}

	events, _ := feed.Tail(10)
	var saw bool
	for _, evt := range events {
		if evt.Kind == changefeed.KindPriorityChanged && evt.Priority == string(ledger.PrioritySold) {
			saw = true
		}
	}
	if !saw {
		t.Error("no priority_changed event published")
	}
}

func TestSetPriorityRejectsUnknownFlag(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	unit := createUnit(t, eng)

	_, err := eng.SetPriority(context.Background(), unit.ID, "on_fire", manager)
	if !errors.Is(err, engine.ErrInvalidPriority) {
		t.Fatalf("err = %v, want ErrInvalidPriority", err)
	}
}

func TestAddNoteValidatesInput(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	if _, err := eng.AddNote(ctx, unit.ID, "odometer verified", "gossip", manager); !errors.Is(err, engine.ErrInvalidNoteCategory) {
		t.Fatalf("err = %v, want ErrInvalidNoteCategory", err)
	}
	if _, err := eng.AddNote(ctx, unit.ID, "   ", ledger.NotePlain, manager); err == nil {
		t.Fatal("expected error for empty note body")
	}

	note, err := eng.AddNote(ctx, unit.ID, "odometer verified", ledger.NotePlain, manager)
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if note.CreatedByID != manager.ID {
		t.Errorf("note author = %s, want %s", note.CreatedByID, manager.ID)
	}
}

func TestHoldForPartsTransitionsAndRecords(t *testing.T) {
	eng, _, feed := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	if _, err := eng.Transition(ctx, unit.ID, stages.Service, manager, ""); err != nil {
		t.Fatalf("Transition to service: %v", err)
	}

	result, err := eng.HoldForParts(ctx, engine.PartsHoldRequest{
		UnitID:   unit.ID,
		PartName: "windshield",
		Supplier: "Body Shop",
	}, service)
	if err != nil {
		t.Fatalf("HoldForParts: %v", err)
	}
	if result.To != stages.PartsHold {
		t.Errorf("moved to %s, want parts_hold", result.To)
	}

	holds, err := eng.PartsHolds(ctx, unit.ID)
	if err != nil {
		t.Fatalf("PartsHolds: %v", err)
	}
	if len(holds) != 1 || holds[0].PartName != "windshield" {
		t.Errorf("holds = %v, want one windshield hold", holds)
	}

	events, _ := feed.Tail(10)
	var saw bool
	for _, evt := range events {
		if evt.Kind == changefeed.KindPartsHold && evt.Detail == "windshield" {
			saw = true
		}
	}
	if !saw {
		t.Error("no parts_hold event published")
	}
}

func TestHoldForPartsDeniedLeavesNoRecord(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	// Detail role cannot move a unit out of appraisal into parts hold.
	_, err := eng.HoldForParts(ctx, engine.PartsHoldRequest{
		UnitID:   unit.ID,
		PartName: "headlight",
	}, detail)
	if !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}

	holds, err := eng.PartsHolds(ctx, unit.ID)
	if err != nil {
		t.Fatalf("PartsHolds: %v", err)
	}
	if len(holds) != 0 {
		t.Errorf("holds recorded despite denial: %v", holds)
	}
}

func TestHoldForPartsCommitsWhenHoldRecordFails(t *testing.T) {
	eng, store, feed := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	if _, err := eng.Transition(ctx, unit.ID, stages.Service, manager, ""); err != nil {
		t.Fatalf("Transition to service: %v", err)
	}

	// Break hold recording out-of-band so the insert after the stage
	// commit fails.
	raw, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open raw connection: %v", err)
	}
	defer raw.Close()
	if _, err := raw.ExecContext(ctx, "DROP TABLE parts_holds"); err != nil {
		t.Fatalf("drop parts_holds: %v", err)
	}

	result, err := eng.HoldForParts(ctx, engine.PartsHoldRequest{
		UnitID:   unit.ID,
		PartName: "windshield",
	}, service)
	if err != nil {
		t.Fatalf("HoldForParts: %v", err)
	}
	if result.To != stages.PartsHold {
		t.Errorf("moved to %s, want parts_hold", result.To)
	}

	fresh, err := eng.Unit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("Unit: %v", err)
	}
	if fresh.CurrentStage != stages.PartsHold {
		t.Errorf("stage = %s, want parts_hold", fresh.CurrentStage)
	}

	events, _ := feed.Tail(10)
	var saw bool
	for _, evt := range events {
		if evt.Kind == changefeed.KindPartsHold && evt.Detail == "windshield" {
			saw = true
		}
	}
	if !saw {
		t.Error("no parts_hold event published")
	}
}

func TestApprovalExitRequiresApproveCapability(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	if _, err := eng.Transition(ctx, unit.ID, stages.Approval, manager, ""); err != nil {
		t.Fatalf("Transition to approval: %v", err)
	}

	// Service covers service_queue and could otherwise reach it, but
	// leaving approval needs the approve capability.
	_, err := eng.Transition(ctx, unit.ID, stages.ServiceQueue, service, "")
	if !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}

	if _, err := eng.Transition(ctx, unit.ID, stages.ServiceQueue, manager, ""); err != nil {
		t.Fatalf("manager leaving approval: %v", err)
	}
}

func TestHistoryOrderedOldestFirst(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	unit := createUnit(t, eng)

	for i := 0; i < 3; i++ {
		if _, err := eng.Advance(ctx, unit.ID, manager, ""); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}

	history, err := eng.History(ctx, unit.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].EnteredAt.Before(history[i-1].EnteredAt) {
			t.Errorf("history out of order at %d", i)
		}
		if history[i-1].ExitedAt == nil {
			t.Errorf("entry %d should be closed", i-1)
		}
	}
	if !history[len(history)-1].Open() {
		t.Error("final entry should be open")
	}
}

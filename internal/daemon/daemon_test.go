package daemon_test

import (
	"context"
	"testing"

	"vinflow/internal/daemon"
	"vinflow/internal/engine"
	"vinflow/internal/ledger"
	"vinflow/internal/logging"
	"vinflow/internal/roles"
	"vinflow/internal/testsupport"
)

func TestDaemonStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second daemon start to fail while lock is held")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonStatusReportsStageCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	actor := engine.Actor{ID: "mgr-1", Name: "Recon Manager", Role: roles.ReconManager}
	if _, err := d.Engine().CreateUnit(context.Background(), ledger.NewUnit{StockNumber: "T1001"}, actor, ""); err != nil {
		t.Fatalf("CreateUnit: %v", err)
	}

	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.LedgerDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("expected populated paths, got %+v", status)
	}
	if status.StageCounts["appraisal"] != 1 {
		t.Fatalf("StageCounts = %v", status.StageCounts)
	}
}

func TestDaemonStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
	d.Stop()
}

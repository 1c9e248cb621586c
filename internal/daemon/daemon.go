package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vinflow/internal/changefeed"
	"vinflow/internal/config"
	"vinflow/internal/engine"
	"vinflow/internal/ledger"
	"vinflow/internal/logging"
	"vinflow/internal/notifications"
	"vinflow/internal/stages"
)

// agingSweepInterval is how often the daemon rescans the ledger for
// overdue and aging units.
const agingSweepInterval = 6 * time.Hour

// Daemon hosts the transition engine and its supporting services, and
// enforces single-instance execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *ledger.Store
	engine   *engine.Engine
	feed     *changefeed.Feed
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LedgerDBPath string
	LockFilePath string
	StageCounts  map[stages.Stage]int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	feed := changefeed.New(0)
	notifier := notifications.NewService(cfg)
	eng := engine.New(cfg, store, feed, notifier, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "vinflowd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		engine:   eng,
		feed:     feed,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Engine returns the transition engine backing this daemon.
func (d *Daemon) Engine() *engine.Engine {
	return d.engine
}

// Feed returns the ledger change feed.
func (d *Daemon) Feed() *changefeed.Feed {
	return d.feed
}

// Start acquires the daemon lock and launches the aging sweep.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vinflow daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.agingSweepLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("vinflow daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("vinflow daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports daemon runtime information. Stage counts are best
// effort; a ledger error leaves them nil.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LedgerDBPath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if counts, err := d.engine.StageCounts(ctx); err == nil {
		status.StageCounts = counts
	} else {
		d.logger.Warn("stage counts unavailable", logging.Error(err))
	}
	return status
}

// Health runs the ledger database diagnostics.
func (d *Daemon) Health(ctx context.Context) (ledger.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test message through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.notifier.TestNotification(ctx)
}

// agingSweepLoop periodically rescans the ledger and pushes a
// notification for every unit that is overdue or aging. The sweep is a
// safety net behind the per-transition checks, so its cadence is coarse.
func (d *Daemon) agingSweepLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(agingSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runAgingSweep(ctx)
		}
	}
}

func (d *Daemon) runAgingSweep(ctx context.Context) {
	alerts, err := d.engine.AgingAlerts(ctx)
	if err != nil {
		d.logger.Warn("aging sweep failed", logging.Error(err))
		return
	}
	if len(alerts) == 0 {
		return
	}
	d.logger.Info("aging sweep found units needing attention",
		logging.Int("count", len(alerts)))
	for _, alert := range alerts {
		if err := d.notifier.NotifyAging(ctx, alert.Unit.DisplayName(), alert.TotalDays); err != nil {
			d.logger.Warn("aging notification failed",
				logging.UnitID(alert.Unit.ID),
				logging.Error(err))
		}
	}
}

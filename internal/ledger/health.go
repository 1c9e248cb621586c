package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DatabaseHealth captures diagnostic information about the record store.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalUnits       int
	OpenEntries      int
	Error            string
}

// CheckHealth returns diagnostic information about the ledger database,
// including whether any unit violates the one-open-entry invariant.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("ledger database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat ledger database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("ledger database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("ledger database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping ledger database: %w", err)
	}
	health.DatabaseReadable = true

	expected := []string{"units", "stage_history", "notes", "parts_holds"}
	missing := make(map[string]struct{}, len(expected))
	for _, name := range expected {
		missing[name] = struct{}{}
	}
	rows, err := s.db.QueryContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("scan table name: %w", err)
		}
		if _, ok := missing[name]; ok {
			health.TablesPresent = append(health.TablesPresent, name)
			delete(missing, name)
		}
	}
	if err := rows.Err(); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("iterate tables: %w", err)
	}
	for name := range missing {
		health.MissingTables = append(health.MissingTables, name)
	}

	if len(health.MissingTables) == 0 {
		row := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM units")
		if err := row.Scan(&health.TotalUnits); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count units: %w", err)
		}

		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM stage_history WHERE exited_at IS NULL")
		if err := row.Scan(&health.OpenEntries); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count open entries: %w", err)
		}

		// Invariant check: no unit may hold more than one open entry.
		var violations int
		row = s.db.QueryRowContext(connCtx, `SELECT COUNT(*) FROM (
            SELECT unit_id FROM stage_history WHERE exited_at IS NULL GROUP BY unit_id HAVING COUNT(1) > 1
        )`)
		if err := row.Scan(&violations); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("check open entry invariant: %w", err)
		}
		if violations > 0 {
			health.Error = fmt.Sprintf("%d unit(s) hold multiple open ledger entries", violations)
			return health, errors.New(health.Error)
		}
	}

	row := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return health, nil
		}
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

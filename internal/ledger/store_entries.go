package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vinflow/internal/stages"
)

const entryColumns = "id, unit_id, stage, entered_at, exited_at, moved_by_id, moved_by_name"

// OpenEntry returns the unit's current open occupancy record, or nil when
// the unit has none.
func (s *Store) OpenEntry(ctx context.Context, unitID string) (*Entry, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+entryColumns+` FROM stage_history WHERE unit_id = ? AND exited_at IS NULL`,
		unitID,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	return entry, nil
}

// History returns the unit's full ledger ordered by entry time, oldest
// first.
func (s *Store) History(ctx context.Context, unitID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+entryColumns+` FROM stage_history WHERE unit_id = ? ORDER BY entered_at, rowid`,
		unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AppendEntry opens a new occupancy record. The one-open-entry invariant is
// enforced here: appending while the unit already has an open record fails
// with ErrOpenEntryExists even if the caller skipped the transition path.
func (s *Store) AppendEntry(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.EnteredAt.IsZero() {
		entry.EnteredAt = time.Now().UTC()
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return appendOpenEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return s.entryByID(ctx, entry.ID)
}

// CloseEntry stamps an exit time on an open entry. Closing a missing or
// already-closed entry fails with ErrEntryNotFound; double-close signals a
// concurrency bug upstream and is never absorbed.
func (s *Store) CloseEntry(ctx context.Context, entryID string, exitedAt time.Time) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE stage_history SET exited_at = ? WHERE id = ? AND exited_at IS NULL`,
		formatTime(exitedAt),
		entryID,
	)
	if err != nil {
		return fmt.Errorf("close entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("close entry %s: %w", entryID, ErrEntryNotFound)
	}
	return nil
}

// TransitionCommit describes one atomic stage move. ObservedRevision and
// ObservedEntryID pin the state the caller read; the commit succeeds only
// if both still hold, otherwise ErrConcurrentModification.
type TransitionCommit struct {
	UnitID           string
	ObservedRevision int64
	ObservedEntryID  string
	Target           stages.Stage
	At               time.Time
	Actor            Actor
}

// CommitTransition atomically closes the observed open entry, opens a new
// entry in the target stage, and advances the unit's stage pointer and
// revision. Either all three effects commit or none do.
func (s *Store) CommitTransition(ctx context.Context, commit TransitionCommit) (*Entry, error) {
	if commit.At.IsZero() {
		commit.At = time.Now().UTC()
	}
	newEntryID := uuid.NewString()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`UPDATE stage_history SET exited_at = ? WHERE id = ? AND unit_id = ? AND exited_at IS NULL`,
			formatTime(commit.At),
			commit.ObservedEntryID,
			commit.UnitID,
		)
		if err != nil {
			return fmt.Errorf("close open entry: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("unit %s: open entry changed: %w", commit.UnitID, ErrConcurrentModification)
		}

		if err := appendOpenEntry(ctx, tx, Entry{
			ID:          newEntryID,
			UnitID:      commit.UnitID,
			Stage:       commit.Target,
			EnteredAt:   commit.At,
			MovedByID:   commit.Actor.ID,
			MovedByName: commit.Actor.Name,
		}); err != nil {
			return err
		}

		res, err = tx.ExecContext(
			ctx,
			`UPDATE units SET current_stage = ?, revision = revision + 1, updated_at = ?
             WHERE id = ? AND revision = ?`,
			commit.Target,
			formatTime(commit.At),
			commit.UnitID,
			commit.ObservedRevision,
		)
		if err != nil {
			return fmt.Errorf("advance stage pointer: %w", err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("unit %s: revision changed: %w", commit.UnitID, ErrConcurrentModification)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.entryByID(ctx, newEntryID)
}

func appendOpenEntry(ctx context.Context, tx *sql.Tx, entry Entry) error {
	var open int
	if err := tx.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM stage_history WHERE unit_id = ? AND exited_at IS NULL`,
		entry.UnitID,
	).Scan(&open); err != nil {
		return fmt.Errorf("count open entries: %w", err)
	}
	if open > 0 {
		return fmt.Errorf("unit %s: %w", entry.UnitID, ErrOpenEntryExists)
	}

	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO stage_history (id, unit_id, stage, entered_at, exited_at, moved_by_id, moved_by_name)
         VALUES (?, ?, ?, ?, NULL, ?, ?)`,
		entry.ID,
		entry.UnitID,
		entry.Stage,
		formatTime(entry.EnteredAt),
		nullableString(entry.MovedByID),
		nullableString(entry.MovedByName),
	)
	if err != nil {
		// The partial unique index backstops the guard above across
		// concurrent transactions.
		if isUniqueViolation(err) {
			return fmt.Errorf("unit %s: %w", entry.UnitID, ErrOpenEntryExists)
		}
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

func (s *Store) entryByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+entryColumns+` FROM stage_history WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", id, ErrEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id          string
		unitID      string
		stage       string
		enteredRaw  string
		exitedRaw   sql.NullString
		movedByID   sql.NullString
		movedByName sql.NullString
	)

	if err := scanner.Scan(&id, &unitID, &stage, &enteredRaw, &exitedRaw, &movedByID, &movedByName); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:          id,
		UnitID:      unitID,
		Stage:       stages.Stage(stage),
		MovedByID:   movedByID.String,
		MovedByName: movedByName.String,
	}
	if entered, err := parseTimeString(enteredRaw); err == nil {
		entry.EnteredAt = entered
	}
	if exitedRaw.Valid {
		if exited, err := parseTimeString(exitedRaw.String); err == nil {
			entry.ExitedAt = &exited
		}
	}
	return entry, nil
}

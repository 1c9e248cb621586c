package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const noteColumns = "id, unit_id, category, body, created_by_id, created_by_name, created_at"

// AddNote appends an immutable audit note. Notes are never updated or
// deleted.
func (s *Store) AddNote(ctx context.Context, note Note) (*Note, error) {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	if note.Category == "" {
		note.Category = NotePlain
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertNote(ctx, tx, note)
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// NotesForUnit returns a unit's notes, newest first.
func (s *Store) NotesForUnit(ctx context.Context, unitID string) ([]*Note, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+noteColumns+` FROM notes WHERE unit_id = ? ORDER BY created_at DESC, rowid DESC`,
		unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("notes for unit: %w", err)
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		var (
			note       Note
			category   string
			byID       sql.NullString
			byName     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&note.ID, &note.UnitID, &category, &note.Body, &byID, &byName, &createdRaw); err != nil {
			return nil, err
		}
		note.Category = NoteCategory(category)
		note.CreatedByID = byID.String
		note.CreatedByName = byName.String
		if created, err := parseTimeString(createdRaw); err == nil {
			note.CreatedAt = created
		}
		notes = append(notes, &note)
	}
	return notes, rows.Err()
}

func insertNote(ctx context.Context, tx *sql.Tx, note Note) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO notes (id, unit_id, category, body, created_by_id, created_by_name, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.UnitID,
		note.Category,
		note.Body,
		nullableString(note.CreatedByID),
		nullableString(note.CreatedByName),
		formatTime(note.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

const partsHoldColumns = "id, unit_id, part_name, part_number, supplier, expected_at, ordered_by_id, ordered_by_name, created_at"

// AddPartsHold appends a parts-hold record for a unit.
func (s *Store) AddPartsHold(ctx context.Context, hold PartsHold) (*PartsHold, error) {
	if hold.ID == "" {
		hold.ID = uuid.NewString()
	}
	if hold.CreatedAt.IsZero() {
		hold.CreatedAt = time.Now().UTC()
	}

	var expected any
	if !hold.ExpectedAt.IsZero() {
		expected = formatTime(hold.ExpectedAt)
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO parts_holds (id, unit_id, part_name, part_number, supplier, expected_at, ordered_by_id, ordered_by_name, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		hold.ID,
		hold.UnitID,
		hold.PartName,
		nullableString(hold.PartNumber),
		nullableString(hold.Supplier),
		expected,
		nullableString(hold.OrderedByID),
		nullableString(hold.OrderedByName),
		formatTime(hold.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert parts hold: %w", err)
	}
	return &hold, nil
}

// PartsHoldsForUnit returns a unit's parts holds, newest first.
func (s *Store) PartsHoldsForUnit(ctx context.Context, unitID string) ([]*PartsHold, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+partsHoldColumns+` FROM parts_holds WHERE unit_id = ? ORDER BY created_at DESC, rowid DESC`,
		unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("parts holds for unit: %w", err)
	}
	defer rows.Close()

	var holds []*PartsHold
	for rows.Next() {
		var (
			hold        PartsHold
			partNumber  sql.NullString
			supplier    sql.NullString
			expectedRaw sql.NullString
			byID        sql.NullString
			byName      sql.NullString
			createdRaw  string
		)
		if err := rows.Scan(&hold.ID, &hold.UnitID, &hold.PartName, &partNumber, &supplier, &expectedRaw, &byID, &byName, &createdRaw); err != nil {
			return nil, err
		}
		hold.PartNumber = partNumber.String
		hold.Supplier = supplier.String
		hold.OrderedByID = byID.String
		hold.OrderedByName = byName.String
		if expectedRaw.Valid {
			if expected, err := parseTimeString(expectedRaw.String); err == nil {
				hold.ExpectedAt = expected
			}
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			hold.CreatedAt = created
		}
		holds = append(holds, &hold)
	}
	return holds, rows.Err()
}

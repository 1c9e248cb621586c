package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vinflow/internal/stages"
)

const unitColumns = "id, stock_number, vin, year, make, model, grade, service_location, priority, current_stage, estimated_cost, actual_cost, vendors_json, appraiser_id, appraiser_name, revision, created_at, updated_at"

// CreateUnit inserts a unit and opens its initial ledger entry in the first
// workflow stage as a single transaction. An optional initial note is
// recorded in the same commit so creation is all-or-nothing.
func (s *Store) CreateUnit(ctx context.Context, attrs NewUnit, actor Actor, initialNote string) (*Unit, error) {
	now := time.Now().UTC()
	unitID := uuid.NewString()

	vendorsJSON, err := marshalVendors(attrs.Vendors)
	if err != nil {
		return nil, fmt.Errorf("marshal vendors: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO units (
                id, stock_number, vin, year, make, model, grade, service_location,
                priority, current_stage, estimated_cost, actual_cost, vendors_json,
                appraiser_id, appraiser_name, revision, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			unitID,
			attrs.StockNumber,
			nullableString(attrs.VIN),
			attrs.Year,
			nullableString(attrs.Make),
			nullableString(attrs.Model),
			nullableString(string(attrs.Grade)),
			nullableString(attrs.ServiceLocation),
			PriorityNone,
			stages.First().ID,
			attrs.EstimatedCost,
			0.0,
			vendorsJSON,
			nullableString(actor.ID),
			nullableString(actor.Name),
			formatTime(now),
			formatTime(now),
		); err != nil {
			return fmt.Errorf("insert unit: %w", err)
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO stage_history (id, unit_id, stage, entered_at, exited_at, moved_by_id, moved_by_name)
             VALUES (?, ?, ?, ?, NULL, ?, ?)`,
			uuid.NewString(),
			unitID,
			stages.First().ID,
			formatTime(now),
			nullableString(actor.ID),
			nullableString(actor.Name),
		); err != nil {
			return fmt.Errorf("open initial entry: %w", err)
		}

		if body := initialNote; body != "" {
			if err := insertNote(ctx, tx, Note{
				ID:            uuid.NewString(),
				UnitID:        unitID,
				Category:      NotePlain,
				Body:          body,
				CreatedByID:   actor.ID,
				CreatedByName: actor.Name,
				CreatedAt:     now,
			}); err != nil {
				return fmt.Errorf("insert initial note: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetUnit(ctx, unitID)
}

// GetUnit fetches a unit by identifier. Returns nil when the unit does not
// exist.
func (s *Store) GetUnit(ctx context.Context, id string) (*Unit, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return unit, nil
}

// FindByStockNumber returns the first unit matching a stock number.
func (s *Store) FindByStockNumber(ctx context.Context, stockNumber string) (*Unit, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+unitColumns+` FROM units WHERE stock_number = ? ORDER BY created_at LIMIT 1`,
		stockNumber,
	)
	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by stock number: %w", err)
	}
	return unit, nil
}

// ListUnits returns all units ordered by creation time, oldest first.
func (s *Store) ListUnits(ctx context.Context) ([]*Unit, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+unitColumns+` FROM units ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()
	return collectUnits(rows)
}

// UnitsByStage returns units currently occupying a stage.
func (s *Store) UnitsByStage(ctx context.Context, stage stages.Stage) ([]*Unit, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+unitColumns+` FROM units WHERE current_stage = ? ORDER BY created_at, id`,
		stage,
	)
	if err != nil {
		return nil, fmt.Errorf("units by stage: %w", err)
	}
	defer rows.Close()
	return collectUnits(rows)
}

// StageCounts returns a count of units grouped by current stage.
func (s *Store) StageCounts(ctx context.Context) (map[stages.Stage]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT current_stage, COUNT(1) FROM units GROUP BY current_stage`)
	if err != nil {
		return nil, fmt.Errorf("stage counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[stages.Stage]int)
	for rows.Next() {
		var stage stages.Stage
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		counts[stage] = count
	}
	return counts, rows.Err()
}

// SetPriority updates a unit's priority flag. The revision bump makes any
// in-flight transition observing the old revision fail its commit.
func (s *Store) SetPriority(ctx context.Context, unitID string, priority Priority) (*Unit, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE units SET priority = ?, revision = revision + 1, updated_at = ? WHERE id = ?`,
		priority,
		formatTime(time.Now().UTC()),
		unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("set priority: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("set priority for %s: %w", unitID, ErrUnitNotFound)
	}
	return s.GetUnit(ctx, unitID)
}

// SetActualCost records the actual reconditioning spend for a unit.
func (s *Store) SetActualCost(ctx context.Context, unitID string, cost float64) (*Unit, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE units SET actual_cost = ?, revision = revision + 1, updated_at = ? WHERE id = ?`,
		cost,
		formatTime(time.Now().UTC()),
		unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("set actual cost: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("set actual cost for %s: %w", unitID, ErrUnitNotFound)
	}
	return s.GetUnit(ctx, unitID)
}

func collectUnits(rows *sql.Rows) ([]*Unit, error) {
	var units []*Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func scanUnit(scanner interface{ Scan(dest ...any) error }) (*Unit, error) {
	var (
		id              string
		stockNumber     string
		vin             sql.NullString
		year            sql.NullInt64
		makeName        sql.NullString
		model           sql.NullString
		grade           sql.NullString
		serviceLocation sql.NullString
		priorityStr     string
		currentStage    string
		estimatedCost   sql.NullFloat64
		actualCost      sql.NullFloat64
		vendorsJSON     sql.NullString
		appraiserID     sql.NullString
		appraiserName   sql.NullString
		revision        int64
		createdRaw      string
		updatedRaw      string
	)

	if err := scanner.Scan(
		&id,
		&stockNumber,
		&vin,
		&year,
		&makeName,
		&model,
		&grade,
		&serviceLocation,
		&priorityStr,
		&currentStage,
		&estimatedCost,
		&actualCost,
		&vendorsJSON,
		&appraiserID,
		&appraiserName,
		&revision,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	unit := &Unit{
		ID:              id,
		StockNumber:     stockNumber,
		VIN:             vin.String,
		Year:            int(year.Int64),
		Make:            makeName.String,
		Model:           model.String,
		Grade:           Grade(grade.String),
		ServiceLocation: serviceLocation.String,
		Priority:        Priority(priorityStr),
		CurrentStage:    stages.Stage(currentStage),
		EstimatedCost:   estimatedCost.Float64,
		ActualCost:      actualCost.Float64,
		AppraiserID:     appraiserID.String,
		AppraiserName:   appraiserName.String,
		Revision:        revision,
	}

	if vendorsJSON.Valid && vendorsJSON.String != "" {
		if err := json.Unmarshal([]byte(vendorsJSON.String), &unit.Vendors); err != nil {
			return nil, fmt.Errorf("unmarshal vendors: %w", err)
		}
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		unit.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		unit.UpdatedAt = updated
	}
	return unit, nil
}

func marshalVendors(vendors []string) (any, error) {
	if len(vendors) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(vendors)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

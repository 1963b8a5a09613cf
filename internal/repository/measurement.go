package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipex/server/internal/domain/measurement"
)

const (
	measurementColumns = `id, user_id, taken_at, kind, note,
		systolic, diastolic, bpm, respirations, nrs, spo2, hgt, degrees, chl_level`

	getMeasurementSQL = `SELECT ` + measurementColumns + `
		FROM measurements WHERE user_id = $1 AND id = $2`

	insertMeasurementSQL = `INSERT INTO measurements
		(user_id, taken_at, kind, note, systolic, diastolic, bpm, respirations, nrs, spo2, hgt, degrees, chl_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	updateMeasurementSQL = `UPDATE measurements
		SET note = $3, systolic = $4, diastolic = $5, bpm = $6, respirations = $7,
			nrs = $8, spo2 = $9, hgt = $10, degrees = $11, chl_level = $12
		WHERE user_id = $1 AND id = $2`

	deleteMeasurementSQL = `DELETE FROM measurements WHERE user_id = $1 AND id = $2`
)

var _ measurement.Repository = (*MeasurementRepository)(nil)

// MeasurementRepository implements measurement.Repository backed by
// PostgreSQL.
type MeasurementRepository struct {
	pool *pgxpool.Pool
}

// NewMeasurementRepository returns a MeasurementRepository that uses the
// given pool.
func NewMeasurementRepository(pool *pgxpool.Pool) *MeasurementRepository {
	return &MeasurementRepository{pool: pool}
}

// Create inserts a measurement and returns its id.
func (r *MeasurementRepository) Create(ctx context.Context, m *measurement.Measurement) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertMeasurementSQL,
		m.UserID, m.TakenAt, m.Kind, m.Note,
		m.Systolic, m.Diastolic, m.BPM, m.Respirations, m.NRS,
		m.SpO2, m.HGT, m.Degrees, m.CHLLevel,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting measurement: %w", err)
	}
	return id, nil
}

// GetByID returns a measurement scoped by owner.
func (r *MeasurementRepository) GetByID(ctx context.Context, userID, id int64) (*measurement.Measurement, error) {
	rows, err := r.pool.Query(ctx, getMeasurementSQL, userID, id)
	if err != nil {
		return nil, fmt.Errorf("getting measurement %d: %w", id, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanMeasurement)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, measurement.ErrNotFound
		}
		return nil, fmt.Errorf("getting measurement %d: %w", id, err)
	}
	return &m, nil
}

// List returns a user's measurements newest first, narrowed by the filter.
func (r *MeasurementRepository) List(ctx context.Context, userID int64, f measurement.Filter) ([]measurement.Measurement, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + measurementColumns + ` FROM measurements WHERE user_id = $1`)
	args := []any{userID}

	if f.Kind != nil {
		args = append(args, *f.Kind)
		fmt.Fprintf(&sb, " AND kind = $%d", len(args))
	}
	if f.After != nil {
		args = append(args, *f.After)
		fmt.Fprintf(&sb, " AND taken_at > $%d", len(args))
	}
	sb.WriteString(" ORDER BY taken_at DESC, id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing measurements of %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanMeasurement)
}

// Update overwrites the note and value columns of a measurement.
func (r *MeasurementRepository) Update(ctx context.Context, m *measurement.Measurement) error {
	_, err := r.pool.Exec(ctx, updateMeasurementSQL,
		m.UserID, m.ID, m.Note,
		m.Systolic, m.Diastolic, m.BPM, m.Respirations, m.NRS,
		m.SpO2, m.HGT, m.Degrees, m.CHLLevel,
	)
	if err != nil {
		return fmt.Errorf("updating measurement %d: %w", m.ID, err)
	}
	return nil
}

// Delete removes a measurement scoped by owner.
func (r *MeasurementRepository) Delete(ctx context.Context, userID, id int64) error {
	_, err := r.pool.Exec(ctx, deleteMeasurementSQL, userID, id)
	if err != nil {
		return fmt.Errorf("deleting measurement %d: %w", id, err)
	}
	return nil
}

func scanMeasurement(row pgx.CollectableRow) (measurement.Measurement, error) {
	var m measurement.Measurement
	err := row.Scan(
		&m.ID, &m.UserID, &m.TakenAt, &m.Kind, &m.Note,
		&m.Systolic, &m.Diastolic, &m.BPM, &m.Respirations, &m.NRS,
		&m.SpO2, &m.HGT, &m.Degrees, &m.CHLLevel,
	)
	return m, err
}

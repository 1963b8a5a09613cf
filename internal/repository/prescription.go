package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipex/server/internal/domain/prescription"
)

const (
	insertIngredientSQL = `INSERT INTO active_ingredients (name) VALUES ($1) RETURNING id`

	getIngredientSQL = `SELECT id, name FROM active_ingredients WHERE id = $1`

	findIngredientByNameSQL = `SELECT id, name FROM active_ingredients WHERE name = $1`

	listIngredientsSQL = `SELECT id, name FROM active_ingredients ORDER BY name`

	deleteIngredientSQL = `DELETE FROM active_ingredients WHERE id = $1`

	prescriptionColumns = `id, user_id, name, ingredient_id, ingredient_name, kind,
		dose, units, quantity, recipe, pil, caregiver_id, seen, created_at`

	getPrescriptionSQL = `SELECT ` + prescriptionColumns + `
		FROM prescriptions WHERE user_id = $1 AND id = $2`

	insertPrescriptionSQL = `INSERT INTO prescriptions
		(user_id, name, ingredient_id, ingredient_name, kind, dose, units, quantity, recipe, pil, caregiver_id, seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	listPrescriptionsSQL = `SELECT ` + prescriptionColumns + `
		FROM prescriptions WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	listUnseenPrescriptionsSQL = `SELECT ` + prescriptionColumns + `
		FROM prescriptions WHERE user_id = $1 AND seen = FALSE ORDER BY created_at DESC, id DESC`

	markPrescriptionSeenSQL = `UPDATE prescriptions SET seen = TRUE WHERE id = $1`

	markAllPrescriptionsSeenSQL = `UPDATE prescriptions SET seen = TRUE
		WHERE user_id = $1 AND seen = FALSE`

	deletePrescriptionSQL = `DELETE FROM prescriptions WHERE user_id = $1 AND id = $2`

	countUnseenPrescriptionsSQL = `SELECT count(*) FROM prescriptions
		WHERE user_id = $1 AND seen = FALSE`
)

var _ prescription.Repository = (*PrescriptionRepository)(nil)

// PrescriptionRepository implements prescription.Repository backed by
// PostgreSQL.
type PrescriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPrescriptionRepository returns a PrescriptionRepository that uses the
// given pool.
func NewPrescriptionRepository(pool *pgxpool.Pool) *PrescriptionRepository {
	return &PrescriptionRepository{pool: pool}
}

// CreateIngredient inserts a catalog entry and returns its id.
func (r *PrescriptionRepository) CreateIngredient(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, insertIngredientSQL, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("inserting ingredient: %w", err)
	}
	return id, nil
}

// GetIngredient returns a catalog entry by id.
func (r *PrescriptionRepository) GetIngredient(ctx context.Context, id int64) (*prescription.Ingredient, error) {
	rows, err := r.pool.Query(ctx, getIngredientSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting ingredient %d: %w", id, err)
	}

	ing, err := pgx.CollectExactlyOneRow(rows, scanIngredient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, prescription.ErrIngredientNotFound
		}
		return nil, fmt.Errorf("getting ingredient %d: %w", id, err)
	}
	return &ing, nil
}

// FindIngredientByName returns a catalog entry by its unique name.
func (r *PrescriptionRepository) FindIngredientByName(ctx context.Context, name string) (*prescription.Ingredient, error) {
	rows, err := r.pool.Query(ctx, findIngredientByNameSQL, name)
	if err != nil {
		return nil, fmt.Errorf("finding ingredient by name: %w", err)
	}

	ing, err := pgx.CollectExactlyOneRow(rows, scanIngredient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, prescription.ErrIngredientNotFound
		}
		return nil, fmt.Errorf("finding ingredient by name: %w", err)
	}
	return &ing, nil
}

// ListIngredients returns the whole catalog ordered by name.
func (r *PrescriptionRepository) ListIngredients(ctx context.Context) ([]prescription.Ingredient, error) {
	rows, err := r.pool.Query(ctx, listIngredientsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing ingredients: %w", err)
	}
	return pgx.CollectRows(rows, scanIngredient)
}

// DeleteIngredient removes a catalog entry. Entries still referenced by
// prescriptions fail with ErrIngredientInUse.
func (r *PrescriptionRepository) DeleteIngredient(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, deleteIngredientSQL, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return prescription.ErrIngredientInUse
		}
		return fmt.Errorf("deleting ingredient %d: %w", id, err)
	}
	return nil
}

// Create inserts a prescription and returns its id.
func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertPrescriptionSQL,
		p.UserID, p.Name, p.IngredientID, p.IngredientName, p.Kind,
		p.Dose, p.Units, p.Quantity, p.Recipe, p.PIL, p.CaregiverID, p.Seen,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting prescription: %w", err)
	}
	return id, nil
}

// GetByID returns a prescription scoped by owner.
func (r *PrescriptionRepository) GetByID(ctx context.Context, userID, id int64) (*prescription.Prescription, error) {
	rows, err := r.pool.Query(ctx, getPrescriptionSQL, userID, id)
	if err != nil {
		return nil, fmt.Errorf("getting prescription %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPrescription)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, prescription.ErrNotFound
		}
		return nil, fmt.Errorf("getting prescription %d: %w", id, err)
	}
	return &p, nil
}

// ListByUser returns a user's prescriptions, newest first.
func (r *PrescriptionRepository) ListByUser(ctx context.Context, userID int64, unseenOnly bool) ([]prescription.Prescription, error) {
	sql := listPrescriptionsSQL
	if unseenOnly {
		sql = listUnseenPrescriptionsSQL
	}
	rows, err := r.pool.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions of %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanPrescription)
}

// MarkSeen flags a single prescription as seen.
func (r *PrescriptionRepository) MarkSeen(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, markPrescriptionSeenSQL, id)
	if err != nil {
		return fmt.Errorf("marking prescription %d seen: %w", id, err)
	}
	return nil
}

// MarkAllSeen flags every unseen prescription of a user as seen.
func (r *PrescriptionRepository) MarkAllSeen(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, markAllPrescriptionsSeenSQL, userID)
	if err != nil {
		return fmt.Errorf("marking prescriptions seen of %d: %w", userID, err)
	}
	return nil
}

// Delete removes a prescription scoped by owner.
func (r *PrescriptionRepository) Delete(ctx context.Context, userID, id int64) error {
	_, err := r.pool.Exec(ctx, deletePrescriptionSQL, userID, id)
	if err != nil {
		return fmt.Errorf("deleting prescription %d: %w", id, err)
	}
	return nil
}

// CountUnseen returns how many unseen prescriptions a user has.
func (r *PrescriptionRepository) CountUnseen(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, countUnseenPrescriptionsSQL, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting unseen prescriptions of %d: %w", userID, err)
	}
	return count, nil
}

func scanIngredient(row pgx.CollectableRow) (prescription.Ingredient, error) {
	var ing prescription.Ingredient
	err := row.Scan(&ing.ID, &ing.Name)
	return ing, err
}

func scanPrescription(row pgx.CollectableRow) (prescription.Prescription, error) {
	var p prescription.Prescription
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.IngredientID, &p.IngredientName, &p.Kind,
		&p.Dose, &p.Units, &p.Quantity, &p.Recipe, &p.PIL, &p.CaregiverID,
		&p.Seen, &p.CreatedAt,
	)
	return p, err
}

package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipex/server/internal/domain/user"
)

const (
	userColumns = `id, email, name, surname, birth, pic, sex, city, address, personal_num,
		pc_physician_id, visiting_nurse_id`

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	insertUserSQL = `INSERT INTO users (email, name, surname, birth, pic, sex, city, address, personal_num)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	updateUserSQL = `UPDATE users
		SET name = $2, surname = $3, birth = $4, pic = $5, sex = $6,
			city = $7, address = $8, personal_num = $9
		WHERE id = $1`

	deleteUserSQL = `DELETE FROM users WHERE id = $1`

	summaryColumns = `u.id, u.name, u.surname, u.email, u.pic, cg.field`

	summaryFromSQL = ` FROM users u
		LEFT JOIN caregiver_profiles cg ON cg.user_id = u.id`

	listUsersSQL = `SELECT ` + summaryColumns + summaryFromSQL + ` ORDER BY u.surname, u.name, u.id`

	getSummarySQL = `SELECT ` + summaryColumns + summaryFromSQL + ` WHERE u.id = $1`

	listRelativesSQL = `SELECT ` + summaryColumns + summaryFromSQL + `
		JOIN user_relatives r ON r.relative_id = u.id
		WHERE r.user_id = $1 ORDER BY u.surname, u.name, u.id`

	listCaregiversSQL = `SELECT ` + summaryColumns + summaryFromSQL + `
		JOIN patient_caregivers pc ON pc.caregiver_id = u.id
		WHERE pc.patient_id = $1 ORDER BY u.surname, u.name, u.id`

	// A caregiver's patients are the union of explicit links and physician /
	// nurse assignments.
	listPatientsSQL = `SELECT ` + summaryColumns + summaryFromSQL + `
		WHERE u.id IN (
			SELECT patient_id FROM patient_caregivers WHERE caregiver_id = $1
			UNION
			SELECT id FROM users WHERE pc_physician_id = $1
			UNION
			SELECT id FROM users WHERE visiting_nurse_id = $1
		) ORDER BY u.surname, u.name, u.id`

	hasPatientSQL = `SELECT EXISTS (
		SELECT 1 FROM patient_caregivers WHERE caregiver_id = $1 AND patient_id = $2
		UNION
		SELECT 1 FROM users WHERE id = $2 AND (pc_physician_id = $1 OR visiting_nurse_id = $1)
	)`

	getCaregiverSQL = `SELECT user_id, field, years_exp, place, business_num, bio, available
		FROM caregiver_profiles WHERE user_id = $1`

	upsertCaregiverSQL = `INSERT INTO caregiver_profiles (user_id, field, years_exp, place, business_num, bio, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET field = EXCLUDED.field, years_exp = EXCLUDED.years_exp, place = EXCLUDED.place,
			business_num = EXCLUDED.business_num, bio = EXCLUDED.bio, available = EXCLUDED.available`

	addRelativeSQL = `INSERT INTO user_relatives (user_id, relative_id)
		VALUES ($1, $2), ($2, $1) ON CONFLICT DO NOTHING`

	removeRelativeSQL = `DELETE FROM user_relatives
		WHERE (user_id = $1 AND relative_id = $2) OR (user_id = $2 AND relative_id = $1)`

	areRelativesSQL = `SELECT EXISTS (
		SELECT 1 FROM user_relatives WHERE user_id = $1 AND relative_id = $2)`

	addCaregiverSQL = `INSERT INTO patient_caregivers (patient_id, caregiver_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	removeCaregiverSQL = `DELETE FROM patient_caregivers
		WHERE patient_id = $1 AND caregiver_id = $2`

	hasCaregiverSQL = `SELECT EXISTS (
		SELECT 1 FROM patient_caregivers WHERE patient_id = $1 AND caregiver_id = $2)`

	setPCPhysicianSQL = `UPDATE users SET pc_physician_id = $2 WHERE id = $1`

	setVisitingNurseSQL = `UPDATE users SET visiting_nurse_id = $2 WHERE id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a user and, when cg is non-nil, their caregiver profile in
// one transaction.
func (r *UserRepository) Create(ctx context.Context, u *user.User, cg *user.CaregiverProfile) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertUserSQL,
			u.Email, u.Name, u.Surname, u.Birth, u.Pic, u.Sex,
			u.City, u.Address, u.PersonalNum,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("inserting user: %w", err)
		}

		if cg != nil {
			if _, err := tx.Exec(ctx, upsertCaregiverSQL,
				id, cg.Field, cg.YearsExp, cg.Place, cg.BusinessNum, cg.Bio, cg.Available,
			); err != nil {
				return fmt.Errorf("inserting caregiver profile: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByID returns a single user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return &u, nil
}

// FindByEmail returns the user registered with the given email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &u, nil
}

// List returns summaries of all users ordered by name.
func (r *UserRepository) List(ctx context.Context) ([]user.Summary, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return pgx.CollectRows(rows, scanSummary)
}

// Update overwrites the mutable columns of a user row.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, updateUserSQL,
		u.ID, u.Name, u.Surname, u.Birth, u.Pic, u.Sex,
		u.City, u.Address, u.PersonalNum,
	)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	return nil
}

// Delete removes a user row. Measurements, messages, requests,
// prescriptions, relation links, and the caregiver profile go with it via
// ON DELETE CASCADE; physician and nurse assignments pointing at the user
// are set to NULL.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, deleteUserSQL, id)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	return nil
}

// GetCaregiver returns the caregiver profile of a user, or nil when the
// user has none.
func (r *UserRepository) GetCaregiver(ctx context.Context, userID int64) (*user.CaregiverProfile, error) {
	rows, err := r.pool.Query(ctx, getCaregiverSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting caregiver profile %d: %w", userID, err)
	}

	cg, err := pgx.CollectExactlyOneRow(rows, scanCaregiver)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting caregiver profile %d: %w", userID, err)
	}
	return &cg, nil
}

// UpsertCaregiver inserts or updates a caregiver profile.
func (r *UserRepository) UpsertCaregiver(ctx context.Context, cg *user.CaregiverProfile) error {
	_, err := r.pool.Exec(ctx, upsertCaregiverSQL,
		cg.UserID, cg.Field, cg.YearsExp, cg.Place, cg.BusinessNum, cg.Bio, cg.Available,
	)
	if err != nil {
		return fmt.Errorf("upserting caregiver profile %d: %w", cg.UserID, err)
	}
	return nil
}

// SummaryByID returns the compact representation of a single user.
func (r *UserRepository) SummaryByID(ctx context.Context, id int64) (*user.Summary, error) {
	rows, err := r.pool.Query(ctx, getSummarySQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting user summary %d: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSummary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user summary %d: %w", id, err)
	}
	return &s, nil
}

// Relatives returns summaries of the user's relatives.
func (r *UserRepository) Relatives(ctx context.Context, userID int64) ([]user.Summary, error) {
	rows, err := r.pool.Query(ctx, listRelativesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing relatives of %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanSummary)
}

// Caregivers returns summaries of the user's explicitly linked caregivers.
func (r *UserRepository) Caregivers(ctx context.Context, userID int64) ([]user.Summary, error) {
	rows, err := r.pool.Query(ctx, listCaregiversSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing caregivers of %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanSummary)
}

// Patients returns summaries of everyone the caregiver is responsible for.
func (r *UserRepository) Patients(ctx context.Context, caregiverID int64) ([]user.Summary, error) {
	rows, err := r.pool.Query(ctx, listPatientsSQL, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("listing patients of %d: %w", caregiverID, err)
	}
	return pgx.CollectRows(rows, scanSummary)
}

// AddRelative links two users as relatives, symmetrically.
func (r *UserRepository) AddRelative(ctx context.Context, userID, relativeID int64) error {
	_, err := r.pool.Exec(ctx, addRelativeSQL, userID, relativeID)
	if err != nil {
		return fmt.Errorf("adding relative link %d<->%d: %w", userID, relativeID, err)
	}
	return nil
}

// RemoveRelative removes the relative link between two users, both
// directions.
func (r *UserRepository) RemoveRelative(ctx context.Context, userID, relativeID int64) error {
	_, err := r.pool.Exec(ctx, removeRelativeSQL, userID, relativeID)
	if err != nil {
		return fmt.Errorf("removing relative link %d<->%d: %w", userID, relativeID, err)
	}
	return nil
}

// AreRelatives reports whether two users are linked as relatives.
func (r *UserRepository) AreRelatives(ctx context.Context, userID, relativeID int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, areRelativesSQL, userID, relativeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking relative link %d<->%d: %w", userID, relativeID, err)
	}
	return exists, nil
}

// AddCaregiver links a caregiver to a patient.
func (r *UserRepository) AddCaregiver(ctx context.Context, patientID, caregiverID int64) error {
	_, err := r.pool.Exec(ctx, addCaregiverSQL, patientID, caregiverID)
	if err != nil {
		return fmt.Errorf("adding caregiver link %d->%d: %w", caregiverID, patientID, err)
	}
	return nil
}

// RemoveCaregiver removes the explicit caregiver link between a patient and
// a caregiver.
func (r *UserRepository) RemoveCaregiver(ctx context.Context, patientID, caregiverID int64) error {
	_, err := r.pool.Exec(ctx, removeCaregiverSQL, patientID, caregiverID)
	if err != nil {
		return fmt.Errorf("removing caregiver link %d->%d: %w", caregiverID, patientID, err)
	}
	return nil
}

// HasCaregiver reports whether the caregiver is explicitly linked to the
// patient.
func (r *UserRepository) HasCaregiver(ctx context.Context, patientID, caregiverID int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, hasCaregiverSQL, patientID, caregiverID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking caregiver link %d->%d: %w", caregiverID, patientID, err)
	}
	return exists, nil
}

// HasPatient reports whether the patient is in the caregiver's derived
// patient set: explicit link, physician assignment, or nurse assignment.
func (r *UserRepository) HasPatient(ctx context.Context, caregiverID, patientID int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, hasPatientSQL, caregiverID, patientID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking patient link %d->%d: %w", caregiverID, patientID, err)
	}
	return exists, nil
}

// SetPCPhysician assigns or clears the primary-care physician of a patient.
func (r *UserRepository) SetPCPhysician(ctx context.Context, patientID int64, caregiverID *int64) error {
	_, err := r.pool.Exec(ctx, setPCPhysicianSQL, patientID, caregiverID)
	if err != nil {
		return fmt.Errorf("setting pc physician of %d: %w", patientID, err)
	}
	return nil
}

// SetVisitingNurse assigns or clears the visiting nurse of a patient.
func (r *UserRepository) SetVisitingNurse(ctx context.Context, patientID int64, caregiverID *int64) error {
	_, err := r.pool.Exec(ctx, setVisitingNurseSQL, patientID, caregiverID)
	if err != nil {
		return fmt.Errorf("setting visiting nurse of %d: %w", patientID, err)
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Surname, &u.Birth, &u.Pic, &u.Sex,
		&u.City, &u.Address, &u.PersonalNum,
		&u.PCPhysicianID, &u.VisitingNurseID,
	)
	return u, err
}

func scanSummary(row pgx.CollectableRow) (user.Summary, error) {
	var s user.Summary
	err := row.Scan(&s.ID, &s.Name, &s.Surname, &s.Email, &s.Pic, &s.Field)
	return s, err
}

func scanCaregiver(row pgx.CollectableRow) (user.CaregiverProfile, error) {
	var cg user.CaregiverProfile
	err := row.Scan(
		&cg.UserID, &cg.Field, &cg.YearsExp, &cg.Place,
		&cg.BusinessNum, &cg.Bio, &cg.Available,
	)
	return cg, err
}

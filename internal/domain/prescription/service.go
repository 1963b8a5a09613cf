package prescription

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/recipex/server/internal/domain/user"
)

// Sentinel errors for prescription operations.
var (
	// ErrNotFound is returned when a prescription does not exist for the
	// given owner.
	ErrNotFound = fmt.Errorf("prescription not found")
	// ErrIngredientNotFound is returned when a referenced active ingredient
	// does not exist.
	ErrIngredientNotFound = fmt.Errorf("active ingredient not found")
	// ErrIngredientExists is returned when adding an ingredient whose name
	// is already in the catalog.
	ErrIngredientExists = fmt.Errorf("active ingredient already exists")
	// ErrIngredientInUse is returned when deleting an ingredient that is
	// still referenced by prescriptions.
	ErrIngredientInUse = fmt.Errorf("active ingredient is referenced by existing prescriptions")
	// ErrInvalidDose is returned when dose or quantity is not positive.
	ErrInvalidDose = fmt.Errorf("dose and quantity must be greater than 0")
	// ErrNotPatient is returned when the prescribing caregiver is not
	// linked to the user as caregiver, physician, or nurse.
	ErrNotPatient = fmt.Errorf("user is not a patient of the prescribing caregiver")
)

// UnknownKindError indicates an unsupported prescription kind.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown prescription kind %q", e.Kind)
}

// AddRequest holds the input for adding a prescription.
type AddRequest struct {
	UserID       int64
	Name         string
	IngredientID int64
	Kind         Kind
	Dose         int
	Units        string
	Quantity     int
	Recipe       bool
	PIL          *string
	CaregiverID  *int64
}

// Detail is a prescription joined with its prescriber summary and the role
// the prescriber holds toward the patient.
type Detail struct {
	Prescription
	Prescriber *user.Summary
	Job        *Job
}

// Service encapsulates prescription and ingredient-catalog business logic.
type Service struct {
	prescriptions Repository
	users         user.Repository
}

// NewService creates a prescription Service with the required dependencies.
func NewService(prescriptions Repository, users user.Repository) *Service {
	return &Service{
		prescriptions: prescriptions,
		users:         users,
	}
}

// AddIngredient adds a name to the active-ingredient catalog. Duplicate
// names are rejected.
func (s *Service) AddIngredient(ctx context.Context, name string) (int64, error) {
	existing, err := s.prescriptions.FindIngredientByName(ctx, name)
	if err != nil && !isNotFound(err) {
		return 0, fmt.Errorf("check existing ingredient: %w", err)
	}
	if existing != nil {
		return 0, ErrIngredientExists
	}

	id, err := s.prescriptions.CreateIngredient(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("create ingredient: %w", err)
	}
	return id, nil
}

// GetIngredient returns a catalog entry by id.
func (s *Service) GetIngredient(ctx context.Context, id int64) (*Ingredient, error) {
	return s.prescriptions.GetIngredient(ctx, id)
}

// ListIngredients returns the whole catalog.
func (s *Service) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	return s.prescriptions.ListIngredients(ctx)
}

// DeleteIngredient removes a catalog entry.
func (s *Service) DeleteIngredient(ctx context.Context, id int64) error {
	if _, err := s.prescriptions.GetIngredient(ctx, id); err != nil {
		return err
	}
	return s.prescriptions.DeleteIngredient(ctx, id)
}

// Add validates and stores a prescription. Caregiver-issued prescriptions
// require the caregiver to have a profile and the user to be their patient,
// and start out unseen.
func (s *Service) Add(ctx context.Context, req AddRequest) (int64, error) {
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return 0, err
	}
	if !req.Kind.Valid() {
		return 0, &UnknownKindError{Kind: req.Kind}
	}
	if req.Dose <= 0 || req.Quantity <= 0 {
		return 0, ErrInvalidDose
	}

	ingredient, err := s.prescriptions.GetIngredient(ctx, req.IngredientID)
	if err != nil {
		return 0, err
	}

	seen := true
	if req.CaregiverID != nil {
		cg, err := s.users.GetCaregiver(ctx, *req.CaregiverID)
		if err != nil {
			return 0, fmt.Errorf("get caregiver profile %d: %w", *req.CaregiverID, err)
		}
		if cg == nil {
			return 0, user.ErrNotCaregiver
		}
		isPatient, err := s.users.HasPatient(ctx, *req.CaregiverID, req.UserID)
		if err != nil {
			return 0, fmt.Errorf("check patient link: %w", err)
		}
		if !isPatient {
			return 0, ErrNotPatient
		}
		seen = false
	}

	id, err := s.prescriptions.Create(ctx, &Prescription{
		UserID:         req.UserID,
		Name:           req.Name,
		IngredientID:   ingredient.ID,
		IngredientName: ingredient.Name,
		Kind:           req.Kind,
		Dose:           req.Dose,
		Units:          req.Units,
		Quantity:       req.Quantity,
		Recipe:         req.Recipe,
		PIL:            req.PIL,
		CaregiverID:    req.CaregiverID,
		Seen:           seen,
	})
	if err != nil {
		return 0, fmt.Errorf("create prescription: %w", err)
	}
	return id, nil
}

// List returns every prescription of a user with prescriber details, and
// marks the unseen ones as seen.
func (s *Service) List(ctx context.Context, userID int64) ([]Detail, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	prescriptions, err := s.prescriptions.ListByUser(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions of %d: %w", userID, err)
	}
	if err := s.prescriptions.MarkAllSeen(ctx, userID); err != nil {
		return nil, fmt.Errorf("mark prescriptions seen of %d: %w", userID, err)
	}
	return s.resolve(ctx, u, prescriptions)
}

// Unseen returns the unseen prescriptions of a user without marking them.
func (s *Service) Unseen(ctx context.Context, userID int64) ([]Detail, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	prescriptions, err := s.prescriptions.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("list unseen prescriptions of %d: %w", userID, err)
	}
	return s.resolve(ctx, u, prescriptions)
}

// Get returns a single prescription with prescriber details and marks it
// seen.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Detail, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := s.prescriptions.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !p.Seen {
		if err := s.prescriptions.MarkSeen(ctx, id); err != nil {
			return nil, fmt.Errorf("mark prescription %d seen: %w", id, err)
		}
		p.Seen = true
	}

	details, err := s.resolve(ctx, u, []Prescription{*p})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Delete removes a prescription owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.prescriptions.GetByID(ctx, userID, id); err != nil {
		return err
	}
	return s.prescriptions.Delete(ctx, userID, id)
}

// CountUnseen returns how many unseen prescriptions a user has.
func (s *Service) CountUnseen(ctx context.Context, userID int64) (int64, error) {
	return s.prescriptions.CountUnseen(ctx, userID)
}

// resolve joins prescriptions with their prescriber summaries and derives
// the prescriber's job toward the patient from the stored assignments.
func (s *Service) resolve(ctx context.Context, patient *user.User, prescriptions []Prescription) ([]Detail, error) {
	details := make([]Detail, len(prescriptions))
	summaries := make(map[int64]*user.Summary)

	for i, p := range prescriptions {
		details[i] = Detail{Prescription: p}
		if p.CaregiverID == nil {
			continue
		}

		summary, ok := summaries[*p.CaregiverID]
		if !ok {
			var err error
			summary, err = s.users.SummaryByID(ctx, *p.CaregiverID)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("get prescriber %d: %w", *p.CaregiverID, err)
			}
			summaries[*p.CaregiverID] = summary
		}

		job := JobCaregiver
		switch {
		case patient.PCPhysicianID != nil && *patient.PCPhysicianID == *p.CaregiverID:
			job = JobPCPhysician
		case patient.VisitingNurseID != nil && *patient.VisitingNurseID == *p.CaregiverID:
			job = JobVisitingNurse
		}

		details[i].Prescriber = summary
		details[i].Job = &job
	}

	return details, nil
}

// isNotFound reports whether err is one of the domain not-found sentinels.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrIngredientNotFound) ||
		errors.Is(err, user.ErrNotFound)
}

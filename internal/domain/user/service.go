package user

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for user operations.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrFieldRequired is returned when caregiver extras are supplied without
	// the mandatory professional field.
	ErrFieldRequired = errors.New("caregiver field is required")
	// ErrNotCaregiver is returned when caregiver extras are supplied for a
	// user without a caregiver profile.
	ErrNotCaregiver = errors.New("user is not a caregiver")
)

// AlreadyRegisteredError indicates a registration attempt with an email that
// is already taken. It carries the existing user so callers can return the
// stored profile alongside the failure.
type AlreadyRegisteredError struct {
	Existing *User
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("user %d already registered with email %s", e.Existing.ID, e.Existing.Email)
}

// RegisterRequest holds the input for registering a user. The caregiver
// extras create a caregiver profile when Field is set.
type RegisterRequest struct {
	Email       string
	Name        string
	Surname     string
	Birth       time.Time
	Pic         string
	Sex         string
	City        *string
	Address     *string
	PersonalNum *string

	Field       *string
	YearsExp    *int
	Place       *string
	BusinessNum *string
	Bio         *string
	Available   *string
}

func (r *RegisterRequest) hasCaregiverExtras() bool {
	return r.YearsExp != nil || r.Place != nil || r.BusinessNum != nil ||
		r.Bio != nil || r.Available != nil
}

// UpdateRequest holds a partial user update. Nil pointers leave the stored
// value untouched; empty strings clear optional fields.
type UpdateRequest struct {
	ID          int64
	Name        *string
	Surname     *string
	Birth       *time.Time
	Pic         *string
	Sex         *string
	City        *string
	Address     *string
	PersonalNum *string

	Field       *string
	YearsExp    *int
	Place       *string
	BusinessNum *string
	Bio         *string
	Available   *string
}

func (r *UpdateRequest) hasCaregiverExtras() bool {
	return r.Field != nil || r.YearsExp != nil || r.Place != nil ||
		r.BusinessNum != nil || r.Bio != nil || r.Available != nil
}

// Service encapsulates account management business logic.
type Service struct {
	users Repository
}

// NewService creates a user Service backed by the given repository.
func NewService(users Repository) *Service {
	return &Service{users: users}
}

// Register creates a user and, when a professional field is supplied, a
// caregiver profile. Registering an already-taken email fails with
// AlreadyRegisteredError carrying the stored user.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (int64, error) {
	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("check existing email: %w", err)
	}
	if existing != nil {
		return 0, &AlreadyRegisteredError{Existing: existing}
	}

	if req.Field == nil && req.hasCaregiverExtras() {
		return 0, ErrFieldRequired
	}

	u := &User{
		Email:       req.Email,
		Name:        req.Name,
		Surname:     req.Surname,
		Birth:       req.Birth,
		Pic:         req.Pic,
		Sex:         req.Sex,
		City:        req.City,
		Address:     req.Address,
		PersonalNum: req.PersonalNum,
	}

	var cg *CaregiverProfile
	if req.Field != nil {
		cg = &CaregiverProfile{
			Field:       *req.Field,
			YearsExp:    req.YearsExp,
			Place:       req.Place,
			BusinessNum: req.BusinessNum,
			Bio:         req.Bio,
			Available:   req.Available,
		}
	}

	id, err := s.users.Create(ctx, u, cg)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// Update applies a partial update to a user and their caregiver profile.
// Caregiver extras on a user without a profile fail with ErrNotCaregiver.
func (s *Service) Update(ctx context.Context, req UpdateRequest) error {
	u, err := s.users.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}

	applyString(&u.Name, req.Name)
	applyString(&u.Surname, req.Surname)
	applyString(&u.Pic, req.Pic)
	applyString(&u.Sex, req.Sex)
	if req.Birth != nil {
		u.Birth = *req.Birth
	}
	applyOptional(&u.City, req.City)
	applyOptional(&u.Address, req.Address)
	applyOptional(&u.PersonalNum, req.PersonalNum)

	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("update user %d: %w", req.ID, err)
	}

	if !req.hasCaregiverExtras() {
		return nil
	}

	cg, err := s.users.GetCaregiver(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("get caregiver profile %d: %w", req.ID, err)
	}
	if cg == nil {
		return ErrNotCaregiver
	}

	if req.Field != nil {
		if *req.Field == "" {
			return ErrFieldRequired
		}
		cg.Field = *req.Field
	}
	if req.YearsExp != nil {
		cg.YearsExp = req.YearsExp
	}
	applyOptional(&cg.Place, req.Place)
	applyOptional(&cg.BusinessNum, req.BusinessNum)
	applyOptional(&cg.Bio, req.Bio)
	applyOptional(&cg.Available, req.Available)

	if err := s.users.UpsertCaregiver(ctx, cg); err != nil {
		return fmt.Errorf("update caregiver profile %d: %w", req.ID, err)
	}
	return nil
}

// Get assembles the full profile of a user: caregiver extras, assigned
// physician and nurse, relatives, caregivers, and (for caregivers) patients.
func (s *Service) Get(ctx context.Context, id int64) (*Profile, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &Profile{User: *u}

	p.Caregiver, err = s.users.GetCaregiver(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get caregiver profile %d: %w", id, err)
	}

	if u.PCPhysicianID != nil {
		p.PCPhysician, err = s.users.SummaryByID(ctx, *u.PCPhysicianID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("get pc physician %d: %w", *u.PCPhysicianID, err)
		}
	}
	if u.VisitingNurseID != nil {
		p.VisitingNurse, err = s.users.SummaryByID(ctx, *u.VisitingNurseID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("get visiting nurse %d: %w", *u.VisitingNurseID, err)
		}
	}

	if p.Relatives, err = s.users.Relatives(ctx, id); err != nil {
		return nil, fmt.Errorf("list relatives of %d: %w", id, err)
	}
	if p.Caregivers, err = s.users.Caregivers(ctx, id); err != nil {
		return nil, fmt.Errorf("list caregivers of %d: %w", id, err)
	}
	if p.Caregiver != nil {
		if p.Patients, err = s.users.Patients(ctx, id); err != nil {
			return nil, fmt.Errorf("list patients of %d: %w", id, err)
		}
	}

	return p, nil
}

// Summary returns the compact representation of a single user.
func (s *Service) Summary(ctx context.Context, id int64) (*Summary, error) {
	return s.users.SummaryByID(ctx, id)
}

// List returns summaries of all registered users.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.users.List(ctx)
}

// Delete removes a user and everything hanging off them: measurements,
// messages, requests, prescriptions, relation links, and the caregiver
// profile. Assignments pointing at the user as physician or nurse are
// cleared.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// applyString overwrites dst when src is set. Empty strings are applied as-is
// for required fields.
func applyString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

// applyOptional overwrites dst when src is set; an empty string clears the
// stored value.
func applyOptional(dst **string, src *string) {
	if src == nil {
		return
	}
	if *src == "" {
		*dst = nil
		return
	}
	*dst = src
}

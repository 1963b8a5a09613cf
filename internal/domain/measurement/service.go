package measurement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/recipex/server/internal/domain/user"
)

// Sentinel errors for measurement validation.
var (
	// ErrNotFound is returned when a measurement does not exist for the
	// given owner.
	ErrNotFound = fmt.Errorf("measurement not found")
	// ErrKindMismatch is returned when an update names a kind different from
	// the stored one.
	ErrKindMismatch = fmt.Errorf("measurement kind does not match")
)

// UnknownKindError indicates an unsupported measurement kind.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown measurement kind %q", e.Kind)
}

// MissingValueError indicates a value required by the measurement kind was
// not provided.
type MissingValueError struct {
	Field string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// OutOfRangeError indicates a provided value lies outside its medical range.
type OutOfRangeError struct {
	Field string
	Min   string
	Max   string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s must be between %s and %s", e.Field, e.Min, e.Max)
}

// AddRequest holds the input for recording a measurement.
type AddRequest struct {
	UserID int64
	Kind   Kind
	Note   *string

	Systolic     *int
	Diastolic    *int
	BPM          *int
	Respirations *int
	NRS          *int
	SpO2         *decimal.Decimal
	HGT          *decimal.Decimal
	Degrees      *decimal.Decimal
	CHLLevel     *decimal.Decimal
}

// UpdateRequest holds a partial measurement update. The kind must match the
// stored measurement; nil values keep the stored ones.
type UpdateRequest struct {
	UserID int64
	ID     int64
	Kind   Kind
	Note   *string

	Systolic     *int
	Diastolic    *int
	BPM          *int
	Respirations *int
	NRS          *int
	SpO2         *decimal.Decimal
	HGT          *decimal.Decimal
	Degrees      *decimal.Decimal
	CHLLevel     *decimal.Decimal
}

// Service encapsulates vital-sign recording business logic.
type Service struct {
	measurements Repository
	users        user.Repository
}

// NewService creates a measurement Service with the required dependencies.
func NewService(measurements Repository, users user.Repository) *Service {
	return &Service{
		measurements: measurements,
		users:        users,
	}
}

// Add validates and records a measurement for a user. The taken-at timestamp
// is assigned server-side in UTC.
func (s *Service) Add(ctx context.Context, req AddRequest) (int64, error) {
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return 0, err
	}
	if !req.Kind.Valid() {
		return 0, &UnknownKindError{Kind: req.Kind}
	}

	m := &Measurement{
		UserID:       req.UserID,
		TakenAt:      time.Now().UTC(),
		Kind:         req.Kind,
		Note:         req.Note,
		Systolic:     req.Systolic,
		Diastolic:    req.Diastolic,
		BPM:          req.BPM,
		Respirations: req.Respirations,
		NRS:          req.NRS,
		SpO2:         req.SpO2,
		HGT:          req.HGT,
		Degrees:      req.Degrees,
		CHLLevel:     req.CHLLevel,
	}
	if err := validateValues(m, true); err != nil {
		return 0, err
	}

	id, err := s.measurements.Create(ctx, m)
	if err != nil {
		return 0, fmt.Errorf("create measurement: %w", err)
	}
	return id, nil
}

// Get returns a single measurement owned by userID.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Measurement, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.measurements.GetByID(ctx, userID, id)
}

// List returns a user's measurements, newest first, narrowed by the filter.
func (s *Service) List(ctx context.Context, userID int64, f Filter) ([]Measurement, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if f.Kind != nil && !f.Kind.Valid() {
		return nil, &UnknownKindError{Kind: *f.Kind}
	}
	return s.measurements.List(ctx, userID, f)
}

// Update applies a partial update to a measurement. The request kind must
// match the stored kind and every provided value is range-checked.
func (s *Service) Update(ctx context.Context, req UpdateRequest) error {
	m, err := s.measurements.GetByID(ctx, req.UserID, req.ID)
	if err != nil {
		return err
	}
	if req.Kind != m.Kind {
		return ErrKindMismatch
	}

	if req.Note != nil {
		m.Note = req.Note
	}
	applyInt(&m.Systolic, req.Systolic)
	applyInt(&m.Diastolic, req.Diastolic)
	applyInt(&m.BPM, req.BPM)
	applyInt(&m.Respirations, req.Respirations)
	applyInt(&m.NRS, req.NRS)
	applyDecimal(&m.SpO2, req.SpO2)
	applyDecimal(&m.HGT, req.HGT)
	applyDecimal(&m.Degrees, req.Degrees)
	applyDecimal(&m.CHLLevel, req.CHLLevel)

	if err := validateValues(m, false); err != nil {
		return err
	}

	if err := s.measurements.Update(ctx, m); err != nil {
		return fmt.Errorf("update measurement %d: %w", req.ID, err)
	}
	return nil
}

// Delete removes a measurement owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.measurements.GetByID(ctx, userID, id); err != nil {
		return err
	}
	return s.measurements.Delete(ctx, userID, id)
}

func applyInt(dst **int, src *int) {
	if src != nil {
		*dst = src
	}
}

func applyDecimal(dst **decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = src
	}
}

// validateValues checks that the value fields required by the measurement
// kind are present (when required) and within their medical ranges.
func validateValues(m *Measurement, required bool) error {
	switch m.Kind {
	case KindBloodPressure:
		if err := checkInt("systolic", m.Systolic, 0, 250, required); err != nil {
			return err
		}
		return checkInt("diastolic", m.Diastolic, 0, 250, required)
	case KindHeartRate:
		return checkInt("bpm", m.BPM, 0, 400, required)
	case KindRespiratoryRate:
		return checkInt("respirations", m.Respirations, 0, 200, required)
	case KindOxygenSat:
		return checkDecimal("spo2", m.SpO2, 0, 100, required)
	case KindGlucose:
		return checkDecimal("hgt", m.HGT, 0, 600, required)
	case KindTemperature:
		return checkDecimal("degrees", m.Degrees, 30, 45, required)
	case KindPain:
		return checkInt("nrs", m.NRS, 0, 10, required)
	case KindCholesterol:
		return checkDecimal("chl_level", m.CHLLevel, 0, 800, required)
	default:
		return &UnknownKindError{Kind: m.Kind}
	}
}

func checkInt(field string, v *int, min, max int, required bool) error {
	if v == nil {
		if required {
			return &MissingValueError{Field: field}
		}
		return nil
	}
	if *v < min || *v > max {
		return &OutOfRangeError{
			Field: field,
			Min:   fmt.Sprintf("%d", min),
			Max:   fmt.Sprintf("%d", max),
		}
	}
	return nil
}

func checkDecimal(field string, v *decimal.Decimal, min, max int64, required bool) error {
	if v == nil {
		if required {
			return &MissingValueError{Field: field}
		}
		return nil
	}
	if v.LessThan(decimal.NewFromInt(min)) || v.GreaterThan(decimal.NewFromInt(max)) {
		return &OutOfRangeError{
			Field: field,
			Min:   decimal.NewFromInt(min).String(),
			Max:   decimal.NewFromInt(max).String(),
		}
	}
	return nil
}

// Package prescription models the active-ingredient catalog and the
// prescriptions issued against it, either self-recorded or prescribed by a
// caregiver.
package prescription

import (
	"context"
	"time"
)

// Ingredient is an entry in the global active-ingredient catalog.
type Ingredient struct {
	ID   int64
	Name string
}

// Kind identifies the pharmaceutical form of a prescription.
type Kind string

const (
	KindPill   Kind = "PILL"
	KindSachet Kind = "SACHET"
	KindVial   Kind = "VIAL"
	KindCream  Kind = "CREAM"
	KindOther  Kind = "OTHER"
)

// Kinds lists every supported prescription kind.
var Kinds = []Kind{KindPill, KindSachet, KindVial, KindCream, KindOther}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Job names the role a prescribing caregiver holds toward the patient.
type Job string

const (
	JobPCPhysician   Job = "PC_PHYSICIAN"
	JobVisitingNurse Job = "V_NURSE"
	JobCaregiver     Job = "CAREGIVER"
)

// Prescription is a medication prescribed to a user. IngredientName is
// denormalized from the catalog at creation time so later catalog edits do
// not rewrite history. Seen starts false when a caregiver prescribes.
type Prescription struct {
	ID             int64
	UserID         int64
	Name           string
	IngredientID   int64
	IngredientName string
	Kind           Kind
	Dose           int
	Units          string
	Quantity       int
	Recipe         bool
	PIL            *string
	CaregiverID    *int64
	Seen           bool
	CreatedAt      time.Time
}

// Repository defines persistence for the ingredient catalog and
// prescriptions. Prescription lookups are scoped by owner.
type Repository interface {
	CreateIngredient(ctx context.Context, name string) (int64, error)
	GetIngredient(ctx context.Context, id int64) (*Ingredient, error)
	FindIngredientByName(ctx context.Context, name string) (*Ingredient, error)
	ListIngredients(ctx context.Context) ([]Ingredient, error)
	DeleteIngredient(ctx context.Context, id int64) error

	Create(ctx context.Context, p *Prescription) (int64, error)
	GetByID(ctx context.Context, userID, id int64) (*Prescription, error)
	ListByUser(ctx context.Context, userID int64, unseenOnly bool) ([]Prescription, error)
	MarkSeen(ctx context.Context, id int64) error
	MarkAllSeen(ctx context.Context, userID int64) error
	Delete(ctx context.Context, userID, id int64) error
	CountUnseen(ctx context.Context, userID int64) (int64, error)
}

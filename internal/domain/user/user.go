// Package user holds the account and caregiver-profile model shared by the
// rest of the domain: every measurement, message, request, and prescription
// hangs off a user.
package user

import (
	"context"
	"time"
)

// User is a registered account. PCPhysicianID and VisitingNurseID point at
// caregiver users assigned to this user as a patient.
type User struct {
	ID              int64
	Email           string
	Name            string
	Surname         string
	Birth           time.Time
	Pic             string
	Sex             string
	City            *string
	Address         *string
	PersonalNum     *string
	PCPhysicianID   *int64
	VisitingNurseID *int64
}

// CaregiverProfile is the optional professional extension of a user. Only
// users with a profile can be assigned as caregiver, primary-care physician,
// or visiting nurse.
type CaregiverProfile struct {
	UserID      int64
	Field       string
	YearsExp    *int
	Place       *string
	BusinessNum *string
	Bio         *string
	Available   *string
}

// Summary is the compact user representation embedded in lists and relation
// payloads. Field is set when the user has a caregiver profile.
type Summary struct {
	ID      int64
	Name    string
	Surname string
	Email   string
	Pic     string
	Field   *string
}

// Profile is the full view of a single user: base fields, caregiver extras,
// and every relation resolved to summaries.
type Profile struct {
	User          User
	Caregiver     *CaregiverProfile
	PCPhysician   *Summary
	VisitingNurse *Summary
	Relatives     []Summary
	Caregivers    []Summary
	Patients      []Summary
}

// Repository defines persistence for users, caregiver profiles, and the
// relation links between them. A caregiver's patient set is derived as the
// union of explicit caregiver links and pc-physician / visiting-nurse
// assignments, so there is no separate patients table to keep in sync.
type Repository interface {
	Create(ctx context.Context, u *User, cg *CaregiverProfile) (int64, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]Summary, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error

	GetCaregiver(ctx context.Context, userID int64) (*CaregiverProfile, error)
	UpsertCaregiver(ctx context.Context, cg *CaregiverProfile) error

	SummaryByID(ctx context.Context, id int64) (*Summary, error)
	Relatives(ctx context.Context, userID int64) ([]Summary, error)
	Caregivers(ctx context.Context, userID int64) ([]Summary, error)
	Patients(ctx context.Context, caregiverID int64) ([]Summary, error)

	AddRelative(ctx context.Context, userID, relativeID int64) error
	RemoveRelative(ctx context.Context, userID, relativeID int64) error
	AreRelatives(ctx context.Context, userID, relativeID int64) (bool, error)

	AddCaregiver(ctx context.Context, patientID, caregiverID int64) error
	RemoveCaregiver(ctx context.Context, patientID, caregiverID int64) error
	HasCaregiver(ctx context.Context, patientID, caregiverID int64) (bool, error)
	HasPatient(ctx context.Context, caregiverID, patientID int64) (bool, error)

	SetPCPhysician(ctx context.Context, patientID int64, caregiverID *int64) error
	SetVisitingNurse(ctx context.Context, patientID int64, caregiverID *int64) error
}

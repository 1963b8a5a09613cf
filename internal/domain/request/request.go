// Package request models relation requests: one user asking another to
// become a relative, caregiver, primary-care physician, or visiting nurse.
// Accepting a request wires the corresponding relation links; either outcome
// removes the request.
package request

import (
	"context"
	"time"
)

// Kind identifies the relation being requested.
type Kind string

const (
	KindRelative      Kind = "RELATIVE"
	KindCaregiver     Kind = "CAREGIVER"
	KindPCPhysician   Kind = "PC_PHYSICIAN"
	KindVisitingNurse Kind = "V_NURSE"
)

// Kinds lists every supported request kind.
var Kinds = []Kind{KindRelative, KindCaregiver, KindPCPhysician, KindVisitingNurse}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsCaregiving reports whether the kind involves a caregiver side.
func (k Kind) IsCaregiving() bool {
	return k == KindCaregiver || k == KindPCPhysician || k == KindVisitingNurse
}

// Role states which side of a caregiving relation the sender is on.
type Role string

const (
	RolePatient   Role = "PATIENT"
	RoleCaregiver Role = "CAREGIVER"
)

// Valid reports whether r is a supported role.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleCaregiver
}

// Request is a pending or delivered relation request. For caregiving kinds
// CaregiverID names the caregiver side of the pair and SenderRole records
// which side the sender is on. CalendarID is opaque client data returned to
// the sender when the request is accepted.
type Request struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Kind       Kind
	SenderRole *Role
	// CaregiverID is the user acting as caregiver in a caregiving request.
	CaregiverID *int64
	Pending     bool
	Message     *string
	CalendarID  *string
	CreatedAt   time.Time
}

// Repository defines persistence for relation requests.
type Repository interface {
	Create(ctx context.Context, r *Request) (int64, error)
	GetByID(ctx context.Context, id int64) (*Request, error)
	// Exists reports whether a request of the given kind exists from sender
	// to receiver, pending or not.
	Exists(ctx context.Context, senderID, receiverID int64, kind Kind) (bool, error)
	ListByReceiver(ctx context.Context, receiverID int64, kind *Kind) ([]Request, error)
	ListBySender(ctx context.Context, senderID int64, kind *Kind) ([]Request, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkAllDelivered(ctx context.Context, receiverID int64, kind *Kind) error
	Delete(ctx context.Context, id int64) error
	CountPending(ctx context.Context, receiverID int64) (int64, error)
}

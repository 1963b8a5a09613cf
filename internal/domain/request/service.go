package request

import (
	"context"
	"fmt"

	"github.com/recipex/server/internal/domain/user"
)

// Sentinel errors for relation request operations.
var (
	// ErrNotFound is returned when a request does not exist for the given
	// receiver.
	ErrNotFound = fmt.Errorf("request not found")
	// ErrSelfRequest is returned when sender and receiver are the same user.
	ErrSelfRequest = fmt.Errorf("sender and receiver are the same user")
	// ErrDuplicate is returned when a request of the same kind already
	// exists between the two users, in either direction.
	ErrDuplicate = fmt.Errorf("request already exists between these users")
	// ErrAlreadyRelated is returned when the requested relation is already
	// established.
	ErrAlreadyRelated = fmt.Errorf("relation already exists")
	// ErrRoleRequired is returned when a caregiving request does not state
	// which side the sender is on.
	ErrRoleRequired = fmt.Errorf("sender role is required for caregiving requests")
	// ErrNotSender is returned when a withdraw is attempted by a user other
	// than the original sender.
	ErrNotSender = fmt.Errorf("user is not the request sender")
	// ErrNotRelated is returned when an unlink names a relation that does
	// not exist.
	ErrNotRelated = fmt.Errorf("relation does not exist")
)

// UnknownKindError indicates an unsupported request kind.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown request kind %q", e.Kind)
}

// SendRequest holds the input for sending a relation request.
type SendRequest struct {
	SenderID   int64
	ReceiverID int64
	Kind       Kind
	Role       *Role
	Message    *string
	CalendarID *string
}

// UnlinkRequest holds the input for removing an established relation.
// OtherID names the user on the far side; Role states which side of a
// caregiving relation the caller is on.
type UnlinkRequest struct {
	UserID  int64
	OtherID int64
	Kind    Kind
	Role    *Role
}

// Relations summarizes how another user relates to the viewer: established
// links plus outstanding requests of each kind in either direction.
type Relations struct {
	IsRelative      bool
	IsCaregiver     bool
	IsPatient       bool
	IsPCPhysician   bool
	IsVisitingNurse bool

	RelativeRequest      bool
	CaregiverRequest     bool
	PCPhysicianRequest   bool
	VisitingNurseRequest bool
}

// Service encapsulates the relation request state machine: sending with
// duplicate and role checks, answering by wiring relation links, and
// unlinking established relations.
type Service struct {
	requests Repository
	users    user.Repository
}

// NewService creates a request Service with the required dependencies.
func NewService(requests Repository, users user.Repository) *Service {
	return &Service{
		requests: requests,
		users:    users,
	}
}

// Send validates and stores a relation request. Duplicates in either
// direction and already-established relations are rejected; caregiving
// kinds require a sender role and a caregiver profile on the caregiver side.
func (s *Service) Send(ctx context.Context, req SendRequest) (int64, error) {
	if req.SenderID == req.ReceiverID {
		return 0, ErrSelfRequest
	}
	if !req.Kind.Valid() {
		return 0, &UnknownKindError{Kind: req.Kind}
	}
	if _, err := s.users.GetByID(ctx, req.SenderID); err != nil {
		return 0, err
	}
	receiver, err := s.users.GetByID(ctx, req.ReceiverID)
	if err != nil {
		return 0, err
	}

	for _, pair := range [][2]int64{
		{req.SenderID, req.ReceiverID},
		{req.ReceiverID, req.SenderID},
	} {
		exists, err := s.requests.Exists(ctx, pair[0], pair[1], req.Kind)
		if err != nil {
			return 0, fmt.Errorf("check duplicate request: %w", err)
		}
		if exists {
			return 0, ErrDuplicate
		}
	}

	r := &Request{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Kind:       req.Kind,
		Pending:    true,
		Message:    req.Message,
		CalendarID: req.CalendarID,
	}

	switch {
	case req.Kind == KindRelative:
		related, err := s.users.AreRelatives(ctx, req.SenderID, req.ReceiverID)
		if err != nil {
			return 0, fmt.Errorf("check relatives: %w", err)
		}
		if related {
			return 0, ErrAlreadyRelated
		}

	case req.Kind.IsCaregiving():
		if req.Role == nil || !req.Role.Valid() {
			return 0, ErrRoleRequired
		}

		caregiverID, patientID := req.ReceiverID, req.SenderID
		if *req.Role == RoleCaregiver {
			caregiverID, patientID = req.SenderID, req.ReceiverID
		}

		cg, err := s.users.GetCaregiver(ctx, caregiverID)
		if err != nil {
			return 0, fmt.Errorf("get caregiver profile %d: %w", caregiverID, err)
		}
		if cg == nil {
			return 0, user.ErrNotCaregiver
		}

		patient := receiver
		if patientID == req.SenderID {
			if patient, err = s.users.GetByID(ctx, patientID); err != nil {
				return 0, err
			}
		}

		switch req.Kind {
		case KindCaregiver:
			has, err := s.users.HasCaregiver(ctx, patientID, caregiverID)
			if err != nil {
				return 0, fmt.Errorf("check caregiver link: %w", err)
			}
			if has {
				return 0, ErrAlreadyRelated
			}
		case KindPCPhysician:
			if patient.PCPhysicianID != nil && *patient.PCPhysicianID == caregiverID {
				return 0, ErrAlreadyRelated
			}
		case KindVisitingNurse:
			if patient.VisitingNurseID != nil && *patient.VisitingNurseID == caregiverID {
				return 0, ErrAlreadyRelated
			}
		}

		r.SenderRole = req.Role
		r.CaregiverID = &caregiverID
	}

	id, err := s.requests.Create(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	return id, nil
}

// Received returns the requests addressed to a user, optionally narrowed by
// kind, and marks the returned ones as delivered.
func (s *Service) Received(ctx context.Context, userID int64, kind *Kind) ([]Request, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if kind != nil && !kind.Valid() {
		return nil, &UnknownKindError{Kind: *kind}
	}

	reqs, err := s.requests.ListByReceiver(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list requests of %d: %w", userID, err)
	}
	if err := s.requests.MarkAllDelivered(ctx, userID, kind); err != nil {
		return nil, fmt.Errorf("mark requests delivered of %d: %w", userID, err)
	}
	return reqs, nil
}

// Sent returns the requests a user has sent, optionally narrowed by kind.
// No delivery state changes.
func (s *Service) Sent(ctx context.Context, userID int64, kind *Kind) ([]Request, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if kind != nil && !kind.Valid() {
		return nil, &UnknownKindError{Kind: *kind}
	}
	return s.requests.ListBySender(ctx, userID, kind)
}

// Get returns a single request addressed to userID and marks it delivered.
// Requests addressed to someone else behave as missing.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Request, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ReceiverID != userID {
		return nil, ErrNotFound
	}
	if r.Pending {
		if err := s.requests.MarkDelivered(ctx, id); err != nil {
			return nil, fmt.Errorf("mark request %d delivered: %w", id, err)
		}
		r.Pending = false
	}
	return r, nil
}

// Answer resolves a request addressed to userID. Accepting wires the
// corresponding relation links; either way the request is removed. The
// stored calendar id is returned for the client to clean up the shared
// calendar created at send time.
func (s *Service) Answer(ctx context.Context, userID, id int64, accept bool) (*string, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ReceiverID != userID {
		return nil, ErrNotFound
	}

	if accept {
		if err := s.establish(ctx, r); err != nil {
			return nil, err
		}
	}

	if err := s.requests.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete request %d: %w", id, err)
	}
	return r.CalendarID, nil
}

// establish wires the relation links for an accepted request.
func (s *Service) establish(ctx context.Context, r *Request) error {
	if r.Kind == KindRelative {
		if err := s.users.AddRelative(ctx, r.SenderID, r.ReceiverID); err != nil {
			return fmt.Errorf("add relative link: %w", err)
		}
		return nil
	}

	if r.CaregiverID == nil {
		return fmt.Errorf("caregiving request %d has no caregiver", r.ID)
	}
	caregiverID := *r.CaregiverID
	patientID := r.SenderID
	if patientID == caregiverID {
		patientID = r.ReceiverID
	}

	switch r.Kind {
	case KindCaregiver:
		if err := s.users.AddCaregiver(ctx, patientID, caregiverID); err != nil {
			return fmt.Errorf("add caregiver link: %w", err)
		}
	case KindPCPhysician:
		if err := s.users.SetPCPhysician(ctx, patientID, &caregiverID); err != nil {
			return fmt.Errorf("assign pc physician: %w", err)
		}
	case KindVisitingNurse:
		if err := s.users.SetVisitingNurse(ctx, patientID, &caregiverID); err != nil {
			return fmt.Errorf("assign visiting nurse: %w", err)
		}
	default:
		return &UnknownKindError{Kind: r.Kind}
	}
	return nil
}

// Withdraw removes a request before it is answered. The caller must be the
// sender and userID the receiver.
func (s *Service) Withdraw(ctx context.Context, userID, id, senderID int64) error {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if r.ReceiverID != userID {
		return ErrNotFound
	}
	if r.SenderID != senderID {
		return ErrNotSender
	}
	return s.requests.Delete(ctx, id)
}

// Unlink removes an established relation between the caller and another
// user. With the patient set derived from the remaining links, removing a
// caregiver role keeps the patient link alive exactly while another role
// still holds it.
func (s *Service) Unlink(ctx context.Context, req UnlinkRequest) error {
	if !req.Kind.Valid() {
		return &UnknownKindError{Kind: req.Kind}
	}
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, req.OtherID); err != nil {
		return err
	}

	if req.Kind == KindRelative {
		related, err := s.users.AreRelatives(ctx, req.UserID, req.OtherID)
		if err != nil {
			return fmt.Errorf("check relatives: %w", err)
		}
		if !related {
			return ErrNotRelated
		}
		if err := s.users.RemoveRelative(ctx, req.UserID, req.OtherID); err != nil {
			return fmt.Errorf("remove relative link: %w", err)
		}
		return nil
	}

	if req.Role == nil || !req.Role.Valid() {
		return ErrRoleRequired
	}
	caregiverID, patientID := req.OtherID, req.UserID
	if *req.Role == RoleCaregiver {
		caregiverID, patientID = req.UserID, req.OtherID
	}

	switch req.Kind {
	case KindCaregiver:
		has, err := s.users.HasCaregiver(ctx, patientID, caregiverID)
		if err != nil {
			return fmt.Errorf("check caregiver link: %w", err)
		}
		if !has {
			return ErrNotRelated
		}
		if err := s.users.RemoveCaregiver(ctx, patientID, caregiverID); err != nil {
			return fmt.Errorf("remove caregiver link: %w", err)
		}
	case KindPCPhysician:
		patient, err := s.users.GetByID(ctx, patientID)
		if err != nil {
			return err
		}
		if patient.PCPhysicianID == nil || *patient.PCPhysicianID != caregiverID {
			return ErrNotRelated
		}
		if err := s.users.SetPCPhysician(ctx, patientID, nil); err != nil {
			return fmt.Errorf("clear pc physician: %w", err)
		}
	case KindVisitingNurse:
		patient, err := s.users.GetByID(ctx, patientID)
		if err != nil {
			return err
		}
		if patient.VisitingNurseID == nil || *patient.VisitingNurseID != caregiverID {
			return ErrNotRelated
		}
		if err := s.users.SetVisitingNurse(ctx, patientID, nil); err != nil {
			return fmt.Errorf("clear visiting nurse: %w", err)
		}
	}
	return nil
}

// RelationSummary reports how otherID relates to userID: established links
// of each kind plus outstanding requests in either direction.
func (s *Service) RelationSummary(ctx context.Context, userID, otherID int64) (*Relations, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return nil, err
	}

	rel := &Relations{}

	if rel.IsRelative, err = s.users.AreRelatives(ctx, userID, otherID); err != nil {
		return nil, fmt.Errorf("check relatives: %w", err)
	}
	if rel.IsCaregiver, err = s.users.HasCaregiver(ctx, userID, otherID); err != nil {
		return nil, fmt.Errorf("check caregiver link: %w", err)
	}
	if rel.IsPatient, err = s.users.HasPatient(ctx, userID, otherID); err != nil {
		return nil, fmt.Errorf("check patient link: %w", err)
	}
	rel.IsPCPhysician = u.PCPhysicianID != nil && *u.PCPhysicianID == otherID
	rel.IsVisitingNurse = u.VisitingNurseID != nil && *u.VisitingNurseID == otherID

	kinds := []struct {
		kind Kind
		flag *bool
	}{
		{KindRelative, &rel.RelativeRequest},
		{KindCaregiver, &rel.CaregiverRequest},
		{KindPCPhysician, &rel.PCPhysicianRequest},
		{KindVisitingNurse, &rel.VisitingNurseRequest},
	}
	for _, k := range kinds {
		out, err := s.requests.Exists(ctx, userID, otherID, k.kind)
		if err != nil {
			return nil, fmt.Errorf("check outgoing %s request: %w", k.kind, err)
		}
		in, err := s.requests.Exists(ctx, otherID, userID, k.kind)
		if err != nil {
			return nil, fmt.Errorf("check incoming %s request: %w", k.kind, err)
		}
		*k.flag = out || in
	}

	return rel, nil
}

// CountPending returns how many undelivered requests a user has received.
func (s *Service) CountPending(ctx context.Context, receiverID int64) (int64, error) {
	return s.requests.CountPending(ctx, receiverID)
}

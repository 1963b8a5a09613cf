package message

import (
	"context"
	"fmt"

	"github.com/recipex/server/internal/domain/measurement"
	"github.com/recipex/server/internal/domain/user"
)

// Sentinel errors for message operations.
var (
	// ErrNotFound is returned when a requested message does not exist.
	ErrNotFound = fmt.Errorf("message not found")
	// ErrNotReceiver is returned when a user other than the receiver tries
	// to read, mark, or delete a message.
	ErrNotReceiver = fmt.Errorf("user is not the message receiver")
	// ErrSelfMessage is returned when sender and receiver are the same user.
	ErrSelfMessage = fmt.Errorf("sender and receiver are the same user")
)

// SendRequest holds the input for sending a message. MeasurementID, when
// set, must reference a measurement owned by the receiver.
type SendRequest struct {
	SenderID      int64
	ReceiverID    int64
	Body          string
	MeasurementID *int64
}

// Service encapsulates messaging business logic.
type Service struct {
	messages     Repository
	users        user.Repository
	measurements measurement.Repository
}

// NewService creates a message Service with the required dependencies.
func NewService(messages Repository, users user.Repository, measurements measurement.Repository) *Service {
	return &Service{
		messages:     messages,
		users:        users,
		measurements: measurements,
	}
}

// Send delivers a message from sender to receiver. Both users and any
// referenced measurement must exist.
func (s *Service) Send(ctx context.Context, req SendRequest) (int64, error) {
	if req.SenderID == req.ReceiverID {
		return 0, ErrSelfMessage
	}
	if _, err := s.users.GetByID(ctx, req.SenderID); err != nil {
		return 0, err
	}
	if _, err := s.users.GetByID(ctx, req.ReceiverID); err != nil {
		return 0, err
	}
	if req.MeasurementID != nil {
		if _, err := s.measurements.GetByID(ctx, req.ReceiverID, *req.MeasurementID); err != nil {
			return 0, err
		}
	}

	id, err := s.messages.Create(ctx, &Message{
		SenderID:      req.SenderID,
		ReceiverID:    req.ReceiverID,
		Body:          req.Body,
		MeasurementID: req.MeasurementID,
	})
	if err != nil {
		return 0, fmt.Errorf("create message: %w", err)
	}
	return id, nil
}

// Inbox returns every message received by a user and marks the unread ones
// as read.
func (s *Service) Inbox(ctx context.Context, receiverID int64) ([]Message, error) {
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByReceiver(ctx, receiverID, false)
	if err != nil {
		return nil, fmt.Errorf("list messages of %d: %w", receiverID, err)
	}
	if err := s.messages.MarkAllRead(ctx, receiverID); err != nil {
		return nil, fmt.Errorf("mark messages read of %d: %w", receiverID, err)
	}
	return msgs, nil
}

// Unread returns the unread messages of a user without marking them read.
func (s *Service) Unread(ctx context.Context, receiverID int64) ([]Message, error) {
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}
	return s.messages.ListByReceiver(ctx, receiverID, true)
}

// Get returns a single message and marks it read. Only the receiver may
// retrieve a message.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.ReceiverID != userID {
		return nil, ErrNotReceiver
	}
	if !m.Read {
		if err := s.messages.MarkRead(ctx, id); err != nil {
			return nil, fmt.Errorf("mark message %d read: %w", id, err)
		}
		m.Read = true
	}
	return m, nil
}

// MarkRead flags a message as read. Only the receiver may do so.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.ReceiverID != userID {
		return ErrNotReceiver
	}
	if m.Read {
		return nil
	}
	return s.messages.MarkRead(ctx, id)
}

// Delete removes a message. Only the receiver may delete it.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.ReceiverID != userID {
		return ErrNotReceiver
	}
	return s.messages.Delete(ctx, id)
}

// CountUnread returns how many unread messages a user has.
func (s *Service) CountUnread(ctx context.Context, receiverID int64) (int64, error) {
	return s.messages.CountUnread(ctx, receiverID)
}

// Package message models direct messages between users, optionally
// referencing a measurement of the receiver.
package message

import (
	"context"
	"time"
)

// Message is a direct message. Read flips to true the first time the
// receiver retrieves it.
type Message struct {
	ID            int64
	SenderID      int64
	ReceiverID    int64
	Body          string
	Read          bool
	MeasurementID *int64
	SentAt        time.Time
}

// Repository defines persistence for messages. Single-message lookups are
// scoped by receiver: a message id paired with the wrong receiver behaves as
// missing.
type Repository interface {
	Create(ctx context.Context, m *Message) (int64, error)
	GetByID(ctx context.Context, id int64) (*Message, error)
	ListByReceiver(ctx context.Context, receiverID int64, unreadOnly bool) ([]Message, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, receiverID int64) error
	Delete(ctx context.Context, id int64) error
	CountUnread(ctx context.Context, receiverID int64) (int64, error)
}

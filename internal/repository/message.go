package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipex/server/internal/domain/message"
)

const (
	messageColumns = `id, sender_id, receiver_id, body, has_read, measurement_id, sent_at`

	getMessageSQL = `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	insertMessageSQL = `INSERT INTO messages (sender_id, receiver_id, body, measurement_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	listMessagesSQL = `SELECT ` + messageColumns + `
		FROM messages WHERE receiver_id = $1 ORDER BY sent_at DESC, id DESC`

	listUnreadMessagesSQL = `SELECT ` + messageColumns + `
		FROM messages WHERE receiver_id = $1 AND has_read = FALSE ORDER BY sent_at DESC, id DESC`

	markMessageReadSQL = `UPDATE messages SET has_read = TRUE WHERE id = $1`

	markAllMessagesReadSQL = `UPDATE messages SET has_read = TRUE
		WHERE receiver_id = $1 AND has_read = FALSE`

	deleteMessageSQL = `DELETE FROM messages WHERE id = $1`

	countUnreadMessagesSQL = `SELECT count(*) FROM messages
		WHERE receiver_id = $1 AND has_read = FALSE`
)

var _ message.Repository = (*MessageRepository)(nil)

// MessageRepository implements message.Repository backed by PostgreSQL.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository returns a MessageRepository that uses the given pool.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create inserts a message and returns its id.
func (r *MessageRepository) Create(ctx context.Context, m *message.Message) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertMessageSQL,
		m.SenderID, m.ReceiverID, m.Body, m.MeasurementID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting message: %w", err)
	}
	return id, nil
}

// GetByID returns a single message by id.
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*message.Message, error) {
	rows, err := r.pool.Query(ctx, getMessageSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting message %d: %w", id, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, message.ErrNotFound
		}
		return nil, fmt.Errorf("getting message %d: %w", id, err)
	}
	return &m, nil
}

// ListByReceiver returns the messages of a receiver, newest first.
func (r *MessageRepository) ListByReceiver(ctx context.Context, receiverID int64, unreadOnly bool) ([]message.Message, error) {
	sql := listMessagesSQL
	if unreadOnly {
		sql = listUnreadMessagesSQL
	}
	rows, err := r.pool.Query(ctx, sql, receiverID)
	if err != nil {
		return nil, fmt.Errorf("listing messages of %d: %w", receiverID, err)
	}
	return pgx.CollectRows(rows, scanMessage)
}

// MarkRead flags a single message as read.
func (r *MessageRepository) MarkRead(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, markMessageReadSQL, id)
	if err != nil {
		return fmt.Errorf("marking message %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead flags every unread message of a receiver as read.
func (r *MessageRepository) MarkAllRead(ctx context.Context, receiverID int64) error {
	_, err := r.pool.Exec(ctx, markAllMessagesReadSQL, receiverID)
	if err != nil {
		return fmt.Errorf("marking messages read of %d: %w", receiverID, err)
	}
	return nil
}

// Delete removes a message.
func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, deleteMessageSQL, id)
	if err != nil {
		return fmt.Errorf("deleting message %d: %w", id, err)
	}
	return nil
}

// CountUnread returns how many unread messages a receiver has.
func (r *MessageRepository) CountUnread(ctx context.Context, receiverID int64) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, countUnreadMessagesSQL, receiverID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting unread messages of %d: %w", receiverID, err)
	}
	return count, nil
}

func scanMessage(row pgx.CollectableRow) (message.Message, error) {
	var m message.Message
	err := row.Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.Read,
		&m.MeasurementID, &m.SentAt,
	)
	return m, err
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipex/server/internal/domain/request"
)

const (
	requestColumns = `id, sender_id, receiver_id, kind, sender_role, caregiver_id,
		pending, message, calendar_id, created_at`

	getRequestSQL = `SELECT ` + requestColumns + ` FROM relation_requests WHERE id = $1`

	insertRequestSQL = `INSERT INTO relation_requests
		(sender_id, receiver_id, kind, sender_role, caregiver_id, pending, message, calendar_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	requestExistsSQL = `SELECT EXISTS (
		SELECT 1 FROM relation_requests
		WHERE sender_id = $1 AND receiver_id = $2 AND kind = $3)`

	markRequestDeliveredSQL = `UPDATE relation_requests SET pending = FALSE WHERE id = $1`

	deleteRequestSQL = `DELETE FROM relation_requests WHERE id = $1`

	countPendingRequestsSQL = `SELECT count(*) FROM relation_requests
		WHERE receiver_id = $1 AND pending = TRUE`
)

var _ request.Repository = (*RequestRepository)(nil)

// RequestRepository implements request.Repository backed by PostgreSQL.
type RequestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository returns a RequestRepository that uses the given pool.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Create inserts a relation request and returns its id.
func (r *RequestRepository) Create(ctx context.Context, req *request.Request) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertRequestSQL,
		req.SenderID, req.ReceiverID, req.Kind, req.SenderRole, req.CaregiverID,
		req.Pending, req.Message, req.CalendarID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting request: %w", err)
	}
	return id, nil
}

// GetByID returns a single request by id.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*request.Request, error) {
	rows, err := r.pool.Query(ctx, getRequestSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting request %d: %w", id, err)
	}

	req, err := pgx.CollectExactlyOneRow(rows, scanRequest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrNotFound
		}
		return nil, fmt.Errorf("getting request %d: %w", id, err)
	}
	return &req, nil
}

// Exists reports whether a request of the given kind exists from sender to
// receiver, pending or not.
func (r *RequestRepository) Exists(ctx context.Context, senderID, receiverID int64, kind request.Kind) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, requestExistsSQL, senderID, receiverID, kind).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking request %d->%d: %w", senderID, receiverID, err)
	}
	return exists, nil
}

// ListByReceiver returns the requests addressed to a user, newest first.
func (r *RequestRepository) ListByReceiver(ctx context.Context, receiverID int64, kind *request.Kind) ([]request.Request, error) {
	sql, args := listRequestsSQL("receiver_id", receiverID, kind)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing received requests of %d: %w", receiverID, err)
	}
	return pgx.CollectRows(rows, scanRequest)
}

// ListBySender returns the requests a user has sent, newest first.
func (r *RequestRepository) ListBySender(ctx context.Context, senderID int64, kind *request.Kind) ([]request.Request, error) {
	sql, args := listRequestsSQL("sender_id", senderID, kind)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sent requests of %d: %w", senderID, err)
	}
	return pgx.CollectRows(rows, scanRequest)
}

// MarkDelivered clears the pending flag of a single request.
func (r *RequestRepository) MarkDelivered(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, markRequestDeliveredSQL, id)
	if err != nil {
		return fmt.Errorf("marking request %d delivered: %w", id, err)
	}
	return nil
}

// MarkAllDelivered clears the pending flag of a receiver's requests,
// optionally narrowed by kind.
func (r *RequestRepository) MarkAllDelivered(ctx context.Context, receiverID int64, kind *request.Kind) error {
	sql := `UPDATE relation_requests SET pending = FALSE WHERE receiver_id = $1 AND pending = TRUE`
	args := []any{receiverID}
	if kind != nil {
		sql += ` AND kind = $2`
		args = append(args, *kind)
	}

	_, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("marking requests delivered of %d: %w", receiverID, err)
	}
	return nil
}

// Delete removes a request.
func (r *RequestRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, deleteRequestSQL, id)
	if err != nil {
		return fmt.Errorf("deleting request %d: %w", id, err)
	}
	return nil
}

// CountPending returns how many undelivered requests a user has received.
func (r *RequestRepository) CountPending(ctx context.Context, receiverID int64) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, countPendingRequestsSQL, receiverID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting pending requests of %d: %w", receiverID, err)
	}
	return count, nil
}

func listRequestsSQL(column string, id int64, kind *request.Kind) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + requestColumns + ` FROM relation_requests WHERE ` + column + ` = $1`)
	args := []any{id}
	if kind != nil {
		args = append(args, *kind)
		fmt.Fprintf(&sb, " AND kind = $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	return sb.String(), args
}

func scanRequest(row pgx.CollectableRow) (request.Request, error) {
	var req request.Request
	err := row.Scan(
		&req.ID, &req.SenderID, &req.ReceiverID, &req.Kind, &req.SenderRole,
		&req.CaregiverID, &req.Pending, &req.Message, &req.CalendarID, &req.CreatedAt,
	)
	return req, err
}

package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/recipex/server/internal/domain/request"
	"github.com/recipex/server/internal/domain/user"
)

type sendRequestRequest struct {
	Sender     int64   `json:"sender" validate:"required,gt=0"`
	Kind       string  `json:"kind" validate:"required"`
	Role       *string `json:"role,omitempty"`
	Message    *string `json:"message,omitempty"`
	CalendarID *string `json:"calendar_id,omitempty"`
}

type answerRequestRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

type requestResponse struct {
	ID         int64                `json:"id"`
	Sender     *userSummaryResponse `json:"sender,omitempty"`
	Kind       string               `json:"kind"`
	Role       *string              `json:"role,omitempty"`
	Pending    bool                 `json:"pending"`
	Message    *string              `json:"message,omitempty"`
	CalendarID *string              `json:"calendar_id,omitempty"`
	SentAt     string               `json:"sent_at"`
}

type answerRequestResponse struct {
	CalendarID *string `json:"calendar_id,omitempty"`
}

func (h *Handler) sendRequest(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req sendRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	var role *request.Role
	if req.Role != nil {
		parsed := request.Role(*req.Role)
		role = &parsed
	}

	id, err := h.requests.Send(r.Context(), request.SendRequest{
		SenderID:   req.Sender,
		ReceiverID: receiverID,
		Kind:       request.Kind(req.Kind),
		Role:       role,
		Message:    req.Message,
		CalendarID: req.CalendarID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.invalidateCounters(r, receiverID)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) listReceivedRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reqs, err := h.requests.Received(r.Context(), userID, queryKind(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.toRequestResponses(r, reqs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCounters(r, userID)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listSentRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reqs, err := h.requests.Sent(r.Context(), userID, queryKind(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.toRequestResponses(r, reqs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}

	req, err := h.requests.Get(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.toRequestResponse(r, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCounters(r, userID)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) answerRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}

	var req answerRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	calendarID, err := h.requests.Answer(r.Context(), userID, id, *req.Accept)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.invalidateCounters(r, userID)
	writeJSON(w, http.StatusOK, answerRequestResponse{CalendarID: calendarID})
}

func (h *Handler) withdrawRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}

	senderID, ok := queryID(w, r, "sender")
	if !ok {
		return
	}

	if err := h.requests.Withdraw(r.Context(), userID, id, senderID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCounters(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

// queryKind parses the optional kind query parameter. Validation is left to
// the service so unknown kinds fail the same way everywhere.
func queryKind(r *http.Request) *request.Kind {
	v := r.URL.Query().Get("kind")
	if v == "" {
		return nil
	}
	kind := request.Kind(v)
	return &kind
}

func (h *Handler) toRequestResponse(r *http.Request, req *request.Request) (requestResponse, error) {
	resp := requestResponse{
		ID:         req.ID,
		Kind:       string(req.Kind),
		Pending:    req.Pending,
		Message:    req.Message,
		CalendarID: req.CalendarID,
		SentAt:     req.CreatedAt.Format(time.RFC3339),
	}
	if req.SenderRole != nil {
		role := string(*req.SenderRole)
		resp.Role = &role
	}

	sender, err := h.users.Summary(r.Context(), req.SenderID)
	switch {
	case errors.Is(err, user.ErrNotFound):
	case err != nil:
		return requestResponse{}, errors.Wrapf(err, "resolve sender %d", req.SenderID)
	default:
		resp.Sender = toSummaryResponsePtr(sender)
	}
	return resp, nil
}

func (h *Handler) toRequestResponses(r *http.Request, reqs []request.Request) ([]requestResponse, error) {
	resp := make([]requestResponse, len(reqs))
	for i := range reqs {
		rr, err := h.toRequestResponse(r, &reqs[i])
		if err != nil {
			return nil, err
		}
		resp[i] = rr
	}
	return resp, nil
}

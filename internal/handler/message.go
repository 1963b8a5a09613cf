package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/recipex/server/internal/domain/message"
	"github.com/recipex/server/internal/domain/user"
)

type sendMessageRequest struct {
	Sender        int64  `json:"sender" validate:"required,gt=0"`
	Message       string `json:"message" validate:"required"`
	MeasurementID *int64 `json:"measurement_id,omitempty"`
}

type messageResponse struct {
	ID            int64                `json:"id"`
	Sender        *userSummaryResponse `json:"sender,omitempty"`
	Message       string               `json:"message"`
	Read          bool                 `json:"has_read"`
	MeasurementID *int64               `json:"measurement_id,omitempty"`
	SentAt        string               `json:"sent_at"`
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req sendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.messages.Send(r.Context(), message.SendRequest{
		SenderID:      req.Sender,
		ReceiverID:    receiverID,
		Body:          req.Message,
		MeasurementID: req.MeasurementID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.invalidateCounters(r, receiverID)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	msgs, err := h.messages.Inbox(r.Context(), receiverID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.toMessageResponses(r, msgs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCounters(r, receiverID)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listUnreadMessages(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	msgs, err := h.messages.Unread(r.Context(), receiverID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.toMessageResponses(r, msgs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getMessage(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}

	m, err := h.messages.Get(r.Context(), receiverID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.toMessageResponse(r, m)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCounters(r, receiverID)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) markMessageRead(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}

	if err := h.messages.MarkRead(r.Context(), receiverID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCounters(r, receiverID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}

	if err := h.messages.Delete(r.Context(), receiverID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCounters(r, receiverID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toMessageResponse(r *http.Request, m *message.Message) (messageResponse, error) {
	resp := messageResponse{
		ID:            m.ID,
		Message:       m.Body,
		Read:          m.Read,
		MeasurementID: m.MeasurementID,
		SentAt:        m.SentAt.Format(time.RFC3339),
	}

	sender, err := h.users.Summary(r.Context(), m.SenderID)
	switch {
	case errors.Is(err, user.ErrNotFound):
		// Sender deleted their account; the message survives without them.
	case err != nil:
		return messageResponse{}, errors.Wrapf(err, "resolve sender %d", m.SenderID)
	default:
		resp.Sender = toSummaryResponsePtr(sender)
	}
	return resp, nil
}

func (h *Handler) toMessageResponses(r *http.Request, msgs []message.Message) ([]messageResponse, error) {
	resp := make([]messageResponse, len(msgs))
	for i := range msgs {
		mr, err := h.toMessageResponse(r, &msgs[i])
		if err != nil {
			return nil, err
		}
		resp[i] = mr
	}
	return resp, nil
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorStatus writes a plain {code, message} error body.
func writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// decode parses the request body into dst and runs struct validation.
// On failure it writes a 400 response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// pathID extracts a numeric path variable. On failure it writes a 400
// response and returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeErrorStatus(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryID extracts a required numeric query parameter. On failure it writes
// a 400 response and returns false.
func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		writeErrorStatus(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// invalidateCounters drops the cached unseen counters of a user after a
// write that changes unseen state. Cache errors are logged, not surfaced:
// a stale counter is tolerable, a failed request is not.
func (h *Handler) invalidateCounters(r *http.Request, userID int64) {
	if err := h.counters.Invalidate(r.Context(), userID); err != nil {
		zctx.From(r.Context()).Warn("invalidate counters",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}

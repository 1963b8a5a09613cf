package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/recipex/server/internal/domain/measurement"
)

type addMeasurementRequest struct {
	Kind string  `json:"kind" validate:"required"`
	Note *string `json:"note,omitempty"`

	Systolic     *int             `json:"systolic,omitempty"`
	Diastolic    *int             `json:"diastolic,omitempty"`
	BPM          *int             `json:"bpm,omitempty"`
	Respirations *int             `json:"respirations,omitempty"`
	NRS          *int             `json:"nrs,omitempty"`
	SpO2         *decimal.Decimal `json:"spo2,omitempty"`
	HGT          *decimal.Decimal `json:"hgt,omitempty"`
	Degrees      *decimal.Decimal `json:"degrees,omitempty"`
	CHLLevel     *decimal.Decimal `json:"chl_level,omitempty"`
}

type measurementResponse struct {
	ID       int64   `json:"id"`
	DateTime string  `json:"date_time"`
	Kind     string  `json:"kind"`
	Note     *string `json:"note,omitempty"`

	Systolic     *int             `json:"systolic,omitempty"`
	Diastolic    *int             `json:"diastolic,omitempty"`
	BPM          *int             `json:"bpm,omitempty"`
	Respirations *int             `json:"respirations,omitempty"`
	NRS          *int             `json:"nrs,omitempty"`
	SpO2         *decimal.Decimal `json:"spo2,omitempty"`
	HGT          *decimal.Decimal `json:"hgt,omitempty"`
	Degrees      *decimal.Decimal `json:"degrees,omitempty"`
	CHLLevel     *decimal.Decimal `json:"chl_level,omitempty"`
}

func (h *Handler) addMeasurement(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req addMeasurementRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.measurements.Add(r.Context(), measurement.AddRequest{
		UserID:       userID,
		Kind:         measurement.Kind(req.Kind),
		Note:         req.Note,
		Systolic:     req.Systolic,
		Diastolic:    req.Diastolic,
		BPM:          req.BPM,
		Respirations: req.Respirations,
		NRS:          req.NRS,
		SpO2:         req.SpO2,
		HGT:          req.HGT,
		Degrees:      req.Degrees,
		CHLLevel:     req.CHLLevel,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) listMeasurements(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var f measurement.Filter
	q := r.URL.Query()
	if v := q.Get("kind"); v != "" {
		kind := measurement.Kind(v)
		f.Kind = &kind
	}
	if v := q.Get("after"); v != "" {
		after, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "after must be an RFC 3339 timestamp")
			return
		}
		f.After = &after
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeErrorStatus(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = limit
	}

	measurements, err := h.measurements.List(r.Context(), userID, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]measurementResponse, len(measurements))
	for i := range measurements {
		resp[i] = toMeasurementResponse(&measurements[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getMeasurement(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "measurementID")
	if !ok {
		return
	}

	m, err := h.measurements.Get(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMeasurementResponse(m))
}

func (h *Handler) updateMeasurement(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "measurementID")
	if !ok {
		return
	}

	var req addMeasurementRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.measurements.Update(r.Context(), measurement.UpdateRequest{
		UserID:       userID,
		ID:           id,
		Kind:         measurement.Kind(req.Kind),
		Note:         req.Note,
		Systolic:     req.Systolic,
		Diastolic:    req.Diastolic,
		BPM:          req.BPM,
		Respirations: req.Respirations,
		NRS:          req.NRS,
		SpO2:         req.SpO2,
		HGT:          req.HGT,
		Degrees:      req.Degrees,
		CHLLevel:     req.CHLLevel,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteMeasurement(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "measurementID")
	if !ok {
		return
	}

	if err := h.measurements.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toMeasurementResponse(m *measurement.Measurement) measurementResponse {
	return measurementResponse{
		ID:           m.ID,
		DateTime:     m.TakenAt.Format(time.RFC3339),
		Kind:         string(m.Kind),
		Note:         m.Note,
		Systolic:     m.Systolic,
		Diastolic:    m.Diastolic,
		BPM:          m.BPM,
		Respirations: m.Respirations,
		NRS:          m.NRS,
		SpO2:         m.SpO2,
		HGT:          m.HGT,
		Degrees:      m.Degrees,
		CHLLevel:     m.CHLLevel,
	}
}

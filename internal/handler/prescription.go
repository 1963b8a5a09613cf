package handler

import (
	"net/http"

	"github.com/recipex/server/internal/domain/prescription"
)

// Dose and quantity are range-checked by the service so that zero and
// negative values fail the same way.
type addPrescriptionRequest struct {
	Name             string  `json:"name" validate:"required"`
	ActiveIngredient int64   `json:"active_ingredient" validate:"required,gt=0"`
	Kind             string  `json:"kind" validate:"required"`
	Dose             int     `json:"dose"`
	Units            string  `json:"units" validate:"required"`
	Quantity         int     `json:"quantity"`
	Recipe           bool    `json:"recipe"`
	PIL              *string `json:"pil,omitempty"`
	Caregiver        *int64  `json:"caregiver,omitempty"`
}

type prescriptionResponse struct {
	ID               int64                `json:"id"`
	Name             string               `json:"name"`
	ActiveIngredient ingredientResponse   `json:"active_ingredient"`
	Kind             string               `json:"kind"`
	Dose             int                  `json:"dose"`
	Units            string               `json:"units"`
	Quantity         int                  `json:"quantity"`
	Recipe           bool                 `json:"recipe"`
	PIL              *string              `json:"pil,omitempty"`
	Seen             bool                 `json:"seen"`
	Prescriber       *userSummaryResponse `json:"caregiver,omitempty"`
	Job              *string              `json:"job,omitempty"`
}

func (h *Handler) addPrescription(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req addPrescriptionRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.prescriptions.Add(r.Context(), prescription.AddRequest{
		UserID:       userID,
		Name:         req.Name,
		IngredientID: req.ActiveIngredient,
		Kind:         prescription.Kind(req.Kind),
		Dose:         req.Dose,
		Units:        req.Units,
		Quantity:     req.Quantity,
		Recipe:       req.Recipe,
		PIL:          req.PIL,
		CaregiverID:  req.Caregiver,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.invalidateCounters(r, userID)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	details, err := h.prescriptions.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.invalidateCounters(r, userID)
	writeJSON(w, http.StatusOK, toPrescriptionResponses(details))
}

func (h *Handler) listUnseenPrescriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	details, err := h.prescriptions.Unseen(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrescriptionResponses(details))
}

func (h *Handler) getPrescription(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "prescriptionID")
	if !ok {
		return
	}

	detail, err := h.prescriptions.Get(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.invalidateCounters(r, userID)
	writeJSON(w, http.StatusOK, toPrescriptionResponse(detail))
}

func (h *Handler) deletePrescription(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "prescriptionID")
	if !ok {
		return
	}

	if err := h.prescriptions.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCounters(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func toPrescriptionResponse(d *prescription.Detail) prescriptionResponse {
	resp := prescriptionResponse{
		ID:   d.ID,
		Name: d.Name,
		ActiveIngredient: ingredientResponse{
			ID:   d.IngredientID,
			Name: d.IngredientName,
		},
		Kind:       string(d.Kind),
		Dose:       d.Dose,
		Units:      d.Units,
		Quantity:   d.Quantity,
		Recipe:     d.Recipe,
		PIL:        d.PIL,
		Seen:       d.Seen,
		Prescriber: toSummaryResponsePtr(d.Prescriber),
	}
	if d.Job != nil {
		job := string(*d.Job)
		resp.Job = &job
	}
	return resp
}

func toPrescriptionResponses(details []prescription.Detail) []prescriptionResponse {
	resp := make([]prescriptionResponse, len(details))
	for i := range details {
		resp[i] = toPrescriptionResponse(&details[i])
	}
	return resp
}

package handler

import (
	"net/http"
)

type addIngredientRequest struct {
	Name string `json:"name" validate:"required"`
}

type ingredientResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) listIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.prescriptions.ListIngredients(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]ingredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = ingredientResponse{ID: ing.ID, Name: ing.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) addIngredient(w http.ResponseWriter, r *http.Request) {
	var req addIngredientRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.prescriptions.AddIngredient(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) getIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ing, err := h.prescriptions.GetIngredient(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredientResponse{ID: ing.ID, Name: ing.Name})
}

func (h *Handler) deleteIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.prescriptions.DeleteIngredient(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

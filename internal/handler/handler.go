// Package handler exposes the domain services as a JSON HTTP API.
package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/recipex/server/internal/cache"
	"github.com/recipex/server/internal/domain/measurement"
	"github.com/recipex/server/internal/domain/message"
	"github.com/recipex/server/internal/domain/prescription"
	"github.com/recipex/server/internal/domain/request"
	"github.com/recipex/server/internal/domain/user"
)

// Handler routes API requests to the domain services.
type Handler struct {
	users         *user.Service
	measurements  *measurement.Service
	messages      *message.Service
	requests      *request.Service
	prescriptions *prescription.Service
	counters      *cache.Counters

	validate *validator.Validate
}

// New constructs a Handler with the required domain dependencies. counters
// may be nil when no Redis cache is configured.
func New(
	users *user.Service,
	measurements *measurement.Service,
	messages *message.Service,
	requests *request.Service,
	prescriptions *prescription.Service,
	counters *cache.Counters,
) *Handler {
	return &Handler{
		users:         users,
		measurements:  measurements,
		messages:      messages,
		requests:      requests,
		prescriptions: prescriptions,
		counters:      counters,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers every API route on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", h.registerUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", h.updateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", h.deleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/users/{id}/relations/{profileID}", h.userRelations).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/relations", h.unlinkRelation).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id}/has-unseen-info", h.hasUnseenInfo).Methods(http.MethodGet)

	r.HandleFunc("/users/{id}/measurements", h.addMeasurement).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/measurements", h.listMeasurements).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/measurements/{measurementID}", h.getMeasurement).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/measurements/{measurementID}", h.updateMeasurement).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/measurements/{measurementID}", h.deleteMeasurement).Methods(http.MethodDelete)

	r.HandleFunc("/users/{id}/messages", h.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/messages", h.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/unread-messages", h.listUnreadMessages).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/messages/{messageID}", h.getMessage).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/messages/{messageID}", h.markMessageRead).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/messages/{messageID}", h.deleteMessage).Methods(http.MethodDelete)

	r.HandleFunc("/users/{id}/requests", h.sendRequest).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/requests", h.listReceivedRequests).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/requests-pending", h.listSentRequests).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/requests/{requestID}", h.getRequest).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/requests/{requestID}", h.answerRequest).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}/requests/{requestID}", h.withdrawRequest).Methods(http.MethodDelete)

	r.HandleFunc("/active-ingredients", h.listIngredients).Methods(http.MethodGet)
	r.HandleFunc("/active-ingredients", h.addIngredient).Methods(http.MethodPost)
	r.HandleFunc("/active-ingredients/{id}", h.getIngredient).Methods(http.MethodGet)
	r.HandleFunc("/active-ingredients/{id}", h.deleteIngredient).Methods(http.MethodDelete)

	r.HandleFunc("/users/{id}/prescriptions", h.addPrescription).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/prescriptions", h.listPrescriptions).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/unseen-prescriptions", h.listUnseenPrescriptions).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/prescriptions/{prescriptionID}", h.getPrescription).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/prescriptions/{prescriptionID}", h.deletePrescription).Methods(http.MethodDelete)
}

package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/recipex/server/internal/cache"
	"github.com/recipex/server/internal/domain/request"
	"github.com/recipex/server/internal/domain/user"
)

// birthLayout is the wire format for birth dates.
const birthLayout = "2006-01-02"

type registerUserRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Name        string  `json:"name" validate:"required"`
	Surname     string  `json:"surname" validate:"required"`
	Birth       string  `json:"birth" validate:"required"`
	Pic         string  `json:"pic" validate:"required,url"`
	Sex         string  `json:"sex" validate:"required"`
	City        *string `json:"city,omitempty"`
	Address     *string `json:"address,omitempty"`
	PersonalNum *string `json:"personal_num,omitempty"`

	Field       *string `json:"field,omitempty"`
	YearsExp    *int    `json:"years_exp,omitempty"`
	Place       *string `json:"place,omitempty"`
	BusinessNum *string `json:"business_num,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Available   *string `json:"available,omitempty"`
}

type updateUserRequest struct {
	Name        *string `json:"name,omitempty"`
	Surname     *string `json:"surname,omitempty"`
	Birth       *string `json:"birth,omitempty"`
	Pic         *string `json:"pic,omitempty"`
	Sex         *string `json:"sex,omitempty"`
	City        *string `json:"city,omitempty"`
	Address     *string `json:"address,omitempty"`
	PersonalNum *string `json:"personal_num,omitempty"`

	Field       *string `json:"field,omitempty"`
	YearsExp    *int    `json:"years_exp,omitempty"`
	Place       *string `json:"place,omitempty"`
	BusinessNum *string `json:"business_num,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Available   *string `json:"available,omitempty"`
}

type unlinkRelationRequest struct {
	ID   int64   `json:"id" validate:"required"`
	Kind string  `json:"kind" validate:"required"`
	Role *string `json:"role,omitempty"`
}

type userSummaryResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Surname string  `json:"surname"`
	Email   string  `json:"email"`
	Pic     string  `json:"pic"`
	Field   *string `json:"field,omitempty"`
}

type userProfileResponse struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Surname     string  `json:"surname"`
	Birth       string  `json:"birth"`
	Pic         string  `json:"pic"`
	Sex         string  `json:"sex"`
	City        *string `json:"city,omitempty"`
	Address     *string `json:"address,omitempty"`
	PersonalNum *string `json:"personal_num,omitempty"`

	Field       *string `json:"field,omitempty"`
	YearsExp    *int    `json:"years_exp,omitempty"`
	Place       *string `json:"place,omitempty"`
	BusinessNum *string `json:"business_num,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Available   *string `json:"available,omitempty"`

	PCPhysician   *userSummaryResponse  `json:"pc_physician,omitempty"`
	VisitingNurse *userSummaryResponse  `json:"visiting_nurse,omitempty"`
	Relatives     []userSummaryResponse `json:"relatives"`
	Caregivers    []userSummaryResponse `json:"caregivers"`
	Patients      []userSummaryResponse `json:"patients,omitempty"`
}

type relationsResponse struct {
	IsRelative      bool `json:"is_relative"`
	IsCaregiver     bool `json:"is_caregiver"`
	IsPatient       bool `json:"is_patient"`
	IsPCPhysician   bool `json:"is_pc_physician"`
	IsVisitingNurse bool `json:"is_visiting_nurse"`

	RelativeRequest      bool `json:"relative_request"`
	CaregiverRequest     bool `json:"caregiver_request"`
	PCPhysicianRequest   bool `json:"pc_physician_request"`
	VisitingNurseRequest bool `json:"visiting_nurse_request"`
}

type unseenInfoResponse struct {
	Messages      int64 `json:"messages"`
	Requests      int64 `json:"requests"`
	Prescriptions int64 `json:"prescriptions"`
	HasUnseen     bool  `json:"has_unseen"`
}

// registeredConflictResponse is the 412 body for duplicate registrations:
// it carries the stored profile so the client can pick up the existing
// account.
type registeredConflictResponse struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	User    userProfileResponse `json:"user"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.users.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]userSummaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = toSummaryResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	birth, err := time.Parse(birthLayout, req.Birth)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "birth must be formatted as YYYY-MM-DD")
		return
	}

	id, err := h.users.Register(r.Context(), user.RegisterRequest{
		Email:       req.Email,
		Name:        req.Name,
		Surname:     req.Surname,
		Birth:       birth,
		Pic:         req.Pic,
		Sex:         req.Sex,
		City:        req.City,
		Address:     req.Address,
		PersonalNum: req.PersonalNum,
		Field:       req.Field,
		YearsExp:    req.YearsExp,
		Place:       req.Place,
		BusinessNum: req.BusinessNum,
		Bio:         req.Bio,
		Available:   req.Available,
	})
	if err != nil {
		var dupErr *user.AlreadyRegisteredError
		if errors.As(err, &dupErr) {
			existing, err := h.users.Get(r.Context(), dupErr.Existing.ID)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusPreconditionFailed, registeredConflictResponse{
				Code:    http.StatusPreconditionFailed,
				Message: "email already registered",
				User:    toProfileResponse(existing),
			})
			return
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	var birth *time.Time
	if req.Birth != nil {
		parsed, err := time.Parse(birthLayout, *req.Birth)
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "birth must be formatted as YYYY-MM-DD")
			return
		}
		birth = &parsed
	}

	err := h.users.Update(r.Context(), user.UpdateRequest{
		ID:          id,
		Name:        req.Name,
		Surname:     req.Surname,
		Birth:       birth,
		Pic:         req.Pic,
		Sex:         req.Sex,
		City:        req.City,
		Address:     req.Address,
		PersonalNum: req.PersonalNum,
		Field:       req.Field,
		YearsExp:    req.YearsExp,
		Place:       req.Place,
		BusinessNum: req.BusinessNum,
		Bio:         req.Bio,
		Available:   req.Available,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCounters(r, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userRelations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	profileID, ok := pathID(w, r, "profileID")
	if !ok {
		return
	}

	rel, err := h.requests.RelationSummary(r.Context(), id, profileID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, relationsResponse{
		IsRelative:           rel.IsRelative,
		IsCaregiver:          rel.IsCaregiver,
		IsPatient:            rel.IsPatient,
		IsPCPhysician:        rel.IsPCPhysician,
		IsVisitingNurse:      rel.IsVisitingNurse,
		RelativeRequest:      rel.RelativeRequest,
		CaregiverRequest:     rel.CaregiverRequest,
		PCPhysicianRequest:   rel.PCPhysicianRequest,
		VisitingNurseRequest: rel.VisitingNurseRequest,
	})
}

func (h *Handler) unlinkRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req unlinkRelationRequest
	if !h.decode(w, r, &req) {
		return
	}

	var role *request.Role
	if req.Role != nil {
		parsed := request.Role(*req.Role)
		role = &parsed
	}

	err := h.requests.Unlink(r.Context(), request.UnlinkRequest{
		UserID:  id,
		OtherID: req.ID,
		Kind:    request.Kind(req.Kind),
		Role:    role,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) hasUnseenInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.users.Summary(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	counts, err := h.counters.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if counts == nil {
		fresh := cache.UnseenCounts{}
		if fresh.Messages, err = h.messages.CountUnread(r.Context(), id); err != nil {
			h.writeError(w, r, err)
			return
		}
		if fresh.Requests, err = h.requests.CountPending(r.Context(), id); err != nil {
			h.writeError(w, r, err)
			return
		}
		if fresh.Prescriptions, err = h.prescriptions.CountUnseen(r.Context(), id); err != nil {
			h.writeError(w, r, err)
			return
		}
		if err := h.counters.Set(r.Context(), id, fresh); err != nil {
			h.writeError(w, r, err)
			return
		}
		counts = &fresh
	}

	writeJSON(w, http.StatusOK, unseenInfoResponse{
		Messages:      counts.Messages,
		Requests:      counts.Requests,
		Prescriptions: counts.Prescriptions,
		HasUnseen:     counts.Messages > 0 || counts.Requests > 0 || counts.Prescriptions > 0,
	})
}

func toSummaryResponse(s user.Summary) userSummaryResponse {
	return userSummaryResponse{
		ID:      s.ID,
		Name:    s.Name,
		Surname: s.Surname,
		Email:   s.Email,
		Pic:     s.Pic,
		Field:   s.Field,
	}
}

func toSummaryResponsePtr(s *user.Summary) *userSummaryResponse {
	if s == nil {
		return nil
	}
	resp := toSummaryResponse(*s)
	return &resp
}

func toSummaryResponses(summaries []user.Summary) []userSummaryResponse {
	resp := make([]userSummaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = toSummaryResponse(s)
	}
	return resp
}

func toProfileResponse(p *user.Profile) userProfileResponse {
	resp := userProfileResponse{
		ID:            p.User.ID,
		Email:         p.User.Email,
		Name:          p.User.Name,
		Surname:       p.User.Surname,
		Birth:         p.User.Birth.Format(birthLayout),
		Pic:           p.User.Pic,
		Sex:           p.User.Sex,
		City:          p.User.City,
		Address:       p.User.Address,
		PersonalNum:   p.User.PersonalNum,
		PCPhysician:   toSummaryResponsePtr(p.PCPhysician),
		VisitingNurse: toSummaryResponsePtr(p.VisitingNurse),
		Relatives:     toSummaryResponses(p.Relatives),
		Caregivers:    toSummaryResponses(p.Caregivers),
	}
	if p.Caregiver != nil {
		field := p.Caregiver.Field
		resp.Field = &field
		resp.YearsExp = p.Caregiver.YearsExp
		resp.Place = p.Caregiver.Place
		resp.BusinessNum = p.Caregiver.BusinessNum
		resp.Bio = p.Caregiver.Bio
		resp.Available = p.Caregiver.Available
		resp.Patients = toSummaryResponses(p.Patients)
	}
	return resp
}

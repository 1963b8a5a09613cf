package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/recipex/server/internal/domain/measurement"
	"github.com/recipex/server/internal/domain/message"
	"github.com/recipex/server/internal/domain/prescription"
	"github.com/recipex/server/internal/domain/request"
	"github.com/recipex/server/internal/domain/user"
)

// notFoundErrors map to 404: the referenced entity does not exist (or is
// scoped to a different owner).
var notFoundErrors = []error{
	user.ErrNotFound,
	measurement.ErrNotFound,
	message.ErrNotFound,
	request.ErrNotFound,
	prescription.ErrNotFound,
	prescription.ErrIngredientNotFound,
}

// preconditionErrors map to 412: the entities exist but a domain rule
// rejects the operation.
var preconditionErrors = []error{
	user.ErrFieldRequired,
	user.ErrNotCaregiver,
	measurement.ErrKindMismatch,
	message.ErrNotReceiver,
	message.ErrSelfMessage,
	request.ErrSelfRequest,
	request.ErrDuplicate,
	request.ErrAlreadyRelated,
	request.ErrRoleRequired,
	request.ErrNotSender,
	request.ErrNotRelated,
	prescription.ErrIngredientExists,
	prescription.ErrIngredientInUse,
	prescription.ErrInvalidDose,
	prescription.ErrNotPatient,
}

// writeError maps a domain error to an HTTP error response. Unrecognized
// errors become a logged 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, sentinel := range notFoundErrors {
		if errors.Is(err, sentinel) {
			writeErrorStatus(w, http.StatusNotFound, sentinel.Error())
			return
		}
	}
	for _, sentinel := range preconditionErrors {
		if errors.Is(err, sentinel) {
			writeErrorStatus(w, http.StatusPreconditionFailed, sentinel.Error())
			return
		}
	}

	var (
		mKindErr   *measurement.UnknownKindError
		missingErr *measurement.MissingValueError
		rangeErr   *measurement.OutOfRangeError
		rKindErr   *request.UnknownKindError
		pKindErr   *prescription.UnknownKindError
	)
	switch {
	case errors.As(err, &mKindErr),
		errors.As(err, &missingErr),
		errors.As(err, &rangeErr),
		errors.As(err, &rKindErr),
		errors.As(err, &pKindErr):
		writeErrorStatus(w, http.StatusPreconditionFailed, err.Error())
		return
	}

	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeErrorStatus(w, http.StatusInternalServerError, "internal error")
}

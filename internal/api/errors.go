package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/model"
)

type errorDetail struct {
	Kind    model.ErrorKind `json:"kind"`
	Message string          `json:"message"`
	Field   string          `json:"field,omitempty"`
	Allowed []string        `json:"allowed,omitempty"`
	Cause   string          `json:"cause,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindUnknownEntity:
		return http.StatusNotFound
	case model.KindResourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// detailFor renders err using the message of the typed error that decides
// its kind, so internal wrapping context does not leak to clients. An
// estimator failure carries its cause.
func detailFor(err error) errorDetail {
	kind := model.KindOf(err)
	d := errorDetail{Kind: kind, Message: "internal error"}

	var (
		ve *model.ValidationError
		ue *model.UnknownEntityError
		re *model.ResourceUnavailableError
		pe *model.PredictionFailedError
	)
	switch {
	case kind == model.KindValidation && errors.As(err, &ve):
		d.Message = ve.Message
		d.Field = ve.Field
		d.Allowed = ve.Allowed
	case kind == model.KindUnknownEntity && errors.As(err, &ue):
		d.Message = ue.Error()
		d.Field = ue.Entity
		d.Allowed = ue.Roster
	case kind == model.KindResourceUnavailable && errors.As(err, &re):
		d.Message = re.Resource + " is not available"
	case kind == model.KindPredictionFailed && errors.As(err, &pe):
		d.Message = "prediction for " + pe.Neighborhood + " failed"
		if pe.Err != nil {
			d.Cause = pe.Err.Error()
			d.Message += ": " + d.Cause
		}
	}
	return d
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	d := detailFor(err)
	status := statusFor(d.Kind)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", string(d.Kind)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Error: d})
}

func unavailable(resource string) error {
	return &model.ResourceUnavailableError{Resource: resource}
}

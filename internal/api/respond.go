package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"dataservices/internal/model"
	"dataservices/internal/tenant"
)

type errorResponse struct {
	Error     string             `json:"error"`
	Fields    []model.FieldError `json:"fields,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}

// fail maps a service error to a response. Anything unexpected is a 500 and
// is logged with the request id; details never reach the client.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tenant.ErrNoTenant) {
		a.Logger.Error("Request reached a service without a tenant",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path))
	} else {
		a.Logger.Error("Request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}

func (a *API) tenantError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tenant.ErrMissingTenant) {
		writeError(w, r, http.StatusBadRequest, "missing "+a.Cfg.Tenant.Header+" header")
		return
	}
	writeError(w, r, http.StatusUnauthorized, "unauthorized")
}

// decodeBody reads a JSON payload and validates it. It writes the 400
// response itself and reports false when the payload is rejected.
func decodeBody[T interface{ Validate() error }](w http.ResponseWriter, r *http.Request, dst T) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request body")
		return false
	}

	if err := dst.Validate(); err != nil {
		var fields model.FieldErrors
		if errors.As(err, &fields) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:     "validation failed",
				Fields:    fields,
				RequestID: middleware.GetReqID(r.Context()),
			})
			return false
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

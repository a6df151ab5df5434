package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"marketplace-wallet/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.NewAppError(errors.InternalError, "an unexpected error occurred").WithDetails(err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus())

	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

// AccountIDHeader carries the authenticated caller's account id. Identity
// and token verification live upstream; by the time a request reaches this
// service it already resolves to a unique account id.
const AccountIDHeader = "X-Account-ID"

func callerAccountID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(AccountIDHeader)
	if raw == "" {
		return uuid.Nil, errors.NewAppError(errors.InvalidInput, "missing "+AccountIDHeader+" header")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.NewAppError(errors.InvalidInput, "invalid "+AccountIDHeader+" header")
	}
	return id, nil
}

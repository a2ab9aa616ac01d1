package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"solusd/core"
	coreerrors "solusd/core/errors"
	"solusd/storage/journal"
)

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

var categoryStatus = map[coreerrors.Category]int{
	coreerrors.CategoryAuthorization: http.StatusForbidden,
	coreerrors.CategoryState:         http.StatusConflict,
	coreerrors.CategoryParameter:     http.StatusBadRequest,
	coreerrors.CategoryArithmetic:    http.StatusUnprocessableEntity,
	coreerrors.CategoryOracle:        http.StatusServiceUnavailable,
	coreerrors.CategoryFee:           http.StatusUnprocessableEntity,
}

// statusFor maps an engine error onto the HTTP status reported to clients.
func statusFor(err error) (int, coreerrors.Category) {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		return http.StatusServiceUnavailable, coreerrors.CategoryState
	case errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound, coreerrors.CategoryNone
	}
	category := coreerrors.Classify(err)
	if status, ok := categoryStatus[category]; ok {
		return status, category
	}
	return http.StatusInternalServerError, coreerrors.CategoryInternal
}

func writeError(w http.ResponseWriter, err error) {
	status, category := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSONError(w, status, message, string(category))
}

func writeJSONError(w http.ResponseWriter, status int, message, category string) {
	writeJSON(w, status, errorResponse{Error: message, Category: category})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

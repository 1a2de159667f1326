package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/graham/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var verr *contracts.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, contracts.ErrMissingValue),
		errors.Is(err, contracts.ErrNegativeValue),
		errors.Is(err, contracts.ErrMissingAssetClass):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// decodeBody decodes a JSON body, rejecting unknown fields
func decodeBody(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

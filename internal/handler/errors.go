package handler

import (
	"errors"
	"net/http"

	"cardledger/internal/waiver"
)

// statusFromError maps service errors onto HTTP status codes so every
// handler reports waiver sentinels consistently.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, waiver.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, waiver.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, waiver.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, waiver.ErrRuleConfig):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

package server

import (
	"errors"
	"net/http"

	"github.com/chrolicious/hoolgg-roster/internal/roster"
	"github.com/chrolicious/hoolgg-roster/internal/storage"
)

// ErrBadRequest indicates a request that could not be decoded or routed.
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Storage and unknown errors are 500.
func HTTPStatus(err error) int {
	var (
		notFound   *roster.ErrNotFound
		validation *roster.ErrValidation
		prov       *roster.ErrProvider
		badRequest *ErrBadRequest
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.As(err, &prov):
		if prov.RateLimited {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the client-facing text for err. Storage failures are not
// described beyond their operation.
func errorMessage(err error) string {
	var store *storage.StorageError
	if errors.As(err, &store) {
		return "storage error: " + store.Op
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

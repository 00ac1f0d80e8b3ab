package roster

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/chrolicious/hoolgg-roster/internal/provider"
)

// Entity kinds reported by ErrNotFound.
const (
	KindCharacter   = "character"
	KindBis         = "bis item"
	KindTalentBuild = "talent build"
	KindItemIcon    = "item icon"
)

// ErrNotFound indicates the target entity does not exist. Nothing was changed.
type ErrNotFound struct {
	Kind string
	ID   int
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Kind, e.ID)
}

// ErrValidation indicates a rejected request. The document is unchanged.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrProvider indicates a failed token or API call. It never invalidates the
// document; fields sourced from the failed fetch keep their previous values.
type ErrProvider struct {
	Fetch       string
	Message     string
	RateLimited bool
	Cause       error
}

func (e *ErrProvider) Error() string {
	return e.Message
}

func (e *ErrProvider) Unwrap() error {
	return e.Cause
}

// errNotConfigured is returned when a character has no realm or character name.
var errNotConfigured = &ErrValidation{Field: "character_name", Message: "character realm and name not configured"}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ErrValidation{Field: fe.Field(), Message: fe.Tag()}
	}
	return &ErrValidation{Message: err.Error()}
}

func providerError(fetch string, err error) *ErrProvider {
	var perr *ErrProvider
	if errors.As(err, &perr) {
		return perr
	}
	out := &ErrProvider{Fetch: fetch, Message: err.Error(), Cause: err}
	if provider.IsRateLimited(err) {
		out.RateLimited = true
		out.Message = provider.RateLimitHint
	}
	return out
}

// Package accounts validates artisan sign-up requests. Account
// persistence lives in the main dashboard backend; this service only
// enforces the shared validation rules and reports that creation is
// handled elsewhere.
package accounts

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/artisanhub/craft-ai-bridge/schema"
)

// ErrNotImplemented is returned by the stub creator: the bridge
// validates sign-ups but does not own the account store.
var ErrNotImplemented = errors.New("account creation is not handled by this service")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

type SignUp struct {
	Email           string
	Password        string
	ConfirmPassword string
}

// Creator provisions an artisan account from a validated sign-up.
type Creator interface {
	Create(ctx context.Context, signUp SignUp) error
}

// Validate applies the dashboard's sign-up rules and returns per-field
// errors in the same shape as flow input validation.
func Validate(signUp SignUp) schema.FieldErrors {
	errs := schema.FieldErrors{}
	email := strings.TrimSpace(signUp.Email)
	if email == "" {
		errs.Add("email", "email is required")
	} else if !emailPattern.MatchString(email) {
		errs.Add("email", "email must be a valid address")
	}
	if signUp.Password == "" {
		errs.Add("password", "password is required")
	} else if len([]rune(signUp.Password)) < minPasswordLength {
		errs.Add("password", "password must be at least 8 characters")
	}
	if signUp.ConfirmPassword != signUp.Password {
		errs.Add("confirmPassword", "passwords do not match")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// StubCreator accepts any validated sign-up and reports that creation
// belongs to the dashboard backend.
type StubCreator struct{}

func (StubCreator) Create(ctx context.Context, signUp SignUp) error {
	return ErrNotImplemented
}

var _ Creator = StubCreator{}

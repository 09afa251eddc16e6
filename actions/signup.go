package actions

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/artisanhub/craft-ai-bridge/accounts"
)

// SignUpAction validates artisan sign-ups and forwards them to the
// configured account creator.
type SignUpAction struct {
	creator accounts.Creator
	logger  *zap.Logger
}

func NewSignUpAction(creator accounts.Creator, logger *zap.Logger) *SignUpAction {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignUpAction{creator: creator, logger: logger}
}

func (s *SignUpAction) Run(ctx context.Context, signUp accounts.SignUp) State {
	if errs := accounts.Validate(signUp); len(errs) > 0 {
		return State{
			Status:  StatusError,
			Message: "Please correct the highlighted fields.",
			Errors:  errs,
		}
	}

	err := s.creator.Create(ctx, signUp)
	if errors.Is(err, accounts.ErrNotImplemented) {
		return State{
			Status:  StatusError,
			Message: "Sign-up is handled by the main dashboard. Please register there.",
		}
	}
	if err != nil {
		s.logger.Error("sign-up failed", zap.Error(err))
		return State{
			Status:  StatusError,
			Message: "Something went wrong. Please try again.",
		}
	}
	return State{Status: StatusSuccess, Message: "Account created."}
}

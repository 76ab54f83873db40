package assistant

import (
	"errors"

	"github.com/xaenox/mindmesh-bot/internal/llm"
	"github.com/xaenox/mindmesh-bot/internal/profile"
	"github.com/xaenox/mindmesh-bot/internal/session"
	"github.com/xaenox/mindmesh-bot/internal/storage"
)

// UserMessage turns err into a short sentence safe to show an end user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		validationErr *profile.ValidationError
		gatewayErr    *llm.GatewayError
		configErr     *llm.ConfigurationError
	)

	switch {
	case errors.As(err, &validationErr):
		return "Some answers were not accepted: " + validationErr.Error()
	case errors.Is(err, storage.ErrUserNotFound):
		return "That user does not exist. Register first."
	case errors.Is(err, storage.ErrConflict):
		return "That already exists."
	case errors.Is(err, storage.ErrNotFound):
		return "Nothing was found."
	case errors.Is(err, session.ErrEmptyMessage):
		return "Please type a message."
	case errors.Is(err, session.ErrInvalidUsername):
		return "A username is required."
	case errors.Is(err, session.ErrSessionBusy):
		return "Still working on your previous message. Please wait a moment."
	case errors.As(err, &gatewayErr) && gatewayErr.Timeout():
		return "The assistant took too long to answer. Please try again."
	case errors.As(err, &gatewayErr):
		return "The assistant is unavailable right now. Please try again later."
	case errors.As(err, &configErr):
		return "The assistant is not configured correctly."
	default:
		return "Something went wrong. Please try again."
	}
}

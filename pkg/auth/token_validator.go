package auth

import (
	"context"
	"errors"
)

// TokenValidator abstracts token validation so the server can accept more
// than one credential scheme.
type TokenValidator interface {
	// ValidateToken returns the claims of a valid token.
	ValidateToken(ctx context.Context, token string) (*Claims, error)

	// Name returns the validator name for logging
	Name() string
}

// ErrNoValidatorMatched is returned when no validator can validate the token
var ErrNoValidatorMatched = errors.New("no validator could validate the token")

// CompositeTokenValidator chains multiple validators, trying each in order
type CompositeTokenValidator struct {
	validators []TokenValidator
}

// NewCompositeTokenValidator creates a validator that tries multiple validators in order
func NewCompositeTokenValidator(validators ...TokenValidator) *CompositeTokenValidator {
	return &CompositeTokenValidator{validators: validators}
}

// ValidateToken tries each validator in order until one succeeds. The error
// of the last validator is returned when none does.
func (c *CompositeTokenValidator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if len(c.validators) == 0 {
		return nil, ErrNoValidatorMatched
	}

	var lastErr error
	for _, v := range c.validators {
		claims, err := v.ValidateToken(ctx, token)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *CompositeTokenValidator) Name() string {
	return "composite"
}

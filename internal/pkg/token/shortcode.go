package token

import (
	"context"
	"errors"
)

// MaxCodeAttempts bounds retry-on-collision when allocating a pairing code.
const MaxCodeAttempts = 10

var ErrCodeSpaceExhausted = errors.New("token: failed to generate unique code")

type CodeAvailabilityChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// GenerateUniqueCode draws short codes until checker reports one unused.
// After MaxCodeAttempts collisions it gives up with ErrCodeSpaceExhausted,
// which callers surface as a retryable server error.
func GenerateUniqueCode(ctx context.Context, checker CodeAvailabilityChecker, length int) (string, error) {
	for i := 0; i < MaxCodeAttempts; i++ {
		code, err := GenerateShortCode(length)
		if err != nil {
			return "", err
		}

		exists, err := checker.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

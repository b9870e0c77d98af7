package token

import (
	"context"
	"errors"
	"testing"
)

type mockChecker struct {
	taken bool
	err   error
	calls int
}

func (m *mockChecker) CodeExists(ctx context.Context, code string) (bool, error) {
	m.calls++
	return m.taken, m.err
}

func TestGenerateUniqueCode(t *testing.T) {
	t.Run("Free Code", func(t *testing.T) {
		checker := &mockChecker{}
		code, err := GenerateUniqueCode(context.Background(), checker, 8)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(code) != 8 {
			t.Errorf("Expected length 8, got %d", len(code))
		}
		if checker.calls != 1 {
			t.Errorf("Expected 1 lookup, got %d", checker.calls)
		}
	})

	t.Run("Collisions Exhausted", func(t *testing.T) {
		checker := &mockChecker{taken: true}
		_, err := GenerateUniqueCode(context.Background(), checker, 8)
		if !errors.Is(err, ErrCodeSpaceExhausted) {
			t.Fatalf("Expected ErrCodeSpaceExhausted, got %v", err)
		}
		if checker.calls != MaxCodeAttempts {
			t.Errorf("Expected %d lookups, got %d", MaxCodeAttempts, checker.calls)
		}
	})

	t.Run("Checker Error", func(t *testing.T) {
		checker := &mockChecker{err: errors.New("db error")}
		if _, err := GenerateUniqueCode(context.Background(), checker, 8); err == nil {
			t.Error("Expected error, got nil")
		}
	})
}

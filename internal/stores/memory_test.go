package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eduportal/portalguard/internal"
)

func TestMemoryRoundTripAndSingleUse(t *testing.T) {
	store := NewMemoryResetStore()
	ctx := context.Background()

	hash := internal.HashResetToken("token")
	if err := store.Save(ctx, "user@example.com", hash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Validate(ctx, "user@example.com", hash); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := store.Consume(ctx, "user@example.com", hash); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := store.Validate(ctx, "user@example.com", hash); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected consumed token to be gone, got %v", err)
	}
	if err := store.Consume(ctx, "user@example.com", hash); err != nil {
		t.Fatalf("expected idempotent consume, got %v", err)
	}
}

func TestMemoryExpiryWithSimulatedClock(t *testing.T) {
	store := NewMemoryResetStore()
	ctx := context.Background()

	now := time.Now()
	store.Now = func() time.Time { return now }

	hash := internal.HashResetToken("token")
	if err := store.Save(ctx, "user@example.com", hash, now.Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Validate(ctx, "user@example.com", hash); err != nil {
		t.Fatalf("expected valid before expiry: %v", err)
	}

	now = now.Add(time.Hour + time.Second)
	if err := store.Validate(ctx, "user@example.com", hash); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestMemorySaveReplaces(t *testing.T) {
	store := NewMemoryResetStore()
	ctx := context.Background()

	first := internal.HashResetToken("first")
	second := internal.HashResetToken("second")

	if err := store.Save(ctx, "user@example.com", first, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "user@example.com", second, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Validate(ctx, "user@example.com", first); !errors.Is(err, ErrResetMismatch) {
		t.Fatalf("expected first token to be dead, got %v", err)
	}
	if err := store.Validate(ctx, "user@example.com", second); err != nil {
		t.Fatalf("expected second token to validate: %v", err)
	}
}

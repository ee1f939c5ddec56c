package limiter

import (
	"errors"
	"testing"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/middleware"
)

func pass(*middleware.Context) error { return nil }

func TestRateLimiter(t *testing.T) {
	t.Run("allows the burst then rejects", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 2)
		ctx := &middleware.Context{ClientID: "a"}
		for i := 0; i < 2; i++ {
			if err := limiter.Execute(ctx, pass); err != nil {
				t.Fatalf("request %d: %v", i, err)
			}
		}
		if err := limiter.Execute(ctx, pass); !errors.Is(err, kgperrors.ErrRateLimited) {
			t.Fatalf("err = %v, want ErrRateLimited", err)
		}
	})

	t.Run("clients have separate buckets", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 1)
		if err := limiter.Execute(&middleware.Context{ClientID: "a"}, pass); err != nil {
			t.Fatal(err)
		}
		if err := limiter.Execute(&middleware.Context{ClientID: "b"}, pass); err != nil {
			t.Fatalf("second client throttled: %v", err)
		}
		if limiter.Clients() != 2 {
			t.Fatalf("Clients = %d", limiter.Clients())
		}
	})

	t.Run("reset refills", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 1)
		ctx := &middleware.Context{ClientID: "a"}
		limiter.Execute(ctx, pass)
		limiter.Reset()
		if err := limiter.Execute(ctx, pass); err != nil {
			t.Fatalf("after reset: %v", err)
		}
	})

	t.Run("zero rate disables limiting", func(t *testing.T) {
		limiter := NewRateLimiter(0, 0)
		ctx := &middleware.Context{}
		for i := 0; i < 100; i++ {
			if err := limiter.Execute(ctx, pass); err != nil {
				t.Fatalf("request %d: %v", i, err)
			}
		}
	})
}

package lookup

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo(t *testing.T) {
	t.Run("success passes value through", func(t *testing.T) {
		got, err := Do(context.Background(), time.Second, func(context.Context) (string, error) {
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if got != "ok" {
			t.Errorf("Do() = %q, want ok", got)
		}
	})

	t.Run("error wraps ErrUnavailable", func(t *testing.T) {
		cause := errors.New("boom")
		_, err := Do(context.Background(), time.Second, func(context.Context) (int, error) {
			return 0, cause
		})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("Do() error = %v, want ErrUnavailable", err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("Do() error = %v, want wrapped cause", err)
		}
	})

	t.Run("timeout wraps ErrUnavailable", func(t *testing.T) {
		start := time.Now()
		_, err := Do(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("Do() error = %v, want ErrUnavailable", err)
		}
		if time.Since(start) > time.Second {
			t.Error("Do() did not honor the timeout")
		}
	})

	t.Run("parent cancellation is not wrapped", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Do(ctx, time.Second, func(ctx context.Context) (int, error) {
			return 0, ctx.Err()
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() error = %v, want context.Canceled", err)
		}
		if errors.Is(err, ErrUnavailable) {
			t.Error("parent cancellation should not be reported as unavailable")
		}
	})
}

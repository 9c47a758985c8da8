package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
)

// callCapability bounds one capability call by timeout. The call runs on its
// own goroutine so a capability that ignores ctx still cannot hold the cycle.
func callCapability[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		v, err := fn(ctx)
		if err != nil {
			return zero, capabilityError(name, err)
		}
		return v, nil
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(cctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return zero, capabilityError(name, r.err)
		}
		return r.v, nil
	case <-cctx.Done():
		return zero, fmt.Errorf("%w: %s: %w", contractx.ErrCapabilityUnavailable, name, cctx.Err())
	}
}

func capabilityError(name string, err error) error {
	if errors.Is(err, contractx.ErrCapabilityUnavailable) || errors.Is(err, contractx.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", contractx.ErrCapabilityUnavailable, name, err)
}

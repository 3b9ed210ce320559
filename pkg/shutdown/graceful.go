package shutdown

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"
)

// WithSignals cancels the returned context on SIGINT or SIGTERM.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// Func stops one component within the deadline carried by ctx.
type Func func(ctx context.Context) error

// Run calls every stop func in order under a shared timeout and joins their
// errors. Later funcs still run when an earlier one fails.
func Run(timeout time.Duration, stops ...Func) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, stop := range stops {
		if stop == nil {
			continue
		}
		if err := stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

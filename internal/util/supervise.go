package util

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hydrox/hydrox/internal/ui"
)

// Supervise runs fn until ctx is cancelled. If fn panics or returns
// before ctx is done, it is restarted after restartDelay.
func Supervise(ctx context.Context, name string, restartDelay time.Duration, fn func(ctx context.Context) error) error {
	for {
		err := runRecovered(ctx, fn)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			ui.Error("%s failed, restarting in %s: %v", name, restartDelay, err)
		} else {
			ui.Warning("%s stopped unexpectedly, restarting in %s", name, restartDelay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(restartDelay):
		}
	}
}

func runRecovered(ctx context.Context, fn func(ctx context.Context) error) error {
	return Recover(func() error {
		return fn(ctx)
	})
}

// Recover runs fn and converts a panic into an error
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

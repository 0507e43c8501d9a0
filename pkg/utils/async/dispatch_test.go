package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/utils/async"
)

type ctxKey struct{}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("background task did not run")
	}
}

func TestDispatch_OutlivesRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "case-1"))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	var taskErr error
	var value any

	async.Dispatch(ctx, "test_task", func(ctx context.Context) error {
		close(started)
		<-release
		taskErr = ctx.Err()
		value = ctx.Value(ctxKey{})
		close(done)
		return nil
	})

	wait(t, started)
	cancel()
	close(release)
	wait(t, done)

	gt.NoError(t, taskErr)
	gt.Value(t, value).Equal(any("case-1"))
}

func TestDispatch_ErrorAndPanicAreContained(t *testing.T) {
	errDone := make(chan struct{})
	async.Dispatch(context.Background(), "failing_task", func(ctx context.Context) error {
		defer close(errDone)
		return errors.New("slack unavailable")
	})
	wait(t, errDone)

	panicDone := make(chan struct{})
	async.Dispatch(context.Background(), "panicking_task", func(ctx context.Context) error {
		defer close(panicDone)
		panic("boom")
	})
	wait(t, panicDone)

	// the process is still alive and later tasks still run
	next := make(chan struct{})
	async.Dispatch(context.Background(), "next_task", func(ctx context.Context) error {
		close(next)
		return nil
	})
	wait(t, next)
}

package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/utils/errutil"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/secmon-lab/collectdesk/pkg/utils/metrics"
)

// Dispatch runs a background task in a new goroutine. The task gets a
// context that outlives the request but keeps its logger. Errors and panics
// are reported through errutil and counted per task name.
func Dispatch(ctx context.Context, task string, handler func(ctx context.Context) error) {
	bgCtx := context.WithoutCancel(ctx)
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger.With("task", task))
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				metrics.RecordBackgroundTask(task, "panic")
				errutil.Handle(bgCtx, goerr.New("panic in background task",
					goerr.V("task", task), goerr.V("panic", r)), "background task panicked")
			}
		}()

		if err := handler(bgCtx); err != nil {
			metrics.RecordBackgroundTask(task, "error")
			errutil.Handle(bgCtx, err, "background task failed")
			return
		}
		metrics.RecordBackgroundTask(task, "success")
	}()
}

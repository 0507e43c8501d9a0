package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
)

// Close closes an uploaded file, export output or response body and logs a
// failure. Nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Write writes a response body after headers are sent, when nothing but
// logging is left to do on failure. It reports how much was written.
func Write(ctx context.Context, w io.Writer, data []byte) int {
	if w == nil {
		return 0
	}
	n, err := w.Write(data)
	if err != nil {
		logging.From(ctx).Error("Failed to write",
			slog.Any("error", err),
			slog.Int("written", n),
			slog.Int("size", len(data)),
		)
	}
	return n
}

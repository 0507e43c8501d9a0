package safe_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/utils/safe"
)

type failingWriter struct{ limit int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		return w.limit, errors.New("connection reset")
	}
	return len(p), nil
}

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return errors.New("already closed")
}

func TestWrite(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	gt.Value(t, safe.Write(ctx, &buf, []byte("Reference,Debtor\n"))).Equal(17)
	gt.Value(t, buf.String()).Equal("Reference,Debtor\n")

	gt.Value(t, safe.Write(ctx, &failingWriter{limit: 4}, []byte("Reference"))).Equal(4)
	gt.Value(t, safe.Write(ctx, nil, []byte("x"))).Equal(0)
}

func TestClose(t *testing.T) {
	c := &closer{}
	safe.Close(context.Background(), c)
	gt.Bool(t, c.closed).True()

	safe.Close(context.Background(), nil)
}

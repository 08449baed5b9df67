package util

import (
	"context"
	"errors"
	"sync"
)

// ErrChannelClosed is returned from Err() when a context returned from WithDone is closed after
// the provided channel is closed.
var ErrChannelClosed = errors.New("channel closed")

// WithDone derives a context that is also cancelled when done is closed, e.g. when a component
// shuts down. If done closed first, Err returns ErrChannelClosed; otherwise the error of the
// parent context.
func WithDone(parent context.Context, done <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	c := &doneCtx{Context: ctx}
	go func() {
		select {
		case <-done:
			c.mu.Lock()
			c.err = ErrChannelClosed
			c.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return c, cancel
}

type doneCtx struct {
	context.Context
	mu  sync.Mutex
	err error
}

func (c *doneCtx) Err() error {
	c.mu.Lock()
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.Context.Err()
}

// ABOUTME: Background preload task handle
// ABOUTME: Carries its key, cancellation and completion signal
package preload

import (
	"context"
	"path/filepath"
)

// task is one queued background decode. At most one exists per key.
type task struct {
	key    string
	cache  *Cache
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newTask(c *Cache, key string) *task {
	ctx, cancel := context.WithCancel(c.ctx)
	return &task{
		key:    key,
		cache:  c,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// run decodes and stores the buffer unless the task was cancelled. Failures
// are logged and dropped; a later synchronous load reports them.
func (t *task) run() {
	defer close(t.done)
	defer t.cache.finish(t)
	defer t.cancel()

	if t.ctx.Err() != nil {
		return
	}

	buf, durationMs, err := t.cache.dec.DecodeContext(t.ctx, t.key)
	if err != nil {
		t.cache.log.Debug("preload failed", "path", filepath.Base(t.key), "err", err)
		return
	}
	t.cache.store(t.ctx, t.key, buf, durationMs)
	t.cache.log.Debug("preloaded", "path", filepath.Base(t.key), "duration_ms", durationMs)
}

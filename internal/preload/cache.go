// ABOUTME: Bounded LRU cache of decoded audio buffers with background preloading
// ABOUTME: Evicts under a byte limit that shrinks with system memory pressure
package preload

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cuedeck/cuedeck/pkg/audio"
	"golang.org/x/sync/singleflight"
)

const (
	MinLimitMB     = 64
	MaxLimitMB     = 8192
	DefaultLimitMB = 256

	DefaultWorkers   = 2
	DefaultQueueSize = 256
)

// ErrClosed is returned by GetOrDecode after Close
var ErrClosed = errors.New("preload cache closed")

// Decoder produces buffers for the cache
type Decoder interface {
	DecodeContext(ctx context.Context, path string) (*audio.Buffer, int, error)
}

// Policy controls what the cache keeps
type Policy struct {
	Enabled       bool
	LimitBytes    int64
	PressureAware bool
}

// DefaultPolicy is disabled with a 256 MB pressure-aware limit
func DefaultPolicy() Policy {
	return Policy{
		Enabled:       false,
		LimitBytes:    DefaultLimitMB * mb,
		PressureAware: true,
	}
}

// Entry is one cached buffer
type Entry struct {
	Key        string
	Buffer     *audio.Buffer
	DurationMs int
	SizeBytes  int64
}

// Options configures a Cache
type Options struct {
	Policy    Policy
	Workers   int
	QueueSize int
	// Memory defaults to SystemMemory
	Memory MemoryStats
	Logger *log.Logger
}

// Cache is a concurrency-safe LRU of decoded buffers keyed by normalized path
type Cache struct {
	log    *log.Logger
	dec    Decoder
	memory MemoryStats

	mu     sync.Mutex
	policy Policy
	paused bool
	closed bool
	order  *list.List // front is most recently used; values are *Entry
	index  map[string]*list.Element
	total  int64
	tasks  map[string]*task

	jobs    chan *task
	flights singleflight.Group

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a cache and starts its worker pool
func New(dec Decoder, opts Options) *Cache {
	if opts.Workers < DefaultWorkers {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Memory == nil {
		opts.Memory = SystemMemory
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Policy.LimitBytes <= 0 {
		opts.Policy.LimitBytes = DefaultLimitMB * mb
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		log:    opts.Logger.WithPrefix("preload"),
		dec:    dec,
		memory: opts.Memory,
		policy: opts.Policy,
		order:  list.New(),
		index:  make(map[string]*list.Element),
		tasks:  make(map[string]*task),
		jobs:   make(chan *task, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go c.worker()
	}
	return c
}

// NormalizeKey maps a path to its cache key: absolute and cleaned, and
// lower-cased on case-insensitive Windows file systems.
func NormalizeKey(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if runtime.GOOS == "windows" {
		abs = strings.ToLower(abs)
	}
	return abs
}

// Configure sets the policy from operator settings; limitMB is clamped to
// [MinLimitMB, MaxLimitMB].
func (c *Cache) Configure(enabled bool, limitMB int, pressureAware bool) {
	limitMB = max(MinLimitMB, min(MaxLimitMB, limitMB))
	c.SetPolicy(Policy{
		Enabled:       enabled,
		LimitBytes:    int64(limitMB) * mb,
		PressureAware: pressureAware,
	})
}

// SetPolicy installs p verbatim. Disabling drops every entry and cancels
// in-flight preloads; otherwise the new bound is enforced immediately.
func (c *Cache) SetPolicy(p Policy) {
	if p.LimitBytes <= 0 {
		p.LimitBytes = MinLimitMB * mb
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.policy = p
	if !p.Enabled {
		c.paused = false
		c.cancelTasksLocked()
		clear(c.tasks)
		c.order.Init()
		clear(c.index)
		c.total = 0
		c.log.Debug("cache disabled")
		return
	}
	c.evictLocked()
	c.log.Debug("cache policy set", "limit_mb", p.LimitBytes/mb, "pressure", p.PressureAware)
}

// Policy returns the active policy
func (c *Cache) Policy() Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy
}

// SetPaused stops accepting preload requests while paused; pausing also
// cancels outstanding tasks.
func (c *Cache) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.paused = paused
	if paused {
		c.cancelTasksLocked()
	}
}

// Enforce re-runs eviction against the current memory bound
func (c *Cache) Enforce() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.policy.Enabled {
		c.evictLocked()
	}
}

// Get returns a cached entry and marks it most recently used
func (c *Cache) Get(path string) (*Entry, bool) {
	key := NormalizeKey(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.policy.Enabled {
		return nil, false
	}
	return c.getLocked(key)
}

func (c *Cache) getLocked(key string) (*Entry, bool) {
	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*Entry), true
}

// GetOrDecode returns the buffer for path, decoding synchronously on a miss.
// A miss for a path whose preload is in flight waits for that preload;
// concurrent misses for one path share a single decode. Decode failures are
// returned unchanged.
func (c *Cache) GetOrDecode(ctx context.Context, path string) (*audio.Buffer, int, error) {
	key := NormalizeKey(path)
	if key == "" {
		key = path
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, 0, ErrClosed
	}
	if c.policy.Enabled {
		if e, ok := c.getLocked(key); ok {
			c.mu.Unlock()
			return e.Buffer, e.DurationMs, nil
		}
	}
	var pending <-chan struct{}
	if t, ok := c.tasks[key]; ok {
		pending = t.done
	}
	c.mu.Unlock()

	if pending != nil {
		select {
		case <-pending:
			if e, ok := c.Get(key); ok {
				return e.Buffer, e.DurationMs, nil
			}
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}

	v, err, shared := c.flights.Do(key, func() (any, error) {
		buf, durationMs, err := c.dec.DecodeContext(ctx, key)
		if err != nil {
			return nil, err
		}
		c.store(context.Background(), key, buf, durationMs)
		return &Entry{Key: key, Buffer: buf, DurationMs: durationMs, SizeBytes: buf.SizeBytes()}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	if shared {
		c.log.Debug("shared synchronous decode", "path", filepath.Base(key))
	}
	e := v.(*Entry)
	return e.Buffer, e.DurationMs, nil
}

// RequestPreload queues background decodes. Paths that are already cached,
// already queued, or missing on disk are skipped, as is everything while the
// cache is disabled or paused. It returns the number of tasks queued.
func (c *Cache) RequestPreload(paths ...string) int {
	c.mu.Lock()
	accepting := c.policy.Enabled && !c.paused && !c.closed
	c.mu.Unlock()
	if !accepting {
		return 0
	}

	queued := 0
	for _, p := range paths {
		key := NormalizeKey(p)
		if key == "" {
			continue
		}
		if _, err := os.Stat(key); err != nil {
			continue
		}

		c.mu.Lock()
		if !c.policy.Enabled || c.paused || c.closed {
			c.mu.Unlock()
			break
		}
		if _, ok := c.index[key]; ok {
			c.mu.Unlock()
			continue
		}
		if _, ok := c.tasks[key]; ok {
			c.mu.Unlock()
			continue
		}
		t := newTask(c, key)
		select {
		case c.jobs <- t:
			c.tasks[key] = t
			queued++
		default:
			t.cancel()
			c.log.Debug("preload queue full, dropping", "path", filepath.Base(key))
		}
		c.mu.Unlock()
	}
	return queued
}

// Status reports whether the cache is enabled and how many preloads are queued or running
func (c *Cache) Status() (enabled bool, active int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Enabled, len(c.tasks)
}

// Capacity returns the room left under the effective limit, the effective
// limit itself and the bytes in use
func (c *Cache) Capacity() (remaining, effective, used int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	effective = c.effectiveLimitLocked()
	used = c.total
	return max(0, effective-used), effective, used
}

// MemoryLimits suggests bounds for a cache size setting: total memory, the
// reserve kept free, and the largest sensible limit, all in MB.
func (c *Cache) MemoryLimits() (totalMB, reserveMB, maxLimitMB int) {
	total, _, err := c.memory()
	if err != nil || total == 0 {
		return 4096, 410, 3686
	}
	reserve := reserveBytes(total)
	maxLimit := max(int64(minReserveBytes), int64(total)-reserve)
	return max(256, int(total/mb)), max(128, int(reserve/mb)), max(128, int(maxLimit/mb))
}

// Len is the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys lists cached keys from most to least recently used
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*Entry).Key)
	}
	return keys
}

// Close cancels outstanding preloads and stops the worker pool
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.cancelTasksLocked()
		c.mu.Unlock()

		c.cancel()
		c.wg.Wait()
	})
	return nil
}

// store inserts a buffer as most recently used and evicts down to the bound.
// Buffers larger than the configured limit are not kept, and nothing is
// stored once ctx is cancelled.
func (c *Cache) store(ctx context.Context, key string, buf *audio.Buffer, durationMs int) {
	size := buf.SizeBytes()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.policy.Enabled || ctx.Err() != nil {
		return
	}
	if el, ok := c.index[key]; ok {
		c.total -= el.Value.(*Entry).SizeBytes
		c.order.Remove(el)
		delete(c.index, key)
	}
	if size > c.policy.LimitBytes {
		c.log.Debug("buffer larger than cache limit, not stored",
			"path", filepath.Base(key), "size_mb", size/mb)
		return
	}

	e := &Entry{Key: key, Buffer: buf, DurationMs: durationMs, SizeBytes: size}
	c.index[key] = c.order.PushFront(e)
	c.total += size
	c.evictLocked()
}

// evictLocked drops least recently used entries until the total fits
func (c *Cache) evictLocked() {
	limit := c.effectiveLimitLocked()
	for c.total > limit && c.order.Len() > 0 {
		el := c.order.Back()
		e := el.Value.(*Entry)
		c.order.Remove(el)
		delete(c.index, e.Key)
		c.total -= e.SizeBytes
		c.log.Debug("evicted", "path", filepath.Base(e.Key), "size_kb", e.SizeBytes/1024)
	}
}

// effectiveLimitLocked is the configured limit, further bounded by available
// memory minus the reserve when pressure-aware. Unreadable metrics leave the
// configured limit in force.
func (c *Cache) effectiveLimitLocked() int64 {
	limit := c.policy.LimitBytes
	if !c.policy.PressureAware {
		return limit
	}
	total, available, err := c.memory()
	if err != nil || total == 0 {
		return limit
	}
	pressure := max(0, int64(available)-reserveBytes(total))
	return min(limit, pressure)
}

func (c *Cache) cancelTasksLocked() {
	for _, t := range c.tasks {
		t.cancel()
	}
}

// finish forgets t if it is still the registered task for its key
func (c *Cache) finish(t *task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tasks[t.key] == t {
		delete(c.tasks, t.key)
	}
}

func (c *Cache) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			c.drain()
			return
		case t := <-c.jobs:
			t.run()
		}
	}
}

// drain releases tasks still queued at shutdown so waiters wake up
func (c *Cache) drain() {
	for {
		select {
		case t := <-c.jobs:
			t.cancel()
			t.run()
		default:
			return
		}
	}
}

func (c *Cache) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("preload.Cache{entries: %d, bytes: %d, tasks: %d}", c.order.Len(), c.total, len(c.tasks))
}

// ABOUTME: Timer-driven volume fades and delayed actions
// ABOUTME: Runs off the audio thread and only writes voice volumes
package engine

import (
	"container/heap"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cuedeck/cuedeck/internal/clock"
)

// minFadeDuration is the shortest fade the scheduler will run
const minFadeDuration = 10 * time.Millisecond

// Direction of a fade
type Direction int

const (
	DirectionNone Direction = iota
	DirectionIn
	DirectionOut
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	default:
		return "none"
	}
}

// FadeJob is one running volume ramp
type FadeJob struct {
	Voice          *Voice
	Start          int
	End            int
	Direction      Direction
	StartedAt      time.Time
	Duration       time.Duration
	StopOnComplete bool
}

// FadeScheduler ramps voice volumes on Tick. At most one job runs per voice;
// starting a new fade replaces the previous one.
type FadeScheduler struct {
	clock clock.Clock
	log   *log.Logger

	mu      sync.Mutex
	jobs    map[*Voice]*FadeJob
	pending *ActionQueue
	seq     uint64
}

// NewFadeScheduler creates a scheduler reading time from c
func NewFadeScheduler(c clock.Clock, logger *log.Logger) *FadeScheduler {
	return &FadeScheduler{
		clock:   c,
		log:     logger.WithPrefix("fade"),
		jobs:    make(map[*Voice]*FadeJob),
		pending: NewActionQueue(),
	}
}

// Start ramps v from its current volume to target over d. A fade to the
// volume the voice already has creates no job; a non-positive duration
// applies the target immediately.
func (f *FadeScheduler) Start(v *Voice, target int, d time.Duration, stopOnComplete bool) {
	target = min(max(target, 0), 100)
	current := v.Volume()

	f.mu.Lock()
	delete(f.jobs, v)
	if target == current {
		f.mu.Unlock()
		if stopOnComplete && target == 0 {
			v.Stop()
		}
		return
	}
	if d <= 0 {
		f.mu.Unlock()
		v.SetVolume(target)
		if stopOnComplete {
			v.Stop()
		}
		return
	}

	dir := DirectionIn
	if target < current {
		dir = DirectionOut
	}
	f.jobs[v] = &FadeJob{
		Voice:          v,
		Start:          current,
		End:            target,
		Direction:      dir,
		StartedAt:      f.clock.Now(),
		Duration:       max(d, minFadeDuration),
		StopOnComplete: stopOnComplete,
	}
	f.mu.Unlock()

	f.log.Debug("fade started", "voice", v.Name(), "from", current, "to", target, "dir", dir, "duration", d)
}

// Cancel drops any fade running on v, leaving its volume where it is
func (f *FadeScheduler) Cancel(v *Voice) {
	f.mu.Lock()
	delete(f.jobs, v)
	f.mu.Unlock()
}

// Active reports whether any fade is running
func (f *FadeScheduler) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs) > 0
}

// Job returns a copy of the fade running on v
func (f *FadeScheduler) Job(v *Voice) (FadeJob, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[v]
	if !ok {
		return FadeJob{}, false
	}
	return *job, true
}

// After runs fn on the first Tick at or after now+d
func (f *FadeScheduler) After(d time.Duration, fn func()) {
	f.mu.Lock()
	f.seq++
	heap.Push(f.pending, Action{At: f.clock.Now().Add(d), Seq: f.seq, Run: fn})
	f.mu.Unlock()
}

// Pending is the number of delayed actions not yet run
func (f *FadeScheduler) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending.Len()
}

// Tick advances every fade to now and runs due actions. Voices whose fade
// completed with StopOnComplete are stopped.
func (f *FadeScheduler) Tick(now time.Time) {
	var stops []*Voice
	var due []Action

	f.mu.Lock()
	for v, job := range f.jobs {
		ratio := 1.0
		if job.Duration > 0 {
			ratio = float64(now.Sub(job.StartedAt)) / float64(job.Duration)
		}
		ratio = min(max(ratio, 0), 1)

		v.SetVolume(int(float64(job.Start) + float64(job.End-job.Start)*ratio))
		if ratio >= 1 {
			delete(f.jobs, v)
			if job.StopOnComplete {
				stops = append(stops, v)
			}
		}
	}
	for f.pending.Len() > 0 && !f.pending.Peek().At.After(now) {
		due = append(due, heap.Pop(f.pending).(Action))
	}
	f.mu.Unlock()

	for _, v := range stops {
		v.Stop()
	}
	for _, a := range due {
		a.Run()
	}
}

// Clear drops every fade and pending action
func (f *FadeScheduler) Clear() {
	f.mu.Lock()
	clear(f.jobs)
	f.pending = NewActionQueue()
	f.mu.Unlock()
}

// Action is a callback due at a point in time
type Action struct {
	At  time.Time
	Seq uint64
	Run func()
}

// ActionQueue is a priority queue of actions ordered by due time, then by
// insertion order
type ActionQueue struct {
	items []Action
}

func NewActionQueue() *ActionQueue {
	q := &ActionQueue{}
	heap.Init(q)
	return q
}

// Implement heap.Interface
func (q *ActionQueue) Len() int { return len(q.items) }

func (q *ActionQueue) Less(i, j int) bool {
	if q.items[i].At.Equal(q.items[j].At) {
		return q.items[i].Seq < q.items[j].Seq
	}
	return q.items[i].At.Before(q.items[j].At)
}

func (q *ActionQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *ActionQueue) Push(x any) {
	q.items = append(q.items, x.(Action))
}

func (q *ActionQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}

func (q *ActionQueue) Peek() Action {
	return q.items[0]
}

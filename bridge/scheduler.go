package bridge

import (
	"context"
	"sync"
)

// scheduler drives submitted tasks one at a time on a dedicated goroutine.
type scheduler struct {
	id    string
	tasks chan func()
	done  chan struct{}

	mu      sync.Mutex
	stopped bool
}

func newScheduler(id string) *scheduler {
	s := &scheduler{
		id:    id,
		tasks: make(chan func(), 1),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *scheduler) loop() {
	defer close(s.done)
	for task := range s.tasks {
		task()
	}
}

func (s *scheduler) submit(task func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.tasks <- task
	return true
}

// stop lets queued tasks finish and never blocks on them.
func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.tasks)
}

type schedulerKey struct{}

type schedulerMarker struct {
	id string
}

func withScheduler(ctx context.Context, s *scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, schedulerMarker{id: s.id})
}

// MarkDriving tags ctx as already driven by a host-owned scheduler. Calls made
// with the returned context always run on an isolated worker.
func MarkDriving(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, schedulerKey{}, schedulerMarker{id: "host"})
}

// SchedulerID returns the id of the scheduler driving ctx, if any.
func SchedulerID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	marker, ok := ctx.Value(schedulerKey{}).(schedulerMarker)
	if !ok {
		return "", false
	}
	return marker.id, true
}

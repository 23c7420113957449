// Package scheduler drives one environment's collector schedule: a bounded
// priority queue of due collectors, a per-collector Timer that re-enqueues
// it, and a worker pool that actually runs it against the graph.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tumi8/insalata-go/internal/graph/core"
	"github.com/tumi8/insalata-go/internal/graph/timer"
	"github.com/tumi8/insalata-go/internal/metrics"
)

const (
	// HighestPriority jumps the queue; used by FullScan.
	HighestPriority = 1
	// NormalPriority is used by ordinary periodic re-enqueueing.
	NormalPriority = 5
	// DefaultQueueCapacity matches the source's DEFAULT_QUEUE_SIZE.
	DefaultQueueCapacity = 20
	// dequeueTimeout is how long the scheduling loop blocks on an empty
	// queue before looping to re-check the stop signal.
	dequeueTimeout = 30 * time.Second
)

// CollectorFunc is the signature every collector module exposes: scan the
// environment described by moduleConfig and verify/mutate g accordingly.
type CollectorFunc func(ctx context.Context, g *core.Graph, moduleConfig map[string]interface{}, log *slog.Logger) error

// StateToken describes current deployment progress, read by status
// endpoints while a deployment runs.
type StateToken struct {
	mu    sync.RWMutex
	value string
}

func (s *StateToken) Set(format string, args ...interface{}) {
	s.mu.Lock()
	s.value = fmt.Sprintf(format, args...)
	s.mu.Unlock()
}

func (s *StateToken) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// moduleSpec is a registered collector's static configuration: which
// CollectorFunc to run, its per-module config map, and its interval in
// seconds (-1 meaning run once).
type moduleSpec struct {
	fn       CollectorFunc
	config   map[string]interface{}
	interval int
}

// Scheduler owns one environment's graph, its collector schedule, its
// worker pool, and its deployment state token.
type Scheduler struct {
	name  string
	graph *core.Graph
	log   *slog.Logger

	queue *BoundedQueue

	mu      sync.Mutex
	modules map[string]moduleSpec
	timers  map[string]*timer.Timer

	workersMu sync.Mutex
	workers   map[string]context.CancelFunc
	wg        sync.WaitGroup

	limiter *rate.Limiter

	State *StateToken

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Scheduler for g with a bounded queue of the given capacity
// (DefaultQueueCapacity if zero) and a rate limiter bounding how fast new
// collector workers may be spawned, guarding against a burst of
// simultaneously-due collectors overwhelming downstream systems.
func New(name string, g *core.Graph, capacity int, spawnLimiter *rate.Limiter, log *slog.Logger) *Scheduler {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	if spawnLimiter == nil {
		spawnLimiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Scheduler{
		name:    name,
		graph:   g,
		log:     log,
		queue:   NewBoundedQueue(capacity),
		modules: map[string]moduleSpec{},
		timers:  map[string]*timer.Timer{},
		workers: map[string]context.CancelFunc{},
		limiter: spawnLimiter,
		State:   &StateToken{},
		stopCh:  make(chan struct{}),
	}
}

// RegisterCollector adds a collector module to the schedule. intervalSec
// < 0 means the collector runs exactly once, immediately, at
// HighestPriority's sibling NormalPriority, and is never rearmed.
func (s *Scheduler) RegisterCollector(name string, fn CollectorFunc, moduleConfig map[string]interface{}, intervalSec int) {
	s.mu.Lock()
	s.modules[name] = moduleSpec{fn: fn, config: moduleConfig, interval: intervalSec}
	s.mu.Unlock()

	if intervalSec < 0 {
		s.log.Warn("collector has no interval, will run once", "collector", name)
		if err := s.queue.Put(Job{Priority: NormalPriority, Interval: intervalSec, Collector: name}); err != nil {
			s.log.Error("failed to enqueue one-shot collector", "collector", name, "error", err)
			metrics.QueueDropsTotal.WithLabelValues(s.name).Inc()
		}
		return
	}
	s.armTimer(name, intervalSec)
}

func (s *Scheduler) armTimer(name string, intervalSec int) {
	t := timer.New(time.Duration(intervalSec)*time.Second, func() { s.executeScan(name, intervalSec) })
	s.mu.Lock()
	s.timers[name] = t
	s.mu.Unlock()
	t.Start()
}

func (s *Scheduler) executeScan(name string, intervalSec int) {
	if err := s.queue.Put(Job{Priority: NormalPriority, Interval: intervalSec, Collector: name}); err != nil {
		s.log.Error("queue is full, dropping scan", "collector", name, "error", err)
		metrics.QueueDropsTotal.WithLabelValues(s.name).Inc()
	}
}

// Run drives the scheduling loop: blocking-dequeue with a bounded wait; on
// each job, resolve its module spec and spawn a worker. Run blocks until
// Shutdown is called.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-s.queue.Signal():
		case <-time.After(dequeueTimeout):
		}

		for {
			job, ok := s.queue.TryGet()
			if !ok {
				break
			}
			s.dispatch(ctx, job)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, job Job) {
	s.mu.Lock()
	spec, ok := s.modules[job.Collector]
	s.mu.Unlock()
	if !ok {
		s.log.Error("no configuration for collector", "collector", job.Collector)
		return
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	s.workersMu.Lock()
	s.workers[job.Collector] = cancel
	s.workersMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.log.Debug("starting collector", "collector", job.Collector)
		if err := spec.fn(workerCtx, s.graph, spec.config, s.log); err != nil {
			s.log.Error("collector failed", "collector", job.Collector, "error", err)
			metrics.CollectorFailuresTotal.WithLabelValues(s.name, job.Collector).Inc()
		}
		s.workersMu.Lock()
		delete(s.workers, job.Collector)
		s.workersMu.Unlock()

		if job.Interval >= 0 {
			s.mu.Lock()
			t := s.timers[job.Collector]
			s.mu.Unlock()
			if t != nil {
				t.Start()
			}
		}
	}()
}

// FullScan cancels every periodic Timer, drains the queue of stale jobs,
// and enqueues every known collector at HighestPriority with interval -1
// (run once, do not reschedule until its own Timer is rearmed normally).
func (s *Scheduler) FullScan() {
	s.log.Info("full scan requested")
	s.mu.Lock()
	for _, t := range s.timers {
		t.Cancel()
	}
	names := make([]string, 0, len(s.modules))
	for name := range s.modules {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.queue.Cancel(name)
		if err := s.queue.Put(Job{Priority: HighestPriority, Interval: -1, Collector: name}); err != nil {
			s.log.Error("job queue is full, cannot enqueue full scan", "collector", name)
			metrics.QueueDropsTotal.WithLabelValues(s.name).Inc()
		}
	}
}

// Freeze pauses the graph's own timers, every collector Timer, and signals
// every running worker to stop, then waits for them to finish.
func (s *Scheduler) Freeze() {
	s.graph.Freeze()
	s.mu.Lock()
	for _, t := range s.timers {
		t.Pause()
	}
	s.mu.Unlock()

	s.workersMu.Lock()
	for _, cancel := range s.workers {
		cancel()
	}
	s.workersMu.Unlock()
	s.wg.Wait()
}

// Melt resumes the graph's timers and every collector Timer paused by
// Freeze.
func (s *Scheduler) Melt() {
	s.graph.Melt()
	s.mu.Lock()
	for _, t := range s.timers {
		t.Resume()
	}
	s.mu.Unlock()
}

// Shutdown cancels every Timer, stops every worker, and signals Run to
// return, then waits for in-flight workers to finish.
func (s *Scheduler) Shutdown() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.mu.Lock()
	for _, t := range s.timers {
		t.Cancel()
	}
	s.mu.Unlock()

	s.workersMu.Lock()
	for _, cancel := range s.workers {
		cancel()
	}
	s.workersMu.Unlock()
	s.wg.Wait()
}

// Package exporter streams graph changes to external sinks. Continuous
// exporters subscribe to a graph's change streams at construction and
// buffer events for periodic flushing; triggered exporters are plain
// callables invoked on a timer with a snapshot of the graph.
package exporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tumi8/insalata-go/internal/graph/core"
	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

// Event is one graph change, normalized across onNew/onChanged/onDeleted
// for delivery to a Sink.
type Event struct {
	Kind       string // "new", "changed", "deleted"
	ObjectType string
	GlobalID   string
	Values     map[string]interface{}
	At         time.Time
}

// Sink receives batches of buffered Events. A batch whose Write fails is
// logged and dropped by the continuous exporter; it is not redelivered.
type Sink interface {
	Write(ctx context.Context, events []Event) error
}

// DefaultBufferSize bounds a continuous exporter's event channel; a slow
// sink drops events past this rather than blocking graph mutations.
const DefaultBufferSize = 1000

// Continuous subscribes to a graph's aggregated change streams and
// flushes buffered events to a Sink on a fixed interval, via a buffered
// channel and a broadcast worker goroutine.
type Continuous struct {
	sink     Sink
	interval time.Duration
	log      *slog.Logger

	events chan Event

	subs struct {
		new, changed, deleted eventbus.Subscription
	}
	graph *core.Graph

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewContinuous creates a Continuous exporter subscribed to g. Call Start
// to begin flushing, Stop to unsubscribe and drain.
func NewContinuous(g *core.Graph, sink Sink, interval time.Duration, log *slog.Logger) *Continuous {
	if log == nil {
		log = slog.Default()
	}
	c := &Continuous{
		sink:     sink,
		interval: interval,
		log:      log,
		events:   make(chan Event, DefaultBufferSize),
		graph:    g,
		stopCh:   make(chan struct{}),
	}

	c.subs.new = g.OnNew().Subscribe(c.handler("new"))
	c.subs.changed = g.OnChanged().Subscribe(c.handler("changed"))
	c.subs.deleted = g.OnDeleted().Subscribe(c.handler("deleted"))

	return c
}

func (c *Continuous) handler(kind string) func(sender interface{}, args eventbus.Args) {
	return func(sender interface{}, args eventbus.Args) {
		globalID := ""
		if n, ok := sender.(core.GraphNode); ok {
			globalID = n.GlobalID()
		}
		select {
		case c.events <- Event{Kind: kind, ObjectType: args.ObjectType, GlobalID: globalID, Values: args.Values}:
		default:
			c.log.Warn("exporter event buffer full, dropping event", "kind", kind, "object", globalID)
		}
	}
}

// Start launches the periodic flush loop in a goroutine.
func (c *Continuous) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

func (c *Continuous) run(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var batch []Event
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.sink.Write(ctx, batch); err != nil {
			c.log.Error("exporter sink write failed", "error", err, "events", len(batch))
		}
		batch = nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-c.stopCh:
			flush()
			return
		case e := <-c.events:
			e.At = timeNow()
			batch = append(batch, e)
		case <-ticker.C:
			flush()
		}
	}
}

// Stop unsubscribes from the graph and stops the flush loop, flushing
// whatever remains buffered first.
func (c *Continuous) Stop() {
	c.graph.OnNew().Unsubscribe(c.subs.new)
	c.graph.OnChanged().Unsubscribe(c.subs.changed)
	c.graph.OnDeleted().Unsubscribe(c.subs.deleted)
	close(c.stopCh)
	c.wg.Wait()
}

// timeNow is a seam so tests can stay deterministic without freezing the
// whole package behind an injected clock interface.
var timeNow = time.Now

// TriggeredFunc is a triggered exporter: invoked on a timer with the
// output directory and a structural snapshot of the graph (via Graph.Copy),
// mirroring the source's triggered export modules receiving a fresh copy
// rather than touching the live graph.
type TriggeredFunc func(ctx context.Context, outputDir string, snapshot *core.Graph) error

// Triggered runs fn on g on a fixed interval until stopped.
type Triggered struct {
	g         *core.Graph
	fn        TriggeredFunc
	outputDir string
	interval  time.Duration
	log       *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewTriggered(g *core.Graph, outputDir string, interval time.Duration, fn TriggeredFunc, log *slog.Logger) *Triggered {
	if log == nil {
		log = slog.Default()
	}
	return &Triggered{g: g, fn: fn, outputDir: outputDir, interval: interval, log: log, stopCh: make(chan struct{})}
}

func (t *Triggered) Start(ctx context.Context) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stopCh:
				return
			case <-ticker.C:
				snap := t.g.Copy("")
				if err := t.fn(ctx, t.outputDir, snap); err != nil {
					t.log.Error("triggered export failed", "error", err)
				}
			}
		}
	}()
}

func (t *Triggered) Stop() {
	close(t.stopCh)
	t.wg.Wait()
}

// Package environment ties one environment's config, graph, scheduler,
// dispatcher registries and exporters together, and drives the
// diff/plan/execute pipeline a command-server applyConfiguration call
// triggers. It is the orchestration point the source's EnvironmentHandler
// plays: nothing below this package knows about any other environment.
package environment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tumi8/insalata-go/internal/builder/stub"
	"github.com/tumi8/insalata-go/internal/collector/goalxml"
	collectorstub "github.com/tumi8/insalata-go/internal/collector/stub"
	"github.com/tumi8/insalata-go/internal/config"
	"github.com/tumi8/insalata-go/internal/diff"
	"github.com/tumi8/insalata-go/internal/dispatcher"
	"github.com/tumi8/insalata-go/internal/executor"
	"github.com/tumi8/insalata-go/internal/exporter"
	"github.com/tumi8/insalata-go/internal/graph/core"
	"github.com/tumi8/insalata-go/internal/metrics"
	"github.com/tumi8/insalata-go/internal/planner"
	"github.com/tumi8/insalata-go/internal/scheduler"
)

// goalSubdir is where UploadConfiguration stores uploaded goal documents,
// relative to an environment's data directory.
const goalSubdir = "goals"

// PlannerOptions are the planner invocation settings shared by every
// environment's applyConfiguration call; the work directory is passed to
// ApplyConfiguration separately, per environment.
type PlannerOptions struct {
	PlannerPath string
	DomainFile  string
	Search      string
}

// Environment is one named reconciliation environment: its live graph, its
// schedule of collector modules, its builder dispatch table, and its
// exporters.
type Environment struct {
	Name   string
	DataDir string

	mu    sync.RWMutex
	graph *core.Graph

	scheduler     *scheduler.Scheduler
	dispatcherReg *dispatcher.Registry
	locations     *config.LocationsRegistry
	cfg           *config.EnvironmentConfig

	exporters []continuousExporter
	triggered []triggeredExporter
	log       *slog.Logger
}

type continuousExporter interface {
	Start(ctx context.Context)
	Stop()
}

type triggeredExporter interface {
	Start(ctx context.Context)
	Stop()
}

// New builds an Environment from its loaded config, registering the
// illustrative builder/collector stubs this repository ships and arming
// the scheduler with every module the config declares.
func New(name string, cfg *config.EnvironmentConfig, overrides config.DispatcherOverrides, locations *config.LocationsRegistry, dataDir string, log *slog.Logger) *Environment {
	if log == nil {
		log = slog.Default()
	}
	g := core.New(name, log)

	dispatcherReg := dispatcher.NewRegistry(log)
	stub.Register(dispatcherReg, log)
	dispatcherReg.SetOverrides(overrides)

	collectorReg := dispatcher.NewCollectorRegistry()
	collectorstub.RegisterFactory(collectorReg, log)

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = scheduler.DefaultQueueCapacity
	}
	spawnRate := rate.Limit(cfg.WorkingSet)
	if cfg.WorkingSet <= 0 {
		spawnRate = rate.Inf
	}
	sched := scheduler.New(name, g, queueSize, rate.NewLimiter(spawnRate, 1), log)

	e := &Environment{
		Name:          name,
		DataDir:       dataDir,
		graph:         g,
		scheduler:     sched,
		dispatcherReg: dispatcherReg,
		locations:     locations,
		cfg:           cfg,
		log:           log,
	}

	for moduleName, m := range cfg.Modules {
		sched.RegisterCollector(moduleName, adaptCollector(collectorReg, m.Type), m.Config, m.Interval)
	}

	e.wireContinuousExporters(cfg.ContinuousExporters)
	e.wireTriggeredExporters(cfg.TriggeredExporters)

	return e
}

// adaptCollector wraps a registered collector factory as a
// scheduler.CollectorFunc: it rebuilds the collector instance on every
// invocation from the module config map handed to it, which is the map
// captured when the module was registered with the scheduler.
func adaptCollector(reg *dispatcher.CollectorRegistry, typeName string) scheduler.CollectorFunc {
	return func(ctx context.Context, g *core.Graph, moduleConfig map[string]interface{}, log *slog.Logger) error {
		built, err := reg.Build(typeName, moduleConfig)
		if err != nil {
			return fmt.Errorf("environment: build collector %q: %w", typeName, err)
		}
		switch c := built.(type) {
		case *collectorstub.Collector:
			target, _ := moduleConfig["target"].(string)
			if target == "" {
				return fmt.Errorf("environment: collector %q module config missing target", typeName)
			}
			return c.Scan(ctx, g, target)
		default:
			return fmt.Errorf("environment: collector %q has no known scan entry point", typeName)
		}
	}
}

// Start launches the scheduler loop and every continuous exporter the
// config names, and arms a full scan so a freshly started environment
// doesn't sit idle until the first module's own interval elapses.
func (e *Environment) Start(ctx context.Context) {
	go e.scheduler.Run(ctx)
	e.scheduler.FullScan()

	for _, ce := range e.exporters {
		ce.Start(ctx)
	}
	for _, te := range e.triggered {
		te.Start(ctx)
	}
}

// defaultContinuousFlushInterval is how often a continuous exporter flushes
// its buffered graph-change events, since the config schema names which
// sinks to attach but (like the source) leaves their flush cadence fixed.
const defaultContinuousFlushInterval = 5 * time.Second

// wireContinuousExporters attaches one continuous Sink per name in
// cfg.ContinuousExporters, resolved against the small set of sinks this
// repository ships (internal/exporter's JSON file, SQLite, Postgres,
// Redis and WebSocket sinks). "postgres" and "redis" read their
// connection string from cfg.ExporterTargets, keyed by the same name. An
// unresolvable name, or one missing its target, is logged and skipped
// rather than failing environment construction.
func (e *Environment) wireContinuousExporters(names []string) {
	for _, name := range names {
		var sink exporter.Sink
		switch name {
		case "json":
			sink = exporter.NewJSONFileSink(filepath.Join(e.DataDir, "export.json"))
		case "websocket":
			sink = exporter.NewWebSocketSink(e.log)
		case "sqlite":
			s, err := exporter.NewSQLiteSink(filepath.Join(e.DataDir, "export.sqlite"))
			if err != nil {
				e.log.Error("environment: failed to open sqlite exporter sink", "environment", e.Name, "error", err)
				continue
			}
			sink = s
		case "postgres":
			dsn, ok := e.cfg.ExporterTargets[name]
			if !ok || dsn == "" {
				e.log.Error("environment: postgres exporter sink missing exporterTargets.postgres", "environment", e.Name)
				continue
			}
			s, err := exporter.NewPostgresSink(context.Background(), dsn)
			if err != nil {
				e.log.Error("environment: failed to open postgres exporter sink", "environment", e.Name, "error", err)
				continue
			}
			sink = s
		case "redis":
			addr, ok := e.cfg.ExporterTargets[name]
			if !ok || addr == "" {
				e.log.Error("environment: redis exporter sink missing exporterTargets.redis", "environment", e.Name)
				continue
			}
			s, err := exporter.NewRedisSink(context.Background(), addr, "insalata."+e.Name+".events")
			if err != nil {
				e.log.Error("environment: failed to open redis exporter sink", "environment", e.Name, "error", err)
				continue
			}
			sink = s
		default:
			e.log.Warn("environment: unknown continuous exporter, skipping", "environment", e.Name, "name", name)
			continue
		}
		e.exporters = append(e.exporters, exporter.NewContinuous(e.graph, sink, defaultContinuousFlushInterval, e.log))
	}
}

// wireTriggeredExporters attaches one Triggered snapshot writer per entry
// in cfg.TriggeredExporters, writing the goal-document XML form of a graph
// snapshot into a per-name file under DataDir/snapshots on each tick.
func (e *Environment) wireTriggeredExporters(specs map[string]config.TriggeredExporterConfig) {
	for name, spec := range specs {
		if spec.Interval <= 0 {
			continue
		}
		fn := triggeredXMLSnapshot(name)
		e.triggered = append(e.triggered, exporter.NewTriggered(e.graph, e.DataDir, time.Duration(spec.Interval)*time.Second, fn, e.log))
	}
}

func triggeredXMLSnapshot(name string) exporter.TriggeredFunc {
	return func(ctx context.Context, outputDir string, snapshot *core.Graph) error {
		dir := filepath.Join(outputDir, "snapshots")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("environment: create snapshot directory: %w", err)
		}
		f, err := os.Create(filepath.Join(dir, name+".xml"))
		if err != nil {
			return fmt.Errorf("environment: create snapshot file: %w", err)
		}
		defer f.Close()
		return goalxml.Write(f, snapshot)
	}
}

// Shutdown stops the scheduler and every exporter, joining their
// goroutines.
func (e *Environment) Shutdown() {
	e.scheduler.Shutdown()
	for _, ce := range e.exporters {
		ce.Stop()
	}
	for _, te := range e.triggered {
		te.Stop()
	}
}

// Graph returns the environment's current live graph.
func (e *Environment) Graph() *core.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

// Progress reports the most recent deployment step description, or an
// empty string if no deployment has run.
func (e *Environment) Progress() string {
	return e.scheduler.State.Get()
}

func (e *Environment) goalDir() string {
	return filepath.Join(e.DataDir, goalSubdir)
}

// UploadConfiguration validates data as a goal-configuration document and
// stores it under name, overwriting any previous upload of that name. The
// validation parses it into a throwaway graph so a malformed document is
// rejected before it can ever be applied.
func (e *Environment) UploadConfiguration(name string, data []byte) error {
	scratch := core.New(e.Name+":validate", e.log)
	if err := goalxml.Collect(scratch, bytes.NewReader(data), e.log); err != nil {
		return fmt.Errorf("environment: %s: invalid goal document: %w", name, err)
	}

	if err := os.MkdirAll(e.goalDir(), 0o755); err != nil {
		return fmt.Errorf("environment: create goal directory: %w", err)
	}
	path := filepath.Join(e.goalDir(), filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("environment: write goal document %s: %w", name, err)
	}
	return nil
}

// ListFiles returns every uploaded goal-document name, sorted by file name.
func (e *Environment) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(e.goalDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("environment: list goal documents: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// GetFile returns the raw bytes of a previously uploaded goal document.
func (e *Environment) GetFile(name string) ([]byte, error) {
	path := filepath.Join(e.goalDir(), filepath.Base(name))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("environment: read goal document %s: %w", name, err)
	}
	return data, nil
}

// ApplyConfiguration loads the named goal document, diffs it against the
// environment's current graph, plans the reconciliation, and executes the
// plan's builder callables in order. On success the environment's current
// graph becomes the goal graph, mirroring the source's behavior of
// treating a completed deployment's target as the new baseline. When the
// planner finds nothing to do, the current graph is kept.
func (e *Environment) ApplyConfiguration(ctx context.Context, name string, opts PlannerOptions, workDir string) error {
	start := time.Now()
	defer func() {
		metrics.SetupDuration.WithLabelValues(e.Name).Observe(time.Since(start).Seconds())
	}()

	data, err := e.GetFile(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("environment: create planner work directory: %w", err)
	}

	goal := core.New(e.Name, e.log)
	if err := goalxml.Collect(goal, bytes.NewReader(data), e.log); err != nil {
		return fmt.Errorf("environment: %s: %w", name, err)
	}

	current := e.Graph()
	result := diff.Graphs(goal, current)

	e.scheduler.State.Set("planning deployment for %q", name)
	steps, err := planner.Run(ctx, e.log, result, planner.Options{
		PlannerPath: opts.PlannerPath,
		DomainFile:  opts.DomainFile,
		WorkDir:     workDir,
		Search:      opts.Search,
		Environment: e.Name,
	})
	if err != nil {
		return fmt.Errorf("environment: %s: plan: %w", name, err)
	}
	if steps == nil {
		e.scheduler.State.Set("no plan needed for %q", name)
		return nil
	}

	exec := executor.New(goal, current, e.dispatcherReg, e.log, &executor.StateReporter{SetState: e.scheduler.State.Set})
	exec.Run(ctx, steps)

	e.mu.Lock()
	e.graph = goal
	e.mu.Unlock()

	e.scheduler.State.Set("deployment of %q complete", name)
	return nil
}

// ExportEnvironmentToXml serializes the environment's current graph as a
// goal-configuration document.
func (e *Environment) ExportEnvironmentToXml(w io.Writer) error {
	return goalxml.Write(w, e.Graph())
}

// Locations returns the environment's resolved locations registry.
func (e *Environment) Locations() *config.LocationsRegistry {
	return e.locations
}

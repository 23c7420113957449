package environment

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tumi8/insalata-go/internal/config"
)

// Command describes one command-server RPC the way the source's
// getCommands reply does: its argument bounds and a short doc string.
type Command struct {
	Name    string
	MinArgs int
	MaxArgs int
	Doc     string
}

// commandTable is the static getCommands reply; it never depends on which
// environments happen to be loaded.
var commandTable = []Command{
	{"uploadConfiguration", 3, 3, "uploadConfiguration(env, name, xml): store a goal document"},
	{"listFiles", 1, 1, "listFiles(env): list uploaded goal documents"},
	{"getFile", 2, 2, "getFile(env, name): fetch one uploaded goal document"},
	{"applyConfiguration", 2, 2, "applyConfiguration(env, name): diff, plan and execute against the named goal document"},
	{"exportEnvironmentToXml", 2, 2, "exportEnvironmentToXml(env, name): serialize the current graph as a goal document"},
	{"getEnvironments", 0, 0, "getEnvironments(): list loaded environment names"},
	{"getSetupProgress", 1, 1, "getSetupProgress(env): report the last deployment's progress"},
	{"getCommands", 0, 0, "getCommands(): list this table"},
}

// Manager owns every loaded Environment by name, the single front door the
// command server talks to.
type Manager struct {
	mu           sync.RWMutex
	environments map[string]*Environment
	plannerOpts  PlannerOptions
	workDir      string
	log          *slog.Logger
}

// NewManager returns an empty Manager. workDir is the root under which each
// environment's applyConfiguration call gets its own subdirectory for its
// transient problem/plan files.
func NewManager(plannerOpts PlannerOptions, workDir string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		environments: map[string]*Environment{},
		plannerOpts:  plannerOpts,
		workDir:      workDir,
		log:          log,
	}
}

// LoadEnvironment reads an environment's config, dispatcher overrides and
// locations registry from disk, builds its Environment, starts it, and
// registers it under name. Loading the same name twice shuts down and
// replaces the previous instance.
func (m *Manager) LoadEnvironment(ctx context.Context, name, envConfigPath, overridesPath, locationsPath, dataDir string) error {
	cfg, err := config.LoadEnvironmentConfig(envConfigPath)
	if err != nil {
		return fmt.Errorf("environment: load %q config: %w", name, err)
	}
	overrides, err := config.LoadDispatcherOverrides(overridesPath)
	if err != nil {
		return fmt.Errorf("environment: load %q dispatcher overrides: %w", name, err)
	}
	var locations *config.LocationsRegistry
	if locationsPath != "" {
		locations, err = config.LoadLocationsRegistry(locationsPath)
		if err != nil {
			return fmt.Errorf("environment: load %q locations: %w", name, err)
		}
	} else {
		locations = config.NewLocationsRegistry()
	}

	env := New(name, cfg, overrides, locations, dataDir, m.log.With("environment", name))
	env.Start(ctx)
	m.Register(name, env)

	return nil
}

// Register installs an already-built Environment under name, replacing and
// shutting down any previous environment of that name. LoadEnvironment
// builds most environments from disk, but tests and embedders that already
// hold an *Environment use Register directly.
func (m *Manager) Register(name string, env *Environment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.environments[name]; ok {
		prev.Shutdown()
	}
	m.environments[name] = env
}

// Get returns the named environment, or false if it isn't loaded.
func (m *Manager) Get(name string) (*Environment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.environments[name]
	return e, ok
}

// Environments lists every loaded environment name, sorted.
func (m *Manager) Environments() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.environments))
	for name := range m.environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands returns the static RPC command table.
func (m *Manager) Commands() []Command {
	return commandTable
}

// ApplyConfiguration runs an environment's ApplyConfiguration using the
// manager's shared planner settings and a per-call work subdirectory.
func (m *Manager) ApplyConfiguration(ctx context.Context, envName, fileName string) error {
	env, ok := m.Get(envName)
	if !ok {
		return fmt.Errorf("environment: %q not loaded", envName)
	}
	workDir := filepath.Join(m.workDir, envName)
	return env.ApplyConfiguration(ctx, fileName, m.plannerOpts, workDir)
}

// Shutdown stops every loaded environment.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, env := range m.environments {
		env.Shutdown()
	}
}

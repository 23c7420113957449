// Package config loads the per-environment documents the daemon needs to
// run a reconciliation loop: the environment's own scheduler/exporter
// settings, its dispatcher override table, and its locations registry.
// Each document is loaded through its own viper instance (grounded on the
// teacher's viper-based Config.LoadConfig, generalized from one global
// config to many independently reloadable per-environment documents) so
// reloading one environment's configuration never disturbs another's.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// ModuleConfig is one collector module's static schedule: which collector
// type to build, how often to run it (seconds; -1 means run once), and its
// own free-form configuration map handed to the collector factory.
type ModuleConfig struct {
	Type     string                 `mapstructure:"type"`
	Interval int                    `mapstructure:"interval"`
	Config   map[string]interface{} `mapstructure:"config"`
}

// TriggeredExporterConfig is one triggered exporter's schedule.
type TriggeredExporterConfig struct {
	Interval int `mapstructure:"interval"`
}

// EnvironmentConfig is one environment's full scheduler/exporter document.
type EnvironmentConfig struct {
	DataDirectory string `mapstructure:"dataDirectory"`
	LogLevel      string `mapstructure:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	LogSize       int    `mapstructure:"logSize" validate:"gte=0"`
	BackupCount   int    `mapstructure:"backupCount" validate:"gte=0"`
	QueueSize     int    `mapstructure:"queueSize" validate:"gte=0"`
	WorkingSet    int    `mapstructure:"workingSet" validate:"gte=0"`

	Modules             map[string]ModuleConfig            `mapstructure:"modules"`
	ContinuousExporters []string                           `mapstructure:"continuousExporters"`
	TriggeredExporters  map[string]TriggeredExporterConfig `mapstructure:"triggeredExporters"`

	// ExporterTargets carries the connection string a continuous exporter
	// needs beyond its name: a Postgres DSN for "postgres", a redis:// URL
	// for "redis". Sinks with no external endpoint (json, sqlite,
	// websocket) ignore it.
	ExporterTargets map[string]string `mapstructure:"exporterTargets"`
}

// defaults mirror the source's DEFAULT_* module constants: a new
// environment that specifies nothing still gets a working, bounded queue.
func setEnvironmentDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logSize", 10485760)
	v.SetDefault("backupCount", 5)
	v.SetDefault("queueSize", 20)
	v.SetDefault("workingSet", 10)
}

// LoadEnvironmentConfig reads path (YAML or JSON, detected by viper from its
// extension) into an EnvironmentConfig, applying defaults for any key the
// document omits.
func LoadEnvironmentConfig(path string) (*EnvironmentConfig, error) {
	v := viper.New()
	setEnvironmentDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read environment config %s: %w", path, err)
	}

	var cfg EnvironmentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal environment config %s: %w", path, err)
	}
	if err := validateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate environment config %s: %w", path, err)
	}
	return &cfg, nil
}

// EnvironmentSource points at one environment's on-disk documents, the
// daemon config's entry in its environments list.
type EnvironmentSource struct {
	Name          string `mapstructure:"name" validate:"required"`
	ConfigFile    string `mapstructure:"configFile" validate:"required"`
	OverridesFile string `mapstructure:"overridesFile"`
	LocationsFile string `mapstructure:"locationsFile"`
	DataDirectory string `mapstructure:"dataDirectory"`
}

// PlannerConfig is the daemon-wide planner subprocess contract: the
// fast-downward binary and domain file every environment's
// applyConfiguration call shares.
type PlannerConfig struct {
	PlannerPath string `mapstructure:"plannerPath" validate:"required"`
	DomainFile  string `mapstructure:"domainFile" validate:"required"`
	Search      string `mapstructure:"search"`
}

// DaemonConfig is insalatad's top-level document: where it listens, which
// environments it loads at startup, and the shared planner contract.
type DaemonConfig struct {
	ListenAddr   string              `mapstructure:"listenAddr" validate:"required"`
	WorkDir      string              `mapstructure:"workDir" validate:"required"`
	Environments []EnvironmentSource `mapstructure:"environments" validate:"required,min=1,dive"`
	Planner      PlannerConfig       `mapstructure:"planner"`
}

func setDaemonDefaults(v *viper.Viper) {
	v.SetDefault("listenAddr", ":8420")
	v.SetDefault("workDir", "/var/lib/insalatad/work")
	v.SetDefault("planner.search", "")
}

// LoadDaemonConfig reads path into a DaemonConfig, applying defaults for
// any key the document omits.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	v := viper.New()
	setDaemonDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read daemon config %s: %w", path, err)
	}

	var cfg DaemonConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal daemon config %s: %w", path, err)
	}
	if err := validateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate daemon config %s: %w", path, err)
	}
	return &cfg, nil
}

// DispatcherOverrides is the per-environment override table: object global
// ID -> action -> registered builder callable name. Matches
// dispatcher.Registry.SetOverrides' shape directly.
type DispatcherOverrides map[string]map[string]string

// LoadDispatcherOverrides reads path into a DispatcherOverrides document.
// A missing file is not an error: most environments carry no overrides.
func LoadDispatcherOverrides(path string) (DispatcherOverrides, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DispatcherOverrides{}, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return DispatcherOverrides{}, nil
		}
		return nil, fmt.Errorf("config: read dispatcher overrides %s: %w", path, err)
	}

	overrides := DispatcherOverrides{}
	if err := v.Unmarshal(&overrides); err != nil {
		return nil, fmt.Errorf("config: unmarshal dispatcher overrides %s: %w", path, err)
	}
	return overrides, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEnvironmentConfigParsesModulesAndExporters(t *testing.T) {
	path := writeTempFile(t, "env.yaml", `
dataDirectory: /var/lib/insalata/lab
logLevel: debug
queueSize: 50
modules:
  xmlGoal:
    type: goalxml
    interval: -1
    config:
      path: /etc/insalata/lab/goal.xml
continuousExporters:
  - postgres
triggeredExporters:
  snapshot:
    interval: 300
`)

	cfg, err := LoadEnvironmentConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/insalata/lab", cfg.DataDirectory)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 50, cfg.QueueSize)
	assert.Equal(t, 5, cfg.BackupCount, "unset keys fall back to defaults")

	require.Contains(t, cfg.Modules, "xmlGoal")
	assert.Equal(t, "goalxml", cfg.Modules["xmlGoal"].Type)
	assert.Equal(t, -1, cfg.Modules["xmlGoal"].Interval)
	assert.Equal(t, "/etc/insalata/lab/goal.xml", cfg.Modules["xmlGoal"].Config["path"])

	assert.Equal(t, []string{"postgres"}, cfg.ContinuousExporters)
	require.Contains(t, cfg.TriggeredExporters, "snapshot")
	assert.Equal(t, 300, cfg.TriggeredExporters["snapshot"].Interval)
}

func TestLoadEnvironmentConfigRejectsMissingFile(t *testing.T) {
	_, err := LoadEnvironmentConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDispatcherOverridesParsesObjectActionCallable(t *testing.T) {
	path := writeTempFile(t, "overrides.yaml", `
insalata.lab.host.web01:
  boot: customBoot
`)

	overrides, err := LoadDispatcherOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, "customBoot", overrides["insalata.lab.host.web01"]["boot"])
}

func TestLoadDispatcherOverridesMissingFileReturnsEmpty(t *testing.T) {
	overrides, err := LoadDispatcherOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestLoadLocationsRegistryLowerCasesKeysAndParsesTemplates(t *testing.T) {
	path := writeTempFile(t, "locations.yaml", `
Lab:
  hypervisor: xen
  default_template: small
  uri: https://xen.lab.example:443
  login_id: root
  login_pass: secret
  xen_storage: local-lvm
  templates:
    small:
      metadata:
        - linux
        - small
`)

	reg, err := LoadLocationsRegistry(path)
	require.NoError(t, err)

	entry, ok := reg.Lookup("LAB")
	require.True(t, ok, "lookup must be case-insensitive")
	assert.Equal(t, "xen", entry.Hypervisor)
	assert.Equal(t, "small", entry.DefaultTemplate)
	assert.Equal(t, "https://xen.lab.example:443", entry.URI)
	assert.Equal(t, []string{"linux", "small"}, entry.Templates["small"].Metadata)

	assert.Equal(t, []string{"lab"}, reg.IDs())
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvironmentConfigRejectsBadLogLevel(t *testing.T) {
	path := writeTempFile(t, "env.yaml", `
logLevel: verbose
queueSize: 10
`)
	_, err := LoadEnvironmentConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logLevel")
}

func TestLoadEnvironmentConfigRejectsNegativeQueueSize(t *testing.T) {
	path := writeTempFile(t, "env.yaml", `
queueSize: -1
`)
	_, err := LoadEnvironmentConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queueSize")
}

func TestLoadDaemonConfigRequiresAtLeastOneEnvironment(t *testing.T) {
	path := writeTempFile(t, "daemon.yaml", `
listenAddr: ":8420"
workDir: /var/lib/insalatad
planner:
  plannerPath: /usr/local/bin/downward
  domainFile: /etc/insalatad/domain.pddl
environments: []
`)
	_, err := LoadDaemonConfig(path)
	assert.Error(t, err)
}

func TestLoadDaemonConfigRejectsEnvironmentMissingConfigFile(t *testing.T) {
	path := writeTempFile(t, "daemon.yaml", `
listenAddr: ":8420"
workDir: /var/lib/insalatad
planner:
  plannerPath: /usr/local/bin/downward
  domainFile: /etc/insalatad/domain.pddl
environments:
  - name: lab
`)
	_, err := LoadDaemonConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configFile")
}

func TestLoadDaemonConfigAcceptsWellFormedDocument(t *testing.T) {
	path := writeTempFile(t, "daemon.yaml", `
listenAddr: ":8420"
workDir: /var/lib/insalatad
planner:
  plannerPath: /usr/local/bin/downward
  domainFile: /etc/insalatad/domain.pddl
environments:
  - name: lab
    configFile: /etc/insalatad/lab/env.yaml
`)
	cfg, err := LoadDaemonConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "lab", cfg.Environments[0].Name)
}

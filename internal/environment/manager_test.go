package environment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManagerLoadEnvironmentRegistersItByName(t *testing.T) {
	dir := t.TempDir()
	envConfig := writeTempConfig(t, dir, "env.yaml", `
dataDirectory: data
queueSize: 5
`)
	overrides := writeTempConfig(t, dir, "overrides.yaml", `{}`)

	m := NewManager(PlannerOptions{}, t.TempDir(), nil)
	err := m.LoadEnvironment(context.Background(), "lab", envConfig, overrides, "", filepath.Join(dir, "data"))
	require.NoError(t, err)

	assert.Equal(t, []string{"lab"}, m.Environments())

	env, ok := m.Get("lab")
	require.True(t, ok)
	assert.Equal(t, "lab", env.Name)

	m.Shutdown()
}

func TestManagerGetUnknownEnvironmentReturnsFalse(t *testing.T) {
	m := NewManager(PlannerOptions{}, t.TempDir(), nil)
	_, ok := m.Get("missing")
	assert.False(t, ok)
}

func TestManagerApplyConfigurationRequiresLoadedEnvironment(t *testing.T) {
	m := NewManager(PlannerOptions{}, t.TempDir(), nil)
	err := m.ApplyConfiguration(context.Background(), "missing", "lab.xml")
	assert.Error(t, err)
}

func TestManagerCommandsListsEveryRPC(t *testing.T) {
	m := NewManager(PlannerOptions{}, t.TempDir(), nil)
	cmds := m.Commands()
	names := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		names[c.Name] = true
	}
	for _, want := range []string{
		"uploadConfiguration", "listFiles", "getFile", "applyConfiguration",
		"exportEnvironmentToXml", "getEnvironments", "getSetupProgress", "getCommands",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

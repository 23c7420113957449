package environment

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/config"
)

const fixtureDoc = `<config name="lab">
  <locations>
    <location id="loc1" hypervisor="xen" defaultTemplate="plain"/>
  </locations>
  <layer2networks>
    <layer2network id="net1" location="loc1"/>
  </layer2networks>
  <hosts>
    <host id="h1" location="loc1" template="edge" cpus="2" memoryMin="512" memoryMax="1024">
      <interfaces>
        <interface mac="aa:bb:cc:dd:ee:ff" network="net1"/>
      </interfaces>
    </host>
  </hosts>
</config>`

func newTestEnvironment(t *testing.T) *Environment {
	t.Helper()
	cfg := &config.EnvironmentConfig{QueueSize: 5, WorkingSet: 10}
	return New("lab", cfg, nil, config.NewLocationsRegistry(), t.TempDir(), nil)
}

func TestUploadConfigurationRejectsMalformedDocument(t *testing.T) {
	e := newTestEnvironment(t)
	err := e.UploadConfiguration("bad.xml", []byte("<not-a-config>"))
	assert.Error(t, err)
}

func TestUploadListGetFileRoundTrip(t *testing.T) {
	e := newTestEnvironment(t)
	require.NoError(t, e.UploadConfiguration("lab.xml", []byte(fixtureDoc)))

	files, err := e.ListFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"lab.xml"}, files)

	data, err := e.GetFile("lab.xml")
	require.NoError(t, err)
	assert.Equal(t, fixtureDoc, string(data))
}

func TestListFilesOnEmptyEnvironmentReturnsNil(t *testing.T) {
	e := newTestEnvironment(t)
	files, err := e.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestExportEnvironmentToXmlRoundTripsThroughApply(t *testing.T) {
	plannerPath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no 'true' binary on PATH")
	}

	e := newTestEnvironment(t)
	require.NoError(t, e.UploadConfiguration("lab.xml", []byte(fixtureDoc)))

	workDir := t.TempDir()
	domainFile := filepath.Join(workDir, "domain.pddl")
	require.NoError(t, os.WriteFile(domainFile, []byte("(define (domain insalata))"), 0o644))

	err = e.ApplyConfiguration(context.Background(), "lab.xml", PlannerOptions{
		PlannerPath: plannerPath,
		DomainFile:  domainFile,
	}, workDir)
	require.NoError(t, err)
	assert.Contains(t, e.Progress(), "no plan needed")

	var buf bytes.Buffer
	require.NoError(t, e.ExportEnvironmentToXml(&buf))
	assert.Contains(t, buf.String(), `<config name="lab">`)
}

func TestGetFileMissingReturnsError(t *testing.T) {
	e := newTestEnvironment(t)
	_, err := e.GetFile("missing.xml")
	assert.Error(t, err)
}

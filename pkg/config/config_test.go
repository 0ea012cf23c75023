package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
nodeId: scm-1
bindAddr: 127.0.0.1:9090
dataDir: /var/lib/scmregistry

registry:
  useHostname: true
  staleThreshold: 45s
  deadThreshold: 5m
  datanodePipelineLimit: 8

log:
  level: debug
  jsonOutput: true

metrics:
  bindAddr: :9100
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeSample(t))
	require.NoError(t, err)
	assert.Equal(t, "scm-1", cfg.NodeID)
	assert.Equal(t, "127.0.0.1:9090", cfg.BindAddr)
	assert.True(t, cfg.Registry.UseHostname)
}

func TestToRegistryConfig(t *testing.T) {
	cfg, err := Load(writeSample(t))
	require.NoError(t, err)

	rc, err := cfg.ToRegistryConfig()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, rc.StaleThreshold)
	assert.Equal(t, 5*time.Minute, rc.DeadThreshold)
	assert.Equal(t, 8, rc.DatanodePipelineLimit)
	// Unset scanInterval falls back to the default.
	assert.Equal(t, 30*time.Second, rc.ScanInterval)
}

func TestToRegistryConfig_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registry:\n  staleThreshold: notaduration\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.ToRegistryConfig()
	assert.Error(t, err)
}

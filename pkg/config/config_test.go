package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmelo/skein/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "skein.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
capabilities:
  - factory: fetch
    config:
      timeout: 10
      user_agent: skein-test/1.0
  - factory: report
watches:
  - id: nightly-frontpage
    cron: "0 3 * * *"
    target_url: https://example.com/frontpage
    depth: deep
    tenant_id: tenant-1
    enabled: true
`)

	file, err := Load(path)
	require.NoError(t, err)

	require.Len(t, file.Capabilities, 2)
	assert.Equal(t, "fetch", file.Capabilities[0].Factory)
	assert.Equal(t, 10, file.Capabilities[0].Config["timeout"])
	assert.Equal(t, "skein-test/1.0", file.Capabilities[0].Config["user_agent"])

	require.Len(t, file.Watches, 1)
	watch := file.Watches[0]
	assert.Equal(t, "nightly-frontpage", watch.ID)
	assert.True(t, watch.Enabled)

	request := watch.Request()
	assert.Equal(t, models.DepthDeep, request.Depth)
	assert.Equal(t, "https://example.com/frontpage", request.TargetURL)
	assert.Equal(t, "tenant-1", request.TenantID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "capabilities: [unclosed")

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoadMissingFactory(t *testing.T) {
	path := writeConfig(t, `
capabilities:
  - config:
      timeout: 10
`)

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing factory")
}

func TestWatchRequestDefaultsDepth(t *testing.T) {
	watch := WatchConfig{TargetURL: "https://example.com", TenantID: "tenant-1"}

	assert.Equal(t, models.DepthStandard, watch.Request().Depth)
}

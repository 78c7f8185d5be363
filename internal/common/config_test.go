package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nexus.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2, config.Discovery.MaxDepth)
	assert.Equal(t, 50, config.Discovery.MaxPages)
	assert.Equal(t, 48*time.Hour, config.Discovery.SitemapRecency)
	assert.Equal(t, 3, config.Queue.MaxReceive)
	assert.Equal(t, 3, config.Scheduler.PromotionThreshold)
	assert.Equal(t, 7, config.Scheduler.HighUrgencyFloor)
	assert.True(t, config.Fetcher.FollowRobotsTxt)
}

func TestLoadConfigLaterFileWins(t *testing.T) {
	first := writeConfig(t, `
[discovery]
max_depth = 3
max_pages = 100
`)
	second := filepath.Join(t.TempDir(), "override.toml")
	require.NoError(t, os.WriteFile(second, []byte(`
[discovery]
max_depth = 1
`), 0644))

	config, err := LoadConfig(first, second)
	require.NoError(t, err)

	assert.Equal(t, 1, config.Discovery.MaxDepth)
	assert.Equal(t, 100, config.Discovery.MaxPages)
}

func TestLoadConfigEnvAPIKeyOverride(t *testing.T) {
	path := writeConfig(t, `
[[providers.reasoning]]
name = "avalai"
type = "avalai"
api_key = "from-file"
`)
	t.Setenv("NEXUS_AVALAI_API_KEY", "from-env")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	require.Len(t, config.Providers.Reasoning, 1)
	assert.Equal(t, "from-env", config.Providers.Reasoning[0].APIKey)
}

func TestLoadConfigRejectsInvalidProvider(t *testing.T) {
	path := writeConfig(t, `
[[providers.reasoning]]
name = "nameless"
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigDurationStrings(t *testing.T) {
	path := writeConfig(t, `
[scheduler]
min_interval = "10m"
max_interval = "12h"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, config.Scheduler.MinInterval)
	assert.Equal(t, 12*time.Hour, config.Scheduler.MaxInterval)
}

package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name     string
	Jobs     int
	Interval time.Duration
	Tags     []string
	Nested   struct {
		Value string
	}
}

func TestLoadConfig_MergesOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "name: base\njobs: 1\ninterval: 1s\nnested:\n  value: base\n")
	override := filepath.Join(dir, "override.yaml")
	writeFile(t, override, "jobs: 8\ntags: a,b\n")

	var config testConfig
	require.NoError(t, LoadConfig(viper.New(), &config, dir, []string{override}))

	assert.Equal(t, "base", config.Name)
	assert.Equal(t, 8, config.Jobs)
	assert.Equal(t, time.Second, config.Interval)
	assert.Equal(t, []string{"a", "b"}, config.Tags)
	assert.Equal(t, "base", config.Nested.Value)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "name: base\nnested:\n  value: base\n")
	t.Setenv("TTBENCH_NESTED_VALUE", "from-env")

	var config testConfig
	require.NoError(t, LoadConfig(viper.New(), &config, dir, nil))
	assert.Equal(t, "from-env", config.Nested.Value)
}

func TestLoadConfig_MissingBaseIsFine(t *testing.T) {
	v := viper.New()
	v.SetDefault("name", "default")
	var config testConfig
	require.NoError(t, LoadConfig(v, &config, t.TempDir(), nil))
	assert.Equal(t, "default", config.Name)
}

func TestLoadConfig_MissingOverrideFails(t *testing.T) {
	var config testConfig
	err := LoadConfig(viper.New(), &config, t.TempDir(), []string{"/does/not/exist.yaml"})
	assert.Error(t, err)
}

func TestUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	_, ok := UserConfig(".ttbench-missing.yaml")
	assert.False(t, ok)

	writeFile(t, filepath.Join(home, ".ttbench.yaml"), "jobs: 2\n")
	path, ok := UserConfig(".ttbench.yaml")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(home, ".ttbench.yaml"), path)
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
)

func TestLoadConfig_FlagsOverrideFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(file, []byte("jobs: 4\nscale: 3\nbackend: memory\n"), 0o644))

	v := viper.New()
	root := newRootCmd(v)
	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, root.PersistentFlags().Set(CustomConfigLocation, file))
	require.NoError(t, run.Flags().Set("jobs", "8"))
	require.NoError(t, run.Flags().Set("init-steps", "tg"))

	config, err := loadConfig(run, v)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), config.Jobs)
	assert.Equal(t, uint64(3), config.Scale)
	assert.Equal(t, configuration.BackendMemory, config.Backend)
	assert.True(t, config.InitSteps.Contains(configuration.StepCreate))
	assert.False(t, config.InitSteps.Contains(configuration.StepDrop))
	assert.Equal(t, configuration.ModeIterations, config.Mode)
}

func TestLoadConfig_UserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, userConfigFile), []byte("transactions: 77\n"), 0o644))

	v := viper.New()
	root := newRootCmd(v)
	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	config, err := loadConfig(run, v)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), config.Transactions)
}

func TestLoadConfig_InvalidIsConfigurationError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	v := viper.New()
	root := newRootCmd(v)
	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, run.Flags().Set("jobs", "0"))

	_, err = loadConfig(run, v)
	var configErr *ttbencherrors.ErrConfiguration
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, ttbencherrors.ExitCodeConfiguration, ttbencherrors.ExitCodeFromError(err))
}

func TestRun_TimeFlagSwitchesMode(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--backend", "memory", "--init-steps", "tg", "--time", "1ms", "--jobs", "2"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "tpcb")
	assert.Contains(t, out.String(), "create")
}

func TestRun_UnknownInitStep(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := RootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--backend", "memory", "--init-steps", "x"})

	err := root.Execute()
	assert.Equal(t, ttbencherrors.ExitCodeConfiguration, ttbencherrors.ExitCodeFromError(err))
}

func TestBucket(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"bucket", "--bucket-count", "3000", "12345", "1"})

	require.NoError(t, root.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"12345", "1252"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "713"}, strings.Fields(lines[1]))

	out.Reset()
	root = RootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"bucket", "--bucket-count", "3000", "--hash", "crc32c", "12345"})
	require.NoError(t, root.Execute())
	assert.Equal(t, []string{"12345", "1075"}, strings.Fields(out.String()))
}

func TestBucket_RequiresKey(t *testing.T) {
	root := RootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"bucket"})
	assert.Error(t, root.Execute())
}

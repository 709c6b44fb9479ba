package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/launch-telemetry/internal/config"
)

func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestRun_Version(t *testing.T) {
	out, err := runArgs(t, "version", "--config-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "playbackd "+Version)
	assert.Contains(t, out, BuildDate)
}

func TestRun_UnknownCommand(t *testing.T) {
	_, err := runArgs(t, "launch", "--config-dir", t.TempDir())
	assert.ErrorIs(t, err, errUnknownCommand)
}

func TestRun_Help(t *testing.T) {
	out, err := runArgs(t, "version", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--config-dir")
}

func TestRun_BadFlag(t *testing.T) {
	_, err := runArgs(t, "version", "--no-such-flag")
	assert.Error(t, err)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	_, err := runArgs(t, "version", "--config-dir", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.GetServerConfig().Addr)
	assert.Equal(t, "info", viper.GetString("logLevel"))
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`{
		"logLevel": "debug",
		"server": { "addr": ":9000" },
		"simulator": { "defaultMission": "crs-1" }
	}`), 0644))

	_, err := runArgs(t, "version", "--config-dir", dir, "--addr", ":9100")
	require.NoError(t, err)

	assert.Equal(t, ":9100", config.GetServerConfig().Addr)
	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "crs-1", config.GetSimulatorConfig().DefaultMission)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`{not json`), 0644))

	_, err := runArgs(t, "version", "--config-dir", dir)
	assert.Error(t, err)
}

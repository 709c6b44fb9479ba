package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadJSON(t *testing.T, cfg string) {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfg), 0644))
	require.NoError(t, Load(dir))
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	loadJSON(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	loadJSON(t, `{}`)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./playbacklogs", viper.GetString("logsDir"))
	assert.Equal(t, ":8080", viper.GetString("server.addr"))
	assert.Equal(t, "file", viper.GetString("store.type"))
	assert.Equal(t, "./missions", viper.GetString("store.file.dir"))
	assert.Equal(t, "telemetry", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	var notFound viper.ConfigFileNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetSimulatorConfig_Defaults(t *testing.T) {
	loadJSON(t, `{}`)

	cfg := GetSimulatorConfig()
	assert.Equal(t, 100.0, cfg.SourceRateHz)
	assert.Equal(t, 10.0, cfg.PlaybackSpeed)
	assert.Equal(t, "", cfg.DefaultMission)
	assert.Equal(t, 256, cfg.PortBuffer)
}

func TestGetSimulatorConfig_Override(t *testing.T) {
	loadJSON(t, `{"simulator": {"sourceRateHz": 50, "playbackSpeed": 2.5, "defaultMission": "crs-1"}}`)

	cfg := GetSimulatorConfig()
	assert.Equal(t, 50.0, cfg.SourceRateHz)
	assert.Equal(t, 2.5, cfg.PlaybackSpeed)
	assert.Equal(t, "crs-1", cfg.DefaultMission)
}

func TestGetServerConfig(t *testing.T) {
	loadJSON(t, `{"server": {"addr": "127.0.0.1:9000", "subscribeBurst": 3}}`)

	cfg := GetServerConfig()
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 5.0, cfg.SubscribeRate)
	assert.Equal(t, 3, cfg.SubscribeBurst)
}

func TestGetStoreConfig_Override(t *testing.T) {
	loadJSON(t, `{"store": {"type": "sqlite", "sqlite": {"path": "/tmp/m.db"}}}`)

	cfg := GetStoreConfig()
	assert.Equal(t, "sqlite", cfg.Type)
	assert.Equal(t, "/tmp/m.db", cfg.SQLite.Path)
	assert.Equal(t, "./missions", cfg.File.Dir)
}

func TestGetDBConfig(t *testing.T) {
	loadJSON(t, `{"db": {"host": "db", "password": "secret"}}`)

	cfg := GetDBConfig()
	assert.Equal(t, DBConfig{Host: "db", Port: "5432", Username: "postgres", Password: "secret", Database: "telemetry"}, cfg)
}

func TestGetInfluxConfig(t *testing.T) {
	loadJSON(t, `{"influx": {"enabled": true, "host": "influx", "protocol": "https"}}`)

	cfg := GetInfluxConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "https://influx:8086", cfg.URL())
	assert.Equal(t, "perf", cfg.Bucket)
}

func TestGetGraylogConfig(t *testing.T) {
	loadJSON(t, `{"graylog": {"enabled": true, "address": "gl:12201"}}`)

	assert.Equal(t, GraylogConfig{Enabled: true, Address: "gl:12201"}, GetGraylogConfig())
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	loadJSON(t, `{}`)

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "playbackd", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	loadJSON(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetMonitorConfig(t *testing.T) {
	loadJSON(t, `{"monitor": {"interval": "250ms", "statusFile": "state.json"}}`)

	cfg := GetMonitorConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Equal(t, "state.json", cfg.StatusFile)
}

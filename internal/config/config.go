package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "playbackd.cfg.json"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr           string  `json:"addr" mapstructure:"addr"`
	SubscribeRate  float64 `json:"subscribeRate" mapstructure:"subscribeRate"`
	SubscribeBurst int     `json:"subscribeBurst" mapstructure:"subscribeBurst"`
}

// SimulatorConfig holds playback settings.
type SimulatorConfig struct {
	SourceRateHz   float64 `json:"sourceRateHz" mapstructure:"sourceRateHz"`
	PlaybackSpeed  float64 `json:"playbackSpeed" mapstructure:"playbackSpeed"`
	DefaultMission string  `json:"defaultMission" mapstructure:"defaultMission"`
	PortBuffer     int     `json:"portBuffer" mapstructure:"portBuffer"`
}

// FileStoreConfig holds file mission store settings.
type FileStoreConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// SQLiteConfig holds SQLite mission store settings.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StoreConfig selects and configures the mission store.
type StoreConfig struct {
	Type   string          `json:"type" mapstructure:"type"`
	File   FileStoreConfig `json:"file" mapstructure:"file"`
	SQLite SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds perf stats sink settings.
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL returns the server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// MonitorConfig holds status monitor settings.
type MonitorConfig struct {
	Enabled    bool          `json:"enabled" mapstructure:"enabled"`
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers the default for every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./playbacklogs")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.subscribeRate", 5.0)
	viper.SetDefault("server.subscribeBurst", 10)

	viper.SetDefault("simulator.sourceRateHz", 100.0)
	viper.SetDefault("simulator.playbackSpeed", 10.0)
	viper.SetDefault("simulator.defaultMission", "")
	viper.SetDefault("simulator.portBuffer", 256)

	viper.SetDefault("store.type", "file")
	viper.SetDefault("store.file.dir", "./missions")
	viper.SetDefault("store.sqlite.path", "./missions.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "telemetry")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "launch-telemetry")
	viper.SetDefault("influx.bucket", "perf")
	viper.SetDefault("influx.backupPath", "./influx_backup.log.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "playbackd")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "status.json")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetServerConfig returns the HTTP server section.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           viper.GetString("server.addr"),
		SubscribeRate:  viper.GetFloat64("server.subscribeRate"),
		SubscribeBurst: viper.GetInt("server.subscribeBurst"),
	}
}

// GetSimulatorConfig returns the simulator section.
func GetSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		SourceRateHz:   viper.GetFloat64("simulator.sourceRateHz"),
		PlaybackSpeed:  viper.GetFloat64("simulator.playbackSpeed"),
		DefaultMission: viper.GetString("simulator.defaultMission"),
		PortBuffer:     viper.GetInt("simulator.portBuffer"),
	}
}

// GetStoreConfig returns the mission store section.
func GetStoreConfig() StoreConfig {
	return StoreConfig{
		Type:   viper.GetString("store.type"),
		File:   FileStoreConfig{Dir: viper.GetString("store.file.dir")},
		SQLite: SQLiteConfig{Path: viper.GetString("store.sqlite.path")},
	}
}

// GetDBConfig returns the Postgres section.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB section.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Protocol:   viper.GetString("influx.protocol"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the Graylog section.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetMonitorConfig returns the status monitor section.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

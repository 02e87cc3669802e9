package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "platoon.cfg.json"

// SimulationConfig holds the tick loop and shuffle settings.
type SimulationConfig struct {
	TickInterval     time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	FrameInterval    time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
	NeighborStrategy string        `json:"neighborStrategy" mapstructure:"neighborStrategy"`
	Seed             uint64        `json:"seed" mapstructure:"seed"`
	FaultSchedule    []string      `json:"faultSchedule" mapstructure:"faultSchedule"`
}

// SQLiteConfig holds SQLite neighbor store settings.
type SQLiteConfig struct {
	Path     string `json:"path" mapstructure:"path"`
	DumpPath string `json:"dumpPath" mapstructure:"dumpPath"`
}

// NeighborsConfig selects where the neighbor map is persisted.
type NeighborsConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Key    string       `json:"key" mapstructure:"key"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// MemoryConfig holds in-memory/JSON recorder settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// WebSocketConfig holds the live feed settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// RecorderConfig selects the run recorder backend.
type RecorderConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// InfluxConfig holds InfluxDB telemetry settings.
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

// GraylogConfig holds the GELF log sink settings.
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

// MonitorConfig holds the status file settings.
type MonitorConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./platoonlogs")

	viper.SetDefault("simulation.tickInterval", "1s")
	viper.SetDefault("simulation.frameInterval", "100ms")
	viper.SetDefault("simulation.neighborStrategy", "carry")
	viper.SetDefault("simulation.seed", 0)
	viper.SetDefault("simulation.faultSchedule", []string{"D", "E"})

	viper.SetDefault("neighbors.type", "memory")
	viper.SetDefault("neighbors.key", "neighbours")
	viper.SetDefault("neighbors.sqlite.path", "")
	viper.SetDefault("neighbors.sqlite.dumpPath", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "platoon")

	viper.SetDefault("recorder.type", "memory")
	viper.SetDefault("recorder.memory.outputDir", "./recordings")
	viper.SetDefault("recorder.memory.compressOutput", true)
	viper.SetDefault("recorder.websocket.url", "")
	viper.SetDefault("recorder.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "platoon")
	viper.SetDefault("influx.bucket", "platoon_positions")
	viper.SetDefault("influx.backupPath", "./platoonlogs/influx_backup.log.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "platoonsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
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
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Watch re-reads the config file on change and calls onChange.
func Watch(onChange func(e fsnotify.Event)) {
	viper.OnConfigChange(onChange)
	viper.WatchConfig()
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

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetSimulationConfig returns the simulation settings.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		TickInterval:     viper.GetDuration("simulation.tickInterval"),
		FrameInterval:    viper.GetDuration("simulation.frameInterval"),
		NeighborStrategy: viper.GetString("simulation.neighborStrategy"),
		Seed:             viper.GetUint64("simulation.seed"),
		FaultSchedule:    viper.GetStringSlice("simulation.faultSchedule"),
	}
}

// GetNeighborsConfig returns the neighbor store settings.
func GetNeighborsConfig() NeighborsConfig {
	return NeighborsConfig{
		Type: viper.GetString("neighbors.type"),
		Key:  viper.GetString("neighbors.key"),
		SQLite: SQLiteConfig{
			Path:     viper.GetString("neighbors.sqlite.path"),
			DumpPath: viper.GetString("neighbors.sqlite.dumpPath"),
		},
	}
}

// GetDBConfig returns the Postgres settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetRecorderConfig returns the recorder settings.
func GetRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Type: viper.GetString("recorder.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("recorder.memory.outputDir"),
			CompressOutput: viper.GetBool("recorder.memory.compressOutput"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("recorder.websocket.url"),
			Secret: viper.GetString("recorder.websocket.secret"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB settings.
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

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:  viper.GetBool("monitor.enabled"),
		Interval: viper.GetDuration("monitor.interval"),
	}
}

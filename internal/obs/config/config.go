// Package config provides configuration management for relaymesh. It
// supports loading configuration from environment variables, a config
// file, and defaults, layered through viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for a relaymesh process.
// A single binary may only read the sections relevant to its role
// (relay, workstation, beacon); unused sections are harmless defaults.
type Config struct {
	Relay       RelayConfig       `mapstructure:"relay"`
	Workstation WorkstationConfig `mapstructure:"workstation"`
	Beacon      BeaconConfig      `mapstructure:"beacon"`
	Blob        BlobConfig        `mapstructure:"blob"`
	MCP         MCPConfig         `mapstructure:"mcp"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// RelayConfig holds the relay's WebSocket server configuration.
type RelayConfig struct {
	Host                string `mapstructure:"host"`
	Port                int    `mapstructure:"port"`
	ReadTimeout         int    `mapstructure:"readTimeout"`  // seconds
	WriteTimeout        int    `mapstructure:"writeTimeout"` // seconds
	ClientIndexPoolSize int    `mapstructure:"clientIndexPoolSize"`
}

// WorkstationConfig holds the workstation's local surface configuration.
type WorkstationConfig struct {
	LocalWSEnabled            bool   `mapstructure:"localWsEnabled"`
	LocalWSPort               int    `mapstructure:"localWsPort"`
	RelayURL                  string `mapstructure:"relayUrl"`
	PylonID                   int    `mapstructure:"pylonId"`
	ToolContextMaxAgeMinutes  int    `mapstructure:"toolContextMaxAgeMinutes"`
	TextBufferFlushIntervalMs int    `mapstructure:"textBufferFlushIntervalMs"`
}

// BeaconConfig holds the beacon's TCP lookup-service configuration.
type BeaconConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	MaxAgeMinutes          int    `mapstructure:"maxAgeMinutes"`
	CleanupIntervalMinutes int    `mapstructure:"cleanupIntervalMinutes"`
	RequestTimeoutSeconds  int    `mapstructure:"requestTimeoutSeconds"`
}

// BlobConfig holds the blob transport's chunking configuration.
type BlobConfig struct {
	ChunkSize int    `mapstructure:"chunkSize"`
	SaveDir   string `mapstructure:"saveDir"`
}

// MCPConfig holds per-environment MCP server port configuration.
type MCPConfig struct {
	Env          string `mapstructure:"env"`
	ReleasePort  int    `mapstructure:"releasePort"`
	StagePort    int    `mapstructure:"stagePort"`
	DevPort      int    `mapstructure:"devPort"`
	TestPort     int    `mapstructure:"testPort"`
	ConfigPath   string `mapstructure:"configPath"`
}

// Port returns the MCP port for the configured environment.
func (m *MCPConfig) Port() int {
	switch m.Env {
	case "release":
		return m.ReleasePort
	case "stage":
		return m.StagePort
	case "test":
		return m.TestPort
	default:
		return m.DevPort
	}
}

// PersistenceConfig holds the Persistence capability's backing-store
// configuration; sqlite is the default, postgres an available
// alternative behind the same interface.
type PersistenceConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
	SSLMode  string `mapstructure:"sslMode"`
	MaxConns int    `mapstructure:"maxConns"`
	MinConns int    `mapstructure:"minConns"`
}

// DSN returns the PostgreSQL connection string for this configuration.
func (p *PersistenceConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// NATSConfig holds optional NATS event-bus configuration; an empty URL
// means the in-memory bus is used instead.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClusterID     string `mapstructure:"clusterId"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

func (r *RelayConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(r.ReadTimeout) * time.Second
}

func (r *RelayConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(r.WriteTimeout) * time.Second
}

func (b *BeaconConfig) RequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutSeconds) * time.Second
}

func (b *BeaconConfig) MaxAge() time.Duration {
	return time.Duration(b.MaxAgeMinutes) * time.Minute
}

func (b *BeaconConfig) CleanupInterval() time.Duration {
	return time.Duration(b.CleanupIntervalMinutes) * time.Minute
}

func (w *WorkstationConfig) ToolContextMaxAge() time.Duration {
	return time.Duration(w.ToolContextMaxAgeMinutes) * time.Minute
}

func (w *WorkstationConfig) TextBufferFlushInterval() time.Duration {
	return time.Duration(w.TextBufferFlushIntervalMs) * time.Millisecond
}

func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if env := os.Getenv("RELAYMESH_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("relay.host", "0.0.0.0")
	v.SetDefault("relay.port", 8080)
	v.SetDefault("relay.readTimeout", 30)
	v.SetDefault("relay.writeTimeout", 30)
	v.SetDefault("relay.clientIndexPoolSize", 16)

	v.SetDefault("workstation.localWsEnabled", false)
	v.SetDefault("workstation.localWsPort", 9000)
	v.SetDefault("workstation.relayUrl", "ws://localhost:8080")
	v.SetDefault("workstation.pylonId", 1)
	v.SetDefault("workstation.toolContextMaxAgeMinutes", 30)
	v.SetDefault("workstation.textBufferFlushIntervalMs", 500)

	v.SetDefault("beacon.host", "127.0.0.1")
	v.SetDefault("beacon.port", 9875)
	v.SetDefault("beacon.maxAgeMinutes", 30)
	v.SetDefault("beacon.cleanupIntervalMinutes", 5)
	v.SetDefault("beacon.requestTimeoutSeconds", 5)

	v.SetDefault("blob.chunkSize", 65536)
	v.SetDefault("blob.saveDir", "./blobs")

	v.SetDefault("mcp.env", "dev")
	v.SetDefault("mcp.releasePort", 9876)
	v.SetDefault("mcp.stagePort", 9877)
	v.SetDefault("mcp.devPort", 9878)
	v.SetDefault("mcp.testPort", 9879)
	v.SetDefault("mcp.configPath", "./mcp-servers.yaml")

	v.SetDefault("persistence.driver", "sqlite")
	v.SetDefault("persistence.path", "./relaymesh.db")
	v.SetDefault("persistence.host", "localhost")
	v.SetDefault("persistence.port", 5432)
	v.SetDefault("persistence.user", "relaymesh")
	v.SetDefault("persistence.password", "")
	v.SetDefault("persistence.dbName", "relaymesh")
	v.SetDefault("persistence.sslMode", "disable")
	v.SetDefault("persistence.maxConns", 25)
	v.SetDefault("persistence.minConns", 5)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clusterId", "relaymesh-cluster")
	v.SetDefault("nats.clientId", "relaymesh-client")
	v.SetDefault("nats.maxReconnects", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from environment variables, config file,
// and defaults. Environment variables use the prefix RELAYMESH_.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default
// locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RELAYMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("beacon.port", "RELAYMESH_BEACON_PORT")
	_ = v.BindEnv("workstation.localWsPort", "RELAYMESH_WORKSTATION_LOCAL_WS_PORT")
	_ = v.BindEnv("logging.level", "RELAYMESH_LOG_LEVEL")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/relaymesh/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Relay.Port <= 0 || cfg.Relay.Port > 65535 {
		errs = append(errs, "relay.port must be between 1 and 65535")
	}
	if cfg.Relay.ClientIndexPoolSize <= 0 || cfg.Relay.ClientIndexPoolSize > 16 {
		errs = append(errs, "relay.clientIndexPoolSize must be between 1 and 16")
	}

	if cfg.Beacon.Port <= 0 || cfg.Beacon.Port > 65535 {
		errs = append(errs, "beacon.port must be between 1 and 65535")
	}

	if cfg.Persistence.Driver == "postgres" {
		if cfg.Persistence.Port <= 0 || cfg.Persistence.Port > 65535 {
			errs = append(errs, "persistence.port must be between 1 and 65535")
		}
		if cfg.Persistence.User == "" {
			errs = append(errs, "persistence.user is required for postgres driver")
		}
		if cfg.Persistence.DBName == "" {
			errs = append(errs, "persistence.dbName is required for postgres driver")
		}
	} else if cfg.Persistence.Driver != "sqlite" {
		errs = append(errs, "persistence.driver must be one of: sqlite, postgres")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

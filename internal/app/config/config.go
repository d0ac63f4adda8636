package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// NodesFileEnv overrides the published-nodes file path. It is read once at
// config load.
const NodesFileEnv = "OPC_PUBLISHER_NODES_FILE"

type Config struct {
	Nodes    NodesConfig    `yaml:"nodes"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Session  SessionConfig  `yaml:"session"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	API      APIConfig      `yaml:"api"`
	Audit    AuditConfig    `yaml:"audit"`
	Policy   ports.Policy   `yaml:"policy"`
	Persist  PersistConfig  `yaml:"persist"`
}

// NodesConfig locates the published-nodes file.
type NodesConfig struct {
	File string `yaml:"file"`
}

// DefaultsConfig holds the process-wide values applied to item fields the
// published-nodes file leaves unset. They are re-applied on every load and
// never written back.
type DefaultsConfig struct {
	PublishingInterval int  `yaml:"publishing_interval_ms"`
	SamplingInterval   int  `yaml:"sampling_interval_ms"`
	HeartbeatInterval  int  `yaml:"heartbeat_interval_s"`
	SkipFirst          bool `yaml:"skip_first"`
}

// SessionConfig carries endpoint-independent session settings.
type SessionConfig struct {
	ApplicationName  string        `yaml:"application_name"`
	SecurityPolicy   string        `yaml:"security_policy"`
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

// AuditConfig configures the optional Postgres audit trail. An empty
// connection string disables it.
type AuditConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type PersistConfig struct {
	Interval time.Duration `yaml:"interval"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if override := os.Getenv(NodesFileEnv); override != "" {
		c.Nodes.File = override
	}
	if c.Nodes.File == "" {
		c.Nodes.File = "./data/publishednodes.json"
	}
	if c.Defaults.PublishingInterval == 0 {
		c.Defaults.PublishingInterval = 1000
	}
	if c.Defaults.SamplingInterval == 0 {
		c.Defaults.SamplingInterval = 1000
	}
	if c.Session.ApplicationName == "" {
		c.Session.ApplicationName = "OPC Publisher"
	}
	if c.Session.ReconnectBackoff == 0 {
		c.Session.ReconnectBackoff = 10 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9600"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":9601"
	}
	if c.Audit.Table == "" {
		c.Audit.Table = "config_audit"
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 10_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 500
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 50 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "drop"
	}
	if c.Persist.Interval == 0 {
		c.Persist.Interval = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Nodes.File == "" {
		return fmt.Errorf("nodes.file is required")
	}
	if c.Defaults.PublishingInterval < 0 || c.Defaults.SamplingInterval < 0 {
		return fmt.Errorf("defaults: intervals must not be negative")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.Persist.Interval <= 0 {
		return fmt.Errorf("persist.interval must be positive")
	}
	return nil
}

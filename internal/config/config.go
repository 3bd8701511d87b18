package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Schema Schema       `yaml:"schema,omitempty"`
	MQTT   MQTTConfig   `yaml:"mqtt,omitempty"`
	Server ServerConfig `yaml:"server,omitempty"`
}

// Schema is the schema-detection policy applied to uploaded workbooks.
// The defaults match the utility's 30-minute aggregation exports: an
// 8-digit date column headed "年月日" and "HH:MM:SS" slot headers.
type Schema struct {
	DateColumn  string `yaml:"date_column,omitempty"`  // header of the date column
	SlotPattern string `yaml:"slot_pattern,omitempty"` // substring marking a time-slot column
}

// MQTTConfig holds MQTT broker settings for the publish command
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// ServerConfig holds HTTP server settings for the serve command
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetSchema returns the schema-detection policy with defaults filled in
func (c *Config) GetSchema() Schema {
	s := c.Schema
	if s.DateColumn == "" {
		s.DateColumn = "年月日"
	}
	if s.SlotPattern == "" {
		s.SlotPattern = ":"
	}
	return s
}

// GetTopicPrefix returns the MQTT topic prefix with a default of "contractviz"
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "contractviz"
	}
	return c.MQTT.TopicPrefix
}

// GetServerAddr returns the HTTP listen address with a default of ":8080"
func (c *Config) GetServerAddr() string {
	if c.Server.Addr == "" {
		return ":8080"
	}
	return c.Server.Addr
}

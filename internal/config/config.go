package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Storage StorageConfig `yaml:"storage"`
	WebRTC  WebRTCConfig  `yaml:"webrtc"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// Origin is the public base URL used to build the capability URLs
	// (e.g. https://shoot.example.com).
	Origin string `yaml:"origin"`
}

// StoreConfig selects the session registry backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"` // memory | postgres
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// StorageConfig selects where captured photos are written.
type StorageConfig struct {
	Backend string   `yaml:"backend"` // local | s3
	Dir     string   `yaml:"dir"`     // local: base directory
	S3      S3Config `yaml:"s3"`
}

// S3Config holds S3 configuration
type S3Config struct {
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"` // optional, S3-compatible providers
}

// WebRTCConfig holds ICE server configuration for the controllers.
type WebRTCConfig struct {
	ICEServers []string `yaml:"ice_servers"`
}

// SMTPConfig holds mail configuration for the contact endpoint.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Origin == "" {
		c.Server.Origin = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "local"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = ".data/captures"
	}
	if len(c.WebRTC.ICEServers) == 0 {
		c.WebRTC.ICEServers = []string{"stun:stun.l.google.com:19302"}
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

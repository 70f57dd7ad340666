package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jo-hoe/gofeedback/internal/lock"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort      = 10000
	DefaultDataDir   = "data"
	DefaultBodyLimit = "20M"
)

var DefaultAllowedOrigins = []string{
	"https://rkawk123.github.io",
	"http://localhost:5500",
}

type ServiceConfig struct {
	Port int `yaml:"port"`
	// DataDir is the parent of UploadDir and LogFile when those are not set.
	DataDir        string      `yaml:"dataDir"`
	UploadDir      string      `yaml:"uploadDir"`
	LogFile        string      `yaml:"logFile"`
	AllowedOrigins []string    `yaml:"allowedOrigins"`
	BodyLimit      string      `yaml:"bodyLimit"`
	AppendLock     lock.Config `yaml:"appendLock"`
}

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{
		Port:           DefaultPort,
		DataDir:        DefaultDataDir,
		AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
		BodyLimit:      DefaultBodyLimit,
		AppendLock:     lock.Config{Type: lock.TypeLocal},
	}
	config.applyDerivedPaths()
	return config
}

// LoadConfig loads configuration from the specified YAML file on top of the defaults
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	config := DefaultConfig()
	config.UploadDir, config.LogFile = "", ""
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	config.applyDerivedPaths()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return config, nil
}

// ApplyEnvironment overrides the port with the PORT environment variable if it is set.
func (config *ServiceConfig) ApplyEnvironment() error {
	value := os.Getenv("PORT")
	if value == "" {
		return nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid PORT %q: %w", value, err)
	}
	config.Port = port
	return config.Validate()
}

func (config *ServiceConfig) Validate() error {
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d out of range", config.Port)
	}
	if config.UploadDir == "" || config.LogFile == "" {
		return errors.New("dataDir or both uploadDir and logFile must be set")
	}

	switch config.AppendLock.Type {
	case "", lock.TypeLocal, lock.TypeNone:
	case lock.TypeRedis:
		if config.AppendLock.Redis.Address == "" {
			return errors.New("appendLock.redis.address is required for redis locks")
		}
	default:
		return fmt.Errorf("unsupported appendLock type: %s", config.AppendLock.Type)
	}

	return nil
}

func (config *ServiceConfig) applyDerivedPaths() {
	if config.DataDir == "" {
		return
	}
	if config.UploadDir == "" {
		config.UploadDir = filepath.Join(config.DataDir, "uploads")
	}
	if config.LogFile == "" {
		config.LogFile = filepath.Join(config.DataDir, "feedback_logs.json")
	}
}

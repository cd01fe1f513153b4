package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arjunmalhotra/opsrun/internal/util"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = ".opsrun"
	defaultConfigDir  = ".opsrun"
)

// Manager handles opsrun configuration
type Manager struct {
	configPath string
	config     *OpsrunConfig
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &OpsrunConfig{},
	}
}

// Load loads the opsrun configuration from file
func (m *Manager) Load() (*OpsrunConfig, error) {
	// Set up config file path
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		// Try multiple locations
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// Check ~/.opsrun/config.yaml
		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		// Check ~/.opsrun.yaml
		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	// Set environment variable support
	m.viper.SetEnvPrefix("OPSRUN")
	m.viper.AutomaticEnv()

	// Initialize config to ensure defaults are set even for empty configs
	m.config = &OpsrunConfig{}

	// Read config file
	if err := m.viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// File doesn't exist, apply defaults and return
		m.applyDefaults()
		return m.config, nil
	}

	// Unmarshal into config struct
	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m.config, nil
}

// Save saves the current configuration to file
func (m *Manager) Save() error {
	if m.configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		configDir := filepath.Join(home, defaultConfigDir)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		m.configPath = filepath.Join(configDir, "config.yaml")
	}

	// Ensure directory exists
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config to file
	if err := m.viper.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *OpsrunConfig {
	return m.config
}

// Validate checks the loaded configuration for unusable values
func (m *Manager) Validate() error {
	if m.config == nil {
		return fmt.Errorf("%w: config not loaded", util.ErrInvalidConfig)
	}

	if m.config.Defaults.Parallel < 0 {
		return fmt.Errorf("%w: parallel must not be negative", util.ErrInvalidConfig)
	}
	if m.config.Defaults.MaxBatch < 0 {
		return fmt.Errorf("%w: maxBatch must not be negative", util.ErrInvalidConfig)
	}
	if m.config.Defaults.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", util.ErrInvalidConfig)
	}

	switch m.config.Defaults.OutputFormat {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("%w: unknown output format %q", util.ErrInvalidConfig, m.config.Defaults.OutputFormat)
	}

	return nil
}

// applyDefaults sets default values for configuration
func (m *Manager) applyDefaults() {
	if m.config == nil {
		return
	}

	// Set default timeout
	if m.config.Defaults.Timeout == 0 {
		m.config.Defaults.Timeout = 30 * time.Second
	}

	// Set default parallel ceiling
	if m.config.Defaults.Parallel == 0 {
		m.config.Defaults.Parallel = 4
	}

	// Set default batch cap
	if m.config.Defaults.MaxBatch == 0 {
		m.config.Defaults.MaxBatch = 100
	}

	// Set default output format
	if m.config.Defaults.OutputFormat == "" {
		m.config.Defaults.OutputFormat = "table"
	}

	// Set default ledger retention
	if m.config.Retention == 0 {
		m.config.Retention = 24 * time.Hour
	}
}

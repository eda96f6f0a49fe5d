package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/scr2ppm/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to config keys when read from the environment,
// e.g. SCR2PPM_DELAY
const EnvPrefix = "SCR2PPM"

// Config represents the application configuration
type Config struct {
	LogLevel  string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogPretty bool   `json:"log_pretty" yaml:"log_pretty" mapstructure:"log_pretty"`

	// Mode is used when no mode flag is given: screen, window or area
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`
	// Delay in seconds between selection and capture
	Delay int `json:"delay" yaml:"delay" mapstructure:"delay"`
	// Output file, empty for stdout
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	UseShm    bool `json:"use_shm" yaml:"use_shm" mapstructure:"use_shm"`
	Bell      bool `json:"bell" yaml:"bell" mapstructure:"bell"`
	Crosshair bool `json:"crosshair" yaml:"crosshair" mapstructure:"crosshair"`
}

var (
	validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validModes  = map[string]bool{"screen": true, "window": true, "area": true}
)

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		LogLevel:  "info",
		LogPretty: true,
		Mode:      "screen",
		Delay:     0,
		Output:    "",
		UseShm:    true,
		Bell:      true,
		Crosshair: true,
	}
}

// Validate checks that every value is usable
func (c *Config) Validate() error {
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", c.LogLevel)
	}
	if !validModes[c.Mode] {
		return fmt.Errorf("invalid mode: %s (use: screen, window, area)", c.Mode)
	}
	if c.Delay < 0 {
		return fmt.Errorf("invalid delay: %d (must not be negative)", c.Delay)
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	v          *viper.Viper
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/scr2ppm/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "scr2ppm", "config.yaml"), nil
}

// NewManager loads configuration from configFile, or from the default
// path when configFile is empty. A missing file is not an error.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	// Values from a .env next to the config fill in unset environment variables
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err == nil {
		logger.WithComponent("config").Debug().
			Str("path", envFile).
			Msg("Loaded environment file")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	m := &Manager{
		configPath: path,
		v:          v,
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Debug().
			Str("path", path).
			Msg("Config file not found, using defaults")
	}

	if err := m.reload(); err != nil {
		return nil, err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config loaded")

	return m, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_pretty", d.LogPretty)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("delay", d.Delay)
	v.SetDefault("output", d.Output)
	v.SetDefault("use_shm", d.UseShm)
	v.SetDefault("bell", d.Bell)
	v.SetDefault("crosshair", d.Crosshair)
}

// reload rebuilds the typed config from viper's layered values
func (m *Manager) reload() error {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Mode = strings.ToLower(cfg.Mode)
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// GetViper exposes the underlying viper instance
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// GetConfigPath returns the config file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Override sets a value for this run only, above file and environment
func (m *Manager) Override(key string, value any) error {
	m.v.Set(key, value)
	return m.reload()
}

// SetLogLevel overrides the log level for this run
func (m *Manager) SetLogLevel(level string) error {
	return m.Override("log_level", level)
}

// Set parses value for key and stores it. Call Save to persist it.
func (m *Manager) Set(key, value string) error {
	var parsed any
	switch key {
	case "delay":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		parsed = n
	case "log_pretty", "use_shm", "bell", "crosshair":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		parsed = b
	case "log_level", "mode", "output":
		parsed = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	previous := m.v.Get(key)
	m.v.Set(key, parsed)
	if err := m.reload(); err != nil {
		m.v.Set(key, previous)
		return err
	}
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Saving config")

	// Ensure the directory exists
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config saved successfully")
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Player    PlayerConfig    `mapstructure:"player"`
	Playback  PlaybackConfig  `mapstructure:"playback"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Favorites FavoritesConfig `mapstructure:"favorites"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	source string `mapstructure:"-"`
}

// ServerConfig holds OpenList server configuration
type ServerConfig struct {
	URL       string  `mapstructure:"url"`
	Token     string  `mapstructure:"token"`
	Username  string  `mapstructure:"username"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second, 0 disables throttling
}

// PlayerConfig holds the external renderer configuration
type PlayerConfig struct {
	Command string   `mapstructure:"command"` // "mpv", a path to mpv, or "none" for the in-memory widget
	Args    []string `mapstructure:"args"`
	Socket  string   `mapstructure:"socket"` // IPC socket path, generated when empty
	Volume  int      `mapstructure:"volume"`
}

// PlaybackConfig tunes the queue/renderer synchronization
type PlaybackConfig struct {
	SuppressWindow time.Duration `mapstructure:"suppress_window"`
	ResumeDelay    time.Duration `mapstructure:"resume_delay"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	AvoidRepeat    bool          `mapstructure:"avoid_repeat"` // shuffle never picks the current track again
}

// StorageConfig holds local state storage configuration
type StorageConfig struct {
	Path string `mapstructure:"path"` // bbolt file, empty for memory-only
}

// FavoritesConfig holds favorites preferences
type FavoritesConfig struct {
	DefaultFolder string `mapstructure:"default_folder"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Command: "mpv",
			Args:    []string{},
			Volume:  100,
		},
		Playback: PlaybackConfig{
			SuppressWindow: 500 * time.Millisecond,
			ResumeDelay:    100 * time.Millisecond,
			TickInterval:   time.Second,
			AvoidRepeat:    true,
		},
		Storage: StorageConfig{
			Path: filepath.Join(defaultDataPath(), "canto.db"),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "canto.log"),
			Level: "INFO",
		},
	}
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// defaultDataPath returns the directory for the database and log file
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "canto")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "canto")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "canto")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "canto")
	}
}

// setDefaults registers defaults with viper so env overrides apply to unset keys
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.token", cfg.Server.Token)
	v.SetDefault("server.username", cfg.Server.Username)
	v.SetDefault("server.rate_limit", cfg.Server.RateLimit)
	v.SetDefault("player.command", cfg.Player.Command)
	v.SetDefault("player.args", cfg.Player.Args)
	v.SetDefault("player.socket", cfg.Player.Socket)
	v.SetDefault("player.volume", cfg.Player.Volume)
	v.SetDefault("playback.suppress_window", cfg.Playback.SuppressWindow)
	v.SetDefault("playback.resume_delay", cfg.Playback.ResumeDelay)
	v.SetDefault("playback.tick_interval", cfg.Playback.TickInterval)
	v.SetDefault("playback.avoid_repeat", cfg.Playback.AvoidRepeat)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("favorites.default_folder", cfg.Favorites.DefaultFolder)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return Load("")
}

// Load reads configuration from file (or the default search path when file is
// empty) with CANTO_* environment overrides.
func Load(file string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. CANTO_SERVER_URL
	v.SetEnvPrefix("CANTO")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.source = v.ConfigFileUsed()
	return cfg, nil
}

// SaveConfig writes the configuration to the file it was loaded from, or to
// the default location.
func SaveConfig(cfg *Config) error {
	configFile := cfg.source
	if configFile == "" {
		configFile = filepath.Join(defaultConfigPath(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()

	// Set fields individually to keep snake_case key names
	v.Set("server.url", cfg.Server.URL)
	v.Set("server.token", cfg.Server.Token)
	v.Set("server.username", cfg.Server.Username)
	v.Set("server.rate_limit", cfg.Server.RateLimit)

	v.Set("player.command", cfg.Player.Command)
	v.Set("player.args", cfg.Player.Args)
	v.Set("player.socket", cfg.Player.Socket)
	v.Set("player.volume", cfg.Player.Volume)

	v.Set("playback.suppress_window", cfg.Playback.SuppressWindow.String())
	v.Set("playback.resume_delay", cfg.Playback.ResumeDelay.String())
	v.Set("playback.tick_interval", cfg.Playback.TickInterval.String())
	v.Set("playback.avoid_repeat", cfg.Playback.AvoidRepeat)

	v.Set("storage.path", cfg.Storage.Path)
	v.Set("favorites.default_folder", cfg.Favorites.DefaultFolder)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cfg.source = configFile
	return nil
}

// IsConfigured returns true if the server URL and token are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}

// Source returns the config file the configuration was read from, if any
func (c *Config) Source() string {
	return c.source
}

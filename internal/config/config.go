package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/pders01/quip/internal/validation"
)

type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Jokes JokesConfig `mapstructure:"jokes"`
	Log   LogConfig   `mapstructure:"log"`
	UI    UIConfig    `mapstructure:"ui"`
	Keys  KeyConfig   `mapstructure:"keys"`
}

type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	RateInterval   time.Duration `mapstructure:"rate_interval"`
	RateBurst      int           `mapstructure:"rate_burst"`
	Lang           string        `mapstructure:"lang"`
	BlacklistFlags []string      `mapstructure:"blacklist_flags"`
	SafeMode       bool          `mapstructure:"safe_mode"`
	// AllowLocal permits localhost and private addresses as base_url.
	AllowLocal bool `mapstructure:"allow_local"`
}

type JokesConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	MaxPerCategory int           `mapstructure:"max_per_category"`
	RefreshFloor   time.Duration `mapstructure:"refresh_floor"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type UIConfig struct {
	Colors UIColors `mapstructure:"colors"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit    string `mapstructure:"quit"`
	Expand  string `mapstructure:"expand"`
	AddMore string `mapstructure:"add_more"`
	GoTop   string `mapstructure:"go_top"`
	Refresh string `mapstructure:"refresh"`
	Search  string `mapstructure:"search"`
	Back    string `mapstructure:"back"`
	Help    string `mapstructure:"help"`
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "https://v2.jokeapi.dev",
			Timeout:        10 * time.Second,
			UserAgent:      "quip/1.0 (https://github.com/pders01/quip)",
			RateInterval:   500 * time.Millisecond,
			RateBurst:      5,
			Lang:           "en",
			BlacklistFlags: []string{},
		},
		Jokes: JokesConfig{
			BatchSize:      2,
			MaxPerCategory: 6,
			RefreshFloor:   1 * time.Second,
			MaxConcurrent:  4,
		},
		Log: LogConfig{
			Level: "off",
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:    "q",
				Expand:  "enter",
				AddMore: "a",
				GoTop:   "t",
				Refresh: "r",
				Search:  "/",
				Back:    "esc",
				Help:    "?",
			},
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "quip")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	// QUIP_JOKES_BATCH_SIZE overrides jokes.batch_size
	v.SetEnvPrefix("QUIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	config.Log.Path = expandPath(config.Log.Path)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every leaf key so a file that sets only part of a
// section still inherits the remaining defaults.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout", cfg.API.Timeout)
	v.SetDefault("api.user_agent", cfg.API.UserAgent)
	v.SetDefault("api.rate_interval", cfg.API.RateInterval)
	v.SetDefault("api.rate_burst", cfg.API.RateBurst)
	v.SetDefault("api.lang", cfg.API.Lang)
	v.SetDefault("api.blacklist_flags", cfg.API.BlacklistFlags)
	v.SetDefault("api.safe_mode", cfg.API.SafeMode)
	v.SetDefault("api.allow_local", cfg.API.AllowLocal)

	v.SetDefault("jokes.batch_size", cfg.Jokes.BatchSize)
	v.SetDefault("jokes.max_per_category", cfg.Jokes.MaxPerCategory)
	v.SetDefault("jokes.refresh_floor", cfg.Jokes.RefreshFloor)
	v.SetDefault("jokes.max_concurrent", cfg.Jokes.MaxConcurrent)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.path", cfg.Log.Path)

	c := cfg.UI.Colors
	v.SetDefault("ui.colors.primary", c.Primary)
	v.SetDefault("ui.colors.secondary", c.Secondary)
	v.SetDefault("ui.colors.accent", c.Accent)
	v.SetDefault("ui.colors.text", c.Text)
	v.SetDefault("ui.colors.muted", c.Muted)
	v.SetDefault("ui.colors.error", c.Error)
	v.SetDefault("ui.colors.success", c.Success)

	k := cfg.Keys
	v.SetDefault("keys.modifier", k.Modifier)
	v.SetDefault("keys.bindings.quit", k.Bindings.Quit)
	v.SetDefault("keys.bindings.expand", k.Bindings.Expand)
	v.SetDefault("keys.bindings.add_more", k.Bindings.AddMore)
	v.SetDefault("keys.bindings.go_top", k.Bindings.GoTop)
	v.SetDefault("keys.bindings.refresh", k.Bindings.Refresh)
	v.SetDefault("keys.bindings.search", k.Bindings.Search)
	v.SetDefault("keys.bindings.back", k.Bindings.Back)
	v.SetDefault("keys.bindings.help", k.Bindings.Help)
}

// Validate checks the values the fetch core depends on and normalizes the
// API base URL in place.
func (c *Config) Validate() error {
	if c.Jokes.BatchSize < 1 {
		return fmt.Errorf("jokes.batch_size must be at least 1, got %d", c.Jokes.BatchSize)
	}
	if c.Jokes.MaxPerCategory < c.Jokes.BatchSize {
		return fmt.Errorf("jokes.max_per_category (%d) must not be below jokes.batch_size (%d)",
			c.Jokes.MaxPerCategory, c.Jokes.BatchSize)
	}
	if c.Jokes.RefreshFloor < 0 {
		return fmt.Errorf("jokes.refresh_floor must not be negative")
	}
	if c.Jokes.MaxConcurrent < 1 {
		c.Jokes.MaxConcurrent = 1
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	validator := validation.NewEndpointValidator()
	if c.API.AllowLocal {
		validator = validation.NewPermissiveEndpointValidator()
	}
	normalized, err := validator.ValidateAndNormalize(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	c.API.BaseURL = normalized
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func Save(config *Config, path string) error {
	v := viper.New()
	for section, values := range settings(config) {
		v.Set(section, values)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

// Encode writes config as TOML, in the layout Save produces.
func Encode(w io.Writer, config *Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(settings(config)); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// settings lays config out as TOML sections keyed by their mapstructure
// names. Durations are written as strings for readability.
func settings(config *Config) map[string]interface{} {
	c := config.UI.Colors
	b := config.Keys.Bindings
	return map[string]interface{}{
		"api": map[string]interface{}{
			"base_url":        config.API.BaseURL,
			"timeout":         config.API.Timeout.String(),
			"user_agent":      config.API.UserAgent,
			"rate_interval":   config.API.RateInterval.String(),
			"rate_burst":      config.API.RateBurst,
			"lang":            config.API.Lang,
			"blacklist_flags": config.API.BlacklistFlags,
			"safe_mode":       config.API.SafeMode,
			"allow_local":     config.API.AllowLocal,
		},
		"jokes": map[string]interface{}{
			"batch_size":       config.Jokes.BatchSize,
			"max_per_category": config.Jokes.MaxPerCategory,
			"refresh_floor":    config.Jokes.RefreshFloor.String(),
			"max_concurrent":   config.Jokes.MaxConcurrent,
		},
		"log": map[string]interface{}{
			"level": config.Log.Level,
			"path":  config.Log.Path,
		},
		"ui": map[string]interface{}{
			"colors": map[string]interface{}{
				"primary":   c.Primary,
				"secondary": c.Secondary,
				"accent":    c.Accent,
				"text":      c.Text,
				"muted":     c.Muted,
				"error":     c.Error,
				"success":   c.Success,
			},
		},
		"keys": map[string]interface{}{
			"modifier": config.Keys.Modifier,
			"bindings": map[string]interface{}{
				"quit":     b.Quit,
				"expand":   b.Expand,
				"add_more": b.AddMore,
				"go_top":   b.GoTop,
				"refresh":  b.Refresh,
				"search":   b.Search,
				"back":     b.Back,
				"help":     b.Help,
			},
		},
	}
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

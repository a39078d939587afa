// Package config handles configuration for insightchat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/diogo/insightchat/internal/models"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// RevealConfig controls the incremental disclosure of answers
type RevealConfig struct {
	Enabled bool `json:"enabled"`
	DelayMs int  `json:"delay_ms"` // Delay between characters
}

// ChartConfig carries chart style defaults that users commonly change
type ChartConfig struct {
	Title          string `json:"title"`
	LegendPosition string `json:"legend_position"` // top, bottom, left, right
}

// Config represents the user configuration
type Config struct {
	// Endpoint is the backend URL every query is POSTed to.
	Endpoint string `json:"endpoint"`
	// Protocol selects the request/response shape, "query" or "conversation".
	Protocol string `json:"protocol"`
	// Model is sent by the conversation protocol.
	Model string `json:"model"`
	// TimeoutSeconds bounds each request. Zero waits indefinitely.
	TimeoutSeconds  int            `json:"timeout_seconds"`
	Reveal          RevealConfig   `json:"reveal"`
	Chart           ChartConfig    `json:"chart"`
	Verbose         bool           `json:"verbose"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	TUITheme        string         `json:"tui_theme,omitempty"`
	LogFile         string         `json:"log_file,omitempty"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Endpoint:       models.DefaultEndpoint,
		Protocol:       string(models.ProtocolQuery),
		Model:          models.DefaultModel,
		TimeoutSeconds: 300,
		Reveal: RevealConfig{
			Enabled: true,
			DelayMs: 10,
		},
		Chart: ChartConfig{
			Title:          "Data Visualization",
			LegendPosition: "top",
		},
		Verbose:         false,
		CopyToClipboard: false,
		TUITheme:        "tokyonight",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// Timeout returns the request timeout as a duration
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RevealDelay returns the per-character reveal delay
func (c Config) RevealDelay() time.Duration {
	if c.Reveal.DelayMs < 0 {
		return 0
	}
	return time.Duration(c.Reveal.DelayMs) * time.Millisecond
}

// ProtocolName returns the parsed protocol, falling back to the query protocol
func (c Config) ProtocolName() models.Protocol {
	p, ok := models.ParseProtocol(c.Protocol)
	if !ok {
		return models.ProtocolQuery
	}
	return p
}

// Validate checks the configuration for values the client cannot use
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if _, ok := models.ParseProtocol(c.Protocol); !ok {
		return fmt.Errorf("unknown protocol %q (available: %s)", c.Protocol, strings.Join(models.AllProtocols(), ", "))
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative")
	}
	if c.Reveal.DelayMs < 0 {
		return fmt.Errorf("reveal.delay_ms cannot be negative")
	}
	if !validLegendPosition(c.Chart.LegendPosition) {
		return fmt.Errorf("unknown legend position %q", c.Chart.LegendPosition)
	}
	return nil
}

func validLegendPosition(pos string) bool {
	switch pos {
	case "", "top", "bottom", "left", "right":
		return true
	}
	return false
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".insightchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// Use 0o700, the directory holds the session file
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetSessionPath returns the path to the persisted session flag
func GetSessionPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "session.json"), nil
}

// GetLogPath returns the log file path from config, or the default location
func GetLogPath(cfg Config) (string, error) {
	if cfg.LogFile != "" {
		return cfg.LogFile, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "insightchat.log"), nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SettableKeys lists the keys accepted by SetValue
func SettableKeys() []string {
	return []string{
		"endpoint",
		"protocol",
		"model",
		"timeout_seconds",
		"reveal.enabled",
		"reveal.delay_ms",
		"chart.title",
		"chart.legend_position",
		"tui_theme",
		"verbose",
		"copy_to_clipboard",
		"log_file",
		"markdown.style",
	}
}

// SetValue assigns a single configuration key from its string form
func SetValue(cfg *Config, key, value string) error {
	switch key {
	case "endpoint":
		cfg.Endpoint = value
	case "protocol":
		if _, ok := models.ParseProtocol(value); !ok {
			return fmt.Errorf("unknown protocol %q (available: %s)", value, strings.Join(models.AllProtocols(), ", "))
		}
		cfg.Protocol = value
	case "model":
		cfg.Model = value
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeout_seconds must be an integer: %w", err)
		}
		cfg.TimeoutSeconds = n
	case "reveal.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("reveal.enabled must be true or false: %w", err)
		}
		cfg.Reveal.Enabled = b
	case "reveal.delay_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("reveal.delay_ms must be an integer: %w", err)
		}
		cfg.Reveal.DelayMs = n
	case "chart.title":
		cfg.Chart.Title = value
	case "chart.legend_position":
		cfg.Chart.LegendPosition = value
	case "tui_theme":
		cfg.TUITheme = value
	case "verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("verbose must be true or false: %w", err)
		}
		cfg.Verbose = b
	case "copy_to_clipboard":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("copy_to_clipboard must be true or false: %w", err)
		}
		cfg.CopyToClipboard = b
	case "log_file":
		cfg.LogFile = value
	case "markdown.style":
		cfg.Markdown.Style = value
	default:
		return fmt.Errorf("unknown config key %q (available: %s)", key, strings.Join(SettableKeys(), ", "))
	}
	return cfg.Validate()
}

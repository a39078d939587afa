package commands

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/diogo/insightchat/internal/config"
	"github.com/diogo/insightchat/internal/render"
)

// Value sources shown by the config command
const (
	sourceDefault  = "default"
	sourceFile     = "file"
	sourceOverride = "env/flag"
)

// configValue is one displayed configuration entry
type configValue struct {
	key    string
	value  string
	source string
}

// configValues lists every settable key of cfg with its origin
func configValues(cfg config.Config, overridden []string, fileExists bool) []configValue {
	defaults := config.DefaultConfig()

	var out []configValue
	for _, key := range config.SettableKeys() {
		value := configField(cfg, key)

		source := sourceDefault
		switch {
		case slices.Contains(overridden, key):
			source = sourceOverride
		case fileExists && value != configField(defaults, key):
			source = sourceFile
		}
		out = append(out, configValue{key: key, value: value, source: source})
	}
	return out
}

// configField renders a single key of cfg as a string
func configField(cfg config.Config, key string) string {
	switch key {
	case "endpoint":
		return cfg.Endpoint
	case "protocol":
		return cfg.Protocol
	case "model":
		return cfg.Model
	case "timeout_seconds":
		return strconv.Itoa(cfg.TimeoutSeconds)
	case "reveal.enabled":
		return strconv.FormatBool(cfg.Reveal.Enabled)
	case "reveal.delay_ms":
		return strconv.Itoa(cfg.Reveal.DelayMs)
	case "chart.title":
		return cfg.Chart.Title
	case "chart.legend_position":
		return cfg.Chart.LegendPosition
	case "tui_theme":
		return cfg.TUITheme
	case "verbose":
		return strconv.FormatBool(cfg.Verbose)
	case "copy_to_clipboard":
		return strconv.FormatBool(cfg.CopyToClipboard)
	case "log_file":
		return cfg.LogFile
	case "markdown.style":
		return cfg.Markdown.Style
	}
	return ""
}

func newConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the effective configuration and where each value comes from.

Values are read from ~/.insightchat/config.json, then overridden by
INSIGHTCHAT_* environment variables (a .env file in the working directory
is loaded too) and by the --endpoint and --protocol flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := deps.effectiveConfig()
			if err != nil {
				fmt.Fprintln(deps.ErrOut, formatErrorMessage(err, "Warning"))
			}

			path, _ := config.GetConfigPath()
			_, statErr := os.Stat(path)
			fileExists := statErr == nil

			keyStyle := lipgloss.NewStyle().Foreground(colorPrimary)
			dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

			location := path
			if !fileExists {
				location += " (not created yet)"
			}
			fmt.Fprintf(deps.Out, "%s %s\n\n", dimStyle.Render("Config file:"), location)

			for _, v := range configValues(eff.Config, eff.Overridden, fileExists) {
				value := v.value
				if value == "" {
					value = dimStyle.Render("(unset)")
				}
				fmt.Fprintf(deps.Out, "  %s %s %s\n",
					keyStyle.Render(fmt.Sprintf("%-22s", v.key)),
					value,
					dimStyle.Render("["+v.source+"]"))
			}
			return nil
		},
	}

	cmd.AddCommand(newConfigSetCmd(deps), newConfigThemesCmd(deps))
	return cmd
}

func newConfigSetCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a value in the config file",
		Long:  "Change a value in the config file.\n\nKeys: " + strings.Join(config.SettableKeys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Environment overrides are not written back to the file
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if err := config.SetValue(&cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}

			msg := fmt.Sprintf("✓ %s = %s", args[0], configField(cfg, args[0]))
			fmt.Fprintln(deps.Out, lipgloss.NewStyle().Foreground(colorSuccess).Render(msg))
			return nil
		},
	}
}

func newConfigThemesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List markdown styles and TUI themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)
			keyStyle := lipgloss.NewStyle().Foreground(colorPrimary)

			fmt.Fprintln(deps.Out, "Markdown styles (markdown.style):")
			for _, s := range render.AvailableStyles() {
				fmt.Fprintf(deps.Out, "  %s %s\n", keyStyle.Render(fmt.Sprintf("%-12s", s.Name)), dimStyle.Render(s.Description))
			}

			fmt.Fprintln(deps.Out, "\nTUI themes (tui_theme):")
			for _, name := range render.TUIThemeNames() {
				theme, _ := render.GetTUIThemeByName(name)
				fmt.Fprintf(deps.Out, "  %s %s\n", keyStyle.Render(fmt.Sprintf("%-12s", name)), dimStyle.Render(theme.Description))
			}
			return nil
		},
	}
}

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/diogo/insightchat/internal/chart"
)

func newChartCmd(deps *Dependencies) *cobra.Command {
	var (
		specFlag    bool
		optionsFile string
		width       int
	)

	cmd := &cobra.Command{
		Use:   "chart <payload.json|->",
		Short: "Draw a chart payload in the terminal",
		Long: `Draw a chart payload ({chartType, labels, datasets}) in the terminal.

The file may also hold a whole conversation response; its chartData field is
used. Use "-" to read from stdin. With --spec the merged Chart.js
configuration is printed instead of the drawing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(deps, args[0])
			if err != nil {
				return err
			}
			payload, err := chart.ParsePayload(data)
			if err != nil {
				return err
			}

			var overrides chart.Options
			if optionsFile != "" {
				raw, err := os.ReadFile(optionsFile)
				if err != nil {
					return fmt.Errorf("failed to read options file: %w", err)
				}
				if overrides, err = chart.ParseOptions(raw); err != nil {
					return err
				}
			}

			eff, err := deps.effectiveConfig()
			if err != nil {
				return err
			}
			defaults := chart.DefaultOptions(eff.Config.Chart.Title, eff.Config.Chart.LegendPosition)

			if specFlag {
				out, err := chart.MarshalSpec(payload, defaults, overrides)
				if err != nil {
					return err
				}
				fmt.Fprintln(deps.Out, string(out))
				return nil
			}

			if width <= 0 {
				width = getTerminalWidth() - 4
			}
			r := chart.Renderer{Width: width, Defaults: defaults}
			fmt.Fprintln(deps.Out, r.Render(payload, overrides))
			return nil
		},
	}

	cmd.Flags().BoolVar(&specFlag, "spec", false, "Print the Chart.js configuration as JSON")
	cmd.Flags().StringVar(&optionsFile, "options", "", "JSON file with option overrides")
	cmd.Flags().IntVar(&width, "width", 0, "Drawing width in columns (default: terminal width)")
	return cmd
}

// readInput reads a file, or stdin when path is "-"
func readInput(deps *Dependencies, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(deps.In)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

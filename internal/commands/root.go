// Package commands provides CLI commands for insightchat.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	endpointFlag string
	protocolFlag string
	verboseFlag  bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// queryFlags are the one-shot options of the root command
type queryFlags struct {
	output string
	file   string
	raw    bool
	copy   bool
}

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd(deps *Dependencies) *cobra.Command {
	deps = deps.withDefaults()
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "insightchat [question]",
		Short: "Chat with your data from the terminal",
		Long: `insightchat sends questions to an analytics backend and shows the answers,
including markdown tables and charts, in the terminal. The chat is only
available after logging in.

Examples:
  insightchat login                     Log in (interactive form)
  insightchat chat                      Start interactive chat
  insightchat "Top 5 regions by sales"  Ask a single question
  insightchat -f question.md            Read the question from a file
  cat question.md | insightchat         Read the question from stdin
  insightchat "Revenue?" -o answer.md   Save the answer to a file
  insightchat chart payload.json        Draw a chart payload`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Out, "insightchat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			if qf.file != "" {
				data, err := os.ReadFile(qf.file)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				return runQuery(cmd.Context(), deps, string(data), qf)
			}

			if len(args) > 0 {
				return runQuery(cmd.Context(), deps, args[0], qf)
			}

			if hasPipedInput(deps.In) {
				data, err := io.ReadAll(deps.In)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				return runQuery(cmd.Context(), deps, string(data), qf)
			}

			return cmd.Help()
		},
	}

	cmd.SetIn(deps.In)
	cmd.SetOut(deps.Out)
	cmd.SetErr(deps.ErrOut)

	cmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Backend URL (overrides config)")
	cmd.PersistentFlags().StringVar(&protocolFlag, "protocol", "", "Backend protocol: query or conversation (overrides config)")
	cmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")

	cmd.Flags().StringVarP(&qf.output, "output", "o", "", "Save the answer to a file")
	cmd.Flags().StringVarP(&qf.file, "file", "f", "", "Read the question from a file")
	cmd.Flags().BoolVar(&qf.raw, "raw", false, "Print the answer text without formatting")
	cmd.Flags().BoolVar(&qf.copy, "copy", false, "Copy the answer to the clipboard")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(
		newChatCmd(deps),
		newLoginCmd(deps),
		newLogoutCmd(deps),
		newStatusCmd(deps),
		newConfigCmd(deps),
		newChartCmd(deps),
		newHashPasswordCmd(deps),
	)

	return cmd
}

// hasPipedInput reports whether in is a pipe or file rather than a terminal
func hasPipedInput(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return in != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// Execute runs the root command
func Execute() {
	deps := NewDependencies()
	if err := NewRootCmd(deps).Execute(); err != nil {
		fmt.Fprintln(deps.ErrOut, formatErrorMessage(err, "Error"))
		os.Exit(1)
	}
}

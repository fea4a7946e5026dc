package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the build information printed by the version command.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the siphon CLI.
func Execute(ctx context.Context) error {
	return newRootCmd(os.Stderr).ExecuteContext(ctx)
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "siphon",
		Short:        "siphon lays out photonic circuits from parametric cells",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(logOut, level)))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newTypesCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "siphon %s\n", version)
			if commit != "" {
				fmt.Fprintf(out, "commit: %s\n", commit)
			}
			if date != "" {
				fmt.Fprintf(out, "built: %s\n", date)
			}
		},
	}
}

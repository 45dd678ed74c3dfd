// Package cli assembles the command line surface for programs embedding the
// schema engine. The embedding program supplies its entity set and resolver
// registry; the commands handle configuration, serving, and SDL export.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autogql/autogql/customs"
	"github.com/autogql/autogql/entity"
)

var verbose bool

// App carries everything the embedding program contributes to the CLI.
type App struct {
	Name     string
	Short    string
	Entities entity.Set
	// Customs resolves descriptor resolver names used by the customs
	// directory. Optional.
	Customs *customs.Registry
}

// NewRootCmd constructs the root command with all subcommands attached.
func NewRootCmd(app App) *cobra.Command {
	name := app.Name
	if name == "" {
		name = "autogql"
	}
	cmd := &cobra.Command{
		Use:   name,
		Short: app.Short,
	}
	cmd.SilenceUsage = true
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging output")
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newSDLCmd(app))
	return cmd
}

// Execute runs the CLI entrypoint.
func Execute(app App) {
	if err := NewRootCmd(app).Execute(); err != nil {
		exitCode := 1
		var cerr CommandError
		if errors.As(err, &cerr) {
			msg := strings.TrimSpace(cerr.Message)
			if msg == "" && cerr.Cause != nil {
				msg = cerr.Cause.Error()
			}
			if msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			if cerr.Suggestion != "" {
				fmt.Fprintln(os.Stderr, formatSuggestion(cerr.Suggestion))
			}
			exitCode = cerr.ExitStatus()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode)
	}
}

package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/five82/sheetsync/internal/app"
	"github.com/five82/sheetsync/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	PrefsPath  string
	Verbose    bool
	Format     string // "json" | "text"

	// Local opens the server database directly instead of the API.
	Local bool
	User  string

	// Config is filled in by the root PersistentPreRunE.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func (o *RootOptions) appOptions() app.Options {
	return app.Options{PrefsPath: o.PrefsPath, Local: o.Local, LocalUser: o.User}
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// NewRootCommand creates the root command for the sheetsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sheetsync",
		Short: "Terminal spreadsheet editor with autosave",
		Long: `sheetsync edits spreadsheets stored behind the grid API and saves
changes automatically: shortly after you stop typing, when the terminal loses
focus, and before the editor exits.

Run "sheetsync serve" to host the API, "sheetsync login" to get a session,
then "sheetsync new" and "sheetsync edit".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := app.Bootstrap(opts.ConfigPath, opts.Verbose)
			if err != nil {
				return WrapExitError(ExitCommandError, "configuration error", err)
			}
			opts.Config = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/sheetsync/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/sheetsync/prefs.toml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Local, "local", false, "use the server database directly instead of the API")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "email of the local user (with --local)")

	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewLogsCommand(opts))

	return cmd
}

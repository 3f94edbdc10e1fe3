package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/five82/sheetsync/internal/app"
	"github.com/five82/sheetsync/internal/prefs"
)

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [id]",
		Short: "Open a spreadsheet in the editor",
		Long: `Open a spreadsheet in the terminal editor. Without an id the most
recently opened spreadsheet is used.

Changes are saved automatically. ctrl+s saves immediately, ctrl+q quits.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveEditID(rootOpts, args)
			if err != nil {
				return err
			}
			return app.Edit(cmd.Context(), rootOpts.Config, id, rootOpts.appOptions())
		},
	}
}

func resolveEditID(opts *RootOptions, args []string) (int64, error) {
	if len(args) == 1 {
		return parseID(args[0])
	}
	p, _ := prefs.Load(opts.PrefsPath)
	if p.LastOpened <= 0 {
		return 0, NewExitError(ExitCommandError, "no spreadsheet id given and none opened before")
	}
	return p.LastOpened, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid spreadsheet id %q", arg))
	}
	return id, nil
}

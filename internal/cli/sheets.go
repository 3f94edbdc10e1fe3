package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/sheetsync/internal/app"
	"github.com/five82/sheetsync/internal/gridapi"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Aliases:       []string{"ls"},
		Short:         "List your spreadsheets",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			items, err := app.List(cmd.Context(), rootOpts.Config, rootOpts.appOptions())
			if err != nil {
				return out.Failure(err)
			}
			if out.Format == "json" {
				return out.Success(items, "")
			}
			return renderList(out.Writer, items, time.Local)
		},
	}
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new <title>",
		Short: "Create an empty spreadsheet",
		Long: `Create an empty spreadsheet. Words after "new" are joined into the title.

Examples:
  sheetsync new Q3 budget
  sheetsync new "Inventory" --local`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return out.Failure(NewExitError(ExitCommandError, "Title is required"))
			}
			sp, err := app.Create(cmd.Context(), rootOpts.Config, title, rootOpts.appOptions())
			if err != nil {
				return out.Failure(err)
			}
			return out.Success(sp, fmt.Sprintf("Created spreadsheet %d %q", sp.ID, sp.Title))
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Aliases:       []string{"rm"},
		Short:         "Delete a spreadsheet",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			id, err := parseID(args[0])
			if err != nil {
				return out.Failure(err)
			}
			if err := app.Delete(cmd.Context(), rootOpts.Config, id, rootOpts.appOptions()); err != nil {
				if gridapi.IsNotFound(err) {
					return out.Failure(WrapExitError(ExitFailure, "Spreadsheet not found", err))
				}
				return out.Failure(err)
			}
			return out.Success(gridapi.MessageResponse{Message: "Spreadsheet deleted"}, "Spreadsheet deleted")
		},
	}
}

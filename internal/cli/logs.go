package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/five82/sheetsync/internal/logtail"
)

// LogsOptions holds flags for the logs command.
type LogsOptions struct {
	*RootOptions
	Tail       int
	Follow     bool
	Level      string
	Components []string
	NoColor    bool
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the sheetsync log",
		Long: `Show the end of the log file configured under [log]. The editor owns
the terminal while it runs, so this is the place to watch saves and retries.

Examples:
  # Follow autosave activity from another terminal
  sheetsync logs -f -c autosave

  # Warnings and errors among the last 200 lines
  sheetsync logs --tail 200 --level warn`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Tail, "tail", "n", 50, "number of lines to show (0 for all)")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "follow new lines")
	cmd.Flags().StringVar(&opts.Level, "level", "", "minimum level (debug|info|warn|error)")
	cmd.Flags().StringSliceVarP(&opts.Components, "component", "c", nil, "only these components (comma-separated)")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable colours")

	return cmd
}

func runLogs(opts *LogsOptions, cmd *cobra.Command) error {
	path := opts.Config.Log.File
	if path == "" {
		return NewExitError(ExitCommandError, "file logging is disabled (log.file is empty)")
	}

	filter := logtail.Filter{Components: opts.Components, MinLevel: opts.Level}
	if _, err := filter.Match(logtail.Entry{Parsed: true}); err != nil {
		return WrapExitError(ExitCommandError, "invalid --level", err)
	}

	w := cmd.OutOrStdout()
	styles := logtail.PlainStyles()
	if !opts.NoColor && isTerminal(w) {
		styles = logtail.DefaultStyles()
	}
	emit := func(line string) {
		e := logtail.Parse(line)
		if ok, _ := filter.Match(e); ok {
			fmt.Fprintln(w, logtail.Format(e, styles))
		}
	}

	lines, err := logtail.Read(path, opts.Tail)
	if err != nil {
		return err
	}
	for _, line := range lines {
		emit(line)
	}
	if !opts.Follow {
		return nil
	}
	return logtail.Follow(cmd.Context(), path, emit)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

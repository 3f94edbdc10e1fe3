package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/sheetsync/internal/app"
	"github.com/five82/sheetsync/internal/gridapi"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Email string
	Name  string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a session with the grid API",
		Long: `Start a session with the grid API. The account is created on first
login. The session token is stored in the preferences file and used by the
other commands until "sheetsync logout".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			user, err := app.Login(cmd.Context(), opts.Config, opts.PrefsPath, opts.Email, opts.Name)
			if err != nil {
				return out.Failure(err)
			}
			return out.Success(user, fmt.Sprintf("Logged in as %s <%s>", user.Name, user.Email))
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "End the saved session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if err := app.Logout(cmd.Context(), rootOpts.Config, rootOpts.PrefsPath); err != nil {
				return out.Failure(err)
			}
			return out.Success(gridapi.MessageResponse{Message: "Logged out successfully"}, "Logged out successfully")
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "whoami",
		Short:         "Show the logged in user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			user, err := app.Whoami(cmd.Context(), rootOpts.Config, rootOpts.PrefsPath)
			if err != nil {
				return out.Failure(err)
			}
			return out.Success(user, fmt.Sprintf("%s <%s>", user.Name, user.Email))
		},
	}
}

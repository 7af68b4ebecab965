package commands

import (
	"github.com/spf13/cobra"

	twitter "github.com/anatolykoptev/go-twitter-scrape"
)

var profileFlags struct {
	full bool
	byID bool
}

var profileCmd = &cobra.Command{
	Use:   "profile <username|id> [--full] [--id]",
	Short: "Writes a user's profile as a JSON line.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		if profileFlags.full {
			if profileFlags.byID {
				var err error
				if name, err = app.client.ScreenName(ctx, name); err != nil {
					return err
				}
			}
			p, err := app.client.GetFullProfile(ctx, name)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		}

		q := twitter.ProfileQuery{Username: name}
		if profileFlags.byID {
			q = twitter.ProfileQuery{UserID: name}
		}
		p, err := app.client.GetProfile(ctx, q)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), p)
	},
}

func init() {
	f := profileCmd.Flags()
	f.BoolVar(&profileFlags.full, "full", false, "Scrape the profile page instead of the hover card.")
	f.BoolVar(&profileFlags.byID, "id", false, "The argument is a user id.")
	rootCmd.AddCommand(profileCmd)
}

var userIDCmd = &cobra.Command{
	Use:   "user-id <username>",
	Short: "Prints the id of a user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := app.client.UserID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]string{"username": args[0], "user_id": id})
	},
}

func init() {
	rootCmd.AddCommand(userIDCmd)
}

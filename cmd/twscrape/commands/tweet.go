package commands

import (
	"github.com/spf13/cobra"
)

var tweetCmd = &cobra.Command{
	Use:   "tweet <id>...",
	Short: "Writes single tweets as JSON lines.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		for _, id := range args {
			tweet, err := app.client.GetTweet(ctx, id)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), tweet); err != nil {
				return err
			}
			if app.store != nil {
				if _, err := app.store.SaveTweet(ctx, tweet); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tweetCmd)
}

package commands

import (
	"strings"

	"github.com/spf13/cobra"

	twitter "github.com/anatolykoptev/go-twitter-scrape"
)

var searchFlags struct {
	top     bool
	fromID  string
	untilID string
	limit   int
	resume  bool
}

var searchCmd = &cobra.Command{
	Use:   "search <query> [--top] [--from-id id] [--until-id id] [--limit n] [--resume]",
	Short: "Writes the tweets matching a search query as JSON lines.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")
		feed := "search:" + query

		cursor, err := resumeFrom(ctx, feed, searchFlags.resume)
		if err != nil {
			return err
		}
		opts := twitter.SearchOptions{
			Top:    searchFlags.top,
			FromID: searchFlags.fromID,
			Cursor: cursor,
		}

		var last *twitter.Pagination
		open := func(cursor string) (*twitter.Pagination, error) {
			p, err := app.client.SearchPages(query, opts, cursor)
			if p != nil {
				last = p
			}
			return p, err
		}

		_, err = writeTweets(ctx, cmd.OutOrStdout(),
			twitter.Stream(ctx, open, streamOptions(searchFlags.limit, searchFlags.untilID)))
		if serr := saveCursors(ctx, feed, last); err == nil {
			err = serr
		}
		return err
	},
}

func init() {
	f := searchCmd.Flags()
	f.BoolVar(&searchFlags.top, "top", false, "Search the most popular tweets instead of the latest.")
	f.StringVar(&searchFlags.fromID, "from-id", "", "Only tweets older than this id.")
	f.StringVar(&searchFlags.untilID, "until-id", "", "Stop at the first tweet at or below this id.")
	f.IntVar(&searchFlags.limit, "limit", 0, "Stop after this many tweets.")
	f.BoolVar(&searchFlags.resume, "resume", false, "Continue from the cursor stored in --db.")
	rootCmd.AddCommand(searchCmd)
}

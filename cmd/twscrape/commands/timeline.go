package commands

import (
	"github.com/spf13/cobra"

	twitter "github.com/anatolykoptev/go-twitter-scrape"
)

var timelineFlags struct {
	after   string
	before  string
	limit   int
	untilID string
	resume  bool
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <username> [--after id | --before id] [--limit n] [--resume]",
	Short: "Writes the tweets of a user's timeline as JSON lines.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		username := args[0]
		feed := "timeline:" + username

		opts := twitter.TimelineOptions{After: timelineFlags.after, Before: timelineFlags.before}
		if opts.After == "" && opts.Before == "" {
			cursor, err := resumeFrom(ctx, feed, timelineFlags.resume)
			if err != nil {
				return err
			}
			opts.Before = cursor
		}

		var last *twitter.Pagination
		open := func(cursor string) (*twitter.Pagination, error) {
			o := opts
			switch {
			case cursor == "":
			case o.After != "":
				o.After = cursor
			default:
				o.Before = cursor
			}
			p, err := app.client.Timeline(username, o)
			if p != nil {
				last = p
			}
			return p, err
		}

		_, err := writeTweets(ctx, cmd.OutOrStdout(),
			twitter.Stream(ctx, open, streamOptions(timelineFlags.limit, timelineFlags.untilID)))
		if serr := saveCursors(ctx, feed, last); err == nil {
			err = serr
		}
		return err
	},
}

func init() {
	f := timelineCmd.Flags()
	f.StringVar(&timelineFlags.after, "after", "", "Walk towards newer tweets starting after this id.")
	f.StringVar(&timelineFlags.before, "before", "", "Walk towards older tweets starting before this id.")
	f.IntVar(&timelineFlags.limit, "limit", 0, "Stop after this many tweets.")
	f.StringVar(&timelineFlags.untilID, "until-id", "", "Stop at the first tweet at or past this id.")
	f.BoolVar(&timelineFlags.resume, "resume", false, "Continue from the cursor stored in --db.")
	timelineCmd.MarkFlagsMutuallyExclusive("after", "before")
	rootCmd.AddCommand(timelineCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var storiesLimit int

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "List the story library, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		items, err := e.stories.ListStories(ctx, storiesLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if outputJSON {
			return json.NewEncoder(out).Encode(items)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tCREATED\tTITLE")
		for _, s := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Status, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Title)
		}
		return tw.Flush()
	},
}

func init() {
	storiesCmd.Flags().IntVarP(&storiesLimit, "limit", "n", 50, "maximum number of stories")
}

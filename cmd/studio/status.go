package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"storystudio/internal/domain"
	"storystudio/internal/generation"
)

var statusLocale string

var statusCmd = &cobra.Command{
	Use:   "status <story-id>",
	Short: "Show the stored state of a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		rec, err := e.stories.Status(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		label := generation.NewTranslator().Label(statusLocale, rec.CurrentStep)

		if rec.Status == domain.JobStatusCompleted {
			base, err := generation.DecodeBase(rec.Result)
			if err != nil {
				e.logger.Warn().Err(err).Msg("studio: stored result unreadable")
				base = nil
			}
			result, err := (&generation.Assembler{Store: e.stories}).Assemble(ctx, rec.JobID, base)
			if err != nil {
				return err
			}
			if result.Title == "" {
				if sub, err := e.stories.GetSubmission(ctx, rec.JobID); err == nil {
					result.Title = domain.ExtractTitle(sub.StoryText)
				}
			}
			return printResult(out, result)
		}

		if outputJSON {
			return json.NewEncoder(out).Encode(map[string]any{
				"storyId":     rec.JobID,
				"status":      rec.Status,
				"currentStep": label,
				"error":       rec.ErrorMessage,
				"updatedAt":   rec.UpdatedAt,
			})
		}
		fmt.Fprintf(out, "status:  %s\n", rec.Status)
		if rec.CurrentStep != "" {
			fmt.Fprintf(out, "step:    %s\n", label)
		}
		if rec.ErrorMessage != "" {
			fmt.Fprintf(out, "error:   %s\n", rec.ErrorMessage)
		}
		if !rec.UpdatedAt.IsZero() {
			fmt.Fprintf(out, "updated: %s\n", rec.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusLocale, "locale", "en", "progress label language (en, id)")
}

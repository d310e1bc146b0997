package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"storystudio/internal/domain"
	"storystudio/internal/domain/jsoncfg"
	"storystudio/internal/generation"
	"storystudio/internal/infra/credentials"
)

var (
	genSettings jsoncfg.StorySettings
	genLocale   string
)

var generateCmd = &cobra.Command{
	Use:   "generate <story-file|->",
	Short: "Submit a story and follow it until the book is ready",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.IntVar(&genSettings.TargetAge, "age", jsoncfg.DefaultTargetAge, "reader age")
	f.IntVar(&genSettings.Harshness, "harshness", 0, "story intensity, 0-10")
	f.IntVar(&genSettings.DesiredPageCount, "pages", jsoncfg.DefaultPageCount, "number of pages")
	f.StringVar(&genSettings.AestheticStyle, "style", "", "illustration style")
	f.StringVar(&genSettings.FreeformNotes, "notes", "", "extra notes for the illustrator")
	f.StringVar(&genSettings.HeroImage, "hero", "", "URL of a reference image for the hero")
	f.BoolVar(&genSettings.CharacterConsistency, "consistency", true, "check characters stay consistent across pages")
	f.StringVar(&genSettings.QualityTier, "quality", jsoncfg.DefaultQualityTier, "quality tier")
	f.StringVar(&genSettings.AspectRatio, "aspect", jsoncfg.DefaultAspectRatio, "page aspect ratio")
	f.StringVar(&genLocale, "locale", "en", "progress label language (en, id)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text, name, err := readStory(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	settings := genSettings
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidSettings, err.Error())
	}

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	token := e.cfg.TriggerToken
	if token == "" {
		if token, err = credentials.NewStore(e.runner).TriggerToken(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("studio: trigger token lookup failed")
		}
	}
	trigger := generation.NewHTTPTrigger(e.cfg.TriggerURL, token, e.cfg.TriggerTimeout, e.logger)
	defer trigger.Wait()

	sub := &domain.Submission{
		JobID:     uuid.NewString(),
		StoryText: text,
		FileName:  name,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.stories.Create(ctx, sub); err != nil {
		return fmt.Errorf("record submission: %w", err)
	}

	labels := generation.NewTranslator()
	ctrl := generation.NewController(generation.ControllerDeps{
		Trigger: trigger,
		Poller: &generation.Poller{
			Store:       e.stories,
			Interval:    e.cfg.PollInterval,
			MaxAttempts: e.cfg.PollMaxAttempts,
		},
		Assembler: &generation.Assembler{Store: e.stories},
		Logger:    e.logger,
	})

	out := cmd.OutOrStdout()
	var lastLabel string
	ctrl.OnProgressChange(func(s generation.Snapshot) {
		label := string(s.Phase)
		if s.StepID != "" {
			label = labels.Label(genLocale, s.StepID)
		}
		if label == lastLabel || outputJSON {
			return
		}
		lastLabel = label
		fmt.Fprintf(out, "[%s] %s\n", time.Now().Format("15:04:05"), label)
	})

	fmt.Fprintf(cmd.ErrOrStderr(), "story %s submitted (waiting up to %s)\n", sub.JobID, e.cfg.PollBudget())
	if err := ctrl.Start(ctx, sub); err != nil {
		return err
	}

	select {
	case <-ctrl.Done():
	case <-ctx.Done():
		ctrl.Cancel()
		return fmt.Errorf("stopped following story %s; generation continues remotely", sub.JobID)
	}

	snap := ctrl.Snapshot()
	if snap.Phase != domain.PhaseComplete {
		return errors.New(snap.Error)
	}
	return printResult(out, snap.Result)
}

func readStory(stdin io.Reader, arg string) (string, string, error) {
	var (
		raw  []byte
		err  error
		name string
	)
	if arg == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(arg)
		name = filepath.Base(arg)
	}
	if err != nil {
		return "", "", fmt.Errorf("read story: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", "", errors.New("story text is empty")
	}
	return text, name, nil
}

func printResult(w io.Writer, r *domain.GenerationResult) error {
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(w, "%s\n", r.Title)
	if r.Theme != "" {
		fmt.Fprintf(w, "theme: %s\n", r.Theme)
	}
	fmt.Fprintf(w, "%d pages, %d characters, %d pages fixed\n",
		r.Metadata.PageCount, r.Metadata.CharacterCount, r.Metadata.PagesFixed)
	for _, p := range r.Pages {
		img := p.ImageData
		if img == "" {
			img = "(no image)"
		}
		fmt.Fprintf(w, "  %2d  %s\n", p.PageNumber, img)
	}
	return nil
}

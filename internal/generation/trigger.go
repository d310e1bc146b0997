package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storystudio/internal/domain"
	"storystudio/internal/domain/jsoncfg"
)

// Trigger hands a submission to the external executor without waiting for it.
type Trigger interface {
	Fire(ctx context.Context, sub *domain.Submission)
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(ctx context.Context, sub *domain.Submission)

func (f TriggerFunc) Fire(ctx context.Context, sub *domain.Submission) { f(ctx, sub) }

type triggerPayload struct {
	StoryID   string                `json:"storyId"`
	StoryText string                `json:"storyText"`
	Settings  jsoncfg.StorySettings `json:"settings"`
}

// HTTPTrigger posts submissions to the executor webhook.
type HTTPTrigger struct {
	URL     string
	Token   string
	Timeout time.Duration
	Client  *http.Client
	Logger  zerolog.Logger

	wg sync.WaitGroup
}

// NewHTTPTrigger builds a trigger for the given webhook URL.
func NewHTTPTrigger(url, token string, timeout time.Duration, logger zerolog.Logger) *HTTPTrigger {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTrigger{
		URL:     url,
		Token:   strings.TrimSpace(token),
		Timeout: timeout,
		Client:  &http.Client{},
		Logger:  logger,
	}
}

// Fire sends exactly one request on a background goroutine and returns at once.
// Failures are logged and never reported to the caller: the executor may already
// be processing the job.
func (t *HTTPTrigger) Fire(ctx context.Context, sub *domain.Submission) {
	if sub == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.send(ctx, sub); err != nil {
			t.Logger.Warn().Err(err).Str("job_id", sub.JobID).Msg("trigger: request failed")
		}
	}()
}

// Wait blocks until every in-flight trigger request has finished.
func (t *HTTPTrigger) Wait() {
	t.wg.Wait()
}

func (t *HTTPTrigger) send(ctx context.Context, sub *domain.Submission) error {
	body, err := json.Marshal(triggerPayload{
		StoryID:   sub.JobID,
		StoryText: sub.StoryText,
		Settings:  sub.Settings,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	t.Logger.Debug().Str("job_id", sub.JobID).Int("status", resp.StatusCode).Msg("trigger: executor responded")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("executor returned status %d", resp.StatusCode)
	}
	return nil
}

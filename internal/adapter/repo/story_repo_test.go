package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storystudio/internal/domain"
	"storystudio/internal/domain/jsoncfg"
	"storystudio/internal/sqlinline"
)

type stubExecutor struct {
	row      stubRow
	rows     *stubRows
	queryErr error
	execErr  error

	lastQuery string
	lastArgs  []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.lastQuery = query
	s.lastArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), s.execErr
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.lastQuery = query
	s.lastArgs = args
	return s.row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.lastQuery = query
	s.lastArgs = args
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.rows, nil
}

// stubRow copies values positionally into the scan destinations.
type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type stubRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return r.data[r.idx-1], nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.idx-1])
}

func assign(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *bool:
			*d = v.(bool)
		case *[]byte:
			if v != nil {
				*d = v.([]byte)
			}
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func TestStatusScansRecord(t *testing.T) {
	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	exec := &stubExecutor{row: stubRow{values: []any{
		"job-1", "running", "generate_images", "", []byte(nil), updated,
	}}}
	repo := NewStoryRepository(exec)

	rec, err := repo.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if rec.Status != domain.JobStatusRunning || rec.CurrentStep != "generate_images" || !rec.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if exec.lastQuery != sqlinline.QSelectStoryStatus {
		t.Fatalf("expected status query")
	}
	if got := exec.lastArgs[0]; got != "job-1" {
		t.Fatalf("expected job id arg, got %v", got)
	}
}

func TestStatusMissingRowIsNotFound(t *testing.T) {
	repo := NewStoryRepository(&stubExecutor{row: stubRow{err: pgx.ErrNoRows}})
	_, err := repo.Status(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatusPropagatesReadError(t *testing.T) {
	boom := errors.New("connection refused")
	repo := NewStoryRepository(&stubExecutor{row: stubRow{err: boom}})
	_, err := repo.Status(context.Background(), "job-1")
	if !errors.Is(err, boom) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
}

func TestCreateEncodesSettings(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewStoryRepository(exec)
	sub := &domain.Submission{
		JobID:     "job-2",
		StoryText: "Once upon a time",
		Settings:  jsoncfg.StorySettings{TargetAge: 7, DesiredPageCount: 12},
	}
	if err := repo.Create(context.Background(), sub); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if exec.lastQuery != sqlinline.QInsertStory || len(exec.lastArgs) != 5 {
		t.Fatalf("unexpected exec: %d args", len(exec.lastArgs))
	}
	raw, ok := exec.lastArgs[3].([]byte)
	if !ok {
		t.Fatalf("expected settings bytes, got %T", exec.lastArgs[3])
	}
	var decoded jsoncfg.StorySettings
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("settings not json: %v", err)
	}
	if decoded.TargetAge != 7 || decoded.DesiredPageCount != 12 {
		t.Fatalf("unexpected settings: %+v", decoded)
	}
	if created, ok := exec.lastArgs[4].(time.Time); !ok || created.IsZero() {
		t.Fatalf("expected created_at to be filled, got %v", exec.lastArgs[4])
	}
}

func TestCreateRequiresJobID(t *testing.T) {
	repo := NewStoryRepository(&stubExecutor{})
	if err := repo.Create(context.Background(), &domain.Submission{}); err == nil {
		t.Fatal("expected error for missing job id")
	}
}

func TestGetSubmissionDecodesSettings(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	exec := &stubExecutor{row: stubRow{values: []any{
		"job-3", "A dragon story", "dragon.txt", []byte(`{"targetAge":9,"aspectRatio":"3:4"}`), created,
	}}}
	sub, err := NewStoryRepository(exec).GetSubmission(context.Background(), "job-3")
	if err != nil {
		t.Fatalf("GetSubmission error: %v", err)
	}
	if sub.Settings.TargetAge != 9 || sub.Settings.AspectRatio != "3:4" || sub.FileName != "dragon.txt" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
}

func TestListPageAssets(t *testing.T) {
	rows := &stubRows{data: [][]any{
		{1, "https://cdn/1.png", "Morning"},
		{2, "https://cdn/2.png", "Noon"},
	}}
	assets, err := NewStoryRepository(&stubExecutor{rows: rows}).ListPageAssets(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("ListPageAssets error: %v", err)
	}
	if len(assets) != 2 || assets[1].PageNumber != 2 || assets[1].ImageRef != "https://cdn/2.png" {
		t.Fatalf("unexpected assets: %+v", assets)
	}
	if !rows.closed {
		t.Fatal("rows were not closed")
	}
}

func TestListCharacterAssetsRowsError(t *testing.T) {
	rows := &stubRows{err: errors.New("stream broken")}
	_, err := NewStoryRepository(&stubExecutor{rows: rows}).ListCharacterAssets(context.Background(), "job-1")
	if err == nil {
		t.Fatal("expected rows error")
	}
}

func TestListStoriesDerivesTitles(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := &stubRows{data: [][]any{
		{"job-1", "**The Brave Fox**\nOnce there was a fox.", "courage", "completed", created},
	}}
	exec := &stubExecutor{rows: rows}
	stories, err := NewStoryRepository(exec).ListStories(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListStories error: %v", err)
	}
	if len(stories) != 1 || stories[0].Title != "The Brave Fox" || stories[0].Theme != "courage" {
		t.Fatalf("unexpected stories: %+v", stories)
	}
	if exec.lastArgs[0] != 50 {
		t.Fatalf("expected default limit 50, got %v", exec.lastArgs[0])
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunAcceptsMarkedQueries(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "q.go", "package q\n\nconst QOne = `--sql 0b6c1d52-8a7e-4f65-9a53-8f3f0f1d2a11\nSELECT 1`\n\nconst Label = \"not sql\"\n")

	var stderr bytes.Buffer
	if code := run(&stderr, []string{dir}); code != 0 {
		t.Fatalf("exit = %d: %s", code, stderr.String())
	}
}

func TestRunFlagsMissingAndDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.go", "package q\n\nconst QA = `--sql 0b6c1d52-8a7e-4f65-9a53-8f3f0f1d2a11\nSELECT 1`\n")
	writeSource(t, dir, "b.go", "package q\n\nconst (\n\tQB = `--sql 0b6c1d52-8a7e-4f65-9a53-8f3f0f1d2a11\nUPDATE t SET x = 1`\n\tQC = `DELETE FROM t`\n)\n")

	var stderr bytes.Buffer
	if code := run(&stderr, []string{dir}); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	out := stderr.String()
	if !strings.Contains(out, "already used by QA") {
		t.Fatalf("duplicate not reported:\n%s", out)
	}
	if !strings.Contains(out, "missing or invalid --sql <uuid> marker (QC)") {
		t.Fatalf("missing marker not reported:\n%s", out)
	}
}

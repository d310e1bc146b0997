package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

func TestWriteArchivesEntries(t *testing.T) {
	var buf bytes.Buffer
	entries := []Entry{
		{Filename: "story.json", Data: []byte(`{"title":"Fox"}`)},
		{Filename: "images/page-1.png", Data: []byte("png-1")},
		{Filename: "images/page-1.png", Data: []byte("png-1b")},
		{Filename: "../escape.txt", Data: []byte("x")},
	}
	if err := Write(&buf, entries, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		got[f.Name] = string(data)
	}
	want := map[string]string{
		"story.json":          `{"title":"Fox"}`,
		"images/page-1.png":   "png-1",
		"images/page-1-2.png": "png-1b",
		"escape.txt":          "x",
	}
	if len(got) != len(want) {
		t.Fatalf("entries = %v", got)
	}
	for name, data := range want {
		if got[name] != data {
			t.Errorf("%s = %q, want %q", name, got[name], data)
		}
	}
}

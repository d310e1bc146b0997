package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	key, err := store.Write(context.Background(), "./exports//job-1/story.json", []byte(`{}`))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "exports/job-1/story.json" {
		t.Fatalf("unexpected key %q", key)
	}
	data, err := store.Read(context.Background(), key)
	if err != nil || string(data) != `{}` {
		t.Fatalf("Read = %q, %v", data, err)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "..", "../etc/passwd", "a/../../b", " "} {
		if _, err := sanitizeKey(key); err == nil {
			t.Errorf("sanitizeKey(%q) should fail", key)
		}
	}
	if got, err := sanitizeKey("/heroes/a.png"); err != nil || got != "heroes/a.png" {
		t.Fatalf("sanitizeKey = %q, %v", got, err)
	}
}

func TestPublicURLAndKeyFromURL(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "https://cdn.example.com/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	url := store.PublicURL("heroes/job-1.png")
	if url != "https://cdn.example.com/static/heroes/job-1.png" {
		t.Fatalf("PublicURL = %q", url)
	}
	if key, ok := store.KeyFromURL(url); !ok || key != "heroes/job-1.png" {
		t.Fatalf("KeyFromURL = %q, %v", key, ok)
	}
	if _, ok := store.KeyFromURL("https://elsewhere.example.com/a.png"); ok {
		t.Fatal("foreign url should not map to a key")
	}
}

func TestSaveDataURL(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	payload := []byte{0x89, 'P', 'N', 'G'}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	key, err := store.SaveDataURL(context.Background(), "heroes", "job-1", dataURL)
	if err != nil {
		t.Fatalf("SaveDataURL: %v", err)
	}
	if key != "heroes/job-1.png" {
		t.Fatalf("unexpected key %q", key)
	}
	data, err := store.Read(context.Background(), key)
	if err != nil || string(data) != string(payload) {
		t.Fatalf("stored bytes = %v, %v", data, err)
	}
	if store.PublicURL(key) != "/static/heroes/job-1.png" {
		t.Fatalf("PublicURL = %q", store.PublicURL(key))
	}
}

func TestSaveDataURLRejectsInvalidInput(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.SaveDataURL(context.Background(), "heroes", "a", "https://example.com/a.png"); !errors.Is(err, ErrNotDataURL) {
		t.Fatalf("expected ErrNotDataURL, got %v", err)
	}
	if _, err := store.SaveDataURL(context.Background(), "heroes", "a", "data:text/plain;base64,aGk="); err == nil {
		t.Fatal("expected unsupported type error")
	}
	if _, err := store.SaveDataURL(context.Background(), "heroes", "a", "data:image/png;base64,!!!"); err == nil {
		t.Fatal("expected decode error")
	}
}

package objectstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorePutGetDelete(t *testing.T) {
	root := filepath.Join(t.TempDir(), "images")
	s, err := NewLocalStore(root, "/images/")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	ctx := context.Background()
	data := []byte("\x89PNG fake")

	url, err := s.Put(ctx, DesignKey("abc"), data, ContentTypePNG)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if url != "/images/designs/abc.png" {
		t.Errorf("Put() url = %s", url)
	}
	if _, err := os.Stat(filepath.Join(root, "designs", "abc.png")); err != nil {
		t.Errorf("object not on disk: %v", err)
	}

	got, err := s.Get(ctx, DesignKey("abc"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}

	if err := s.Delete(ctx, DesignKey("abc")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, DesignKey("abc")); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, DesignKey("abc")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestLocalStoreOverwrite(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir(), "/images")
	ctx := context.Background()
	s.Put(ctx, "k.png", []byte("one"), ContentTypePNG)
	s.Put(ctx, "k.png", []byte("two"), ContentTypePNG)

	got, err := s.Get(ctx, "k.png")
	if err != nil || string(got) != "two" {
		t.Errorf("Get() = %q, %v; want two", got, err)
	}
	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		t.Errorf("expected no temp files left, found %d entries", len(entries))
	}
}

func TestLocalStoreRejectsBadKeys(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir(), "/images")
	for _, key := range []string{"", "/etc/passwd", "../escape.png", "a/../../b", "..", `a\b`} {
		if _, err := s.Put(context.Background(), key, []byte("x"), ""); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestLocalStoreHonorsContext(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir(), "/images")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, "x.png", nil, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Put() error = %v, want context.Canceled", err)
	}
}

func TestKeys(t *testing.T) {
	if got := DesignKey("id1"); got != "designs/id1.png" {
		t.Errorf("DesignKey() = %s", got)
	}
	if got := SourceKey("id1"); got != "sources/id1" {
		t.Errorf("SourceKey() = %s", got)
	}
}

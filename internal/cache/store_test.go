package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "cache.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	k := Key("deepseek", "deepseek-chat", "xiaohongshu", "标题", "正文")
	if _, err := s.Get(k); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(k, "改写结果。"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, err := s.Get(k)
	if err != nil || got != "改写结果。" {
		t.Fatalf("unexpected Get: %q %v", got, err)
	}
}

func TestKeyIsUnambiguous(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Fatalf("length prefix must separate parts")
	}
	if Key("a") != Key("a") {
		t.Fatalf("key must be stable")
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	s2, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if v, err := s2.Get("k"); err != nil || v != "v" {
		t.Fatalf("entry lost after reopen: %q %v", v, err)
	}
}

func TestPrune(t *testing.T) {
	s := openTemp(t)
	if err := s.Put("k", "v"); err != nil {
		t.Fatal(err)
	}
	n, err := s.Prune(time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("fresh entries must survive: %d %v", n, err)
	}
	n, err = s.Prune(-time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("expected one pruned entry: %d %v", n, err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pruned entry still present: %v", err)
	}
}

func TestOpenMissingPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatalf("expected error")
	}
	var s *Store
	if err := s.Close(); err != nil {
		t.Fatalf("nil store close: %v", err)
	}
}

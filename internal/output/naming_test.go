package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type brokenReader struct{}

func (brokenReader) Read(p []byte) (int, error) { return 0, io.EOF }

func TestEnsureDir(t *testing.T) {
	d := t.TempDir()
	target := filepath.Join(d, "a", "b")
	if err := EnsureDir(target); err != nil {
		t.Fatalf("EnsureDir error: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("stat error: %v", err)
	}
	if err := EnsureDir(""); err == nil {
		t.Fatalf("expected empty dir error")
	}
}

func TestNamerNext(t *testing.T) {
	d := t.TempDir()
	n := NewNamer(bytes.NewReader(bytes.Repeat([]byte{1}, 256)))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	id1, p1, err := n.Next(d, "/drafts/我的 周末.md", "xiaohongshu")
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if len(id1) != 26 {
		t.Fatalf("expected a ULID, got %q", id1)
	}
	base := filepath.Base(p1)
	if !strings.HasPrefix(base, "我的_周末_xiaohongshu_") || !strings.HasSuffix(base, ".json") {
		t.Fatalf("unexpected name: %s", base)
	}
	id2, p2, err := n.Next(d, "/drafts/我的 周末.md", "xiaohongshu")
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if id2 <= id1 || p2 == p1 {
		t.Fatalf("ids must increase within one millisecond: %s %s", id1, id2)
	}
}

func TestNamerEntropyError(t *testing.T) {
	n := NewNamer(brokenReader{})
	_, _, err := n.Next(t.TempDir(), "a.md", "twitter")
	if err == nil || !errors.Is(err, io.EOF) {
		t.Fatalf("expected entropy error, got %v", err)
	}
}

func TestSanitizeStem(t *testing.T) {
	cases := map[string]string{"a b": "a_b", "..": "post", "": "post", "x-y_z": "x-y_z", "标题!": "标题"}
	for in, want := range cases {
		if got := sanitizeStem(in); got != want {
			t.Fatalf("%q: want %q got %q", in, want, got)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "out.json")
	if err := WriteJSON(p, map[string]any{"body": "正文"}); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil || got["body"] != "正文" {
		t.Fatalf("unexpected file: %s", raw)
	}
	entries, _ := os.ReadDir(d)
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %v", entries)
	}
	if err := WriteJSON(filepath.Join(d, "missing", "x.json"), 1); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

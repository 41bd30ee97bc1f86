package cmd

import (
	"reflect"
	"strings"
	"testing"
)

func TestFormatDurationMS(t *testing.T) {
	cases := map[int64]string{
		-1:    "0ms",
		999:   "999ms",
		1000:  "1.00s",
		61000: "1m1.0s",
	}
	for in, want := range cases {
		if got := formatDurationMS(in); got != want {
			t.Fatalf("%d => %s, want %s", in, got, want)
		}
	}
}

func TestNormalizeArgs(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{[]string{"a.md"}, []string{"normalize", "a.md"}},
		{[]string{"-p", "twitter", "a.md"}, []string{"normalize", "-p", "twitter", "a.md"}},
		{[]string{"normalize", "a.md"}, []string{"normalize", "a.md"}},
		{[]string{"watch", "drafts"}, []string{"watch", "drafts"}},
		{[]string{"--config", "x"}, []string{"--config", "x"}},
		{[]string{"-v"}, []string{"-v"}},
		{[]string{"set", "key", "abc"}, []string{"set", "key", "abc"}},
	}
	for _, c := range cases {
		if got := normalizeArgs(c.in); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("normalizeArgs(%v) = %#v, want %#v", c.in, got, c.want)
		}
	}
}

func TestContainsPositionalSource(t *testing.T) {
	if containsPositionalSource([]string{"--config", "x"}) {
		t.Fatalf("unexpected true")
	}
	if containsPositionalSource([]string{"--budget", "300", "--tags", "a,b", "--rewrite"}) {
		t.Fatalf("flag values are not inputs")
	}
	if !containsPositionalSource([]string{"--config", "x", "a.md"}) {
		t.Fatalf("expected true")
	}
	if !containsPositionalSource([]string{"--budget=300", "a.md"}) {
		t.Fatalf("expected true")
	}
	if !containsPositionalSource([]string{"--", "a.md"}) {
		t.Fatalf("expected true")
	}
}

func TestVersionText(t *testing.T) {
	oldV, oldC, oldB := Version, Commit, BuildTime
	defer func() {
		Version, Commit, BuildTime = oldV, oldC, oldB
	}()
	Version, Commit, BuildTime = "v1", "abc", "t"
	out := versionText()
	if !strings.Contains(out, "v1") || !strings.Contains(out, "abc") {
		t.Fatalf("unexpected version text: %s", out)
	}
}

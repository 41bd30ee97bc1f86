package normalize

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func para(i int) string {
	return strings.Repeat("今天天气很好，", 8) + fmt.Sprintf("第%d段结束。", i)
}

func article(paragraphs int, tagLine string) string {
	parts := []string{"# 我的周末", "![封面](https://cdn.example.com/cover.png)"}
	for i := 1; i <= paragraphs; i++ {
		parts = append(parts, para(i))
	}
	if tagLine != "" {
		parts = append(parts, tagLine)
	}
	return strings.Join(parts, "\n\n")
}

func TestNormalizeFullRun(t *testing.T) {
	p := New(DefaultConfig())
	out, err := p.Normalize(RawDocument{Markup: article(3, "#周末 #生活")}, Input{
		ExplicitTags: []string{"生活", "读书"},
		KeywordSeeds: []string{"公园", "咖啡"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Title != "我的周末" {
		t.Fatalf("unexpected title: %q", out.Title)
	}
	if out.CoverImage != "https://cdn.example.com/cover.png" || len(out.Images) != 1 {
		t.Fatalf("unexpected images: %+v cover=%q", out.Images, out.CoverImage)
	}
	if got := out.Topics.Names(); !reflect.DeepEqual(got, []string{"周末", "生活", "读书"}) {
		t.Fatalf("unexpected topics: %v", got)
	}
	if !strings.HasSuffix(out.Body, "\n\n#周末 #生活 #读书") {
		t.Fatalf("tag line missing: %q", out.Body)
	}
	if strings.Contains(out.Body, "我的周末") || strings.Contains(out.Body, "cover.png") {
		t.Fatalf("title or image leaked into body: %q", out.Body)
	}
	if n := countAnchors(out.Body); n != 3 {
		t.Fatalf("expected 3 anchors, got %d", n)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}
}

func TestNormalizeIncomplete(t *testing.T) {
	p := New(DefaultConfig())
	out, err := p.Normalize(RawDocument{Markup: strings.Repeat("字", 90)}, Input{})
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	var ie *IncompleteError
	if !errors.As(err, &ie) || ie.Reason != ReasonTooShort {
		t.Fatalf("unexpected error: %#v", err)
	}
	if !strings.Contains(out.Body, strings.Repeat("字", 90)) {
		t.Fatalf("content must be returned with the veto: %q", out.Body)
	}
}

func TestNormalizeUsesRewrittenCandidate(t *testing.T) {
	p := New(DefaultConfig())
	rewritten := "**改写**之后：" + para(1) + "\n\n" + para(2)
	out, err := p.Normalize(RawDocument{Markup: article(2, "")}, Input{Rewritten: rewritten})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.Body, "改写之后：") || strings.Contains(out.Body, "**") {
		t.Fatalf("rewritten body must be stripped and used: %q", out.Body)
	}
	if out.Title != "我的周末" {
		t.Fatalf("title comes from the original markup: %q", out.Title)
	}
}

func TestNormalizeEmptyRewriteFallsBack(t *testing.T) {
	p := New(DefaultConfig())
	out, err := p.Normalize(RawDocument{Markup: article(2, "")}, Input{Rewritten: "```\n```"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.Body, "第2段结束。") {
		t.Fatalf("expected original body: %q", out.Body)
	}
	if !reflect.DeepEqual(out.Warnings, []string{WarnRewriteEmpty}) {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}
}

func TestNormalizeDropsInvalidUTF8InRewrite(t *testing.T) {
	p := New(DefaultConfig())
	out, err := p.Normalize(RawDocument{Markup: article(1, "")}, Input{Rewritten: para(1) + "\xff\xfe\n\n" + para(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(out.Body) {
		t.Fatalf("body must be valid UTF-8: %q", out.Body)
	}
}

func TestNormalizeDropsInvalidUTF8InMarkup(t *testing.T) {
	p := New(DefaultConfig())
	cases := []struct {
		name   string
		markup string
	}{
		{"only_invalid", "\xff\xfe"},
		{"title_and_body", "# 标题\xff\n\n" + para(1) + "\xfe\n\n" + para(2)},
	}
	for _, tc := range cases {
		out, _ := p.Normalize(RawDocument{Markup: tc.markup}, Input{})
		if !utf8.ValidString(out.Body) || strings.ContainsRune(out.Body, utf8.RuneError) {
			t.Fatalf("%s: body must be clean UTF-8: %q", tc.name, out.Body)
		}
		if strings.ContainsRune(out.Title, utf8.RuneError) {
			t.Fatalf("%s: title must be clean UTF-8: %q", tc.name, out.Title)
		}
	}
	_, err := p.Normalize(RawDocument{Markup: "\xff\xfe"}, Input{})
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete for invalid-only markup, got %v", err)
	}
}

func TestNormalizeBudgetOverride(t *testing.T) {
	p := New(DefaultConfig())
	out, err := p.Normalize(RawDocument{Markup: article(5, "#周末 #生活")}, Input{Budget: 300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := utf8.RuneCountInString(out.Body); n > 300 {
		t.Fatalf("budget exceeded: %d", n)
	}
	if !strings.Contains(out.Body, "第4段结束。") || strings.Contains(out.Body, "第5段") {
		t.Fatalf("expected cut after the 4th paragraph: %q", out.Body)
	}
	if !strings.HasSuffix(out.Body, "\n\n#周末 #生活") {
		t.Fatalf("tag line must survive truncation: %q", out.Body)
	}
	if !reflect.DeepEqual(out.Warnings, []string{WarnTruncated}) {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}
}

func TestNormalizeShortFormProfile(t *testing.T) {
	p := New(Config{
		Budget:        280,
		MaxTopics:     3,
		MinAnchors:    0,
		MaxAnchors:    2,
		MinLength:     40,
		TerminalPunct: DefaultTerminalPunct + ".",
	})
	out, err := p.Normalize(RawDocument{Markup: article(5, "")}, Input{
		ExplicitTags: []string{"一一", "二二", "三三", "四四"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Topics) != 3 {
		t.Fatalf("expected 3 topics, got %v", out.Topics.Names())
	}
	if n := utf8.RuneCountInString(out.Body); n > 280 {
		t.Fatalf("budget exceeded: %d", n)
	}
	if n := countAnchors(out.Body); n > 2 {
		t.Fatalf("too many anchors: %d", n)
	}
}

func TestNewFillsDefaults(t *testing.T) {
	if got := New(Config{}).Config(); !reflect.DeepEqual(got, DefaultConfig()) {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestNormalizeConcurrentDeterministic(t *testing.T) {
	p := New(DefaultConfig())
	doc := RawDocument{Markup: article(4, "#周末")}
	in := Input{ExplicitTags: []string{"生活"}}
	want, wantErr := p.Normalize(doc, in)

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Normalize(doc, in)
			if !reflect.DeepEqual(got, want) || (err == nil) != (wantErr == nil) {
				errs <- fmt.Sprintf("diverged: %+v", got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
}

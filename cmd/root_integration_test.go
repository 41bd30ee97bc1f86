package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDraft(t *testing.T, dir, name, markup string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(markup), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func longDraft(paragraphs int) string {
	parts := []string{"# 周末记录", "![封面](https://cdn.example.com/cover.png)"}
	for i := 1; i <= paragraphs; i++ {
		parts = append(parts, strings.Repeat("今天天气很好，", 8)+fmt.Sprintf("第%d段结束。", i))
	}
	parts = append(parts, "增长 复盘 AI 效率 职场")
	return strings.Join(parts, "\n\n")
}

func TestRootCmdNormalizeSuccessPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := t.TempDir()
	in := writeDraft(t, work, "post.md", longDraft(3))

	var out, errb bytes.Buffer
	root := NewRootCmd(&out, &errb)
	root.SetArgs(normalizeArgs([]string{in, "-o", work, "--tags", "周末"}))
	if err := root.Execute(); err != nil {
		t.Fatalf("root execute failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "任务完成：成功 1，失败 0") {
		t.Fatalf("unexpected stdout: %s", out.String())
	}

	matches, err := filepath.Glob(filepath.Join(work, "post_xiaohongshu_*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one output, got %v %v", matches, err)
	}
	raw, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	var post struct {
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Topics []string `json:"topics"`
	}
	if err := json.Unmarshal(raw, &post); err != nil {
		t.Fatal(err)
	}
	if post.Title != "周末记录" || !strings.HasSuffix(post.Body, "#周末 #增长 #复盘 #AI #效率 #职场") {
		t.Fatalf("unexpected post: %+v", post)
	}
}

func TestRootCmdIncompleteFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	work := t.TempDir()
	in := writeDraft(t, work, "short.md", "# 标题\n\n还没写完")

	var out, errb bytes.Buffer
	root := NewRootCmd(&out, &errb)
	root.SetArgs([]string{"normalize", in, "-o", work})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "未通过完整性检查 1") {
		t.Fatalf("expected incomplete failure, got %v", err)
	}

	out.Reset()
	root = NewRootCmd(&out, &errb)
	root.SetArgs([]string{"normalize", in, "-o", work, "--allow-incomplete"})
	if err := root.Execute(); err != nil {
		t.Fatalf("allow-incomplete should succeed: %v", err)
	}
}

func TestRootCmdRewriteWithBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/completions":
			var req struct {
				Messages []struct {
					Content string `json:"content"`
				} `json:"messages"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "目标平台：twitter") {
				http.Error(w, "bad prompt", http.StatusBadRequest)
				return
			}
			fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, strings.Repeat("周末去公园散步，心情很好。", 4))
		case "/user/balance":
			fmt.Fprint(w, `{"is_available":true,"balance_infos":[{"currency":"CNY","total_balance":"8.88"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DEEPSEEK_API_KEY", "")
	cfgRoot := filepath.Join(home, ".content-factory")
	if err := os.MkdirAll(cfgRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(cfgRoot, "config.yaml")
	cfg := fmt.Sprintf(`provider: deepseek
api_key_env: DEEPSEEK_API_KEY
max_retries: 0
request_timeout_sec: 20
cache:
  enabled: false
providers:
  deepseek:
    base_url: %s
    model: deepseek-chat
`, server.URL)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgRoot, ".env"), []byte("DEEPSEEK_API_KEY=test\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	work := t.TempDir()
	in := writeDraft(t, work, "post.md", longDraft(3))
	var out, errb bytes.Buffer
	root := NewRootCmd(&out, &errb)
	root.SetArgs([]string{"normalize", in, "--config", cfgPath, "-o", work, "-p", "twitter", "--rewrite"})
	if err := root.Execute(); err != nil {
		t.Fatalf("root execute failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "任务完成：成功 1，失败 0") || !strings.Contains(out.String(), "余额：8.88 元") {
		t.Fatalf("unexpected stdout: %s", out.String())
	}
	matches, _ := filepath.Glob(filepath.Join(work, "post_twitter_*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one twitter output, got %v", matches)
	}
	raw, _ := os.ReadFile(matches[0])
	if !strings.Contains(string(raw), "周末去公园散步") {
		t.Fatalf("rewritten body missing: %s", raw)
	}
}

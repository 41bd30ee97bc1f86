package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetKeyCommandCreateAndUpdateEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := os.Create(filepath.Join(t.TempDir(), "stdout.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	errf, err := os.Create(filepath.Join(t.TempDir(), "stderr.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer errf.Close()

	root := NewRootCmd(out, errf)
	root.SetArgs([]string{"set", "key", "first-key"})
	if err := root.Execute(); err != nil {
		t.Fatalf("set key create failed: %v", err)
	}
	envPath := filepath.Join(home, ".content-factory", ".env")
	raw, err := os.ReadFile(envPath)
	if err != nil {
		t.Fatalf("read env failed: %v", err)
	}
	text := string(raw)
	if !strings.Contains(text, "DEEPSEEK_API_KEY=first-key") {
		t.Fatalf("missing key after create: %s", text)
	}

	root = NewRootCmd(out, errf)
	root.SetArgs([]string{"set", "key", "second-key"})
	if err := root.Execute(); err != nil {
		t.Fatalf("set key update failed: %v", err)
	}
	raw, err = os.ReadFile(envPath)
	if err != nil {
		t.Fatalf("read env failed: %v", err)
	}
	text = string(raw)
	if !strings.Contains(text, "DEEPSEEK_API_KEY=second-key") || strings.Contains(text, "DEEPSEEK_API_KEY=first-key") {
		t.Fatalf("key not updated correctly: %s", text)
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	stdoutRaw, err := io.ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(stdoutRaw)) != "" {
		t.Fatalf("expected empty stdout, got: %q", string(stdoutRaw))
	}
}

func TestSetKeyUsesConfiguredEnvName(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgPath := filepath.Join(home, "custom.yaml")
	if err := os.WriteFile(cfgPath, []byte("provider: openai\napi_key_env: OPENAI_API_KEY\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := NewRootCmd(io.Discard, io.Discard)
	root.SetArgs([]string{"set", "key", "sk-1", "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("set key failed: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(home, ".content-factory", ".env"))
	if err != nil || !strings.Contains(string(raw), "OPENAI_API_KEY=sk-1") {
		t.Fatalf("unexpected env: %q %v", raw, err)
	}
}

func TestSetKeyCommandEmptyKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := NewRootCmd(io.Discard, io.Discard)
	root.SetArgs([]string{"set", "key", "   "})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "API Key 不能为空") {
		t.Fatalf("expected empty key error, got %v", err)
	}
}

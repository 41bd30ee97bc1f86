package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadBootstrapsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, paths, err := Load("", home)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if paths.ConfigPath != filepath.Join(home, ".content-factory", "config.yaml") {
		t.Fatalf("unexpected config path: %s", paths.ConfigPath)
	}
	for _, p := range []string{paths.ConfigPath, paths.EnvExample} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("bootstrap file missing %s: %v", p, err)
		}
	}
	if cfg.MaxRetries != 2 || cfg.Platforms["twitter"].Budget != 280 {
		t.Fatalf("embedded defaults not applied: %+v", cfg)
	}
	if paths.CachePath != filepath.Join(home, ".content-factory", "cache.db") {
		t.Fatalf("unexpected cache path: %s", paths.CachePath)
	}
	if paths.ConfigSource != paths.ConfigPath {
		t.Fatalf("unexpected config source: %s", paths.ConfigSource)
	}
}

func TestLoadCustomPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfgPath := filepath.Join(home, "custom.yaml")
	raw := "provider: OpenAI\nplatform: twitter\ncache:\n  path: data/cache.db\nplatforms:\n  twitter:\n    budget: 140\n"
	if err := os.WriteFile(cfgPath, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, paths, err := Load(cfgPath, "/work")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Platform != "twitter" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if tw := cfg.Platforms["twitter"]; tw.Budget != 140 || tw.MaxTopics != 3 {
		t.Fatalf("unexpected twitter profile: %+v", tw)
	}
	if paths.CachePath != filepath.Join("/work", "data", "cache.db") {
		t.Fatalf("relative cache path must resolve against cwd: %s", paths.CachePath)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgPath := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("platforms: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Load(cfgPath, home)
	if err == nil || !strings.Contains(err.Error(), "配置文件格式错误") {
		t.Fatalf("expected yaml error, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	if got := expandPath("~/x", "/home/u", "/cwd"); got != filepath.Join("/home/u", "x") {
		t.Fatalf("unexpected: %s", got)
	}
	if got := expandPath("/abs", "/home/u", "/cwd"); got != "/abs" {
		t.Fatalf("unexpected: %s", got)
	}
	if got := expandPath("rel", "/home/u", "/cwd"); got != filepath.Join("/cwd", "rel") {
		t.Fatalf("unexpected: %s", got)
	}
	if got := expandPath(" ", "/home/u", "/cwd"); got != "" {
		t.Fatalf("unexpected: %s", got)
	}
}

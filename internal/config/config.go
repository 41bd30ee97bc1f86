package config

import (
	"strings"

	"content-factory/internal/normalize"
)

const (
	FormatText = "text"
	FormatHTML = "html"
)

type Config struct {
	Provider          string                    `yaml:"provider"`
	APIKeyEnv         string                    `yaml:"api_key_env"`
	Platform          string                    `yaml:"platform"`
	Concurrency       int                       `yaml:"concurrency"`
	MaxRetries        int                       `yaml:"max_retries"`
	RequestTimeoutSec int                       `yaml:"request_timeout_sec"`
	Rewrite           RewriteConfig             `yaml:"rewrite"`
	Cache             CacheConfig               `yaml:"cache"`
	Output            OutputConfig              `yaml:"output"`
	Platforms         map[string]PlatformConfig `yaml:"platforms"`
	Providers         map[string]ProviderConfig `yaml:"providers"`
}

type RewriteConfig struct {
	Enabled     bool `yaml:"enabled"`
	BaseDelayMS int  `yaml:"base_delay_ms"`
	MaxDelayMS  int  `yaml:"max_delay_ms"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// MaxAgeDays drops cached rewrites older than this on open; negative keeps everything.
	MaxAgeDays int `yaml:"max_age_days"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// PlatformConfig is one publishing target. Format "html" additionally renders
// the original Markdown for rich-text editors.
type PlatformConfig struct {
	Format        string   `yaml:"format"`
	Budget        int      `yaml:"budget"`
	MaxTopics     int      `yaml:"max_topics"`
	MinAnchors    int      `yaml:"min_anchors"`
	MaxAnchors    int      `yaml:"max_anchors"`
	MinLength     int      `yaml:"min_length"`
	EmojiPool     []string `yaml:"emoji_pool"`
	TerminalPunct string   `yaml:"terminal_punct"`
}

func (p PlatformConfig) Normalize() normalize.Config {
	return normalize.Config{
		Budget:        p.Budget,
		MaxTopics:     p.MaxTopics,
		MinAnchors:    p.MinAnchors,
		MaxAnchors:    p.MaxAnchors,
		MinLength:     p.MinLength,
		EmojiPool:     append([]string{}, p.EmojiPool...),
		TerminalPunct: p.TerminalPunct,
	}
}

type Paths struct {
	HomeDir      string
	RootDir      string
	ConfigPath   string
	EnvPath      string
	EnvExample   string
	ConfigSource string
	CachePath    string
}

var builtinPlatforms = map[string]PlatformConfig{
	"xiaohongshu": {
		Format:     FormatText,
		Budget:     800,
		MaxTopics:  12,
		MinAnchors: 3,
		MaxAnchors: 5,
		MinLength:  120,
	},
	"twitter": {
		Format:        FormatText,
		Budget:        280,
		MaxTopics:     3,
		MinAnchors:    0,
		MaxAnchors:    2,
		MinLength:     40,
		TerminalPunct: normalize.DefaultTerminalPunct + ".",
	},
	"wechat": {
		Format:     FormatHTML,
		Budget:     20000,
		MaxTopics:  8,
		MinAnchors: 0,
		MaxAnchors: 3,
		MinLength:  200,
	},
}

// BuiltinPlatforms lists the profiles that exist without any configuration.
func BuiltinPlatforms() []string {
	return []string{"xiaohongshu", "twitter", "wechat"}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = "deepseek"
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if strings.TrimSpace(c.APIKeyEnv) == "" {
		c.APIKeyEnv = "DEEPSEEK_API_KEY"
	}
	if strings.TrimSpace(c.Platform) == "" {
		c.Platform = "xiaohongshu"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = 60
	}
	if c.Rewrite.BaseDelayMS <= 0 {
		c.Rewrite.BaseDelayMS = 1000
	}
	if c.Rewrite.MaxDelayMS <= 0 {
		c.Rewrite.MaxDelayMS = 5000
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = "~/.content-factory/cache.db"
	}
	if c.Cache.MaxAgeDays == 0 {
		c.Cache.MaxAgeDays = 30
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = "."
	}

	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	for name, def := range map[string]ProviderConfig{
		"deepseek": {BaseURL: "https://api.deepseek.com", Model: "deepseek-chat"},
		"openai":   {BaseURL: "https://api.openai.com", Model: "gpt-4o-mini"},
	} {
		p, ok := c.Providers[name]
		if !ok {
			c.Providers[name] = def
			continue
		}
		if strings.TrimSpace(p.BaseURL) == "" {
			p.BaseURL = def.BaseURL
		}
		if strings.TrimSpace(p.Model) == "" {
			p.Model = def.Model
		}
		c.Providers[name] = p
	}

	if c.Platforms == nil {
		c.Platforms = map[string]PlatformConfig{}
	}
	for name, def := range builtinPlatforms {
		p, ok := c.Platforms[name]
		if !ok {
			c.Platforms[name] = def
			continue
		}
		c.Platforms[name] = p.withDefaults(def)
	}
	for name, p := range c.Platforms {
		if _, builtin := builtinPlatforms[name]; !builtin {
			c.Platforms[name] = p.withDefaults(builtinPlatforms["xiaohongshu"])
		}
	}
}

func (p PlatformConfig) withDefaults(def PlatformConfig) PlatformConfig {
	p.Format = strings.ToLower(strings.TrimSpace(p.Format))
	if p.Format != FormatText && p.Format != FormatHTML {
		p.Format = def.Format
	}
	if p.Budget <= 0 {
		p.Budget = def.Budget
	}
	if p.MaxTopics <= 0 {
		p.MaxTopics = def.MaxTopics
	}
	if p.MinAnchors <= 0 && p.MaxAnchors <= 0 {
		p.MinAnchors = def.MinAnchors
		p.MaxAnchors = def.MaxAnchors
	}
	if p.MinLength <= 0 {
		p.MinLength = def.MinLength
	}
	if len(p.EmojiPool) == 0 {
		p.EmojiPool = def.EmojiPool
	}
	if strings.TrimSpace(p.TerminalPunct) == "" {
		p.TerminalPunct = def.TerminalPunct
	}
	return p
}

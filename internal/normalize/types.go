// Package normalize turns long-form Markdown/HTML articles into platform-safe posts.
//
// Every function in this package is pure: no I/O, no shared state, safe to call
// concurrently for unrelated documents.
package normalize

type RawDocument struct {
	Markup string
}

type Image struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type TopicSource int

const (
	SourceInlineHash TopicSource = iota
	SourceExplicit
	SourceKeywordSeed
	SourceBareTrailingLine
)

func (s TopicSource) String() string {
	switch s {
	case SourceInlineHash:
		return "inline_hash"
	case SourceExplicit:
		return "explicit"
	case SourceKeywordSeed:
		return "keyword_seed"
	case SourceBareTrailingLine:
		return "bare_trailing_line"
	default:
		return "unknown"
	}
}

// Topic names never carry the "#" prefix; it is added when the tag line is rendered.
type Topic struct {
	Name   string      `json:"name"`
	Source TopicSource `json:"-"`
}

type TopicSet []Topic

func (ts TopicSet) Names() []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Name)
	}
	return out
}

type NormalizedContent struct {
	Title      string   `json:"title,omitempty"`
	Body       string   `json:"body"`
	Topics     TopicSet `json:"topics"`
	Images     []Image  `json:"images"`
	CoverImage string   `json:"cover_image,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

type Verdict struct {
	OK     bool
	Reason string
}

type Config struct {
	Budget        int
	MaxTopics     int
	MinAnchors    int
	MaxAnchors    int
	MinLength     int
	EmojiPool     []string
	TerminalPunct string
}

const (
	DefaultBudget        = 800
	DefaultMaxTopics     = 12
	DefaultMinAnchors    = 3
	DefaultMaxAnchors    = 5
	DefaultMinLength     = 120
	DefaultTerminalPunct = "。！!？?…"
)

var DefaultEmojiPool = []string{"✨", "📌", "💡", "🔥", "✅", "🌿", "📝", "🚀"}

func DefaultConfig() Config {
	return Config{
		Budget:        DefaultBudget,
		MaxTopics:     DefaultMaxTopics,
		MinAnchors:    DefaultMinAnchors,
		MaxAnchors:    DefaultMaxAnchors,
		MinLength:     DefaultMinLength,
		EmojiPool:     append([]string{}, DefaultEmojiPool...),
		TerminalPunct: DefaultTerminalPunct,
	}
}

// withDefaults fills zero values only. Zero anchors are meaningful and kept as is
// once MaxAnchors is set.
func (c Config) withDefaults() Config {
	if c.Budget <= 0 {
		c.Budget = DefaultBudget
	}
	if c.MaxTopics <= 0 {
		c.MaxTopics = DefaultMaxTopics
	}
	if c.MaxAnchors <= 0 && c.MinAnchors <= 0 {
		c.MinAnchors = DefaultMinAnchors
		c.MaxAnchors = DefaultMaxAnchors
	}
	if c.MinAnchors < 0 {
		c.MinAnchors = 0
	}
	if c.MaxAnchors < c.MinAnchors {
		c.MaxAnchors = c.MinAnchors
	}
	if c.MinLength <= 0 {
		c.MinLength = DefaultMinLength
	}
	if len(c.EmojiPool) == 0 {
		c.EmojiPool = append([]string{}, DefaultEmojiPool...)
	}
	if c.TerminalPunct == "" {
		c.TerminalPunct = DefaultTerminalPunct
	}
	return c
}

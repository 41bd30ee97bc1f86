package normalize

import (
	"strings"
	"unicode/utf8"
)

const (
	WarnTruncated     = "truncated"
	WarnBudgetOverrun = "budget_overrun"
	WarnRewriteEmpty  = "rewrite_empty"
)

type Input struct {
	PriorImages  []string
	ExplicitTags []string
	KeywordSeeds []string
	// Rewritten is an optional candidate body from the rewrite service. It is
	// re-stripped like any other markup; an empty result falls back to the original.
	Rewritten string
	// Budget overrides Config.Budget when > 0.
	Budget int
}

type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults()}
}

func (p *Pipeline) Config() Config {
	return p.cfg
}

// Normalize runs images -> strip -> (rewrite substitution) -> topics -> length ->
// anchors -> completeness. On a completeness veto it returns an *IncompleteError
// together with the content produced so far, so callers may choose to proceed.
func (p *Pipeline) Normalize(doc RawDocument, in Input) (NormalizedContent, error) {
	cfg := p.cfg
	budget := cfg.Budget
	if in.Budget > 0 {
		budget = in.Budget
	}

	markup := strings.ToValidUTF8(doc.Markup, "")
	out := NormalizedContent{}
	out.Images, out.CoverImage = ExtractImages(markup, in.PriorImages)
	out.Title = ExtractTitle(markup)

	body := Strip(markup)
	if cand := strings.TrimSpace(in.Rewritten); cand != "" {
		if rewritten := Strip(strings.ToValidUTF8(cand, "")); rewritten != "" {
			body = rewritten
		} else {
			out.Warnings = append(out.Warnings, WarnRewriteEmpty)
		}
	}

	body, out.Topics = NormalizeTopics(body, in.ExplicitTags, in.KeywordSeeds, cfg.MaxTopics)

	lengthBudget := budget - anchorReserve(cfg.EmojiPool, cfg.MaxAnchors)
	if lengthBudget <= 0 {
		lengthBudget = budget
	}
	enf := EnforceLength(body, lengthBudget)
	if enf.Truncated {
		out.Warnings = append(out.Warnings, WarnTruncated)
	}

	out.Body = Annotate(enf.Body, cfg.EmojiPool, cfg.MinAnchors, cfg.MaxAnchors)
	if utf8.RuneCountInString(out.Body) > budget {
		out.Warnings = append(out.Warnings, WarnBudgetOverrun)
	}

	if v := Check(out.Body, cfg.MinLength, cfg.TerminalPunct); !v.OK {
		return out, &IncompleteError{Reason: v.Reason}
	}
	return out, nil
}

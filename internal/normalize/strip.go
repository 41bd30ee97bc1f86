package normalize

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

type stripRule struct {
	name  string
	apply func(string) string
}

// Block structure goes first so that emphasis rules never see list bullets or
// rule lines, and code is dropped before any inline rule can match inside it.
// Backslash escapes are parked as placeholder runes before any markup rule runs
// and come back as literals at the end.
var stripRules = []stripRule{
	{"line_endings", normalizeLineEndings},
	{"html_document", htmlDocumentToMarkdown},
	{"fenced_code", dropFencedCode},
	{"protect_escapes", protectEscapes},
	{"images", stripImages},
	{"links", stripLinks},
	{"leading_title", dropLeadingTitle},
	{"line_markers", stripLineMarkers},
	{"emphasis", stripEmphasis},
	{"strikethrough", stripStrikethrough},
	{"inline_code", stripInlineCode},
	{"html_tags", stripHTMLTags},
	{"escapes", restoreEscapedLines},
	{"blank_lines", collapseBlankLines},
}

// Strip converts Markdown/HTML-flavored markup into paragraph-structured plain text.
// A level-1 heading on the first line is treated as the title and dropped; see ExtractTitle.
func Strip(markup string) string {
	out := markup
	for _, r := range stripRules {
		out = r.apply(out)
	}
	return out
}

// ToMarkdown normalizes line endings and converts HTML-dominant documents to
// Markdown. Markdown input is returned with only its line endings changed.
func ToMarkdown(markup string) string {
	return htmlDocumentToMarkdown(normalizeLineEndings(markup))
}

// ExtractTitle returns the level-1 heading on the first non-blank line, cleaned of inline markup.
func ExtractTitle(markup string) string {
	pre := dropFencedCode(ToMarkdown(markup))
	lines := strings.Split(pre, "\n")
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		m := titleRe.FindStringSubmatch(ln)
		if m == nil {
			return ""
		}
		t := stripLinks(stripImages(protectEscapes(m[1])))
		t = stripInlineCode(stripStrikethrough(stripEmphasis(t)))
		return strings.TrimSpace(restoreEscapes(stripHTMLTags(t)))
	}
	return ""
}

var (
	crlfRe          = regexp.MustCompile(`\r\n?`)
	htmlDocRe       = regexp.MustCompile(`(?i)<(?:html|body|p|div|section|article|h[1-6]|ul|ol|table|blockquote)\b[^>]*>`)
	imageRe         = regexp.MustCompile(`!\[[^\]]*\]\(([^)]*)\)`)
	linkRe          = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	autoLinkRe      = regexp.MustCompile(`<((?:https?|mailto):[^<>\s]+)>`)
	titleRe         = regexp.MustCompile(`^\s{0,3}#\s+(.*?)(?:\s+#+)?\s*$`)
	blockquoteRe    = regexp.MustCompile(`^\s{0,3}>\s?`)
	headingRe       = regexp.MustCompile(`^\s{0,3}#{1,6}\s+`)
	headingCloseRe  = regexp.MustCompile(`\s+#+\s*$`)
	listMarkerRe    = regexp.MustCompile(`^\s*(?:[-*+•]|\d{1,3}[.)、])\s+`)
	taskMarkerRe    = regexp.MustCompile(`^\[[ xX]\]\s+`)
	boldItalicStar  = regexp.MustCompile(`\*\*\*(.+?)\*\*\*`)
	boldItalicUnder = regexp.MustCompile(`___(.+?)___`)
	boldStar        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnder       = regexp.MustCompile(`__(.+?)__`)
	italicStar      = regexp.MustCompile(`\*([^*\s](?:[^*\n]*[^*\s])?)\*`)
	italicUnder     = regexp.MustCompile(`(^|[^\p{L}\p{N}_])_([^_\s](?:[^_\n]*[^_\s])?)_([^\p{L}\p{N}_]|$)`)
	strikeRe        = regexp.MustCompile(`~~(.+?)~~`)
	inlineCodeRe    = regexp.MustCompile("`+([^`\n]+?)`+")
	htmlCommentRe   = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlTagRe       = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9-]*(?:\s[^<>]*)?/?>`)
	escapeRe        = regexp.MustCompile(`\\([\\` + "`" + `*_{}\[\]()#+\-.!~|<>=])`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

func normalizeLineEndings(s string) string {
	return crlfRe.ReplaceAllString(s, "\n")
}

// htmlDocumentToMarkdown rewrites HTML-dominant input (e.g. WeChat article HTML)
// into Markdown. Markdown with stray inline tags is left alone.
func htmlDocumentToMarkdown(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "<") || !htmlDocRe.MatchString(t) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(t)
	if err != nil {
		return s
	}
	return md
}

func isFence(line string) (string, bool) {
	t := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(t, "```"):
		return "```", true
	case strings.HasPrefix(t, "~~~"):
		return "~~~", true
	}
	return "", false
}

// dropFencedCode removes fenced blocks with their content. An unclosed fence
// only loses its opening line.
func dropFencedCode(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	var (
		open    string
		pending []string
	)
	for _, ln := range lines {
		fence, ok := isFence(ln)
		if open == "" {
			if ok {
				open = fence
				pending = pending[:0]
				continue
			}
			out = append(out, ln)
			continue
		}
		if ok && fence == open && strings.Trim(strings.TrimSpace(ln), open[:1]) == "" {
			open = ""
			pending = pending[:0]
			continue
		}
		pending = append(pending, ln)
	}
	if open != "" {
		out = append(out, pending...)
	}
	return strings.Join(out, "\n")
}

func stripImages(s string) string {
	return imageRe.ReplaceAllString(s, "")
}

func stripLinks(s string) string {
	s = linkRe.ReplaceAllString(s, "$1")
	return autoLinkRe.ReplaceAllString(s, "$1")
}

func dropLeadingTitle(s string) string {
	lines := strings.Split(s, "\n")
	for idx, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		if titleRe.MatchString(ln) {
			lines = append(lines[:idx], lines[idx+1:]...)
		}
		break
	}
	return strings.Join(lines, "\n")
}

func stripLineMarkers(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = stripLinePrefix(ln)
	}
	return strings.Join(lines, "\n")
}

func stripLinePrefix(ln string) string {
	for n := 0; n < 8; n++ {
		if isRuleLine(ln) {
			return ""
		}
		next := blockquoteRe.ReplaceAllString(ln, "")
		if headingRe.MatchString(next) {
			next = headingRe.ReplaceAllString(next, "")
			next = headingCloseRe.ReplaceAllString(next, "")
		}
		next = listMarkerRe.ReplaceAllString(next, "")
		next = taskMarkerRe.ReplaceAllString(next, "")
		if next == ln {
			return ln
		}
		ln = next
	}
	return ln
}

// isRuleLine matches thematic breaks (---, * * *, ___) and setext underlines (===).
func isRuleLine(ln string) bool {
	t := strings.ReplaceAll(strings.TrimSpace(ln), " ", "")
	if len(t) < 3 {
		return false
	}
	c := t[0]
	if c != '-' && c != '*' && c != '_' && c != '=' {
		return false
	}
	return strings.Count(t, string(c)) == len(t)
}

func stripEmphasis(s string) string {
	s = boldItalicStar.ReplaceAllString(s, "$1")
	s = boldItalicUnder.ReplaceAllString(s, "$1")
	s = boldStar.ReplaceAllString(s, "$1")
	s = boldUnder.ReplaceAllString(s, "$1")
	s = italicStar.ReplaceAllString(s, "$1")
	for n := 0; n < 4; n++ {
		next := italicUnder.ReplaceAllString(s, "$1$2$3")
		if next == s {
			break
		}
		s = next
	}
	return s
}

func stripStrikethrough(s string) string {
	return strikeRe.ReplaceAllString(s, "$1")
}

func stripInlineCode(s string) string {
	return inlineCodeRe.ReplaceAllString(s, "$1")
}

func stripHTMLTags(s string) string {
	s = htmlCommentRe.ReplaceAllString(s, "")
	return htmlTagRe.ReplaceAllString(s, "")
}

// escapeBase maps an escaped ASCII character into Supplementary Private Use
// Area-A, where no markup rule can match it.
const escapeBase = 0xF0000

func protectEscapes(s string) string {
	return escapeRe.ReplaceAllStringFunc(s, func(m string) string {
		return string(rune(escapeBase + int(m[1])))
	})
}

func isEscapePlaceholder(r rune) bool {
	return r >= escapeBase && r < escapeBase+0x80
}

func restoreEscapes(s string) string {
	return strings.Map(func(r rune) rune {
		if isEscapePlaceholder(r) {
			return r - escapeBase
		}
		return r
	}, s)
}

// restoreEscapedLines turns placeholders back into literal characters. A line
// whose restored text would read as a heading, quote, list item or rule keeps
// the backslash on its first escape, so stripping the output again is a no-op.
func restoreEscapedLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		idx := strings.IndexFunc(ln, isEscapePlaceholder)
		if idx < 0 {
			continue
		}
		plain := restoreEscapes(ln)
		if stripLinePrefix(plain) == plain && !isRuleLine(plain) {
			lines[i] = plain
			continue
		}
		lines[i] = restoreEscapes(ln[:idx]) + `\` + restoreEscapes(ln[idx:])
	}
	return strings.Join(lines, "\n")
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t　")
	}
	s = strings.Join(lines, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

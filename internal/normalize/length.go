package normalize

import (
	"strings"
	"unicode/utf8"
)

const sentenceCutPunct = "。！？!?"

type Enforced struct {
	Body      string
	Truncated bool
	// Overrun is set when the preserved tag line alone leaves no room for prose
	// and the result is longer than the budget.
	Overrun bool
}

// EnforceLength truncates body to budget runes. A trailing hashtag line is set
// aside, kept intact and re-attached after one blank line; its length is
// reserved inside the budget whenever that still leaves room for prose.
// budget <= 0 disables truncation.
func EnforceLength(body string, budget int) Enforced {
	body = strings.TrimSpace(normalizeLineEndings(body))
	if body == "" || budget <= 0 {
		return Enforced{Body: body}
	}

	lines := splitLines(body)
	tagLine := ""
	last := lastNonBlank(lines)
	if last >= 0 && isHashTagLine(lines[last]) {
		tagLine = strings.TrimSpace(lines[last])
		lines = lines[:last]
	}
	prose := strings.TrimSpace(strings.Join(lines, "\n"))

	proseBudget := budget
	if tagLine != "" {
		reserve := utf8.RuneCountInString(tagLine) + 2
		if reserve < budget {
			proseBudget = budget - reserve
		}
	}
	cut, truncated := cutAtBoundary(prose, proseBudget)

	out := cut
	switch {
	case tagLine == "":
	case out == "":
		out = tagLine
	default:
		out = out + "\n\n" + tagLine
	}
	return Enforced{
		Body:      out,
		Truncated: truncated,
		Overrun:   utf8.RuneCountInString(out) > budget,
	}
}

// cutAtBoundary keeps at most limit runes, preferring the last newline and then
// the last sentence-ending mark, as long as the kept part is at least 70% of limit.
func cutAtBoundary(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	candidate := runes[:limit]
	qualifies := func(kept int) bool { return kept > 0 && kept*10 >= limit*7 }

	for i := len(candidate) - 1; i >= 0; i-- {
		if candidate[i] == '\n' {
			if qualifies(i) {
				return trimCut(candidate[:i]), true
			}
			break
		}
	}
	for i := len(candidate) - 1; i >= 0; i-- {
		if strings.ContainsRune(sentenceCutPunct, candidate[i]) {
			if qualifies(i + 1) {
				return trimCut(candidate[:i+1]), true
			}
			break
		}
	}
	return trimCut(candidate), true
}

func trimCut(r []rune) string {
	return strings.TrimRight(string(r), " \t\n　")
}

package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type tagLineKind int

const (
	notTagLine tagLineKind = iota
	bareTagLine
	hashTagLine
)

const (
	minTagRunes = 2
	maxTagRunes = 30
)

// sentencePunct marks a token as prose rather than a tag.
const sentencePunct = "。！？!?；;…"

// lineEndPunct rejects bare tag lines that end like a sentence.
const lineEndPunct = "。！？!?；;….～~"

var tagSplitRe = regexp.MustCompile(`[\s,，|｜]+`)

func splitTagTokens(line string) []string {
	parts := tagSplitRe.Split(strings.TrimSpace(line), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// classifyTagLine is the single definition of "this line is a hashtag line".
// A hashed line is all '#'-prefixed tokens, or at least two tokens with a
// '#'-prefixed majority. A bare line has at least three short un-prefixed tokens
// and does not end like a sentence.
func classifyTagLine(line string) (tagLineKind, []string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return notTagLine, nil
	}
	tokens := splitTagTokens(line)
	if len(tokens) == 0 {
		return notTagLine, nil
	}
	hashed := 0
	for _, tok := range tokens {
		if strings.ContainsAny(tok, sentencePunct) {
			return notTagLine, nil
		}
		if strings.HasPrefix(tok, "#") {
			hashed++
		}
	}
	if hashed == len(tokens) || (len(tokens) >= 2 && hashed*2 > len(tokens)) {
		return hashTagLine, tokens
	}
	if hashed > 0 || len(tokens) < 3 {
		return notTagLine, nil
	}
	last, _ := utf8.DecodeLastRuneInString(line)
	if strings.ContainsRune(lineEndPunct, last) {
		return notTagLine, nil
	}
	for _, tok := range tokens {
		n := utf8.RuneCountInString(tok)
		if n < minTagRunes || n > maxTagRunes {
			return notTagLine, nil
		}
	}
	return bareTagLine, tokens
}

func looksLikeTagLine(line string) bool {
	kind, _ := classifyTagLine(line)
	return kind != notTagLine
}

func isHashTagLine(line string) bool {
	kind, _ := classifyTagLine(line)
	return kind == hashTagLine
}

func renderTagLine(names []string) string {
	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('#')
		b.WriteString(n)
	}
	return b.String()
}

// lastNonBlank returns the index of the last line with content, or -1.
func lastNonBlank(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

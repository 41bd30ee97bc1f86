package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var inlineTagRe = regexp.MustCompile(`#([\p{L}\p{M}\p{N}_-]+)`)

type topicAccumulator struct {
	seen  map[string]struct{}
	items TopicSet
}

func newTopicAccumulator() *topicAccumulator {
	return &topicAccumulator{seen: map[string]struct{}{}}
}

// add drops duplicates at insertion time so first discovery wins.
func (a *topicAccumulator) add(raw string, src TopicSource) {
	name, ok := normalizeTopicName(raw)
	if !ok {
		return
	}
	if _, dup := a.seen[name]; dup {
		return
	}
	a.seen[name] = struct{}{}
	a.items = append(a.items, Topic{Name: name, Source: src})
}

func normalizeTopicName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	name = strings.TrimLeft(name, "#＃")
	name = strings.TrimRight(name, "#＃")
	name = strings.Join(strings.Fields(name), "")
	n := utf8.RuneCountInString(name)
	if n < minTagRunes || n > maxTagRunes {
		return "", false
	}
	return name, true
}

// NormalizeTopics merges hashtags from the body, explicit tags, keyword seeds
// and a bare trailing tag line, then rewrites the canonical tag line at the end.
func NormalizeTopics(body string, explicitTags, keywordSeeds []string, maxTopics int) (string, TopicSet) {
	body = strings.TrimSpace(normalizeLineEndings(body))
	acc := newTopicAccumulator()

	for _, tag := range scanInlineTags(body) {
		acc.add(tag, SourceInlineHash)
	}
	for _, tag := range explicitTags {
		acc.add(tag, SourceExplicit)
	}
	for _, seed := range keywordSeeds {
		seed = strings.TrimSpace(seed)
		if seed != "" && strings.Contains(body, seed) {
			acc.add(seed, SourceKeywordSeed)
		}
	}
	lines := splitLines(body)
	if last := lastNonBlank(lines); last >= 0 {
		if kind, tokens := classifyTagLine(lines[last]); kind == bareTagLine {
			for _, tok := range tokens {
				acc.add(tok, SourceBareTrailingLine)
			}
		}
	}

	topics := acc.items
	if maxTopics > 0 && len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	if len(topics) == 0 {
		return body, TopicSet{}
	}

	prose := strings.TrimSpace(strings.Join(dropTrailingTagLines(lines), "\n"))
	tagLine := renderTagLine(topics.Names())
	if prose == "" {
		return tagLine, topics
	}
	return prose + "\n\n" + tagLine, topics
}

// scanInlineTags returns #tokens in order of appearance. A '#' glued to a
// preceding letter or digit (C#, abc#1) does not start a tag, unless it directly
// follows another tag (#AI#效率).
func scanInlineTags(body string) []string {
	idx := inlineTagRe.FindAllStringSubmatchIndex(body, -1)
	out := make([]string, 0, len(idx))
	lastEnd := -1
	for _, m := range idx {
		glued := m[0] == lastEnd
		lastEnd = m[1]
		if m[0] > 0 && !glued {
			prev, _ := utf8.DecodeLastRuneInString(body[:m[0]])
			if unicode.IsLetter(prev) || unicode.IsNumber(prev) || prev == '&' {
				continue
			}
		}
		tok := body[m[2]:m[3]]
		n := utf8.RuneCountInString(tok)
		if n < minTagRunes || n > maxTagRunes {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// dropTrailingTagLines removes hashed tag lines from the end. A bare tag line is
// only removed when it is the very last line, the one whose tokens were harvested.
func dropTrailingTagLines(lines []string) []string {
	for first := true; ; first = false {
		last := lastNonBlank(lines)
		if last < 0 {
			return nil
		}
		kind, _ := classifyTagLine(lines[last])
		if kind == hashTagLine || (kind == bareTagLine && first) {
			lines = lines[:last]
			continue
		}
		return lines[:last+1]
	}
}

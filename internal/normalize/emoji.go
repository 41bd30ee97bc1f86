package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minAnchorBlockRunes = 40

// extendedPictographic approximates the Unicode Extended_Pictographic property,
// which the unicode package does not expose.
var extendedPictographic = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00a9, Hi: 0x00a9, Stride: 1},
		{Lo: 0x00ae, Hi: 0x00ae, Stride: 1},
		{Lo: 0x203c, Hi: 0x203c, Stride: 1},
		{Lo: 0x2049, Hi: 0x2049, Stride: 1},
		{Lo: 0x2122, Hi: 0x2122, Stride: 1},
		{Lo: 0x2139, Hi: 0x2139, Stride: 1},
		{Lo: 0x2194, Hi: 0x2199, Stride: 1},
		{Lo: 0x21a9, Hi: 0x21aa, Stride: 1},
		{Lo: 0x231a, Hi: 0x231b, Stride: 1},
		{Lo: 0x2328, Hi: 0x2328, Stride: 1},
		{Lo: 0x23cf, Hi: 0x23cf, Stride: 1},
		{Lo: 0x23e9, Hi: 0x23f3, Stride: 1},
		{Lo: 0x23f8, Hi: 0x23fa, Stride: 1},
		{Lo: 0x24c2, Hi: 0x24c2, Stride: 1},
		{Lo: 0x25aa, Hi: 0x25ab, Stride: 1},
		{Lo: 0x25b6, Hi: 0x25b6, Stride: 1},
		{Lo: 0x25c0, Hi: 0x25c0, Stride: 1},
		{Lo: 0x25fb, Hi: 0x25fe, Stride: 1},
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2b05, Hi: 0x2b07, Stride: 1},
		{Lo: 0x2b1b, Hi: 0x2b1c, Stride: 1},
		{Lo: 0x2b50, Hi: 0x2b50, Stride: 1},
		{Lo: 0x2b55, Hi: 0x2b55, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303d, Hi: 0x303d, Stride: 1},
		{Lo: 0x3297, Hi: 0x3297, Stride: 1},
		{Lo: 0x3299, Hi: 0x3299, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
		{Lo: 0x1fc00, Hi: 0x1fffd, Stride: 1},
	},
}

var blankLineRe = regexp.MustCompile(`\n[ \t　]*\n`)

func startsWithEmoji(block string) bool {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(block))
	return r != utf8.RuneError && unicode.Is(extendedPictographic, r)
}

func splitBlocks(body string) []string {
	raw := blankLineRe.Split(strings.TrimSpace(normalizeLineEndings(body)), -1)
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		b = strings.Trim(b, "\n")
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return out
}

// Annotate prefixes up to maxAnchors paragraphs with an emoji from pool.
// Blocks already opening with an emoji count toward the bounds.
func Annotate(body string, pool []string, minAnchors, maxAnchors int) string {
	blocks := splitBlocks(body)
	if len(blocks) == 0 || len(pool) == 0 || maxAnchors <= 0 {
		return strings.Join(blocks, "\n\n")
	}
	if minAnchors > maxAnchors {
		minAnchors = maxAnchors
	}

	used := 0
	marked := make([]bool, len(blocks))
	for i, b := range blocks {
		if startsWithEmoji(b) {
			marked[i] = true
			used++
		}
	}
	mark := func(i int) {
		blocks[i] = pool[used%len(pool)] + " " + strings.TrimLeft(blocks[i], " \t　")
		marked[i] = true
		used++
	}
	skippable := func(i int) bool {
		return marked[i] || strings.HasPrefix(strings.TrimSpace(blocks[i]), "#")
	}

	eligible := 0
	for i := range blocks {
		if used >= maxAnchors {
			break
		}
		if skippable(i) || utf8.RuneCountInString(strings.TrimSpace(blocks[i])) < minAnchorBlockRunes {
			continue
		}
		if eligible%2 == 0 || used < minAnchors {
			mark(i)
		}
		eligible++
	}
	for i := range blocks {
		if used >= minAnchors {
			break
		}
		if !skippable(i) {
			mark(i)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// anchorReserve is the worst-case growth Annotate can add to a body.
func anchorReserve(pool []string, maxAnchors int) int {
	widest := 0
	for _, e := range pool {
		if n := utf8.RuneCountInString(e); n > widest {
			widest = n
		}
	}
	if widest == 0 || maxAnchors <= 0 {
		return 0
	}
	return maxAnchors * (widest + 1)
}

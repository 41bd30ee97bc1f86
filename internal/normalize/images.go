package normalize

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type foundImage struct {
	url    string
	offset int
}

// ExtractImages unions priorImages with the images referenced by markup.
// Prior images come first; the rest follow in order of appearance. URLs are
// compared exactly and never fetched.
func ExtractImages(markup string, priorImages []string) ([]Image, string) {
	found := scanMarkdownImages(markup)
	found = append(found, scanHTMLImages(markup)...)
	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	seen := map[string]struct{}{}
	out := make([]Image, 0, len(priorImages)+len(found))
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, Image{URL: u, Position: len(out)})
	}
	for _, u := range priorImages {
		add(u)
	}
	for _, f := range found {
		add(f.url)
	}
	if len(out) == 0 {
		return out, ""
	}
	return out, out[0].URL
}

func scanMarkdownImages(markup string) []foundImage {
	idx := imageRe.FindAllStringSubmatchIndex(markup, -1)
	out := make([]foundImage, 0, len(idx))
	for _, m := range idx {
		u := imageTarget(markup[m[2]:m[3]])
		if u == "" {
			continue
		}
		out = append(out, foundImage{url: u, offset: m[0]})
	}
	return out
}

// imageTarget drops an optional title and angle brackets: `<url> "title"` -> url.
func imageTarget(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "<") {
		if end := strings.Index(raw, ">"); end > 0 {
			return strings.TrimSpace(raw[1:end])
		}
	}
	if fields := strings.Fields(raw); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// scanHTMLImages finds <img> tags. WeChat lazy-loads through data-src, which wins over src.
func scanHTMLImages(markup string) []foundImage {
	if !strings.Contains(strings.ToLower(markup), "<img") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	out := make([]foundImage, 0, 4)
	cursor := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		u, ok := s.Attr("data-src")
		if !ok || strings.TrimSpace(u) == "" {
			u, ok = s.Attr("src")
		}
		u = strings.TrimSpace(u)
		if !ok || u == "" {
			return
		}
		offset := len(markup)
		if i := strings.Index(markup[cursor:], u); i >= 0 {
			offset = cursor + i
			cursor = offset + len(u)
		}
		out = append(out, foundImage{url: u, offset: offset})
	})
	return out
}

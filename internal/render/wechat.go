package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"content-factory/internal/normalize"
)

// The WeChat editor drops <style> blocks, so every element is styled inline.
var inlineStyles = map[string]string{
	"h2":         "font-size:18px;font-weight:bold;margin:24px 0 12px;",
	"h3":         "font-size:16px;font-weight:bold;margin:20px 0 10px;",
	"h4":         "font-size:15px;font-weight:bold;margin:16px 0 8px;",
	"p":          "margin:0 0 16px;line-height:1.75;font-size:15px;",
	"blockquote": "margin:0 0 16px;padding:8px 12px;border-left:3px solid #d0d0d0;color:#666;",
	"pre":        "margin:0 0 16px;padding:12px;background:#f6f8fa;overflow-x:auto;font-size:13px;",
	"ul":         "margin:0 0 16px;padding-left:24px;",
	"ol":         "margin:0 0 16px;padding-left:24px;",
	"li":         "margin:4px 0;line-height:1.75;",
	"img":        "max-width:100%;display:block;margin:12px auto;",
	"table":      "border-collapse:collapse;margin:0 0 16px;width:100%;",
	"th":         "border:1px solid #d0d0d0;padding:6px;background:#f6f8fa;",
	"td":         "border:1px solid #d0d0d0;padding:6px;",
	"hr":         "border:none;border-top:1px solid #e0e0e0;margin:24px 0;",
}

const inlineCodeStyle = "padding:2px 4px;background:#f6f8fa;border-radius:3px;font-size:90%;"

type WeChatRenderer struct {
	md goldmark.Markdown
}

func NewWeChatRenderer() *WeChatRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
			extension.Strikethrough,
			extension.Table,
		),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	return &WeChatRenderer{md: md}
}

// Render turns a Markdown or HTML draft into WeChat-ready HTML. The leading
// level-1 heading is left out because the title is published separately, and
// external links become numbered notes since WeChat articles cannot link out.
func (r *WeChatRenderer) Render(markup string) (string, error) {
	src := []byte(normalize.ToMarkdown(markup))
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(parser.NewContext()))
	if h, ok := doc.FirstChild().(*ast.Heading); ok && h.Level == 1 {
		doc.RemoveChild(doc, h)
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return "", fmt.Errorf("渲染 Markdown 失败：%w", err)
	}
	return decorate(buf.String())
}

func decorate(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("解析 HTML 失败：%w", err)
	}
	body := doc.Find("body")

	for tag, style := range inlineStyles {
		body.Find(tag).Each(func(_ int, s *goquery.Selection) {
			addStyle(s, style)
		})
	}
	body.Find("code").Each(func(_ int, s *goquery.Selection) {
		if s.ParentFiltered("pre").Length() == 0 {
			addStyle(s, inlineCodeStyle)
		}
	})
	body.Find("img[data-src]").Each(func(_ int, s *goquery.Selection) {
		if src, _ := s.Attr("src"); strings.TrimSpace(src) == "" {
			v, _ := s.Attr("data-src")
			s.SetAttr("src", v)
		}
	})

	var notes []string
	body.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		label := s.Text()
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			s.ReplaceWithHtml(html.EscapeString(label))
			return
		}
		notes = append(notes, href)
		s.ReplaceWithHtml(fmt.Sprintf("%s<sup>[%d]</sup>", html.EscapeString(label), len(notes)))
	})
	if len(notes) > 0 {
		var b strings.Builder
		b.WriteString(`<section style="margin-top:24px;font-size:13px;color:#888;"><p style="margin:0 0 8px;">参考链接</p>`)
		for i, n := range notes {
			fmt.Fprintf(&b, `<p style="margin:0 0 4px;word-break:break-all;">[%d] %s</p>`, i+1, html.EscapeString(n))
		}
		b.WriteString(`</section>`)
		body.AppendHtml(b.String())
	}

	out, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("生成 HTML 失败：%w", err)
	}
	return strings.TrimSpace(out), nil
}

func addStyle(s *goquery.Selection, style string) {
	if cur, ok := s.Attr("style"); ok && strings.TrimSpace(cur) != "" {
		cur = strings.TrimSpace(cur)
		if !strings.HasSuffix(cur, ";") {
			cur += ";"
		}
		s.SetAttr("style", cur+style)
		return
	}
	s.SetAttr("style", style)
}

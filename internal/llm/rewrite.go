package llm

import (
	"context"
	"fmt"
	"strings"
)

const rewriteSystemPrompt = `你是一名社交平台内容编辑。把用户给出的长文改写成适合目标平台发布的正文：
- 只输出正文，不要标题，不要解释，不要使用 Markdown 语法
- 段落之间空一行，每段围绕一个要点
- 保留原文的事实与观点，不要编造
- 正文必须完整收尾，以句号、感叹号或问号结束`

type RewriteRequest struct {
	Title    string
	Body     string
	Platform string
	// Budget is the target length in characters; 0 means no hint.
	Budget int
}

// Rewriter is the Rewrite service the app layer depends on.
type Rewriter interface {
	Rewrite(ctx context.Context, req RewriteRequest) (string, error)
}

// ChatRewriter implements Rewriter on top of Client.Generate.
type ChatRewriter struct {
	Client   *Client
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
}

func (r *ChatRewriter) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	if r == nil || r.Client == nil {
		return "", fmt.Errorf("改写客户端未初始化")
	}
	resp, err := r.Client.Generate(ctx, Request{
		Provider:     r.Provider,
		BaseURL:      r.BaseURL,
		Model:        r.Model,
		APIKey:       r.APIKey,
		SystemPrompt: rewriteSystemPrompt,
		UserPrompt:   BuildRewritePrompt(req),
		Temperature:  0.7,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func BuildRewritePrompt(req RewriteRequest) string {
	var b strings.Builder
	if p := strings.TrimSpace(req.Platform); p != "" {
		fmt.Fprintf(&b, "目标平台：%s\n", p)
	}
	if req.Budget > 0 {
		fmt.Fprintf(&b, "字数上限：%d 字（含话题标签）\n", req.Budget)
	}
	if t := strings.TrimSpace(req.Title); t != "" {
		fmt.Fprintf(&b, "标题：%s\n", t)
	}
	b.WriteString("\n原文：\n")
	b.WriteString(strings.TrimSpace(req.Body))
	return b.String()
}

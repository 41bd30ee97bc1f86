package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Request struct {
	Provider     string
	BaseURL      string
	Model        string
	APIKey       string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
}

type Response struct {
	Text      string
	LatencyMS int64
}

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = "deepseek"
	}
	start := time.Now()
	var (
		text string
		err  error
	)

	switch provider {
	case "deepseek":
		text, err = c.chatCompletions(ctx, req, "/chat/completions", "deepseek chat completions")
	case "openai":
		text, err = c.chatCompletions(ctx, req, "/v1/chat/completions", "chat completions")
	case "claude":
		text, err = c.generateClaude(ctx, req)
	default:
		err = fmt.Errorf("不支持的 provider：%s", provider)
	}
	if err != nil {
		return Response{}, err
	}
	return Response{Text: strings.TrimSpace(text), LatencyMS: time.Since(start).Milliseconds()}, nil
}

// chatCompletions speaks the OpenAI-compatible chat API that deepseek also serves.
func (c *Client) chatCompletions(ctx context.Context, req Request, path, label string) (string, error) {
	payload := map[string]any{
		"model": req.Model,
		"messages": []map[string]string{
			{"role": "system", "content": req.SystemPrompt},
			{"role": "user", "content": req.UserPrompt},
		},
		"stream": false,
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodPost, joinURL(req.BaseURL, path), req.APIKey, nil, payload, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%s 错误：%s", label, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s 返回为空", label)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s 内容为空", label)
	}
	return text, nil
}

func (c *Client) generateClaude(ctx context.Context, req Request) (string, error) {
	payload := map[string]any{
		"model":      req.Model,
		"max_tokens": 4096,
		"system":     req.SystemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": req.UserPrompt},
		},
	}
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	headers := map[string]string{
		"x-api-key":         req.APIKey,
		"anthropic-version": "2023-06-01",
	}
	if err := c.doJSON(ctx, http.MethodPost, joinURL(req.BaseURL, "/v1/messages"), "", headers, payload, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("claude API 错误：%s", resp.Error.Message)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("claude 返回为空")
	}
	for _, ctn := range resp.Content {
		if strings.TrimSpace(ctn.Text) != "" {
			return ctn.Text, nil
		}
	}
	return "", fmt.Errorf("claude 返回文本为空")
}

func (c *Client) doJSON(ctx context.Context, method, endpoint, bearer string, extraHeaders map[string]string, in any, out any) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return fmt.Errorf("编码请求失败：%w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, buf)
	if err != nil {
		return fmt.Errorf("创建请求失败：%w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(bearer) != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败：%w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败：%w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Code:       resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(body)), 800),
			RetryAfter: parseRetryAfter(resp.Header),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析响应失败：%w; 原始响应: %s", err, truncate(string(body), 800))
	}
	return nil
}

func joinURL(base, path string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "https://api.deepseek.com"
	}
	base = strings.TrimSuffix(base, "/")
	if strings.HasSuffix(base, "/v1") && strings.HasPrefix(path, "/v1/") {
		path = strings.TrimPrefix(path, "/v1")
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

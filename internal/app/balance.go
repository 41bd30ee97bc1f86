package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBalanceBaseURL = "https://api.deepseek.com"

type deepSeekBalanceResponse struct {
	IsAvailable bool                  `json:"is_available"`
	BalanceInfo []deepSeekBalanceInfo `json:"balance_infos"`
	Error       *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type deepSeekBalanceInfo struct {
	Currency      amount `json:"currency"`
	TotalBalance  amount `json:"total_balance"`
	GrantedAmount amount `json:"granted_balance"`
	ToppedUp      amount `json:"topped_up_balance"`
}

// amount accepts both "17.17" and 17.17; the balance API has sent either.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amount(n.String())
	return nil
}

// fetchDeepSeekBalance reports the remaining deepseek credit after a rewrite run.
func fetchDeepSeekBalance(ctx context.Context, client *http.Client, baseURL, apiKey string, maxRetries int) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", fmt.Errorf("未找到 API KEY")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBalanceBaseURL
	}
	endpoint := strings.TrimSuffix(strings.TrimSpace(baseURL), "/") + "/user/balance"

	var balance string
	err := withExponentialBackoff(ctx, retryOptions{
		MaxRetries: maxRetries,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Jitter:     0.2,
	}, func(ctx context.Context, attempt int) error {
		out, err := requestBalance(ctx, client, endpoint, apiKey)
		if err != nil {
			return err
		}
		balance = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return balance, nil
}

func requestBalance(ctx context.Context, client *http.Client, endpoint, apiKey string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("创建余额请求失败：%w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("余额请求失败：%w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return "", fmt.Errorf("读取余额响应失败：%w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("余额接口返回 %d：%s", resp.StatusCode, shortBody(body))
	}

	var parsed deepSeekBalanceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("解析余额响应失败：%w", err)
	}
	if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return "", fmt.Errorf("余额接口错误：%s", strings.TrimSpace(parsed.Error.Message))
	}
	balance := formatDeepSeekBalance(parsed.BalanceInfo)
	if balance == "" {
		return "", fmt.Errorf("余额接口返回为空")
	}
	return balance, nil
}

func formatDeepSeekBalance(items []deepSeekBalanceInfo) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		currency := strings.ToUpper(string(item.Currency))
		if currency == "" {
			currency = "UNKNOWN"
		}
		total := firstNonEmpty(item.TotalBalance, item.ToppedUp, item.GrantedAmount)
		if total == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", currency, total))
	}
	return strings.Join(parts, " | ")
}

// FormatBalanceForSummary prefers the CNY figure, e.g. "17.17 元".
func FormatBalanceForSummary(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "查询失败"
	}
	for _, part := range strings.Split(trimmed, "|") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) >= 2 && strings.EqualFold(fields[0], "CNY") {
			return strings.Join(fields[1:], " ") + " 元"
		}
	}
	return trimmed
}

func firstNonEmpty(values ...amount) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

func shortBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "-"
	}
	if len(s) > 280 {
		return s[:280] + "..."
	}
	return s
}

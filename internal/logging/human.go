package logging

import (
	"fmt"
	"path/filepath"
	"strings"
)

// formatHuman renders one Chinese status line, or "" for events hidden in the
// default output. Callers hold l.mu.
func (l *Logger) formatHuman(ev Event) string {
	name := fileLabel(ev.Input)
	switch ev.Event {
	case "startup":
		return fmt.Sprintf("启动：provider=%s 平台=%s", fallback(ev.Provider, "-"), fallback(ev.Platform, "-"))
	case "config_loaded":
		return "配置：" + ev.Input
	case "scan_warning":
		return "扫描提示：" + ev.Error
	case "process_start":
		return fmt.Sprintf("%s：开始处理（%s）", name, fallback(ev.Platform, "-"))
	case "rewrite_cache_hit":
		return fmt.Sprintf("%s：命中改写缓存", name)
	case "rewrite_ok":
		return fmt.Sprintf("%s：改写完成，耗时 %s", name, formatHumanDurationMS(ev.LatencyMS))
	case "rewrite_retry":
		return fmt.Sprintf("%s：改写重试（第 %d 次，等待 %s）：%s", name, ev.Attempt, formatHumanDurationMS(ev.WaitMS), ev.Error)
	case "rewrite_degraded":
		return fmt.Sprintf("%s：改写失败，使用原文继续：%s", name, ev.Error)
	case "cache_unavailable":
		return l.onceLine("cache_unavailable", "改写缓存不可用，本次不使用缓存："+ev.Error)
	case "cache_pruned":
		return fmt.Sprintf("已清理过期改写缓存 %d 条", ev.Removed)
	case "cache_prune_failed":
		return "清理改写缓存失败：" + ev.Error
	case "normalize_warning":
		return fmt.Sprintf("%s：%s", name, warningLabel(ev.Error))
	case "incomplete":
		return fmt.Sprintf("%s：完整性提示：%s", name, ev.Error)
	case "normalize_ok":
		return fmt.Sprintf("%s：规整完成（%d 字，%d 个话题）", name, ev.Chars, ev.Topics)
	case "read_failed", "render_failed", "name_failed", "write_failed", "process_failed":
		return fmt.Sprintf("%s：失败：%s", name, ev.Error)
	case "write_ok":
		return fmt.Sprintf("%s：已写入 %s", name, ev.OutputFile)
	case "watch_start":
		return "开始监听：" + ev.Input
	case "watch_change":
		return fmt.Sprintf("%s：检测到变更", name)
	case "watch_error":
		return "监听错误：" + ev.Error
	case "finished":
		return "完成：" + ev.Error
	default:
		return ""
	}
}

func warningLabel(code string) string {
	switch code {
	case "truncated":
		return "正文已按长度截断"
	case "budget_overrun":
		return "长度超限提示：话题行过长，正文超出字数上限"
	case "rewrite_empty":
		return "改写结果为空，已回退原文"
	default:
		return "提示：" + code
	}
}

func (l *Logger) onceLine(key, line string) string {
	if l.onceKeys == nil {
		l.onceKeys = map[string]struct{}{}
	}
	if _, ok := l.onceKeys[key]; ok {
		return ""
	}
	l.onceKeys[key] = struct{}{}
	return line
}

func fileLabel(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "-"
	}
	return filepath.Base(p)
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func formatHumanDurationMS(ms int64) string {
	if ms <= 0 {
		return "0ms"
	}
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60_000 {
		return fmt.Sprintf("%.2fs", float64(ms)/1000)
	}
	m := ms / 60_000
	s := (ms % 60_000) / 1000
	if s == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dm%ds", m, s)
}

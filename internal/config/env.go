package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// parseEnvLine understands KEY=value, export KEY=value, quoted values and a
// trailing " # comment" after an unquoted value.
func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	k, v, found := strings.Cut(line, "=")
	k = strings.TrimSpace(k)
	if !found || k == "" || strings.ContainsAny(k, " \t") {
		return "", "", false
	}
	v = strings.TrimSpace(v)
	if n := len(v); n >= 2 && (v[0] == '"' || v[0] == '\'') && v[n-1] == v[0] {
		return k, v[1 : n-1], true
	}
	if i := strings.Index(v, " #"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return k, v, true
}

func LoadEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := map[string]string{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		if k, v, ok := parseEnvLine(s.Text()); ok {
			out[k] = v
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("读取 .env 失败：%w", err)
	}
	return out, nil
}

// ResolveAPIKey prefers the process environment over the .env file.
func ResolveAPIKey(envPath, key string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, nil
	}
	m, err := LoadEnvFile(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("未找到 %s，请执行 content-factory set key <api_key> 或设置环境变量 %s", envPath, key)
		}
		return "", err
	}
	v := strings.TrimSpace(m[key])
	if v == "" {
		return "", fmt.Errorf("%s 为空，请执行 content-factory set key <api_key>", key)
	}
	return v, nil
}

// UpsertEnvVar sets key in the .env file at path, keeping comments and other
// keys. Later duplicates of key are dropped. The file holds secrets, so it is
// replaced atomically with mode 0600.
func UpsertEnvVar(path, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("env key 为空")
	}
	entry := key + "=" + strings.TrimSpace(value)

	var kept []string
	if raw, err := os.ReadFile(path); err == nil {
		text := strings.TrimRight(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
		if text != "" {
			kept = strings.Split(text, "\n")
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("读取 .env 失败：%w", err)
	}

	lines := make([]string, 0, len(kept)+1)
	written := false
	for _, line := range kept {
		if k, _, ok := parseEnvLine(line); ok && k == key {
			if !written {
				lines = append(lines, entry)
				written = true
			}
			continue
		}
		lines = append(lines, line)
	}
	if !written {
		lines = append(lines, entry)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建 .env 目录失败：%w", err)
	}
	tmp, err := os.CreateTemp(dir, ".env-*")
	if err != nil {
		return fmt.Errorf("写入 .env 失败：%w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("写入 .env 失败：%w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("写入 .env 失败：%w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入 .env 失败：%w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("写入 .env 失败：%w", err)
	}
	return nil
}

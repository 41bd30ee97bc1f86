package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var supportedExt = map[string]struct{}{
	".md":       {},
	".markdown": {},
	".html":     {},
	".htm":      {},
	".txt":      {},
}

type Result struct {
	Files    []string
	Warnings []string
}

// IsDraft reports whether path has an extension the normalizer accepts.
func IsDraft(path string) bool {
	_, ok := supportedExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

func Discover(inputs []string) (Result, error) {
	if len(inputs) == 0 {
		return Result{}, fmt.Errorf("未提供输入路径")
	}
	set := map[string]struct{}{}
	warnings := []string{}

	for _, in := range inputs {
		if strings.TrimSpace(in) == "" {
			continue
		}
		st, err := os.Stat(in)
		if err != nil {
			return Result{}, fmt.Errorf("输入路径无效（%s）：%w", in, err)
		}
		if st.IsDir() {
			files, warns, err := scanDir(in)
			if err != nil {
				return Result{}, err
			}
			warnings = append(warnings, warns...)
			for _, p := range files {
				set[p] = struct{}{}
			}
			continue
		}
		if !IsDraft(in) {
			return Result{}, fmt.Errorf("不支持的文件类型（%s），仅支持 .md/.markdown/.html/.htm/.txt", in)
		}
		if st.Size() == 0 {
			warnings = append(warnings, fmt.Sprintf("空文件已跳过：%s", in))
			continue
		}
		set[in] = struct{}{}
	}

	files := make([]string, 0, len(set))
	for p := range set {
		files = append(files, p)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return Result{Warnings: warnings}, fmt.Errorf("未找到任何可处理的稿件")
	}
	return Result{Files: files, Warnings: warnings}, nil
}

func scanDir(root string) ([]string, []string, error) {
	out := []string{}
	warnings := []string{}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !IsDraft(path) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			warnings = append(warnings, fmt.Sprintf("读取失败已跳过：%s", path))
			return nil
		}
		if info.Size() == 0 {
			warnings = append(warnings, fmt.Sprintf("空文件已跳过：%s", path))
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("扫描目录失败（%s）：%w", root, err)
	}
	return out, warnings, nil
}

package output

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
)

func EnsureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("输出目录为空")
	}
	return os.MkdirAll(dir, 0o755)
}

// Namer hands out collision-free output paths. Ids are ULIDs, so names from
// one run sort in creation order.
type Namer struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func NewNamer(randSrc io.Reader) *Namer {
	if randSrc == nil {
		randSrc = rand.Reader
	}
	return &Namer{entropy: ulid.Monotonic(randSrc, 0), now: time.Now}
}

// Next returns <stem>_<platform>_<ulid>.json inside dir, where stem comes from
// the input file name.
func (n *Namer) Next(dir, input, platform string) (id string, path string, err error) {
	stem := sanitizeStem(strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)))
	platform = sanitizeStem(platform)
	for i := 0; i < 1000; i++ {
		id, err = n.newID()
		if err != nil {
			return "", "", err
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%s_%s.json", stem, platform, strings.ToLower(id)))
		if !exists(path) {
			return id, path, nil
		}
	}
	return "", "", fmt.Errorf("尝试多次仍无法生成不冲突文件名")
}

func (n *Namer) newID() (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(n.now()), n.entropy)
	if err != nil {
		return "", fmt.Errorf("生成文件 id 失败：%w", err)
	}
	return id.String(), nil
}

// WriteJSON writes v next to path and renames it into place, so readers never
// see a half-written file.
func WriteJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("编码输出失败：%w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("创建临时文件失败：%w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("写入输出失败：%w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入输出失败：%w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("写入输出失败：%w", err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func sanitizeStem(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "post"
	}
	return out
}

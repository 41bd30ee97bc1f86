package normalize

import (
	"strings"
	"unicode/utf8"
)

const (
	ReasonEmpty     = "正文为空"
	ReasonTooShort  = "正文过短，可能未写完"
	ReasonTruncated = "结尾缺少收束标点，可能被截断"
)

// closers may follow the terminal mark: 。” or ！）
const closers = "\"'”’）)」』】》"

// Check is a cheap pre-publish gate: long enough, and the last prose line ends
// with one of terminalPunct. A trailing hashtag line is not prose and is skipped.
// Empty terminalPunct uses DefaultTerminalPunct.
func Check(body string, minLength int, terminalPunct string) Verdict {
	if terminalPunct == "" {
		terminalPunct = DefaultTerminalPunct
	}
	trimmed := strings.TrimSpace(body)
	lines := splitLines(trimmed)
	last := lastNonBlank(lines)
	if last < 0 {
		return Verdict{Reason: ReasonEmpty}
	}
	if utf8.RuneCountInString(trimmed) < minLength {
		return Verdict{Reason: ReasonTooShort}
	}
	for last >= 0 && isHashTagLine(lines[last]) {
		last = lastNonBlank(lines[:last])
	}
	if last < 0 {
		return Verdict{Reason: ReasonTruncated}
	}
	tail := strings.TrimRight(strings.TrimSpace(lines[last]), closers)
	r, _ := utf8.DecodeLastRuneInString(tail)
	if r == utf8.RuneError || !strings.ContainsRune(terminalPunct, r) {
		return Verdict{Reason: ReasonTruncated}
	}
	return Verdict{OK: true}
}

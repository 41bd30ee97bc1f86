package normalize

import "errors"

var ErrIncomplete = errors.New("normalize: content incomplete")

// IncompleteError carries the completeness veto reason back to the caller.
type IncompleteError struct {
	Reason string
}

func (e *IncompleteError) Error() string {
	return "正文未通过完整性检查：" + e.Reason
}

func (e *IncompleteError) Unwrap() error {
	return ErrIncomplete
}

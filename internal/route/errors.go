package route

import "errors"

var (
	ErrInvalidPattern  = errors.New("invalid pattern")
	ErrRecursiveRule   = errors.New("recursive rule")
	ErrOperationFailed = errors.New("operation failed")
)

// ErrorKind maps a registration error onto the name reported to callers of
// the command surface.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPattern):
		return "InvalidPattern"
	case errors.Is(err, ErrRecursiveRule):
		return "RecursiveRuleError"
	default:
		return "OperationFailed"
	}
}

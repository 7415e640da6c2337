package calendar

import "errors"

// ValidationError is a failure detected before or instead of a store write,
// such as a missing field or a malformed date. Transports report it as a
// client error.
type ValidationError struct {
	Op      string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrNoDate is returned by Postpone when the entry has no date set.
var ErrNoDate = &ValidationError{
	Op:      "postpone",
	Message: "날짜가 없는 일정은 미룰 수 없습니다",
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func invalid(op, msg string) error {
	return &ValidationError{Op: op, Message: msg}
}

func missing(op, field string) error {
	return invalid(op, "필수 항목이 없습니다: "+field)
}

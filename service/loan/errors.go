package loansvc

import "errors"

// errors used by controllers

type ErrCode string

const (
	ErrValidation    ErrCode = "VALIDATION"
	ErrLimitExceeded ErrCode = "LIMIT_EXCEEDED"
	ErrUnavailable   ErrCode = "UNAVAILABLE"
	ErrConflict      ErrCode = "CONFLICT"
	ErrNotFound      ErrCode = "NOT_FOUND"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string { return e.msg }
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts the business error code; empty for store failures, which
// are the only errors a caller may retry.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

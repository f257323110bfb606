package domain

import "errors"

// BusinessError 业务规则错误
// Expected rejections (unknown family head, duplicate spouse, ...) that are
// surfaced to the respondent as plain language and preserve the session.
// Anything else returned from the commit path is a system fault.
type BusinessError struct {
	Code    string // stable identifier for logs/tests
	Message string // respondent-facing text
}

func (e *BusinessError) Error() string { return e.Message }

func NewBusinessError(code, message string) *BusinessError {
	return &BusinessError{Code: code, Message: message}
}

// AsBusinessError unwraps err into a BusinessError if it is one.
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// Business error codes used by the commit path.
const (
	ErrCodeHeadNotFound    = "family_head_not_found"
	ErrCodeDuplicateSpouse = "duplicate_spouse"
	ErrCodeTooManyParents  = "too_many_parents"
	ErrCodeDuplicateFamily = "duplicate_family"
)

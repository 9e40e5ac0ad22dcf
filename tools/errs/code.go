package errs

// Error codes grouped by concern. 1xxx are request-level, 11xx auth,
// 15xx storage.
const (
	CodeInvalidInput = 1002
	CodeUnauthorized = 1100
	CodeTokenInvalid = 1101
	CodeTokenExpired = 1102
	CodePersistence  = 1501
)

var (
	// ErrInvalidInput rejects a request synchronously, with no side effects.
	ErrInvalidInput = NewCodeError(CodeInvalidInput, "invalid input")

	ErrUnauthorized = NewCodeError(CodeUnauthorized, "unauthorized")
	ErrTokenInvalid = NewCodeError(CodeTokenInvalid, "token invalid")
	ErrTokenExpired = NewCodeError(CodeTokenExpired, "token expired")

	// ErrPersistence means the durable write did not complete. It always
	// surfaces to the original caller and is never retried here.
	ErrPersistence = NewCodeError(CodePersistence, "persistence failed")
)

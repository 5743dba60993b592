package gridcalc

// AppErrorCode represents gRPC-style error codes for application-level
// errors raised by structural operations. formula-content faults never
// use these; they degrade to ComputeError values instead.
type AppErrorCode int

const (
	// OK indicates the operation completed successfully.
	OK AppErrorCode = 0

	// Unknown error. errors raised by APIs that do not return enough
	// error information may be converted to this error.
	Unknown AppErrorCode = 2

	// InvalidArgument indicates the caller specified an invalid argument.
	InvalidArgument AppErrorCode = 3

	// NotFound means some requested entity (e.g. a named grid) was
	// not found.
	NotFound AppErrorCode = 5

	// FailedPrecondition indicates the operation was rejected because
	// the grid is not in a state required for its execution, such as a
	// shrink below the minimum dimensions.
	FailedPrecondition AppErrorCode = 9

	// OutOfRange means the operation was attempted past the valid range
	// of rows or columns.
	OutOfRange AppErrorCode = 11

	// Internal errors. means some invariant expected by the engine has
	// been broken.
	Internal AppErrorCode = 13
)

// AppError represents errors at the application level (not formula
// evaluation errors)
type AppError struct {
	Code    AppErrorCode
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates a new application error
func NewAppError(code AppErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

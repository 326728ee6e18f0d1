package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"

	// ErrInsufficientBalance represents an error when a user's ledger balance
	// cannot cover the notional required by an order.
	ErrInsufficientBalance ErrorCode = "insufficient_balance"
	// ErrOrderNotFound represents an error when an order id is not resting in the book.
	ErrOrderNotFound ErrorCode = "order_not_found"
	// ErrInvalidOrder represents an error when an order request is malformed
	// (non-positive amount, negative price, unknown side).
	ErrInvalidOrder ErrorCode = "invalid_order"
	// ErrDuplicateOrder represents an error when an order id already rests in the book.
	ErrDuplicateOrder ErrorCode = "duplicate_order"
	// ErrBookInconsistent represents an aggregate consistency violation in the order book.
	ErrBookInconsistent ErrorCode = "book_inconsistent"

	// ErrEventPublish represents an error when publishing a book event downstream.
	ErrEventPublish ErrorCode = "event_publish_error"
	// ErrOrderDecode represents an error when decoding an inbound order request.
	ErrOrderDecode ErrorCode = "order_decode_error"
	// ErrEngineStopped represents an error when an operation is submitted to a stopped engine.
	ErrEngineStopped ErrorCode = "engine_stopped"
)

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-defined error message.
	// E.g. "order amount must be positive".
	Message string

	// Code (required) is the user-defined error code string.
	// E.g. "invalid_order".
	Code string

	// Field (optional) is the related field the error occurred on, if any.
	Field string
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
	}
}

// Error is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	return e.Message
}

// ErrorCodeEquals checks whether a given `error` has a specific code.
func ErrorCodeEquals(err error, code ErrorCode) bool {
	errDetails, ok := err.(*ErrorDetails)
	if !ok {
		return false
	}

	return errDetails.Code == string(code)
}

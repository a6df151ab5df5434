package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	AccountNotFound     ErrorCode = "account_not_found"
	TransactionNotFound ErrorCode = "transaction_not_found"
	DuplicateAccount    ErrorCode = "duplicate_account"
	InsufficientFunds   ErrorCode = "insufficient_funds"
	InvalidAmount       ErrorCode = "invalid_amount"
	InvalidInput        ErrorCode = "invalid_input"
	GatewayRejected     ErrorCode = "gateway_rejected"
	GatewayUnavailable  ErrorCode = "gateway_unavailable"
	UnknownTransaction  ErrorCode = "unknown_transaction"
	InternalError       ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps an error code to the status the HTTP layer responds with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case AccountNotFound, TransactionNotFound, UnknownTransaction:
		return http.StatusNotFound
	case DuplicateAccount:
		return http.StatusConflict
	case InsufficientFunds:
		return http.StatusUnprocessableEntity
	case InvalidAmount, InvalidInput:
		return http.StatusBadRequest
	case GatewayRejected:
		return http.StatusBadGateway
	case GatewayUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrAccountNotFound     = NewAppError(AccountNotFound, "account not found")
	ErrTransactionNotFound = NewAppError(TransactionNotFound, "transaction not found")
	ErrDuplicateAccount    = NewAppError(DuplicateAccount, "account already exists")
	ErrInsufficientFunds   = NewAppError(InsufficientFunds, "insufficient funds")
	ErrInvalidAmount       = NewAppError(InvalidAmount, "amount must be positive with at most two decimal places")
	ErrSameAccountTransfer = NewAppError(InvalidInput, "buyer and seller must be different accounts")
	ErrUnknownTransaction  = NewAppError(UnknownTransaction, "no pending transaction matches the callback")
	ErrCannotBeginTx       = NewAppError(InternalError, "store cannot begin a database transaction")
)

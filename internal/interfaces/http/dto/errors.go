package dto

import "net/http"

// Error codes returned by the API. Domain errors are normalized to these
// codes before they reach the response envelope.
const (
	// Input errors (400)
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidParam = "ERR_INVALID_PARAM"

	// Auth errors (401/403)
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeForbidden    = "ERR_FORBIDDEN"

	// Resource errors (404/409)
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"

	// Business rule errors (422)
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeNotListed           = "ERR_NOT_LISTED"
	ErrCodeAlreadySold         = "ERR_ALREADY_SOLD"
	ErrCodeNotSold             = "ERR_NOT_SOLD"
	ErrCodeInvalidSalePrice    = "ERR_INVALID_SALE_PRICE"
	ErrCodeNotYetDue           = "ERR_NOT_YET_DUE"
	ErrCodeInvalidRecord       = "ERR_INVALID_RECORD"
	ErrCodeTransferFailed      = "ERR_TRANSFER_FAILED"
	ErrCodeMintMismatch        = "ERR_MINT_MISMATCH"
	ErrCodeBalanceOverflow     = "ERR_BALANCE_OVERFLOW"
	ErrCodeInsufficientBalance = "ERR_INSUFFICIENT_BALANCE"

	// Rate limiting (429)
	ErrCodeRateLimited = "ERR_RATE_LIMITED"

	// Server errors (5xx)
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidParam: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeNotListed:           http.StatusUnprocessableEntity,
	ErrCodeAlreadySold:         http.StatusUnprocessableEntity,
	ErrCodeNotSold:             http.StatusUnprocessableEntity,
	ErrCodeInvalidSalePrice:    http.StatusUnprocessableEntity,
	ErrCodeNotYetDue:           http.StatusUnprocessableEntity,
	ErrCodeInvalidRecord:       http.StatusUnprocessableEntity,
	ErrCodeTransferFailed:      http.StatusUnprocessableEntity,
	ErrCodeMintMismatch:        http.StatusUnprocessableEntity,
	ErrCodeBalanceOverflow:     http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code,
// defaulting to 500 for unknown codes.
func GetHTTPStatus(errorCode string) int {
	if status, ok := ErrorCodeHTTPStatus[errorCode]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to API error codes
var LegacyErrorCodeMapping = map[string]string{
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_STATE":        ErrCodeInvalidState,
	"NOT_LISTED":           ErrCodeNotListed,
	"ALREADY_SOLD":         ErrCodeAlreadySold,
	"NOT_SOLD":             ErrCodeNotSold,
	"INVALID_SALE_PRICE":   ErrCodeInvalidSalePrice,
	"NOT_YET_DUE":          ErrCodeNotYetDue,
	"INVALID_RECORD":       ErrCodeInvalidRecord,
	"TRANSFER_FAILED":      ErrCodeTransferFailed,
	"MINT_MISMATCH":        ErrCodeMintMismatch,
	"BALANCE_OVERFLOW":     ErrCodeBalanceOverflow,
	"INSUFFICIENT_BALANCE": ErrCodeInsufficientBalance,
	"TOKEN_EXPIRED":        ErrCodeTokenExpired,
	"TOKEN_INVALID":        ErrCodeTokenInvalid,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to an API error code
func NormalizeErrorCode(code string) string {
	if normalized, ok := LegacyErrorCodeMapping[code]; ok {
		return normalized
	}
	return code
}

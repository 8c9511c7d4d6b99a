package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInvalidAmount        Code = "INVALID_AMOUNT"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeNotCancellable       Code = "NOT_CANCELLABLE"
	CodeAlreadyCancelled     Code = "ALREADY_CANCELLED"
	CodeAlreadyRefunded      Code = "ALREADY_REFUNDED"
	CodeAlreadyProcessed     Code = "ALREADY_PROCESSED"
	CodeOutOfStock           Code = "OUT_OF_STOCK"
	CodeNoPaymentIntent      Code = "NO_PAYMENT_INTENT"
	CodeNotHeld              Code = "NOT_HELD"
	CodeDisputeBlocksRelease Code = "DISPUTE_BLOCKS_RELEASE"
	CodeGatewayUnavailable   Code = "GATEWAY_UNAVAILABLE"
	CodeIdempotency          Code = "IDEMPOTENCY_CONFLICT"
	CodeRateLimit            Code = "RATE_LIMITED"
	CodeDependency           Code = "DEPENDENCY_ERROR"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Outcome groups codes into the buckets callers render differently.
type Outcome string

const (
	OutcomeFailure          Outcome = "failure"
	OutcomeRetry            Outcome = "retry"
	OutcomeOutOfStock       Outcome = "out_of_stock"
	OutcomeAlreadyProcessed Outcome = "already_processed"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	Outcome        Outcome
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
		Outcome:        OutcomeFailure,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
		Outcome:       OutcomeFailure,
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
		Outcome:       OutcomeFailure,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
		Outcome:       OutcomeFailure,
	},
	CodeInvalidAmount: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "invalid amount",
		DetailsAllowed: true,
		Outcome:        OutcomeFailure,
	},
	CodeInvalidTransition: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
		Outcome:        OutcomeFailure,
	},
	CodeNotCancellable: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "order can no longer be cancelled",
		DetailsAllowed: true,
		Outcome:        OutcomeFailure,
	},
	CodeAlreadyCancelled: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "order already cancelled",
		Outcome:       OutcomeAlreadyProcessed,
	},
	CodeAlreadyRefunded: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "order already refunded",
		Outcome:       OutcomeAlreadyProcessed,
	},
	CodeAlreadyProcessed: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "request already processed",
		Outcome:       OutcomeAlreadyProcessed,
	},
	CodeOutOfStock: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "insufficient stock",
		DetailsAllowed: true,
		Outcome:        OutcomeOutOfStock,
	},
	CodeNoPaymentIntent: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "order has no captured payment",
		Outcome:       OutcomeFailure,
	},
	CodeNotHeld: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "escrow is not held",
		Outcome:       OutcomeFailure,
	},
	CodeDisputeBlocksRelease: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "escrow frozen by open dispute",
		Outcome:       OutcomeFailure,
	},
	CodeGatewayUnavailable: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "payment gateway unavailable",
		DetailsAllowed: true,
		Outcome:        OutcomeRetry,
	},
	CodeIdempotency: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "idempotency key conflict",
		Outcome:       OutcomeFailure,
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		Retryable:     true,
		PublicMessage: "too many requests",
		Outcome:       OutcomeRetry,
	},
	CodeDependency: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "dependency unavailable",
		Outcome:       OutcomeRetry,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
		Outcome:       OutcomeRetry,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the typed code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// OutcomeOf classifies err for callers that only need to know whether to
// retry, report missing stock, or treat the call as an already-applied no-op.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return ""
	}
	return MetadataFor(CodeOf(err)).Outcome
}

package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all attempts were used without success.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrNonRetryable is returned for responses that must not be retried.
	ErrNonRetryable = errors.New("non-retryable response")

	// ErrContextCancelled is returned when the context ends during a wait or request.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassMalformed represents a 2xx response whose body is not valid JSON.
	ErrorClassMalformed ErrorClass = "malformed"
)

// APIError describes the last failure of a fetch.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	ItemID     string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error for %s (status %d): %s: %v",
			e.ErrorClass, e.ItemID, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error for %s (status %d): %s",
		e.ErrorClass, e.ItemID, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx status code to its error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassRateLimit, ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

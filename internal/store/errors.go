package store

import "fmt"

// ErrorKind classifies an API failure. The reconciliation engine trusts
// this classification to decide whether to retry.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindServerError ErrorKind = "server_error"
	KindNotFound    ErrorKind = "not_found"
	KindValidation  ErrorKind = "validation"
	KindAuth        ErrorKind = "auth"
)

// APIError is a classified failure from the CMS API.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store: %s (status %d): %s", e.Kind, e.Status, e.Message)
}

// Retryable reports whether the failure is transient. Rate-limit and
// server-error responses are worth retrying; everything else is not.
func (e *APIError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindServerError
}

// classify maps an HTTP status to an ErrorKind.
func classify(status int) ErrorKind {
	switch {
	case status == 429:
		return KindRateLimited
	case status == 401 || status == 403:
		return KindAuth
	case status == 404:
		return KindNotFound
	case status >= 500:
		return KindServerError
	default:
		return KindValidation
	}
}

package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind string

const (
	// KindValidation: the request was malformed. Surfaced immediately, never retried.
	KindValidation Kind = "validation"
	// KindConfiguration: a credential is missing or still the placeholder. No network call was made.
	KindConfiguration Kind = "configuration"
	// KindProviderRejection: the provider answered with a non-success status.
	KindProviderRejection Kind = "provider_rejection"
	// KindMalformedResponse: success status but an unexpected response shape.
	KindMalformedResponse Kind = "malformed_response"
	// KindNetwork: transport failure or anything unexpected. The message is forwarded verbatim.
	KindNetwork Kind = "network"
)

// Error is the only error type returned by the gateway.
type Error struct {
	Kind    Kind
	Status  int // HTTP status for KindProviderRejection, 0 otherwise
	Message string
}

func (e *Error) Error() string { return e.Message }

// KindOf returns the kind of a gateway error, or "" if err is not one.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// maxErrorBody bounds how much of a rejected response body ends up in the message.
const maxErrorBody = 200

func validationError(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func configurationError(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func malformedError(format string, args ...any) error {
	return &Error{Kind: KindMalformedResponse, Message: fmt.Sprintf(format, args...)}
}

func networkError(msg string) error {
	return &Error{Kind: KindNetwork, Message: msg}
}

func rejectionError(status int, body []byte) error {
	return &Error{
		Kind:    KindProviderRejection,
		Status:  status,
		Message: fmt.Sprintf("provider error %d: %s", status, truncate(string(body), maxErrorBody)),
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

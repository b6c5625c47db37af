package job

import (
	"fmt"
	"net/http"
)

// Kind classifies run failures.
type Kind string

const (
	// KindAuthorization: the trigger carried a missing or wrong token.
	KindAuthorization Kind = "authorization_failure"
	// KindUpstreamToken: the Auth0 password grant failed.
	KindUpstreamToken Kind = "upstream_token_error"
	// KindUpstreamFetch: a forecast CSV could not be downloaded.
	KindUpstreamFetch Kind = "upstream_fetch_error"
	// KindDelivery: one email was rejected. Never fatal; only recorded in the
	// run summary.
	KindDelivery Kind = "delivery_error"
)

// HTTPStatus maps a Kind to the status code returned by the HTTP trigger.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAuthorization:
		return http.StatusForbidden
	case KindUpstreamToken, KindUpstreamFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a fatal run failure. Message is the text reported to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

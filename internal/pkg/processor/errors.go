package processor

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v83"
)

// APIError is the reduced form of a processor-side failure. Only the error
// type and code are retained; raw processor messages may embed customer data
// and are never logged or surfaced.
type APIError struct {
	Type string
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor error: type=%s code=%s", e.Type, e.Code)
}

// reduceError converts SDK errors into an APIError safe for logs and callers.
func reduceError(err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &APIError{Type: string(stripeErr.Type), Code: string(stripeErr.Code)}
	}
	return &APIError{Type: "request_failed", Code: "unknown"}
}

package webhook

import (
	"errors"
	"fmt"
)

var (
	ErrWebhookNotFound = errors.New("webhook not found")
	ErrInvalidPolicy   = errors.New("retry policy must be linear, constant or exponential")
	ErrInvalidURL      = errors.New("webhook url must be an absolute http or https url")
)

// DeliveryError is one failed delivery attempt. StatusCode is zero when no
// response was received.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

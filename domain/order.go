package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// OrderRequest is the inbound order payload. It exists only in transit:
// the producer serializes it onto a queue and the consumer decodes it back.
type OrderRequest struct {
	CustomerID string `json:"customerId"`
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
}

// ValidationError reports a client-facing problem with an order request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks the producer-side contract. Consumers do not re-validate;
// a queued message that decodes is processed as-is.
func (r OrderRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return &ValidationError{Message: "customerId is required"}
	}
	if strings.TrimSpace(r.ProductID) == "" {
		return &ValidationError{Message: "productId is required"}
	}
	if r.Quantity < 1 {
		return &ValidationError{Message: "quantity must be at least 1"}
	}
	return nil
}

// ErrMalformedEnvelope indicates a queue message body that cannot yield a
// usable order request. Such messages are discarded, not retried.
var ErrMalformedEnvelope = errors.New("malformed order envelope")

// Encode produces the wire envelope placed on the order queues.
func (r OrderRequest) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeOrderRequest parses a wire envelope. Field names match
// case-insensitively. Bodies that are not JSON, decode to JSON null, or
// carry none of the order fields fail with ErrMalformedEnvelope.
func DecodeOrderRequest(payload string) (OrderRequest, error) {
	var req OrderRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return OrderRequest{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if req == (OrderRequest{}) {
		return OrderRequest{}, fmt.Errorf("%w: empty payload", ErrMalformedEnvelope)
	}
	return req, nil
}

// QueuedMessage is the diagnostic view of a queued envelope returned by peek.
type QueuedMessage struct {
	MessageText string    `json:"messageText"`
	InsertedOn  time.Time `json:"insertedOn"`
}

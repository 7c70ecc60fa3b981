package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Handler runs one invocation. args is always a JSON object.
// The returned value is coerced to the result string: strings and byte
// slices are used as-is, fmt.Stringer values are rendered with String,
// anything else is JSON-encoded.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// ArgumentError reports arguments that do not fit a capability.
type ArgumentError struct {
	// Field names the offending argument, if known.
	Field string

	// Reason describes the problem.
	Reason string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid arguments: %s: %s", e.Field, e.Reason)
	}
	return "invalid arguments: " + e.Reason
}

// Validator is implemented by argument types that check their own values
// after decoding.
type Validator interface {
	Validate() error
}

// Typed adapts a handler taking a concrete argument struct. Arguments are
// decoded into T; decoding failures and Validate errors are reported as
// *ArgumentError.
func Typed[T any](fn func(ctx context.Context, args T) (any, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args T
		if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&args); err != nil {
			return nil, decodeError(err)
		}
		if v, ok := any(&args).(Validator); ok {
			if err := v.Validate(); err != nil {
				var ae *ArgumentError
				if errors.As(err, &ae) {
					return nil, ae
				}
				return nil, &ArgumentError{Reason: err.Error()}
			}
		}
		return fn(ctx, args)
	}
}

// Required returns an ArgumentError when value is empty.
func Required(field, value string) error {
	if value == "" {
		return &ArgumentError{Field: field, Reason: "is required"}
	}
	return nil
}

func decodeError(err error) *ArgumentError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &ArgumentError{
			Field:  typeErr.Field,
			Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return &ArgumentError{Reason: err.Error()}
}

package api

import (
	"errors"
	"fmt"
)

// ErrInvalidSetup is returned when the api assigns a setup without a usable id
var ErrInvalidSetup = errors.New("api returned setup without valid id")

// ConfigurationError is returned before any network call is made when the
// client is not usable with the current settings.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// TransportError wraps network failures, timeouts and unreadable responses.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is returned for non-success HTTP status codes.
// Message holds the error text sent by the server, if any.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// IsConfigurationError reports whether err (or one it wraps) is a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

package helpers

import "fmt"

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ExchangeSimError struct {
	Message string
	Cause   error
}

func (e *ExchangeSimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExchangeSimError) Unwrap() error {
	return e.Cause
}

// Distinct error types for the engine's taxonomy: configuration errors are
// fatal at startup, protocol errors are answered with a typed System message,
// validation errors are answered with an Error message on the same connection.
type ConfigurationError struct{ ExchangeSimError }
type ProtocolError struct{ ExchangeSimError }
type ValidationError struct{ ExchangeSimError }

// -----------------------------------------------------------------------------

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{ExchangeSimError{Message: message, Cause: cause}}
}

func NewProtocolError(message string, cause error) *ProtocolError {
	return &ProtocolError{ExchangeSimError{Message: message, Cause: cause}}
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{ExchangeSimError{Message: message, Cause: cause}}
}

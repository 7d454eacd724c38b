package signature

import (
	"errors"
	"fmt"
)

var (
	// ErrNoKey matches any ConfigurationError of kind NoKey.
	ErrNoKey = errors.New("no signing salt configured")
	// ErrTampered matches any TamperError.
	ErrTampered = errors.New("request parameters possibly tampered")
)

// ConfigurationErrorKind identifies a configuration defect.
type ConfigurationErrorKind string

const (
	// NoKey means the salt is empty or unset.
	NoKey ConfigurationErrorKind = "no_key"
	// UnknownAlgorithm means the configured digest algorithm is not registered.
	UnknownAlgorithm ConfigurationErrorKind = "unknown_algorithm"
	// Malformed means the configuration document could not be parsed.
	Malformed ConfigurationErrorKind = "malformed"
)

// ConfigurationError is a deployment defect. It is never a per-request
// outcome and should reach the operator unmasked.
type ConfigurationError struct {
	Kind    ConfigurationErrorKind
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("signature configuration error (%s): %s", e.Kind, e.Message)
}

// Is reports ErrNoKey for NoKey errors.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrNoKey && e.Kind == NoKey
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(kind ConfigurationErrorKind, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// TamperReason tells why verification rejected a parameter map.
type TamperReason string

const (
	// NoSignature means the map carried no sig key.
	NoSignature TamperReason = "no_signature"
	// ChecksumMismatch means the claimed and computed signatures differ.
	ChecksumMismatch TamperReason = "checksum_mismatch"
)

// TamperError represents a signature verification failure. The reason is
// meant for logs only; clients get a generic answer.
type TamperError struct {
	Reason  TamperReason
	Message string
}

func (e *TamperError) Error() string {
	return fmt.Sprintf("signature verification failed (%s): %s", e.Reason, e.Message)
}

// Is reports ErrTampered for every TamperError.
func (e *TamperError) Is(target error) bool {
	return target == ErrTampered
}

// NewTamperError creates a new tamper error
func NewTamperError(reason TamperReason, format string, args ...interface{}) *TamperError {
	return &TamperError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsTampered reports whether err is a TamperError.
func IsTampered(err error) bool {
	return errors.Is(err, ErrTampered)
}

// IsNoKey reports whether err is a missing salt ConfigurationError.
func IsNoKey(err error) bool {
	return errors.Is(err, ErrNoKey)
}

// TamperReasonOf returns the reason of a TamperError, or "" for other errors.
func TamperReasonOf(err error) TamperReason {
	var tamper *TamperError
	if errors.As(err, &tamper) {
		return tamper.Reason
	}
	return ""
}

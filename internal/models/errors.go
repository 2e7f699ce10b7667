package models

import "fmt"

// ConfigurationError a precondition on sizes or rates was violated
// (window larger than signal, sampling rate <= 0, ...).
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// FormatError a container could not be read: unsupported extension, corrupt
// content, missing key or column.
type FormatError struct {
	Source string
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "format error"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	msg += ": " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// NewFormatError builds a FormatError for source, optionally wrapping err.
func NewFormatError(source, msg string, err error) error {
	return &FormatError{Source: source, Msg: msg, Err: err}
}

package ztopk

import (
	stderrors "errors"

	"github.com/dropbox/godropbox/errors"
)

// MalformedInputError reports a record that is not a valid integer.  It is
// always fatal for the run.
type MalformedInputError struct {
	Source string
	Line   uint64
	Text   string
	Err    error
}

func NewMalformedInputError(
	source string,
	line uint64,
	text string,
	cause error,
) *MalformedInputError {
	return &MalformedInputError{
		Source: source,
		Line:   line,
		Text:   text,
		Err: wrapf(
			cause,
			"malformed record %q at %s:%d",
			text,
			source,
			line),
	}
}

func (e *MalformedInputError) Error() string {
	return errors.GetMessage(e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// IOError reports a failure to open, read, write or close the source or a
// shard sink.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func NewIOError(op string, path string, cause error) *IOError {
	return &IOError{
		Op:   op,
		Path: path,
		Err:  wrapf(cause, "%s %s", op, path),
	}
}

func (e *IOError) Error() string {
	return errors.GetMessage(e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an invalid run parameter.  It is raised before
// any I/O takes place.
type ConfigurationError struct {
	Field string
	Err   error
}

func NewConfigurationError(
	field string,
	format string,
	args ...interface{},
) *ConfigurationError {
	return &ConfigurationError{
		Field: field,
		Err:   errors.Newf("invalid %s: "+format, append([]interface{}{field}, args...)...),
	}
}

func (e *ConfigurationError) Error() string {
	return errors.GetMessage(e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func IsMalformedInput(err error) bool {
	var target *MalformedInputError
	return stderrors.As(err, &target)
}

func IsIO(err error) bool {
	var target *IOError
	return stderrors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return stderrors.As(err, &target)
}

func wrapf(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return errors.Newf(format, args...)
	}
	return errors.Wrapf(cause, format, args...)
}

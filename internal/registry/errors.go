package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("malformed override source")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("invalid override value")
	// ErrKeyNotFound is matched by every *KeyNotFoundError.
	ErrKeyNotFound = errors.New("key not found")
	// ErrSourceRead is matched by every *ReadError.
	ErrSourceRead = errors.New("override source unreadable")
	// ErrInvalidKeyPath is returned when a dotted key path is empty or has an illegal segment.
	ErrInvalidKeyPath = errors.New("invalid key path")
)

const unnamedSource = "<input>"

// ParseError reports a source that cannot be parsed.
type ParseError struct {
	Source string
	Line   int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", location(e.Source, e.Line), msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ValidationError reports a well-formed value that breaks an endpoint or
// secret rule. Values are left out of the message since they may be secrets.
type ValidationError struct {
	Source string
	Line   int
	Path   KeyPath
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", location(e.Source, e.Line), e.Path, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ReadError reports a source file that could not be read.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: read override source: %v", location(e.Source, 0), e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrSourceRead }

// KeyNotFoundError reports a lookup miss.
type KeyNotFoundError struct {
	Path KeyPath
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, ErrKeyNotFound)
}

func (e *KeyNotFoundError) Is(target error) bool { return target == ErrKeyNotFound }

func location(source string, line int) string {
	if source == "" {
		source = unnamedSource
	}
	if line > 0 {
		return fmt.Sprintf("%s:%d", source, line)
	}
	return source
}

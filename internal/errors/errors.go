// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package errors defines the coded errors returned by sqlbind. Every error
// raised while binding parameters, deriving procedures or loading rows carries
// a Code so callers can test for the failing stage with errors.Is.
package errors

import (
	"errors"
	"strings"
)

// Code specifies a code for the error.
type Code uint32

const (
	Unknown Code = 0

	// Binding errors are reserved Codes 100-199.
	UnsupportedParameterSource Code = 100
	UnsupportedSource          Code = 101
	ParameterBinding           Code = 102
	ArgumentNull               Code = 103

	// Record errors are reserved Codes 200-299.
	KeyNotFound Code = 200

	// Provider errors are reserved Codes 300-399.
	ProcedureNotFound    Code = 300
	UnsupportedOperation Code = 301
	UnsupportedProvider  Code = 302
)

var codeMessages = map[Code]string{
	Unknown:                    "unknown",
	UnsupportedParameterSource: "unsupported parameter source",
	UnsupportedSource:          "unsupported source",
	ParameterBinding:           "parameter binding error",
	ArgumentNull:               "argument is nil",
	KeyNotFound:                "key not found",
	ProcedureNotFound:          "procedure not found",
	UnsupportedOperation:       "unsupported operation",
	UnsupportedProvider:        "unsupported provider",
}

// String returns the message associated with the Code.
func (c Code) String() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return codeMessages[Unknown]
}

// Op names the operation (stage) that raised an error, e.g. "bind.Materialize".
type Op string

// Error provides the ability to specify a code, op, msg and wrapped error.
type Error struct {
	Code Code
	Op   Op
	// Name is the record field or parameter implicated in the error, if any.
	Name    string
	Msg     string
	Wrapped error
}

// Sentinels that may be tested against with errors.Is. Matching is done on
// Code only, so any *Error with the same Code matches.
var (
	ErrUnsupportedParameterSource = &Error{Code: UnsupportedParameterSource}
	ErrUnsupportedSource          = &Error{Code: UnsupportedSource}
	ErrParameterBinding           = &Error{Code: ParameterBinding}
	ErrArgumentNull               = &Error{Code: ArgumentNull}
	ErrKeyNotFound                = &Error{Code: KeyNotFound}
	ErrProcedureNotFound          = &Error{Code: ProcedureNotFound}
	ErrUnsupportedOperation       = &Error{Code: UnsupportedOperation}
	ErrUnsupportedProvider        = &Error{Code: UnsupportedProvider}
)

// Option configures New.
type Option func(*Error)

// WithName records the field or parameter implicated in the error.
func WithName(name string) Option {
	return func(e *Error) {
		e.Name = name
	}
}

// WithWrap wraps an underlying error.
func WithWrap(err error) Option {
	return func(e *Error) {
		e.Wrapped = err
	}
}

// New creates an *Error with the given code, op and msg.
func New(code Code, op Op, msg string, opt ...Option) error {
	e := &Error{Code: code, Op: op, Msg: msg}
	for _, o := range opt {
		o(e)
	}
	return e
}

// Wrap is New with the wrapped error as the last argument.
func Wrap(err error, code Code, op Op, msg string, opt ...Option) error {
	return New(code, op, msg, append(opt, WithWrap(err))...)
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	var msgs []string
	if e.Op != "" {
		msgs = append(msgs, string(e.Op))
	}
	if e.Msg != "" {
		msgs = append(msgs, e.Msg)
	} else {
		msgs = append(msgs, e.Code.String())
	}
	if e.Name != "" {
		msgs[len(msgs)-1] += " (" + e.Name + ")"
	}
	if e.Wrapped != nil {
		msgs = append(msgs, e.Wrapped.Error())
	}
	return strings.Join(msgs, ": ")
}

// Unwrap implements the errors.Unwrap interface and allows callers to use the
// errors.Is() and errors.As() functions effectively for any wrapped errors.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsCode reports whether any error in err's chain carries code.
func IsCode(err error, code Code) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.Code == code {
				return true
			}
			err = e.Wrapped
			continue
		}
		return false
	}
	return false
}

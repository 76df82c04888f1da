package keyfob

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a negative status code reported by the application entry points.
type Code int

const (
	CodeFunctionError           Code = -4
	CodeInvalidParameters       Code = -6
	CodeUnableToInitializeStack Code = -7
	CodeInvalidStackID          Code = -8

	CodeAppInvalidParameters Code = -1000
	CodeAppUnableToOpenStack Code = -1001
)

var codeStrings = map[Code]string{
	CodeFunctionError:           "function error",
	CodeInvalidParameters:       "invalid parameters",
	CodeUnableToInitializeStack: "unable to initialize stack",
	CodeInvalidStackID:          "invalid stack id",
	CodeAppInvalidParameters:    "application invalid parameters",
	CodeAppUnableToOpenStack:    "application unable to open stack",
}

func (c Code) String() string {
	if s, ok := codeStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("code %d", int(c))
}

// Error carries a status code along with the operation that failed.
type Error struct {
	Op   string
	Code Code
	Err  error
}

// NewError builds an *Error. err may be nil.
func NewError(op string, code Code, err error) *Error {
	return &Error{Op: op, Code: code, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s (%d)", e.Op, e.Code, int(e.Code))
	}
	return fmt.Sprintf("%s: %s (%d): %s", e.Op, e.Code, int(e.Code), e.Err)
}

func (e *Error) Cause() error  { return e.Err }
func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of the outermost *Error in err's chain. Errors
// without a code report CodeFunctionError, nil reports 0.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}

	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = c.Cause()
	}

	return CodeFunctionError
}

// IsCode reports whether err carries code c.
func IsCode(err error, c Code) bool {
	return CodeOf(err) == c
}

// Wrap annotates err with op while preserving its code.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, op)
}

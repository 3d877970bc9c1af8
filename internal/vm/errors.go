package vm

import (
	"errors"
	"fmt"
)

var (
	ErrDivideByZero    = errors.New("division by zero")
	ErrIndexOutOfRange = errors.New("array index out of range")
	ErrNullReference   = errors.New("null reference")
	ErrNoSuchUnit      = errors.New("no such unit")
	ErrNoSuchMethod    = errors.New("no such method")
	ErrNoSuchField     = errors.New("no such field")
	ErrStackOverflow   = errors.New("call stack overflow")
	ErrBadArgument     = errors.New("bad argument")
	ErrVerify          = errors.New("verification failed")
)

// RuntimeError locates a failure inside executing code
type RuntimeError struct {
	Unit   string
	Method string
	Offset int
	Err    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s.%s at %d: %v", e.Unit, e.Method, e.Offset, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

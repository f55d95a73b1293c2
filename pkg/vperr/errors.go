// Package vperr defines the typed, POSIX-errno-flavoured error set that
// control-plane operations return to the command dispatcher (spec.md §7).
package vperr

import "fmt"

// Error is a control-plane error carrying a stable negative POSIX-style
// code, available through Errno.
type Error struct {
	Code int    // negative errno-style code
	Op   string // failing operation, e.g. "lpm.add"
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// Errno returns the stable negative POSIX-style code for this error.
func (e *Error) Errno() int { return e.Code }

// Well-known codes, mirroring common POSIX errno values used by the
// source dataplane's command responses.
const (
	ENOSPC = -28
	ENOMEM = -12
	ENOENT = -2
	EEXIST = -17
	EINVAL = -22
)

// New constructs an *Error wrapping an optional underlying cause.
func New(code int, op, msg string, cause error) *Error {
	return &Error{Code: code, Op: op, Msg: msg, err: cause}
}

func NoSpace(op string, cause error) *Error { return New(ENOSPC, op, "no space", cause) }
func NoMem(op string, cause error) *Error   { return New(ENOMEM, op, "out of memory", cause) }
func NoEnt(op string, cause error) *Error   { return New(ENOENT, op, "no such entry", cause) }
func Exists(op string, cause error) *Error  { return New(EEXIST, op, "already exists", cause) }
func Inval(op string, cause error) *Error   { return New(EINVAL, op, "invalid argument", cause) }

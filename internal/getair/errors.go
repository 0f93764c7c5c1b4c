package getair

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnreachable        = errors.New("service unreachable")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrUnexpectedStatus   = errors.New("unexpected status")
)

// Error is returned by the Client and the TokenManager. Kind is one of the sentinel errors above.
type Error struct {
	Op         string
	Kind       error
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		b.WriteString(" (" + strconv.Itoa(e.StatusCode) + ")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFatal returns true if err cannot be resolved by retrying.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

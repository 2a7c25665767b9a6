package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies a Firestore failure for the service layer.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindUnavailable
)

// Error is the repositories.RepositoryError produced by the Firestore repositories.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) IsNotFound() bool    { return e != nil && e.Kind == KindNotFound }
func (e *Error) IsConflict() bool    { return e != nil && e.Kind == KindConflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.Kind == KindUnavailable }

// kindOf maps gRPC status codes. Aborted transactions count as conflicts: another writer
// touched the same item lock or name scope first.
func kindOf(code codes.Code) Kind {
	switch code {
	case codes.NotFound:
		return KindNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted, codes.OutOfRange:
		return KindConflict
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
		return KindUnavailable
	default:
		return KindUnknown
	}
}

// WrapError classifies err under op. Cancellations surface as the context errors and
// already classified errors keep their kind.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	code := status.Code(err)
	switch code {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}

	var classified *Error
	if errors.As(err, &classified) {
		if classified.Op == "" {
			classified.Op = op
		}
		return classified
	}
	return &Error{Op: op, Kind: kindOf(code), Err: err}
}

// NewConflictError reports a name collision found by a uniqueness query.
func NewConflictError(op, message string) *Error {
	return &Error{Op: op, Kind: KindConflict, Err: errors.New(message)}
}

// NewNotFoundError reports a missing document.
func NewNotFoundError(op, message string) *Error {
	return &Error{Op: op, Kind: KindNotFound, Err: errors.New(message)}
}

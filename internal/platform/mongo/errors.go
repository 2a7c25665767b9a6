package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Error implements repositories.RepositoryError for Mongo backed repositories.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *Error) IsNotFound() bool    { return e != nil && e.notFound }
func (e *Error) IsConflict() bool    { return e != nil && e.conflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }

// WrapError annotates driver errors with repository semantics. Context cancellations pass through.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr *Error
	if errors.As(err, &repoErr) {
		if op != "" && repoErr.op == "" {
			repoErr.op = op
		}
		return repoErr
	}

	e := &Error{op: op, err: err}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		e.notFound = true
	case mongo.IsDuplicateKeyError(err):
		e.conflict = true
	case hasLabel(err, "TransientTransactionError"):
		e.conflict = true
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		e.unavailable = true
	case errors.Is(err, mongo.ErrClientDisconnected), errors.Is(err, ErrProviderClosed):
		e.unavailable = true
	}
	return e
}

// NewNotFoundError reports a missing document.
func NewNotFoundError(op, message string) *Error {
	return &Error{op: op, err: errors.New(message), notFound: true}
}

func hasLabel(err error, label string) bool {
	var labeled mongo.LabeledError
	return errors.As(err, &labeled) && labeled.HasErrorLabel(label)
}

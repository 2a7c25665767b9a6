package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestWrapErrorClassifiesDriverErrors(t *testing.T) {
	duplicate := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}

	tests := []struct {
		name        string
		err         error
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{name: "no documents", err: mongo.ErrNoDocuments, notFound: true},
		{name: "wrapped no documents", err: fmt.Errorf("find: %w", mongo.ErrNoDocuments), notFound: true},
		{name: "duplicate key", err: duplicate, conflict: true},
		{name: "disconnected", err: mongo.ErrClientDisconnected, unavailable: true},
		{name: "closed provider", err: ErrProviderClosed, unavailable: true},
		{name: "other", err: errors.New("boom")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := WrapError("items.find", tc.err)
			var repoErr *Error
			if !errors.As(wrapped, &repoErr) {
				t.Fatalf("expected *Error, got %T", wrapped)
			}
			if repoErr.IsNotFound() != tc.notFound || repoErr.IsConflict() != tc.conflict || repoErr.IsUnavailable() != tc.unavailable {
				t.Fatalf("unexpected classification for %v: notFound=%v conflict=%v unavailable=%v",
					tc.err, repoErr.IsNotFound(), repoErr.IsConflict(), repoErr.IsUnavailable())
			}
			if repoErr.Unwrap() == nil {
				t.Fatalf("expected the cause to be kept")
			}
		})
	}
}

func TestWrapErrorPassesContextErrorsThrough(t *testing.T) {
	if err := WrapError("op", context.Canceled); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWrapErrorKeepsExistingClassification(t *testing.T) {
	original := NewNotFoundError("", "gone")
	wrapped := WrapError("bookings.find", original)
	if wrapped != original {
		t.Fatalf("expected the same error value")
	}
	if original.Error() != "bookings.find: gone" {
		t.Fatalf("expected op to be attached, got %q", original.Error())
	}
}

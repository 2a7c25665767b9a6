package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Snapshot is a decoded document together with its identifier.
type Snapshot[T any] struct {
	ID         string
	Data       T
	UpdateTime time.Time
}

// Filter narrows a collection query.
type Filter func(query firestore.Query) firestore.Query

// Collection reads documents of one collection into T using Firestore's struct decoding.
// Writes go through transactions owned by the repositories.
type Collection[T any] struct {
	provider *Provider
	name     string
}

// NewCollection binds a typed view to the named collection.
func NewCollection[T any](provider *Provider, name string) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name)}
}

// Ref resolves the collection reference, initialising the client on first use.
func (c *Collection[T]) Ref(ctx context.Context) (*firestore.CollectionRef, error) {
	if c == nil || c.provider == nil {
		return nil, WrapError(c.op("ref"), errors.New("firestore: provider is nil"))
	}
	if c.name == "" {
		return nil, WrapError(c.op("ref"), errors.New("firestore: collection name is required"))
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(c.name), nil
}

// Doc resolves the reference of document id. Blank ids are rejected.
func (c *Collection[T]) Doc(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewNotFoundError(c.op("doc"), "document id is required")
	}
	coll, err := c.Ref(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Doc(id), nil
}

// Get loads one document.
func (c *Collection[T]) Get(ctx context.Context, id string) (Snapshot[T], error) {
	ref, err := c.Doc(ctx, id)
	if err != nil {
		return Snapshot[T]{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Snapshot[T]{}, WrapError(c.op("get"), err)
	}
	return c.Decode(snap)
}

// Find runs the filtered query and decodes every match.
func (c *Collection[T]) Find(ctx context.Context, filter Filter) ([]Snapshot[T], error) {
	coll, err := c.Ref(ctx)
	if err != nil {
		return nil, err
	}
	query := coll.Query
	if filter != nil {
		query = filter(query)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []Snapshot[T]
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, WrapError(c.op("find"), err)
		}
		decoded, err := c.Decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
}

// Decode hydrates a snapshot read elsewhere, typically inside a transaction.
func (c *Collection[T]) Decode(snap *firestore.DocumentSnapshot) (Snapshot[T], error) {
	var data T
	if err := snap.DataTo(&data); err != nil {
		return Snapshot[T]{}, fmt.Errorf("firestore: decode %s/%s: %w", c.name, snap.Ref.ID, err)
	}
	return Snapshot[T]{ID: snap.Ref.ID, Data: data, UpdateTime: snap.UpdateTime}, nil
}

func (c *Collection[T]) op(action string) string {
	if c == nil || c.name == "" {
		return "firestore." + action
	}
	return c.name + "." + action
}

package firestore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/menuslot/api/internal/domain"
	pfirestore "github.com/menuslot/api/internal/platform/firestore"
)

// sortKeys exposes the fields a listing may be ordered by.
type sortKeys struct {
	name      string
	createdAt time.Time
	updatedAt time.Time
}

// paginate orders rows by the requested field and slices out the requested page.
// Listings are filtered with equality clauses only, so ordering happens here rather
// than through composite indexes.
func paginate[T any](rows []T, opts domain.ListOptions, keys func(T) sortKeys) domain.Page[T] {
	opts = opts.WithDefaults()
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := keys(rows[i]), keys(rows[j])
		if opts.Order == domain.SortDesc {
			a, b = b, a
		}
		return compareKeys(a, b, opts.Sort) < 0
	})

	total := len(rows)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	items := make([]T, 0, end-start)
	items = append(items, rows[start:end]...)
	return domain.Page[T]{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit}
}

func compareKeys(a, b sortKeys, field string) int {
	switch field {
	case "name":
		if c := strings.Compare(a.name, b.name); c != 0 {
			return c
		}
		return a.createdAt.Compare(b.createdAt)
	case "updatedAt":
		return a.updatedAt.Compare(b.updatedAt)
	default:
		return a.createdAt.Compare(b.createdAt)
	}
}

// uniqueQuery selects the documents that would collide with a name inside its scope.
type uniqueQuery func(coll *firestore.CollectionRef) firestore.Query

// createUnique creates the document unless another document in the same scope already
// carries the name. The check and the write share a transaction.
func createUnique[T any](ctx context.Context, provider *pfirestore.Provider, repo *pfirestore.Collection[T], id string, value T, scope uniqueQuery, op string) error {
	err := provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		coll, err := repo.Ref(ctx)
		if err != nil {
			return err
		}
		if err := ensureNameFree(tx, scope(coll), id, op); err != nil {
			return err
		}
		ref, err := repo.Doc(ctx, id)
		if err != nil {
			return err
		}
		return tx.Create(ref, value)
	})
	return pfirestore.WrapError(op, err)
}

// replaceUnique overwrites an existing document, enforcing the same name rule as createUnique.
func replaceUnique[T any](ctx context.Context, provider *pfirestore.Provider, repo *pfirestore.Collection[T], id string, value T, scope uniqueQuery, op string) error {
	err := provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := repo.Doc(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		coll, err := repo.Ref(ctx)
		if err != nil {
			return err
		}
		if err := ensureNameFree(tx, scope(coll), id, op); err != nil {
			return err
		}
		return tx.Set(ref, value)
	})
	return pfirestore.WrapError(op, err)
}

func ensureNameFree(tx *firestore.Transaction, query firestore.Query, id, op string) error {
	snaps, err := tx.Documents(query.Limit(2)).GetAll()
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if snap.Ref.ID != id {
			return pfirestore.NewConflictError(op, fmt.Sprintf("name already used by %s", snap.Ref.ID))
		}
	}
	return nil
}

func getDocument[T any](ctx context.Context, repo *pfirestore.Collection[T], id string) (pfirestore.Snapshot[T], error) {
	if strings.TrimSpace(id) == "" {
		return pfirestore.Snapshot[T]{}, pfirestore.NewNotFoundError("firestore.get", "id is required")
	}
	return repo.Get(ctx, id)
}

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/menuslot/api/internal/domain"
	pmongo "github.com/menuslot/api/internal/platform/mongo"
)

var sortColumns = map[string]string{
	"createdAt": "createdAt",
	"updatedAt": "updatedAt",
	"name":      "name",
}

// listPage counts the filter, then fetches one sorted page and converts each document.
func listPage[D any, T any](ctx context.Context, coll *mongo.Collection, op string, filter bson.M, opts domain.ListOptions, convert func(D) (T, error)) (domain.Page[T], error) {
	opts = opts.WithDefaults()

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return domain.Page[T]{}, pmongo.WrapError(op, err)
	}

	column, ok := sortColumns[opts.Sort]
	if !ok {
		column = sortColumns[domain.DefaultSortField]
	}
	direction := -1
	if opts.Order == domain.SortAsc {
		direction = 1
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: column, Value: direction}, {Key: "_id", Value: direction}}).
		SetSkip(int64(opts.Offset())).
		SetLimit(int64(opts.Limit))

	cursor, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return domain.Page[T]{}, pmongo.WrapError(op, err)
	}
	defer cursor.Close(ctx)

	items := make([]T, 0, opts.Limit)
	for cursor.Next(ctx) {
		var doc D
		if err := cursor.Decode(&doc); err != nil {
			return domain.Page[T]{}, fmt.Errorf("%s: decode: %w", op, err)
		}
		item, err := convert(doc)
		if err != nil {
			return domain.Page[T]{}, err
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return domain.Page[T]{}, pmongo.WrapError(op, err)
	}
	return domain.Page[T]{Items: items, Total: int(total), Page: opts.Page, Limit: opts.Limit}, nil
}

func findOne[D any](ctx context.Context, coll *mongo.Collection, op, id string) (D, error) {
	var doc D
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return doc, pmongo.WrapError(op, err)
	}
	return doc, nil
}

// replaceExisting overwrites the document with the given id, failing when it is missing.
func replaceExisting(ctx context.Context, coll *mongo.Collection, op, id string, doc any) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return pmongo.WrapError(op, err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NewNotFoundError(op, fmt.Sprintf("document %s not found", id))
	}
	return nil
}

package mongostore

import (
	"context"
	"errors"
	"regexp"

	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// credentialsProjection strips the inline credentials from identity documents.
var credentialsProjection = bson.M{"passwordHash": 0, "oneTimeToken": 0}

var dupIndexPattern = regexp.MustCompile(`index: (\S+) dup key`)

// collection wraps a mongo collection with typed helpers and error translation.
type collection[T any] struct {
	coll *mongo.Collection
	// uniques maps unique index names to the field reported on violation.
	uniques map[string]string
}

func (c collection[T]) findOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	err := c.coll.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c collection[T]) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]*T, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, cursor.Err()
}

func (c collection[T]) insert(ctx context.Context, doc *T) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return c.writeErr(err)
}

func (c collection[T]) replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return c.writeErr(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// writeErr turns a duplicate key error into *repository.DuplicateKeyError naming the field.
func (c collection[T]) writeErr(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	field := "unknown"
	if m := dupIndexPattern.FindStringSubmatch(err.Error()); m != nil {
		if f, ok := c.uniques[m[1]]; ok {
			field = f
		}
	}
	return &repository.DuplicateKeyError{Field: field, Err: err}
}

// containsPattern builds a case-insensitive substring match for free text queries.
func containsPattern(q string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
}

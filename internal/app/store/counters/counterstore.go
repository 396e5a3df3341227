package counterstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saecell/labportal/internal/domain/models"
)

// Store manages the per-category sequence counters that back issued
// member IDs. Counters only ever move forward; a failed approval rolls
// the increment back with the surrounding transaction, never by
// decrementing.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("counters")}
}

// Next atomically increments the category's counter and returns the new
// value. A missing counter is created at 1. Run inside the approval
// transaction by passing the session context.
func (s *Store) Next(ctx context.Context, category string) (int64, error) {
	var counter models.SequenceCounter
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": category},
		bson.M{"$inc": bson.M{"count": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}

// Current returns the category's counter value without advancing it,
// or 0 when no ID has been issued in the category yet.
func (s *Store) Current(ctx context.Context, category string) (int64, error) {
	var counter models.SequenceCounter
	err := s.c.FindOne(ctx, bson.M{"_id": category}).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}

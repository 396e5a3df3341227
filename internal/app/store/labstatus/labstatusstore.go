package labstatusstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saecell/labportal/internal/domain/models"
)

// Store manages the singleton lab status document. All writes go
// through single-document atomic operators, so concurrent check-ins and
// check-outs cannot lose presence updates.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("lab_status")}
}

// Get loads the status document, materializing a closed empty lab the
// first time the portal runs.
func (s *Store) Get(ctx context.Context) (*models.LabStatus, error) {
	var status models.LabStatus
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": models.LabStatusKey},
		bson.M{"$setOnInsert": bson.M{
			"is_lab_open":   false,
			"present":       []string{},
			"last_activity": time.Now(),
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// AddPresent records the member as inside the lab and marks the lab
// open. $addToSet keeps a double-submit from duplicating the entry.
// Returns the post-update document.
func (s *Store) AddPresent(ctx context.Context, memberIDHex string) (*models.LabStatus, error) {
	var status models.LabStatus
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": models.LabStatusKey},
		bson.M{
			"$addToSet": bson.M{"present": memberIDHex},
			"$set": bson.M{
				"is_lab_open":   true,
				"last_activity": time.Now(),
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// RemovePresent pulls the member from the present set and returns the
// post-update document. Callers decide from the returned occupancy
// whether this was the last person out; because the pull and the read
// are one atomic operation, two concurrent checkouts cannot both see an
// empty lab.
func (s *Store) RemovePresent(ctx context.Context, memberIDHex string) (*models.LabStatus, error) {
	var status models.LabStatus
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": models.LabStatusKey},
		bson.M{
			"$pull": bson.M{"present": memberIDHex},
			"$set":  bson.M{"last_activity": time.Now()},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// SetOpen flips the lab flag without touching the present set.
func (s *Store) SetOpen(ctx context.Context, open bool) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": models.LabStatusKey},
		bson.M{"$set": bson.M{
			"is_lab_open":   open,
			"last_activity": time.Now(),
		}},
		options.Update().SetUpsert(true))
	return err
}

// ErrWatchNotSupported is returned when the deployment cannot host
// change streams (standalone mongod). The live view falls back to
// polling.
var ErrWatchNotSupported = errors.New("change streams not supported on this deployment")

// Watch opens a change stream on the status document so the live
// dashboard can push occupancy updates without polling.
func (s *Store) Watch(ctx context.Context) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"documentKey._id": models.LabStatusKey}}},
	}
	cs, err := s.c.Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		var ce mongo.CommandError
		if errors.As(err, &ce) && (ce.Code == 40573 || ce.Code == 148) {
			return nil, ErrWatchNotSupported
		}
		return nil, err
	}
	return cs, nil
}

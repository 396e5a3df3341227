package attendancestore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saecell/labportal/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("attendance")}
}

var (
	// ErrAlreadyOpen is returned when a member with an open visit tries
	// to check in again. Backed by the partial unique index on open
	// records, so it holds even under concurrent double-submits.
	ErrAlreadyOpen = errors.New("member already has an open attendance record")
	// ErrNoOpenRecord is returned when a checkout finds nothing to close.
	ErrNoOpenRecord = errors.New("member has no open attendance record")
)

// CreateOpen starts a visit for the member at t. Name and issued ID are
// denormalized onto the record for history views.
func (s *Store) CreateOpen(ctx context.Context, m *models.Member, t time.Time) (models.AttendanceRecord, error) {
	rec := models.AttendanceRecord{
		ID:          primitive.NewObjectID(),
		MemberID:    m.ID,
		MemberName:  m.FullName,
		SAEID:       m.SAEID,
		CheckInTime: t,
		Date:        models.DayKey(t),
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		if wafflemongo.IsDup(err) {
			return models.AttendanceRecord{}, ErrAlreadyOpen
		}
		return models.AttendanceRecord{}, err
	}
	return rec, nil
}

// FindOpenByMember returns the member's open visit, or ErrNoOpenRecord.
func (s *Store) FindOpenByMember(ctx context.Context, memberID primitive.ObjectID) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := s.c.FindOne(ctx, bson.M{
		"member_id":      memberID,
		"check_out_time": nil,
	}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoOpenRecord
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CloseOpen stamps the member's open visit with a checkout time and
// returns the closed record. The filter keys on the nil checkout, so a
// visit can only be closed once; a lost race returns ErrNoOpenRecord.
func (s *Store) CloseOpen(ctx context.Context, memberID primitive.ObjectID, at time.Time) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"member_id": memberID, "check_out_time": nil},
		bson.M{"$set": bson.M{"check_out_time": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoOpenRecord
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByDay returns all visits whose day key matches date (YYYY-MM-DD),
// in check-in order.
func (s *Store) ListByDay(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	return s.list(ctx, bson.M{"date": date},
		bson.D{{Key: "check_in_time", Value: 1}})
}

// ListByMember returns the member's most recent visits, newest first.
func (s *Store) ListByMember(ctx context.Context, memberID primitive.ObjectID, limit int64) ([]models.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.c.Find(ctx, bson.M{"member_id": memberID},
		options.Find().
			SetSort(bson.D{{Key: "check_in_time", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []models.AttendanceRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ListByMemberDay returns the member's visits on one day.
func (s *Store) ListByMemberDay(ctx context.Context, memberID primitive.ObjectID, date string) ([]models.AttendanceRecord, error) {
	return s.list(ctx, bson.M{"member_id": memberID, "date": date},
		bson.D{{Key: "check_in_time", Value: 1}})
}

// ListOpen returns every visit not yet checked out.
func (s *Store) ListOpen(ctx context.Context) ([]models.AttendanceRecord, error) {
	return s.list(ctx, bson.M{"check_out_time": nil},
		bson.D{{Key: "check_in_time", Value: 1}})
}

// CountByDay returns how many visits were recorded on date.
func (s *Store) CountByDay(ctx context.Context, date string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"date": date})
}

func (s *Store) list(ctx context.Context, filter bson.M, sort bson.D) ([]models.AttendanceRecord, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []models.AttendanceRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

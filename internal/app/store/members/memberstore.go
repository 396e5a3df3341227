package memberstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saecell/labportal/internal/app/system/normalize"
	"github.com/saecell/labportal/internal/domain/models"
	"github.com/saecell/labportal/internal/domain/saeid"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when an account with this email already exists.
	ErrDuplicateEmail = errors.New("a member with this email already exists")
	errBadRole        = errors.New(`permission role must be "member"|"admin"|"superadmin"`)
	errBadStatus      = errors.New(`account status must be "pending"|"approved"`)
	errBadBranch      = errors.New("branch is not one of the accepted codes")
)

// GetByID loads a member by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByEmail looks up a member by folded email. Returns
// mongo.ErrNoDocuments when no account exists.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetBySAEID looks up a member by their issued ID.
func (s *Store) GetBySAEID(ctx context.Context, id string) (*models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"sae_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new registration after normalizing and validating
// fields. New accounts always start pending with no issued ID.
func (s *Store) Create(ctx context.Context, m models.Member) (models.Member, error) {
	m.ID = primitive.NewObjectID()
	m.FullName = normalize.Name(m.FullName)
	m.FullNameCI = text.Fold(m.FullName)
	m.Email = normalize.Email(m.Email)
	m.Phone = normalize.Phone(m.Phone)
	m.GuardianPhone = normalize.Phone(m.GuardianPhone)
	m.Branch = normalize.Branch(m.Branch)
	if m.AccountStatus == "" {
		m.AccountStatus = models.StatusPending
	}
	m.SAEID = nil
	m.IsCheckedIn = false

	switch m.Role {
	case "member", "admin", "superadmin":
	default:
		return models.Member{}, errBadRole
	}
	switch m.AccountStatus {
	case models.StatusPending, models.StatusApproved:
	default:
		return models.Member{}, errBadStatus
	}
	if !m.IsFaculty() && !saeid.IsValidBranch(m.Branch) {
		return models.Member{}, errBadBranch
	}

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Member{}, ErrDuplicateEmail
		}
		return models.Member{}, err
	}
	return m, nil
}

// ListPending returns the approval queue, oldest registration first.
func (s *Store) ListPending(ctx context.Context) ([]models.Member, error) {
	return s.list(ctx, bson.M{"account_status": models.StatusPending},
		bson.D{{Key: "created_at", Value: 1}})
}

// ListApproved returns the roster sorted by folded name.
func (s *Store) ListApproved(ctx context.Context) ([]models.Member, error) {
	return s.list(ctx, bson.M{"account_status": models.StatusApproved},
		bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
}

// ListCheckedIn returns everyone currently flagged as inside the lab.
func (s *Store) ListCheckedIn(ctx context.Context) ([]models.Member, error) {
	return s.list(ctx, bson.M{"is_checked_in": true},
		bson.D{{Key: "full_name_ci", Value: 1}})
}

func (s *Store) list(ctx context.Context, filter bson.M, sort bson.D) ([]models.Member, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var members []models.Member
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// ProfileUpdate holds the fields a member can edit themselves.
type ProfileUpdate struct {
	FullName      string
	Phone         string
	Semester      string
	Team          string
	BloodGroup    string
	GuardianPhone string
	PhotoURL      string
}

// UpdateProfile applies a member's own edits. Identity fields (email,
// branch, role, status, issued ID) are deliberately not touchable here.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	name := normalize.Name(upd.FullName)
	set := bson.M{
		"full_name":      name,
		"full_name_ci":   text.Fold(name),
		"phone":          normalize.Phone(upd.Phone),
		"semester":       upd.Semester,
		"team":           upd.Team,
		"blood_group":    upd.BloodGroup,
		"guardian_phone": normalize.Phone(upd.GuardianPhone),
		"photo_url":      upd.PhotoURL,
		"updated_at":     time.Now(),
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// SetApproved flips a pending member to approved and stamps the issued
// ID. Returns mongo.ErrNoDocuments if the member is not pending, so a
// double approval cannot issue twice.
func (s *Store) SetApproved(ctx context.Context, id primitive.ObjectID, issuedID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "account_status": models.StatusPending},
		bson.M{"$set": bson.M{
			"account_status": models.StatusApproved,
			"sae_id":         issuedID,
			"updated_at":     time.Now(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetRole changes a member's permission role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	switch role {
	case "member", "admin", "superadmin":
	default:
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"permission_role": role, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetDisplayTitle changes the title shown on the roster and profile,
// e.g. "Team Captain" or "Faculty". An empty title clears it.
func (s *Store) SetDisplayTitle(ctx context.Context, id primitive.ObjectID, title string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"display_title": title, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetCheckedIn flips the member's presence flag.
func (s *Store) SetCheckedIn(ctx context.Context, id primitive.ObjectID, in bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_checked_in": in, "updated_at": time.Now()}})
	return err
}

// Delete removes a member account. Returns the number of documents
// removed (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByStatus returns how many accounts hold the given status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"account_status": status})
}

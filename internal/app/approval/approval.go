// Package approval turns pending registrations into members with issued
// IDs, and rejects the ones that should never get in.
package approval

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	counterstore "github.com/saecell/labportal/internal/app/store/counters"
	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/txn"
	"github.com/saecell/labportal/internal/domain/models"
	"github.com/saecell/labportal/internal/domain/saeid"
)

var (
	// ErrNotPending means the member was already approved or rejected.
	ErrNotPending = errors.New("member is not pending approval")
	// ErrMissingJoinYear means a student registration carries no join
	// year, so no category can be derived.
	ErrMissingJoinYear = errors.New("student registration has no join year")
)

// Service issues member IDs from the per-category sequence counters.
// The counter increment runs inside a transaction so an approval that
// fails mid-way does not burn a serial; the member document update runs
// after the transaction commits, matching the one-way dependency (a
// member may only reference an ID the counter has actually issued).
type Service struct {
	members  *memberstore.Store
	counters *counterstore.Store
	client   *mongo.Client
	logger   *zap.Logger
}

func NewService(client *mongo.Client, members *memberstore.Store, counters *counterstore.Store, logger *zap.Logger) *Service {
	return &Service{
		members:  members,
		counters: counters,
		client:   client,
		logger:   logger,
	}
}

// Approve issues the next ID in the member's category and flips the
// account to approved. Unknown branches fail before the counter moves:
// a shared fallback bucket would let serials collide across branches,
// so there is none.
func (s *Service) Approve(ctx context.Context, memberID primitive.ObjectID) (string, error) {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return "", err
	}
	if m.AccountStatus != models.StatusPending {
		return "", ErrNotPending
	}

	category, err := s.categoryFor(m.IsFaculty(), m.Branch, m.JoinYear)
	if err != nil {
		return "", err
	}

	var issuedID string
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		serial, err := s.counters.Next(ctx, category)
		if err != nil {
			return err
		}
		issuedID = saeid.Format(category, serial)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("issuing member id: %w", err)
	}

	if err := s.members.SetApproved(ctx, memberID, issuedID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Lost a race with another approval or a rejection. The
			// minted serial stays burned; gaps are acceptable, reuse
			// is not.
			s.logger.Warn("approval raced; issued id goes unused",
				zap.String("member_id", memberID.Hex()),
				zap.String("sae_id", issuedID))
			return "", ErrNotPending
		}
		return "", err
	}

	s.logger.Info("member approved",
		zap.String("member_id", memberID.Hex()),
		zap.String("sae_id", issuedID),
		zap.String("category", category))
	return issuedID, nil
}

// Reject removes a pending registration outright. Rejected applicants
// can register again later with the same email.
func (s *Service) Reject(ctx context.Context, memberID primitive.ObjectID) error {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if m.AccountStatus != models.StatusPending {
		return ErrNotPending
	}

	n, err := s.members.Delete(ctx, memberID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}

	s.logger.Info("member rejected",
		zap.String("member_id", memberID.Hex()),
		zap.String("email", m.Email))
	return nil
}

func (s *Service) categoryFor(faculty bool, branch string, joinYear *string) (string, error) {
	if faculty {
		return saeid.FacultyCategory, nil
	}
	if joinYear == nil {
		return "", ErrMissingJoinYear
	}
	return saeid.StudentCategory(branch, *joinYear)
}

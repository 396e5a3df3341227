// Package register implements the attendance flow: check-in, check-out
// with last-person-out detection, and the explicit closure confirmation
// that follows it.
package register

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	attendancestore "github.com/saecell/labportal/internal/app/store/attendance"
	labstatusstore "github.com/saecell/labportal/internal/app/store/labstatus"
	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/txn"
	"github.com/saecell/labportal/internal/domain/models"
)

var (
	// ErrNotApproved means the member cannot use the register yet.
	ErrNotApproved = errors.New("member is not approved")
	// ErrAlreadyCheckedIn means the member already has an open visit.
	ErrAlreadyCheckedIn = errors.New("member is already checked in")
	// ErrNoOpenRecord means checkout found nothing to close. The
	// member's stale presence state is repaired before this is returned.
	ErrNoOpenRecord = errors.New("no open attendance record to check out")
	// ErrLabNotEmpty rejects a closure confirmation while members are
	// still present.
	ErrLabNotEmpty = errors.New("lab still has members present")
)

// Service coordinates the member, attendance and lab status collections.
// Multi-document steps run inside a transaction where the deployment
// supports one; the per-document operators are chosen so the flow stays
// correct (at most one open visit, no lost presence updates) even on a
// standalone server.
type Service struct {
	members    *memberstore.Store
	attendance *attendancestore.Store
	labStatus  *labstatusstore.Store
	client     *mongo.Client
	logger     *zap.Logger
}

func NewService(client *mongo.Client, members *memberstore.Store, attendance *attendancestore.Store, labStatus *labstatusstore.Store, logger *zap.Logger) *Service {
	return &Service{
		members:    members,
		attendance: attendance,
		labStatus:  labStatus,
		client:     client,
		logger:     logger,
	}
}

// CheckInResult reports the state after a successful check-in.
type CheckInResult struct {
	Record    models.AttendanceRecord
	Occupancy int
}

// CheckOutResult reports the state after a successful check-out.
// LastPersonOut is true when this departure emptied the lab; the caller
// should then prompt for ConfirmClosure.
type CheckOutResult struct {
	Record        *models.AttendanceRecord
	Occupancy     int
	LastPersonOut bool
}

// CheckIn opens a visit for the member, adds them to the present set
// and marks the lab open.
func (s *Service) CheckIn(ctx context.Context, memberID primitive.ObjectID) (*CheckInResult, error) {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !m.IsApproved() {
		return nil, ErrNotApproved
	}

	var result CheckInResult
	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		rec, err := s.attendance.CreateOpen(ctx, m, time.Now())
		if err != nil {
			if errors.Is(err, attendancestore.ErrAlreadyOpen) {
				return ErrAlreadyCheckedIn
			}
			return err
		}
		status, err := s.labStatus.AddPresent(ctx, memberID.Hex())
		if err != nil {
			return err
		}
		if err := s.members.SetCheckedIn(ctx, memberID, true); err != nil {
			return err
		}
		result = CheckInResult{Record: rec, Occupancy: status.Occupancy()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member checked in",
		zap.String("member_id", memberID.Hex()),
		zap.Int("occupancy", result.Occupancy))
	return &result, nil
}

// CheckOut closes the member's open visit and removes them from the
// present set. When no open visit exists (stale state from a crash or a
// manual edit), the member's presence is repaired and ErrNoOpenRecord
// is returned so the caller can warn instead of silently succeeding.
func (s *Service) CheckOut(ctx context.Context, memberID primitive.ObjectID) (*CheckOutResult, error) {
	var result CheckOutResult
	err := txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		rec, err := s.attendance.CloseOpen(ctx, memberID, time.Now())
		if err != nil {
			return err
		}
		status, err := s.labStatus.RemovePresent(ctx, memberID.Hex())
		if err != nil {
			return err
		}
		if err := s.members.SetCheckedIn(ctx, memberID, false); err != nil {
			return err
		}
		result = CheckOutResult{
			Record:        rec,
			Occupancy:     status.Occupancy(),
			LastPersonOut: status.IsLabOpen && status.Occupancy() == 0,
		}
		return nil
	})
	if errors.Is(err, attendancestore.ErrNoOpenRecord) {
		return nil, s.healStaleCheckout(ctx, memberID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("member checked out",
		zap.String("member_id", memberID.Hex()),
		zap.Int("occupancy", result.Occupancy),
		zap.Bool("last_person_out", result.LastPersonOut))
	return &result, nil
}

// healStaleCheckout clears presence state that claims the member is in
// the lab when no open visit backs it up.
func (s *Service) healStaleCheckout(ctx context.Context, memberID primitive.ObjectID) error {
	s.logger.Warn("checkout without open record; repairing presence state",
		zap.String("member_id", memberID.Hex()))

	if err := s.members.SetCheckedIn(ctx, memberID, false); err != nil {
		return err
	}
	if _, err := s.labStatus.RemovePresent(ctx, memberID.Hex()); err != nil {
		return err
	}
	return ErrNoOpenRecord
}

// ConfirmClosure marks the lab closed. Only valid once the present set
// is empty; the register never closes the lab implicitly because the
// last member out must complete the physical checklist first.
func (s *Service) ConfirmClosure(ctx context.Context, memberID primitive.ObjectID) error {
	status, err := s.labStatus.Get(ctx)
	if err != nil {
		return err
	}
	if status.Occupancy() > 0 {
		return ErrLabNotEmpty
	}
	if err := s.labStatus.SetOpen(ctx, false); err != nil {
		return err
	}

	s.logger.Info("lab closed",
		zap.String("confirmed_by", memberID.Hex()))
	return nil
}

// Status returns the current lab status for the register views.
func (s *Service) Status(ctx context.Context) (*models.LabStatus, error) {
	return s.labStatus.Get(ctx)
}

// PresentMembers resolves the present set to member documents for the
// occupancy panel. Entries that no longer resolve are dropped.
func (s *Service) PresentMembers(ctx context.Context) ([]models.Member, error) {
	status, err := s.labStatus.Get(ctx)
	if err != nil {
		return nil, err
	}

	members := make([]models.Member, 0, len(status.Present))
	for _, hex := range status.Present {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			s.logger.Warn("malformed id in present set", zap.String("entry", hex))
			continue
		}
		m, err := s.members.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return nil, err
		}
		members = append(members, *m)
	}
	return members, nil
}

package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/saecell/labportal/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context for
// handler tests that read chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures creates test data directly in the collections, bypassing
// store validation so tests can set up exactly the state they need.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreatePendingStudent inserts a student registration awaiting approval.
func (f *Fixtures) CreatePendingStudent(ctx context.Context, fullName, email, branch, joinYear string) models.Member {
	f.t.Helper()

	yearFull := "20" + joinYear
	now := time.Now().UTC()
	m := models.Member{
		ID:            primitive.NewObjectID(),
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         email,
		Branch:        branch,
		JoinYear:      &joinYear,
		JoinYearFull:  &yearFull,
		Role:          "member",
		DisplayTitle:  "Student",
		AccountStatus: models.StatusPending,
		AuthMethod:    "internal",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insertMember(ctx, m)
	return m
}

// CreateApprovedStudent inserts a student who already holds an issued ID.
func (f *Fixtures) CreateApprovedStudent(ctx context.Context, fullName, email, branch, joinYear, saeID string) models.Member {
	f.t.Helper()

	yearFull := "20" + joinYear
	now := time.Now().UTC()
	m := models.Member{
		ID:            primitive.NewObjectID(),
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         email,
		Branch:        branch,
		JoinYear:      &joinYear,
		JoinYearFull:  &yearFull,
		Role:          "member",
		DisplayTitle:  "Student",
		AccountStatus: models.StatusApproved,
		SAEID:         &saeID,
		AuthMethod:    "internal",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insertMember(ctx, m)
	return m
}

// CreatePendingFaculty inserts a faculty registration awaiting approval.
// Faculty carry the admin role from signup and no join year.
func (f *Fixtures) CreatePendingFaculty(ctx context.Context, fullName, email string) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:            primitive.NewObjectID(),
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         email,
		Role:          "admin",
		DisplayTitle:  "Faculty",
		AccountStatus: models.StatusPending,
		AuthMethod:    "internal",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insertMember(ctx, m)
	return m
}

// CreateFacultyAdmin inserts an approved faculty member with the admin role.
func (f *Fixtures) CreateFacultyAdmin(ctx context.Context, fullName, email, saeID string) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:            primitive.NewObjectID(),
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         email,
		Role:          "admin",
		DisplayTitle:  "Faculty",
		AccountStatus: models.StatusApproved,
		SAEID:         &saeID,
		AuthMethod:    "internal",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insertMember(ctx, m)
	return m
}

func (f *Fixtures) insertMember(ctx context.Context, m models.Member) {
	f.t.Helper()
	if _, err := f.db.Collection("users").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
}

// CreateOpenVisit inserts an attendance record with no checkout for the
// member, dated from checkIn.
func (f *Fixtures) CreateOpenVisit(ctx context.Context, m models.Member, checkIn time.Time) models.AttendanceRecord {
	f.t.Helper()

	rec := models.AttendanceRecord{
		ID:          primitive.NewObjectID(),
		MemberID:    m.ID,
		MemberName:  m.FullName,
		SAEID:       m.SAEID,
		CheckInTime: checkIn,
		Date:        models.DayKey(checkIn),
	}
	if _, err := f.db.Collection("attendance").InsertOne(ctx, rec); err != nil {
		f.t.Fatalf("failed to create open visit: %v", err)
	}
	return rec
}

// SeedLabStatus writes the singleton lab status document.
func (f *Fixtures) SeedLabStatus(ctx context.Context, open bool, presentIDs ...string) models.LabStatus {
	f.t.Helper()

	if presentIDs == nil {
		presentIDs = []string{}
	}
	status := models.LabStatus{
		ID:           models.LabStatusKey,
		IsLabOpen:    open,
		Present:      presentIDs,
		LastActivity: time.Now().UTC(),
	}
	if _, err := f.db.Collection("lab_status").InsertOne(ctx, status); err != nil {
		f.t.Fatalf("failed to seed lab status: %v", err)
	}
	return status
}

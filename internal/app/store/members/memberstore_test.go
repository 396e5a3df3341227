package memberstore_test

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/indexes"
	"github.com/saecell/labportal/internal/domain/models"
	"github.com/saecell/labportal/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestStore_Create_Student(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	created, err := store.Create(ctx, models.Member{
		FullName:   "  Ada   Lovelace ",
		Email:      "Ada@Example.COM",
		Phone:      "98765 43210",
		Branch:     "cs",
		JoinYear:   strPtr("25"),
		Role:       "member",
		AuthMethod: "internal",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Ada Lovelace" {
		t.Errorf("FullName = %q, want whitespace collapsed", created.FullName)
	}
	if created.FullNameCI == "" {
		t.Error("expected FullNameCI to be set")
	}
	if created.Email != "ada@example.com" {
		t.Errorf("Email = %q, want folded", created.Email)
	}
	if created.Branch != "CS" {
		t.Errorf("Branch = %q, want upper-cased", created.Branch)
	}
	if created.AccountStatus != models.StatusPending {
		t.Errorf("AccountStatus = %q, want pending", created.AccountStatus)
	}
	if created.SAEID != nil {
		t.Error("new registrations must not carry an issued ID")
	}
	if created.IsCheckedIn {
		t.Error("new registrations must not be checked in")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_RejectsUnknownBranchForStudents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	_, err := store.Create(ctx, models.Member{
		FullName: "Typo Person",
		Email:    "typo@example.com",
		Branch:   "AI",
		JoinYear: strPtr("25"),
		Role:     "member",
	})
	if err == nil {
		t.Fatal("expected unknown branch to be rejected")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	if err := indexes.EnsureAll(testutil.TestContext(t), db); err != nil {
		t.Fatalf("ensuring indexes: %v", err)
	}
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	first := models.Member{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Branch:   "CS",
		JoinYear: strPtr("25"),
		Role:     "member",
	}
	if _, err := store.Create(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := first
	second.Email = "ADA@example.com"
	if _, err := store.Create(ctx, second); !errors.Is(err, memberstore.ErrDuplicateEmail) {
		t.Errorf("Create error = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_GetByEmail_Folds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")

	got, err := store.GetByEmail(ctx, " Ada@Example.com ")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.FullName != "Ada Lovelace" {
		t.Errorf("got %q", got.FullName)
	}

	if _, err := store.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing account error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_ListPending_OldestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	fx.CreatePendingStudent(ctx, "First In", "first@example.com", "CS", "25")
	fx.CreatePendingStudent(ctx, "Second In", "second@example.com", "ME", "25")
	fx.CreateApprovedStudent(ctx, "Not Queued", "done@example.com", "CS", "24", "SAECS24001")

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].FullName != "First In" {
		t.Errorf("queue order wrong: first is %q", pending[0].FullName)
	}
}

func TestStore_SetApproved_OnlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	m := fx.CreatePendingStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25")

	if err := store.SetApproved(ctx, m.ID, "SAECS25001"); err != nil {
		t.Fatalf("SetApproved failed: %v", err)
	}
	if err := store.SetApproved(ctx, m.ID, "SAECS25002"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("second SetApproved error = %v, want ErrNoDocuments", err)
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SAEID == nil || *got.SAEID != "SAECS25001" {
		t.Errorf("sae_id = %v, want the first issued ID", got.SAEID)
	}
}

func TestStore_UpdateProfile_LeavesIdentityAlone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")

	err := store.UpdateProfile(ctx, m.ID, memberstore.ProfileUpdate{
		FullName:   "Ada King",
		Phone:      "(987) 654-3210",
		Semester:   "5",
		Team:       "Powertrain",
		BloodGroup: "O+",
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.FullName != "Ada King" || got.Phone != "9876543210" {
		t.Errorf("profile fields = %q %q", got.FullName, got.Phone)
	}
	if got.Email != "ada@example.com" || got.SAEID == nil || got.Branch != "CS" {
		t.Error("identity fields must not change through profile edits")
	}
}

func TestStore_SetRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	m := fx.CreateApprovedStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25", "SAECS25001")

	if err := store.SetRole(ctx, m.ID, "admin"); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if err := store.SetRole(ctx, m.ID, "owner"); err == nil {
		t.Error("expected invalid role to be rejected")
	}
	if err := store.SetRole(ctx, primitive.NewObjectID(), "admin"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing member error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	m := fx.CreatePendingStudent(ctx, "Ada Lovelace", "ada@example.com", "CS", "25")

	n, err := store.Delete(ctx, m.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	n, err = store.Delete(ctx, m.ID)
	if err != nil || n != 0 {
		t.Errorf("second delete = (%d, %v), want (0, nil)", n, err)
	}
}

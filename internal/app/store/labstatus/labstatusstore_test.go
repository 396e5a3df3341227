package labstatusstore_test

import (
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	labstatusstore "github.com/saecell/labportal/internal/app/store/labstatus"
	"github.com/saecell/labportal/internal/testutil"
)

func TestStore_Get_MaterializesClosedLab(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := labstatusstore.New(db)
	ctx := testutil.TestContext(t)

	status, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if status.IsLabOpen {
		t.Error("fresh lab should be closed")
	}
	if status.Occupancy() != 0 {
		t.Errorf("fresh lab occupancy = %d", status.Occupancy())
	}
}

func TestStore_AddRemovePresent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := labstatusstore.New(db)
	ctx := testutil.TestContext(t)

	a := primitive.NewObjectID().Hex()
	b := primitive.NewObjectID().Hex()

	status, err := store.AddPresent(ctx, a)
	if err != nil {
		t.Fatalf("AddPresent failed: %v", err)
	}
	if !status.IsLabOpen || status.Occupancy() != 1 {
		t.Errorf("after first add: open=%v occupancy=%d", status.IsLabOpen, status.Occupancy())
	}

	// Adding the same member twice keeps the set a set.
	status, err = store.AddPresent(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if status.Occupancy() != 1 {
		t.Errorf("duplicate add: occupancy = %d, want 1", status.Occupancy())
	}

	if _, err := store.AddPresent(ctx, b); err != nil {
		t.Fatal(err)
	}

	status, err = store.RemovePresent(ctx, a)
	if err != nil {
		t.Fatalf("RemovePresent failed: %v", err)
	}
	if status.Occupancy() != 1 {
		t.Errorf("after remove: occupancy = %d, want 1", status.Occupancy())
	}
	// Flag never flips implicitly.
	if !status.IsLabOpen {
		t.Error("lab should remain open after a non-final departure")
	}

	status, err = store.RemovePresent(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	if status.Occupancy() != 0 {
		t.Errorf("after final remove: occupancy = %d, want 0", status.Occupancy())
	}
	if !status.IsLabOpen {
		t.Error("closure is explicit; the empty set alone must not close the lab")
	}

	if err := store.SetOpen(ctx, false); err != nil {
		t.Fatalf("SetOpen failed: %v", err)
	}
	got, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsLabOpen {
		t.Error("lab should be closed after SetOpen(false)")
	}
}

func TestStore_ConcurrentRemoves_ExactlyOneSeesEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := labstatusstore.New(db)
	ctx := testutil.TestContext(t)

	const n = 6
	ids := make([]string, n)
	for i := range ids {
		ids[i] = primitive.NewObjectID().Hex()
		if _, err := store.AddPresent(ctx, ids[i]); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	empties := make(chan string, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			status, err := store.RemovePresent(ctx, id)
			if err != nil {
				t.Errorf("RemovePresent(%s) failed: %v", id, err)
				return
			}
			if status.Occupancy() == 0 {
				empties <- id
			}
		}(id)
	}
	wg.Wait()
	close(empties)

	var count int
	for range empties {
		count++
	}
	if count != 1 {
		t.Errorf("%d departures saw an empty lab, want exactly 1", count)
	}
}

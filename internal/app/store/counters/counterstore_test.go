package counterstore_test

import (
	"sync"
	"testing"

	counterstore "github.com/saecell/labportal/internal/app/store/counters"
	"github.com/saecell/labportal/internal/testutil"
)

func TestStore_Next_StartsAtOne(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := counterstore.New(db)
	ctx := testutil.TestContext(t)

	n, err := store.Next(ctx, "CS25")
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if n != 1 {
		t.Errorf("first serial = %d, want 1", n)
	}

	n, err = store.Next(ctx, "CS25")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("second serial = %d, want 2", n)
	}

	// Categories are independent.
	n, err = store.Next(ctx, "FAC")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("other category serial = %d, want 1", n)
	}
}

func TestStore_Current(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := counterstore.New(db)
	ctx := testutil.TestContext(t)

	n, err := store.Current(ctx, "ME25")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if n != 0 {
		t.Errorf("unissued category = %d, want 0", n)
	}

	if _, err := store.Next(ctx, "ME25"); err != nil {
		t.Fatal(err)
	}
	n, err = store.Current(ctx, "ME25")
	if err != nil || n != 1 {
		t.Errorf("Current after one issue = (%d, %v), want (1, nil)", n, err)
	}
}

func TestStore_Next_ConcurrentNoDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := counterstore.New(db)
	ctx := testutil.TestContext(t)

	const n = 20
	var wg sync.WaitGroup
	serials := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Next(ctx, "CS25")
			if err != nil {
				t.Errorf("Next failed: %v", err)
				return
			}
			serials <- got
		}()
	}
	wg.Wait()
	close(serials)

	seen := make(map[int64]bool, n)
	for s := range serials {
		if seen[s] {
			t.Errorf("serial %d issued twice", s)
		}
		seen[s] = true
	}
	if len(seen) != n {
		t.Errorf("issued %d distinct serials, want %d", len(seen), n)
	}
}

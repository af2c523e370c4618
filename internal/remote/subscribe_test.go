package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/justsplit/internal/idset"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/reducer"
	"github.com/mmynk/justsplit/internal/storage"
)

// next waits for a replacement matching cond, skipping others.
func next(t *testing.T, ch <-chan Replacement, cond func(Replacement) bool) Replacement {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				t.Fatal("subscription channel closed")
			}
			if cond(r) {
				return r
			}
		case <-timeout:
			t.Fatal("timed out waiting for replacement")
		}
	}
}

// initial collects the first replacement of every collection.
func initial(t *testing.T, ch <-chan Replacement) map[models.Collection]reducer.Action {
	t.Helper()
	got := make(map[models.Collection]reducer.Action)
	for len(got) < len(models.Collections) {
		r := next(t, ch, func(r Replacement) bool {
			_, seen := got[r.Collection]
			return !seen
		})
		got[r.Collection] = r.Action
	}
	return got
}

func TestSubscribe(t *testing.T) {
	db := newTestDB(t)
	a := New(db, nil)
	ctx := context.Background()

	alice, _ := a.AddUser(ctx, models.User{Name: "Alice"})
	bob, _ := a.AddUser(ctx, models.User{Name: "Bob"})
	mine, _ := a.AddExpense(ctx, models.Expense{Description: "mine", PaidBy: alice, Participants: []string{alice, bob}})
	_, _ = a.AddExpense(ctx, models.Expense{Description: "theirs", PaidBy: bob, Participants: []string{bob}})
	_, _ = a.AddEvent(ctx, models.Event{Name: "Trip", Members: []string{alice}})
	_, _ = a.AddEvent(ctx, models.Event{Name: "Other", Members: []string{bob}})
	paid, _ := a.AddSettlement(ctx, models.Settlement{FromUser: alice, ToUser: bob, Amount: 5})
	received, _ := a.AddSettlement(ctx, models.Settlement{FromUser: bob, ToUser: alice, Amount: 7})
	_, _ = a.AddSettlement(ctx, models.Settlement{FromUser: bob, ToUser: "carol", Amount: 9})
	groupID, _ := a.AddGroup(ctx, models.Group{Name: "Flat", Members: idset.Of(alice)})

	sub, err := a.Subscribe(ctx, alice, 7)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	got := initial(t, sub.C)

	if us := got[models.CollectionUsers].(reducer.SetUsers).Users; len(us) != 2 {
		t.Errorf("users = %d, want 2 (the whole directory)", len(us))
	}

	exps := got[models.CollectionExpenses].(reducer.SetExpenses).Expenses
	if len(exps) != 1 || exps[0].ID != mine || exps[0].Description != "mine" {
		t.Errorf("expenses = %+v, want only %s", exps, mine)
	}

	evs := got[models.CollectionEvents].(reducer.SetEvents).Events
	if len(evs) != 1 || evs[0].Name != "Trip" {
		t.Errorf("events = %+v, want Trip only", evs)
	}

	sts := got[models.CollectionSettlements].(reducer.SetSettlements).Settlements
	ids := map[string]bool{}
	for _, s := range sts {
		ids[s.ID] = true
	}
	if len(sts) != 2 || !ids[paid] || !ids[received] {
		t.Errorf("settlements = %+v, want %s and %s", sts, paid, received)
	}

	grs := got[models.CollectionGroups].(reducer.SetGroups).Groups
	if len(grs) != 1 || grs[0].ID != groupID {
		t.Fatalf("groups = %+v, want %s", grs, groupID)
	}
	if _, err := time.Parse(time.RFC3339Nano, grs[0].CreatedAt); err != nil {
		t.Errorf("CreatedAt %q is not an ISO-8601 string: %v", grs[0].CreatedAt, err)
	}

	t.Run("replacements carry the generation", func(t *testing.T) {
		if _, err := a.AddExpense(ctx, models.Expense{Description: "new", Participants: []string{alice}}); err != nil {
			t.Fatalf("AddExpense() error = %v", err)
		}
		r := next(t, sub.C, func(r Replacement) bool {
			set, ok := r.Action.(reducer.SetExpenses)
			return ok && len(set.Expenses) == 2
		})
		if r.Generation != 7 {
			t.Errorf("Generation = %d, want 7", r.Generation)
		}
	})

	t.Run("close ends the channel", func(t *testing.T) {
		sub.Close()
		sub.Close()
		for range sub.C {
		}
	})
}

func TestSubscribeRequiresUser(t *testing.T) {
	a := New(newTestDB(t), nil)
	if _, err := a.Subscribe(context.Background(), "", 1); !errors.Is(err, ErrNoUser) {
		t.Errorf("Subscribe(\"\") error = %v, want ErrNoUser", err)
	}
}

// failingStore breaks live queries on one collection.
type failingStore struct {
	storage.DocumentStore
	collection string
}

func (f *failingStore) Listen(ctx context.Context, q storage.Query) <-chan storage.Snapshot {
	if q.Collection != f.collection {
		return f.DocumentStore.Listen(ctx, q)
	}
	ch := make(chan storage.Snapshot, 1)
	ch <- storage.Snapshot{Err: errors.New("permission denied")}
	close(ch)
	return ch
}

func TestSubscriptionSurvivesListenerErrors(t *testing.T) {
	db := &failingStore{DocumentStore: newTestDB(t), collection: groups}
	a := New(db, nil)
	ctx := context.Background()

	sub, err := a.Subscribe(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	seen := map[models.Collection]bool{}
	for len(seen) < len(models.Collections)-1 {
		r := next(t, sub.C, func(Replacement) bool { return true })
		if r.Collection == models.CollectionGroups {
			t.Fatal("received groups although its query failed")
		}
		seen[r.Collection] = true
	}

	if _, err := a.AddExpense(ctx, models.Expense{Description: "late", Participants: []string{"u1"}}); err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	next(t, sub.C, func(r Replacement) bool {
		set, ok := r.Action.(reducer.SetExpenses)
		return ok && len(set.Expenses) == 1
	})
}

func TestMergeDocs(t *testing.T) {
	a := []storage.Document{{ID: "1"}, {ID: "2"}}
	b := []storage.Document{{ID: "2"}, {ID: "3"}}

	got := mergeDocs(a, b)
	if len(got) != 3 || got[0].ID != "1" || got[2].ID != "3" {
		t.Errorf("mergeDocs() = %+v", got)
	}
}

package provider

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/justsplit/internal/auth"
	"github.com/mmynk/justsplit/internal/idset"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/reducer"
	"github.com/mmynk/justsplit/internal/remote"
	"github.com/mmynk/justsplit/internal/storage"
	"github.com/mmynk/justsplit/internal/storage/sqlite"
	"github.com/mmynk/justsplit/internal/store"
)

func newOfflineProvider(t *testing.T, profile *models.User) *Provider {
	t.Helper()
	var a AuthState
	if profile != nil {
		a.CurrentUser = &auth.Account{ID: profile.ID, Email: profile.Email, DisplayName: profile.Name}
		a.Profile = profile
	}
	p, err := New(context.Background(), Options{Store: store.New(models.State{}, nil), Auth: a})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Error("New() without store should fail")
	}
}

func TestOfflineHelpers(t *testing.T) {
	ctx := context.Background()
	p := newOfflineProvider(t, &models.User{ID: "me", Name: "Me", PreferredCurrency: "EUR"})

	if !p.Offline() {
		t.Fatal("provider without remote should be offline")
	}
	if cur := p.Snapshot().CurrentUser; cur == nil || cur.ID != "me" {
		t.Fatalf("CurrentUser = %+v, want me", cur)
	}
	if _, ok := p.Snapshot().User("me"); !ok {
		t.Fatal("offline profile not added to users")
	}

	friend, err := p.AddUser(ctx, models.User{Name: "Friend"})
	if err != nil || friend == "" {
		t.Fatalf("AddUser() = %q, %v", friend, err)
	}

	t.Run("references are validated first", func(t *testing.T) {
		tests := []struct {
			name    string
			call    func() error
			wantErr error
		}{
			{"expense with unknown event", func() error {
				_, err := p.AddExpense(ctx, models.Expense{EventID: "nope"})
				return err
			}, ErrEventNotFound},
			{"expense with unknown group", func() error {
				_, err := p.AddExpense(ctx, models.Expense{GroupID: "nope"})
				return err
			}, ErrGroupNotFound},
			{"update unknown expense", func() error {
				return p.UpdateExpense(ctx, models.Expense{ID: "nope"})
			}, ErrExpenseNotFound},
			{"delete unknown event", func() error {
				return p.DeleteEvent(ctx, "nope")
			}, ErrEventNotFound},
			{"settlement with unknown user", func() error {
				_, err := p.AddSettlement(ctx, models.Settlement{FromUser: "me", ToUser: "nope"})
				return err
			}, ErrUserNotFound},
			{"member of unknown group", func() error {
				return p.AddMemberToGroup(ctx, "nope", friend)
			}, ErrGroupNotFound},
			{"friend request to unknown user", func() error {
				return p.SendFriendRequest(ctx, "me", "nope")
			}, ErrUserNotFound},
			{"update unknown user", func() error {
				return p.UpdateUser(ctx, "nope", models.UserPatch{})
			}, ErrUserNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.call(); !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("expense lifecycle", func(t *testing.T) {
		eventID, err := p.AddEvent(ctx, models.Event{Name: "Trip", Members: []string{"me", friend}})
		if err != nil {
			t.Fatalf("AddEvent() error = %v", err)
		}
		expenseID, err := p.AddExpense(ctx, models.Expense{
			Description:  "Dinner",
			Amount:       40,
			PaidBy:       "me",
			Participants: []string{"me", friend},
			EventID:      eventID,
		})
		if err != nil {
			t.Fatalf("AddExpense() error = %v", err)
		}

		s := p.Snapshot()
		e, _ := s.Expense(expenseID)
		if e.Currency != "EUR" {
			t.Errorf("Currency = %q, want the preferred EUR", e.Currency)
		}
		if ev, _ := s.Event(eventID); !ev.ExpenseIDs.Has(expenseID) {
			t.Error("event does not list the expense")
		}

		res, err := p.Balances("")
		if err != nil {
			t.Fatalf("Balances() error = %v", err)
		}
		if len(res.Debts) != 1 || res.Debts[0].From != friend || res.Debts[0].Amount != 20 {
			t.Errorf("Debts = %+v, want friend owes 20", res.Debts)
		}

		if _, err := p.AddSettlement(ctx, models.Settlement{FromUser: friend, ToUser: "me", Amount: 20, ExpenseIDs: []string{expenseID}}); err != nil {
			t.Fatalf("AddSettlement() error = %v", err)
		}
		if e, _ := p.Snapshot().Expense(expenseID); !e.Settled {
			t.Error("expense not settled")
		}
		if res, _ := p.Balances(""); len(res.Debts) != 0 {
			t.Errorf("Debts after settlement = %+v", res.Debts)
		}

		if err := p.DeleteEvent(ctx, eventID); err != nil {
			t.Fatalf("DeleteEvent() error = %v", err)
		}
		if e, _ := p.Snapshot().Expense(expenseID); e.EventID != "" {
			t.Error("expense still linked to deleted event")
		}
	})

	t.Run("groups", func(t *testing.T) {
		groupID, err := p.AddGroup(ctx, models.Group{Name: "Flat"})
		if err != nil {
			t.Fatalf("AddGroup() error = %v", err)
		}
		g, _ := p.Snapshot().Group(groupID)
		if !g.Members.Has("me") {
			t.Error("creator not a member")
		}

		for i := 0; i < 2; i++ {
			if err := p.AddMemberToGroup(ctx, groupID, friend); err != nil {
				t.Fatalf("AddMemberToGroup() error = %v", err)
			}
		}
		g, _ = p.Snapshot().Group(groupID)
		if g.Members.Len() != 2 {
			t.Errorf("Members = %v, want me and friend once", g.Members.IDs())
		}

		expenseID, _ := p.AddExpense(ctx, models.Expense{Amount: 10, PaidBy: friend, Participants: []string{"me", friend}, GroupID: groupID})
		_, _ = p.AddExpense(ctx, models.Expense{Amount: 99, PaidBy: friend, Participants: []string{"me"}})
		res, err := p.Balances(groupID)
		if err != nil {
			t.Fatalf("Balances(group) error = %v", err)
		}
		if len(res.Debts) != 1 || res.Debts[0].Amount != 5 {
			t.Errorf("group Debts = %+v, want me owes 5", res.Debts)
		}
		if _, err := p.Balances("nope"); !errors.Is(err, ErrGroupNotFound) {
			t.Errorf("Balances(unknown) error = %v", err)
		}

		if err := p.DeleteGroup(ctx, groupID); err != nil {
			t.Fatalf("DeleteGroup() error = %v", err)
		}
		if e, _ := p.Snapshot().Expense(expenseID); e.GroupID != "" {
			t.Error("expense still references deleted group")
		}
	})

	t.Run("friends", func(t *testing.T) {
		if err := p.SendFriendRequest(ctx, "me", friend); err != nil {
			t.Fatalf("SendFriendRequest() error = %v", err)
		}
		if err := p.AcceptFriendRequest(ctx, "me", friend); err != nil {
			t.Fatalf("AcceptFriendRequest() error = %v", err)
		}
		if !p.Snapshot().CurrentUser.Friends.Has(friend) {
			t.Error("current user not updated")
		}
	})
}

func TestDispatchRefusesReplacements(t *testing.T) {
	p := newOfflineProvider(t, nil)

	if _, err := p.Dispatch(reducer.SetUsers{}); !errors.Is(err, ErrReplacementAction) {
		t.Errorf("Dispatch(SetUsers) error = %v, want ErrReplacementAction", err)
	}
	s, err := p.Dispatch(reducer.AddUser{User: models.User{Name: "Alice"}})
	if err != nil || len(s.Users) != 1 {
		t.Errorf("Dispatch(AddUser) = %+v, %v", s, err)
	}
}

func TestPreferredCurrency(t *testing.T) {
	if got := newOfflineProvider(t, nil).PreferredCurrency(); got != DefaultCurrency {
		t.Errorf("signed out PreferredCurrency() = %q, want %q", got, DefaultCurrency)
	}

	p, _ := New(context.Background(), Options{Store: store.New(models.State{}, nil), DefaultCurrency: "GBP"})
	if got := p.PreferredCurrency(); got != "GBP" {
		t.Errorf("configured PreferredCurrency() = %q, want GBP", got)
	}

	if got := newOfflineProvider(t, &models.User{ID: "u", PreferredCurrency: "JPY"}).PreferredCurrency(); got != "JPY" {
		t.Errorf("user PreferredCurrency() = %q, want JPY", got)
	}
}

// waitForState waits until cond holds for the provider's state.
func waitForState(t *testing.T, p *Provider, cond func(models.State) bool) models.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := p.Watch(ctx)
	for {
		if s := p.Snapshot(); cond(s) {
			return s
		}
		select {
		case <-changes:
		case <-ctx.Done():
			t.Fatalf("timed out waiting for state; last = %+v", p.Snapshot())
		}
	}
}

func TestRemoteBackedProvider(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	adapter := remote.New(db, nil)

	alice := models.User{ID: "alice", Name: "Alice"}
	bob := models.User{ID: "bob", Name: "Bob"}
	for _, u := range []models.User{alice, bob} {
		if err := adapter.SetUser(ctx, u); err != nil {
			t.Fatalf("SetUser() error = %v", err)
		}
	}
	bobExpense, _ := adapter.AddExpense(ctx, models.Expense{Description: "bob only", PaidBy: "bob", Participants: []string{"bob"}})

	p, err := New(ctx, Options{
		Store:  store.New(models.State{}, nil),
		Remote: adapter,
		Auth:   AuthState{CurrentUser: &auth.Account{ID: "alice"}, Profile: &alice},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(p.Close)

	waitForState(t, p, func(s models.State) bool { return s.IsDataLoaded })

	expenseID, err := p.AddExpense(ctx, models.Expense{Description: "Lunch", Amount: 25.5, PaidBy: "alice", Participants: []string{"alice"}})
	if err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	waitForState(t, p, func(s models.State) bool {
		_, ok := s.Expense(expenseID)
		return ok
	})

	t.Run("invalid reference writes nothing", func(t *testing.T) {
		_, err := p.AddExpense(ctx, models.Expense{Description: "Ghost", GroupID: "nope", Participants: []string{"alice"}})
		if !errors.Is(err, ErrGroupNotFound) {
			t.Fatalf("AddExpense() error = %v, want ErrGroupNotFound", err)
		}
		docs, _ := db.Find(ctx, storage.Collection("expenses").Where("description", storage.OpEqual, "Ghost"))
		if len(docs) != 0 {
			t.Error("expense written despite failed validation")
		}
	})

	t.Run("friend request reaches current user", func(t *testing.T) {
		if err := p.SendFriendRequest(ctx, "alice", "bob"); err != nil {
			t.Fatalf("SendFriendRequest() error = %v", err)
		}
		waitForState(t, p, func(s models.State) bool {
			return s.CurrentUser != nil && s.CurrentUser.FriendRequestsSent.Has("bob")
		})
	})

	t.Run("switching user clears state", func(t *testing.T) {
		err := p.SetAuth(ctx, AuthState{CurrentUser: &auth.Account{ID: "bob"}, Profile: &bob})
		if err != nil {
			t.Fatalf("SetAuth() error = %v", err)
		}
		s := waitForState(t, p, func(s models.State) bool { return s.IsDataLoaded })
		if _, ok := s.Expense(expenseID); ok {
			t.Error("alice-only data visible after switching user")
		}
		if _, ok := s.Expense(bobExpense); !ok {
			t.Error("bob's expense missing")
		}
		if s.CurrentUserID() != "bob" {
			t.Errorf("CurrentUserID() = %q, want bob", s.CurrentUserID())
		}
	})

	t.Run("sign out", func(t *testing.T) {
		if err := p.SetAuth(ctx, AuthState{}); err != nil {
			t.Fatalf("SetAuth() error = %v", err)
		}
		s := p.Snapshot()
		if s.CurrentUser != nil || len(s.Expenses) != 0 {
			t.Errorf("state not cleared on sign out: %+v", s)
		}
	})
}

func TestPool(t *testing.T) {
	pool := NewPool(PoolOptions{DefaultCurrency: "EUR"})
	ctx := context.Background()
	acc := &auth.Account{ID: "a1", DisplayName: "Alice"}

	p1, err := pool.Get(ctx, acc)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	p2, _ := pool.Get(ctx, acc)
	if p1 != p2 {
		t.Error("Get() returned a new provider for the same account")
	}
	if cur := p1.Snapshot().CurrentUser; cur == nil || cur.Name != "Alice" {
		t.Errorf("CurrentUser = %+v", cur)
	}
	if pool.Len() != 1 {
		t.Errorf("Len() = %d, want 1", pool.Len())
	}

	pool.Release("a1")
	if pool.Len() != 0 {
		t.Errorf("Len() after Release = %d", pool.Len())
	}
	if err := p1.SetAuth(ctx, AuthState{}); err == nil {
		t.Error("released provider still usable")
	}

	_, _ = pool.Get(ctx, &auth.Account{ID: "b1"})
	pool.Close()
	if pool.Len() != 0 {
		t.Error("Close() kept providers")
	}
}

func TestGroupSetsStayUnique(t *testing.T) {
	p := newOfflineProvider(t, &models.User{ID: "me"})
	groupID, _ := p.AddGroup(context.Background(), models.Group{Members: idset.Of("me", "me")})
	g, _ := p.Snapshot().Group(groupID)
	if g.Members.Len() != 1 {
		t.Errorf("Members = %v", g.Members.IDs())
	}
}

// checkFriendLists fails when a friendship is recorded on one side only or
// a friend is still a pending request target.
func checkFriendLists(t *testing.T, s models.State) {
	t.Helper()
	for _, u := range s.Users {
		if u.Friends.Has(u.ID) || u.FriendRequestsSent.Has(u.ID) || u.FriendRequestsReceived.Has(u.ID) {
			t.Errorf("%s is related to itself: %+v", u.ID, u)
		}
		for _, f := range u.Friends.IDs() {
			other, ok := s.User(f)
			if !ok || !other.Friends.Has(u.ID) {
				t.Errorf("%s lists %s as friend but not the reverse", u.ID, f)
			}
			if u.FriendRequestsSent.Has(f) || u.FriendRequestsReceived.Has(f) {
				t.Errorf("%s is both friend and pending request of %s", f, u.ID)
			}
		}
	}
}

// runFriendSequence sends, accepts, then repeats the request and sends one
// to oneself. The repeats must change nothing.
func runFriendSequence(t *testing.T, ctx context.Context, p *Provider, waitFriends func()) {
	t.Helper()
	if err := p.SendFriendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("SendFriendRequest() error = %v", err)
	}
	if err := p.AcceptFriendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("AcceptFriendRequest() error = %v", err)
	}
	waitFriends()

	if err := p.SendFriendRequest(ctx, "alice", "bob"); err != nil {
		t.Errorf("SendFriendRequest() to a friend error = %v", err)
	}
	if err := p.SendFriendRequest(ctx, "alice", "alice"); err != nil {
		t.Errorf("SendFriendRequest() to self error = %v", err)
	}
	if err := p.AcceptFriendRequest(ctx, "alice", "alice"); err != nil {
		t.Errorf("AcceptFriendRequest() from self error = %v", err)
	}
}

func TestFriendRulesMatchAcrossModes(t *testing.T) {
	ctx := context.Background()
	alice := models.User{ID: "alice", Name: "Alice"}
	bob := models.User{ID: "bob", Name: "Bob"}

	t.Run("offline", func(t *testing.T) {
		p := newOfflineProvider(t, &alice)
		if _, err := p.Dispatch(reducer.AddUser{User: bob}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		// AddUser assigns a fresh ID; find it for the sequence.
		var bobID string
		for _, u := range p.Snapshot().Users {
			if u.Name == "Bob" {
				bobID = u.ID
			}
		}
		if err := p.SendFriendRequest(ctx, "alice", bobID); err != nil {
			t.Fatalf("SendFriendRequest() error = %v", err)
		}
		if err := p.AcceptFriendRequest(ctx, "alice", bobID); err != nil {
			t.Fatalf("AcceptFriendRequest() error = %v", err)
		}
		_ = p.SendFriendRequest(ctx, "alice", bobID)
		_ = p.SendFriendRequest(ctx, "alice", "alice")

		s := p.Snapshot()
		me, _ := s.User("alice")
		if !me.Friends.Has(bobID) || me.FriendRequestsSent.Len() != 0 {
			t.Errorf("alice = %+v", me)
		}
		checkFriendLists(t, s)
	})

	t.Run("remote", func(t *testing.T) {
		db, err := sqlite.New(filepath.Join(t.TempDir(), "friends.db"))
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		adapter := remote.New(db, nil)
		for _, u := range []models.User{alice, bob} {
			if err := adapter.SetUser(ctx, u); err != nil {
				t.Fatalf("SetUser() error = %v", err)
			}
		}

		p, err := New(ctx, Options{
			Store:  store.New(models.State{}, nil),
			Remote: adapter,
			Auth:   AuthState{CurrentUser: &auth.Account{ID: "alice"}, Profile: &alice},
		})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		t.Cleanup(p.Close)
		waitForState(t, p, func(s models.State) bool { return s.IsDataLoaded })

		runFriendSequence(t, ctx, p, func() {
			waitForState(t, p, func(s models.State) bool {
				u, ok := s.User("bob")
				return ok && u.Friends.Has("alice")
			})
		})

		// A later write that echoes back proves any stray friend write has
		// been delivered too.
		name := "Alice B."
		if err := p.UpdateUser(ctx, "alice", models.UserPatch{Name: &name}); err != nil {
			t.Fatalf("UpdateUser() error = %v", err)
		}
		s := waitForState(t, p, func(s models.State) bool {
			u, ok := s.User("alice")
			return ok && u.Name == name
		})
		checkFriendLists(t, s)

		doc, err := db.Get(ctx, "users", "alice")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		for _, field := range []string{"friendRequestsSent", "friendRequestsReceived"} {
			if ids, _ := doc.Data[field].([]any); len(ids) != 0 {
				t.Errorf("stored %s = %v, want empty", field, ids)
			}
		}
	})
}

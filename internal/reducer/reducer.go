// Package reducer implements the pure state transition function of
// JustSplit. A Reducer never fails and never performs I/O: every action
// produces a new models.State and leaves the input untouched.
package reducer

import (
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/justsplit/internal/idset"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/storage"
)

// Reducer applies actions to states. Identifier generation and the clock
// are injected so transitions are reproducible in tests.
type Reducer struct {
	newID func() string
	now   func() time.Time
}

// New creates a Reducer. A nil newID falls back to random UUIDs.
func New(newID func() string) *Reducer {
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	return &Reducer{newID: newID, now: time.Now}
}

// WithClock returns a copy of r that stamps groups using now.
func (r *Reducer) WithClock(now func() time.Time) *Reducer {
	c := *r
	c.now = now
	return &c
}

// Reduce returns the state that results from applying a to s. Unknown
// actions return s unchanged.
func (r *Reducer) Reduce(s models.State, a Action) models.State {
	next, _ := r.reduce(s, a)
	return next
}

// reduce reports whether a was recognised.
func (r *Reducer) reduce(s models.State, a Action) (models.State, bool) {
	switch a := a.(type) {
	case AddUser:
		return r.addUser(s, a), true
	case UpdateUser:
		return updateUser(s, a), true
	case AddExpense:
		return r.addExpense(s, a), true
	case UpdateExpense:
		return updateExpense(s, a), true
	case DeleteExpense:
		return r.deleteExpense(s, a), true
	case AddEvent:
		return r.addEvent(s, a), true
	case UpdateEvent:
		return updateEvent(s, a), true
	case DeleteEvent:
		return r.deleteEvent(s, a), true
	case AddSettlement:
		return r.addSettlement(s, a), true
	case AddGroup:
		return r.addGroup(s, a), true
	case UpdateGroup:
		return r.updateGroup(s, a), true
	case DeleteGroup:
		return deleteGroup(s, a), true
	case AddMemberToGroup:
		return r.patchGroup(s, a.GroupID, func(g models.Group) models.Group {
			g.Members = g.Members.Add(a.UserID)
			return g
		}), true
	case RemoveMemberFromGroup:
		return r.patchGroup(s, a.GroupID, func(g models.Group) models.Group {
			g.Members = g.Members.Remove(a.UserID)
			return g
		}), true
	case AddEventToGroup:
		return r.patchGroup(s, a.GroupID, func(g models.Group) models.Group {
			g.EventIDs = g.EventIDs.Add(a.EventID)
			return g
		}), true
	case RemoveEventFromGroup:
		return r.patchGroup(s, a.GroupID, func(g models.Group) models.Group {
			g.EventIDs = g.EventIDs.Remove(a.EventID)
			return g
		}), true
	case AddExpenseToGroup:
		return r.patchGroup(s, a.GroupID, func(g models.Group) models.Group {
			g.ExpenseIDs = g.ExpenseIDs.Add(a.ExpenseID)
			return g
		}), true
	case RemoveExpenseFromGroup:
		return r.patchGroup(s, a.GroupID, func(g models.Group) models.Group {
			g.ExpenseIDs = g.ExpenseIDs.Remove(a.ExpenseID)
			return g
		}), true
	case SendFriendRequest:
		return sendFriendRequest(s, a), true
	case AcceptFriendRequest:
		return acceptFriendRequest(s, a), true
	case RejectFriendRequest:
		return rejectFriendRequest(s, a), true
	case RemoveFriend:
		return removeFriend(s, a), true
	case SetUsers:
		s.Users = a.Users
		s = refreshCurrentUser(s)
		return markLoaded(s, models.CollectionUsers), true
	case SetExpenses:
		s.Expenses = a.Expenses
		return markLoaded(s, models.CollectionExpenses), true
	case SetEvents:
		s.Events = a.Events
		return markLoaded(s, models.CollectionEvents), true
	case SetSettlements:
		s.Settlements = a.Settlements
		return markLoaded(s, models.CollectionSettlements), true
	case SetGroups:
		s.Groups = a.Groups
		return markLoaded(s, models.CollectionGroups), true
	case SetState:
		if a.SetCurrentUser {
			s.CurrentUser = a.CurrentUser
		}
		if a.IsDataLoaded != nil {
			s.IsDataLoaded = *a.IsDataLoaded
		}
		return s, true
	default:
		return s, false
	}
}

func (r *Reducer) addUser(s models.State, a AddUser) models.State {
	u := a.User
	u.ID = r.newID()
	s.Users = appendCopy(s.Users, u)
	return s
}

func updateUser(s models.State, a UpdateUser) models.State {
	s.Users = mapMatching(s.Users, func(u models.User) bool { return u.ID == a.ID },
		func(u models.User) models.User { return u.Apply(a.Patch) })
	return refreshCurrentUser(s)
}

func (r *Reducer) addExpense(s models.State, a AddExpense) models.State {
	e := a.Expense
	e.ID = r.newID()
	s.Expenses = appendCopy(s.Expenses, e)

	if e.EventID != "" {
		s.Events = mapMatching(s.Events, func(ev models.Event) bool { return ev.ID == e.EventID },
			func(ev models.Event) models.Event {
				ev.ExpenseIDs = ev.ExpenseIDs.Add(e.ID)
				return ev
			})
	}
	if e.GroupID != "" {
		s = r.patchGroup(s, e.GroupID, func(g models.Group) models.Group {
			g.ExpenseIDs = g.ExpenseIDs.Add(e.ID)
			return g
		})
	}
	return s
}

func updateExpense(s models.State, a UpdateExpense) models.State {
	s.Expenses = mapMatching(s.Expenses, func(e models.Expense) bool { return e.ID == a.Expense.ID },
		func(models.Expense) models.Expense { return a.Expense })
	return s
}

func (r *Reducer) deleteExpense(s models.State, a DeleteExpense) models.State {
	s.Expenses = removeMatching(s.Expenses, func(e models.Expense) bool { return e.ID == a.ID })
	s.Events = mapMatching(s.Events, func(ev models.Event) bool { return ev.ExpenseIDs.Has(a.ID) },
		func(ev models.Event) models.Event {
			ev.ExpenseIDs = ev.ExpenseIDs.Remove(a.ID)
			return ev
		})
	for _, g := range s.Groups {
		if g.ExpenseIDs.Has(a.ID) {
			s = r.patchGroup(s, g.ID, func(g models.Group) models.Group {
				g.ExpenseIDs = g.ExpenseIDs.Remove(a.ID)
				return g
			})
		}
	}
	return s
}

func (r *Reducer) addEvent(s models.State, a AddEvent) models.State {
	ev := a.Event
	ev.ID = r.newID()
	ev.ExpenseIDs = idset.Set{}
	s.Events = appendCopy(s.Events, ev)

	if ev.GroupID != "" {
		s = r.patchGroup(s, ev.GroupID, func(g models.Group) models.Group {
			g.EventIDs = g.EventIDs.Add(ev.ID)
			return g
		})
	}
	return s
}

func updateEvent(s models.State, a UpdateEvent) models.State {
	s.Events = mapMatching(s.Events, func(ev models.Event) bool { return ev.ID == a.Event.ID },
		func(models.Event) models.Event { return a.Event })
	return s
}

// deleteEvent removes the event and unlinks, but keeps, its expenses.
func (r *Reducer) deleteEvent(s models.State, a DeleteEvent) models.State {
	s.Events = removeMatching(s.Events, func(ev models.Event) bool { return ev.ID == a.ID })
	s.Expenses = mapMatching(s.Expenses, func(e models.Expense) bool { return e.EventID == a.ID },
		func(e models.Expense) models.Expense {
			e.EventID = ""
			return e
		})
	for _, g := range s.Groups {
		if g.EventIDs.Has(a.ID) {
			s = r.patchGroup(s, g.ID, func(g models.Group) models.Group {
				g.EventIDs = g.EventIDs.Remove(a.ID)
				return g
			})
		}
	}
	return s
}

// addSettlement appends the settlement and marks every referenced expense
// settled in the same transition.
func (r *Reducer) addSettlement(s models.State, a AddSettlement) models.State {
	st := a.Settlement
	st.ID = r.newID()
	s.Settlements = appendCopy(s.Settlements, st)

	settled := make(map[string]bool, len(st.ExpenseIDs))
	for _, id := range st.ExpenseIDs {
		settled[id] = true
	}
	s.Expenses = mapMatching(s.Expenses, func(e models.Expense) bool { return settled[e.ID] && !e.Settled },
		func(e models.Expense) models.Expense {
			e.Settled = true
			return e
		})
	return s
}

func (r *Reducer) addGroup(s models.State, a AddGroup) models.State {
	g := a.Group
	g.ID = r.newID()
	stamp := storage.FormatTime(r.now())
	g.CreatedAt = stamp
	g.UpdatedAt = stamp
	s.Groups = appendCopy(s.Groups, g)
	return s
}

func (r *Reducer) updateGroup(s models.State, a UpdateGroup) models.State {
	stamp := storage.FormatTime(r.now())
	s.Groups = mapMatching(s.Groups, func(g models.Group) bool { return g.ID == a.Group.ID },
		func(prev models.Group) models.Group {
			g := a.Group
			if g.CreatedAt == "" {
				g.CreatedAt = prev.CreatedAt
			}
			g.UpdatedAt = stamp
			return g
		})
	return s
}

// deleteGroup removes the group and clears GroupID on its events and
// expenses.
func deleteGroup(s models.State, a DeleteGroup) models.State {
	s.Groups = removeMatching(s.Groups, func(g models.Group) bool { return g.ID == a.ID })
	s.Events = mapMatching(s.Events, func(ev models.Event) bool { return ev.GroupID == a.ID },
		func(ev models.Event) models.Event {
			ev.GroupID = ""
			return ev
		})
	s.Expenses = mapMatching(s.Expenses, func(e models.Expense) bool { return e.GroupID == a.ID },
		func(e models.Expense) models.Expense {
			e.GroupID = ""
			return e
		})
	return s
}

// patchGroup applies fn to the group with id. UpdatedAt is refreshed only
// when fn changed one of the group's sets, so repeated adds leave the
// state as it was.
func (r *Reducer) patchGroup(s models.State, id string, fn func(models.Group) models.Group) models.State {
	for i, g := range s.Groups {
		if g.ID != id {
			continue
		}
		next := fn(g)
		if next.Members.Equal(g.Members) && next.EventIDs.Equal(g.EventIDs) && next.ExpenseIDs.Equal(g.ExpenseIDs) {
			return s
		}
		next.UpdatedAt = storage.FormatTime(r.now())

		groups := make([]models.Group, len(s.Groups))
		copy(groups, s.Groups)
		groups[i] = next
		s.Groups = groups
		return s
	}
	return s
}

// markLoaded records that a collection arrived and raises IsDataLoaded
// once all of them have.
func markLoaded(s models.State, c models.Collection) models.State {
	loaded := make(map[models.Collection]bool, len(models.Collections))
	for k, v := range s.Loaded {
		loaded[k] = v
	}
	loaded[c] = true
	s.Loaded = loaded

	for _, c := range models.Collections {
		if !loaded[c] {
			return s
		}
	}
	s.IsDataLoaded = true
	return s
}

// refreshCurrentUser re-reads the signed-in user from the users list.
func refreshCurrentUser(s models.State) models.State {
	if s.CurrentUser == nil {
		return s
	}
	if u, ok := s.User(s.CurrentUser.ID); ok {
		s.CurrentUser = &u
	}
	return s
}

// appendCopy appends v to a fresh copy of items.
func appendCopy[T any](items []T, v T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, v)
}

// mapMatching returns items with fn applied to each element that
// match accepts. When nothing matches the input slice itself is returned.
func mapMatching[T any](items []T, match func(T) bool, fn func(T) T) []T {
	var out []T
	for i, item := range items {
		if !match(item) {
			continue
		}
		if out == nil {
			out = make([]T, len(items))
			copy(out, items)
		}
		out[i] = fn(item)
	}
	if out == nil {
		return items
	}
	return out
}

// removeMatching returns items without the elements match accepts.
// When nothing matches the input slice itself is returned.
func removeMatching[T any](items []T, match func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !match(item) {
			out = append(out, item)
		}
	}
	if len(out) == len(items) {
		return items
	}
	return out
}

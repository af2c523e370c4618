package provider

import (
	"context"
	"fmt"

	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/reducer"
)

// Write helpers check local references first and return one of the
// not-found errors without touching the database when a reference is
// unknown.

func (p *Provider) requireUser(s models.State, id string) error {
	if _, ok := s.User(id); !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return nil
}

func (p *Provider) requireExpense(s models.State, id string) error {
	if _, ok := s.Expense(id); !ok {
		return fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
	}
	return nil
}

func (p *Provider) requireEvent(s models.State, id string) error {
	if _, ok := s.Event(id); !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return nil
}

func (p *Provider) requireGroup(s models.State, id string) error {
	if _, ok := s.Group(id); !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	return nil
}

// lastID returns the ID of the entity an offline creation just appended.
func lastID[T any](items []T, id func(T) string) string {
	if len(items) == 0 {
		return ""
	}
	return id(items[len(items)-1])
}

// AddUser creates a user and returns its ID.
func (p *Provider) AddUser(ctx context.Context, u models.User) (string, error) {
	if p.Offline() {
		s := p.store.Dispatch(reducer.AddUser{User: u})
		return lastID(s.Users, func(u models.User) string { return u.ID }), nil
	}
	return p.remote.AddUser(ctx, u)
}

// UpdateUser merges patch into a user.
func (p *Provider) UpdateUser(ctx context.Context, id string, patch models.UserPatch) error {
	if err := p.requireUser(p.store.Snapshot(), id); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.UpdateUser{ID: id, Patch: patch})
		return nil
	}
	return p.remote.UpdateUser(ctx, id, patch)
}

// AddExpense creates an expense and returns its ID. An empty currency
// defaults to PreferredCurrency.
func (p *Provider) AddExpense(ctx context.Context, e models.Expense) (string, error) {
	s := p.store.Snapshot()
	if e.EventID != "" {
		if err := p.requireEvent(s, e.EventID); err != nil {
			return "", err
		}
	}
	if e.GroupID != "" {
		if err := p.requireGroup(s, e.GroupID); err != nil {
			return "", err
		}
	}
	if e.Currency == "" {
		e.Currency = p.PreferredCurrency()
	}

	if p.Offline() {
		s = p.store.Dispatch(reducer.AddExpense{Expense: e})
		return lastID(s.Expenses, func(e models.Expense) string { return e.ID }), nil
	}
	return p.remote.AddExpense(ctx, e)
}

// UpdateExpense replaces an expense.
func (p *Provider) UpdateExpense(ctx context.Context, e models.Expense) error {
	if err := p.requireExpense(p.store.Snapshot(), e.ID); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.UpdateExpense{Expense: e})
		return nil
	}
	return p.remote.UpdateExpense(ctx, e)
}

// DeleteExpense removes an expense.
func (p *Provider) DeleteExpense(ctx context.Context, id string) error {
	if err := p.requireExpense(p.store.Snapshot(), id); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.DeleteExpense{ID: id})
		return nil
	}
	return p.remote.DeleteExpense(ctx, id)
}

// AddEvent creates an event and returns its ID.
func (p *Provider) AddEvent(ctx context.Context, ev models.Event) (string, error) {
	if ev.GroupID != "" {
		if err := p.requireGroup(p.store.Snapshot(), ev.GroupID); err != nil {
			return "", err
		}
	}
	if p.Offline() {
		s := p.store.Dispatch(reducer.AddEvent{Event: ev})
		return lastID(s.Events, func(ev models.Event) string { return ev.ID }), nil
	}
	return p.remote.AddEvent(ctx, ev)
}

// UpdateEvent replaces an event.
func (p *Provider) UpdateEvent(ctx context.Context, ev models.Event) error {
	if err := p.requireEvent(p.store.Snapshot(), ev.ID); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.UpdateEvent{Event: ev})
		return nil
	}
	return p.remote.UpdateEvent(ctx, ev)
}

// DeleteEvent removes an event; its expenses are kept and unlinked.
func (p *Provider) DeleteEvent(ctx context.Context, id string) error {
	if err := p.requireEvent(p.store.Snapshot(), id); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.DeleteEvent{ID: id})
		return nil
	}
	return p.remote.DeleteEvent(ctx, id)
}

// AddSettlement records a settlement and returns its ID.
func (p *Provider) AddSettlement(ctx context.Context, st models.Settlement) (string, error) {
	s := p.store.Snapshot()
	for _, id := range []string{st.FromUser, st.ToUser} {
		if err := p.requireUser(s, id); err != nil {
			return "", err
		}
	}
	for _, id := range st.ExpenseIDs {
		if err := p.requireExpense(s, id); err != nil {
			return "", err
		}
	}
	if st.Currency == "" {
		st.Currency = p.PreferredCurrency()
	}

	if p.Offline() {
		s = p.store.Dispatch(reducer.AddSettlement{Settlement: st})
		return lastID(s.Settlements, func(st models.Settlement) string { return st.ID }), nil
	}
	return p.remote.AddSettlement(ctx, st)
}

// AddGroup creates a group and returns its ID. The signed-in user is
// always a member.
func (p *Provider) AddGroup(ctx context.Context, g models.Group) (string, error) {
	if id := p.store.Snapshot().CurrentUserID(); id != "" {
		g.Members = g.Members.Add(id)
	}
	if p.Offline() {
		s := p.store.Dispatch(reducer.AddGroup{Group: g})
		return lastID(s.Groups, func(g models.Group) string { return g.ID }), nil
	}
	return p.remote.AddGroup(ctx, g)
}

// UpdateGroup replaces a group's fields.
func (p *Provider) UpdateGroup(ctx context.Context, g models.Group) error {
	if err := p.requireGroup(p.store.Snapshot(), g.ID); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.UpdateGroup{Group: g})
		return nil
	}
	return p.remote.UpdateGroup(ctx, g)
}

// DeleteGroup removes a group and clears references to it.
func (p *Provider) DeleteGroup(ctx context.Context, id string) error {
	if err := p.requireGroup(p.store.Snapshot(), id); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.DeleteGroup{ID: id})
		return nil
	}
	return p.remote.DeleteGroup(ctx, id)
}

// AddMemberToGroup adds a user to a group.
func (p *Provider) AddMemberToGroup(ctx context.Context, groupID, userID string) error {
	if err := p.groupRef(groupID, userID, p.requireUser); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.AddMemberToGroup{GroupID: groupID, UserID: userID})
		return nil
	}
	return p.remote.AddMemberToGroup(ctx, groupID, userID)
}

// RemoveMemberFromGroup removes a user from a group.
func (p *Provider) RemoveMemberFromGroup(ctx context.Context, groupID, userID string) error {
	if err := p.groupRef(groupID, userID, p.requireUser); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.RemoveMemberFromGroup{GroupID: groupID, UserID: userID})
		return nil
	}
	return p.remote.RemoveMemberFromGroup(ctx, groupID, userID)
}

// AddEventToGroup adds an event to a group.
func (p *Provider) AddEventToGroup(ctx context.Context, groupID, eventID string) error {
	if err := p.groupRef(groupID, eventID, p.requireEvent); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.AddEventToGroup{GroupID: groupID, EventID: eventID})
		return nil
	}
	return p.remote.AddEventToGroup(ctx, groupID, eventID)
}

// RemoveEventFromGroup removes an event from a group.
func (p *Provider) RemoveEventFromGroup(ctx context.Context, groupID, eventID string) error {
	if err := p.groupRef(groupID, eventID, p.requireEvent); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.RemoveEventFromGroup{GroupID: groupID, EventID: eventID})
		return nil
	}
	return p.remote.RemoveEventFromGroup(ctx, groupID, eventID)
}

// AddExpenseToGroup adds an expense to a group.
func (p *Provider) AddExpenseToGroup(ctx context.Context, groupID, expenseID string) error {
	if err := p.groupRef(groupID, expenseID, p.requireExpense); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.AddExpenseToGroup{GroupID: groupID, ExpenseID: expenseID})
		return nil
	}
	return p.remote.AddExpenseToGroup(ctx, groupID, expenseID)
}

// RemoveExpenseFromGroup removes an expense from a group.
func (p *Provider) RemoveExpenseFromGroup(ctx context.Context, groupID, expenseID string) error {
	if err := p.groupRef(groupID, expenseID, p.requireExpense); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.RemoveExpenseFromGroup{GroupID: groupID, ExpenseID: expenseID})
		return nil
	}
	return p.remote.RemoveExpenseFromGroup(ctx, groupID, expenseID)
}

// groupRef checks that the group exists and that ref passes require.
func (p *Provider) groupRef(groupID, ref string, require func(models.State, string) error) error {
	s := p.store.Snapshot()
	if err := p.requireGroup(s, groupID); err != nil {
		return err
	}
	return require(s, ref)
}

// SendFriendRequest records a request from one user to another. A request
// to oneself or to an existing friend changes nothing.
func (p *Provider) SendFriendRequest(ctx context.Context, from, to string) error {
	if err := p.userPair(from, to); err != nil {
		return err
	}
	if !reducer.CanSendFriendRequest(p.store.Snapshot(), from, to) {
		return nil
	}
	if p.Offline() {
		p.store.Dispatch(reducer.SendFriendRequest{From: from, To: to})
		return nil
	}
	return p.remote.SendFriendRequest(ctx, from, to)
}

// AcceptFriendRequest turns a pending request into a friendship. Accepting
// a request from oneself changes nothing.
func (p *Provider) AcceptFriendRequest(ctx context.Context, from, to string) error {
	if err := p.userPair(from, to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if p.Offline() {
		p.store.Dispatch(reducer.AcceptFriendRequest{From: from, To: to})
		return nil
	}
	return p.remote.AcceptFriendRequest(ctx, from, to)
}

// RejectFriendRequest drops a pending request.
func (p *Provider) RejectFriendRequest(ctx context.Context, from, to string) error {
	if err := p.userPair(from, to); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.RejectFriendRequest{From: from, To: to})
		return nil
	}
	return p.remote.RejectFriendRequest(ctx, from, to)
}

// RemoveFriend ends a friendship.
func (p *Provider) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if err := p.userPair(userID, friendID); err != nil {
		return err
	}
	if p.Offline() {
		p.store.Dispatch(reducer.RemoveFriend{UserID: userID, FriendID: friendID})
		return nil
	}
	return p.remote.RemoveFriend(ctx, userID, friendID)
}

func (p *Provider) userPair(a, b string) error {
	s := p.store.Snapshot()
	if err := p.requireUser(s, a); err != nil {
		return err
	}
	return p.requireUser(s, b)
}

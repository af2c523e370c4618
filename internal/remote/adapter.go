// Package remote synchronises the local state store with the document
// database.
//
// The write path turns entity operations into sanitised document writes,
// using one atomic batch whenever an operation touches more than one
// document. The read path keeps one live query per collection open for the
// signed-in user and emits every fresh result set as a Replacement on a
// channel that the state store consumes.
package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/justsplit/internal/metrics"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/storage"
)

var (
	users       = string(models.CollectionUsers)
	expenses    = string(models.CollectionExpenses)
	events      = string(models.CollectionEvents)
	settlements = string(models.CollectionSettlements)
	groups      = string(models.CollectionGroups)
)

// Adapter is the remote sync adapter.
type Adapter struct {
	db     storage.DocumentStore
	logger *slog.Logger
}

// New creates an Adapter over db. A nil logger uses slog.Default().
func New(db storage.DocumentStore, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{db: db, logger: logger}
}

// observe records the outcome of op and wraps err with the operation name.
func (a *Adapter) observe(op string, err error) error {
	metrics.ObserveWrite(op, err)
	if err != nil {
		a.logger.Error("Remote write failed", "op", op, "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

// AddUser creates a user document and returns its ID.
func (a *Adapter) AddUser(ctx context.Context, u models.User) (string, error) {
	id, err := a.db.Create(ctx, users, newUserPayload(u))
	return id, a.observe("add user", err)
}

// SetUser writes the user document with a known ID, creating it if needed.
// Accounts use it to give a new user's profile the account's ID.
func (a *Adapter) SetUser(ctx context.Context, u models.User) error {
	return a.observe("set user", a.db.Set(ctx, users, u.ID, newUserPayload(u)))
}

// UpdateUser merges the fields set in patch into the user document.
func (a *Adapter) UpdateUser(ctx context.Context, id string, patch models.UserPatch) error {
	return a.observe("update user", a.db.Update(ctx, users, id, userPatchPayload(patch)))
}

// AddExpense creates an expense and links it to its event and group in the
// same batch.
func (a *Adapter) AddExpense(ctx context.Context, e models.Expense) (string, error) {
	b := a.db.NewBatch()
	id := b.Create(expenses, newExpensePayload(e))
	if e.EventID != "" {
		b.Update(events, e.EventID, map[string]any{"expenseIds": storage.ArrayUnion(id)})
	}
	if e.GroupID != "" {
		b.Update(groups, e.GroupID, groupTouch("expenseIds", storage.ArrayUnion(id)))
	}
	if err := a.observe("add expense", b.Commit(ctx)); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateExpense replaces every field of the expense document. Cleared
// optional fields are stored as null.
func (a *Adapter) UpdateExpense(ctx context.Context, e models.Expense) error {
	return a.observe("update expense", a.db.Update(ctx, expenses, e.ID, expenseUpdatePayload(e)))
}

// DeleteExpense removes an expense and strips it from every event and
// group that lists it.
func (a *Adapter) DeleteExpense(ctx context.Context, id string) error {
	err := a.deleteExpense(ctx, id)
	return a.observe("delete expense", err)
}

func (a *Adapter) deleteExpense(ctx context.Context, id string) error {
	owningEvents, err := a.db.Find(ctx, storage.Collection(events).Where("expenseIds", storage.OpArrayContains, id))
	if err != nil {
		return err
	}
	owningGroups, err := a.db.Find(ctx, storage.Collection(groups).Where("expenseIds", storage.OpArrayContains, id))
	if err != nil {
		return err
	}

	b := a.db.NewBatch()
	b.Delete(expenses, id)
	for _, ev := range owningEvents {
		b.Update(events, ev.ID, map[string]any{"expenseIds": storage.ArrayRemove(id)})
	}
	for _, g := range owningGroups {
		b.Update(groups, g.ID, groupTouch("expenseIds", storage.ArrayRemove(id)))
	}
	return b.Commit(ctx)
}

// AddEvent creates an event with no expenses and links it to its group.
func (a *Adapter) AddEvent(ctx context.Context, ev models.Event) (string, error) {
	b := a.db.NewBatch()
	id := b.Create(events, newEventPayload(ev))
	if ev.GroupID != "" {
		b.Update(groups, ev.GroupID, groupTouch("eventIds", storage.ArrayUnion(id)))
	}
	if err := a.observe("add event", b.Commit(ctx)); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateEvent replaces every field of the event document.
func (a *Adapter) UpdateEvent(ctx context.Context, ev models.Event) error {
	return a.observe("update event", a.db.Update(ctx, events, ev.ID, eventUpdatePayload(ev)))
}

// DeleteEvent removes an event. Its expenses are kept with eventId set to
// null, and groups stop listing it, in the same batch.
func (a *Adapter) DeleteEvent(ctx context.Context, id string) error {
	err := a.deleteEvent(ctx, id)
	return a.observe("delete event", err)
}

func (a *Adapter) deleteEvent(ctx context.Context, id string) error {
	linked, err := a.db.Find(ctx, storage.Collection(expenses).Where("eventId", storage.OpEqual, id))
	if err != nil {
		return err
	}
	owningGroups, err := a.db.Find(ctx, storage.Collection(groups).Where("eventIds", storage.OpArrayContains, id))
	if err != nil {
		return err
	}

	b := a.db.NewBatch()
	b.Delete(events, id)
	for _, e := range linked {
		b.Update(expenses, e.ID, map[string]any{"eventId": nil})
	}
	for _, g := range owningGroups {
		b.Update(groups, g.ID, groupTouch("eventIds", storage.ArrayRemove(id)))
	}
	return b.Commit(ctx)
}

// AddSettlement records a settlement and marks its expenses settled in one
// batch.
func (a *Adapter) AddSettlement(ctx context.Context, s models.Settlement) (string, error) {
	b := a.db.NewBatch()
	id := b.Create(settlements, newSettlementPayload(s))
	for _, expenseID := range s.ExpenseIDs {
		b.Update(expenses, expenseID, map[string]any{"settled": true})
	}
	if err := a.observe("add settlement", b.Commit(ctx)); err != nil {
		return "", err
	}
	return id, nil
}

// AddGroup creates a group. Timestamps are set by the database.
func (a *Adapter) AddGroup(ctx context.Context, g models.Group) (string, error) {
	id, err := a.db.Create(ctx, groups, newGroupPayload(g))
	return id, a.observe("add group", err)
}

// UpdateGroup replaces the group's fields and refreshes updatedAt.
func (a *Adapter) UpdateGroup(ctx context.Context, g models.Group) error {
	return a.observe("update group", a.db.Update(ctx, groups, g.ID, groupUpdatePayload(g)))
}

// DeleteGroup removes a group and sets groupId to null on its events and
// expenses in one batch.
func (a *Adapter) DeleteGroup(ctx context.Context, id string) error {
	err := a.deleteGroup(ctx, id)
	return a.observe("delete group", err)
}

func (a *Adapter) deleteGroup(ctx context.Context, id string) error {
	b := a.db.NewBatch()
	b.Delete(groups, id)
	for _, coll := range []string{events, expenses} {
		docs, err := a.db.Find(ctx, storage.Collection(coll).Where("groupId", storage.OpEqual, id))
		if err != nil {
			return err
		}
		for _, d := range docs {
			b.Update(coll, d.ID, map[string]any{"groupId": nil})
		}
	}
	return b.Commit(ctx)
}

// AddMemberToGroup adds a user to the group's members.
func (a *Adapter) AddMemberToGroup(ctx context.Context, groupID, userID string) error {
	return a.updateGroupSet(ctx, "add member to group", groupID, "members", storage.ArrayUnion(userID))
}

// RemoveMemberFromGroup removes a user from the group's members.
func (a *Adapter) RemoveMemberFromGroup(ctx context.Context, groupID, userID string) error {
	return a.updateGroupSet(ctx, "remove member from group", groupID, "members", storage.ArrayRemove(userID))
}

// AddEventToGroup adds an event to the group's events.
func (a *Adapter) AddEventToGroup(ctx context.Context, groupID, eventID string) error {
	return a.updateGroupSet(ctx, "add event to group", groupID, "eventIds", storage.ArrayUnion(eventID))
}

// RemoveEventFromGroup removes an event from the group's events.
func (a *Adapter) RemoveEventFromGroup(ctx context.Context, groupID, eventID string) error {
	return a.updateGroupSet(ctx, "remove event from group", groupID, "eventIds", storage.ArrayRemove(eventID))
}

// AddExpenseToGroup adds an expense to the group's expenses.
func (a *Adapter) AddExpenseToGroup(ctx context.Context, groupID, expenseID string) error {
	return a.updateGroupSet(ctx, "add expense to group", groupID, "expenseIds", storage.ArrayUnion(expenseID))
}

// RemoveExpenseFromGroup removes an expense from the group's expenses.
func (a *Adapter) RemoveExpenseFromGroup(ctx context.Context, groupID, expenseID string) error {
	return a.updateGroupSet(ctx, "remove expense from group", groupID, "expenseIds", storage.ArrayRemove(expenseID))
}

func (a *Adapter) updateGroupSet(ctx context.Context, op, groupID, field string, transform any) error {
	return a.observe(op, a.db.Update(ctx, groups, groupID, groupTouch(field, transform)))
}

// SendFriendRequest records a pending request on both user documents.
// Friend operations between a user and itself write nothing.
func (a *Adapter) SendFriendRequest(ctx context.Context, from, to string) error {
	if from == to {
		return nil
	}
	b := a.db.NewBatch()
	b.Update(users, from, map[string]any{"friendRequestsSent": storage.ArrayUnion(to)})
	b.Update(users, to, map[string]any{"friendRequestsReceived": storage.ArrayUnion(from)})
	return a.observe("send friend request", b.Commit(ctx))
}

// AcceptFriendRequest makes both users friends and clears the pending
// request on both sides.
func (a *Adapter) AcceptFriendRequest(ctx context.Context, from, to string) error {
	if from == to {
		return nil
	}
	b := a.db.NewBatch()
	b.Update(users, from, map[string]any{
		"friends":                storage.ArrayUnion(to),
		"friendRequestsSent":     storage.ArrayRemove(to),
		"friendRequestsReceived": storage.ArrayRemove(to),
	})
	b.Update(users, to, map[string]any{
		"friends":                storage.ArrayUnion(from),
		"friendRequestsSent":     storage.ArrayRemove(from),
		"friendRequestsReceived": storage.ArrayRemove(from),
	})
	return a.observe("accept friend request", b.Commit(ctx))
}

// RejectFriendRequest clears the pending request on both sides.
func (a *Adapter) RejectFriendRequest(ctx context.Context, from, to string) error {
	if from == to {
		return nil
	}
	b := a.db.NewBatch()
	b.Update(users, from, map[string]any{"friendRequestsSent": storage.ArrayRemove(to)})
	b.Update(users, to, map[string]any{"friendRequestsReceived": storage.ArrayRemove(from)})
	return a.observe("reject friend request", b.Commit(ctx))
}

// RemoveFriend ends a friendship on both user documents.
func (a *Adapter) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return nil
	}
	b := a.db.NewBatch()
	b.Update(users, userID, map[string]any{"friends": storage.ArrayRemove(friendID)})
	b.Update(users, friendID, map[string]any{"friends": storage.ArrayRemove(userID)})
	return a.observe("remove friend", b.Commit(ctx))
}

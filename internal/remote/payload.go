package remote

import (
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/storage"
)

// Payload builders map entities to document fields. Create payloads mark
// empty optional fields Absent so they are left out of the document;
// update payloads write nil instead, which clears a stored value.

// nullable returns s, or nil when s is empty.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func newUserPayload(u models.User) map[string]any {
	return storage.Sanitize(map[string]any{
		"name":                   u.Name,
		"email":                  storage.OrAbsent(u.Email),
		"phone":                  storage.OrAbsent(u.Phone),
		"avatar":                 storage.OrAbsent(u.Avatar),
		"preferredCurrency":      storage.OrAbsent(u.PreferredCurrency),
		"balance":                u.Balance,
		"friends":                u.Friends.IDs(),
		"friendRequestsSent":     u.FriendRequestsSent.IDs(),
		"friendRequestsReceived": u.FriendRequestsReceived.IDs(),
	})
}

// userPatchPayload holds only the fields the patch sets.
func userPatchPayload(p models.UserPatch) map[string]any {
	field := func(v *string) any {
		if v == nil {
			return storage.Absent
		}
		return nullable(*v)
	}
	balance := storage.Absent
	if p.Balance != nil {
		balance = *p.Balance
	}
	return storage.Sanitize(map[string]any{
		"name":              field(p.Name),
		"email":             field(p.Email),
		"phone":             field(p.Phone),
		"avatar":            field(p.Avatar),
		"preferredCurrency": field(p.PreferredCurrency),
		"balance":           balance,
	})
}

func newExpensePayload(e models.Expense) map[string]any {
	return storage.Sanitize(map[string]any{
		"description":  e.Description,
		"amount":       e.Amount,
		"currency":     e.Currency,
		"date":         e.Date,
		"paidBy":       e.PaidBy,
		"participants": orEmpty(e.Participants),
		"settled":      e.Settled,
		"eventId":      storage.OrAbsent(e.EventID),
		"groupId":      storage.OrAbsent(e.GroupID),
		"notes":        storage.OrAbsent(e.Notes),
		"category":     storage.OrAbsent(e.Category),
	})
}

func expenseUpdatePayload(e models.Expense) map[string]any {
	return map[string]any{
		"description":  e.Description,
		"amount":       e.Amount,
		"currency":     e.Currency,
		"date":         e.Date,
		"paidBy":       e.PaidBy,
		"participants": orEmpty(e.Participants),
		"settled":      e.Settled,
		"eventId":      nullable(e.EventID),
		"groupId":      nullable(e.GroupID),
		"notes":        nullable(e.Notes),
		"category":     nullable(e.Category),
	}
}

func newEventPayload(ev models.Event) map[string]any {
	return storage.Sanitize(map[string]any{
		"name":              ev.Name,
		"description":       storage.OrAbsent(ev.Description),
		"startDate":         ev.StartDate,
		"endDate":           storage.OrAbsent(ev.EndDate),
		"members":           orEmpty(ev.Members),
		"expenseIds":        []string{},
		"preferredCurrency": storage.OrAbsent(ev.PreferredCurrency),
		"groupId":           storage.OrAbsent(ev.GroupID),
	})
}

func eventUpdatePayload(ev models.Event) map[string]any {
	return map[string]any{
		"name":              ev.Name,
		"description":       nullable(ev.Description),
		"startDate":         ev.StartDate,
		"endDate":           nullable(ev.EndDate),
		"members":           orEmpty(ev.Members),
		"expenseIds":        ev.ExpenseIDs.IDs(),
		"preferredCurrency": nullable(ev.PreferredCurrency),
		"groupId":           nullable(ev.GroupID),
	}
}

func newSettlementPayload(s models.Settlement) map[string]any {
	return map[string]any{
		"fromUser":   s.FromUser,
		"toUser":     s.ToUser,
		"amount":     s.Amount,
		"currency":   s.Currency,
		"expenseIds": orEmpty(s.ExpenseIDs),
		"date":       s.Date,
	}
}

func newGroupPayload(g models.Group) map[string]any {
	return storage.Sanitize(map[string]any{
		"name":        g.Name,
		"description": storage.OrAbsent(g.Description),
		"members":     g.Members.IDs(),
		"eventIds":    g.EventIDs.IDs(),
		"expenseIds":  g.ExpenseIDs.IDs(),
		"createdAt":   storage.ServerTimestamp,
		"updatedAt":   storage.ServerTimestamp,
	})
}

func groupUpdatePayload(g models.Group) map[string]any {
	return map[string]any{
		"name":        g.Name,
		"description": nullable(g.Description),
		"members":     g.Members.IDs(),
		"eventIds":    g.EventIDs.IDs(),
		"expenseIds":  g.ExpenseIDs.IDs(),
		"updatedAt":   storage.ServerTimestamp,
	}
}

// groupTouch is merged into every group membership update.
func groupTouch(field string, value any) map[string]any {
	return map[string]any{
		field:       value,
		"updatedAt": storage.ServerTimestamp,
	}
}

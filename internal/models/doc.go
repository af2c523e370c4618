// Package models defines the domain entities of JustSplit and the state tuple
// that the store owns.
//
// # Entities
//
//   - User: a person who pays for or shares expenses, with friend links
//   - Expense: an amount paid by one user and shared by participants
//   - Event: a trip or occasion that collects expenses
//   - Settlement: a payment that clears a list of expenses
//   - Group: a recurring circle of users with their events and expenses
//
// # Relationships
//
// Entities reference each other by identifier, never by pointer. Lists of
// identifiers that must not contain repeats are idset.Set values. The
// denormalised links are:
//
//   - Expense.EventID <-> Event.ExpenseIDs
//   - Expense.GroupID, Event.GroupID <-> Group.ExpenseIDs, Group.EventIDs
//   - User.FriendRequestsSent <-> User.FriendRequestsReceived
//   - User.Friends <-> User.Friends (symmetric)
//
// # Dates
//
// Dates are ISO-8601 strings. Storage backends may hold native timestamps;
// they are normalised to strings before reaching these types.
package models

package models

// Collection names a document collection in the remote database and the
// matching slice of State.
type Collection string

const (
	CollectionUsers       Collection = "users"
	CollectionExpenses    Collection = "expenses"
	CollectionEvents      Collection = "events"
	CollectionSettlements Collection = "settlements"
	CollectionGroups      Collection = "groups"
)

// Collections lists every synchronised collection in a stable order.
var Collections = []Collection{
	CollectionUsers,
	CollectionExpenses,
	CollectionEvents,
	CollectionSettlements,
	CollectionGroups,
}

// State is the whole application state. It is treated as an immutable value:
// the reducer builds a new State for every transition and shares untouched
// slices with the previous one, so callers must never modify a slice they
// received from a State.
type State struct {
	Users       []User       `json:"users"`
	Expenses    []Expense    `json:"expenses"`
	Events      []Event      `json:"events"`
	Settlements []Settlement `json:"settlements"`
	Groups      []Group      `json:"groups"`

	// IsDataLoaded becomes true once every collection has been received from
	// the remote database at least once.
	IsDataLoaded bool `json:"isDataLoaded"`

	// CurrentUser is a denormalised copy of the signed-in user's entry in
	// Users. Nil when nobody is signed in.
	CurrentUser *User `json:"currentUser"`

	// Loaded records which collections have been replaced at least once.
	Loaded map[Collection]bool `json:"-"`
}

// User looks up a user by ID.
func (s State) User(id string) (User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// Expense looks up an expense by ID.
func (s State) Expense(id string) (Expense, bool) {
	for _, e := range s.Expenses {
		if e.ID == id {
			return e, true
		}
	}
	return Expense{}, false
}

// Event looks up an event by ID.
func (s State) Event(id string) (Event, bool) {
	for _, e := range s.Events {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// Settlement looks up a settlement by ID.
func (s State) Settlement(id string) (Settlement, bool) {
	for _, st := range s.Settlements {
		if st.ID == id {
			return st, true
		}
	}
	return Settlement{}, false
}

// Group looks up a group by ID.
func (s State) Group(id string) (Group, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// CurrentUserID returns the signed-in user's ID, or "" when nobody is.
func (s State) CurrentUserID() string {
	if s.CurrentUser == nil {
		return ""
	}
	return s.CurrentUser.ID
}

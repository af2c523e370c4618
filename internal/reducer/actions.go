package reducer

import "github.com/mmynk/justsplit/internal/models"

// ActionType is the tag of an action variant.
type ActionType string

const (
	TypeAddUser                ActionType = "ADD_USER"
	TypeUpdateUser             ActionType = "UPDATE_USER"
	TypeAddExpense             ActionType = "ADD_EXPENSE"
	TypeUpdateExpense          ActionType = "UPDATE_EXPENSE"
	TypeDeleteExpense          ActionType = "DELETE_EXPENSE"
	TypeAddEvent               ActionType = "ADD_EVENT"
	TypeUpdateEvent            ActionType = "UPDATE_EVENT"
	TypeDeleteEvent            ActionType = "DELETE_EVENT"
	TypeAddSettlement          ActionType = "ADD_SETTLEMENT"
	TypeAddGroup               ActionType = "ADD_GROUP"
	TypeUpdateGroup            ActionType = "UPDATE_GROUP"
	TypeDeleteGroup            ActionType = "DELETE_GROUP"
	TypeAddMemberToGroup       ActionType = "ADD_MEMBER_TO_GROUP"
	TypeRemoveMemberFromGroup  ActionType = "REMOVE_MEMBER_FROM_GROUP"
	TypeAddEventToGroup        ActionType = "ADD_EVENT_TO_GROUP"
	TypeRemoveEventFromGroup   ActionType = "REMOVE_EVENT_FROM_GROUP"
	TypeAddExpenseToGroup      ActionType = "ADD_EXPENSE_TO_GROUP"
	TypeRemoveExpenseFromGroup ActionType = "REMOVE_EXPENSE_FROM_GROUP"
	TypeSendFriendRequest      ActionType = "SEND_FRIEND_REQUEST"
	TypeAcceptFriendRequest    ActionType = "ACCEPT_FRIEND_REQUEST"
	TypeRejectFriendRequest    ActionType = "REJECT_FRIEND_REQUEST"
	TypeRemoveFriend           ActionType = "REMOVE_FRIEND"
	TypeSetUsers               ActionType = "SET_USERS"
	TypeSetExpenses            ActionType = "SET_EXPENSES"
	TypeSetEvents              ActionType = "SET_EVENTS"
	TypeSetSettlements         ActionType = "SET_SETTLEMENTS"
	TypeSetGroups              ActionType = "SET_GROUPS"
	TypeSetState               ActionType = "SET_STATE"
)

// AllActionTypes lists every action tag.
var AllActionTypes = []ActionType{
	TypeAddUser, TypeUpdateUser,
	TypeAddExpense, TypeUpdateExpense, TypeDeleteExpense,
	TypeAddEvent, TypeUpdateEvent, TypeDeleteEvent,
	TypeAddSettlement,
	TypeAddGroup, TypeUpdateGroup, TypeDeleteGroup,
	TypeAddMemberToGroup, TypeRemoveMemberFromGroup,
	TypeAddEventToGroup, TypeRemoveEventFromGroup,
	TypeAddExpenseToGroup, TypeRemoveExpenseFromGroup,
	TypeSendFriendRequest, TypeAcceptFriendRequest, TypeRejectFriendRequest, TypeRemoveFriend,
	TypeSetUsers, TypeSetExpenses, TypeSetEvents, TypeSetSettlements, TypeSetGroups,
	TypeSetState,
}

// Action is a state transition request. The set of implementations is
// closed: only the types in this package satisfy it.
type Action interface {
	Type() ActionType
	action()
}

// AddUser creates a user with a fresh ID. User.ID is ignored.
type AddUser struct {
	User models.User `json:"user"`
}

// UpdateUser merges Patch into the user with ID.
type UpdateUser struct {
	ID    string           `json:"id"`
	Patch models.UserPatch `json:"patch"`
}

// AddExpense creates an expense with a fresh ID and links it to its event
// and group. Expense.ID is ignored.
type AddExpense struct {
	Expense models.Expense `json:"expense"`
}

// UpdateExpense replaces the expense with the same ID.
type UpdateExpense struct {
	Expense models.Expense `json:"expense"`
}

// DeleteExpense removes an expense and unlinks it from events and groups.
type DeleteExpense struct {
	ID string `json:"id"`
}

// AddEvent creates an event with a fresh ID and no expenses.
type AddEvent struct {
	Event models.Event `json:"event"`
}

// UpdateEvent replaces the event with the same ID.
type UpdateEvent struct {
	Event models.Event `json:"event"`
}

// DeleteEvent removes an event. Its expenses survive with EventID cleared.
type DeleteEvent struct {
	ID string `json:"id"`
}

// AddSettlement records a settlement and marks its expenses settled.
type AddSettlement struct {
	Settlement models.Settlement `json:"settlement"`
}

// AddGroup creates a group with a fresh ID.
type AddGroup struct {
	Group models.Group `json:"group"`
}

// UpdateGroup replaces the group with the same ID.
type UpdateGroup struct {
	Group models.Group `json:"group"`
}

// DeleteGroup removes a group and clears GroupID on its events and expenses.
type DeleteGroup struct {
	ID string `json:"id"`
}

// AddMemberToGroup adds UserID to the group's members.
type AddMemberToGroup struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

// RemoveMemberFromGroup removes UserID from the group's members.
type RemoveMemberFromGroup struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

// AddEventToGroup adds EventID to the group's events.
type AddEventToGroup struct {
	GroupID string `json:"groupId"`
	EventID string `json:"eventId"`
}

// RemoveEventFromGroup removes EventID from the group's events.
type RemoveEventFromGroup struct {
	GroupID string `json:"groupId"`
	EventID string `json:"eventId"`
}

// AddExpenseToGroup adds ExpenseID to the group's expenses.
type AddExpenseToGroup struct {
	GroupID   string `json:"groupId"`
	ExpenseID string `json:"expenseId"`
}

// RemoveExpenseFromGroup removes ExpenseID from the group's expenses.
type RemoveExpenseFromGroup struct {
	GroupID   string `json:"groupId"`
	ExpenseID string `json:"expenseId"`
}

// SendFriendRequest records a pending request from From to To.
type SendFriendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// AcceptFriendRequest turns the pending request from From to To into a
// friendship.
type AcceptFriendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RejectFriendRequest drops the pending request from From to To.
type RejectFriendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RemoveFriend ends the friendship between UserID and FriendID.
type RemoveFriend struct {
	UserID   string `json:"userId"`
	FriendID string `json:"friendId"`
}

// SetUsers replaces the users collection with a remote snapshot.
type SetUsers struct {
	Users []models.User `json:"users"`
}

// SetExpenses replaces the expenses collection with a remote snapshot.
type SetExpenses struct {
	Expenses []models.Expense `json:"expenses"`
}

// SetEvents replaces the events collection with a remote snapshot.
type SetEvents struct {
	Events []models.Event `json:"events"`
}

// SetSettlements replaces the settlements collection with a remote snapshot.
type SetSettlements struct {
	Settlements []models.Settlement `json:"settlements"`
}

// SetGroups replaces the groups collection with a remote snapshot.
type SetGroups struct {
	Groups []models.Group `json:"groups"`
}

// SetState merges auxiliary fields that have no dedicated action.
type SetState struct {
	// CurrentUser replaces State.CurrentUser when SetCurrentUser is true;
	// a nil CurrentUser signs the user out.
	CurrentUser    *models.User `json:"currentUser,omitempty"`
	SetCurrentUser bool         `json:"setCurrentUser,omitempty"`

	IsDataLoaded *bool `json:"isDataLoaded,omitempty"`
}

func (AddUser) Type() ActionType                { return TypeAddUser }
func (UpdateUser) Type() ActionType             { return TypeUpdateUser }
func (AddExpense) Type() ActionType             { return TypeAddExpense }
func (UpdateExpense) Type() ActionType          { return TypeUpdateExpense }
func (DeleteExpense) Type() ActionType          { return TypeDeleteExpense }
func (AddEvent) Type() ActionType               { return TypeAddEvent }
func (UpdateEvent) Type() ActionType            { return TypeUpdateEvent }
func (DeleteEvent) Type() ActionType            { return TypeDeleteEvent }
func (AddSettlement) Type() ActionType          { return TypeAddSettlement }
func (AddGroup) Type() ActionType               { return TypeAddGroup }
func (UpdateGroup) Type() ActionType            { return TypeUpdateGroup }
func (DeleteGroup) Type() ActionType            { return TypeDeleteGroup }
func (AddMemberToGroup) Type() ActionType       { return TypeAddMemberToGroup }
func (RemoveMemberFromGroup) Type() ActionType  { return TypeRemoveMemberFromGroup }
func (AddEventToGroup) Type() ActionType        { return TypeAddEventToGroup }
func (RemoveEventFromGroup) Type() ActionType   { return TypeRemoveEventFromGroup }
func (AddExpenseToGroup) Type() ActionType      { return TypeAddExpenseToGroup }
func (RemoveExpenseFromGroup) Type() ActionType { return TypeRemoveExpenseFromGroup }
func (SendFriendRequest) Type() ActionType      { return TypeSendFriendRequest }
func (AcceptFriendRequest) Type() ActionType    { return TypeAcceptFriendRequest }
func (RejectFriendRequest) Type() ActionType    { return TypeRejectFriendRequest }
func (RemoveFriend) Type() ActionType           { return TypeRemoveFriend }
func (SetUsers) Type() ActionType               { return TypeSetUsers }
func (SetExpenses) Type() ActionType            { return TypeSetExpenses }
func (SetEvents) Type() ActionType              { return TypeSetEvents }
func (SetSettlements) Type() ActionType         { return TypeSetSettlements }
func (SetGroups) Type() ActionType              { return TypeSetGroups }
func (SetState) Type() ActionType               { return TypeSetState }

func (AddUser) action()                {}
func (UpdateUser) action()             {}
func (AddExpense) action()             {}
func (UpdateExpense) action()          {}
func (DeleteExpense) action()          {}
func (AddEvent) action()               {}
func (UpdateEvent) action()            {}
func (DeleteEvent) action()            {}
func (AddSettlement) action()          {}
func (AddGroup) action()               {}
func (UpdateGroup) action()            {}
func (DeleteGroup) action()            {}
func (AddMemberToGroup) action()       {}
func (RemoveMemberFromGroup) action()  {}
func (AddEventToGroup) action()        {}
func (RemoveEventFromGroup) action()   {}
func (AddExpenseToGroup) action()      {}
func (RemoveExpenseFromGroup) action() {}
func (SendFriendRequest) action()      {}
func (AcceptFriendRequest) action()    {}
func (RejectFriendRequest) action()    {}
func (RemoveFriend) action()           {}
func (SetUsers) action()               {}
func (SetExpenses) action()            {}
func (SetEvents) action()              {}
func (SetSettlements) action()         {}
func (SetGroups) action()              {}
func (SetState) action()               {}

// IsReplacement reports whether a is a bulk collection replacement. Those
// only come from remote subscriptions.
func IsReplacement(a Action) bool {
	switch a.(type) {
	case SetUsers, SetExpenses, SetEvents, SetSettlements, SetGroups:
		return true
	default:
		return false
	}
}

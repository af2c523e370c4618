package reducer

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned when decoding an action with an unknown tag.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrInvalidPayload is returned when a payload does not fit its tag.
	ErrInvalidPayload = errors.New("invalid action payload")
)

// Envelope is the JSON form of an action: its tag and its payload.
type Envelope struct {
	Type    ActionType      `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps a in an Envelope.
func Encode(a Action) (Envelope, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s: %w", a.Type(), err)
	}
	return Envelope{Type: a.Type(), Payload: payload}, nil
}

// Decode turns an Envelope back into the action it describes.
func Decode(env Envelope) (Action, error) {
	switch env.Type {
	case TypeAddUser:
		return decodeAs[AddUser](env)
	case TypeUpdateUser:
		return decodeAs[UpdateUser](env)
	case TypeAddExpense:
		return decodeAs[AddExpense](env)
	case TypeUpdateExpense:
		return decodeAs[UpdateExpense](env)
	case TypeDeleteExpense:
		return decodeAs[DeleteExpense](env)
	case TypeAddEvent:
		return decodeAs[AddEvent](env)
	case TypeUpdateEvent:
		return decodeAs[UpdateEvent](env)
	case TypeDeleteEvent:
		return decodeAs[DeleteEvent](env)
	case TypeAddSettlement:
		return decodeAs[AddSettlement](env)
	case TypeAddGroup:
		return decodeAs[AddGroup](env)
	case TypeUpdateGroup:
		return decodeAs[UpdateGroup](env)
	case TypeDeleteGroup:
		return decodeAs[DeleteGroup](env)
	case TypeAddMemberToGroup:
		return decodeAs[AddMemberToGroup](env)
	case TypeRemoveMemberFromGroup:
		return decodeAs[RemoveMemberFromGroup](env)
	case TypeAddEventToGroup:
		return decodeAs[AddEventToGroup](env)
	case TypeRemoveEventFromGroup:
		return decodeAs[RemoveEventFromGroup](env)
	case TypeAddExpenseToGroup:
		return decodeAs[AddExpenseToGroup](env)
	case TypeRemoveExpenseFromGroup:
		return decodeAs[RemoveExpenseFromGroup](env)
	case TypeSendFriendRequest:
		return decodeAs[SendFriendRequest](env)
	case TypeAcceptFriendRequest:
		return decodeAs[AcceptFriendRequest](env)
	case TypeRejectFriendRequest:
		return decodeAs[RejectFriendRequest](env)
	case TypeRemoveFriend:
		return decodeAs[RemoveFriend](env)
	case TypeSetUsers:
		return decodeAs[SetUsers](env)
	case TypeSetExpenses:
		return decodeAs[SetExpenses](env)
	case TypeSetEvents:
		return decodeAs[SetEvents](env)
	case TypeSetSettlements:
		return decodeAs[SetSettlements](env)
	case TypeSetGroups:
		return decodeAs[SetGroups](env)
	case TypeSetState:
		return decodeAs[SetState](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}
}

func decodeAs[T Action](env Envelope) (Action, error) {
	var a T
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &a); err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidPayload, env.Type, err)
		}
	}
	return a, nil
}

package reducer

import "github.com/mmynk/justsplit/internal/models"

// The friend transitions touch exactly two users. They leave the state
// unchanged when either user is unknown, so a relation is never recorded on
// one side only.

// CanSendFriendRequest reports whether a request from one user to another
// would be recorded: the users differ, the sender is known and they are not
// friends yet.
func CanSendFriendRequest(s models.State, from, to string) bool {
	if from == to {
		return false
	}
	u, ok := s.User(from)
	return ok && !u.Friends.Has(to)
}

func sendFriendRequest(s models.State, a SendFriendRequest) models.State {
	if !CanSendFriendRequest(s, a.From, a.To) {
		return s
	}
	return patchPair(s, a.From, a.To,
		func(u models.User) models.User {
			u.FriendRequestsSent = u.FriendRequestsSent.Add(a.To)
			return u
		},
		func(u models.User) models.User {
			u.FriendRequestsReceived = u.FriendRequestsReceived.Add(a.From)
			return u
		})
}

func acceptFriendRequest(s models.State, a AcceptFriendRequest) models.State {
	if a.From == a.To {
		return s
	}
	return patchPair(s, a.From, a.To,
		func(u models.User) models.User {
			u.Friends = u.Friends.Add(a.To)
			u.FriendRequestsSent = u.FriendRequestsSent.Remove(a.To)
			u.FriendRequestsReceived = u.FriendRequestsReceived.Remove(a.To)
			return u
		},
		func(u models.User) models.User {
			u.Friends = u.Friends.Add(a.From)
			u.FriendRequestsSent = u.FriendRequestsSent.Remove(a.From)
			u.FriendRequestsReceived = u.FriendRequestsReceived.Remove(a.From)
			return u
		})
}

func rejectFriendRequest(s models.State, a RejectFriendRequest) models.State {
	return patchPair(s, a.From, a.To,
		func(u models.User) models.User {
			u.FriendRequestsSent = u.FriendRequestsSent.Remove(a.To)
			return u
		},
		func(u models.User) models.User {
			u.FriendRequestsReceived = u.FriendRequestsReceived.Remove(a.From)
			return u
		})
}

func removeFriend(s models.State, a RemoveFriend) models.State {
	return patchPair(s, a.UserID, a.FriendID,
		func(u models.User) models.User {
			u.Friends = u.Friends.Remove(a.FriendID)
			return u
		},
		func(u models.User) models.User {
			u.Friends = u.Friends.Remove(a.UserID)
			return u
		})
}

// patchPair applies fa to user a and fb to user b in one new users slice
// and keeps CurrentUser in step.
func patchPair(s models.State, a, b string, fa, fb func(models.User) models.User) models.State {
	ia, ib := -1, -1
	for i, u := range s.Users {
		switch u.ID {
		case a:
			ia = i
		case b:
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return s
	}

	users := make([]models.User, len(s.Users))
	copy(users, s.Users)
	users[ia] = fa(users[ia])
	users[ib] = fb(users[ib])
	s.Users = users

	if id := s.CurrentUserID(); id == a || id == b {
		s = refreshCurrentUser(s)
	}
	return s
}

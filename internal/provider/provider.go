// Package provider composes the state store, the remote sync adapter and
// the authentication state into the surface the HTTP layer talks to.
//
// When a remote adapter is configured the database is authoritative: write
// helpers only write remotely and local state changes when the live queries
// deliver the result. Without one (offline mode) helpers dispatch the
// matching reducer action directly.
package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mmynk/justsplit/internal/auth"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/reducer"
	"github.com/mmynk/justsplit/internal/remote"
	"github.com/mmynk/justsplit/internal/store"
)

// DefaultCurrency is used when neither the user nor the configuration
// names a currency.
const DefaultCurrency = "USD"

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrReplacementAction is returned by Dispatch for collection
	// replacements, which only live queries may produce.
	ErrReplacementAction = errors.New("collection replacements cannot be dispatched")
)

// Remote is the part of the remote sync adapter the provider uses.
type Remote interface {
	AddUser(ctx context.Context, u models.User) (string, error)
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) error
	AddExpense(ctx context.Context, e models.Expense) (string, error)
	UpdateExpense(ctx context.Context, e models.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	AddEvent(ctx context.Context, ev models.Event) (string, error)
	UpdateEvent(ctx context.Context, ev models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	AddSettlement(ctx context.Context, s models.Settlement) (string, error)
	AddGroup(ctx context.Context, g models.Group) (string, error)
	UpdateGroup(ctx context.Context, g models.Group) error
	DeleteGroup(ctx context.Context, id string) error
	AddMemberToGroup(ctx context.Context, groupID, userID string) error
	RemoveMemberFromGroup(ctx context.Context, groupID, userID string) error
	AddEventToGroup(ctx context.Context, groupID, eventID string) error
	RemoveEventFromGroup(ctx context.Context, groupID, eventID string) error
	AddExpenseToGroup(ctx context.Context, groupID, expenseID string) error
	RemoveExpenseFromGroup(ctx context.Context, groupID, expenseID string) error
	SendFriendRequest(ctx context.Context, from, to string) error
	AcceptFriendRequest(ctx context.Context, from, to string) error
	RejectFriendRequest(ctx context.Context, from, to string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	Subscribe(ctx context.Context, userID string, generation uint64) (*remote.Subscription, error)
}

// Ensure the adapter satisfies Remote
var _ Remote = (*remote.Adapter)(nil)

// AuthState is the authentication collaborator's view of the session.
type AuthState struct {
	// CurrentUser is the signed-in account, nil when signed out.
	CurrentUser *auth.Account
	// Profile is the account's user record. When nil a profile is derived
	// from the account.
	Profile *models.User
	// IsLoading is true while sign-in is still in progress; nothing is
	// subscribed until it clears.
	IsLoading bool
}

// userID returns the ID whose data should be loaded, or "".
func (a AuthState) userID() string {
	switch {
	case a.IsLoading:
		return ""
	case a.Profile != nil:
		return a.Profile.ID
	case a.CurrentUser != nil:
		return a.CurrentUser.ID
	default:
		return ""
	}
}

func (a AuthState) profile() *models.User {
	if a.IsLoading {
		return nil
	}
	if a.Profile != nil {
		p := *a.Profile
		return &p
	}
	if a.CurrentUser != nil {
		return &models.User{
			ID:    a.CurrentUser.ID,
			Name:  a.CurrentUser.DisplayName,
			Email: a.CurrentUser.Email,
		}
	}
	return nil
}

// Options configures a Provider.
type Options struct {
	// Store is required.
	Store *store.Store
	// Remote is optional; nil selects offline mode.
	Remote Remote
	// Auth is the initial authentication state.
	Auth AuthState
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// DefaultCurrency overrides DefaultCurrency.
	DefaultCurrency string
}

// Provider is the entry point for reading and changing state.
type Provider struct {
	store           *store.Store
	remote          Remote
	logger          *slog.Logger
	defaultCurrency string

	// mu serialises SetAuth and Close.
	mu     sync.Mutex
	auth   AuthState
	sub    *remote.Subscription
	pumped chan struct{}
	closed bool
}

// New creates a Provider and applies opts.Auth.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	p := &Provider{
		store:           opts.Store,
		remote:          opts.Remote,
		logger:          opts.Logger,
		defaultCurrency: opts.DefaultCurrency,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.defaultCurrency == "" {
		p.defaultCurrency = DefaultCurrency
	}
	p.store.SetLogger(p.logger)

	if err := p.SetAuth(ctx, opts.Auth); err != nil {
		return nil, err
	}
	return p, nil
}

// Offline reports whether helpers act on local state only.
func (p *Provider) Offline() bool {
	return p.remote == nil
}

// Auth returns the current authentication state.
func (p *Provider) Auth() AuthState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.auth
}

// SetAuth switches the provider to a new authentication state. The old
// subscription is closed before anything else so no data of the previous
// user can reach the store afterwards. When the signed-in user changes the
// state is cleared.
func (p *Provider) SetAuth(ctx context.Context, a AuthState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("provider closed")
	}

	p.stopLocked()
	gen := p.store.NextGeneration()

	previous := p.store.Snapshot().CurrentUserID()
	next := a.profile()
	if previous != "" && (next == nil || next.ID != previous) {
		p.store.Reset(models.State{})
	}
	p.store.Dispatch(reducer.SetState{CurrentUser: next, SetCurrentUser: true})
	p.auth = a

	userID := a.userID()
	if userID == "" {
		return nil
	}
	if p.remote == nil {
		p.ensureLocalProfile(next)
		return nil
	}

	sub, err := p.remote.Subscribe(context.WithoutCancel(ctx), userID, gen)
	if err != nil {
		return err
	}
	p.sub = sub
	p.pumped = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		p.store.Consume(context.Background(), sub.C)
	}(p.pumped)

	p.logger.Info("Provider signed in", "user_id", userID, "generation", gen)
	return nil
}

// ensureLocalProfile adds the signed-in profile to the users list in
// offline mode, where no subscription will deliver it.
func (p *Provider) ensureLocalProfile(profile *models.User) {
	s := p.store.Snapshot()
	if _, ok := s.User(profile.ID); ok {
		return
	}
	users := make([]models.User, len(s.Users), len(s.Users)+1)
	copy(users, s.Users)
	s.Users = append(users, *profile)
	p.store.Reset(s)
}

// stopLocked closes the subscription and waits for the pump to drain.
func (p *Provider) stopLocked() {
	if p.sub == nil {
		return
	}
	p.sub.Close()
	<-p.pumped
	p.sub = nil
	p.pumped = nil
}

// Close releases the subscription. The provider cannot be used afterwards.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
}

// Snapshot returns the current state.
func (p *Provider) Snapshot() models.State {
	return p.store.Snapshot()
}

// Watch forwards store change signals until ctx is done.
func (p *Provider) Watch(ctx context.Context) <-chan struct{} {
	return p.store.Watch(ctx)
}

// Dispatch applies a local action. Collection replacements are refused.
func (p *Provider) Dispatch(a reducer.Action) (models.State, error) {
	if reducer.IsReplacement(a) {
		return models.State{}, ErrReplacementAction
	}
	return p.store.Dispatch(a), nil
}

// PreferredCurrency returns the signed-in user's currency, else the
// configured default.
func (p *Provider) PreferredCurrency() string {
	if u := p.store.Snapshot().CurrentUser; u != nil && u.PreferredCurrency != "" {
		return u.PreferredCurrency
	}
	return p.defaultCurrency
}

package provider

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmynk/justsplit/internal/auth"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/reducer"
	"github.com/mmynk/justsplit/internal/store"
)

// PoolOptions configures a Pool.
type PoolOptions struct {
	Remote          Remote
	Logger          *slog.Logger
	DefaultCurrency string
	// NewReducer builds the reducer of each session's store. Defaults to
	// reducer.New(nil).
	NewReducer func() *reducer.Reducer
}

// Pool keeps one Provider per signed-in account, each with its own store
// and subscription.
type Pool struct {
	opts PoolOptions

	mu        sync.Mutex
	providers map[string]*Provider
}

// NewPool creates an empty Pool.
func NewPool(opts PoolOptions) *Pool {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewReducer == nil {
		opts.NewReducer = func() *reducer.Reducer { return reducer.New(nil) }
	}
	return &Pool{opts: opts, providers: make(map[string]*Provider)}
}

// Get returns the provider of account, creating and signing it in on first
// use.
func (p *Pool) Get(ctx context.Context, account *auth.Account) (*Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prov, ok := p.providers[account.ID]; ok {
		return prov, nil
	}

	prov, err := New(ctx, Options{
		Store:           store.New(models.State{}, p.opts.NewReducer()),
		Remote:          p.opts.Remote,
		Auth:            AuthState{CurrentUser: account},
		Logger:          p.opts.Logger.With("account_id", account.ID),
		DefaultCurrency: p.opts.DefaultCurrency,
	})
	if err != nil {
		return nil, err
	}
	p.providers[account.ID] = prov
	return prov, nil
}

// Release closes and forgets the provider of accountID, if any.
func (p *Pool) Release(accountID string) {
	p.mu.Lock()
	prov, ok := p.providers[accountID]
	delete(p.providers, accountID)
	p.mu.Unlock()

	if ok {
		prov.Close()
	}
}

// Len returns the number of open sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.providers)
}

// Close releases every provider.
func (p *Pool) Close() {
	p.mu.Lock()
	providers := p.providers
	p.providers = make(map[string]*Provider)
	p.mu.Unlock()

	for _, prov := range providers {
		prov.Close()
	}
}

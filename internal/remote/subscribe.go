package remote

import (
	"context"
	"errors"
	"sync"

	"github.com/mmynk/justsplit/internal/metrics"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/reducer"
	"github.com/mmynk/justsplit/internal/storage"
)

// ErrNoUser is returned by Subscribe when no user ID is given.
var ErrNoUser = errors.New("user ID required")

// Replacement carries a fresh copy of one collection. Generation identifies
// the subscription that produced it so the consumer can drop messages from
// a subscription that has since been replaced.
type Replacement struct {
	Generation uint64
	Collection models.Collection
	Action     reducer.Action
}

// Subscription is a set of live queries for one user.
type Subscription struct {
	// C receives a Replacement whenever a collection changes. It is closed
	// once every live query has stopped.
	C <-chan Replacement

	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops every live query and waits until C is closed. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Subscribe opens the live queries that feed the state of userID:
//   - users: every user, so friends can be found
//   - expenses the user participates in
//   - events the user is a member of
//   - settlements the user pays or receives
//   - groups the user is a member of
//
// A query that fails is logged and counted; its collection stops updating
// while the others carry on.
func (a *Adapter) Subscribe(ctx context.Context, userID string, generation uint64) (*Subscription, error) {
	if userID == "" {
		return nil, ErrNoUser
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Replacement, len(models.Collections))
	done := make(chan struct{})
	w := &watcher{
		adapter:    a,
		userID:     userID,
		generation: generation,
		out:        out,
	}

	w.watch(ctx, models.CollectionUsers, storage.Collection(users),
		func(docs []storage.Document) reducer.Action {
			return reducer.SetUsers{Users: decodeUsers(docs, w.report(models.CollectionUsers))}
		})
	w.watch(ctx, models.CollectionExpenses,
		storage.Collection(expenses).Where("participants", storage.OpArrayContains, userID),
		func(docs []storage.Document) reducer.Action {
			return reducer.SetExpenses{Expenses: decodeExpenses(docs, w.report(models.CollectionExpenses))}
		})
	w.watch(ctx, models.CollectionEvents,
		storage.Collection(events).Where("members", storage.OpArrayContains, userID),
		func(docs []storage.Document) reducer.Action {
			return reducer.SetEvents{Events: decodeEvents(docs, w.report(models.CollectionEvents))}
		})
	w.watchSettlements(ctx)
	w.watch(ctx, models.CollectionGroups,
		storage.Collection(groups).Where("members", storage.OpArrayContains, userID),
		func(docs []storage.Document) reducer.Action {
			return reducer.SetGroups{Groups: decodeGroups(docs, w.report(models.CollectionGroups))}
		})

	metrics.ActiveSubscriptions.Inc()
	a.logger.Info("Subscribed to remote collections", "user_id", userID, "generation", generation)

	go func() {
		w.wg.Wait()
		close(out)
		metrics.ActiveSubscriptions.Dec()
		a.logger.Debug("Remote subscription closed", "user_id", userID, "generation", generation)
		close(done)
	}()

	return &Subscription{C: out, cancel: cancel, done: done}, nil
}

// watcher runs the live queries of one subscription.
type watcher struct {
	adapter    *Adapter
	userID     string
	generation uint64
	out        chan<- Replacement
	wg         sync.WaitGroup
}

// watch forwards every result set of q as a Replacement built by build.
func (w *watcher) watch(ctx context.Context, c models.Collection, q storage.Query, build func([]storage.Document) reducer.Action) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		for snap := range w.adapter.db.Listen(ctx, q) {
			if snap.Err != nil {
				w.failed(c, snap.Err)
				return
			}
			if !w.emit(ctx, c, build(snap.Docs)) {
				return
			}
		}
	}()
}

// watchSettlements merges the settlements the user pays with the ones the
// user receives. Nothing is emitted until both queries have answered once.
func (w *watcher) watchSettlements(ctx context.Context) {
	c := models.CollectionSettlements
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		db := w.adapter.db
		from := db.Listen(ctx, storage.Collection(settlements).Where("fromUser", storage.OpEqual, w.userID))
		to := db.Listen(ctx, storage.Collection(settlements).Where("toUser", storage.OpEqual, w.userID))

		var fromDocs, toDocs []storage.Document
		var haveFrom, haveTo bool
		for from != nil || to != nil {
			select {
			case snap, ok := <-from:
				if !ok {
					from = nil
					continue
				}
				if snap.Err != nil {
					w.failed(c, snap.Err)
					return
				}
				fromDocs, haveFrom = snap.Docs, true
			case snap, ok := <-to:
				if !ok {
					to = nil
					continue
				}
				if snap.Err != nil {
					w.failed(c, snap.Err)
					return
				}
				toDocs, haveTo = snap.Docs, true
			case <-ctx.Done():
				return
			}

			if !haveFrom || !haveTo {
				continue
			}
			docs := mergeDocs(fromDocs, toDocs)
			action := reducer.SetSettlements{Settlements: decodeSettlements(docs, w.report(c))}
			if !w.emit(ctx, c, action) {
				return
			}
		}
	}()
}

func (w *watcher) emit(ctx context.Context, c models.Collection, action reducer.Action) bool {
	select {
	case w.out <- Replacement{Generation: w.generation, Collection: c, Action: action}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *watcher) failed(c models.Collection, err error) {
	metrics.SubscriptionErrorsTotal.WithLabelValues(string(c)).Inc()
	w.adapter.logger.Error("Remote subscription failed",
		"collection", c,
		"user_id", w.userID,
		"error", err,
	)
}

// report returns a sink for documents of c that could not be decoded.
func (w *watcher) report(c models.Collection) func(error) {
	return func(err error) {
		w.adapter.logger.Warn("Skipping malformed document", "collection", c, "error", err)
	}
}

// mergeDocs concatenates result sets, keeping the first copy of a document
// that appears in more than one.
func mergeDocs(sets ...[]storage.Document) []storage.Document {
	seen := make(map[string]bool)
	var out []storage.Document
	for _, set := range sets {
		for _, d := range set {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			out = append(out, d)
		}
	}
	return out
}

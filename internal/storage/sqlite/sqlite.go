// Package sqlite provides a SQLite-backed implementation of the
// storage.DocumentStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/justsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.DocumentStore
var _ storage.DocumentStore = (*SQLiteStore)(nil)

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Notifier carries change notifications between processes that share one
// database file. Publish is called after every committed batch; Subscribe
// blocks until ctx is done and reports collections changed elsewhere.
type Notifier interface {
	Publish(ctx context.Context, collection string) error
	Subscribe(ctx context.Context, fn func(collection string)) error
}

// SQLiteStore implements storage.DocumentStore using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	hub      *hub
	notifier Notifier
	newID    func() string
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithNotifier shares change notifications with other processes.
func WithNotifier(n Notifier) Option {
	return func(s *SQLiteStore) {
		s.notifier = n
	}
}

// WithClock overrides the clock used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string, opts ...Option) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serialises writers; live queries wait their turn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &SQLiteStore{
		db:    db,
		hub:   newHub(),
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if s.notifier != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.notifier.Subscribe(ctx, s.hub.notify); err != nil && ctx.Err() == nil {
				slog.Error("Change notifier stopped", "error", err)
			}
		}()
	}

	return s, nil
}

// Close stops live queries and closes the database connection.
func (s *SQLiteStore) Close() error {
	s.cancel()
	s.hub.close()
	s.wg.Wait()
	return s.db.Close()
}

// Create persists a new document and returns its generated ID.
func (s *SQLiteStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	b := s.NewBatch()
	id := b.Create(collection, data)
	if err := b.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or overwrites a document.
func (s *SQLiteStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	b := s.NewBatch()
	b.Set(collection, id, data)
	return b.Commit(ctx)
}

// Update merges fields into an existing document.
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	b := s.NewBatch()
	b.Update(collection, id, data)
	return b.Commit(ctx)
}

// Delete removes a document.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	b := s.NewBatch()
	b.Delete(collection, id)
	return b.Commit(ctx)
}

// Get retrieves a document by ID.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return storage.Document{}, fmt.Errorf("%w: %s/%s", storage.ErrNotFound, collection, id)
	}
	if err != nil {
		return storage.Document{}, fmt.Errorf("failed to get document: %w", err)
	}

	data, err := decodeDoc(raw)
	if err != nil {
		return storage.Document{}, err
	}
	return storage.Document{ID: id, Data: data}, nil
}

// Find runs a query once. Results are ordered by creation time.
func (s *SQLiteStore) Find(ctx context.Context, q storage.Query) ([]storage.Document, error) {
	query, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	docs := []storage.Document{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		data, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, storage.Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// Listen runs q as a live query.
func (s *SQLiteStore) Listen(ctx context.Context, q storage.Query) <-chan storage.Snapshot {
	out := make(chan storage.Snapshot)
	l := s.hub.add(q.Collection)

	go func() {
		defer close(out)
		defer s.hub.remove(l)

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.hub.done:
				return
			case <-l.signal:
			}

			docs, err := s.Find(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case out <- storage.Snapshot{Err: err}:
				case <-ctx.Done():
				case <-s.hub.done:
				}
				return
			}

			select {
			case out <- storage.Snapshot{Docs: docs}:
			case <-ctx.Done():
				return
			case <-s.hub.done:
				return
			}
		}
	}()

	return out
}

// buildQuery turns a storage.Query into SQL. Field names are validated and
// passed as JSON paths, never spliced into the statement.
func buildQuery(q storage.Query) (string, []any, error) {
	if q.Collection == "" {
		return "", nil, fmt.Errorf("%w: collection required", storage.ErrInvalidQuery)
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, data FROM documents WHERE collection = ?")
	args := []any{q.Collection}

	for _, f := range q.Filters {
		if !fieldName.MatchString(f.Field) {
			return "", nil, fmt.Errorf("%w: bad field name %q", storage.ErrInvalidQuery, f.Field)
		}
		path := "$." + f.Field
		switch f.Op {
		case storage.OpEqual:
			sb.WriteString(" AND json_extract(data, ?) = ?")
			args = append(args, path, f.Value)
		case storage.OpArrayContains:
			sb.WriteString(" AND EXISTS (SELECT 1 FROM json_each(data, ?) WHERE json_each.value = ?)")
			args = append(args, path, f.Value)
		default:
			return "", nil, fmt.Errorf("%w: unsupported operator %q", storage.ErrInvalidQuery, f.Op)
		}
	}

	sb.WriteString(" ORDER BY created_at, id")
	return sb.String(), args, nil
}

func decodeDoc(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return decodeValue(data).(map[string]any), nil
}

// Package firestore provides a Cloud Firestore implementation of the
// storage.DocumentStore interface.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mmynk/justsplit/internal/storage"
)

// Ensure FirestoreStore implements storage.DocumentStore
var _ storage.DocumentStore = (*FirestoreStore)(nil)

// FirestoreStore implements storage.DocumentStore on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// New connects to the Firestore database of projectID. When the
// FIRESTORE_EMULATOR_HOST environment variable is set the client talks to the
// emulator instead.
func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, errors.New("firestore project ID required")
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close closes the client connection.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// Create persists a new document with a generated ID.
func (s *FirestoreStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	fields, err := toFirestore(data)
	if err != nil {
		return "", err
	}
	ref := s.client.Collection(collection).NewDoc()
	if _, err := ref.Create(ctx, fields); err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	return ref.ID, nil
}

// Set creates or overwrites a document.
func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	fields, err := toFirestore(data)
	if err != nil {
		return err
	}
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, fields); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

// Update merges fields into an existing document.
func (s *FirestoreStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	updates, err := toUpdates(data)
	if err != nil {
		return err
	}
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return wrapErr("failed to update document", collection, id, err)
	}
	return nil
}

// Delete removes a document.
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID.
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return storage.Document{}, wrapErr("failed to get document", collection, id, err)
	}
	return storage.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

// Find runs a query once.
func (s *FirestoreStore) Find(ctx context.Context, q storage.Query) ([]storage.Document, error) {
	fq, err := s.query(q)
	if err != nil {
		return nil, err
	}
	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	return toDocuments(snaps), nil
}

// Listen runs q as a live query on Firestore's snapshot listener.
func (s *FirestoreStore) Listen(ctx context.Context, q storage.Query) <-chan storage.Snapshot {
	out := make(chan storage.Snapshot)

	go func() {
		defer close(out)

		fq, err := s.query(q)
		if err != nil {
			select {
			case out <- storage.Snapshot{Err: err}:
			case <-ctx.Done():
			}
			return
		}

		it := fq.Snapshots(ctx)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				select {
				case out <- storage.Snapshot{Err: fmt.Errorf("listener on %s failed: %w", q.Collection, err)}:
				case <-ctx.Done():
				}
				return
			}

			snaps, err := qs.Documents.GetAll()
			if err != nil {
				select {
				case out <- storage.Snapshot{Err: fmt.Errorf("failed to read snapshot of %s: %w", q.Collection, err)}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case out <- storage.Snapshot{Docs: toDocuments(snaps)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// NewBatch starts a group of writes applied in one transaction.
func (s *FirestoreStore) NewBatch() storage.Batch {
	return &batch{store: s}
}

func (s *FirestoreStore) query(q storage.Query) (firestore.Query, error) {
	if q.Collection == "" {
		return firestore.Query{}, fmt.Errorf("%w: collection required", storage.ErrInvalidQuery)
	}
	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		switch f.Op {
		case storage.OpEqual, storage.OpArrayContains:
			fq = fq.Where(f.Field, string(f.Op), f.Value)
		default:
			return firestore.Query{}, fmt.Errorf("%w: unsupported operator %q", storage.ErrInvalidQuery, f.Op)
		}
	}
	return fq, nil
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []storage.Document {
	docs := make([]storage.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, storage.Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs
}

func wrapErr(msg, collection, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w: %s/%s", msg, storage.ErrNotFound, collection, id)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mmynk/justsplit/internal/storage"
)

type batchOp func(tx *firestore.Transaction) error

// batch collects writes and applies them inside one Firestore transaction.
type batch struct {
	store *FirestoreStore
	ops   []batchOp
	err   error
}

func (b *batch) Create(collection string, data map[string]any) string {
	ref := b.store.client.Collection(collection).NewDoc()
	fields, err := toFirestore(data)
	if err != nil {
		b.fail(err)
		return ref.ID
	}
	b.ops = append(b.ops, func(tx *firestore.Transaction) error {
		return tx.Create(ref, fields)
	})
	return ref.ID
}

func (b *batch) Set(collection, id string, data map[string]any) {
	ref := b.store.client.Collection(collection).Doc(id)
	fields, err := toFirestore(data)
	if err != nil {
		b.fail(err)
		return
	}
	b.ops = append(b.ops, func(tx *firestore.Transaction) error {
		return tx.Set(ref, fields)
	})
}

func (b *batch) Update(collection, id string, data map[string]any) {
	ref := b.store.client.Collection(collection).Doc(id)
	updates, err := toUpdates(data)
	if err != nil {
		b.fail(err)
		return
	}
	b.ops = append(b.ops, func(tx *firestore.Transaction) error {
		return tx.Update(ref, updates)
	})
}

func (b *batch) Delete(collection, id string) {
	ref := b.store.client.Collection(collection).Doc(id)
	b.ops = append(b.ops, func(tx *firestore.Transaction) error {
		return tx.Delete(ref)
	})
}

// Commit runs every write in a single transaction.
func (b *batch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if len(b.ops) == 0 {
		return nil
	}
	err := b.store.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, op := range b.ops {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("failed to commit batch: %w", storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (b *batch) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

var _ storage.Batch = (*batch)(nil)

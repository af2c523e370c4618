package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/justsplit/internal/storage"
)

type opKind int

const (
	opSet opKind = iota
	opUpdate
	opDelete
)

type batchOp struct {
	kind       opKind
	collection string
	id         string
	data       map[string]any
}

// batch applies its writes in a single SQL transaction.
type batch struct {
	store *SQLiteStore
	ops   []batchOp
}

// NewBatch starts an atomic group of writes.
func (s *SQLiteStore) NewBatch() storage.Batch {
	return &batch{store: s}
}

func (b *batch) Create(collection string, data map[string]any) string {
	id := b.store.newID()
	b.Set(collection, id, data)
	return id
}

func (b *batch) Set(collection, id string, data map[string]any) {
	b.ops = append(b.ops, batchOp{kind: opSet, collection: collection, id: id, data: data})
}

func (b *batch) Update(collection, id string, data map[string]any) {
	b.ops = append(b.ops, batchOp{kind: opUpdate, collection: collection, id: id, data: data})
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{kind: opDelete, collection: collection, id: id})
}

// Commit applies every write or none of them, then wakes live queries on the
// touched collections.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := b.store.now()
	touched := make(map[string]bool)

	for _, op := range b.ops {
		switch op.kind {
		case opSet:
			err = b.applySet(ctx, tx, op, now)
		case opUpdate:
			err = b.applyUpdate(ctx, tx, op, now)
		case opDelete:
			_, err = tx.ExecContext(ctx,
				"DELETE FROM documents WHERE collection = ? AND id = ?",
				op.collection, op.id,
			)
			if err != nil {
				err = fmt.Errorf("failed to delete document: %w", err)
			}
		}
		if err != nil {
			return err
		}
		touched[op.collection] = true
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for collection := range touched {
		b.store.hub.notify(collection)
		if b.store.notifier != nil {
			// The write is durable already; a lost notification only delays
			// other processes until their next change.
			if err := b.store.notifier.Publish(ctx, collection); err != nil {
				slog.Warn("Failed to publish change", "collection", collection, "error", err)
			}
		}
	}

	return nil
}

func (b *batch) applySet(ctx context.Context, tx *sql.Tx, op batchOp, now time.Time) error {
	doc, err := encodeDoc(op.data, now)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		op.collection, op.id, string(raw), now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func (b *batch) applyUpdate(ctx context.Context, tx *sql.Tx, op batchOp, now time.Time) error {
	var raw string
	err := tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		op.collection, op.id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s/%s", storage.ErrNotFound, op.collection, op.id)
	}
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	// Merge on the raw JSON form so stored timestamps keep their tagged shape.
	var current map[string]any
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	for k, v := range op.data {
		merged, err := mergeValue(k, current[k], v, now)
		if err != nil {
			return err
		}
		current[k] = merged
	}

	updated, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?",
		string(updated), now.UnixNano(), op.collection, op.id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

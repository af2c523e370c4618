// Package storage provides abstractions for the document database that is
// the system of record for JustSplit.
//
// Backends hold schemaless documents grouped in collections. The interface
// mirrors what a hosted document database offers: generated identifiers,
// merge updates with array transforms, atomic multi-document batches and
// live queries that push a fresh result set whenever a matching document
// changes.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidQuery is returned for filters a backend cannot evaluate.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrAbsentValue is returned when a payload still carries the Absent
	// marker. Run payloads through Sanitize first.
	ErrAbsentValue = errors.New("unsupported field value: absent")
)

// Document is a stored document with its identifier.
type Document struct {
	ID   string
	Data map[string]any
}

// Operator is a query filter operator.
type Operator string

const (
	// OpEqual matches documents whose field equals the value.
	OpEqual Operator = "=="
	// OpArrayContains matches documents whose array field contains the value.
	OpArrayContains Operator = "array-contains"
)

// Filter restricts a query on one field.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Query selects documents of one collection. All filters must match.
type Query struct {
	Collection string
	Filters    []Filter
}

// Where returns a copy of q with an extra filter.
func (q Query) Where(field string, op Operator, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Collection starts a query over every document of a collection.
func Collection(name string) Query {
	return Query{Collection: name}
}

// Snapshot is one delivery of a live query: either the complete current
// result set or a terminal error.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Batch groups writes that are applied atomically by Commit: either every
// write lands or none does.
type Batch interface {
	// Create adds a new document and returns its generated ID.
	Create(collection string, data map[string]any) string

	// Set creates or overwrites a document.
	Set(collection, id string, data map[string]any)

	// Update merges fields into an existing document. Commit fails with
	// ErrNotFound if the document is missing.
	Update(collection, id string, data map[string]any)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(collection, id string)

	// Commit applies the writes.
	Commit(ctx context.Context) error
}

// DocumentStore defines the document database operations used by the sync
// adapter and the account store. Payloads passed to write methods must have
// been through Sanitize; backends reject the Absent marker.
type DocumentStore interface {
	// Create persists a new document and returns the generated ID.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)

	// Set creates or overwrites the document with the given ID.
	Set(ctx context.Context, collection, id string, data map[string]any) error

	// Update merges fields into an existing document.
	// Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, data map[string]any) error

	// Delete removes a document by ID.
	Delete(ctx context.Context, collection, id string) error

	// Get retrieves a document by ID.
	// Returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Find runs a query once.
	Find(ctx context.Context, q Query) ([]Document, error)

	// NewBatch starts an atomic group of writes.
	NewBatch() Batch

	// Listen runs q as a live query. The current result set is delivered
	// first, then a new one after every change to a matching collection.
	// The channel is closed when ctx is done or after a Snapshot carrying an
	// error.
	Listen(ctx context.Context, q Query) <-chan Snapshot

	// Close releases any resources held by the store.
	Close() error
}

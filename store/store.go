package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names used across the application.
const (
	Campaigns     = "campaigns"
	Foundations   = "foundations"
	Users         = "users"
	Categories    = "categories"
	Contributions = "contributions"
)

var (
	ErrNotFound  = errors.New("store: document not found")
	ErrNoSortKey = errors.New("store: paginated query requires a sort key")
)

// Filter is a set of equality predicates combined with logical AND. No OR,
// no range operators; the only ordering constraint a query carries is its
// sort key.
type Filter map[string]any

// Cursor marks the last document of a page under a given ordering. It is
// opaque to callers; a cursor obtained under a different sort key or filter
// combination is undefined behavior and is not validated.
type Cursor struct {
	Key any
	ID  primitive.ObjectID
}

// Query describes a filtered, ordered, cursor-limited read. The sort key is
// required at construction so that an unordered paginated query cannot be
// expressed; it breaks ties on _id to keep the cursor well-defined.
type Query struct {
	sortKey string
	filter  Filter
	after   *Cursor
	limit   int64
}

func NewQuery(sortKey string, filter Filter) Query {
	return Query{sortKey: sortKey, filter: filter}
}

// After resumes the query after the given cursor. A nil cursor means the
// first page.
func (q Query) After(c *Cursor) Query {
	q.after = c
	return q
}

// Limit caps the page size. Zero or negative means no limit: the caller is
// asking for all matching documents.
func (q Query) Limit(n int64) Query {
	q.limit = n
	return q
}

func (q Query) SortKey() string    { return q.sortKey }
func (q Query) EqFilter() Filter   { return q.filter }
func (q Query) AfterCursor() *Cursor { return q.after }
func (q Query) PageLimit() int64   { return q.limit }

// Collection is the slice of document-store behavior this application
// depends on: equality-filtered cursor pagination, server-side counts, and
// single-document field writes. The Mongo implementation lives in this
// package; testutil provides an in-memory one with the same semantics.
type Collection interface {
	// InsertOne stores a new document. The caller assigns the id.
	InsertOne(ctx context.Context, doc any) error
	// FindByID decodes the document with the given id into out, or returns
	// ErrNotFound.
	FindByID(ctx context.Context, id primitive.ObjectID, out any) error
	// Find decodes all documents matching q into out, which must be a
	// pointer to a slice. Returns ErrNoSortKey for a zero-value query.
	Find(ctx context.Context, q Query, out any) error
	// Count returns the number of matching documents without transferring
	// them.
	Count(ctx context.Context, f Filter) (int64, error)
	// SetFields overwrites the given fields on one document. Last write
	// wins; there is no optimistic concurrency check.
	SetFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error
	// IncFields atomically increments numeric fields on one document.
	IncFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error
}

// Store hands out collections by name.
type Store interface {
	Collection(name string) Collection
}

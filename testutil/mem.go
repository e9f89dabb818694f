// Package testutil provides an in-memory store.Collection used by service
// tests. It mirrors the Mongo adapter's semantics: equality filters,
// (sortKey, _id) ordering, start-after cursors, limits, and server-side
// counts, over documents normalized through bson round-trips so stored
// values look exactly like they would coming off the wire.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givers/givers-backend/store"
)

// Mem is an in-memory store.Store.
type Mem struct {
	mu    sync.Mutex
	colls map[string]*MemCollection
}

func NewMem() *Mem {
	return &Mem{colls: make(map[string]*MemCollection)}
}

func (m *Mem) Collection(name string) store.Collection {
	return m.Coll(name)
}

// Coll returns the concrete collection so tests can seed and inspect it.
func (m *Mem) Coll(name string) *MemCollection {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.colls[name]
	if !ok {
		c = &MemCollection{}
		m.colls[name] = c
	}
	return c
}

type MemCollection struct {
	mu      sync.Mutex
	docs    []bson.M
	failErr error
}

// FailNext makes the next operation on the collection return err, for
// exercising degraded read paths and fatal counter failures.
func (c *MemCollection) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failErr = err
}

func (c *MemCollection) takeFailure() error {
	err := c.failErr
	c.failErr = nil
	return err
}

// Put seeds a raw document, normalized through bson. Malformed field values
// (for example a string where an array belongs) survive as stored.
func (c *MemCollection) Put(doc any) primitive.ObjectID {
	m, err := toM(doc)
	if err != nil {
		panic(fmt.Sprintf("testutil: cannot seed document: %v", err))
	}
	id, ok := m["_id"].(primitive.ObjectID)
	if !ok || id.IsZero() {
		id = primitive.NewObjectID()
		m["_id"] = id
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, m)
	return id
}

// Len reports the number of stored documents.
func (c *MemCollection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Raw returns the stored form of one document.
func (c *MemCollection) Raw(id primitive.ObjectID) (bson.M, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		if oid, ok := d["_id"].(primitive.ObjectID); ok && oid == id {
			return d, true
		}
	}
	return nil, false
}

func (c *MemCollection) InsertOne(ctx context.Context, doc any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	m, err := toM(doc)
	if err != nil {
		return err
	}
	c.docs = append(c.docs, m)
	return nil
}

func (c *MemCollection) FindByID(ctx context.Context, id primitive.ObjectID, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	for _, d := range c.docs {
		if oid, ok := d["_id"].(primitive.ObjectID); ok && oid == id {
			return decodeInto(d, out)
		}
	}
	return store.ErrNotFound
}

func (c *MemCollection) Find(ctx context.Context, q store.Query, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	key := q.SortKey()
	if key == "" {
		return store.ErrNoSortKey
	}

	var matched []bson.M
	for _, d := range c.docs {
		if matches(d, q.EqFilter()) {
			matched = append(matched, d)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if cmp := compare(sortVal(matched[i], key), sortVal(matched[j], key)); cmp != 0 {
			return cmp < 0
		}
		return idLess(matched[i], matched[j])
	})

	if cur := q.AfterCursor(); cur != nil {
		curKey := normalize(cur.Key)
		var page []bson.M
		for _, d := range matched {
			cmp := compare(sortVal(d, key), curKey)
			if key == "_id" {
				cmp = compareIDs(docID(d), cur.ID)
			}
			if cmp > 0 || (cmp == 0 && compareIDs(docID(d), cur.ID) > 0) {
				page = append(page, d)
			}
		}
		matched = page
	}

	if limit := q.PageLimit(); limit > 0 && int64(len(matched)) > limit {
		matched = matched[:limit]
	}

	return decodeSlice(matched, out)
}

func (c *MemCollection) Count(ctx context.Context, f store.Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return 0, err
	}
	var n int64
	for _, d := range c.docs {
		if matches(d, f) {
			n++
		}
	}
	return n, nil
}

func (c *MemCollection) SetFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	for _, d := range c.docs {
		if oid, ok := d["_id"].(primitive.ObjectID); ok && oid == id {
			for k, v := range fields {
				d[k] = normalize(v)
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (c *MemCollection) IncFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	for _, d := range c.docs {
		if oid, ok := d["_id"].(primitive.ObjectID); ok && oid == id {
			for k, v := range fields {
				d[k] = addNumeric(d[k], normalize(v))
			}
			return nil
		}
	}
	return store.ErrNotFound
}

// toM normalizes any document through a bson round-trip.
func toM(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// normalize puts a single Go value through the same round-trip.
func normalize(v any) any {
	m, err := toM(bson.M{"v": v})
	if err != nil {
		return v
	}
	return m["v"]
}

func decodeInto(d bson.M, out any) error {
	raw, err := bson.Marshal(d)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func decodeSlice(docs []bson.M, out any) error {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("testutil: Find result must be a pointer to a slice, got %T", out)
	}
	slice := reflect.MakeSlice(v.Elem().Type(), 0, len(docs))
	for _, d := range docs {
		elem := reflect.New(v.Elem().Type().Elem())
		if err := decodeInto(d, elem.Interface()); err != nil {
			return err
		}
		slice = reflect.Append(slice, elem.Elem())
	}
	v.Elem().Set(slice)
	return nil
}

func matches(d bson.M, f store.Filter) bool {
	for k, want := range f {
		if compare(d[k], normalize(want)) != 0 {
			return false
		}
	}
	return true
}

func docID(d bson.M) primitive.ObjectID {
	id, _ := d["_id"].(primitive.ObjectID)
	return id
}

func idLess(a, b bson.M) bool {
	return compareIDs(docID(a), docID(b)) < 0
}

func compareIDs(a, b primitive.ObjectID) int {
	return bytes.Compare(a[:], b[:])
}

func sortVal(d bson.M, key string) any {
	if key == "_id" {
		return docID(d)
	}
	return d[key]
}

// compare orders two normalized bson values. Values of different kinds
// compare unequal but stably (by kind name), which is enough for the
// equality filters and homogeneous sort keys used here.
func compare(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case primitive.ObjectID:
		if bv, ok := b.(primitive.ObjectID); ok {
			return compareIDs(av, bv)
		}
	}
	if reflect.DeepEqual(a, b) {
		return 0
	}
	ak := fmt.Sprintf("%T", a)
	bk := fmt.Sprintf("%T", b)
	if ak < bk {
		return -1
	}
	return 1
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case primitive.DateTime:
		return float64(n), true
	}
	return 0, false
}

func addNumeric(cur, delta any) any {
	cf, _ := asFloat(cur)
	df, _ := asFloat(delta)
	switch cur.(type) {
	case int32, int64:
		switch delta.(type) {
		case int32, int64:
			return int64(cf) + int64(df)
		}
	case nil:
		return delta
	}
	return cf + df
}

package models

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Ref identifies a related document in another collection. It is the only
// representation of a foreign key that crosses layer boundaries: callers see
// an opaque id, never a live driver handle.
//
// Decoding is deliberately forgiving. Legacy documents hold a mix of
// ObjectIDs, hex strings, and the occasional junk value where a reference
// was expected; any stored value that cannot be read as an id leaves the
// Ref absent instead of failing the whole document.
type Ref struct {
	id primitive.ObjectID
	ok bool
}

// NewRef wraps an ObjectID in a present Ref.
func NewRef(id primitive.ObjectID) Ref {
	return Ref{id: id, ok: true}
}

// RefFromHex parses a hex id. An unparseable string yields an absent Ref.
func RefFromHex(s string) Ref {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return Ref{}
	}
	return Ref{id: oid, ok: true}
}

// OK reports whether the reference is present.
func (r Ref) OK() bool { return r.ok }

// ID returns the referenced document id. Only meaningful when OK.
func (r Ref) ID() primitive.ObjectID { return r.id }

// Hex returns the hex form of the id, or "" when absent.
func (r Ref) Hex() string {
	if !r.ok {
		return ""
	}
	return r.id.Hex()
}

func (r Ref) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !r.ok {
		return bson.TypeNull, nil, nil
	}
	return bson.TypeObjectID, bsoncore.AppendObjectID(nil, r.id), nil
}

func (r *Ref) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*r = Ref{}
	switch t {
	case bson.TypeObjectID:
		if oid, _, ok := bsoncore.ReadObjectID(data); ok {
			r.id, r.ok = oid, true
		}
	case bson.TypeString:
		if s, _, ok := bsoncore.ReadString(data); ok {
			if oid, err := primitive.ObjectIDFromHex(s); err == nil {
				r.id, r.ok = oid, true
			}
		}
	}
	// null, missing, or any other type: absent reference
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if !r.ok {
		return []byte("null"), nil
	}
	return []byte(`"` + r.id.Hex() + `"`), nil
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || len(s) < 2 {
		*r = Ref{}
		return nil
	}
	*r = RefFromHex(s[1 : len(s)-1])
	return nil
}

// IDList is a list of document ids with the same defensive decoding as Ref:
// a malformed stored value (anything that is not an array) decodes as empty,
// so the next append rewrites it as a proper single-element array.
type IDList []primitive.ObjectID

func (l IDList) MarshalBSONValue() (bsontype.Type, []byte, error) {
	idx, doc := bsoncore.AppendArrayStart(nil)
	for i, id := range l {
		doc = bsoncore.AppendObjectIDElement(doc, strconv.Itoa(i), id)
	}
	doc, err := bsoncore.AppendArrayEnd(doc, idx)
	return bson.TypeArray, doc, err
}

func (l *IDList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*l = nil
	if t != bson.TypeArray {
		return nil
	}
	arr, _, ok := bsoncore.ReadArray(data)
	if !ok {
		return nil
	}
	vals, err := arr.Values()
	if err != nil {
		return nil
	}
	for _, v := range vals {
		switch v.Type {
		case bson.TypeObjectID:
			if oid, ok := v.ObjectIDOK(); ok {
				*l = append(*l, oid)
			}
		case bson.TypeString:
			if s, ok := v.StringValueOK(); ok {
				if oid, err := primitive.ObjectIDFromHex(s); err == nil {
					*l = append(*l, oid)
				}
			}
		}
	}
	return nil
}

// Contains reports whether id is already in the list.
func (l IDList) Contains(id primitive.ObjectID) bool {
	for _, got := range l {
		if got == id {
			return true
		}
	}
	return false
}

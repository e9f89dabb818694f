package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type refDoc struct {
	Ref Ref `bson:"ref"`
}

func TestRefDecodesObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{"ref": oid})
	require.NoError(t, err)

	var d refDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	assert.True(t, d.Ref.OK())
	assert.Equal(t, oid, d.Ref.ID())
}

func TestRefDecodesHexString(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{"ref": oid.Hex()})
	require.NoError(t, err)

	var d refDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	assert.True(t, d.Ref.OK())
	assert.Equal(t, oid, d.Ref.ID())
}

func TestRefMalformedValueDecodesAbsent(t *testing.T) {
	for name, value := range map[string]any{
		"junk string": "not-an-id",
		"number":      int32(42),
		"null":        nil,
		"subdocument": bson.M{"nested": true},
	} {
		raw, err := bson.Marshal(bson.M{"ref": value})
		require.NoError(t, err, name)

		var d refDoc
		require.NoError(t, bson.Unmarshal(raw, &d), name)
		assert.False(t, d.Ref.OK(), name)
		assert.Equal(t, "", d.Ref.Hex(), name)
	}
}

func TestRefMissingFieldDecodesAbsent(t *testing.T) {
	raw, err := bson.Marshal(bson.M{})
	require.NoError(t, err)

	var d refDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	assert.False(t, d.Ref.OK())
}

func TestRefRoundTrip(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(refDoc{Ref: NewRef(oid)})
	require.NoError(t, err)

	var d refDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	assert.Equal(t, oid, d.Ref.ID())

	raw, err = bson.Marshal(refDoc{})
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(raw, &d))
	assert.False(t, d.Ref.OK())
}

func TestRefJSON(t *testing.T) {
	oid := primitive.NewObjectID()

	out, err := json.Marshal(NewRef(oid))
	require.NoError(t, err)
	assert.Equal(t, `"`+oid.Hex()+`"`, string(out))

	out, err = json.Marshal(Ref{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	var r Ref
	require.NoError(t, json.Unmarshal([]byte(`"`+oid.Hex()+`"`), &r))
	assert.Equal(t, oid, r.ID())
	require.NoError(t, json.Unmarshal([]byte("null"), &r))
	assert.False(t, r.OK())
}

func TestRefFromHex(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.True(t, RefFromHex(oid.Hex()).OK())
	assert.False(t, RefFromHex("garbage").OK())
	assert.False(t, RefFromHex("").OK())
}

type listDoc struct {
	IDs IDList `bson:"ids"`
}

func TestIDListMalformedValueDecodesEmpty(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"ids": "oops"})
	require.NoError(t, err)

	var d listDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	assert.Empty(t, d.IDs)
}

func TestIDListSkipsUnreadableElements(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{"ids": bson.A{a, "junk", b.Hex(), int32(7)}})
	require.NoError(t, err)

	var d listDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	assert.Equal(t, IDList{a, b}, d.IDs)
}

func TestIDListRoundTrip(t *testing.T) {
	ids := IDList{primitive.NewObjectID(), primitive.NewObjectID()}
	raw, err := bson.Marshal(listDoc{IDs: ids})
	require.NoError(t, err)

	var d listDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	assert.Equal(t, ids, d.IDs)
}

func TestIDListContains(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	l := IDList{a}
	assert.True(t, l.Contains(a))
	assert.False(t, l.Contains(b))
	assert.False(t, IDList(nil).Contains(a))
}

package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givers/givers-backend/services"
	"github.com/givers/givers-backend/store"
)

func TestCursorRoundTripStringKey(t *testing.T) {
	in := &store.Cursor{Key: "campaign name", ID: primitive.NewObjectID()}

	out, err := decodeCursor(encodeCursor(in), services.SortByName)
	require.NoError(t, err)
	assert.Equal(t, in.Key, out.Key)
	assert.Equal(t, in.ID, out.ID)
}

func TestCursorRoundTripTimeKey(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	in := &store.Cursor{Key: ts, ID: primitive.NewObjectID()}

	out, err := decodeCursor(encodeCursor(in), services.SortByCreatedAt)
	require.NoError(t, err)
	assert.True(t, ts.Equal(out.Key.(time.Time)))
	assert.Equal(t, in.ID, out.ID)
}

func TestCursorRoundTripIDKey(t *testing.T) {
	in := &store.Cursor{ID: primitive.NewObjectID()}

	out, err := decodeCursor(encodeCursor(in), services.SortByID)
	require.NoError(t, err)
	assert.Nil(t, out.Key)
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeCursorEmptyToken(t *testing.T) {
	out, err := decodeCursor("", services.SortByName)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDecodeCursorGarbage(t *testing.T) {
	for _, token := range []string{"not base64 at all!!", "aGVsbG8", "eyJpZCI6ImJhZCJ9"} {
		_, err := decodeCursor(token, services.SortByName)
		assert.Error(t, err, token)
	}
}

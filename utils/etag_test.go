package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGenerateETag(t *testing.T) {
	id := primitive.NewObjectID()
	ts := time.Now().UTC()

	etag := GenerateETag(id, ts)
	assert.True(t, strings.HasPrefix(etag, `"`))
	assert.True(t, strings.HasSuffix(etag, `"`))

	assert.Equal(t, etag, GenerateETag(id, ts), "same inputs, same tag")
	assert.NotEqual(t, etag, GenerateETag(id, ts.Add(time.Second)), "update time changes the tag")
	assert.NotEqual(t, etag, GenerateETag(primitive.NewObjectID(), ts), "id changes the tag")
}

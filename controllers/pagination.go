package controllers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givers/givers-backend/services"
	"github.com/givers/givers-backend/store"
)

// The continuation cursor travels to the client as an opaque base64 token.
// Its contents are the last document of the previous page under the active
// ordering; handing a token back under a different sort or filter is
// undefined behavior, as documented on store.Cursor.
type pageCursor struct {
	Key string `json:"k,omitempty"`
	ID  string `json:"id"`
}

func encodeCursor(c *store.Cursor) string {
	if c == nil {
		return ""
	}
	pc := pageCursor{ID: c.ID.Hex()}
	switch k := c.Key.(type) {
	case string:
		pc.Key = k
	case time.Time:
		pc.Key = k.Format(time.RFC3339Nano)
	}
	raw, _ := json.Marshal(pc)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(token, sortKey string) (*store.Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	var pc pageCursor
	if err := json.Unmarshal(raw, &pc); err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	id, err := primitive.ObjectIDFromHex(pc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	cur := &store.Cursor{ID: id}
	switch sortKey {
	case services.SortByCreatedAt:
		t, err := time.Parse(time.RFC3339Nano, pc.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor")
		}
		cur.Key = t
	case services.SortByID:
		// id is the key
	default:
		cur.Key = pc.Key
	}
	return cur, nil
}

// pageParams reads sort, limit, and cursor query parameters. A limit of 0
// (or below) asks for all matching documents.
func pageParams(c *gin.Context, defaultSort string) (sortKey string, after *store.Cursor, limit int64, err error) {
	sortKey = c.DefaultQuery("sort", defaultSort)
	limit = 10
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", nil, 0, fmt.Errorf("invalid limit")
		}
	}
	after, err = decodeCursor(c.Query("cursor"), sortKey)
	if err != nil {
		return "", nil, 0, err
	}
	return sortKey, after, limit, nil
}

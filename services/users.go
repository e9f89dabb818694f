package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/store"
)

type Users struct {
	col   store.Collection
	cache *QueryCache
	log   *zap.Logger
}

func NewUsers(st store.Store, cache *QueryCache, log *zap.Logger) *Users {
	return &Users{
		col:   st.Collection(store.Users),
		cache: cache,
		log:   log.Named("users"),
	}
}

// Create inserts a new user, enabled, defaulting to the client profile.
func (s *Users) Create(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Profile == "" {
		u.Profile = models.ProfileClient
	}
	u.Status = true
	u.Delete = false
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := s.col.InsertOne(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	s.cache.Invalidate(store.Users)
	return u, nil
}

func (s *Users) Get(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.col.FindByID(ctx, id, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// ByEmail finds a non-deleted user by email for login.
func (s *Users) ByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var rows []models.User
	q := store.NewQuery(SortByID, store.Filter{"email": email, "delete": false}).Limit(1)
	if err := s.col.Find(ctx, q, &rows); err != nil {
		return models.User{}, fmt.Errorf("find user by email: %w", err)
	}
	if len(rows) == 0 {
		return models.User{}, store.ErrNotFound
	}
	return rows[0], nil
}

// ListPage returns one page of users.
func (s *Users) ListPage(ctx context.Context, profile string, sortKey string, after *store.Cursor, limit int64) ([]models.User, *store.Cursor, error) {
	if !validSortKey(sortKey) {
		return nil, nil, ErrBadSortKey
	}
	f := store.Filter{"delete": false}
	if profile != "" {
		f["profile"] = profile
	}
	var rows []models.User
	q := store.NewQuery(sortKey, f).After(after).Limit(limit)
	if err := s.col.Find(ctx, q, &rows); err != nil {
		return nil, nil, fmt.Errorf("list users: %w", err)
	}
	var next *store.Cursor
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		switch sortKey {
		case SortByName:
			next = &store.Cursor{Key: last.Name, ID: last.ID}
		case SortByCreatedAt:
			next = &store.Cursor{Key: last.CreatedAt, ID: last.ID}
		case SortByID:
			next = &store.Cursor{ID: last.ID}
		default:
			return nil, nil, ErrBadSortKey
		}
	}
	return rows, next, nil
}

// SetEnabled flips the status flag, last write wins.
func (s *Users) SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error {
	err := s.col.SetFields(ctx, id, map[string]any{
		"status":     enabled,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("user status toggle failed", zap.String("user", id.Hex()), zap.Error(err))
		return err
	}
	s.cache.Invalidate(store.Users)
	return nil
}

// SoftDelete marks the user deleted.
func (s *Users) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	err := s.col.SetFields(ctx, id, map[string]any{
		"delete":     true,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("user soft delete failed", zap.String("user", id.Hex()), zap.Error(err))
		return err
	}
	s.cache.Invalidate(store.Users)
	return nil
}

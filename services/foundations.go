package services

import (
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/store"
)

// FoundationFilter narrows foundation listings.
type FoundationFilter struct {
	Enabled        *bool
	Country        string
	IncludeDeleted bool
}

func (f FoundationFilter) toStore() store.Filter {
	out := store.Filter{}
	if !f.IncludeDeleted {
		out["delete"] = false
	}
	if f.Enabled != nil {
		out["status"] = *f.Enabled
	}
	if f.Country != "" {
		out["country"] = f.Country
	}
	return out
}

type Foundations struct {
	col      store.Collection
	resolver *Resolver
	cache    *QueryCache
	sanitize *bluemonday.Policy
	log      *zap.Logger
}

func NewFoundations(st store.Store, resolver *Resolver, cache *QueryCache, log *zap.Logger) *Foundations {
	return &Foundations{
		col:      st.Collection(store.Foundations),
		resolver: resolver,
		cache:    cache,
		sanitize: bluemonday.UGCPolicy(),
		log:      log.Named("foundations"),
	}
}

// Create inserts a new foundation, enabled by default.
func (s *Foundations) Create(ctx context.Context, f models.Foundation) (models.Foundation, error) {
	now := time.Now().UTC()
	f.ID = primitive.NewObjectID()
	f.Description = s.sanitize.Sanitize(f.Description)
	f.Status = true
	f.Delete = false
	if f.ConfidenceLevel < 1 {
		f.ConfidenceLevel = 1
	}
	if f.Multimedia == nil {
		f.Multimedia = []string{}
	}
	f.Campaigns = models.IDList{}
	f.CreatedAt = now
	f.UpdatedAt = now

	if err := s.col.InsertOne(ctx, f); err != nil {
		return models.Foundation{}, fmt.Errorf("create foundation: %w", err)
	}
	s.cache.Invalidate(store.Foundations)
	return f, nil
}

// Get returns one foundation with its responsible user resolved.
func (s *Foundations) Get(ctx context.Context, id primitive.ObjectID) (models.Foundation, error) {
	var f models.Foundation
	if err := s.col.FindByID(ctx, id, &f); err != nil {
		return models.Foundation{}, err
	}
	f.ResponsibleData = s.resolver.User(ctx, f.Responsible)
	return f, nil
}

// ListPage returns one page of foundations plus the continuation cursor.
func (s *Foundations) ListPage(ctx context.Context, f FoundationFilter, sortKey string, after *store.Cursor, limit int64) ([]models.Foundation, *store.Cursor, error) {
	if !validSortKey(sortKey) {
		return nil, nil, ErrBadSortKey
	}
	var rows []models.Foundation
	q := store.NewQuery(sortKey, f.toStore()).After(after).Limit(limit)
	if err := s.col.Find(ctx, q, &rows); err != nil {
		return nil, nil, fmt.Errorf("list foundations: %w", err)
	}
	for i := range rows {
		rows[i].ResponsibleData = s.resolver.User(ctx, rows[i].Responsible)
	}
	next, err := foundationCursor(rows, sortKey)
	if err != nil {
		return nil, nil, err
	}
	return rows, next, nil
}

// AttachCampaign appends a campaign id to the foundation's membership
// array. The array is the authoritative list of campaigns the foundation
// owns; a malformed stored value decodes as empty and the append rewrites it
// as a proper single-element array.
func (s *Foundations) AttachCampaign(ctx context.Context, foundationID, campaignID primitive.ObjectID) error {
	var f models.Foundation
	if err := s.col.FindByID(ctx, foundationID, &f); err != nil {
		return err
	}
	if f.Campaigns.Contains(campaignID) {
		return nil
	}
	err := s.col.SetFields(ctx, foundationID, map[string]any{
		"campaigns":  append(f.Campaigns, campaignID),
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("attach campaign to foundation: %w", err)
	}
	s.cache.Invalidate(store.Foundations)
	return nil
}

// CountEnabled counts non-deleted, enabled foundations for the dashboard.
func (s *Foundations) CountEnabled(ctx context.Context) (int64, error) {
	return s.col.Count(ctx, store.Filter{"status": true, "delete": false})
}

// SetEnabled flips the status flag. Disabling a foundation does not cascade
// to its campaigns.
func (s *Foundations) SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error {
	err := s.col.SetFields(ctx, id, map[string]any{
		"status":     enabled,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("foundation status toggle failed", zap.String("foundation", id.Hex()), zap.Error(err))
		return err
	}
	s.cache.Invalidate(store.Foundations)
	return nil
}

// SoftDelete marks the foundation deleted.
func (s *Foundations) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	err := s.col.SetFields(ctx, id, map[string]any{
		"delete":     true,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("foundation soft delete failed", zap.String("foundation", id.Hex()), zap.Error(err))
		return err
	}
	s.cache.Invalidate(store.Foundations)
	return nil
}

// AddMultimedia appends uploaded file URLs to the foundation.
func (s *Foundations) AddMultimedia(ctx context.Context, id primitive.ObjectID, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	var f models.Foundation
	if err := s.col.FindByID(ctx, id, &f); err != nil {
		return err
	}
	err := s.col.SetFields(ctx, id, map[string]any{
		"multimedia": append(f.Multimedia, urls...),
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("add foundation multimedia: %w", err)
	}
	s.cache.Invalidate(store.Foundations)
	return nil
}

func foundationCursor(rows []models.Foundation, sortKey string) (*store.Cursor, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	last := rows[len(rows)-1]
	switch sortKey {
	case SortByName:
		return &store.Cursor{Key: last.Name, ID: last.ID}, nil
	case SortByCreatedAt:
		return &store.Cursor{Key: last.CreatedAt, ID: last.ID}, nil
	case SortByID:
		return &store.Cursor{ID: last.ID}, nil
	}
	return nil, ErrBadSortKey
}

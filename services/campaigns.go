package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/store"
)

// Sort keys accepted by the paginated listings. The cursor is derived from
// the sort key, so only fields the services know how to extract are allowed.
const (
	SortByName      = "name"
	SortByCreatedAt = "created_at"
	SortByID        = "_id"
)

var (
	ErrBadSortKey   = errors.New("services: unsupported sort key")
	ErrBadVideoSlot = errors.New("services: unknown video slot")
)

// validSortKey reports whether the listings can derive a cursor from the
// key. Checked before the query runs, so an unsupported key fails the same
// way on an empty result set as on a populated one.
func validSortKey(k string) bool {
	return k == SortByName || k == SortByCreatedAt || k == SortByID
}

// Video slots a campaign carries: the pitch video shown while raising and
// the wrap-up video shown once execution ends.
const (
	VideoSlotInit = "init"
	VideoSlotEnd  = "end"
)

// CampaignFilter narrows campaign listings. Nil pointer fields are not
// applied; predicates always combine with AND.
type CampaignFilter struct {
	State          *models.CampaignState
	IsCause        *bool
	IsExperience   *bool
	Foundation     *primitive.ObjectID
	IncludeDeleted bool
}

func (f CampaignFilter) toStore() store.Filter {
	out := store.Filter{}
	if !f.IncludeDeleted {
		out["delete"] = false
	}
	if f.State != nil {
		for k, v := range stateFlags(*f.State) {
			out[k] = v
		}
	}
	if f.IsCause != nil {
		out["is_cause"] = *f.IsCause
	}
	if f.IsExperience != nil {
		out["is_experience"] = *f.IsExperience
	}
	if f.Foundation != nil {
		out["foundation"] = *f.Foundation
	}
	return out
}

// stateFlags maps a lifecycle state onto the flag predicates the dashboard
// counts with. The four predicates are mutually exclusive: a document whose
// flags disagree with the implicit state machine (disabled mid-execution,
// for instance) is counted under none of them.
func stateFlags(s models.CampaignState) store.Filter {
	switch s {
	case models.CampaignActive:
		return store.Filter{"status": true, "is_execute": false, "is_finished": false}
	case models.CampaignExecuting:
		return store.Filter{"status": true, "is_execute": true, "is_finished": false}
	case models.CampaignFinished:
		return store.Filter{"is_finished": true}
	default: // pending approval
		return store.Filter{"status": false, "is_execute": false, "is_finished": false}
	}
}

// DashboardSummary carries the four campaign counter tiles.
type DashboardSummary struct {
	Active    int64 `json:"active"`
	Executing int64 `json:"executing"`
	Finished  int64 `json:"finished"`
	Pending   int64 `json:"pending"`
}

type Campaigns struct {
	col         store.Collection
	resolver    *Resolver
	foundations *Foundations
	cache       *QueryCache
	sanitize    *bluemonday.Policy
	log         *zap.Logger
}

func NewCampaigns(st store.Store, resolver *Resolver, foundations *Foundations, cache *QueryCache, log *zap.Logger) *Campaigns {
	return &Campaigns{
		col:         st.Collection(store.Campaigns),
		resolver:    resolver,
		foundations: foundations,
		cache:       cache,
		sanitize:    bluemonday.UGCPolicy(),
		log:         log.Named("campaigns"),
	}
}

// Create inserts a new campaign. A campaign belonging to a foundation at the
// auto-publish confidence tier goes live immediately; anything else waits
// for manual approval. The foundation's membership array is updated in the
// same call, repairing it first if a malformed value is stored there.
func (s *Campaigns) Create(ctx context.Context, c models.Campaign) (models.Campaign, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.Description = s.sanitize.Sanitize(c.Description)
	c.Status = false
	c.IsExecute = false
	c.IsFinished = false
	c.Delete = false
	c.CumulativeAmount = 0
	c.DonorsCount = 0
	c.CreatedAt = now
	c.UpdatedAt = now

	if f := s.resolver.Foundation(ctx, c.Foundation); f != nil && f.ConfidenceLevel >= models.ConfidenceAutoPublish {
		c.Status = true
	}

	if err := s.col.InsertOne(ctx, c); err != nil {
		return models.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	if c.Foundation.OK() {
		if err := s.foundations.AttachCampaign(ctx, c.Foundation.ID(), c.ID); err != nil {
			// membership append failed; the campaign document exists, so
			// report the inconsistency rather than unwinding the insert
			s.log.Error("campaign created but not attached to foundation",
				zap.String("campaign", c.ID.Hex()),
				zap.String("foundation", c.Foundation.Hex()),
				zap.Error(err))
		}
	}
	s.cache.Invalidate(store.Campaigns)
	return c, nil
}

// Get returns one campaign with its references resolved.
func (s *Campaigns) Get(ctx context.Context, id primitive.ObjectID) (models.CampaignView, error) {
	var c models.Campaign
	if err := s.col.FindByID(ctx, id, &c); err != nil {
		return models.CampaignView{}, err
	}
	return s.resolver.ResolveCampaign(ctx, c), nil
}

// ListPage returns one page of resolved campaigns plus the continuation
// cursor, nil once the page comes back empty. A limit of zero or less means
// all matching documents.
func (s *Campaigns) ListPage(ctx context.Context, f CampaignFilter, sortKey string, after *store.Cursor, limit int64) ([]models.CampaignView, *store.Cursor, error) {
	if !validSortKey(sortKey) {
		return nil, nil, ErrBadSortKey
	}
	var rows []models.Campaign
	q := store.NewQuery(sortKey, f.toStore()).After(after).Limit(limit)
	if err := s.col.Find(ctx, q, &rows); err != nil {
		return nil, nil, fmt.Errorf("list campaigns: %w", err)
	}
	views := s.resolver.ResolveCampaigns(ctx, rows)
	next, err := campaignCursor(rows, sortKey)
	if err != nil {
		return nil, nil, err
	}
	return views, next, nil
}

// PendingPage lists campaigns awaiting approval. This is the one listing
// that drops rows instead of null-degrading: an approval card without its
// foundation or creator cannot be reviewed, so unresolvable rows are
// discarded with a warning.
func (s *Campaigns) PendingPage(ctx context.Context, sortKey string, after *store.Cursor, limit int64) ([]models.CampaignView, *store.Cursor, error) {
	if !validSortKey(sortKey) {
		return nil, nil, ErrBadSortKey
	}
	state := models.CampaignPending
	var rows []models.Campaign
	q := store.NewQuery(sortKey, CampaignFilter{State: &state}.toStore()).After(after).Limit(limit)
	if err := s.col.Find(ctx, q, &rows); err != nil {
		return nil, nil, fmt.Errorf("list pending campaigns: %w", err)
	}

	resolved := s.resolver.ResolveCampaigns(ctx, rows)
	views := resolved[:0]
	for _, v := range resolved {
		if v.FoundationData == nil || v.CreatedByData == nil {
			s.log.Warn("dropping pending campaign with unresolvable references",
				zap.String("campaign", v.ID.Hex()))
			continue
		}
		views = append(views, v)
	}
	next, err := campaignCursor(rows, sortKey)
	if err != nil {
		return nil, nil, err
	}
	return views, next, nil
}

// ByFoundation lists the campaigns a foundation owns, walking its
// authoritative membership array. Dangling ids are skipped with a warning.
func (s *Campaigns) ByFoundation(ctx context.Context, foundationID primitive.ObjectID) ([]models.CampaignView, error) {
	f, err := s.foundations.Get(ctx, foundationID)
	if err != nil {
		return nil, err
	}
	var rows []models.Campaign
	for _, id := range f.Campaigns {
		var c models.Campaign
		if err := s.col.FindByID(ctx, id, &c); err != nil {
			s.log.Warn("foundation lists a campaign that does not resolve",
				zap.String("foundation", foundationID.Hex()),
				zap.String("campaign", id.Hex()),
				zap.Error(err))
			continue
		}
		rows = append(rows, c)
	}
	return s.resolver.ResolveCampaigns(ctx, rows), nil
}

// Summary computes the four dashboard counters concurrently, server-side.
// Any single counter failure fails the whole summary; there is no
// per-widget isolation. Identical repeated summaries within a session are
// served from the query cache until a campaign mutation invalidates it.
func (s *Campaigns) Summary(ctx context.Context) (DashboardSummary, error) {
	const cacheKey = "dashboard-summary"
	if v, ok := s.cache.Get(store.Campaigns, cacheKey); ok {
		return v.(DashboardSummary), nil
	}

	var out DashboardSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Active, err = s.CountState(gctx, models.CampaignActive)
		return err
	})
	g.Go(func() (err error) {
		out.Executing, err = s.CountState(gctx, models.CampaignExecuting)
		return err
	})
	g.Go(func() (err error) {
		out.Finished, err = s.CountState(gctx, models.CampaignFinished)
		return err
	})
	g.Go(func() (err error) {
		out.Pending, err = s.CountState(gctx, models.CampaignPending)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, fmt.Errorf("dashboard summary: %w", err)
	}

	s.cache.Set(store.Campaigns, cacheKey, out)
	return out, nil
}

// CountState counts non-deleted campaigns in one lifecycle bucket.
func (s *Campaigns) CountState(ctx context.Context, state models.CampaignState) (int64, error) {
	f := stateFlags(state)
	f["delete"] = false
	return s.col.Count(ctx, f)
}

// Approve moves a pending campaign to active.
func (s *Campaigns) Approve(ctx context.Context, id primitive.ObjectID) error {
	return s.transition(ctx, id, models.CampaignActive)
}

// BeginExecution moves an active campaign to executing.
func (s *Campaigns) BeginExecution(ctx context.Context, id primitive.ObjectID) error {
	return s.transition(ctx, id, models.CampaignExecuting)
}

// Finish moves an active or executing campaign to its terminal state.
func (s *Campaigns) Finish(ctx context.Context, id primitive.ObjectID) error {
	return s.transition(ctx, id, models.CampaignFinished)
}

func (s *Campaigns) transition(ctx context.Context, id primitive.ObjectID, target models.CampaignState) error {
	var c models.Campaign
	if err := s.col.FindByID(ctx, id, &c); err != nil {
		return err
	}
	flags, err := c.NextFlags(target)
	if err != nil {
		return err
	}
	flags["updated_at"] = time.Now().UTC()
	if err := s.col.SetFields(ctx, id, flags); err != nil {
		s.log.Error("campaign transition failed",
			zap.String("campaign", id.Hex()),
			zap.String("target", string(target)),
			zap.Error(err))
		return err
	}
	s.cache.Invalidate(store.Campaigns)
	return nil
}

// SetVideo stores an uploaded video URL on one of the two video slots and
// returns the URL it replaced, empty when the slot was vacant.
func (s *Campaigns) SetVideo(ctx context.Context, id primitive.ObjectID, slot, url string) (string, error) {
	var field string
	switch slot {
	case VideoSlotInit:
		field = "init_video"
	case VideoSlotEnd:
		field = "end_video"
	default:
		return "", fmt.Errorf("%w: video slot %q", ErrBadVideoSlot, slot)
	}

	var c models.Campaign
	if err := s.col.FindByID(ctx, id, &c); err != nil {
		return "", err
	}
	previous := c.InitVideo
	if field == "end_video" {
		previous = c.EndVideo
	}

	err := s.col.SetFields(ctx, id, map[string]any{
		field:        url,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("set campaign video: %w", err)
	}
	s.cache.Invalidate(store.Campaigns)
	return previous, nil
}

// SetEnabled flips the status flag. This is the orthogonal enable/disable
// toggle, not a lifecycle transition: it blindly overwrites whatever state
// the document was last read in, last write wins.
func (s *Campaigns) SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error {
	err := s.col.SetFields(ctx, id, map[string]any{
		"status":     enabled,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("campaign status toggle failed", zap.String("campaign", id.Hex()), zap.Error(err))
		return err
	}
	s.cache.Invalidate(store.Campaigns)
	return nil
}

// SoftDelete marks the campaign deleted. Nothing is physically removed.
func (s *Campaigns) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	err := s.col.SetFields(ctx, id, map[string]any{
		"delete":     true,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("campaign soft delete failed", zap.String("campaign", id.Hex()), zap.Error(err))
		return err
	}
	s.cache.Invalidate(store.Campaigns)
	return nil
}

// campaignCursor derives the continuation cursor from the last row of a
// page; nil once the page is empty.
func campaignCursor(rows []models.Campaign, sortKey string) (*store.Cursor, error) {
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

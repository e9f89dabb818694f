package services

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/store"
)

// Resolver inlines referenced documents into denormalized views. A reference
// that is absent, malformed, or points at a missing document resolves to nil
// with a logged warning; it never fails the row. The resolver performs no
// caching.
type Resolver struct {
	foundations store.Collection
	categories  store.Collection
	users       store.Collection
	log         *zap.Logger
}

func NewResolver(st store.Store, log *zap.Logger) *Resolver {
	return &Resolver{
		foundations: st.Collection(store.Foundations),
		categories:  st.Collection(store.Categories),
		users:       st.Collection(store.Users),
		log:         log.Named("resolver"),
	}
}

// ResolveCampaign fans out the four foreign-key lookups concurrently and
// joins before returning the view. Lookup completion order is undefined.
func (r *Resolver) ResolveCampaign(ctx context.Context, c models.Campaign) models.CampaignView {
	view := models.CampaignView{Campaign: c}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		view.FoundationData = r.Foundation(gctx, c.Foundation)
		return nil
	})
	g.Go(func() error {
		view.CategoryData = r.Category(gctx, c.Category)
		return nil
	})
	g.Go(func() error {
		view.ResponsibleData = r.User(gctx, c.Responsible)
		return nil
	})
	g.Go(func() error {
		view.CreatedByData = r.User(gctx, c.CreatedBy)
		return nil
	})
	g.Wait()

	return view
}

// ResolveCampaigns resolves a page of rows concurrently. Rows are
// independent, so resolution order across them is not defined; the returned
// slice preserves input order.
func (r *Resolver) ResolveCampaigns(ctx context.Context, cs []models.Campaign) []models.CampaignView {
	views := make([]models.CampaignView, len(cs))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cs {
		g.Go(func() error {
			views[i] = r.ResolveCampaign(gctx, c)
			return nil
		})
	}
	g.Wait()
	return views
}

// Foundation resolves a foundation reference, nil when absent.
func (r *Resolver) Foundation(ctx context.Context, ref models.Ref) *models.Foundation {
	if !ref.OK() {
		return nil
	}
	var f models.Foundation
	if err := r.foundations.FindByID(ctx, ref.ID(), &f); err != nil {
		r.log.Warn("foundation reference did not resolve",
			zap.String("id", ref.Hex()), zap.Error(err))
		return nil
	}
	f.ID = ref.ID()
	return &f
}

// Category resolves a category reference, nil when absent.
func (r *Resolver) Category(ctx context.Context, ref models.Ref) *models.Category {
	if !ref.OK() {
		return nil
	}
	var c models.Category
	if err := r.categories.FindByID(ctx, ref.ID(), &c); err != nil {
		r.log.Warn("category reference did not resolve",
			zap.String("id", ref.Hex()), zap.Error(err))
		return nil
	}
	c.ID = ref.ID()
	return &c
}

// User resolves a user reference, nil when absent.
func (r *Resolver) User(ctx context.Context, ref models.Ref) *models.User {
	if !ref.OK() {
		return nil
	}
	var u models.User
	if err := r.users.FindByID(ctx, ref.ID(), &u); err != nil {
		r.log.Warn("user reference did not resolve",
			zap.String("id", ref.Hex()), zap.Error(err))
		return nil
	}
	u.ID = ref.ID()
	return &u
}

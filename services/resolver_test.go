package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/store"
	"github.com/givers/givers-backend/testutil"
)

func newResolverEnv(t *testing.T) (*testutil.Mem, *Resolver) {
	t.Helper()
	mem := testutil.NewMem()
	return mem, NewResolver(mem, zap.NewNop())
}

func TestResolveCampaignInlinesReferences(t *testing.T) {
	mem, r := newResolverEnv(t)
	ctx := context.Background()

	fid := mem.Coll(store.Foundations).Put(models.Foundation{Name: "org"})
	catID := mem.Coll(store.Categories).Put(models.Category{Name: "health"})
	uid := mem.Coll(store.Users).Put(models.User{Name: "ana", Email: "ana@example.com"})

	view := r.ResolveCampaign(ctx, models.Campaign{
		Name:        "campaign",
		Foundation:  models.NewRef(fid),
		Category:    models.NewRef(catID),
		Responsible: models.NewRef(uid),
		CreatedBy:   models.NewRef(uid),
	})

	require.NotNil(t, view.FoundationData)
	assert.Equal(t, "org", view.FoundationData.Name)
	assert.Equal(t, fid, view.FoundationData.ID)
	require.NotNil(t, view.CategoryData)
	assert.Equal(t, "health", view.CategoryData.Name)
	require.NotNil(t, view.ResponsibleData)
	require.NotNil(t, view.CreatedByData)
	assert.Equal(t, "ana", view.CreatedByData.Name)
}

func TestResolveCampaignAbsentAndDanglingAreNil(t *testing.T) {
	mem, r := newResolverEnv(t)
	ctx := context.Background()

	uid := mem.Coll(store.Users).Put(models.User{Name: "ana"})

	view := r.ResolveCampaign(ctx, models.Campaign{
		Name:       "partial",
		Foundation: models.NewRef(primitive.NewObjectID()), // dangling
		// category absent
		CreatedBy: models.NewRef(uid),
	})

	assert.Nil(t, view.FoundationData, "dangling reference resolves to nil")
	assert.Nil(t, view.CategoryData, "absent reference resolves to nil")
	assert.Nil(t, view.ResponsibleData)
	require.NotNil(t, view.CreatedByData)
	assert.Equal(t, "partial", view.Name, "row itself survives")
}

func TestResolveCampaignMalformedStoredReference(t *testing.T) {
	mem, r := newResolverEnv(t)
	ctx := context.Background()

	// a junk value where the foundation reference belongs decodes as absent
	id := mem.Coll(store.Campaigns).Put(bson.M{
		"name":       "legacy",
		"foundation": int32(12345),
	})

	var c models.Campaign
	require.NoError(t, mem.Coll(store.Campaigns).FindByID(ctx, id, &c))
	assert.False(t, c.Foundation.OK())

	view := r.ResolveCampaign(ctx, c)
	assert.Nil(t, view.FoundationData)
}

func TestResolveCampaignsPreservesOrder(t *testing.T) {
	mem, r := newResolverEnv(t)
	ctx := context.Background()

	fid := mem.Coll(store.Foundations).Put(models.Foundation{Name: "org"})

	rows := make([]models.Campaign, 20)
	for i := range rows {
		rows[i] = models.Campaign{
			ID:         primitive.NewObjectID(),
			Name:       fmt.Sprintf("row-%02d", i),
			Foundation: models.NewRef(fid),
		}
	}

	views := r.ResolveCampaigns(ctx, rows)
	require.Len(t, views, len(rows))
	for i, v := range views {
		assert.Equal(t, rows[i].Name, v.Name)
		assert.NotNil(t, v.FoundationData)
	}
}

func TestResolveCampaignsMatchesRowByRowResolution(t *testing.T) {
	mem, r := newResolverEnv(t)
	ctx := context.Background()

	fid := mem.Coll(store.Foundations).Put(models.Foundation{Name: "org"})
	uid := mem.Coll(store.Users).Put(models.User{Name: "ana"})

	rows := []models.Campaign{
		{ID: primitive.NewObjectID(), Name: "a", Foundation: models.NewRef(fid)},
		{ID: primitive.NewObjectID(), Name: "b", CreatedBy: models.NewRef(uid)},
		{ID: primitive.NewObjectID(), Name: "c", Foundation: models.NewRef(primitive.NewObjectID())},
	}

	batch := r.ResolveCampaigns(ctx, rows)
	for i, row := range rows {
		single := r.ResolveCampaign(ctx, row)
		assert.Equal(t, single, batch[i], "concurrent batch resolution must equal sequential resolution")
	}
}

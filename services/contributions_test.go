package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/store"
	"github.com/givers/givers-backend/testutil"
)

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) SendReceipt(to, name, campaign string, amount float64, orderNumber string) error {
	m.sent = append(m.sent, to)
	return m.err
}

func newContributionEnv(t *testing.T) (*testutil.Mem, *fakeMailer, *Contributions) {
	t.Helper()
	mem := testutil.NewMem()
	log := zap.NewNop()
	mailer := &fakeMailer{}
	svc := NewContributions(mem, NewResolver(mem, log), NewQueryCache(), mailer, log)
	return mem, mailer, svc
}

func TestContributionCreateAssignsOrderNumber(t *testing.T) {
	_, _, svc := newContributionEnv(t)

	created, err := svc.Create(context.Background(), models.Contribution{
		Name:   "ana",
		Email:  "ana@example.com",
		Amount: 5000,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.OrderNumber)
	assert.Equal(t, models.PaymentPending, created.Payment)
	assert.False(t, created.ID.IsZero())

	other, err := svc.Create(context.Background(), models.Contribution{Email: "b@example.com", Amount: 100})
	require.NoError(t, err)
	assert.NotEqual(t, created.OrderNumber, other.OrderNumber)
}

func TestConfirmRollsIntoCampaignTotals(t *testing.T) {
	mem, mailer, svc := newContributionEnv(t)
	ctx := context.Background()

	campaignID := mem.Coll(store.Campaigns).Put(models.Campaign{
		Name: "water wells", Status: true, CumulativeAmount: 1000, DonorsCount: 2,
	})

	created, err := svc.Create(ctx, models.Contribution{
		Name:       "ana",
		Email:      "ana@example.com",
		Amount:     5000,
		CampaignID: models.NewRef(campaignID),
		Gateway:    models.GatewayWebpay,
	})
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, created.ID, models.GatewayResponse{
		Token:             "tok",
		AuthorizationCode: "1213",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, confirmed.Payment)
	require.NotNil(t, confirmed.Response)
	assert.Equal(t, "1213", confirmed.Response.AuthorizationCode)

	var campaign models.Campaign
	require.NoError(t, mem.Coll(store.Campaigns).FindByID(ctx, campaignID, &campaign))
	assert.Equal(t, float64(6000), campaign.CumulativeAmount)
	assert.Equal(t, 3, campaign.DonorsCount)

	assert.Equal(t, []string{"ana@example.com"}, mailer.sent)
}

func TestConfirmSurvivesReceiptFailure(t *testing.T) {
	mem, mailer, svc := newContributionEnv(t)
	ctx := context.Background()

	campaignID := mem.Coll(store.Campaigns).Put(models.Campaign{Name: "c", Status: true})
	mailer.err = errors.New("smtp down")

	created, err := svc.Create(ctx, models.Contribution{
		Email: "x@example.com", Amount: 100, CampaignID: models.NewRef(campaignID),
	})
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, created.ID, models.GatewayResponse{})
	require.NoError(t, err, "a failed receipt never fails the confirmation")
	assert.Equal(t, models.PaymentConfirmed, confirmed.Payment)

	var campaign models.Campaign
	require.NoError(t, mem.Coll(store.Campaigns).FindByID(ctx, campaignID, &campaign))
	assert.Equal(t, float64(100), campaign.CumulativeAmount)
}

func TestRejectLeavesTotalsAlone(t *testing.T) {
	mem, mailer, svc := newContributionEnv(t)
	ctx := context.Background()

	campaignID := mem.Coll(store.Campaigns).Put(models.Campaign{Name: "c", Status: true})

	created, err := svc.Create(ctx, models.Contribution{
		Email: "x@example.com", Amount: 900, CampaignID: models.NewRef(campaignID),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Reject(ctx, created.ID, models.GatewayResponse{ResponseCode: -1}))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, got.Payment)

	var campaign models.Campaign
	require.NoError(t, mem.Coll(store.Campaigns).FindByID(ctx, campaignID, &campaign))
	assert.Zero(t, campaign.CumulativeAmount)
	assert.Zero(t, campaign.DonorsCount)
	assert.Empty(t, mailer.sent, "no receipt on a rejected payment")
}

func TestByOrderNumber(t *testing.T) {
	_, _, svc := newContributionEnv(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, models.Contribution{Email: "a@example.com", Amount: 10})
	require.NoError(t, err)

	got, err := svc.ByOrderNumber(ctx, created.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.ByOrderNumber(ctx, "no-such-order")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestByCampaignPaginates(t *testing.T) {
	_, _, svc := newContributionEnv(t)
	ctx := context.Background()

	campaignID := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, models.Contribution{
			Email: "d@example.com", Amount: float64(i + 1), CampaignID: models.NewRef(campaignID),
		})
		require.NoError(t, err)
	}
	// noise on another campaign
	_, err := svc.Create(ctx, models.Contribution{Email: "e@example.com", Amount: 1, CampaignID: models.NewRef(primitive.NewObjectID())})
	require.NoError(t, err)

	var total int
	var after *store.Cursor
	for {
		rows, next, err := svc.ByCampaign(ctx, campaignID, after, 2)
		require.NoError(t, err)
		if len(rows) == 0 {
			assert.Nil(t, next)
			break
		}
		for _, row := range rows {
			assert.Equal(t, campaignID, row.CampaignID.ID())
		}
		total += len(rows)
		after = next
	}
	assert.Equal(t, 5, total)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/store"
)

// Mailer sends the donation receipt after a confirmed payment. The receipt
// is best effort: a send failure never fails the confirmation.
type Mailer interface {
	SendReceipt(to, name, campaign string, amount float64, orderNumber string) error
}

type Contributions struct {
	col       store.Collection
	campaigns store.Collection
	resolver  *Resolver
	cache     *QueryCache
	mailer    Mailer
	log       *zap.Logger
}

func NewContributions(st store.Store, resolver *Resolver, cache *QueryCache, mailer Mailer, log *zap.Logger) *Contributions {
	return &Contributions{
		col:       st.Collection(store.Contributions),
		campaigns: st.Collection(store.Campaigns),
		resolver:  resolver,
		cache:     cache,
		mailer:    mailer,
		log:       log.Named("contributions"),
	}
}

// Create records a new pending contribution and assigns its order number.
// The payment gateway has not been contacted yet at this point.
func (s *Contributions) Create(ctx context.Context, c models.Contribution) (models.Contribution, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.OrderNumber = uuid.NewString()
	c.Payment = models.PaymentPending
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.col.InsertOne(ctx, c); err != nil {
		return models.Contribution{}, fmt.Errorf("create contribution: %w", err)
	}
	s.cache.Invalidate(store.Contributions)
	return c, nil
}

// Get returns one contribution.
func (s *Contributions) Get(ctx context.Context, id primitive.ObjectID) (models.Contribution, error) {
	var c models.Contribution
	if err := s.col.FindByID(ctx, id, &c); err != nil {
		return models.Contribution{}, err
	}
	return c, nil
}

// ByOrderNumber finds the contribution a gateway callback refers to.
func (s *Contributions) ByOrderNumber(ctx context.Context, orderNumber string) (models.Contribution, error) {
	var rows []models.Contribution
	q := store.NewQuery(SortByID, store.Filter{"order_number": orderNumber}).Limit(1)
	if err := s.col.Find(ctx, q, &rows); err != nil {
		return models.Contribution{}, fmt.Errorf("find contribution by order: %w", err)
	}
	if len(rows) == 0 {
		return models.Contribution{}, store.ErrNotFound
	}
	return rows[0], nil
}

// ByCampaign returns one page of a campaign's contributions, newest-stable
// ordering by creation time.
func (s *Contributions) ByCampaign(ctx context.Context, campaignID primitive.ObjectID, after *store.Cursor, limit int64) ([]models.Contribution, *store.Cursor, error) {
	var rows []models.Contribution
	q := store.NewQuery(SortByCreatedAt, store.Filter{"campaign_id": campaignID}).After(after).Limit(limit)
	if err := s.col.Find(ctx, q, &rows); err != nil {
		return nil, nil, fmt.Errorf("list contributions: %w", err)
	}
	var next *store.Cursor
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		next = &store.Cursor{Key: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

// Confirm records an authorized gateway response, rolls the confirmed
// amount into the campaign totals, and sends the receipt. This is the only
// path that writes cumulative_amount; read paths never assume it matches
// the sum of contributions.
func (s *Contributions) Confirm(ctx context.Context, id primitive.ObjectID, resp models.GatewayResponse) (models.Contribution, error) {
	var c models.Contribution
	if err := s.col.FindByID(ctx, id, &c); err != nil {
		return models.Contribution{}, err
	}

	err := s.col.SetFields(ctx, id, map[string]any{
		"payment":          models.PaymentConfirmed,
		"gateway_response": resp,
		"updated_at":       time.Now().UTC(),
	})
	if err != nil {
		return models.Contribution{}, fmt.Errorf("confirm contribution: %w", err)
	}
	c.Payment = models.PaymentConfirmed
	c.Response = &resp

	if c.CampaignID.OK() {
		err := s.campaigns.IncFields(ctx, c.CampaignID.ID(), map[string]any{
			"cumulative_amount": c.Amount,
			"donors_count":      int64(1),
		})
		if err != nil {
			s.log.Error("confirmed contribution not rolled into campaign totals",
				zap.String("contribution", id.Hex()),
				zap.String("campaign", c.CampaignID.Hex()),
				zap.Error(err))
		}
	}

	campaignName := ""
	if campaign := s.campaignFor(ctx, c); campaign != nil {
		campaignName = campaign.Name
	}
	if s.mailer != nil {
		if err := s.mailer.SendReceipt(c.Email, c.Name, campaignName, c.Amount, c.OrderNumber); err != nil {
			s.log.Warn("receipt email failed", zap.String("contribution", id.Hex()), zap.Error(err))
		}
	}

	s.cache.Invalidate(store.Contributions)
	s.cache.Invalidate(store.Campaigns)
	return c, nil
}

// Reject records a declined or errored gateway response. Campaign totals
// are untouched.
func (s *Contributions) Reject(ctx context.Context, id primitive.ObjectID, resp models.GatewayResponse) error {
	err := s.col.SetFields(ctx, id, map[string]any{
		"payment":          models.PaymentRejected,
		"gateway_response": resp,
		"updated_at":       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("reject contribution: %w", err)
	}
	s.cache.Invalidate(store.Contributions)
	return nil
}

func (s *Contributions) campaignFor(ctx context.Context, c models.Contribution) *models.Campaign {
	if !c.CampaignID.OK() {
		return nil
	}
	var campaign models.Campaign
	if err := s.campaigns.FindByID(ctx, c.CampaignID.ID(), &campaign); err != nil {
		s.log.Warn("contribution campaign did not resolve",
			zap.String("campaign", c.CampaignID.Hex()), zap.Error(err))
		return nil
	}
	return &campaign
}

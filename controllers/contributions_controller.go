package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givers/givers-backend/config"
	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/payments"
	"github.com/givers/givers-backend/services"
	"github.com/givers/givers-backend/store"
)

// Checkout carries the contribution flow dependencies. The flow is: create a
// pending contribution, ask the gateway for a preference or redirect token,
// send the payer off, and settle the record when Webpay returns.
type Checkout struct {
	Cfg           *config.Config
	Contributions *services.Contributions
	Campaigns     *services.Campaigns
	MercadoPago   *payments.MercadoPagoClient
	Webpay        *payments.WebpayClient
}

// ---------------- CREATE (start checkout) ----------------
func (h *Checkout) CreateContribution() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name       string  `json:"name" binding:"required"`
			Lastname   string  `json:"lastname"`
			Email      string  `json:"email" binding:"required,email"`
			Amount     float64 `json:"amount" binding:"required"`
			OS         string  `json:"os"`
			CampaignID string  `json:"campaign_id" binding:"required"`
			UserID     string  `json:"user_id"`
			Gateway    string  `json:"gateway" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than 0"})
			return
		}
		if input.Gateway != models.GatewayMercadoPago && input.Gateway != models.GatewayWebpay {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment gateway"})
			return
		}

		campaignRef := models.RefFromHex(input.CampaignID)
		if !campaignRef.OK() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		// the campaign must exist and be taking donations
		campaign, err := h.Campaigns.Get(ctx, campaignRef.ID())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "campaign not found"})
			return
		}
		if state := campaign.State(); state != models.CampaignActive && state != models.CampaignExecuting {
			c.JSON(http.StatusConflict, gin.H{"error": "campaign is not accepting contributions"})
			return
		}

		created, err := h.Contributions.Create(ctx, models.Contribution{
			Name:       input.Name,
			Lastname:   input.Lastname,
			Email:      input.Email,
			Amount:     input.Amount,
			OS:         input.OS,
			CampaignID: campaignRef,
			UserID:     models.RefFromHex(input.UserID),
			Foundation: campaign.Foundation,
			Gateway:    input.Gateway,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create contribution"})
			return
		}

		switch input.Gateway {
		case models.GatewayMercadoPago:
			pref, err := h.MercadoPago.CreatePreference(ctx, payments.PreferenceRequest{
				Items: []payments.PreferenceItem{{
					Title:      campaign.Name,
					Quantity:   1,
					UnitPrice:  created.Amount,
					CurrencyID: "CLP",
				}},
				ExternalReference: created.OrderNumber,
				PayerEmail:        created.Email,
				BackURLs: payments.PreferenceBackURLs{
					Success: h.Cfg.PublicBaseURL + "/payments/mercadopago/return",
					Failure: h.Cfg.PublicBaseURL + "/payments/mercadopago/return",
				},
			})
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
				return
			}
			c.JSON(http.StatusCreated, gin.H{
				"contribution":  created,
				"preference_id": pref.ID,
				"init_point":    pref.InitPoint,
			})

		case models.GatewayWebpay:
			// buy order and session id are the contribution id: short and unique
			tx, err := h.Webpay.Create(ctx, created.ID.Hex(), created.ID.Hex(), created.Amount,
				h.Cfg.PublicBaseURL+"/payments/webpay/return")
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
				return
			}
			c.JSON(http.StatusCreated, gin.H{
				"contribution": created,
				"token":        tx.Token,
				"url":          tx.URL,
			})
		}
	}
}

// ---------------- WEBPAY RETURN ----------------
func (h *Checkout) WebpayReturn() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token_ws")
		if token == "" {
			token = c.PostForm("token_ws")
		}
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token_ws is required"})
			return
		}

		// commit polls under backoff while the gateway still holds the lock
		ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
		defer cancel()

		result, err := h.Webpay.Commit(ctx, token)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not commit transaction"})
			return
		}

		contributionID, err := primitive.ObjectIDFromHex(result.BuyOrder)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown buy order"})
			return
		}

		response := models.GatewayResponse{
			Token:             token,
			AuthorizationCode: result.AuthorizationCode,
			ResponseCode:      result.ResponseCode,
			CardNumber:        result.CardDetail.CardNumber,
		}
		if t, err := time.Parse(time.RFC3339, result.TransactionDate); err == nil {
			response.TransactionDate = t
		}

		if !result.Authorized() {
			if err := h.Contributions.Reject(ctx, contributionID, response); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record payment"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"payment": models.PaymentRejected, "id": contributionID.Hex()})
			return
		}

		confirmed, err := h.Contributions.Confirm(ctx, contributionID, response)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record payment"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"payment": confirmed.Payment, "contribution": confirmed})
	}
}

// ---------------- MERCADOPAGO RETURN ----------------
// MercadoPago reports the outcome on the query string when it sends the
// payer back; the preference's external reference is our order number.
func (h *Checkout) MercadoPagoReturn() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderNumber := c.Query("external_reference")
		if orderNumber == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "external_reference is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		contribution, err := h.Contributions.ByOrderNumber(ctx, orderNumber)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown order"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch contribution"})
			return
		}

		response := models.GatewayResponse{
			PreferenceID: c.Query("preference_id"),
			Token:        c.Query("payment_id"),
		}

		switch c.Query("collection_status") {
		case "approved":
			confirmed, err := h.Contributions.Confirm(ctx, contribution.ID, response)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record payment"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"payment": confirmed.Payment, "contribution": confirmed})
		case "rejected", "cancelled":
			if err := h.Contributions.Reject(ctx, contribution.ID, response); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record payment"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"payment": models.PaymentRejected, "id": contribution.ID.Hex()})
		default:
			// in_process, pending, or anything unrecognized: leave as is
			c.JSON(http.StatusOK, gin.H{"payment": models.PaymentPending, "id": contribution.ID.Hex()})
		}
	}
}

// ---------------- LIST BY CAMPAIGN ----------------
func (h *Checkout) ListContributions() gin.HandlerFunc {
	return func(c *gin.Context) {
		campaignID, err := primitive.ObjectIDFromHex(c.Query("campaign_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "campaign_id is required"})
			return
		}

		// the listing always runs under created_at; any other sort would
		// decode the cursor under an ordering the query does not use
		if s := c.Query("sort"); s != "" && s != services.SortByCreatedAt {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported sort key"})
			return
		}
		_, after, limit, err := pageParams(c, services.SortByCreatedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		rows, next, err := h.Contributions.ByCampaign(ctx, campaignID, after, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch contributions"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": rows, "next_cursor": cursorOrNil(next)})
	}
}

// ---------------- GET ----------------
func (h *Checkout) GetContribution() gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		contribution, err := h.Contributions.Get(ctx, oid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "contribution not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch contribution"})
			return
		}

		c.JSON(http.StatusOK, contribution)
	}
}

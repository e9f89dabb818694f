package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givers/givers-backend/models"
	"github.com/givers/givers-backend/services"
	"github.com/givers/givers-backend/store"
	"github.com/givers/givers-backend/utils"
)

// ---------------- CREATE ----------------
func CreateCampaign(svc *services.Campaigns) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("user_id")
		userID, err := primitive.ObjectIDFromHex(uid)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}

		var input struct {
			Name          string     `json:"name" binding:"required"`
			Description   string     `json:"description"`
			InitVideo     string     `json:"init_video"`
			EndVideo      string     `json:"end_video"`
			InitDate      *time.Time `json:"init_date"`
			EndDate       *time.Time `json:"end_date"`
			IsCause       bool       `json:"is_cause"`
			IsExperience  bool       `json:"is_experience"`
			RequestAmount float64    `json:"request_amount"`
			Foundation    string     `json:"foundation" binding:"required"`
			Category      string     `json:"category"`
			Responsible   string     `json:"responsible"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.RequestAmount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "request_amount must be greater than 0"})
			return
		}

		campaign := models.Campaign{
			Name:          input.Name,
			Description:   input.Description,
			InitVideo:     input.InitVideo,
			EndVideo:      input.EndVideo,
			InitDate:      input.InitDate,
			EndDate:       input.EndDate,
			IsCause:       input.IsCause,
			IsExperience:  input.IsExperience,
			RequestAmount: input.RequestAmount,
			Foundation:    models.RefFromHex(input.Foundation),
			Category:      models.RefFromHex(input.Category),
			Responsible:   models.RefFromHex(input.Responsible),
			CreatedBy:     models.NewRef(userID),
		}
		if !campaign.Foundation.OK() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid foundation id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		created, err := svc.Create(ctx, campaign)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create campaign"})
			return
		}

		c.JSON(http.StatusCreated, created)
	}
}

// ---------------- LIST ----------------
func ListCampaigns(svc *services.Campaigns) gin.HandlerFunc {
	return func(c *gin.Context) {
		sortKey, after, limit, err := pageParams(c, services.SortByName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// --- Build filter ---
		var filter services.CampaignFilter
		if raw := c.Query("state"); raw != "" {
			state := models.CampaignState(raw)
			filter.State = &state
		}
		if raw := c.Query("is_cause"); raw != "" {
			v := raw == "true"
			filter.IsCause = &v
		}
		if raw := c.Query("is_experience"); raw != "" {
			v := raw == "true"
			filter.IsExperience = &v
		}
		if raw := c.Query("foundation"); raw != "" {
			oid, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid foundation id"})
				return
			}
			filter.Foundation = &oid
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		views, next, err := svc.ListPage(ctx, filter, sortKey, after, limit)
		if err != nil {
			if errors.Is(err, services.ErrBadSortKey) || errors.Is(err, store.ErrNoSortKey) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported sort key"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch campaigns"})
			return
		}

		setListCacheHeaders(c, views)
		c.JSON(http.StatusOK, gin.H{"data": views, "next_cursor": cursorOrNil(next)})
	}
}

// ---------------- PENDING (admin approval queue) ----------------
func PendingCampaigns(svc *services.Campaigns) gin.HandlerFunc {
	return func(c *gin.Context) {
		sortKey, after, limit, err := pageParams(c, services.SortByCreatedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		views, next, err := svc.PendingPage(ctx, sortKey, after, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch pending campaigns"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": views, "next_cursor": cursorOrNil(next)})
	}
}

// ---------------- BY FOUNDATION ----------------
func CampaignsByFoundation(svc *services.Campaigns) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid foundation id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		views, err := svc.ByFoundation(ctx, oid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "foundation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch campaigns"})
			return
		}

		c.JSON(http.StatusOK, views)
	}
}

// ---------------- DASHBOARD ----------------
func CampaignDashboard(svc *services.Campaigns) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		summary, err := svc.Summary(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute dashboard summary"})
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

// ---------------- GET ----------------
func GetCampaign(svc *services.Campaigns) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		view, err := svc.Get(ctx, oid)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}

		etag := utils.GenerateETag(view.ID, view.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, view)
	}
}

// ---------------- LIFECYCLE ----------------
func ApproveCampaign(svc *services.Campaigns) gin.HandlerFunc {
	return transitionHandler(svc.Approve, "campaign approved")
}

func BeginCampaignExecution(svc *services.Campaigns) gin.HandlerFunc {
	return transitionHandler(svc.BeginExecution, "campaign execution started")
}

func FinishCampaign(svc *services.Campaigns) gin.HandlerFunc {
	return transitionHandler(svc.Finish, "campaign finished")
}

func transitionHandler(fn func(context.Context, primitive.ObjectID) error, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := fn(ctx, oid); err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			case errors.Is(err, models.ErrBadTransition):
				c.JSON(http.StatusConflict, gin.H{"error": "transition not allowed from current state"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update campaign"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": message, "id": oid.Hex()})
	}
}

// ---------------- UPLOAD VIDEO ----------------
func UploadCampaignVideo(svc *services.Campaigns) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
			return
		}
		slot := c.DefaultQuery("slot", services.VideoSlotInit)

		fileHeader, err := c.FormFile("video")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "video file is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
			return
		}
		url, err := utils.UploadCampaignMedia(file, fileHeader)
		file.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "media upload failed", "details": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		previous, err := svc.SetVideo(ctx, oid, slot, url)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			case errors.Is(err, services.ErrBadVideoSlot):
				c.JSON(http.StatusBadRequest, gin.H{"error": "slot must be init or end"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update campaign"})
			}
			return
		}

		// best effort: the replaced asset is orphaned either way
		if previous != "" {
			_ = utils.DeleteFromCloudinary(previous)
		}

		c.JSON(http.StatusOK, gin.H{"message": "video uploaded", "url": url, "slot": slot})
	}
}

// ---------------- TOGGLE ----------------
func ToggleCampaignStatus(svc *services.Campaigns) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
			return
		}

		var input struct {
			Status *bool `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := svc.SetEnabled(ctx, oid, *input.Status); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update campaign"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "campaign status updated", "id": oid.Hex()})
	}
}

// ---------------- DELETE (soft) ----------------
func DeleteCampaign(svc *services.Campaigns) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := svc.SoftDelete(ctx, oid); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete campaign"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "campaign deleted", "id": oid.Hex()})
	}
}

func cursorOrNil(cur *store.Cursor) any {
	if cur == nil {
		return nil
	}
	return encodeCursor(cur)
}

// setListCacheHeaders emits ETag and Last-Modified derived from the most
// recently updated row, matching the single-document handlers.
func setListCacheHeaders(c *gin.Context, views []models.CampaignView) {
	if len(views) == 0 {
		return
	}
	latest := views[0]
	for _, v := range views {
		if v.UpdatedAt.After(latest.UpdatedAt) {
			latest = v
		}
	}
	etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
	c.Header("ETag", etag)
	c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))
}

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
func CreateFoundation(svc *services.Foundations) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("user_id")
		userID, err := primitive.ObjectIDFromHex(uid)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}

		// --- Bind form fields ---
		var input struct {
			Name            string  `form:"name" binding:"required"`
			Description     string  `form:"description"`
			Phone           string  `form:"phone"`
			ConfidenceLevel int     `form:"confidence_level"`
			Country         string  `form:"country"`
			City            string  `form:"city"`
			Address         string  `form:"address"`
			Lat             float64 `form:"lat"`
			Lng             float64 `form:"lng"`
			Bank            string  `form:"bank"`
			AccountType     string  `form:"account_type"`
			AccountNumber   string  `form:"account_number"`
			HolderID        string  `form:"holder_id"`
			PayoutEmail     string  `form:"payout_email"`
		}
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// --- Handle file uploads ---
		form, err := c.MultipartForm()
		if err != nil && err != http.ErrNotMultipart {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}

		var mediaURLs []string
		if form != nil {
			files := form.File["multimedia"] // key must be "multimedia"
			for _, fileHeader := range files {
				file, err := fileHeader.Open()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
					return
				}

				url, err := utils.UploadFoundationMedia(file, fileHeader)
				file.Close()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{
						"error":   "media upload failed",
						"details": err.Error(),
						"file":    fileHeader.Filename,
					})
					return
				}

				mediaURLs = append(mediaURLs, url)
			}
		}

		foundation := models.Foundation{
			Name:            input.Name,
			Description:     input.Description,
			Phone:           input.Phone,
			ConfidenceLevel: input.ConfidenceLevel,
			Country:         input.Country,
			City:            input.City,
			Address:         input.Address,
			Coordinates: models.Coordinates{
				Lat: input.Lat,
				Lng: input.Lng,
			},
			Responsible: models.NewRef(userID),
			Multimedia:  mediaURLs,
			FundsTransfer: models.FundsTransferData{
				Bank:          input.Bank,
				AccountType:   input.AccountType,
				AccountNumber: input.AccountNumber,
				HolderID:      input.HolderID,
				Email:         input.PayoutEmail,
			},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		created, err := svc.Create(ctx, foundation)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create foundation"})
			return
		}

		c.JSON(http.StatusCreated, created)
	}
}

// ---------------- LIST ----------------
func ListFoundations(svc *services.Foundations) gin.HandlerFunc {
	return func(c *gin.Context) {
		sortKey, after, limit, err := pageParams(c, services.SortByName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var filter services.FoundationFilter
		if raw := c.Query("enabled"); raw != "" {
			v := raw == "true"
			filter.Enabled = &v
		}
		filter.Country = c.Query("country")

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		rows, next, err := svc.ListPage(ctx, filter, sortKey, after, limit)
		if err != nil {
			if errors.Is(err, services.ErrBadSortKey) || errors.Is(err, store.ErrNoSortKey) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported sort key"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch foundations"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": rows, "next_cursor": cursorOrNil(next)})
	}
}

// ---------------- GET ----------------
func GetFoundation(svc *services.Foundations) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid foundation id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		foundation, err := svc.Get(ctx, oid)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "foundation not found"})
			return
		}

		etag := utils.GenerateETag(foundation.ID, foundation.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, foundation)
	}
}

// ---------------- UPLOAD MEDIA ----------------
func UploadFoundationMedia(svc *services.Foundations) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid foundation id"})
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}

		var mediaURLs []string
		for _, fileHeader := range form.File["multimedia"] {
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
				return
			}
			url, err := utils.UploadFoundationMedia(file, fileHeader)
			file.Close()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "media upload failed", "details": err.Error()})
				return
			}
			mediaURLs = append(mediaURLs, url)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		if err := svc.AddMultimedia(ctx, oid, mediaURLs); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "foundation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update foundation"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "media uploaded", "urls": mediaURLs})
	}
}

// ---------------- TOGGLE ----------------
func ToggleFoundationStatus(svc *services.Foundations) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid foundation id"})
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
				c.JSON(http.StatusNotFound, gin.H{"error": "foundation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update foundation"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "foundation status updated", "id": oid.Hex()})
	}
}

// ---------------- DELETE (soft) ----------------
func DeleteFoundation(svc *services.Foundations) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid foundation id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := svc.SoftDelete(ctx, oid); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "foundation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete foundation"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "foundation deleted", "id": oid.Hex()})
	}
}

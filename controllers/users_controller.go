package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givers/givers-backend/services"
	"github.com/givers/givers-backend/store"
)

// ---------------- LIST ----------------
func ListUsers(svc *services.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		sortKey, after, limit, err := pageParams(c, services.SortByName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		rows, next, err := svc.ListPage(ctx, c.Query("profile"), sortKey, after, limit)
		if err != nil {
			if errors.Is(err, services.ErrBadSortKey) || errors.Is(err, store.ErrNoSortKey) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported sort key"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch users"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": rows, "next_cursor": cursorOrNil(next)})
	}
}

// ---------------- GET ----------------
func GetUser(svc *services.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := svc.Get(ctx, oid)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

// ---------------- TOGGLE ----------------
func ToggleUserStatus(svc *services.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
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
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "user status updated", "id": oid.Hex()})
	}
}

// ---------------- DELETE (soft) ----------------
func DeleteUser(svc *services.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := svc.SoftDelete(ctx, oid); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "user deleted", "id": oid.Hex()})
	}
}

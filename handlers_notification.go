package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskroom/models"
	"taskroom/pkg/session"
)

// listNotificationsHandler returns the caller's notifications, newest first,
// paged via ?page= and ?pageSize=.
func (a *App) listNotificationsHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	var items []models.Notification
	err := a.db.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&items).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// markAsReadHandler marks one notification as read, or all of them when
// read_all is set.
func (a *App) markAsReadHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		NotificationID uint `json:"notification_id"`
		ReadAll        bool `json:"read_all"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := a.db.Model(&models.Notification{}).Where("user_id = ?", user.ID)
	if !req.ReadAll {
		if req.NotificationID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "notification_id required"})
			return
		}
		q = q.Where("id = ?", req.NotificationID)
	}
	res := q.Update("is_read", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !req.ReadAll && res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}

// updateFCMTokenHandler binds a push-delivery token to the caller's current
// session, identified by its refresh token.
func (a *App) updateFCMTokenHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
		FCMToken     string `json:"fcm_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RefreshToken == "" {
		req.RefreshToken = a.cookiePair(c).RefreshToken
	}
	err := a.sessions.UpdateSessionFCMToken(c.Request.Context(), user.ID, req.RefreshToken, req.FCMToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrTokenExpired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fcm token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fcm token updated"})
}

package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskroom/models"
)

func (a *App) isRoomOwner(userID, roomID uint) bool {
	var ur models.UserRoom
	err := a.db.Where("user_id = ? AND room_id = ? AND is_owner", userID, roomID).First(&ur).Error
	return err == nil
}

func (a *App) isRoomMember(userID, roomID uint) bool {
	var ur models.UserRoom
	err := a.db.Where("user_id = ? AND room_id = ?", userID, roomID).First(&ur).Error
	return err == nil
}

// createRoomHandler creates a room and makes the caller its owner in one
// transaction.
func (a *App) createRoomHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	room := models.Room{
		Name:        req.Name,
		Description: req.Description,
		InviteCode:  strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
	}
	err := a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserRoom{UserID: user.ID, RoomID: room.ID, IsOwner: true}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": room.ID, "invite_code": room.InviteCode})
}

// listRoomsHandler returns every room with its owner and whether the caller
// has joined it.
func (a *App) listRoomsHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	type roomRow struct {
		ID          uint   `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		OwnerID     uint   `json:"owner_id"`
		OwnerName   string `json:"owner_name"`
		IsJoined    bool   `json:"is_joined"`
	}
	var rows []roomRow
	err := a.db.Table("rooms").
		Select(`rooms.id, rooms.name, rooms.description,
			owners.id AS owner_id, owners.full_name AS owner_name,
			CASE WHEN cur.id IS NOT NULL THEN TRUE ELSE FALSE END AS is_joined`).
		Joins("JOIN user_rooms owner_ur ON owner_ur.room_id = rooms.id AND owner_ur.is_owner AND owner_ur.deleted_at IS NULL").
		Joins("JOIN users owners ON owners.id = owner_ur.user_id").
		Joins("LEFT JOIN user_rooms cur ON cur.room_id = rooms.id AND cur.user_id = ? AND cur.deleted_at IS NULL", user.ID).
		Where("rooms.deleted_at IS NULL").
		Order("rooms.id").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (a *App) getRoomHandler(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var room models.Room
	if err := a.db.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	var owner models.UserRoom
	if err := a.db.Preload("User").Where("room_id = ? AND is_owner", room.ID).First(&owner).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"roomName":        room.Name,
		"roomDescription": room.Description,
		"owner": gin.H{
			"id":       owner.User.ID,
			"email":    owner.User.Email,
			"fullName": owner.User.FullName,
		},
	}})
}

func (a *App) joinByInviteHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var room models.Room
	if err := a.db.Where("invite_code = ?", req.InviteCode).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if a.isRoomMember(user.ID, room.ID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User is already a member of the room"})
		return
	}
	if err := a.db.Create(&models.UserRoom{UserID: user.ID, RoomID: room.ID}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"roomId": room.ID}})
}

// addMemberHandler lets the room owner add a member by email.
func (a *App) addMemberHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var room models.Room
	if err := a.db.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if !a.isRoomOwner(user.ID, room.ID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "You are not the owner of the room"})
		return
	}
	var member models.User
	if err := a.db.Where("email = ?", req.Email).First(&member).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if a.isRoomMember(member.ID, room.ID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User is already a member of the room"})
		return
	}
	if err := a.db.Create(&models.UserRoom{UserID: member.ID, RoomID: room.ID}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member added"})
}

func (a *App) roomMembersHandler(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	includeOwner := !strings.EqualFold(c.DefaultQuery("includeOwner", "true"), "false")
	var members []models.UserRoom
	err := a.db.Preload("User").
		Joins("JOIN users ON users.id = user_rooms.user_id").
		Where("user_rooms.room_id = ?", roomID).
		Order("user_rooms.is_owner DESC").
		Order("users.full_name ASC").
		Find(&members).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]gin.H, 0, len(members))
	for _, m := range members {
		if !includeOwner && m.IsOwner {
			continue
		}
		out = append(out, gin.H{
			"id":      m.ID,
			"isOwner": m.IsOwner,
			"user": gin.H{
				"id":       m.User.ID,
				"email":    m.User.Email,
				"fullName": m.User.FullName,
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// removeMemberHandler removes one member, or all non-owner members when
// remove_all is set. Owner only.
func (a *App) removeMemberHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		UserID    uint `json:"user_id"`
		RemoveAll bool `json:"remove_all"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var room models.Room
	if err := a.db.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if !a.isRoomOwner(user.ID, room.ID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "You are not the owner of the room"})
		return
	}
	if req.RemoveAll {
		var cnt int64
		a.db.Model(&models.UserRoom{}).Where("room_id = ? AND NOT is_owner", room.ID).Count(&cnt)
		if cnt == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Room has no members"})
			return
		}
		if err := a.db.Where("room_id = ? AND NOT is_owner", room.ID).Delete(&models.UserRoom{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove members"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Members removed"})
		return
	}
	var ur models.UserRoom
	if err := a.db.Where("room_id = ? AND user_id = ? AND NOT is_owner", room.ID, req.UserID).First(&ur).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User is not a member of the room"})
		return
	}
	if err := a.db.Delete(&ur).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove member"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// deleteRoomHandler soft-deletes an empty room (owner only). A room with
// members has to be emptied first.
func (a *App) deleteRoomHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	var room models.Room
	if err := a.db.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if !a.isRoomOwner(user.ID, room.ID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "You are not the owner of the room"})
		return
	}
	var cnt int64
	a.db.Model(&models.UserRoom{}).Where("room_id = ?", room.ID).Count(&cnt)
	if cnt > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room has members. Please remove all members first"})
		return
	}
	err := a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.UserRoom{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room removed"})
}

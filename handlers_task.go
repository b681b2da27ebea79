package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskroom/models"
)

// createTaskHandler creates a task in a room, optionally assigned to one of
// its members. Due dates in the past are rejected.
func (a *App) createTaskHandler(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		DueDate     string `json:"due_date" binding:"required"` // RFC3339
		RoomID      uint   `json:"room_id" binding:"required"`
		UserID      *uint  `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	due, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be RFC3339"})
		return
	}
	if due.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Due date is invalid"})
		return
	}
	var room models.Room
	if err := a.db.First(&room, req.RoomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if req.UserID != nil {
		var assignee models.User
		if err := a.db.First(&assignee, *req.UserID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if !a.isRoomMember(assignee.ID, room.ID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User is not in the room"})
			return
		}
	}
	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		Status:      models.TaskStatusTodo,
		RoomID:      room.ID,
		UserID:      req.UserID,
	}
	if err := a.db.Create(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task created", "id": task.ID})
}

// listRoomTasksHandler lists tasks of a room, optionally filtered by
// assignee via ?userId=.
func (a *App) listRoomTasksHandler(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	type taskRow struct {
		ID          uint       `json:"id"`
		Title       string     `json:"title"`
		Description string     `json:"description"`
		DueDate     time.Time  `json:"dueDate"`
		Status      string     `json:"status"`
		Review      string     `json:"review"`
		Assignee    *gin.H     `json:"user"`
	}
	q := a.db.Preload("User").Where("room_id = ?", roomID)
	if userID := c.Query("userId"); userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var tasks []models.Task
	if err := q.Order("id").Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]taskRow, 0, len(tasks))
	for _, t := range tasks {
		row := taskRow{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			DueDate:     t.DueDate,
			Status:      t.Status,
			Review:      t.Review,
		}
		if t.User != nil {
			row.Assignee = &gin.H{"id": t.User.ID, "fullName": t.User.FullName, "email": t.User.Email}
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// updateTaskHandler updates a task's info and reassigns it; a changed
// assignee gets notified.
func (a *App) updateTaskHandler(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		DueDate     string `json:"due_date" binding:"required"`
		UserID      *uint  `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	due, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil || due.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Due date is invalid"})
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	var task models.Task
	if err := a.db.Preload("Room").First(&task, taskID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if req.UserID != nil {
		if !a.isRoomMember(*req.UserID, task.RoomID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User is not in the room"})
			return
		}
	}
	assigneeChanged := req.UserID != nil && (task.UserID == nil || *task.UserID != *req.UserID)
	updates := map[string]interface{}{
		"title":       req.Title,
		"description": req.Description,
		"due_date":    due,
		"user_id":     req.UserID,
	}
	if err := a.db.Model(&task).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if assigneeChanged {
		a.notifier.Notify(c.Request.Context(), *req.UserID, "Assigned to task",
			fmt.Sprintf("Assigned to task %q in room %q", task.Title, task.Room.Name))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task updated"})
}

// assignTaskHandler assigns a task to a room member (owner only) and
// notifies the assignee.
func (a *App) assignTaskHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		TaskID uint `json:"task_id" binding:"required"`
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var task models.Task
	if err := a.db.Preload("Room").First(&task, req.TaskID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if !a.isRoomOwner(user.ID, task.RoomID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "You are not allowed to assign task"})
		return
	}
	if !a.isRoomMember(req.UserID, task.RoomID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User is not in the room"})
		return
	}
	if err := a.db.Model(&task).Update("user_id", req.UserID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	a.notifier.Notify(c.Request.Context(), req.UserID, "Assigned to task",
		fmt.Sprintf("Assigned to task %q in room %q", task.Title, task.Room.Name))
	c.JSON(http.StatusOK, gin.H{"message": "Task assigned"})
}

// updateTaskStatusHandler lets the room owner or the assignee move a task
// between statuses. A member completing a task notifies the owner.
func (a *App) updateTaskStatusHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		TaskID uint   `json:"task_id" binding:"required"`
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is invalid"})
		return
	}
	var task models.Task
	if err := a.db.Preload("Room").First(&task, req.TaskID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	isOwner := a.isRoomOwner(user.ID, task.RoomID)
	isAssignee := task.UserID != nil && *task.UserID == user.ID
	if !isOwner && !isAssignee {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "You are not allowed to update status"})
		return
	}
	if err := a.db.Model(&task).Update("status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !isOwner && req.Status == models.TaskStatusDone {
		var owner models.UserRoom
		if err := a.db.Where("room_id = ? AND is_owner", task.RoomID).First(&owner).Error; err == nil {
			a.notifier.Notify(c.Request.Context(), owner.UserID, "Task completed",
				fmt.Sprintf("Task %q in room %q is DONE", task.Title, task.Room.Name))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task status updated"})
}

func (a *App) deleteTaskHandler(c *gin.Context) {
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	var task models.Task
	if err := a.db.First(&task, taskID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if err := a.db.Delete(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

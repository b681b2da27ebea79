package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskroom/pkg/session"
)

func (a *App) signupHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		FullName string `json:"full_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.sessions.Register(c.Request.Context(), req.Email, req.Password, req.FullName); err != nil {
		if errors.Is(err, session.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created"})
}

func (a *App) loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pair, err := a.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// One generic message for every failure mode; no account enumeration.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	a.setAuthCookie(c, pair)
	c.JSON(http.StatusOK, pair)
}

// refreshHandler exchanges a token pair for a rotated one. The pair comes
// from the request body or, for cookie-based clients, the auth cookie.
func (a *App) refreshHandler(c *gin.Context) {
	var req session.TokenPair
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		req = a.cookiePair(c)
	}
	if req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := a.sessions.Refresh(c.Request.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		// The precise failure (invalid, reused, expired) is logged by the
		// session manager; clients only see a generic rejection.
		a.clearAuthCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	a.setAuthCookie(c, pair)
	c.JSON(http.StatusOK, pair)
}

// sessionHandler is the cookie client's silent session check: it reports
// whether the auth cookie still holds a live session. The access token in the
// cookie may already be expired; only its signature and subject matter here.
func (a *App) sessionHandler(c *gin.Context) {
	pair := a.cookiePair(c)
	if pair.RefreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}
	user, ok := a.sessions.ValidateExistingSession(c.Request.Context(), pair.AccessToken, pair.RefreshToken)
	if !ok {
		a.clearAuthCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
	})
}

func (a *App) logoutHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req session.TokenPair
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		req = a.cookiePair(c)
	}
	if err := a.sessions.Logout(c.Request.Context(), user.ID, req.AccessToken, req.RefreshToken); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	a.clearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (a *App) meHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      user.Role.Name,
	})
}

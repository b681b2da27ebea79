package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskroom/models"
	"taskroom/pkg/session"
)

const ctxUserKey = "currentUser"

// App wires the HTTP layer to the session manager and the database. All
// dependencies are injected; there is no package-level state.
type App struct {
	cfg      Config
	db       *gorm.DB
	sessions *session.Manager
	notifier *Notifier
	log      *zap.Logger
}

func newApp(cfg Config, db *gorm.DB, logger *zap.Logger) (*App, error) {
	ledger := session.NewLedger(db)
	mgr, err := session.NewManager(session.Config{
		AccessTokenSecret: []byte(cfg.AccessTokenSecret),
		AccessTokenTTL:    cfg.AccessTokenTTL,
		RefreshTokenTTL:   cfg.RefreshTokenTTL,
	}, ledger, session.NewPrincipals(db), nil, logger.Named("session"))
	if err != nil {
		return nil, err
	}
	notifier := &Notifier{
		db:     db,
		ledger: ledger,
		sender: LogSender{Log: logger.Named("push")},
		log:    logger.Named("notifier"),
	}
	return &App{cfg: cfg, db: db, sessions: mgr, notifier: notifier, log: logger}, nil
}

func (a *App) setupRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	// public
	api.POST("/auth/signup", a.signupHandler)
	api.POST("/auth/login", a.loginHandler)
	api.POST("/auth/refresh", a.refreshHandler)
	api.GET("/auth/session", a.sessionHandler)

	auth := api.Group("")
	auth.Use(a.authRequired())
	auth.POST("/auth/logout", a.logoutHandler)
	auth.GET("/auth/me", a.meHandler)

	auth.POST("/room", a.createRoomHandler)
	auth.GET("/room", a.listRoomsHandler)
	auth.GET("/room/:roomId", a.getRoomHandler)
	auth.GET("/room/:roomId/users", a.roomMembersHandler)
	auth.POST("/room/:roomId/add-member", a.addMemberHandler)
	auth.POST("/room/join-by-invite", a.joinByInviteHandler)
	auth.DELETE("/room/:roomId/remove-member", a.removeMemberHandler)
	auth.DELETE("/room/:roomId", a.deleteRoomHandler)

	auth.POST("/task", a.createTaskHandler)
	auth.GET("/task/room/:roomId", a.listRoomTasksHandler)
	auth.PATCH("/task/:taskId/update-task-info", a.updateTaskHandler)
	auth.PATCH("/task/update-status", a.updateTaskStatusHandler)
	auth.PUT("/task/assign", a.assignTaskHandler)
	auth.DELETE("/task/:taskId", a.deleteTaskHandler)

	auth.GET("/notification", a.listNotificationsHandler)
	auth.PATCH("/notification/mark-as-read", a.markAsReadHandler)
	auth.PATCH("/notification/fcm-token", a.updateFCMTokenHandler)
}

// authRequired extracts the access token from the Authorization header or the
// auth cookie and resolves it to a principal. Any validation failure rejects
// the request; routes outside this group proceed with no principal attached.
func (a *App) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			raw = a.cookiePair(c).AccessToken
		}
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		user, ok := a.sessions.ValidateAccessToken(c.Request.Context(), raw)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Set(ctxUserKey, user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) < 8 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return h[7:]
}

// cookiePair reads the auth cookie, whose value is a JSON-encoded token pair
// as set by the login handler.
func (a *App) cookiePair(c *gin.Context) session.TokenPair {
	val, err := c.Cookie(a.cfg.CookieAuth)
	if err != nil {
		return session.TokenPair{}
	}
	var pair session.TokenPair
	if err := json.Unmarshal([]byte(val), &pair); err != nil {
		return session.TokenPair{}
	}
	return pair
}

func (a *App) setAuthCookie(c *gin.Context, pair session.TokenPair) {
	b, err := json.Marshal(pair)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(a.cfg.CookieAuth, string(b), int(a.cfg.RefreshTokenTTL.Seconds()), "/", "", false, true)
}

func (a *App) clearAuthCookie(c *gin.Context) {
	c.SetCookie(a.cfg.CookieAuth, "", -1, "/", "", false, true)
}

// pathID parses a numeric path parameter. Path segments are attacker
// controlled and must never reach the database as anything but an integer;
// malformed input gets a 400 and the handler stops.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// currentUser fetches the principal attached by authRequired.
func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

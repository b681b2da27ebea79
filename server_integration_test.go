package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskroom/models"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewBuffer(b)
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set TASKROOM_DB_DSN_TEST=1 and
	// TASKROOM_DB_DSN to run them against a disposable Postgres.
	if os.Getenv("TASKROOM_DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set TASKROOM_DB_DSN_TEST=1 to enable")
	}
	if os.Getenv("TASKROOM_ACCESS_TOKEN_SECRET") == "" {
		t.Setenv("TASKROOM_ACCESS_TOKEN_SECRET", "integration-test-secret")
	}
	gin.SetMode(gin.TestMode)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	logger := zap.NewNop()
	db, err := openDB(cfg, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	app, err := newApp(cfg, db, logger)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	r := gin.New()
	app.setupRoutes(r)
	return r
}

// authCookie builds the auth cookie the way the login handler sets it: a
// JSON-encoded token pair, query-escaped as gin's SetCookie does.
func authCookie(t *testing.T, accessToken, refreshToken string) *http.Cookie {
	t.Helper()
	b, err := json.Marshal(map[string]string{"access_token": accessToken, "refresh_token": refreshToken})
	if err != nil {
		t.Fatalf("marshal cookie pair: %v", err)
	}
	return &http.Cookie{Name: "Authentication", Value: url.QueryEscape(string(b))}
}

type authClient struct {
	email        string
	accessToken  string
	refreshToken string
}

func signupAndLogin(t *testing.T, r http.Handler, email, password, name string) *authClient {
	t.Helper()
	resp := performRequest(r, http.MethodPost, "/api/v1/auth/signup",
		jsonBody(t, map[string]string{"email": email, "password": password, "full_name": name}), "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("signup failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/api/v1/auth/login",
		jsonBody(t, map[string]string{"email": email, "password": password}), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("incomplete token pair in login response: %s", resp.Body.String())
	}
	return &authClient{email: email, accessToken: pair.AccessToken, refreshToken: pair.RefreshToken}
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)
	suffix := time.Now().UnixNano()

	owner := signupAndLogin(t, r, fmt.Sprintf("owner-%d@example.com", suffix), "ownerpass", "Owner")
	member := signupAndLogin(t, r, fmt.Sprintf("member-%d@example.com", suffix), "memberpass", "Member")

	// Duplicate signup is rejected with a conflict.
	resp := performRequest(r, http.MethodPost, "/api/v1/auth/signup",
		jsonBody(t, map[string]string{"email": owner.email, "password": "ownerpass", "full_name": "Owner"}), "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate signup got %d body=%s", resp.Code, resp.Body.String())
	}

	// Who am I.
	resp = performRequest(r, http.MethodGet, "/api/v1/auth/me", nil, owner.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("me failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var me struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &me)
	if me.Email != owner.email {
		t.Fatalf("me returned wrong principal: %s", resp.Body.String())
	}

	// Create a room.
	resp = performRequest(r, http.MethodPost, "/api/v1/room",
		jsonBody(t, map[string]string{"name": "Sprint Board", "description": "integration room"}), owner.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("create room failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var room struct {
		ID         uint   `json:"id"`
		InviteCode string `json:"invite_code"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &room)
	if room.ID == 0 || room.InviteCode == "" {
		t.Fatalf("incomplete room in response: %s", resp.Body.String())
	}

	// Second user joins by invite code.
	resp = performRequest(r, http.MethodPost, "/api/v1/room/join-by-invite",
		jsonBody(t, map[string]string{"invite_code": room.InviteCode}), member.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("join by invite failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// Both see the room.
	for _, c := range []*authClient{owner, member} {
		resp = performRequest(r, http.MethodGet, "/api/v1/room", nil, c.accessToken)
		if resp.Code != http.StatusOK {
			t.Fatalf("list rooms failed for %s status=%d body=%s", c.email, resp.Code, resp.Body.String())
		}
	}

	// Owner creates a task in the room.
	resp = performRequest(r, http.MethodPost, "/api/v1/task", jsonBody(t, map[string]any{
		"room_id":     room.ID,
		"title":       "Write integration tests",
		"description": "cover the full auth and task flow",
		"due_date":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}), owner.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("create task failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var task struct {
		ID uint `json:"id"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &task)
	if task.ID == 0 {
		t.Fatalf("incomplete task in response: %s", resp.Body.String())
	}

	// Assign it to the member; the member moves it along.
	resp = performRequest(r, http.MethodPut, "/api/v1/task/assign",
		jsonBody(t, map[string]any{"task_id": task.ID, "user_id": memberID(t, r, member)}), owner.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("assign task failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPatch, "/api/v1/task/update-status",
		jsonBody(t, map[string]any{"task_id": task.ID, "status": "DONE"}), member.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("update status failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// Assignment produced a notification for the member.
	resp = performRequest(r, http.MethodGet, "/api/v1/notification", nil, member.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("list notifications failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var notifications struct {
		Data []struct {
			ID     uint `json:"ID"`
			IsRead bool `json:"IsRead"`
		} `json:"data"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &notifications)
	if len(notifications.Data) == 0 {
		t.Fatalf("expected a notification for the assignee: %s", resp.Body.String())
	}

	// Marking a nonexistent notification is a 404; marking a real one works.
	resp = performRequest(r, http.MethodPatch, "/api/v1/notification/mark-as-read",
		jsonBody(t, map[string]any{"notification_id": 999999999}), member.accessToken)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown notification got %d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPatch, "/api/v1/notification/mark-as-read",
		jsonBody(t, map[string]any{"notification_id": notifications.Data[0].ID}), member.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("mark as read failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	resp = performRequest(r, http.MethodGet, "/api/v1/task/room/"+fmt.Sprint(room.ID), nil, owner.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("list tasks failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// Unauthorized access to a protected endpoint is 401.
	unauth := performRequest(r, http.MethodGet, "/api/v1/room", nil, "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list rooms got %d", unauth.Code)
	}

	// A non-numeric room id is rejected before it can reach a query.
	resp = performRequest(r, http.MethodGet, "/api/v1/room/1%20OR%201=1", nil, owner.accessToken)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric room id got %d body=%s", resp.Code, resp.Body.String())
	}
}

func memberID(t *testing.T, r http.Handler, c *authClient) uint {
	t.Helper()
	resp := performRequest(r, http.MethodGet, "/api/v1/auth/me", nil, c.accessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("me failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var me struct {
		ID uint `json:"id"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &me)
	if me.ID == 0 {
		t.Fatalf("me returned no id: %s", resp.Body.String())
	}
	return me.ID
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	r := setupTestServer(t)
	email := fmt.Sprintf("rotate-%d@example.com", time.Now().UnixNano())
	c := signupAndLogin(t, r, email, "rotatepass", "Rotate")

	// Exchange the pair for a rotated one.
	resp := performRequest(r, http.MethodPost, "/api/v1/auth/refresh",
		jsonBody(t, map[string]string{"access_token": c.accessToken, "refresh_token": c.refreshToken}), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("refresh failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var next struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &next)
	if next.RefreshToken == "" || next.RefreshToken == c.refreshToken {
		t.Fatalf("refresh did not rotate: %s", resp.Body.String())
	}

	// Cookie-based silent session check: live pair resolves, garbage does not.
	resp = performRequest(r, http.MethodGet, "/api/v1/auth/session", nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for session check without cookie got %d", resp.Code)
	}
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.AddCookie(authCookie(t, next.AccessToken, next.RefreshToken))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("session check failed status=%d body=%s", rec.Code, rec.Body.String())
	}
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.AddCookie(authCookie(t, next.AccessToken, "bogus"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for session check with bogus refresh token got %d", rec.Code)
	}

	// Replaying the consumed pair is rejected and kills the chain.
	resp = performRequest(r, http.MethodPost, "/api/v1/auth/refresh",
		jsonBody(t, map[string]string{"access_token": c.accessToken, "refresh_token": c.refreshToken}), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for replayed refresh got %d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/api/v1/auth/refresh",
		jsonBody(t, map[string]string{"access_token": next.AccessToken, "refresh_token": next.RefreshToken}), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh on revoked chain got %d body=%s", resp.Code, resp.Body.String())
	}

	// A fresh login recovers, and logout closes that session.
	resp = performRequest(r, http.MethodPost, "/api/v1/auth/login",
		jsonBody(t, map[string]string{"email": email, "password": "rotatepass"}), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("re-login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &pair)
	resp = performRequest(r, http.MethodPost, "/api/v1/auth/logout",
		jsonBody(t, map[string]string{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken}), pair.AccessToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("logout failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/api/v1/auth/refresh",
		jsonBody(t, map[string]string{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken}), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh after logout got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("TASKROOM_DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set TASKROOM_DB_DSN_TEST=1 to enable")
	}
	// Mirrors the `migrate` subcommand path: migration and seeding run
	// explicitly, even with auto-migrate disabled.
	t.Setenv("TASKROOM_DB_AUTO_MIGRATE", "false")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBAutoMigrate {
		t.Fatal("expected auto-migrate to be disabled")
	}
	logger := zap.NewNop()
	db, err := openDB(cfg, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	migrateDB(db, logger)
	seedDB(db, cfg, logger)

	var cnt int64
	if err := db.Model(&models.Role{}).Count(&cnt).Error; err != nil {
		t.Fatalf("count roles: %v", err)
	}
	if cnt < 2 {
		t.Fatalf("expected seeded roles, found %d", cnt)
	}
}

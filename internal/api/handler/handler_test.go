package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/hub"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const secret = "test-secret"

type env struct {
	router http.Handler
	store  *storage.Service
	hub    *hub.ManagerService
	users  map[string]*models.User
}

func newEnv(t *testing.T, opts complaint.Options) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, storage.Migrate(db))

	store := storage.NewStorageService(db)
	e := &env{store: store, users: map[string]*models.User{}}
	for name, u := range map[string]*models.User{
		"studentA": {Email: "2024ugcs001@nitjsr.ac.in", Role: models.RoleStudent, Department: models.DepartmentNone},
		"studentB": {Email: "2024ugcs002@nitjsr.ac.in", Role: models.RoleStudent, Department: models.DepartmentNone},
		"adminB":   {Email: "chiefwarden@nitjsr.ac.in", Role: models.RoleAdmin, Department: models.DepartmentHostel},
		"adminC":   {Email: "warden.h2@nitjsr.ac.in", Role: models.RoleAdmin, Department: models.DepartmentHostel},
		"super":    {Email: "registrar@nitjsr.ac.in", Role: models.RoleSuperAdmin, Department: models.DepartmentAll},
	} {
		require.NoError(t, store.SaveUser(context.Background(), u))
		e.users[name] = u
	}

	e.hub = hub.NewManagerService(nil, hub.RolePolicy{Lookup: store.GetComplaintByID}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go e.hub.Run(ctx)
	t.Cleanup(func() { cancel(); <-e.hub.Done() })

	svc := complaint.NewService(store, e.hub, nil, opts)
	h := handler.NewHandler(e.hub, svc, store, handler.NewAuthenticator(secret), nil)
	e.router = h.Router(false)
	return e
}

func (e *env) token(t *testing.T, name string) string {
	t.Helper()
	u := e.users[name]
	claims := handler.Claims{
		UserID:     u.ID,
		Email:      u.Email,
		Role:       u.Role,
		Department: string(u.Department),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (e *env) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type apiError struct {
	Error struct {
		Kind    string `json:"kind"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestComplaintLifecycle(t *testing.T) {
	e := newEnv(t, complaint.Options{BroadcastAll: true})

	w := e.do(t, http.MethodPost, "/api/complaints", "studentA", map[string]any{"title": "No water", "category": "hostel"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.ComplaintDetail](t, w)
	assert.Equal(t, models.StatusOpen, created.Status)
	assert.Nil(t, created.ClaimedBy)
	assert.Equal(t, "2024ugcs001@nitjsr.ac.in", created.AuthorEmail)

	path := fmt.Sprintf("/api/complaints/%d", created.ID)

	w = e.do(t, http.MethodPatch, path+"/claim", "adminB", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	claimed := decode[models.ComplaintDetail](t, w)
	assert.Equal(t, models.StatusInProgress, claimed.Status)
	assert.Equal(t, e.users["adminB"].ID, *claimed.ClaimedBy)

	w = e.do(t, http.MethodPatch, path+"/claim", "adminC", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_CLAIMED", decode[apiError](t, w).Error.Code)

	resolve := map[string]any{"status": "resolved", "remarks": "done"}
	w = e.do(t, http.MethodPatch, path+"/status", "adminC", resolve)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, path+"/updates", "studentA", map[string]any{"message": "any news?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPatch, path+"/status", "adminB", resolve)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusResolved, decode[models.ComplaintDetail](t, w).Status)

	w = e.do(t, http.MethodGet, path+"/timeline", "studentA", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[[]complaint.TimelineEvent](t, w)
	require.Len(t, events, 3)
	assert.Equal(t, complaint.TimelineCreated, events[0].Type)
	assert.Equal(t, "Student Comment", events[1].Title)
	assert.Equal(t, complaint.TimelineResolved, events[2].Type)

	// the student may file again once the first complaint is terminal
	w = e.do(t, http.MethodPost, "/api/complaints", "studentA", map[string]any{"title": "Wifi down", "category": "internet"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateComplaint_Errors(t *testing.T) {
	e := newEnv(t, complaint.Options{})

	w := e.do(t, http.MethodPost, "/api/complaints", "studentA", map[string]any{"title": " ", "category": "hostel"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TITLE_REQUIRED", decode[apiError](t, w).Error.Code)

	w = e.do(t, http.MethodPost, "/api/complaints", "studentA", map[string]any{"title": "x", "category": "parking"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decode[apiError](t, w).Error.Kind)

	w = e.do(t, http.MethodPost, "/api/complaints", "studentA", map[string]any{"title": "x", "category": "mess", "image": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decode[apiError](t, w).Error.Code)

	w = e.do(t, http.MethodPost, "/api/complaints", "adminB", map[string]any{"title": "x", "category": "mess"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/complaints", "studentA", map[string]any{"title": "x", "category": "mess"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(t, http.MethodPost, "/api/complaints", "studentA", map[string]any{"title": "y", "category": "mess"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[apiError](t, w)
	assert.Equal(t, "conflict", body.Error.Kind)
	assert.Equal(t, "ACTIVE_COMPLAINT_EXISTS", body.Error.Code)
}

func TestRoleGates(t *testing.T) {
	e := newEnv(t, complaint.Options{})

	w := e.do(t, http.MethodGet, "/api/complaints", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode[apiError](t, w).Error.Kind)

	w = e.do(t, http.MethodPatch, "/api/complaints/1/claim", "studentA", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPatch, "/api/complaints/999/claim", "adminB", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPatch, "/api/complaints/999/status", "adminB", map[string]any{"status": "resolved", "remarks": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPatch, "/api/complaints/1/status", "adminB", map[string]any{"status": "open", "remarks": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/complaints/abc", "adminB", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/complaints/stats", "adminB", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/complaints/999/timeline", "super", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidToken(t *testing.T) {
	e := newEnv(t, complaint.Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, handler.Claims{UserID: 1, Role: models.RoleSuperAdmin}).
		SignedString([]byte("other-secret"))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListAndStats(t *testing.T) {
	e := newEnv(t, complaint.Options{})
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/complaints", "studentA", map[string]any{"title": "No water", "category": "hostel"}).Code)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/complaints", "studentB", map[string]any{"title": "Cold food", "category": "mess"}).Code)

	w := e.do(t, http.MethodGet, "/api/complaints", "studentA", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ComplaintDetail](t, w), 1)

	w = e.do(t, http.MethodGet, "/api/complaints", "adminB", nil)
	hostel := decode[[]models.ComplaintDetail](t, w)
	require.Len(t, hostel, 1)
	assert.Equal(t, models.CategoryHostel, hostel[0].Category)

	w = e.do(t, http.MethodGet, "/api/complaints", "super", nil)
	assert.Len(t, decode[[]models.ComplaintDetail](t, w), 2)

	w = e.do(t, http.MethodGet, "/api/complaints/stats", "super", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]any](t, w)
	assert.EqualValues(t, 2, stats["total"])
	assert.EqualValues(t, 2, stats["active"])

	// students cannot read each other's complaints
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/complaints/%d", hostel[0].ID), "studentB", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealth(t *testing.T) {
	e := newEnv(t, complaint.Options{})
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/health", "", nil).Code)
	w := e.do(t, http.MethodGet, "/api/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestWebSocketReceivesNewComplaint(t *testing.T) {
	e := newEnv(t, complaint.Options{BroadcastAll: true})
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + e.token(t, "adminB")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(models.ClientCommand{Action: "subscribe", Topic: "department:hostel"}))
	var ack struct {
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "subscribed", ack.Payload["status"])

	w := e.do(t, http.MethodPost, "/api/complaints", "studentA", map[string]any{"title": "No water", "category": "hostel"})
	require.Equal(t, http.StatusCreated, w.Code)

	var ev struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, string(models.EventNewComplaint), ev.Type)
	assert.Equal(t, "No water", ev.Payload["title"])

	resp, err := http.Get(srv.URL + "/ws?token=garbage")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// Package handler exposes the complaint core over HTTP and websocket.
package handler

import (
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/hub"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const loggerKey = "logger"

// Handler holds the services the routes call into.
type Handler struct {
	Hub        *hub.ManagerService
	Complaints *complaint.Service
	Storage    storage.Storage
	Auth       *Authenticator
	Logger     *zap.Logger
}

func NewHandler(h *hub.ManagerService, complaints *complaint.Service, s storage.Storage, auth *Authenticator, logger *zap.Logger) *Handler {
	return &Handler{
		Hub:        h,
		Complaints: complaints,
		Storage:    s,
		Auth:       auth,
		Logger:     logging.OrNop(logger),
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router(development bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), func(c *gin.Context) {
		c.Set(loggerKey, h.Logger)
		c.Next()
	})
	if development {
		r.Use(gin.Logger())
	}

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/health/ready", h.Ready)

	complaints := api.Group("/complaints", h.AuthMiddleware())
	{
		complaints.GET("", h.ListComplaints)
		complaints.POST("", RequireRole(studentOnly...), h.CreateComplaint)
		complaints.GET("/stats", RequireRole(oversightOnly...), h.Stats)
		complaints.GET("/:id", h.GetComplaint)
		complaints.PATCH("/:id/claim", RequireRole(staffOnly...), h.ClaimComplaint)
		complaints.PATCH("/:id/status", RequireRole(staffOnly...), h.UpdateStatus)
		complaints.POST("/:id/updates", h.AddUpdate)
		complaints.GET("/:id/timeline", h.Timeline)
	}

	r.GET("/ws", h.ServeWebSocket)
	return r
}

// Package httpapi exposes the engine and its collaborators as the
// HTTP+JSON surface the clients talk to, plus the websocket push
// channel.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simhaf82/Handtiming/internal/auth"
	"github.com/simhaf82/Handtiming/internal/config"
	"github.com/simhaf82/Handtiming/internal/csvexport"
	"github.com/simhaf82/Handtiming/internal/directory"
	"github.com/simhaf82/Handtiming/internal/queue"
	"github.com/simhaf82/Handtiming/internal/realtime"
	"github.com/simhaf82/Handtiming/internal/startlist"
	"github.com/simhaf82/Handtiming/internal/store"
	"github.com/simhaf82/Handtiming/internal/timing"
)

// Handler carries the wired services for all routes.
type Handler struct {
	cfg       config.App
	store     store.Store
	directory *directory.Service
	timing    *timing.Service
	startlist *startlist.Service
	csv       *csvexport.Materializer
	hub       *realtime.Hub
	queue     queue.Queue
}

// New builds the handler.
func New(cfg config.App, st store.Store, dir *directory.Service, tm *timing.Service,
	sl *startlist.Service, csv *csvexport.Materializer, hub *realtime.Hub, q queue.Queue) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     st,
		directory: dir,
		timing:    tm,
		startlist: sl,
		csv:       csv,
		hub:       hub,
		queue:     q,
	}
}

// Routes registers every route on the engine.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/ws", func(c *gin.Context) {
		realtime.ServeWS(h.hub, c.Writer, c.Request)
	})
	r.POST("/api/devices/register", h.RegisterDevice)

	api := r.Group("/api")
	if h.cfg.AuthEnabled {
		api.Use(auth.OperatorAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	}

	api.GET("/events", h.ListEvents)
	api.POST("/events", h.CreateEvent)
	api.GET("/events/:id", h.GetEvent)
	api.PUT("/events/:id", h.UpdateEvent)
	api.DELETE("/events/:id", h.DeleteEvent)
	api.GET("/events/:id/timing-points", h.ListTimingPoints)
	api.POST("/events/:id/timing-points", h.CreateTimingPoint)
	api.PUT("/events/:id/timing-points/reorder", h.ReorderTimingPoints)
	api.GET("/events/:id/startlist", h.GetStartlist)
	api.POST("/events/:id/startlist", h.ImportStartlist)
	api.DELETE("/events/:id/startlist", h.DeleteStartlist)
	api.GET("/events/:id/csv", h.DownloadEventArchive)
	api.POST("/events/:id/email", h.EmailEvent)

	api.GET("/timing-points/:id", h.GetTimingPoint)
	api.PUT("/timing-points/:id", h.UpdateTimingPoint)
	api.DELETE("/timing-points/:id", h.DeleteTimingPoint)
	api.GET("/timing-points/:id/entries", h.ListEntries)
	api.POST("/timing-points/:id/entries", h.SubmitEntry)
	api.GET("/timing-points/:id/dnf-dns", h.ListDnfDns)
	api.POST("/timing-points/:id/dnf-dns", h.MarkDnfDns)
	api.DELETE("/timing-points/:id/dnf-dns/:startNumber", h.UnmarkDnfDns)
	api.GET("/timing-points/:id/startlist-status", h.StartlistStatus)
	api.GET("/timing-points/:id/csv", h.DownloadTimingPointCSV)
	api.POST("/timing-points/:id/email", h.EmailTimingPoint)

	api.PUT("/entries/:timingPointId/:entryId", h.CorrectEntry)
	api.DELETE("/entries/:timingPointId/:entryId", h.DeleteEntry)

	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.UpdateSettings)
}

// respondError maps the engine taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, timing.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, timing.ErrNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// RegisterDevice issues an operator token. Devices do not need prior
// registration; the token just binds a stable device id to requests
// when auth is enabled.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req struct {
		DeviceID string `json:"device_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := auth.Issue(req.DeviceID, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token": token.Value,
		"expires_at":   token.ExpiresAt.Unix(),
	})
}

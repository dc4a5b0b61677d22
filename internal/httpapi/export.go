package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simhaf82/Handtiming/internal/bundle"
	"github.com/simhaf82/Handtiming/internal/csvexport"
	"github.com/simhaf82/Handtiming/internal/mailer"
	"github.com/simhaf82/Handtiming/internal/queue"
)

// DownloadTimingPointCSV serves the persisted artifact, named after the
// timing point.
func (h *Handler) DownloadTimingPointCSV(c *gin.Context) {
	tpID := c.Param("id")
	if !h.csv.Exists(tpID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no csv artifact found"})
		return
	}
	filename := "export.csv"
	if tp, err := h.directory.TimingPoint(c.Request.Context(), tpID); err == nil {
		filename = csvexport.SanitizeFilename(tp.Name) + ".csv"
	}
	c.FileAttachment(h.csv.Path(tpID), filename)
}

// DownloadEventArchive streams a ZIP with one CSV per timing point that
// has entries.
func (h *Handler) DownloadEventArchive(c *gin.Context) {
	ctx := c.Request.Context()
	event, err := h.directory.Event(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	points, err := h.directory.TimingPoints(ctx, event.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(points) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "event has no timing points"})
		return
	}

	var files []bundle.File
	for _, tp := range points {
		entries, err := h.timing.Entries(ctx, tp.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		if len(entries) == 0 {
			continue
		}
		files = append(files, bundle.File{
			Name: csvexport.SanitizeFilename(tp.Name) + ".csv",
			Data: csvexport.Build(entries),
		})
	}

	zipName := fmt.Sprintf("%s_%s.zip", csvexport.SanitizeFilename(event.Name), event.Date)
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", zipName))
	if err := bundle.Write(c.Writer, files); err != nil {
		// headers are gone already; all we can do is log via gin's error list
		_ = c.Error(err)
	}
}

type emailRequest struct {
	RecipientEmail string `json:"recipientEmail" binding:"required"`
}

func (h *Handler) enqueueEmail(c *gin.Context, job mailer.Job) {
	body, err := json.Marshal(job)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.queue.Publish(c.Request.Context(), queue.Message{Type: "email", Body: body}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

// EmailTimingPoint queues delivery of one timing point's CSV artifact.
func (h *Handler) EmailTimingPoint(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	settings, err := h.store.Settings(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if !settings.EmailConfigured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email settings not configured"})
		return
	}
	tpID := c.Param("id")
	if _, err := h.directory.TimingPoint(ctx, tpID); err != nil {
		respondError(c, err)
		return
	}
	if !h.csv.Exists(tpID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no csv artifact found"})
		return
	}
	h.enqueueEmail(c, mailer.Job{TimingPointID: tpID, Recipient: req.RecipientEmail})
}

// EmailEvent queues delivery of every non-empty CSV artifact of an
// event, one attachment per timing point.
func (h *Handler) EmailEvent(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	settings, err := h.store.Settings(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if !settings.EmailConfigured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email settings not configured"})
		return
	}
	event, err := h.directory.Event(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	points, err := h.directory.TimingPoints(ctx, event.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	available := 0
	for _, tp := range points {
		if h.csv.Exists(tp.ID) {
			available++
		}
	}
	if available == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no csv artifacts found"})
		return
	}
	h.enqueueEmail(c, mailer.Job{EventID: event.ID, Recipient: req.RecipientEmail})
}

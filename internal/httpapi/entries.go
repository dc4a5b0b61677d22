package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simhaf82/Handtiming/internal/timing"
)

// requireTimingPoint turns an unknown timing point id into NotFound
// before any mutation is attempted.
func (h *Handler) requireTimingPoint(c *gin.Context, id string) bool {
	ok, err := h.directory.Exists(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return false
	}
	if !ok {
		respondError(c, fmt.Errorf("%w: timing point %s", timing.ErrNotFound, id))
		return false
	}
	return true
}

func (h *Handler) ListEntries(c *gin.Context) {
	entries, err := h.timing.Entries(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) SubmitEntry(c *gin.Context) {
	var req struct {
		StartNumber string    `json:"startNumber"`
		Timestamp   time.Time `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpID := c.Param("id")
	if !h.requireTimingPoint(c, tpID) {
		return
	}
	entry, err := h.timing.SubmitEntry(c.Request.Context(), tpID, req.StartNumber, req.Timestamp)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) CorrectEntry(c *gin.Context) {
	var req struct {
		StartNumber string `json:"startNumber"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.timing.CorrectEntry(c.Request.Context(), c.Param("timingPointId"), c.Param("entryId"), req.StartNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	if err := h.timing.DeleteEntry(c.Request.Context(), c.Param("timingPointId"), c.Param("entryId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListDnfDns(c *gin.Context) {
	records, err := h.timing.DnfDns(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) MarkDnfDns(c *gin.Context) {
	var req struct {
		StartNumber string `json:"startNumber"`
		Type        string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpID := c.Param("id")
	if !h.requireTimingPoint(c, tpID) {
		return
	}
	records, err := h.timing.MarkDnfDns(c.Request.Context(), tpID, req.StartNumber, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) UnmarkDnfDns(c *gin.Context) {
	records, err := h.timing.UnmarkDnfDns(c.Request.Context(), c.Param("id"), c.Param("startNumber"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// StartlistStatus returns the merged startlist view for one timing
// point: every imported row classified as finished, DNF, DNS or
// pending. A live entry always wins over a stale mark.
func (h *Handler) StartlistStatus(c *gin.Context) {
	ctx := c.Request.Context()
	tpID := c.Param("id")
	eventID, err := h.directory.OwnerEvent(ctx, tpID)
	if err != nil {
		respondError(c, err)
		return
	}
	rows, err := h.startlist.Rows(ctx, eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	entries, err := h.timing.Entries(ctx, tpID)
	if err != nil {
		respondError(c, err)
		return
	}
	records, err := h.timing.DnfDns(ctx, tpID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, timing.MergedStartlist(rows, entries, records))
}

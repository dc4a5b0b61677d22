package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetStartlist(c *gin.Context) {
	rows, err := h.startlist.Rows(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) ImportStartlist(c *gin.Context) {
	eventID := c.Param("id")
	if _, err := h.directory.Event(c.Request.Context(), eventID); err != nil {
		respondError(c, err)
		return
	}
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()
	rows, err := h.startlist.Import(c.Request.Context(), eventID, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) DeleteStartlist(c *gin.Context) {
	if err := h.startlist.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

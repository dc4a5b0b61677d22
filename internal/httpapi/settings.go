package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simhaf82/Handtiming/internal/realtime"
)

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.store.Settings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// settingsPatch merges over the current settings; absent fields keep
// their value.
type settingsPatch struct {
	DisplayMode    *string `json:"displayMode"`
	DuplicateColor *string `json:"duplicateColor"`
	EmailSMTP      *string `json:"emailSmtp"`
	EmailPort      *int    `json:"emailPort"`
	EmailUser      *string `json:"emailUser"`
	EmailPass      *string `json:"emailPass"`
	EmailFrom      *string `json:"emailFrom"`
}

// UpdateSettings persists the merged settings and broadcasts the full
// object to every connected session, subscribed or not.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var patch settingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings, err := h.store.Settings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if patch.DisplayMode != nil {
		settings.DisplayMode = *patch.DisplayMode
	}
	if patch.DuplicateColor != nil {
		settings.DuplicateColor = *patch.DuplicateColor
	}
	if patch.EmailSMTP != nil {
		settings.EmailSMTP = *patch.EmailSMTP
	}
	if patch.EmailPort != nil {
		settings.EmailPort = *patch.EmailPort
	}
	if patch.EmailUser != nil {
		settings.EmailUser = *patch.EmailUser
	}
	if patch.EmailPass != nil {
		settings.EmailPass = *patch.EmailPass
	}
	if patch.EmailFrom != nil {
		settings.EmailFrom = *patch.EmailFrom
	}
	if err := h.store.SaveSettings(c.Request.Context(), settings); err != nil {
		respondError(c, err)
		return
	}
	h.hub.BroadcastGlobal(realtime.Event{Type: realtime.SettingsChanged, Data: settings})
	c.JSON(http.StatusOK, settings)
}

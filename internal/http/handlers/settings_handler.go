// README: Per-user LLM settings handlers. Keys are write-only; reads return a masked view.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wanderplan/internal/http/middleware"
	"wanderplan/internal/modules/llmsettings"
)

type SettingsHandler struct {
	settings *llmsettings.Service
}

func NewSettingsHandler(svc *llmsettings.Service) *SettingsHandler {
	return &SettingsHandler{settings: svc}
}

// Get handles GET /api/users/api-keys.
func (h *SettingsHandler) Get(c *gin.Context) {
	v, err := h.settings.Get(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

// Put handles PUT /api/users/api-keys. An omitted apiKey keeps the stored one.
func (h *SettingsHandler) Put(c *gin.Context) {
	var req llmsettings.PutCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	v, err := h.settings.Put(c.Request.Context(), middleware.CallerUID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

// Delete handles DELETE /api/users/api-keys.
func (h *SettingsHandler) Delete(c *gin.Context) {
	if err := h.settings.Delete(c.Request.Context(), middleware.CallerUID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

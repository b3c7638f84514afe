package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports process liveness plus a summary of the credential pool,
// including which identities are cooling down.
func (h *Handler) Health(c *gin.Context) {
	ids, err := h.manager.ListCredentials(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"credentials": len(ids),
		"cooldowns":   h.manager.CooldownSnapshot(),
	})
}

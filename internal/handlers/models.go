package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"geminicli2api/internal/models"
)

// ListModels serves GET /v1/models with the full variant catalog.
func (h *Handler) ListModels(c *gin.Context) {
	created := time.Now().Unix()
	data := make([]gin.H, 0, len(models.Catalog()))
	for _, id := range models.Catalog() {
		data = append(data, gin.H{
			"id":       id,
			"object":   "model",
			"created":  created,
			"owned_by": "google",
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   data,
	})
}

// GetModel serves GET /v1/models/:model.
func (h *Handler) GetModel(c *gin.Context) {
	id := c.Param("model")
	if !models.Known(id) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"message": "The model `" + id + "` does not exist",
				"type":    "invalid_request_error",
				"code":    "model_not_found",
			},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"object":   "model",
		"created":  time.Now().Unix(),
		"owned_by": "google",
	})
}

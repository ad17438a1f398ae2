// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	snapshot := h.Stats.Snapshot()

	if h.DBConn == nil {
		// Memory-only mode still serves previews, report degraded
		// instead of down.
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "details": "cache index running in memory", "stats": snapshot})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.DBConn.PingContext(ctx); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "details": "database ping failed: " + err.Error(), "stats": snapshot})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": snapshot})
}

// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fluffyriot/screengrabx/internal/cache"
	"github.com/fluffyriot/screengrabx/internal/helpers"
)

// ArtifactHandler serves cached snapshot bytes by artifact file name,
// e.g. alice-123.webp or alice-123-media.webp.
func (h *Handler) ArtifactHandler(c *gin.Context) {
	account, rest, ok := helpers.SplitRenderName(c.Param("name"))
	if !ok {
		h.NotFoundHandler(c)
		return
	}

	var (
		entry *cache.Entry
		err   error
	)
	if statusID, isMedia := strings.CutSuffix(rest, "-media"); isMedia {
		entry, err = h.Coordinator.GetMedia(c.Request.Context(), account, statusID)
	} else {
		entry, err = h.Coordinator.GetCached(c.Request.Context(), account, rest)
	}
	if err != nil || entry == nil {
		h.NotFoundHandler(c)
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, entry.ContentType, entry.Image)
}

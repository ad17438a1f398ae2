// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fluffyriot/screengrabx/internal/fetcher"
	"github.com/fluffyriot/screengrabx/internal/helpers"
	"github.com/fluffyriot/screengrabx/internal/visitor"
)

// StatusHandler is the public entry point for one post. Crawlers get
// the embed page whose meta tags they unfurl, everyone else gets the
// rendered image itself.
func (h *Handler) StatusHandler(c *gin.Context) {
	account := c.Param("account")
	statusID := c.Param("id")

	res, err := h.Coordinator.GetPreview(c.Request.Context(), account, statusID)
	if err != nil {
		h.serveFailure(c, account, statusID, err)
		return
	}

	v := visitor.Identify(c.Request.UserAgent())
	if !v.IsCrawler() {
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", helpers.RenderName(account, statusID)))
		c.Data(http.StatusOK, res.Entry.ContentType, res.Entry.Image)
		return
	}

	meta := res.Entry.Meta
	oembed := fmt.Sprintf("%s/oembed.json?desc=%s&user=%s&link=%s&ttype=link",
		h.Config.Server.PublicHost,
		url.QueryEscape(meta.Title),
		url.QueryEscape(meta.AuthorName),
		url.QueryEscape(meta.PostURL))

	c.HTML(http.StatusOK, "embed.html", gin.H{
		"Meta":      meta,
		"OEmbedURL": oembed,
		"XURL":      helpers.PostURL(account, statusID),
	})
}

// MediaHandler serves the mosaic variant for multi-image posts.
func (h *Handler) MediaHandler(c *gin.Context) {
	account := c.Param("account")
	statusID := c.Param("id")

	entry, err := h.Coordinator.GetMedia(c.Request.Context(), account, statusID)
	if err != nil || entry == nil {
		h.NotFoundHandler(c)
		return
	}
	c.Data(http.StatusOK, entry.ContentType, entry.Image)
}

func (h *Handler) serveFailure(c *gin.Context, account, statusID string, err error) {
	switch {
	case errors.Is(err, fetcher.ErrInvalidStatus):
		h.NotFoundHandler(c)

	case errors.Is(err, fetcher.ErrNotFound):
		c.HTML(http.StatusOK, "unavailable.html", gin.H{
			"XURL": helpers.PostURL(account, statusID),
		})

	default:
		h.Logger.Error("preview failed",
			zap.String("identifier", account+"/"+statusID), zap.Error(err))
		c.HTML(http.StatusOK, "error.html", gin.H{
			"XURL": helpers.PostURL(account, statusID),
		})
	}
}

func (h *Handler) NotFoundHandler(c *gin.Context) {
	c.String(http.StatusNotFound, "not found")
}

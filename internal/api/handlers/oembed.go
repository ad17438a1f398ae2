package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// OEmbedHandler answers the oEmbed lookup crawlers perform after
// reading the alternate link on an embed page. It echoes the fields
// the embed page put into its own URL.
func (h *Handler) OEmbedHandler(c *gin.Context) {
	link := c.Query("link")
	if unescaped, err := url.QueryUnescape(link); err == nil {
		link = unescaped
	}

	c.JSON(http.StatusOK, gin.H{
		"type":          c.DefaultQuery("ttype", "link"),
		"version":       "1.0",
		"provider_name": "screengrabx - pretty x posts",
		"provider_url":  "https://screengrabx.com",
		"title":         c.Query("desc"),
		"author_name":   c.Query("user"),
		"author_url":    link,
	})
}

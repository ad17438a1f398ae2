package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) IndexHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Host": h.Config.Server.PublicHost,
	})
}

func (h *Handler) RobotsHandler(c *gin.Context) {
	c.String(http.StatusOK, "User-agent: *\nDisallow: /render/\nDisallow: /renders/\n")
}

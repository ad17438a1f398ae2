package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fluffyriot/screengrabx/internal/helpers"
)

// RenderPageHandler lays a post out for the screenshot engine. It only
// answers while that post's fill is in flight, the layout data comes
// straight from the coordinator instead of a second upstream call.
func (h *Handler) RenderPageHandler(c *gin.Context) {
	account := c.Param("account")
	statusID := c.Param("id")

	post, ok := h.Coordinator.PendingPost(account, statusID)
	if !ok {
		h.NotFoundHandler(c)
		return
	}

	c.HTML(http.StatusOK, "tweet.html", gin.H{
		"Post":     post,
		"Date":     post.FormattedDate(),
		"Replies":  helpers.FormatCount(post.Replies),
		"Retweets": helpers.FormatCount(post.Retweets),
		"Likes":    helpers.FormatCount(post.Likes),
		"Views":    helpers.FormatCount(post.Views),
	})
}

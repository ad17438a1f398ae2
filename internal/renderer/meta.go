package renderer

import (
	"fmt"

	"github.com/fluffyriot/screengrabx/internal/fetcher"
	"github.com/fluffyriot/screengrabx/internal/helpers"
)

// MetaFields populate the Open Graph / Twitter-card head of the embed
// page. Description holds the complete post text, crawlers decide for
// themselves how much of it to show.
type MetaFields struct {
	Title       string
	Description string
	ImageURL    string
	CardType    string
	AuthorName  string
	AuthorURL   string
	PostURL     string
}

// BuildMeta derives the meta fields from a post. Pure, no I/O.
func BuildMeta(post *fetcher.Post, imageURL string) MetaFields {
	card := "summary_large_image"

	author := fmt.Sprintf("%s (%s)", post.UserName, post.ScreenName)
	stats := fmt.Sprintf("💬 %s   🔁 %s   ❤️ %s",
		helpers.FormatCount(post.Replies),
		helpers.FormatCount(post.Retweets),
		helpers.FormatCount(post.Likes))

	return MetaFields{
		Title:       author,
		Description: post.Text,
		ImageURL:    imageURL,
		CardType:    card,
		AuthorName:  stats,
		AuthorURL:   helpers.PostURL(post.Account, post.StatusID),
		PostURL:     helpers.PostURL(post.Account, post.StatusID),
	}
}

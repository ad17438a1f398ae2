package fetcher

import "time"

// Media is one attachment of a post, in the order the upstream reports.
type Media struct {
	URL  string
	Type string
}

// Quote is the quoted post context, present when the post quotes
// another one.
type Quote struct {
	UserName   string
	ScreenName string
	Text       string
}

// Post is the normalized upstream record. Text is carried untouched:
// any display truncation is a template decision, never done here.
type Post struct {
	Account    string
	StatusID   string
	UserName   string
	ScreenName string
	AvatarURL  string
	Text       string
	DateEpoch  int64
	Replies    int
	Retweets   int
	Likes      int
	Views      int
	Media      []Media
	Quote      *Quote
}

// Identifier returns the cache key for the post, account/status pair.
func (p *Post) Identifier() string {
	return p.Account + "/" + p.StatusID
}

func (p *Post) CreatedAt() time.Time {
	return time.Unix(p.DateEpoch, 0).UTC()
}

// FormattedDate renders the timestamp the way the post page shows it,
// e.g. "3:04 PM · Jan 2, 2006".
func (p *Post) FormattedDate() string {
	return p.CreatedAt().Format("3:04 PM · Jan 2, 2006")
}

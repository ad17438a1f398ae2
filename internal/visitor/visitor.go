package visitor

import "strings"

// Visitor classifies who is asking: a link-unfurling crawler gets the
// embed HTML, everyone else gets the image itself.
type Visitor string

const (
	Discord  Visitor = "discordbot"
	Slack    Visitor = "slackbot"
	Telegram Visitor = "telegrambot"
	Twitter  Visitor = "twitterbot"
	Facebook Visitor = "facebookexternalhit"
	Google   Visitor = "googlebot"
	Bing     Visitor = "bingbot"
	WhatsApp Visitor = "whatsapp"
	LinkedIn Visitor = "linkedinbot"
	Unknown  Visitor = "unknown"
)

var known = []Visitor{
	Discord, Slack, Telegram, Twitter, Facebook, Google, Bing, WhatsApp, LinkedIn,
}

// Identify matches the user agent against the known crawler markers.
func Identify(userAgent string) Visitor {
	ua := strings.ToLower(userAgent)
	for _, v := range known {
		if strings.Contains(ua, string(v)) {
			return v
		}
	}
	return Unknown
}

// IsCrawler reports whether the visitor unfurls links rather than
// viewing the page itself.
func (v Visitor) IsCrawler() bool {
	return v != Unknown
}

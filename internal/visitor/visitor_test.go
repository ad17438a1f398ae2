package visitor

import "testing"

func TestIdentify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ua   string
		want Visitor
	}{
		{"discord", "Mozilla/5.0 (compatible; Discordbot/2.0; +https://discordapp.com)", Discord},
		{"slack", "Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)", Slack},
		{"telegram", "TelegramBot (like TwitterBot)", Telegram},
		{"google", "Mozilla/5.0 (compatible; Googlebot/2.1)", Google},
		{"whatsapp", "WhatsApp/2.23.2", WhatsApp},
		{"browser", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0", Unknown},
		{"empty", "", Unknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Identify(tc.ua); got != tc.want {
				t.Errorf("Identify(%q) = %v, want %v", tc.ua, got, tc.want)
			}
		})
	}
}

func TestIsCrawler(t *testing.T) {
	t.Parallel()

	if !Discord.IsCrawler() {
		t.Error("Discord should be a crawler")
	}
	if Unknown.IsCrawler() {
		t.Error("Unknown should not be a crawler")
	}
}

package helpers

import (
	"fmt"
	"strings"
)

// FormatCount compacts engagement counts the way the post page shows
// them: 999 stays 999, 1500 becomes 1.5K, 2300000 becomes 2.3M.
func FormatCount(num int) string {
	switch {
	case num >= 1_000_000_000:
		return trimZero(fmt.Sprintf("%.1fB", float64(num)/1_000_000_000))
	case num >= 1_000_000:
		return trimZero(fmt.Sprintf("%.1fM", float64(num)/1_000_000))
	case num >= 1_000:
		return trimZero(fmt.Sprintf("%.1fK", float64(num)/1_000))
	default:
		return fmt.Sprintf("%d", num)
	}
}

func trimZero(s string) string {
	if i := strings.Index(s, ".0"); i >= 0 {
		return s[:i] + s[i+2:]
	}
	return s
}

// PostURL builds the canonical x.com URL for a post.
func PostURL(account, statusID string) string {
	return "https://x.com/" + account + "/status/" + statusID
}

// RenderName is the artifact file name for a post, unique per
// identifier and safe as a path segment.
func RenderName(account, statusID string) string {
	return account + "-" + statusID + ".webp"
}

// SplitRenderName recovers the identifier from an artifact file name.
// Account names cannot contain dashes, so the first dash is the split
// point. The mosaic suffix stays attached to the status part.
func SplitRenderName(name string) (account, statusID string, ok bool) {
	name, found := strings.CutSuffix(name, ".webp")
	if !found {
		return "", "", false
	}
	account, statusID, found = strings.Cut(name, "-")
	if !found || account == "" || statusID == "" {
		return "", "", false
	}
	return account, statusID, true
}

// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
)

var statusIDPattern = regexp.MustCompile(`^[0-9]{1,25}$`)
var accountPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

// ValidateIdentifier fails fast on malformed account/status pairs so no
// network call is spent on garbage paths.
func ValidateIdentifier(account, statusID string) error {
	if !accountPattern.MatchString(account) {
		return fmt.Errorf("%w: bad account %q", ErrInvalidStatus, account)
	}
	if !statusIDPattern.MatchString(statusID) {
		return fmt.Errorf("%w: bad status id %q", ErrInvalidStatus, statusID)
	}
	return nil
}

type vxResponse struct {
	UserName       string   `json:"user_name"`
	UserScreenName string   `json:"user_screen_name"`
	UserAvatarURL  string   `json:"user_profile_image_url"`
	Text           string   `json:"text"`
	DateEpoch      int64    `json:"date_epoch"`
	Replies        int      `json:"replies"`
	Retweets       int      `json:"retweets"`
	Likes          int      `json:"likes"`
	Views          int      `json:"view_count"`
	MediaURLs      []string `json:"mediaURLs"`
	MediaExtended  []struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	} `json:"media_extended"`
	Qrt *struct {
		UserName       string `json:"user_name"`
		UserScreenName string `json:"user_screen_name"`
		Text           string `json:"text"`
	} `json:"qrt"`
}

// FetchPost issues a single round trip to the vxtwitter API and maps
// the outcome onto the package error kinds. Timeouts and connection
// failures surface as ErrUpstreamUnavailable.
func (c *Client) FetchPost(ctx context.Context, account, statusID string) (*Post, error) {

	if err := ValidateIdentifier(account, statusID); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: limiter: %v", ErrUpstreamUnavailable, err)
	}

	url := fmt.Sprintf("%s/%s/status/%s", c.baseURL, account, statusID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: timeout: %v", ErrUpstreamUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, account, statusID)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d %s", ErrUpstreamUnavailable, resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}

	var vx vxResponse
	if err := json.Unmarshal(data, &vx); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstreamUnavailable, err)
	}

	post := &Post{
		Account:    account,
		StatusID:   statusID,
		UserName:   vx.UserName,
		ScreenName: "@" + vx.UserScreenName,
		AvatarURL:  vx.UserAvatarURL,
		Text:       vx.Text,
		DateEpoch:  vx.DateEpoch,
		Replies:    vx.Replies,
		Retweets:   vx.Retweets,
		Likes:      vx.Likes,
		Views:      vx.Views,
	}

	if len(vx.MediaExtended) > 0 {
		for _, m := range vx.MediaExtended {
			post.Media = append(post.Media, Media{URL: m.URL, Type: m.Type})
		}
	} else {
		for _, u := range vx.MediaURLs {
			post.Media = append(post.Media, Media{URL: u, Type: "image"})
		}
	}

	if vx.Qrt != nil {
		post.Quote = &Quote{
			UserName:   vx.Qrt.UserName,
			ScreenName: "@" + vx.Qrt.UserScreenName,
			Text:       vx.Qrt.Text,
		}
	}

	return post, nil
}

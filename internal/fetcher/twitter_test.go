package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestValidateIdentifier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		account string
		status  string
		wantErr bool
	}{
		{"valid", "alice", "123", false},
		{"valid with underscore", "some_user", "1846218412345678901", false},
		{"empty account", "", "123", true},
		{"account too long", "abcdefghijklmnopq", "123", true},
		{"account bad chars", "al ice", "123", true},
		{"status not numeric", "alice", "12a3", true},
		{"status empty", "alice", "", true},
		{"status path traversal", "alice", "../etc", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateIdentifier(tc.account, tc.status)
			if tc.wantErr && !errors.Is(err, ErrInvalidStatus) {
				t.Fatalf("expected ErrInvalidStatus, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFetchPost(t *testing.T) {
	t.Parallel()

	body := `{
		"user_name": "Alice",
		"user_screen_name": "alice",
		"user_profile_image_url": "https://pbs.example/avatar.jpg",
		"text": "hello world",
		"date_epoch": 1700000000,
		"replies": 3, "retweets": 14, "likes": 1500, "view_count": 2000000,
		"media_extended": [
			{"url": "https://pbs.example/a.jpg", "type": "image"},
			{"url": "https://pbs.example/b.jpg", "type": "image"}
		],
		"qrt": {"user_name": "Bob", "user_screen_name": "bob", "text": "original"}
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alice/status/123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 100)
	post, err := c.FetchPost(context.Background(), "alice", "123")
	if err != nil {
		t.Fatalf("FetchPost returned error: %v", err)
	}

	if post.UserName != "Alice" || post.ScreenName != "@alice" {
		t.Fatalf("bad author: %q %q", post.UserName, post.ScreenName)
	}
	if post.Text != "hello world" {
		t.Fatalf("bad text: %q", post.Text)
	}
	if len(post.Media) != 2 || post.Media[0].URL != "https://pbs.example/a.jpg" {
		t.Fatalf("bad media: %+v", post.Media)
	}
	if post.Quote == nil || post.Quote.ScreenName != "@bob" {
		t.Fatalf("bad quote: %+v", post.Quote)
	}
	if post.Identifier() != "alice/123" {
		t.Fatalf("bad identifier: %s", post.Identifier())
	}
}

func TestFetchPostStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"server error", http.StatusInternalServerError, ErrUpstreamUnavailable},
		{"bad gateway", http.StatusBadGateway, ErrUpstreamUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, 5*time.Second, 100)
			_, err := c.FetchPost(context.Background(), "alice", "123")
			if !errors.Is(err, tc.want) {
				t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
			}
		})
	}
}

func TestFetchPostTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, 100)
	_, err := c.FetchPost(context.Background(), "alice", "123")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable on timeout, got %v", err)
	}
}

func TestFetchPostInvalidSkipsNetwork(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 100)
	_, err := c.FetchPost(context.Background(), "bad account", "123")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if called {
		t.Fatal("upstream was contacted for a malformed identifier")
	}
}

// Package reddit reads subreddit submission listings from the public JSON API.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://www.reddit.com"
	maxLimit       = 100
	maxBodyBytes   = 8 << 20
)

// ErrUnavailable reports a subreddit that is private, banned or missing.
var ErrUnavailable = errors.New("reddit: subreddit unavailable")

// Submission is one post from a listing.
type Submission struct {
	ID            string                   `json:"id"`
	Title         string                   `json:"title"`
	URL           string                   `json:"url"`
	Permalink     string                   `json:"permalink"`
	CreatedUTC    float64                  `json:"created_utc"`
	URLOverridden string                   `json:"url_overridden_by_dest"`
	MediaMetadata map[string]MediaMetadata `json:"media_metadata"`
	GalleryData   *GalleryData             `json:"gallery_data"`
}

// MediaMetadata describes one gallery item. E is "Image" for stills.
type MediaMetadata struct {
	Status string `json:"status"`
	E      string `json:"e"`
	M      string `json:"m"`
	S      struct {
		U string `json:"u"`
		X int    `json:"x"`
		Y int    `json:"y"`
	} `json:"s"`
}

// GalleryData carries the display order of gallery items.
type GalleryData struct {
	Items []struct {
		MediaID string `json:"media_id"`
	} `json:"items"`
}

// Created returns the submission time.
func (s *Submission) Created() time.Time {
	sec := int64(s.CreatedUTC)
	return time.Unix(sec, int64((s.CreatedUTC-float64(sec))*float64(time.Second))).UTC()
}

// ImageURLs returns the candidate image links of the submission. Galleries
// yield their still images in display order; other posts yield their link
// when it is an http(s) URL.
func (s *Submission) ImageURLs() []string {
	if len(s.MediaMetadata) > 0 {
		var urls []string
		for _, id := range s.galleryOrder() {
			m := s.MediaMetadata[id]
			if m.E != "Image" || m.S.U == "" {
				continue
			}
			urls = append(urls, html.UnescapeString(m.S.U))
		}
		return urls
	}
	if strings.HasPrefix(s.URLOverridden, "http://") || strings.HasPrefix(s.URLOverridden, "https://") {
		return []string{s.URLOverridden}
	}
	return nil
}

// galleryOrder lists media ids in gallery order, then any remaining ids sorted.
func (s *Submission) galleryOrder() []string {
	seen := make(map[string]bool, len(s.MediaMetadata))
	var ids []string
	if s.GalleryData != nil {
		for _, it := range s.GalleryData.Items {
			if _, ok := s.MediaMetadata[it.MediaID]; ok && !seen[it.MediaID] {
				seen[it.MediaID] = true
				ids = append(ids, it.MediaID)
			}
		}
	}
	var rest []string
	for id := range s.MediaMetadata {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string     `json:"kind"`
			Data Submission `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Client fetches listings.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string // default: https://www.reddit.com
}

// NewClient returns a Client using http.DefaultClient.
func NewClient(userAgent string) *Client {
	return &Client{HTTPClient: http.DefaultClient, UserAgent: userAgent, BaseURL: defaultBaseURL}
}

// New returns up to limit of the newest submissions of subreddit, newest first.
func (c *Client) New(ctx context.Context, subreddit string, limit int) ([]Submission, error) {
	limit = min(max(limit, 1), maxLimit)
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")

	var l listing
	if err := c.getJSON(ctx, "/r/"+url.PathEscape(subreddit)+"/new.json?"+q.Encode(), &l); err != nil {
		return nil, err
	}

	subs := make([]Submission, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		subs = append(subs, child.Data)
	}
	return subs, nil
}

// Exists reports whether subreddit can be listed. Private, banned and
// unknown subreddits report false without an error.
func (c *Client) Exists(ctx context.Context, subreddit string) (bool, error) {
	var about struct {
		Kind string `json:"kind"`
		Data struct {
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	err := c.getJSON(ctx, "/r/"+url.PathEscape(subreddit)+"/about.json", &about)
	if errors.Is(err, ErrUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return about.Kind == "t5" && about.Data.DisplayName != "", nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reddit: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("reddit: %s returned %s", path, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reddit: read %s: %w", path, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("reddit: decode %s: %w", path, err)
	}
	return nil
}

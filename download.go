package edgedupe

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxBytes  = 20 << 20 // 20MB, full-size gallery images
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; go-edgedupe/1.0)"
	pageMaxBytes     = 2 << 20
)

// Downloader fetches candidate images over HTTP.
type Downloader struct {
	StealthClient *http.Client // optional: TLS-fingerprinted client, tried first
	HTTPClient    *http.Client // default: http.DefaultClient
	UserAgent     string       // default: "Mozilla/5.0 (compatible; go-edgedupe/1.0)"
}

// DownloadOpts configures an image download.
type DownloadOpts struct {
	MaxBytes  int64         // max response body size (default: 20MB)
	MinBytes  int           // reject if smaller (default: 0)
	Timeout   time.Duration // per-request timeout (default: 30s)
	UserAgent string        // override the downloader user agent
}

// DownloadResult holds downloaded image data.
type DownloadResult struct {
	Data     []byte
	MIMEType string
}

// defaults fills zero-value fields.
func (d *Downloader) defaults() {
	if d.UserAgent == "" {
		d.UserAgent = defaultUserAgent
	}
	if d.HTTPClient == nil {
		d.HTTPClient = http.DefaultClient
	}
}

// Download fetches an image from url. Tries StealthClient first (if set),
// falls back to HTTPClient.
// Returns nil result (not error) on recoverable failures (404, non-image, etc.)
// so one bad URL never aborts a scrape cycle.
func (d *Downloader) Download(ctx context.Context, url string, opts DownloadOpts) (*DownloadResult, error) {
	d.defaults()

	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = d.UserAgent
	}

	if d.StealthClient != nil {
		if r := fetch(ctx, d.StealthClient, url, ua, opts, "image/"); r != nil {
			return r, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fetch(ctx, d.HTTPClient, url, ua, opts, "image/"), nil
}

// FetchPage fetches an HTML document, for link posts whose URL is a landing
// page rather than an image. Returns "" on any failure.
func (d *Downloader) FetchPage(ctx context.Context, url string) string {
	d.defaults()
	opts := DownloadOpts{MaxBytes: pageMaxBytes, Timeout: defaultTimeout}
	r := fetch(ctx, d.HTTPClient, url, d.UserAgent, opts, "text/html")
	if r == nil {
		return ""
	}
	return string(r.Data)
}

// fetch GETs target and returns its body when the response is a 2xx of
// media type wantType (a prefix such as "image/"). Rejections are logged at
// debug level and yield nil.
func fetch(ctx context.Context, client *http.Client, target, ua string, opts DownloadOpts, wantType string) *DownloadResult {
	res, reason := fetchBody(ctx, client, target, ua, opts, wantType)
	if res == nil {
		slog.Debug("edgedupe: fetch rejected", "url", target, "reason", reason)
	}
	return res
}

func fetchBody(ctx context.Context, client *http.Client, target, ua string, opts DownloadOpts, wantType string) (*DownloadResult, string) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err.Error()
	}
	req.Header.Set("User-Agent", ua)
	if wantType == "image/" {
		req.Header.Set("Accept", "image/*")
	}

	resp, err := client.Do(req) //nolint:gosec // G704: URL comes from the submission listing
	if err != nil {
		return nil, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.Status
	}

	// "image/JPEG; charset=binary" → "image/jpeg"
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, wantType) {
		return nil, "content type " + strconv.Quote(resp.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes))
	if err != nil {
		return nil, err.Error()
	}
	if len(data) < opts.MinBytes {
		return nil, "body of " + strconv.Itoa(len(data)) + " bytes below minimum"
	}
	return &DownloadResult{Data: data, MIMEType: mediaType}, ""
}

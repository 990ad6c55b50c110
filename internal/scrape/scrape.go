// Package scrape runs the polling loop: list new submissions, download their
// images, drop duplicates and forward the rest to each subreddit's webhook.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	edgedupe "github.com/anatolykoptev/go-edgedupe"
	"github.com/anatolykoptev/go-edgedupe/internal/reddit"
)

// Source is a watched subreddit and the webhook its images go to.
// WebhookURL is empty while the subreddit has no webhook.
type Source struct {
	Name       string
	WebhookURL string
}

// SourceRegistry lists the watched subreddits.
type SourceRegistry interface {
	Sources(ctx context.Context) ([]Source, error)
}

// Lister reads submission listings.
type Lister interface {
	New(ctx context.Context, subreddit string, limit int) ([]reddit.Submission, error)
	Exists(ctx context.Context, subreddit string) (bool, error)
}

// Fetcher downloads images and pages.
type Fetcher interface {
	Download(ctx context.Context, url string, opts edgedupe.DownloadOpts) (*edgedupe.DownloadResult, error)
	FetchPage(ctx context.Context, url string) string
}

// Notifier delivers a message to a webhook.
type Notifier interface {
	Send(ctx context.Context, webhookURL, content string) error
}

// Options tunes a Scraper.
type Options struct {
	SubmissionLimit int    // newest submissions read per subreddit
	FetchWorkers    int    // concurrent downloads per submission
	ArchivePath     string // signature archive file
	StatePath       string // seen-set JSON file
	Download        edgedupe.DownloadOpts
}

// Scraper polls the registered subreddits.
type Scraper struct {
	pipeline *edgedupe.Pipeline
	sources  SourceRegistry
	lister   Lister
	fetcher  Fetcher
	notifier Notifier
	opts     Options
	now      func() time.Time
}

// New returns a Scraper. Call Load before the first cycle.
func New(pipeline *edgedupe.Pipeline, sources SourceRegistry, lister Lister,
	fetcher Fetcher, notifier Notifier, opts Options) *Scraper {
	if opts.FetchWorkers < 1 {
		opts.FetchWorkers = 1
	}
	if opts.SubmissionLimit < 1 {
		opts.SubmissionLimit = 1
	}
	return &Scraper{
		pipeline: pipeline,
		sources:  sources,
		lister:   lister,
		fetcher:  fetcher,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}
}

// Load reads both stores from disk, creating missing files.
func (s *Scraper) Load() error {
	if err := s.pipeline.Index().Load(s.opts.ArchivePath); err != nil {
		return err
	}
	return s.pipeline.Seen().Load(s.opts.StatePath)
}

// Save writes both stores, trimming them to their capacity.
func (s *Scraper) Save() error {
	return errors.Join(
		s.pipeline.Index().Save(s.opts.ArchivePath),
		s.pipeline.Seen().Save(s.opts.StatePath),
	)
}

// candidate is one image URL of a submission with its prefetched bytes.
type candidate struct {
	url  string
	data []byte
}

// RunOnce runs one scrape cycle and returns the number of images sent.
// Per-source and per-image failures are logged and skipped. A cancelled
// context ends the cycle early without advancing the last-check time.
func (s *Scraper) RunOnce(ctx context.Context) (int, error) {
	log := slog.With("cycle", uuid.NewString())
	started := s.now().UTC()

	sources, err := s.sources.Sources(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		log.Warn("edgedupe: no subreddits registered")
	}

	capacity := edgedupe.Capacity(len(sources), s.opts.SubmissionLimit)
	s.pipeline.Index().SetCapacity(capacity)
	s.pipeline.Seen().SetCapacity(capacity)
	lastCheck := s.pipeline.Seen().LastCheck()

	sent := 0
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		sent += s.scrapeSource(ctx, log.With("subreddit", src.Name), src, lastCheck)
	}

	if ctx.Err() == nil {
		s.pipeline.Seen().SetLastCheck(started)
	}
	if err := s.Save(); err != nil {
		log.Error("edgedupe: saving stores failed", "error", err)
	}
	if sent > 0 {
		log.Info("edgedupe: cycle finished", "sent", sent, "elapsed", time.Since(started))
	}
	return sent, ctx.Err()
}

// Run calls RunOnce every interval until ctx is cancelled, then saves.
func (s *Scraper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("edgedupe: cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return s.Save()
		case <-ticker.C:
		}
	}
}

func (s *Scraper) scrapeSource(ctx context.Context, log *slog.Logger, src Source, lastCheck time.Time) int {
	if src.WebhookURL == "" {
		log.Warn("edgedupe: no webhook for subreddit, skipping")
		return 0
	}
	ok, err := s.lister.Exists(ctx, src.Name)
	if err != nil || !ok {
		log.Warn("edgedupe: subreddit unavailable, skipping", "error", err)
		return 0
	}
	subs, err := s.lister.New(ctx, src.Name, s.opts.SubmissionLimit)
	if err != nil {
		log.Warn("edgedupe: listing failed", "error", err)
		return 0
	}

	sent := 0
	for i := range subs {
		sub := &subs[i]
		if ctx.Err() != nil {
			break
		}
		if sub.Created().Before(lastCheck) {
			continue
		}
		n, err := s.processSubmission(ctx, log, src, sub)
		sent += n
		if err != nil {
			break
		}
	}
	return sent
}

// processSubmission prefetches the submission's images concurrently, then
// runs them through the pipeline strictly in order.
func (s *Scraper) processSubmission(ctx context.Context, log *slog.Logger, src Source, sub *reddit.Submission) (int, error) {
	var urls []string
	for _, u := range sub.ImageURLs() {
		if s.pipeline.Seen().SeenURL(u) {
			continue
		}
		if IsSkippable(u) {
			log.Info("edgedupe: skipping animated media", "url", u)
			continue
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return 0, nil
	}

	cands := make([]candidate, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchWorkers)
	for i, u := range urls {
		g.Go(func() error {
			c, err := s.fetch(gctx, u)
			cands[i] = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	sent := 0
	for _, c := range cands {
		if c.data == nil {
			continue
		}
		v, err := s.pipeline.Process(c.data)
		if err != nil {
			log.Info("edgedupe: undecodable image, skipping", "url", c.url, "error", err)
			continue
		}
		if v.Decision == edgedupe.Duplicate {
			log.Info("edgedupe: duplicate image", "url", c.url, "reason", v.Reason)
			continue
		}

		s.pipeline.Seen().RecordURL(c.url)
		msg := FormatMessage(src.Name, sub, c.url, edgedupe.ExtractAttribution(c.data))
		if err := s.notifier.Send(ctx, src.WebhookURL, msg); err != nil {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			log.Warn("edgedupe: webhook send failed", "url", c.url, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// fetch downloads url. A link that is not an image is resolved through the
// page's og:image. A zero candidate means nothing usable was found.
func (s *Scraper) fetch(ctx context.Context, url string) (candidate, error) {
	res, err := s.fetcher.Download(ctx, url, s.opts.Download)
	if err != nil {
		return candidate{}, err
	}
	if res != nil {
		return candidate{url: url, data: res.Data}, nil
	}

	og := edgedupe.ExtractOGImageURL(s.fetcher.FetchPage(ctx, url), url)
	if og == "" || IsSkippable(og) || s.pipeline.Seen().SeenURL(og) {
		return candidate{}, nil
	}
	res, err = s.fetcher.Download(ctx, og, s.opts.Download)
	if err != nil || res == nil {
		return candidate{}, err
	}
	return candidate{url: og, data: res.Data}, nil
}

// IsSkippable reports URLs of animated or video media.
func IsSkippable(url string) bool {
	return edgedupe.IsAnimatedURL(strings.ToLower(url))
}

// FormatMessage renders the webhook message for one forwarded image.
func FormatMessage(subreddit string, sub *reddit.Submission, imageURL string, attr *edgedupe.Attribution) string {
	link := sub.URL
	if link == "" && sub.Permalink != "" {
		link = "https://www.reddit.com" + sub.Permalink
	}
	msg := fmt.Sprintf("**r/%s** ->  __[%s](%s)__\n%s\n", subreddit, sub.Title, link, imageURL)
	if credit := attr.String(); credit != "" {
		msg += "-# " + credit + "\n"
	}
	return msg
}

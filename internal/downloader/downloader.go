// Package downloader fetches card images to disk with bounded
// concurrency and per-image retry. A file that already exists is never
// re-fetched or re-validated; existence alone is the freshness signal.
package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cardscraper/internal/models"
	"cardscraper/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

const (
	maxAttempts        = 3
	defaultConcurrency = 5
)

type Downloader struct {
	outputDir   string
	client      *resty.Client
	concurrency int
	// backoff after attempt n sleeps backoffBase * 2^(n-1)
	backoffBase time.Duration
}

func New(outputDir string) *Downloader {
	client := resty.New()
	client.SetTimeout(time.Minute)
	client.SetHeader("user-agent", "manamesh-cardscraper/0.2")
	telemetry.InstrumentResty(client, "downloader")

	return &Downloader{
		outputDir:   outputDir,
		client:      client,
		concurrency: defaultConcurrency,
		backoffBase: time.Second,
	}
}

// GuessExt extracts a known image extension from a URL, defaulting to
// jpg for anything absent or unrecognized.
func GuessExt(imageURL string) string {
	path := imageURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	base := path[strings.LastIndex(path, "/")+1:]
	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return "jpg"
	}
	switch ext := strings.ToLower(base[dot+1:]); ext {
	case "jpg", "jpeg", "png", "webp", "gif":
		return ext
	}
	return "jpg"
}

// Path is the deterministic destination for a card image.
func (d *Downloader) Path(setID, cardID, ext string) string {
	return filepath.Join(d.outputDir, setID, "cards", cardID+"."+ext)
}

// PathFor derives the destination from the card identity and the URL's
// extension.
func (d *Downloader) PathFor(card models.Card, imageURL string) string {
	return d.Path(card.SetID, card.ID, GuessExt(imageURL))
}

func (d *Downloader) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DownloadOne fetches a single card image, retrying transport errors and
// non-2xx statuses with exponential backoff. Returns nil immediately
// when the destination file already exists.
func (d *Downloader) DownloadOne(ctx context.Context, card models.Card, imageURL string) error {
	if imageURL == "" {
		return fmt.Errorf("no image URL")
	}

	dest := d.PathFor(card, imageURL)
	if d.Exists(dest) {
		return nil
	}

	err := os.MkdirAll(filepath.Dir(dest), 0o755)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = d.fetch(ctx, imageURL, dest)
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		delay := d.backoffBase << (attempt - 1)
		slog.DebugContext(
			ctx, "retrying download",
			"card", card.ID,
			"attempt", attempt,
			"delay", delay,
			"err", lastErr,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err = fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
	slog.WarnContext(ctx, "download failed", "card", card.ID, "err", err)
	return err
}

func (d *Downloader) fetch(ctx context.Context, imageURL, dest string) error {
	res, err := d.client.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("GET %s: %s", imageURL, res.Status())
	}
	return os.WriteFile(dest, res.Body(), 0o644)
}

// DownloadBatch runs DownloadOne over the cards with at most five
// downloads in flight. resolveURL maps a card to its download URL;
// onProgress, when set, fires exactly once per card after that card's
// attempt sequence fully resolves, whatever the outcome. One card
// exhausting its retries never aborts the rest.
func (d *Downloader) DownloadBatch(
	ctx context.Context,
	cards []models.Card,
	resolveURL func(models.Card) string,
	onProgress func(),
) (successes, failures int) {
	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, card := range cards {
		wg.Add(1)
		go func(card models.Card) {
			defer wg.Done()
			sem <- struct{}{}
			err := d.DownloadOne(ctx, card, resolveURL(card))
			<-sem

			mu.Lock()
			if err == nil {
				successes++
			} else {
				failures++
			}
			if onProgress != nil {
				onProgress()
			}
			mu.Unlock()
		}(card)
	}

	wg.Wait()
	return successes, failures
}

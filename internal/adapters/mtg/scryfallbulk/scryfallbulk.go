// Package scryfallbulk is the MTG source backed by Scryfall's bulk-data
// exports. One download of the "Default Cards" file answers every set
// without touching the search API, so this source sits first in the
// chain and the REST adapter only covers sets newer than the export.
package scryfallbulk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cardscraper/internal/adapters/mtg"
	"cardscraper/internal/config"
	"cardscraper/internal/models"
	"cardscraper/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("adapters/mtg/scryfallbulk")

const (
	baseURL       = "https://api.scryfall.com"
	cacheFileName = "default-cards.json"
)

type bulkEntry struct {
	Type        string `json:"type"`
	DownloadURI string `json:"download_uri"`
	UpdatedAt   string `json:"updated_at"`
}

type Adapter struct {
	client    *resty.Client
	cacheDir  string
	ttl       time.Duration
	imageSize string

	mu    sync.Mutex
	cards []mtg.RawCard
}

func New(cfg config.SourceConfig) *Adapter {
	client := resty.New()
	client.SetBaseURL(baseURL)
	// the bulk file is a few hundred MB, give the download room
	client.SetTimeout(time.Minute * 5)
	client.SetHeader("user-agent", "manamesh-cardscraper/0.2")
	telemetry.InstrumentResty(client, "adapters/mtg/scryfallbulk")

	imageSize := cfg.ImageSize
	if imageSize == "" {
		imageSize = "normal"
	}
	cacheDir := cfg.LocalPath
	if cacheDir == "" {
		cacheDir = "./data/scryfall/"
	}
	ttlHours := cfg.BulkTTLHours
	if ttlHours <= 0 {
		ttlHours = 24
	}

	return &Adapter{
		client:    client,
		cacheDir:  cacheDir,
		ttl:       time.Duration(ttlHours) * time.Hour,
		imageSize: imageSize,
	}
}

func (a *Adapter) Name() string {
	return "scryfall-bulk"
}

func (a *Adapter) cachePath() string {
	return filepath.Join(a.cacheDir, cacheFileName)
}

// cacheFresh reports whether the local bulk file exists and is younger
// than the configured TTL.
func (a *Adapter) cacheFresh() bool {
	info, err := os.Stat(a.cachePath())
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < a.ttl
}

// refreshBulk downloads the current Default Cards export to the cache
// file. The bulk-data index is fetched first to resolve the download
// URI of the export.
func (a *Adapter) refreshBulk(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "scryfallbulk:refreshBulk")
	defer span.End()

	res, err := a.client.R().SetContext(ctx).Get("/bulk-data")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("GET /bulk-data: %s", res.Status())
	}
	var index struct {
		Data []bulkEntry `json:"data"`
	}
	err = json.Unmarshal(res.Body(), &index)
	if err != nil {
		return err
	}

	var entry *bulkEntry
	for i := range index.Data {
		if index.Data[i].Type == "default_cards" {
			entry = &index.Data[i]
			break
		}
	}
	if entry == nil {
		return fmt.Errorf("bulk-data index has no default_cards entry")
	}

	err = os.MkdirAll(a.cacheDir, 0o755)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "scryfall-bulk: downloading default cards",
		"uri", entry.DownloadURI, "updated_at", entry.UpdatedAt)

	dl, err := a.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(entry.DownloadURI)
	if err != nil {
		return err
	}
	body := dl.RawBody()
	defer body.Close()
	if dl.IsError() {
		return fmt.Errorf("GET %s: %s", entry.DownloadURI, dl.Status())
	}

	tmp := a.cachePath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	written, err := io.Copy(f, body)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	err = f.Close()
	if err != nil {
		os.Remove(tmp)
		return err
	}
	err = os.Rename(tmp, a.cachePath())
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "scryfall-bulk: cached default cards",
		"path", a.cachePath(), "bytes", written)
	return nil
}

// load returns the parsed bulk cards, downloading a fresh export when
// the cache file is missing or older than the TTL.
func (a *Adapter) load(ctx context.Context) ([]mtg.RawCard, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cards != nil {
		return a.cards, nil
	}
	if !a.cacheFresh() {
		err := a.refreshBulk(ctx)
		if err != nil {
			return nil, err
		}
	}

	raw, err := os.ReadFile(a.cachePath())
	if err != nil {
		return nil, err
	}
	var cards []mtg.RawCard
	err = json.Unmarshal(raw, &cards)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", a.cachePath(), err)
	}
	a.cards = cards
	return cards, nil
}

func (a *Adapter) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	ctx, span := tracer.Start(ctx, "scryfallbulk:ListSets")
	defer span.End()

	cards, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]models.SetInfo{}
	for _, raw := range cards {
		if raw.Set == "" {
			continue
		}
		id := strings.ToUpper(raw.Set)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = models.SetInfo{
			ID:       id,
			Name:     raw.SetName,
			Category: mtg.CategoryFor(raw.SetType),
		}
	}

	sets := make([]models.SetInfo, 0, len(seen))
	for _, s := range seen {
		sets = append(sets, s)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].ID < sets[j].ID })
	slog.InfoContext(ctx, "scryfall-bulk: listed sets", "count", len(sets))
	return sets, nil
}

func (a *Adapter) GetCards(ctx context.Context, setID string) ([]models.Card, error) {
	ctx, span := tracer.Start(ctx, "scryfallbulk:GetCards")
	defer span.End()

	all, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	code := strings.ToLower(setID)
	var cards []models.Card
	for _, raw := range all {
		if raw.Set != code {
			continue
		}
		cards = append(cards, mtg.ParseCard(raw, setID, a.Name(), a.imageSize))
	}
	slog.InfoContext(ctx, "scryfall-bulk: fetched set", "set", setID, "cards", len(cards))
	return cards, nil
}

func (a *Adapter) ImageURL(card models.Card) string {
	return card.ImageURL
}

func (a *Adapter) Close() error {
	return nil
}

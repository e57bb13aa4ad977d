// Package scraper is the pipeline controller: it sequences discovery,
// card fetching, image downloads, manifest emission and state
// persistence for one run.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"cardscraper/internal/adapters"
	"cardscraper/internal/config"
	"cardscraper/internal/downloader"
	"cardscraper/internal/manifest"
	"cardscraper/internal/models"
	"cardscraper/internal/state"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scraper")

type Scraper struct {
	cfg       config.Config
	adapters  []adapters.Adapter
	tracker   *state.Tracker
	dl        *downloader.Downloader
	manifests *manifest.Writer
}

// New instantiates every enabled adapter for the active game, in
// priority order. A single adapter failing to construct is logged and
// skipped; ending up with zero adapters is fatal.
func New(cfg config.Config) (*Scraper, error) {
	var list []adapters.Adapter
	for _, src := range cfg.ActiveGame().EnabledSources() {
		a, err := adapters.New(cfg.Game, src)
		if err != nil {
			slog.Error("failed to load adapter", "source", src.Name, "err", err)
			continue
		}
		slog.Info("loaded adapter", "source", src.Name, "priority", src.Priority)
		list = append(list, a)
	}
	return NewWithAdapters(cfg, list)
}

// NewWithAdapters wires a scraper around an already-built adapter chain,
// assumed to be in priority order.
func NewWithAdapters(cfg config.Config, list []adapters.Adapter) (*Scraper, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("no adapters could be loaded for game %q", cfg.Game)
	}
	return &Scraper{
		cfg:       cfg,
		adapters:  list,
		tracker:   state.NewTracker(cfg.State.StateFile),
		dl:        downloader.New(cfg.OutputDir()),
		manifests: manifest.NewWriter(cfg.OutputDir(), cfg.Game, cfg.Output.ManifestVersion),
	}, nil
}

func (s *Scraper) Close() {
	for _, a := range s.adapters {
		err := a.Close()
		if err != nil {
			slog.Warn("failed to close adapter", "source", a.Name(), "err", err)
		}
	}
}

func (s *Scraper) Tracker() *state.Tracker {
	return s.tracker
}

type RunOptions struct {
	// Force ignores all prior state: the tracker is cleared and every
	// image is treated as pending.
	Force bool
	// SetFilter is an explicit set-id allowlist; it overrides the
	// configured one when non-empty.
	SetFilter []string
}

// Run executes the full pipeline. Stages are strictly sequential; any
// error escaping a stage aborts the run before the final save, leaving
// the previously persisted state as the effective checkpoint.
func (s *Scraper) Run(ctx context.Context, opts RunOptions) error {
	ctx, span := tracer.Start(ctx, "scraper:Run")
	defer span.End()

	if opts.Force {
		slog.Info("force mode: ignoring previous state")
		s.tracker.Reset()
	}

	slog.Info("discovering sets", "game", s.cfg.Game)
	allSets := s.discoverSets(ctx)
	if len(allSets) == 0 {
		slog.Error("no sets found from any adapter")
		return nil
	}

	filter := opts.SetFilter
	if len(filter) == 0 {
		filter = s.cfg.ActiveGame().SetFilter()
	}
	if len(filter) > 0 {
		allSets = intersect(allSets, filter)
		if len(allSets) == 0 {
			slog.Error("set filter matched nothing", "filter", filter)
			return nil
		}
		slog.Info("filtered sets", "count", len(allSets))
	} else {
		slog.Info("found sets", "count", len(allSets))
	}

	allCards := s.fetchStage(ctx, allSets)
	s.downloadStage(ctx, allSets, allCards, opts.Force)

	err := s.manifestStage(allSets, allCards)
	if err != nil {
		return err
	}

	err = s.tracker.Save()
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	slog.Info("scrape complete")
	return nil
}

// discoverSets merges set catalogs from every adapter, first occurrence
// (highest priority) winning on id collisions, then appends the
// config-driven synthetic sets no adapter lists naturally.
func (s *Scraper) discoverSets(ctx context.Context) []models.SetInfo {
	ctx, span := tracer.Start(ctx, "scraper:discoverSets")
	defer span.End()

	merged := map[string]models.SetInfo{}
	for _, a := range s.adapters {
		sets, err := a.ListSets(ctx)
		if err != nil {
			slog.Warn("adapter failed to list sets", "source", a.Name(), "err", err)
			continue
		}
		for _, set := range sets {
			_, ok := merged[set.ID]
			if !ok {
				merged[set.ID] = set
			}
		}
	}

	if s.cfg.Game == "onepiece" {
		scrape := s.cfg.ActiveGame().Scrape
		if scrape.StartersIncluded() {
			for i := 1; i < 20; i++ {
				id := fmt.Sprintf("ST-%02d", i)
				_, ok := merged[id]
				if !ok {
					merged[id] = models.SetInfo{
						ID:       id,
						Name:     fmt.Sprintf("Starter Deck %02d", i),
						Category: "starter",
					}
				}
			}
		}
		if scrape.IncludePromos {
			_, ok := merged["PROMO"]
			if !ok {
				merged["PROMO"] = models.SetInfo{ID: "PROMO", Name: "Promo Cards", Category: "promo"}
			}
		}
	}

	out := make([]models.SetInfo, 0, len(merged))
	for _, set := range merged {
		out = append(out, set)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fetchCards walks the adapter fallback chain for one set: the first
// adapter returning a non-empty list wins and lower-priority adapters
// are never asked. Errors count as empty. Every adapter coming up empty
// is not an error; the set simply yields zero cards.
func (s *Scraper) fetchCards(ctx context.Context, setID string) []models.Card {
	for _, a := range s.adapters {
		cards, err := a.GetCards(ctx, setID)
		if err != nil {
			slog.Warn("adapter failed to fetch set", "source", a.Name(), "set", setID, "err", err)
			continue
		}
		if len(cards) == 0 {
			continue
		}

		unique := dedupByID(cards)
		if len(unique) < len(cards) {
			slog.Info("deduplicated cards", "set", setID, "before", len(cards), "after", len(unique))
		}
		slog.Info("fetched cards", "set", setID, "cards", len(unique), "source", a.Name())
		return unique
	}
	slog.Warn("no cards found from any adapter", "set", setID)
	return nil
}

func (s *Scraper) fetchStage(ctx context.Context, sets []models.SetInfo) map[string][]models.Card {
	ctx, span := tracer.Start(ctx, "scraper:fetchStage")
	defer span.End()

	allCards := map[string][]models.Card{}
	st := s.tracker.State()
	for _, set := range sets {
		cards := s.fetchCards(ctx, set.ID)
		if len(cards) == 0 {
			// leave any prior timestamp for the set untouched
			continue
		}
		allCards[set.ID] = cards
		for _, card := range cards {
			st.MarkCardScraped(set.ID, card.ID)
		}
		st.SetLastScraped(set.ID, time.Now().UTC().Format(time.RFC3339))
	}

	total := 0
	for _, cards := range allCards {
		total += len(cards)
	}
	slog.Info("fetch stage done", "cards", total, "sets", len(allCards))
	return allCards
}

// downloadStage downloads the pending image subset per set, then
// re-derives each card's final status from actual on-disk existence so
// the recorded state survives partial writes within a batch.
func (s *Scraper) downloadStage(ctx context.Context, sets []models.SetInfo, allCards map[string][]models.Card, force bool) {
	ctx, span := tracer.Start(ctx, "scraper:downloadStage")
	defer span.End()

	st := s.tracker.State()
	totalOK, totalFailed := 0, 0

	for _, set := range sets {
		cards := allCards[set.ID]
		if len(cards) == 0 {
			continue
		}

		pending := cards
		if !force {
			pending = nil
			for _, card := range cards {
				if !st.IsImageDownloaded(set.ID, card.ID) {
					pending = append(pending, card)
				}
			}
		}
		if len(pending) == 0 {
			continue
		}

		done := 0
		ok, failed := s.dl.DownloadBatch(ctx, pending, s.bestImageURL, func() {
			done++
			slog.Debug("download progress", "set", set.ID, "done", done, "total", len(pending))
		})

		for _, card := range pending {
			path := s.dl.PathFor(card, s.bestImageURL(card))
			if s.dl.Exists(path) {
				st.MarkImage(set.ID, card.ID, models.ImageSuccess, path, "")
			} else {
				st.MarkImage(set.ID, card.ID, models.ImageFailed, "", "image missing on disk")
			}
		}

		totalOK += ok
		totalFailed += failed
	}
	slog.Info("download stage done", "downloaded", totalOK, "failed", totalFailed)
}

func (s *Scraper) manifestStage(sets []models.SetInfo, allCards map[string][]models.Card) error {
	var withCards []models.SetInfo
	for _, set := range sets {
		if len(allCards[set.ID]) > 0 {
			withCards = append(withCards, set)
		}
	}
	if len(withCards) == 0 {
		slog.Warn("no sets produced cards, skipping manifests")
		return nil
	}

	_, err := s.manifests.WriteRoot(withCards)
	if err != nil {
		return fmt.Errorf("write root manifest: %w", err)
	}
	for _, set := range withCards {
		_, err = s.manifests.WriteSet(set, allCards[set.ID])
		if err != nil {
			return fmt.Errorf("write manifest for set %s: %w", set.ID, err)
		}
	}
	return nil
}

// bestImageURL asks the adapter that produced a card to resolve its
// image URL, falling back to whatever URL the record itself carries.
func (s *Scraper) bestImageURL(card models.Card) string {
	for _, a := range s.adapters {
		if a.Name() == card.Source {
			return a.ImageURL(card)
		}
	}
	return card.ImageURL
}

func dedupByID(cards []models.Card) []models.Card {
	seen := map[string]bool{}
	out := make([]models.Card, 0, len(cards))
	for _, card := range cards {
		if seen[card.ID] {
			continue
		}
		seen[card.ID] = true
		out = append(out, card)
	}
	return out
}

func intersect(sets []models.SetInfo, filter []string) []models.SetInfo {
	allowed := map[string]bool{}
	for _, id := range filter {
		allowed[id] = true
	}
	var out []models.SetInfo
	for _, set := range sets {
		if allowed[set.ID] {
			out = append(out, set)
		}
	}
	return out
}

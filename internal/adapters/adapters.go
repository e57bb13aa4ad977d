// Package adapters defines the source adapter contract and the static
// registry mapping each game and source name to a factory.
package adapters

import (
	"context"
	"fmt"
	"sort"

	"cardscraper/internal/adapters/mtg/scryfall"
	"cardscraper/internal/adapters/mtg/scryfallbulk"
	"cardscraper/internal/adapters/onepiece/optcgapi"
	"cardscraper/internal/adapters/onepiece/optcghtml"
	"cardscraper/internal/adapters/onepiece/ryanapi"
	"cardscraper/internal/adapters/onepiece/vegapull"
	"cardscraper/internal/config"
	"cardscraper/internal/models"
)

// Adapter is the normalization boundary between one external data source
// and canonical records. Every operation may fail; callers treat
// failures as empty results and fall through to the next source.
type Adapter interface {
	Name() string
	ListSets(ctx context.Context) ([]models.SetInfo, error)
	GetCards(ctx context.Context, setID string) ([]models.Card, error)
	// ImageURL resolves the best download URL for a card this adapter
	// produced.
	ImageURL(card models.Card) string
	Close() error
}

type Factory func(cfg config.SourceConfig) (Adapter, error)

// built once at startup, never mutated afterward
var registry = map[string]map[string]Factory{
	"onepiece": {
		"optcg-api": func(cfg config.SourceConfig) (Adapter, error) {
			return optcgapi.New(cfg), nil
		},
		"ryan-api": func(cfg config.SourceConfig) (Adapter, error) {
			return ryanapi.New(cfg), nil
		},
		"optcg-html": func(cfg config.SourceConfig) (Adapter, error) {
			return optcghtml.New(cfg), nil
		},
		"vegapull-records": func(cfg config.SourceConfig) (Adapter, error) {
			return vegapull.New(cfg), nil
		},
	},
	"mtg": {
		"scryfall-bulk": func(cfg config.SourceConfig) (Adapter, error) {
			return scryfallbulk.New(cfg), nil
		},
		"scryfall-api": func(cfg config.SourceConfig) (Adapter, error) {
			return scryfall.New(cfg), nil
		},
	},
}

// Known returns the registered source names per game, for config
// validation.
func Known() map[string][]string {
	out := map[string][]string{}
	for game, sources := range registry {
		for name := range sources {
			out[game] = append(out[game], name)
		}
		sort.Strings(out[game])
	}
	return out
}

// New instantiates the adapter registered for the given game and source
// name.
func New(game string, cfg config.SourceConfig) (Adapter, error) {
	sources, ok := registry[game]
	if !ok {
		return nil, fmt.Errorf("unknown game %q", game)
	}
	factory, ok := sources[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q for game %q", cfg.Name, game)
	}
	return factory(cfg)
}

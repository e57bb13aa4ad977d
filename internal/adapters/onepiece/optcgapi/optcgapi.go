// Package optcgapi is the primary One Piece source, backed by the
// optcgapi.com REST endpoints.
package optcgapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cardscraper/internal/adapters/onepiece"
	"cardscraper/internal/config"
	"cardscraper/internal/models"
	"cardscraper/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("adapters/onepiece/optcgapi")

const (
	baseURL   = "https://optcgapi.com"
	imageBase = baseURL + "/media/static/Card_Images"
)

type Adapter struct {
	client    *resty.Client
	rateLimit time.Duration
}

func New(cfg config.SourceConfig) *Adapter {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(time.Second * 30)
	client.SetHeader("user-agent", "manamesh-cardscraper/0.2")
	telemetry.InstrumentResty(client, "adapters/onepiece/optcgapi")

	return &Adapter{
		client:    client,
		rateLimit: time.Duration(cfg.RateLimitMS) * time.Millisecond,
	}
}

func (a *Adapter) Name() string {
	return "optcg-api"
}

func (a *Adapter) throttle(ctx context.Context) error {
	if a.rateLimit <= 0 {
		return nil
	}
	select {
	case <-time.After(a.rateLimit):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) getJSON(ctx context.Context, path string, out any) error {
	err := a.throttle(ctx)
	if err != nil {
		return err
	}
	res, err := a.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("GET %s: %s", path, res.Status())
	}
	return json.Unmarshal(res.Body(), out)
}

func (a *Adapter) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	ctx, span := tracer.Start(ctx, "optcgapi:ListSets")
	defer span.End()

	var data []map[string]any
	err := a.getJSON(ctx, "/api/allSets/", &data)
	if err != nil {
		return nil, err
	}

	sets := make([]models.SetInfo, 0, len(data))
	for _, raw := range data {
		sets = append(sets, models.SetInfo{
			ID:       onepiece.Str(raw, "id", "set_id"),
			Name:     onepiece.Str(raw, "name", "set_name"),
			Category: "booster",
		})
	}
	slog.InfoContext(ctx, "optcg-api: listed booster sets", "count", len(sets))
	return sets, nil
}

func (a *Adapter) GetCards(ctx context.Context, setID string) ([]models.Card, error) {
	ctx, span := tracer.Start(ctx, "optcgapi:GetCards")
	defer span.End()

	if setID == "PROMO" {
		return a.promoCards(ctx)
	}
	if strings.HasPrefix(strings.ToUpper(setID), "ST") {
		return a.starterCards(ctx, setID)
	}
	return a.setCards(ctx, setID)
}

// ImageURL falls back to the static image path derived from the card id
// when the record carries no absolute URL of its own.
func (a *Adapter) ImageURL(card models.Card) string {
	if strings.HasPrefix(card.ImageURL, "http") {
		return card.ImageURL
	}
	return fmt.Sprintf("%s/%s.jpg", imageBase, card.ID)
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) setCards(ctx context.Context, setID string) ([]models.Card, error) {
	var data []map[string]any
	err := a.getJSON(ctx, fmt.Sprintf("/api/sets/%s/", setID), &data)
	if err != nil {
		return nil, err
	}
	cards := a.parseCards(ctx, data, setID)
	slog.InfoContext(ctx, "optcg-api: fetched set", "set", setID, "cards", len(cards))
	return cards, nil
}

// starterCards filters the all-starters endpoint down to one deck. Card
// ids use the "ST01" spelling while set ids use "ST-01", so dashes are
// stripped before comparing.
func (a *Adapter) starterCards(ctx context.Context, setID string) ([]models.Card, error) {
	var data []map[string]any
	err := a.getJSON(ctx, "/api/allSTCards/", &data)
	if err != nil {
		return nil, err
	}
	all := a.parseCards(ctx, data, setID)
	prefix := strings.ReplaceAll(strings.ToUpper(setID), "-", "")

	var cards []models.Card
	for _, c := range all {
		id, _, _ := strings.Cut(c.ID, "-")
		if strings.HasPrefix(strings.ToUpper(id), prefix) {
			cards = append(cards, c)
		}
	}
	slog.InfoContext(ctx, "optcg-api: fetched starter deck", "set", setID, "cards", len(cards))
	return cards, nil
}

func (a *Adapter) promoCards(ctx context.Context) ([]models.Card, error) {
	var data []map[string]any
	err := a.getJSON(ctx, "/api/allPromoCards/", &data)
	if err != nil {
		return nil, err
	}
	cards := a.parseCards(ctx, data, "PROMO")
	slog.InfoContext(ctx, "optcg-api: fetched promos", "cards", len(cards))
	return cards, nil
}

func (a *Adapter) parseCards(ctx context.Context, data []map[string]any, setID string) []models.Card {
	var cards []models.Card
	for _, raw := range data {
		card := onepiece.ParseCard(raw, setID, a.Name())
		if card.ID == "" {
			slog.WarnContext(ctx, "optcg-api: skipping card without id", "set", setID)
			continue
		}
		if card.ImageURL != "" && !strings.HasPrefix(card.ImageURL, "http") {
			if strings.HasPrefix(card.ImageURL, "/") {
				card.ImageURL = baseURL + card.ImageURL
			} else {
				card.ImageURL = imageBase + "/" + card.ImageURL
			}
		}
		cards = append(cards, card)
	}
	return cards
}

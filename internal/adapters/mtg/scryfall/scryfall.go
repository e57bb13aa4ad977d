// Package scryfall is the MTG source backed by the Scryfall REST API.
// Scryfall asks for no more than 10 requests per second, so the adapter
// throttles and backs off on 429 responses.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardscraper/internal/adapters/mtg"
	"cardscraper/internal/config"
	"cardscraper/internal/models"
	"cardscraper/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("adapters/mtg/scryfall")

const baseURL = "https://api.scryfall.com"

type Adapter struct {
	client    *resty.Client
	rateLimit time.Duration
	imageSize string
}

func New(cfg config.SourceConfig) *Adapter {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(time.Second * 30)
	client.SetHeader("user-agent", "manamesh-cardscraper/0.2")
	telemetry.InstrumentResty(client, "adapters/mtg/scryfall")

	imageSize := cfg.ImageSize
	if imageSize == "" {
		imageSize = "normal"
	}
	rateLimit := time.Duration(cfg.RateLimitMS) * time.Millisecond
	if cfg.RateLimitMS == 0 {
		rateLimit = 100 * time.Millisecond
	}

	return &Adapter{
		client:    client,
		rateLimit: rateLimit,
		imageSize: imageSize,
	}
}

func (a *Adapter) Name() string {
	return "scryfall-api"
}

func (a *Adapter) throttle(ctx context.Context) error {
	select {
	case <-time.After(a.rateLimit):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) getJSON(ctx context.Context, path string, params map[string]string, out any) error {
	err := a.throttle(ctx)
	if err != nil {
		return err
	}
	for attempt := 1; ; attempt++ {
		res, err := a.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			return err
		}
		if res.StatusCode() == http.StatusTooManyRequests && attempt < 3 {
			delay := time.Second << (attempt - 1)
			slog.WarnContext(ctx, "scryfall: rate limited, backing off", "delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if res.IsError() {
			return fmt.Errorf("GET %s: %s", path, res.Status())
		}
		return json.Unmarshal(res.Body(), out)
	}
}

type scryfallSet struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	SetType string `json:"set_type"`
}

type searchPage struct {
	Data     []mtg.RawCard `json:"data"`
	HasMore  bool          `json:"has_more"`
	NextPage string        `json:"next_page"`
}

func (a *Adapter) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	ctx, span := tracer.Start(ctx, "scryfall:ListSets")
	defer span.End()

	var data struct {
		Data []scryfallSet `json:"data"`
	}
	err := a.getJSON(ctx, "/sets", nil, &data)
	if err != nil {
		return nil, err
	}

	sets := make([]models.SetInfo, len(data.Data))
	for i, s := range data.Data {
		sets[i] = models.SetInfo{
			ID:       strings.ToUpper(s.Code),
			Name:     s.Name,
			Category: mtg.CategoryFor(s.SetType),
		}
	}
	slog.InfoContext(ctx, "scryfall: listed sets", "count", len(sets))
	return sets, nil
}

func (a *Adapter) GetCards(ctx context.Context, setID string) ([]models.Card, error) {
	ctx, span := tracer.Start(ctx, "scryfall:GetCards")
	defer span.End()

	path := "/cards/search"
	params := map[string]string{
		"q":      "set:" + strings.ToLower(setID),
		"unique": "prints",
	}

	var cards []models.Card
	for path != "" {
		var page searchPage
		err := a.getJSON(ctx, path, params, &page)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Data {
			cards = append(cards, mtg.ParseCard(raw, setID, a.Name(), a.imageSize))
		}

		path, params = "", nil
		if page.HasMore && page.NextPage != "" {
			next, err := url.Parse(page.NextPage)
			if err != nil {
				break
			}
			path = next.Path
			params = map[string]string{}
			for k, v := range next.Query() {
				params[k] = v[0]
			}
		}
	}
	slog.InfoContext(ctx, "scryfall: fetched set", "set", setID, "cards", len(cards))
	return cards, nil
}

func (a *Adapter) ImageURL(card models.Card) string {
	return card.ImageURL
}

func (a *Adapter) Close() error {
	return nil
}

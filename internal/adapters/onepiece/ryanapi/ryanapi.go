// Package ryanapi is the secondary One Piece source, backed by the
// paginated ryanmichaelhirst optcg-api.com endpoints.
package ryanapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"cardscraper/internal/adapters/onepiece"
	"cardscraper/internal/config"
	"cardscraper/internal/models"
	"cardscraper/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("adapters/onepiece/ryanapi")

const (
	baseURL = "https://optcg-api.com"
	pageLen = 100
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
	telemetry.InstrumentResty(client, "adapters/onepiece/ryanapi")

	return &Adapter{
		client:    client,
		rateLimit: time.Duration(cfg.RateLimitMS) * time.Millisecond,
	}
}

func (a *Adapter) Name() string {
	return "ryan-api"
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

func (a *Adapter) getCardsPage(ctx context.Context, params map[string]string) ([]map[string]any, error) {
	err := a.throttle(ctx)
	if err != nil {
		return nil, err
	}
	res, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/api/v1/cards")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("GET /api/v1/cards: %s", res.Status())
	}

	// the endpoint has shipped both a bare array and a wrapped object
	var list []map[string]any
	err = json.Unmarshal(res.Body(), &list)
	if err == nil {
		return list, nil
	}
	var wrapped struct {
		Data  []map[string]any `json:"data"`
		Cards []map[string]any `json:"cards"`
	}
	err = json.Unmarshal(res.Body(), &wrapped)
	if err != nil {
		return nil, err
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return wrapped.Cards, nil
}

// ListSets derives the set list from the first page of card data; the
// API has no dedicated set endpoint.
func (a *Adapter) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	ctx, span := tracer.Start(ctx, "ryanapi:ListSets")
	defer span.End()

	page, err := a.getCardsPage(ctx, map[string]string{
		"per_page": strconv.Itoa(pageLen),
		"page":     "1",
	})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, raw := range page {
		setID := onepiece.ExtractSetID(raw)
		if setID != "" {
			seen[setID] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sets := make([]models.SetInfo, len(ids))
	for i, id := range ids {
		sets[i] = models.SetInfo{
			ID:       id,
			Name:     id,
			Category: onepiece.GuessCategory(id),
		}
	}
	slog.InfoContext(ctx, "ryan-api: derived sets from card list", "count", len(sets))
	return sets, nil
}

func (a *Adapter) GetCards(ctx context.Context, setID string) ([]models.Card, error) {
	ctx, span := tracer.Start(ctx, "ryanapi:GetCards")
	defer span.End()

	var cards []models.Card
	for page := 1; ; page++ {
		list, err := a.getCardsPage(ctx, map[string]string{
			"set":      setID,
			"per_page": strconv.Itoa(pageLen),
			"page":     strconv.Itoa(page),
		})
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			break
		}

		for _, raw := range list {
			card := onepiece.ParseCard(raw, setID, a.Name())
			if card.ID == "" {
				slog.WarnContext(ctx, "ryan-api: skipping card without id", "set", setID)
				continue
			}
			cards = append(cards, card)
		}

		if len(list) < pageLen {
			break
		}
	}
	slog.InfoContext(ctx, "ryan-api: fetched set", "set", setID, "cards", len(cards))
	return cards, nil
}

func (a *Adapter) ImageURL(card models.Card) string {
	return card.ImageURL
}

func (a *Adapter) Close() error {
	return nil
}

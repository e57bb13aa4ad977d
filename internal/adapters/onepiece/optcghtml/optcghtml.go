// Package optcghtml scrapes the official One Piece card list site. It is
// a network fallback for when both JSON APIs are down; the markup is
// messier and slower to walk than either API.
package optcghtml

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cardscraper/internal/adapters/onepiece"
	"cardscraper/internal/config"
	"cardscraper/internal/models"
	"cardscraper/lib/htmlutil"
	"cardscraper/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("adapters/onepiece/optcghtml")

const baseURL = "https://en.onepiece-cardgame.com"

type Adapter struct {
	client    *resty.Client
	rateLimit time.Duration
}

func New(cfg config.SourceConfig) *Adapter {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(time.Second * 30)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	telemetry.InstrumentResty(client, "adapters/onepiece/optcghtml")

	return &Adapter{
		client:    client,
		rateLimit: time.Duration(cfg.RateLimitMS) * time.Millisecond,
	}
}

func (a *Adapter) Name() string {
	return "optcg-html"
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

func (a *Adapter) getDocument(ctx context.Context, path string, params map[string]string) (*goquery.Document, error) {
	err := a.throttle(ctx)
	if err != nil {
		return nil, err
	}
	res, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("GET %s: %s", path, res.Status())
	}
	return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
}

// "-ROMANCE DAWN- [OP-01]" or "[OP01]"
var seriesLabel = regexp.MustCompile(`\[([A-Za-z]+)-?(\d+)\]`)

type series struct {
	value string // the numeric form value the site keys pages on
	set   models.SetInfo
}

func (a *Adapter) listSeries(ctx context.Context) ([]series, error) {
	doc, err := a.getDocument(ctx, "/cardlist/", nil)
	if err != nil {
		return nil, err
	}

	var out []series
	seen := map[string]bool{}
	doc.Find("select#series option").Each(func(_ int, opt *goquery.Selection) {
		value := opt.AttrOr("value", "")
		label := htmlutil.CleanText(opt.Text())
		if value == "" || label == "" {
			return
		}

		groups := seriesLabel.FindStringSubmatch(label)
		if groups == nil {
			return
		}
		id := fmt.Sprintf("%s-%s", strings.ToUpper(groups[1]), groups[2])
		if seen[id] {
			return
		}
		seen[id] = true

		name := htmlutil.CleanText(seriesLabel.ReplaceAllString(label, ""))
		name = strings.Trim(name, " -")
		if name == "" {
			name = id
		}
		out = append(out, series{
			value: value,
			set: models.SetInfo{
				ID:       id,
				Name:     name,
				Category: onepiece.GuessCategory(id),
			},
		})
	})
	return out, nil
}

func (a *Adapter) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	ctx, span := tracer.Start(ctx, "optcghtml:ListSets")
	defer span.End()

	all, err := a.listSeries(ctx)
	if err != nil {
		return nil, err
	}
	sets := make([]models.SetInfo, len(all))
	for i, s := range all {
		sets[i] = s.set
	}
	slog.InfoContext(ctx, "optcg-html: listed sets", "count", len(sets))
	return sets, nil
}

func (a *Adapter) GetCards(ctx context.Context, setID string) ([]models.Card, error) {
	ctx, span := tracer.Start(ctx, "optcghtml:GetCards")
	defer span.End()

	all, err := a.listSeries(ctx)
	if err != nil {
		return nil, err
	}
	var target *series
	for i := range all {
		if strings.EqualFold(all[i].set.ID, setID) {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return nil, nil
	}

	doc, err := a.getDocument(ctx, "/cardlist/", map[string]string{"series": target.value})
	if err != nil {
		return nil, err
	}

	var cards []models.Card
	doc.Find("dl.modalCol").Each(func(_ int, entry *goquery.Selection) {
		card := a.parseCard(entry, setID)
		if card.ID != "" {
			cards = append(cards, card)
		}
	})
	slog.InfoContext(ctx, "optcg-html: scraped set", "set", setID, "cards", len(cards))
	return cards, nil
}

func (a *Adapter) parseCard(entry *goquery.Selection, setID string) models.Card {
	info := entry.Find("dt .infoCol span")
	id := htmlutil.CleanText(info.Eq(0).Text())
	rarity := htmlutil.CleanText(info.Eq(1).Text())
	cardType := strings.ToLower(htmlutil.CleanText(info.Eq(2).Text()))

	img := entry.Find("dd .frontCol img")
	imageURL := img.AttrOr("data-src", img.AttrOr("src", ""))
	if imageURL != "" && !strings.HasPrefix(imageURL, "http") {
		imageURL = baseURL + "/" + strings.TrimLeft(imageURL, "./")
	}

	meta := map[string]any{"cardType": cardType}
	if rarity != "" {
		meta["rarity"] = rarity
	}
	// the back column is a flat list of <h3>label</h3>value blocks
	entry.Find("dd .backCol div").Each(func(_ int, block *goquery.Selection) {
		label := strings.ToLower(htmlutil.CleanText(block.Find("h3").Text()))
		value := htmlutil.CleanText(blockValue(block))
		if label == "" || value == "" || value == "-" {
			return
		}
		switch label {
		case "cost":
			setIntField(meta, "cost", value)
		case "power":
			setIntField(meta, "power", value)
		case "counter":
			setIntField(meta, "counter", value)
		case "life":
			setIntField(meta, "life", value)
		case "color":
			meta["colors"] = onepiece.SplitSlash(value)
		case "type":
			meta["traits"] = onepiece.SplitSlash(value)
		case "effect":
			meta["text"] = value
		}
	})

	return models.Card{
		ID:       id,
		Name:     htmlutil.CleanText(entry.Find("dd .cardName").Text()),
		ImageURL: imageURL,
		SetID:    setID,
		Source:   a.Name(),
		Rarity:   rarity,
		Metadata: meta,
	}
}

// blockValue collects the text of a label/value block with the <h3>
// label element skipped, leaving only the value text.
func blockValue(block *goquery.Selection) string {
	var buf bytes.Buffer
	for _, node := range block.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && child.Data == "h3" {
				continue
			}
			buf.WriteString(htmlutil.GetText(child))
		}
	}
	return buf.String()
}

func setIntField(meta map[string]any, key, value string) {
	n, err := strconv.Atoi(value)
	if err == nil {
		meta[key] = n
	}
}

func (a *Adapter) ImageURL(card models.Card) string {
	return card.ImageURL
}

func (a *Adapter) Close() error {
	return nil
}

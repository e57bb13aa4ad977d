// Package vegapull is the last-resort One Piece source: it reads
// locally-downloaded vegapull-records JSON archives instead of the
// network.
package vegapull

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cardscraper/internal/adapters/onepiece"
	"cardscraper/internal/config"
	"cardscraper/internal/models"
)

type Adapter struct {
	localPath string
}

func New(cfg config.SourceConfig) *Adapter {
	path := cfg.LocalPath
	if path == "" {
		path = "./data/vegapull-records/"
	}
	return &Adapter{localPath: path}
}

func (a *Adapter) Name() string {
	return "vegapull-records"
}

// walkRecords calls fn for every card object found in every JSON file
// under the archive directory, in stable file order. Unreadable files
// are logged and skipped.
func (a *Adapter) walkRecords(ctx context.Context, fn func(raw map[string]any)) error {
	var files []string
	err := filepath.WalkDir(a.localPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.WarnContext(ctx, "vegapull: failed to read archive file", "path", path, "err", err)
			continue
		}

		var list []map[string]any
		err = json.Unmarshal(raw, &list)
		if err != nil {
			var wrapped struct {
				Cards []map[string]any `json:"cards"`
			}
			err = json.Unmarshal(raw, &wrapped)
			if err != nil {
				slog.WarnContext(ctx, "vegapull: failed to parse archive file", "path", path, "err", err)
				continue
			}
			list = wrapped.Cards
		}
		for _, card := range list {
			fn(card)
		}
	}
	return nil
}

func (a *Adapter) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	_, err := os.Stat(a.localPath)
	if err != nil {
		slog.WarnContext(ctx, "vegapull: local archive missing", "path", a.localPath)
		return nil, nil
	}

	var sets []models.SetInfo
	seen := map[string]bool{}
	err = a.walkRecords(ctx, func(raw map[string]any) {
		setID := onepiece.ExtractSetID(raw)
		if setID == "" || seen[setID] {
			return
		}
		seen[setID] = true
		name := onepiece.Str(raw, "set_name")
		if name == "" {
			name = setID
		}
		sets = append(sets, models.SetInfo{
			ID:       setID,
			Name:     name,
			Category: onepiece.GuessCategory(setID),
		})
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "vegapull: listed sets from local archive", "count", len(sets))
	return sets, nil
}

func (a *Adapter) GetCards(ctx context.Context, setID string) ([]models.Card, error) {
	_, err := os.Stat(a.localPath)
	if err != nil {
		return nil, nil
	}

	var cards []models.Card
	err = a.walkRecords(ctx, func(raw map[string]any) {
		if onepiece.ExtractSetID(raw) != setID {
			return
		}
		card := onepiece.ParseCard(raw, setID, a.Name())
		if card.ID != "" {
			cards = append(cards, card)
		}
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "vegapull: read set from local archive", "set", setID, "cards", len(cards))
	return cards, nil
}

func (a *Adapter) ImageURL(card models.Card) string {
	return card.ImageURL
}

func (a *Adapter) Close() error {
	return nil
}

// Package manifest emits the versioned asset pack manifests consumed by
// the renderer: one root manifest per game plus one manifest per set.
package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cardscraper/internal/downloader"
	"cardscraper/internal/models"
)

type SetRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type CardEntry struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Front    string         `json:"front"`
	Back     string         `json:"back,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

type Manifest struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Game    string      `json:"game"`
	Sets    []SetRef    `json:"sets,omitempty"`
	Cards   []CardEntry `json:"cards,omitempty"`
}

var displayNames = map[string]string{
	"onepiece": "One Piece TCG",
	"mtg":      "Magic: The Gathering",
}

func displayName(game string) string {
	name, ok := displayNames[game]
	if ok {
		return name
	}
	return game
}

// Writer emits manifests for one game under one output directory.
type Writer struct {
	outputDir string
	game      string
	version   string
}

func NewWriter(outputDir, game, version string) *Writer {
	return &Writer{outputDir: outputDir, game: game, version: version}
}

// WriteRoot writes <outputDir>/manifest.json referencing every set that
// produced cards.
func (w *Writer) WriteRoot(sets []models.SetInfo) (Manifest, error) {
	m := Manifest{
		Name:    fmt.Sprintf("%s - Complete", displayName(w.game)),
		Version: w.version,
		Game:    w.game,
		Sets:    make([]SetRef, len(sets)),
	}
	for i, s := range sets {
		m.Sets[i] = SetRef{Name: s.Name, Path: s.ID}
	}

	path := filepath.Join(w.outputDir, "manifest.json")
	err := writeJSON(path, m)
	if err != nil {
		return Manifest{}, err
	}
	slog.Info("wrote root manifest", "path", path, "sets", len(sets))
	return m, nil
}

// WriteSet writes <outputDir>/<setID>/manifest.json. Front image paths
// are relative to the set directory; a second card face with its own
// image becomes the back.
func (w *Writer) WriteSet(set models.SetInfo, cards []models.Card) (Manifest, error) {
	m := Manifest{
		Name:    fmt.Sprintf("%s - %s", displayName(w.game), set.Name),
		Version: w.version,
		Game:    w.game,
		Cards:   make([]CardEntry, len(cards)),
	}
	for i, card := range cards {
		m.Cards[i] = CardEntry{
			ID:       card.ID,
			Name:     card.Name,
			Front:    fmt.Sprintf("cards/%s.%s", card.ID, downloader.GuessExt(card.ImageURL)),
			Back:     backImage(card),
			Metadata: card.Metadata,
		}
	}

	path := filepath.Join(w.outputDir, set.ID, "manifest.json")
	err := writeJSON(path, m)
	if err != nil {
		return Manifest{}, err
	}
	slog.Info("wrote set manifest", "path", path, "cards", len(cards))
	return m, nil
}

func backImage(card models.Card) string {
	faces, ok := card.Metadata["faces"].([]map[string]any)
	if !ok || len(faces) < 2 {
		return ""
	}
	back, _ := faces[1]["imageUrl"].(string)
	return back
}

func writeJSON(path string, v any) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// Read loads a previously written manifest for validation.
func Read(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	err = json.Unmarshal(raw, &m)
	if err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks a manifest against the schema the renderer expects.
// The returned slice is empty for a valid manifest.
func Validate(m Manifest, expectedGame string) []string {
	var errors []string

	if m.Name == "" {
		errors = append(errors, "missing required field: name")
	}
	if m.Version == "" {
		errors = append(errors, "missing required field: version")
	}
	if m.Game == "" {
		errors = append(errors, "missing required field: game")
	}
	if expectedGame != "" && m.Game != "" && m.Game != expectedGame {
		errors = append(errors, fmt.Sprintf("expected game=%q, got %q", expectedGame, m.Game))
	}

	seen := map[string]bool{}
	for i, card := range m.Cards {
		prefix := fmt.Sprintf("cards[%d]", i)
		switch {
		case card.ID == "":
			errors = append(errors, prefix+": missing id")
		case seen[card.ID]:
			errors = append(errors, fmt.Sprintf("%s: duplicate id %q", prefix, card.ID))
		default:
			seen[card.ID] = true
		}
		if card.Name == "" {
			errors = append(errors, prefix+": missing name")
		}
		if card.Front == "" {
			errors = append(errors, prefix+": missing front")
		}
	}

	for i, s := range m.Sets {
		prefix := fmt.Sprintf("sets[%d]", i)
		if s.Name == "" {
			errors = append(errors, prefix+": missing name")
		}
		if s.Path == "" {
			errors = append(errors, prefix+": missing path")
		}
	}

	return errors
}

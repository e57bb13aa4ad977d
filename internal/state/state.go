// Package state persists scrape progress as a single JSON snapshot so
// interrupted runs can resume without refetching everything.
package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"cardscraper/internal/models"
)

// Tracker owns the in-memory scrape state and its file on disk. The file
// only ever reflects the last successful Save; there is no write-ahead
// log, a crash mid-run rolls back to that checkpoint.
type Tracker struct {
	path  string
	state *models.ScrapeState
}

func NewTracker(path string) *Tracker {
	return &Tracker{path: path}
}

// State lazily loads from disk on first access. A missing, unreadable or
// corrupt file degrades to an empty state with a warning, never an error.
func (t *Tracker) State() *models.ScrapeState {
	if t.state == nil {
		t.state = t.load()
	}
	return t.state
}

func (t *Tracker) load() *models.ScrapeState {
	raw, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		slog.Info("no state file, starting fresh", "path", t.path)
		return models.NewScrapeState()
	}
	if err != nil {
		slog.Warn("unreadable state file, starting fresh", "path", t.path, "err", err)
		return models.NewScrapeState()
	}

	state := models.NewScrapeState()
	err = json.Unmarshal(raw, state)
	if err != nil {
		slog.Warn("corrupt state file, starting fresh", "path", t.path, "err", err)
		return models.NewScrapeState()
	}
	if state.Sets == nil {
		state.Sets = map[string]*models.SetScrapeState{}
	}
	// fill in ids and maps dropped by hand-edited or foreign files
	for id, ss := range state.Sets {
		if ss.SetID == "" {
			ss.SetID = id
		}
		if ss.Images == nil {
			ss.Images = map[string]models.ImageStatus{}
		}
	}
	return state
}

// Reset discards all in-memory state, for forced full re-scrapes.
func (t *Tracker) Reset() {
	t.state = models.NewScrapeState()
}

// Save serializes the entire state to the state file, overwriting
// whatever snapshot was there before.
func (t *Tracker) Save() error {
	err := os.MkdirAll(filepath.Dir(t.path), 0o755)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(t.State(), "", "  ")
	if err != nil {
		return err
	}
	err = os.WriteFile(t.path, raw, 0o644)
	if err != nil {
		return err
	}
	slog.Debug("state saved", "path", t.path)
	return nil
}

// Delete removes the state file and clears the in-memory state.
func (t *Tracker) Delete() error {
	err := os.Remove(t.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	t.state = models.NewScrapeState()
	return nil
}

type SetSummary struct {
	Cards        int
	ImagesOK     int
	ImagesFailed int
	LastScraped  string
}

type Summary struct {
	SetsScraped      int
	TotalCards       int
	ImagesDownloaded int
	ImagesFailed     int
	Sets             map[string]SetSummary
}

// Summarize rolls the state up into the numbers the status command prints.
func (t *Tracker) Summarize() Summary {
	st := t.State()
	out := Summary{
		SetsScraped: len(st.Sets),
		Sets:        map[string]SetSummary{},
	}
	for id, ss := range st.Sets {
		entry := SetSummary{Cards: len(ss.CardIDs)}
		if ss.LastScraped != nil {
			entry.LastScraped = *ss.LastScraped
		}
		for _, img := range ss.Images {
			switch img.Status {
			case models.ImageSuccess:
				entry.ImagesOK++
			case models.ImageFailed:
				entry.ImagesFailed++
			}
		}
		out.TotalCards += entry.Cards
		out.ImagesDownloaded += entry.ImagesOK
		out.ImagesFailed += entry.ImagesFailed
		out.Sets[id] = entry
	}
	return out
}

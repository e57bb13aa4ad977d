// Package config loads and validates the multi-game scraper
// configuration from config.json5.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cardscraper/lib/configutil"
)

const DefaultPath = "config.json5"

// SourceConfig describes one adapter source. Values are fixed once the
// config is loaded; nothing mutates them during a run.
type SourceConfig struct {
	Name string `json:"name"`
	// nil means enabled
	Enabled     *bool  `json:"enabled"`
	Priority    int    `json:"priority"`
	RateLimitMS int    `json:"rate_limit_ms"`
	LocalPath   string `json:"local_path"`
	// hours before a cached bulk export is considered stale
	BulkTTLHours int    `json:"bulk_ttl_hours"`
	ImageSize    string `json:"image_size"`
}

func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type ScrapeConfig struct {
	// "all" or a comma-separated list of set ids
	Sets string `json:"sets"`
	// nil means true
	IncludeStarters *bool `json:"include_starters"`
	IncludePromos   bool  `json:"include_promos"`
}

func (s ScrapeConfig) StartersIncluded() bool {
	return s.IncludeStarters == nil || *s.IncludeStarters
}

type GameConfig struct {
	Sources []SourceConfig `json:"sources"`
	Scrape  ScrapeConfig   `json:"scrape"`
}

// EnabledSources returns the enabled sources ordered by ascending
// priority. The sort is stable: sources sharing a priority keep their
// declaration order, which is the documented tie-break.
func (g GameConfig) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range g.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// SetFilter returns the configured set-id allowlist, or nil for all.
func (g GameConfig) SetFilter() []string {
	if g.Scrape.Sets == "" || g.Scrape.Sets == "all" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(g.Scrape.Sets, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

type OutputConfig struct {
	BaseDir         string `json:"base_dir"`
	ManifestVersion string `json:"manifest_version"`
}

type StateConfig struct {
	StateFile string `json:"state_file"`
}

type Config struct {
	Game   string                `json:"game"`
	Games  map[string]GameConfig `json:"games"`
	Output OutputConfig          `json:"output"`
	State  StateConfig           `json:"state"`
}

func (c Config) ActiveGame() GameConfig {
	return c.Games[c.Game]
}

// OutputDir is the game-qualified output directory: base_dir/game.
func (c Config) OutputDir() string {
	return filepath.Join(c.Output.BaseDir, c.Game)
}

func Default() Config {
	return Config{
		Game: "onepiece",
		Games: map[string]GameConfig{
			"onepiece": {
				Sources: []SourceConfig{
					{Name: "optcg-api", Priority: 1, RateLimitMS: 200},
					{Name: "ryan-api", Priority: 2, RateLimitMS: 500},
					{Name: "vegapull-records", Priority: 3, LocalPath: "./data/vegapull-records/"},
				},
			},
		},
		Output: OutputConfig{
			BaseDir:         "./output/",
			ManifestVersion: "1.0",
		},
		State: StateConfig{
			StateFile: "./state/scrape-state.json",
		},
	}
}

// Load reads the config file, falling back to defaults when it does not
// exist. gameOverride comes from the --game flag and takes precedence
// over the file's default game.
func Load(path, gameOverride string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg, err := configutil.ReadConfig[Config](path)
	if os.IsNotExist(err) {
		slog.Info("no config file, using defaults", "path", path)
		cfg = Default()
	} else if err != nil {
		return Config{}, err
	} else {
		slog.Info("loaded config", "path", path)
		cfg.applyDefaults()
	}

	if gameOverride != "" {
		cfg.Game = gameOverride
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Output.BaseDir == "" {
		c.Output.BaseDir = def.Output.BaseDir
	}
	if c.Output.ManifestVersion == "" {
		c.Output.ManifestVersion = def.Output.ManifestVersion
	}
	if c.State.StateFile == "" {
		c.State.StateFile = def.State.StateFile
	}
	if c.Game == "" {
		c.Game = def.Game
	}
	if len(c.Games) == 0 {
		c.Games = def.Games
	}
	for _, game := range c.Games {
		for i := range game.Sources {
			src := &game.Sources[i]
			if src.Priority == 0 {
				src.Priority = 99
			}
			if src.RateLimitMS == 0 {
				src.RateLimitMS = 200
			}
			if src.BulkTTLHours == 0 {
				src.BulkTTLHours = 24
			}
		}
	}
}

// Validate checks the loaded config against the registry's known source
// names. Any violation here is fatal: the pipeline refuses to start on a
// broken config.
func (c Config) Validate(knownSources map[string][]string) error {
	known, ok := knownSources[c.Game]
	if !ok {
		return fmt.Errorf("unknown game %q, available: %v", c.Game, keys(knownSources))
	}
	game, ok := c.Games[c.Game]
	if !ok {
		return fmt.Errorf("active game %q not found in games config, available: %v", c.Game, keys(c.Games))
	}
	if len(game.Sources) == 0 {
		return fmt.Errorf("no sources defined for game %q", c.Game)
	}

	seen := map[string]bool{}
	for _, src := range game.Sources {
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q for game %q", src.Name, c.Game)
		}
		seen[src.Name] = true

		found := false
		for _, name := range known {
			if name == src.Name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown source %q for game %q, known: %v", src.Name, c.Game, known)
		}
	}

	if len(game.EnabledSources()) == 0 {
		return fmt.Errorf("no enabled sources for game %q", c.Game)
	}
	return nil
}

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

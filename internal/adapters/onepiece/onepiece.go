// Package onepiece holds the tolerant parsing helpers shared by the One
// Piece TCG source adapters. The sources disagree on field names for the
// same data, so lookups take an ordered list of candidate keys.
package onepiece

import (
	"strconv"
	"strings"

	"cardscraper/internal/models"
)

func Str(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

func Int(raw map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return int(t), true
		case string:
			if t == "" || t == "null" {
				continue
			}
			n, err := strconv.Atoi(t)
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// SplitSlash splits "Red/Green" style multi-value fields. Sources also
// ship them as real arrays, so both shapes are accepted.
func SplitSlash(v any) []string {
	switch t := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(t, "/") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range t {
			s, ok := item.(string)
			if ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GuessCategory classifies a set by its id prefix.
func GuessCategory(setID string) string {
	upper := strings.ToUpper(setID)
	switch {
	case strings.HasPrefix(upper, "ST"):
		return "starter"
	case strings.HasPrefix(upper, "OP"), strings.HasPrefix(upper, "EB"):
		return "booster"
	case strings.Contains(upper, "PROMO"), strings.HasPrefix(upper, "P-"):
		return "promo"
	}
	return "extra"
}

// ParseCard normalizes one raw card object. The candidate key lists
// cover the naming of every known One Piece source.
func ParseCard(raw map[string]any, setID, source string) models.Card {
	colors := SplitSlash(firstPresent(raw, "card_color", "color"))
	traits := SplitSlash(firstPresent(raw, "sub_types", "class", "traits"))

	meta := map[string]any{
		"cardType": strings.ToLower(Str(raw, "card_type", "type")),
	}
	if cost, ok := Int(raw, "card_cost", "cost"); ok {
		meta["cost"] = cost
	}
	if power, ok := Int(raw, "card_power", "power"); ok {
		meta["power"] = power
	}
	if len(colors) > 0 {
		meta["colors"] = colors
	}
	rarity := Str(raw, "rarity")
	if rarity != "" {
		meta["rarity"] = rarity
	}
	if len(traits) > 0 {
		meta["traits"] = traits
	}
	text := Str(raw, "card_text", "effect", "text")
	if text != "" {
		meta["text"] = text
	}
	if counter, ok := Int(raw, "counter_amount", "counter"); ok {
		meta["counter"] = counter
	}
	if life, ok := Int(raw, "life"); ok {
		meta["life"] = life
	}

	return models.Card{
		ID:       Str(raw, "card_set_id", "code", "id", "card_id"),
		Name:     Str(raw, "card_name", "name"),
		ImageURL: Str(raw, "card_image", "image", "image_url"),
		SetID:    setID,
		Source:   source,
		Rarity:   rarity,
		Metadata: meta,
	}
}

func firstPresent(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := raw[k]
		if ok && v != nil {
			return v
		}
	}
	return nil
}

// ExtractSetID pulls a set id out of a raw card, either from an explicit
// field or by splitting the card code prefix ("OP01-001" -> "OP-01").
func ExtractSetID(raw map[string]any) string {
	setID := Str(raw, "set_id", "setId", "set")
	if setID != "" {
		return setID
	}
	code := Str(raw, "code", "id", "card_id")
	prefix, _, found := strings.Cut(code, "-")
	if !found {
		return ""
	}
	for i, ch := range prefix {
		if ch >= '0' && ch <= '9' {
			return prefix[:i] + "-" + prefix[i:]
		}
	}
	return prefix
}

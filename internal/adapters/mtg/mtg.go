// Package mtg holds the Scryfall card model and parsing shared by the
// Magic source adapters. Both the REST API and the bulk-data exports
// serve the same card objects, so the adapters differ only in transport.
package mtg

import (
	"cardscraper/internal/models"
)

// scryfall set_type -> asset pack category
var setTypeCategory = map[string]string{
	"core":        "core",
	"expansion":   "expansion",
	"commander":   "commander",
	"masters":     "masters",
	"starter":     "core",
	"promo":       "promo",
	"token":       "token",
	"memorabilia": "promo",
}

func CategoryFor(setType string) string {
	category, ok := setTypeCategory[setType]
	if ok {
		return category
	}
	return "supplemental"
}

type Face struct {
	Name      string            `json:"name"`
	ManaCost  string            `json:"mana_cost"`
	TypeLine  string            `json:"type_line"`
	OracleTxt string            `json:"oracle_text"`
	Power     string            `json:"power"`
	Toughness string            `json:"toughness"`
	Loyalty   string            `json:"loyalty"`
	ImageURIs map[string]string `json:"image_uris"`
}

type RawCard struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Rarity          string            `json:"rarity"`
	ManaCost        string            `json:"mana_cost"`
	CMC             float64           `json:"cmc"`
	TypeLine        string            `json:"type_line"`
	OracleTxt       string            `json:"oracle_text"`
	Power           string            `json:"power"`
	Toughness       string            `json:"toughness"`
	Loyalty         string            `json:"loyalty"`
	Colors          []string          `json:"colors"`
	ColorIdentity   []string          `json:"color_identity"`
	Keywords        []string          `json:"keywords"`
	Layout          string            `json:"layout"`
	CollectorNumber string            `json:"collector_number"`
	Set             string            `json:"set"`
	SetName         string            `json:"set_name"`
	SetType         string            `json:"set_type"`
	ImageURIs       map[string]string `json:"image_uris"`
	CardFaces       []Face            `json:"card_faces"`
}

// ImageFrom picks the requested rendition from a Scryfall image_uris
// map, falling back to "normal" when the size is unavailable.
func ImageFrom(uris map[string]string, size string) string {
	if len(uris) == 0 {
		return ""
	}
	u, ok := uris[size]
	if ok {
		return u
	}
	return uris["normal"]
}

func ParseCard(raw RawCard, setID, source, imageSize string) models.Card {
	imageURL := ImageFrom(raw.ImageURIs, imageSize)
	if imageURL == "" && len(raw.CardFaces) > 0 {
		imageURL = ImageFrom(raw.CardFaces[0].ImageURIs, imageSize)
	}

	meta := map[string]any{
		"typeLine": raw.TypeLine,
		"cmc":      raw.CMC,
	}
	if raw.ManaCost != "" {
		meta["manaCost"] = raw.ManaCost
	}
	if raw.OracleTxt != "" {
		meta["text"] = raw.OracleTxt
	}
	if raw.Power != "" {
		meta["power"] = raw.Power
	}
	if raw.Toughness != "" {
		meta["toughness"] = raw.Toughness
	}
	if raw.Loyalty != "" {
		meta["loyalty"] = raw.Loyalty
	}
	if len(raw.Colors) > 0 {
		meta["colors"] = raw.Colors
	}
	if len(raw.ColorIdentity) > 0 {
		meta["colorIdentity"] = raw.ColorIdentity
	}
	if len(raw.Keywords) > 0 {
		meta["keywords"] = raw.Keywords
	}
	if raw.Rarity != "" {
		meta["rarity"] = raw.Rarity
	}
	if raw.Layout != "" && raw.Layout != "normal" {
		meta["layout"] = raw.Layout
	}
	if raw.CollectorNumber != "" {
		meta["collectorNumber"] = raw.CollectorNumber
	}
	if len(raw.CardFaces) > 0 {
		faces := make([]map[string]any, len(raw.CardFaces))
		for i, face := range raw.CardFaces {
			entry := map[string]any{
				"name":     face.Name,
				"typeLine": face.TypeLine,
			}
			if face.ManaCost != "" {
				entry["manaCost"] = face.ManaCost
			}
			if face.OracleTxt != "" {
				entry["text"] = face.OracleTxt
			}
			if face.Power != "" {
				entry["power"] = face.Power
			}
			if face.Toughness != "" {
				entry["toughness"] = face.Toughness
			}
			if face.Loyalty != "" {
				entry["loyalty"] = face.Loyalty
			}
			faceImage := ImageFrom(face.ImageURIs, imageSize)
			if faceImage != "" {
				entry["imageUrl"] = faceImage
			}
			faces[i] = entry
		}
		meta["faces"] = faces
	}

	return models.Card{
		ID:       raw.ID,
		Name:     raw.Name,
		ImageURL: imageURL,
		SetID:    setID,
		Source:   source,
		Rarity:   raw.Rarity,
		Metadata: meta,
	}
}

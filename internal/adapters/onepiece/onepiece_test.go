package onepiece

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStr(t *testing.T) {
	raw := map[string]any{
		"card_name": "Monkey D. Luffy",
		"empty":     "",
		"numeric":   float64(3),
		"nothing":   nil,
	}
	require.Equal(t, "Monkey D. Luffy", Str(raw, "name", "card_name"))
	require.Equal(t, "Monkey D. Luffy", Str(raw, "empty", "card_name"))
	require.Equal(t, "3", Str(raw, "numeric"))
	require.Equal(t, "", Str(raw, "nothing", "missing"))
}

func TestInt(t *testing.T) {
	raw := map[string]any{
		"cost":    float64(4),
		"power":   "5000",
		"counter": "null",
		"life":    "",
	}
	n, ok := Int(raw, "cost")
	require.True(t, ok)
	require.Equal(t, 4, n)

	n, ok = Int(raw, "power")
	require.True(t, ok)
	require.Equal(t, 5000, n)

	_, ok = Int(raw, "counter")
	require.False(t, ok)
	_, ok = Int(raw, "life")
	require.False(t, ok)
	_, ok = Int(raw, "missing")
	require.False(t, ok)

	// first usable candidate wins
	n, ok = Int(raw, "counter", "cost")
	require.True(t, ok)
	require.Equal(t, 4, n)
}

func TestSplitSlash(t *testing.T) {
	require.Equal(t, []string{"Red", "Green"}, SplitSlash("Red/Green"))
	require.Equal(t, []string{"Red"}, SplitSlash("Red"))
	require.Equal(t, []string{"Red", "Green"}, SplitSlash(" Red / Green "))
	require.Equal(t, []string{"Red", "Green"}, SplitSlash([]any{"Red", "Green"}))
	require.Nil(t, SplitSlash(""))
	require.Nil(t, SplitSlash(nil))
	require.Nil(t, SplitSlash(float64(7)))
}

func TestGuessCategory(t *testing.T) {
	testCases := []struct {
		setID    string
		expected string
	}{
		{setID: "OP-01", expected: "booster"},
		{setID: "EB-01", expected: "booster"},
		{setID: "ST-05", expected: "starter"},
		{setID: "st-05", expected: "starter"},
		{setID: "PROMO", expected: "promo"},
		{setID: "P-001", expected: "promo"},
		{setID: "DON", expected: "extra"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, GuessCategory(tc.setID), "setID=%q", tc.setID)
	}
}

func TestParseCard(t *testing.T) {
	raw := map[string]any{
		"card_set_id":    "OP01-001",
		"card_name":      "Roronoa Zoro",
		"card_image":     "https://example.com/OP01-001.png",
		"card_type":      "Leader",
		"card_cost":      nil,
		"card_power":     "5000",
		"card_color":     "Red",
		"sub_types":      "Supernovas/Straw Hat Crew",
		"rarity":         "L",
		"card_text":      "[DON!! x1] All your characters gain +1000 power.",
		"counter_amount": nil,
		"life":           float64(5),
	}

	card := ParseCard(raw, "OP-01", "optcg-api")
	require.Equal(t, "OP01-001", card.ID)
	require.Equal(t, "Roronoa Zoro", card.Name)
	require.Equal(t, "https://example.com/OP01-001.png", card.ImageURL)
	require.Equal(t, "OP-01", card.SetID)
	require.Equal(t, "optcg-api", card.Source)
	require.Equal(t, "L", card.Rarity)

	require.Equal(t, "leader", card.Metadata["cardType"])
	require.Equal(t, 5000, card.Metadata["power"])
	require.Equal(t, []string{"Red"}, card.Metadata["colors"])
	require.Equal(t, []string{"Supernovas", "Straw Hat Crew"}, card.Metadata["traits"])
	require.Equal(t, 5, card.Metadata["life"])
	require.NotContains(t, card.Metadata, "cost")
	require.NotContains(t, card.Metadata, "counter")
}

func TestParseCardAlternateKeys(t *testing.T) {
	raw := map[string]any{
		"code":   "OP02-013",
		"name":   "Edward Newgate",
		"image":  "https://example.com/OP02-013.jpg",
		"type":   "Character",
		"cost":   float64(9),
		"power":  float64(10000),
		"color":  []any{"Red", "Purple"},
		"class":  "Whitebeard Pirates",
		"effect": "[Rush]",
	}

	card := ParseCard(raw, "OP-02", "ryan-api")
	require.Equal(t, "OP02-013", card.ID)
	require.Equal(t, "Edward Newgate", card.Name)
	require.Equal(t, "character", card.Metadata["cardType"])
	require.Equal(t, 9, card.Metadata["cost"])
	require.Equal(t, []string{"Red", "Purple"}, card.Metadata["colors"])
	require.Equal(t, []string{"Whitebeard Pirates"}, card.Metadata["traits"])
	require.Equal(t, "[Rush]", card.Metadata["text"])
}

func TestExtractSetID(t *testing.T) {
	testCases := []struct {
		raw      map[string]any
		expected string
	}{
		{raw: map[string]any{"set_id": "OP-01"}, expected: "OP-01"},
		{raw: map[string]any{"code": "OP01-001"}, expected: "OP-01"},
		{raw: map[string]any{"code": "ST13-001"}, expected: "ST-13"},
		{raw: map[string]any{"id": "EB01-061"}, expected: "EB-01"},
		{raw: map[string]any{"card_id": "P-001"}, expected: "P"},
		{raw: map[string]any{"code": "nodash"}, expected: ""},
		{raw: map[string]any{}, expected: ""},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, ExtractSetID(tc.raw), "raw=%v", tc.raw)
	}
}

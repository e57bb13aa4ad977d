package manifest

import (
	"path/filepath"
	"testing"

	"cardscraper/internal/models"

	"github.com/stretchr/testify/require"
)

func TestWriteAndReadRoot(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "onepiece", "1.0")

	written, err := w.WriteRoot([]models.SetInfo{
		{ID: "OP-01", Name: "Romance Dawn", Category: "booster"},
		{ID: "ST-01", Name: "Straw Hat Crew", Category: "starter"},
	})
	require.NoError(t, err)
	require.Equal(t, "One Piece TCG - Complete", written.Name)

	read, err := Read(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	require.Equal(t, written, read)
	require.Equal(t, "OP-01", read.Sets[0].Path)
	require.Empty(t, Validate(read, "onepiece"))
}

func TestWriteSet(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "onepiece", "1.0")

	set := models.SetInfo{ID: "OP-01", Name: "Romance Dawn"}
	cards := []models.Card{
		{
			ID:       "OP01-001",
			Name:     "Roronoa Zoro",
			SetID:    "OP-01",
			ImageURL: "https://example.com/OP01-001.png",
			Metadata: map[string]any{"cost": 1, "colors": []string{"Red"}},
		},
		{
			ID:       "OP01-002",
			Name:     "Monkey D. Luffy",
			SetID:    "OP-01",
			ImageURL: "https://example.com/OP01-002.jpg",
		},
	}

	written, err := w.WriteSet(set, cards)
	require.NoError(t, err)

	read, err := Read(filepath.Join(dir, "OP-01", "manifest.json"))
	require.NoError(t, err)
	require.Equal(t, written.Name, read.Name)
	require.Equal(t, "One Piece TCG - Romance Dawn", read.Name)
	require.Len(t, read.Cards, 2)
	require.Equal(t, "cards/OP01-001.png", read.Cards[0].Front)
	require.Equal(t, "cards/OP01-002.jpg", read.Cards[1].Front)
	require.Empty(t, read.Cards[0].Back)
	require.Empty(t, Validate(read, "onepiece"))
}

func TestWriteSetBackFace(t *testing.T) {
	w := NewWriter(t.TempDir(), "mtg", "1.0")

	cards := []models.Card{{
		ID:       "MKM-1",
		Name:     "Double Faced Thing",
		SetID:    "MKM",
		ImageURL: "https://example.com/front.jpg",
		Metadata: map[string]any{
			"faces": []map[string]any{
				{"name": "Front", "imageUrl": "https://example.com/front.jpg"},
				{"name": "Back", "imageUrl": "https://example.com/back.jpg"},
			},
		},
	}}

	written, err := w.WriteSet(models.SetInfo{ID: "MKM", Name: "Murders"}, cards)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/back.jpg", written.Cards[0].Back)
}

func TestDisplayNameFallsBackToGameID(t *testing.T) {
	w := NewWriter(t.TempDir(), "somegame", "1.0")
	written, err := w.WriteRoot(nil)
	require.NoError(t, err)
	require.Equal(t, "somegame - Complete", written.Name)
}

func TestValidate(t *testing.T) {
	valid := Manifest{
		Name:    "One Piece TCG - Romance Dawn",
		Version: "1.0",
		Game:    "onepiece",
		Cards: []CardEntry{
			{ID: "OP01-001", Name: "Zoro", Front: "cards/OP01-001.jpg"},
		},
	}
	require.Empty(t, Validate(valid, "onepiece"))

	t.Run("missing required fields", func(t *testing.T) {
		issues := Validate(Manifest{}, "")
		require.Len(t, issues, 3)
	})
	t.Run("game mismatch", func(t *testing.T) {
		issues := Validate(valid, "mtg")
		require.Len(t, issues, 1)
		require.Contains(t, issues[0], "expected game")
	})
	t.Run("duplicate card ids", func(t *testing.T) {
		m := valid
		m.Cards = []CardEntry{
			{ID: "OP01-001", Name: "Zoro", Front: "a.jpg"},
			{ID: "OP01-001", Name: "Zoro Again", Front: "b.jpg"},
		}
		issues := Validate(m, "onepiece")
		require.Len(t, issues, 1)
		require.Contains(t, issues[0], "duplicate id")
	})
	t.Run("card missing front", func(t *testing.T) {
		m := valid
		m.Cards = []CardEntry{{ID: "OP01-001", Name: "Zoro"}}
		require.Len(t, Validate(m, "onepiece"), 1)
	})
	t.Run("set ref missing path", func(t *testing.T) {
		m := valid
		m.Cards = nil
		m.Sets = []SetRef{{Name: "Romance Dawn"}}
		require.Len(t, Validate(m, "onepiece"), 1)
	})
}

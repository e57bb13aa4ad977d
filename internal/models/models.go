// Package models holds the canonical records shared by every adapter,
// the state tracker and the manifest writer.
package models

// SetInfo is metadata about a card set / expansion.
type SetInfo struct {
	// stable external identifier, e.g. "OP-01" or "MKM"
	ID   string `json:"id"`
	Name string `json:"name"`
	// "booster", "starter", "promo", "core", "expansion", "extra", ...
	Category string `json:"category"`
}

// Card is the normalized card record produced by an adapter. Identity is
// (SetID, ID); game-specific fields ride along opaquely in Metadata and
// end up verbatim in the set manifest.
type Card struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	SetID    string `json:"set_id"`
	// name of the adapter that produced this record
	Source   string         `json:"source"`
	Rarity   string         `json:"rarity"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

const (
	ImageSuccess = "success"
	ImageFailed  = "failed"
	ImagePending = "pending"
)

// ImageStatus is the download outcome for one card image. Path and
// Error are pointers so that absent values serialize as explicit nulls.
type ImageStatus struct {
	CardID string  `json:"card_id"`
	Status string  `json:"status"`
	Path   *string `json:"path"`
	Error  *string `json:"error"`
}

// PathOr returns the recorded path, or empty when unset.
func (s ImageStatus) PathOr() string {
	if s.Path == nil {
		return ""
	}
	return *s.Path
}

// ErrorOr returns the recorded error text, or empty when unset.
func (s ImageStatus) ErrorOr() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}

// SetScrapeState is the per-set slice of the resume state. CardIDs keeps
// insertion order and never holds duplicates; Images keeps at most one
// entry per card id. LastScraped serializes as null until the set's
// first successful fetch.
type SetScrapeState struct {
	SetID       string                 `json:"set_id"`
	LastScraped *string                `json:"last_scraped"`
	CardIDs     []string               `json:"card_ids"`
	Images      map[string]ImageStatus `json:"images"`
}

// ScrapeState is the whole-run resume state, keyed by set id.
type ScrapeState struct {
	Sets map[string]*SetScrapeState `json:"sets"`
}

func NewScrapeState() *ScrapeState {
	return &ScrapeState{Sets: map[string]*SetScrapeState{}}
}

func (s *ScrapeState) set(setID string) *SetScrapeState {
	ss, ok := s.Sets[setID]
	if !ok {
		ss = &SetScrapeState{
			SetID:  setID,
			Images: map[string]ImageStatus{},
		}
		s.Sets[setID] = ss
	}
	if ss.Images == nil {
		ss.Images = map[string]ImageStatus{}
	}
	return ss
}

func (s *ScrapeState) IsCardScraped(setID, cardID string) bool {
	ss, ok := s.Sets[setID]
	if !ok {
		return false
	}
	for _, id := range ss.CardIDs {
		if id == cardID {
			return true
		}
	}
	return false
}

func (s *ScrapeState) IsImageDownloaded(setID, cardID string) bool {
	ss, ok := s.Sets[setID]
	if !ok {
		return false
	}
	img, ok := ss.Images[cardID]
	return ok && img.Status == ImageSuccess
}

// MarkCardScraped appends the card id to the set's scraped list. Calling
// it again for the same id is a no-op.
func (s *ScrapeState) MarkCardScraped(setID, cardID string) {
	ss := s.set(setID)
	for _, id := range ss.CardIDs {
		if id == cardID {
			return
		}
	}
	ss.CardIDs = append(ss.CardIDs, cardID)
}

// MarkImage upserts the image status for a card, replacing any prior
// entry. No history is kept. Empty path or error text is recorded as
// null.
func (s *ScrapeState) MarkImage(setID, cardID, status, path, errText string) {
	ss := s.set(setID)
	ss.Images[cardID] = ImageStatus{
		CardID: cardID,
		Status: status,
		Path:   nullable(path),
		Error:  nullable(errText),
	}
}

func (s *ScrapeState) SetLastScraped(setID, timestamp string) {
	s.set(setID).LastScraped = nullable(timestamp)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

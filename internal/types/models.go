// internal/types/models.go
package types

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// SessionType selects which payload field of a Session is populated.
type SessionType string

const (
	SessionCard     SessionType = "card"
	SessionSandplay SessionType = "sandplay"
)

// Message is one completed turn of a session transcript.
// Messages are immutable once appended; in-progress turns are never stored.
type Message struct {
	ID        MessageID `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CardImage references one image card. The core never verifies that the
// asset behind URL exists.
type CardImage struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// CardWord is one word card.
type CardWord struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CardCombination is a drawn image+word pair.
type CardCombination struct {
	Image CardImage `json:"image"`
	Word  CardWord  `json:"word"`
}

// PlacedToy is one object placed in a sandplay tray. Positions are
// normalized to the tray (0..1 on both axes).
type PlacedToy struct {
	ID       string  `json:"id"`
	ToyID    string  `json:"toy_id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
	Label    string  `json:"label,omitempty"`
}

// SandplaySnapshot is a finished sandplay arrangement.
type SandplaySnapshot struct {
	SceneID     string      `json:"scene_id"`
	Toys        []PlacedToy `json:"toys"`
	Description string      `json:"description,omitempty"`
}

// Payload carries a session's source material. Exactly one field is set,
// matching the session type. Immutable after session creation.
type Payload struct {
	Cards    *CardCombination  `json:"cards,omitempty"`
	Sandplay *SandplaySnapshot `json:"sandplay,omitempty"`
}

// Session is one complete card or sandplay exploration with its transcript.
// Title is derived once at creation and never recomputed.
type Session struct {
	ID          SessionID   `json:"id"`
	Type        SessionType `json:"type"`
	Title       string      `json:"title"`
	CreatedAt   time.Time   `json:"created_at"`
	LastUpdated time.Time   `json:"last_updated"`
	Payload     Payload     `json:"payload"`
	Messages    []Message   `json:"messages"`
}

// Clone returns a deep copy. The store hands out clones so callers can
// never alias store-owned state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	if s.Payload.Cards != nil {
		cards := *s.Payload.Cards
		cp.Payload.Cards = &cards
	}
	if s.Payload.Sandplay != nil {
		sp := *s.Payload.Sandplay
		sp.Toys = make([]PlacedToy, len(s.Payload.Sandplay.Toys))
		copy(sp.Toys, s.Payload.Sandplay.Toys)
		cp.Payload.Sandplay = &sp
	}
	return &cp
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Deck.
var (
	ErrEmptyDeckID   = errors.New("deck ID cannot be empty")
	ErrEmptyDeckName = errors.New("deck name cannot be empty")
)

// Deck owns a set of cards and carries the tag through which its
// scheduling profile is resolved. Decks sharing a tag form a deck
// group and are scheduled as one pool.
type Deck struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Tag       string    `json:"tag"`
	ProfileID uuid.UUID `json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDeck creates a deck with the given name, tag and profile.
func NewDeck(name, tag string, profileID uuid.UUID) (*Deck, error) {
	now := time.Now().UTC()
	deck := &Deck{
		ID:        uuid.New(),
		Name:      name,
		Tag:       tag,
		ProfileID: profileID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}

	return deck, nil
}

// Validate checks the deck's structural invariants.
func (d *Deck) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDeckID
	}
	if d.Name == "" {
		return ErrEmptyDeckName
	}
	return nil
}

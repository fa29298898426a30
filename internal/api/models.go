package api

import (
	"time"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/domain/fsrs"
)

// CardResponse represents the response data for a card.
type CardResponse struct {
	ID             string     `json:"id"`
	DeckID         string     `json:"deck_id"`
	State          string     `json:"state"`
	Stability      float64    `json:"stability"`
	Difficulty     float64    `json:"difficulty"`
	Reps           int        `json:"reps"`
	Lapses         int        `json:"lapses"`
	Mature         bool       `json:"mature"`
	DueAt          time.Time  `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
}

// OutcomePreviewResponse represents one projected rating outcome.
type OutcomePreviewResponse struct {
	Rating          string    `json:"rating"`
	Stability       float64   `json:"stability"`
	Difficulty      float64   `json:"difficulty"`
	IntervalMinutes int       `json:"interval_minutes"`
	DueAt           time.Time `json:"due_at"`
}

// SessionResponse represents the response data for a review session.
type SessionResponse struct {
	ID         string     `json:"id"`
	DeckID     string     `json:"deck_id"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	GoalTotal  int        `json:"goal_total"`
	DoneUnique int        `json:"done_unique"`
}

// cardToResponse converts a domain.Card to a CardResponse.
func cardToResponse(card *domain.Card) CardResponse {
	return CardResponse{
		ID:             card.ID.String(),
		DeckID:         card.DeckID.String(),
		State:          string(card.State),
		Stability:      card.Stability,
		Difficulty:     card.Difficulty,
		Reps:           card.Reps,
		Lapses:         card.Lapses,
		Mature:         card.IsMature(),
		DueAt:          card.DueAt,
		LastReviewedAt: card.LastReviewedAt,
	}
}

// previewToResponse flattens a preview map into a rating-ordered list.
func previewToResponse(preview map[domain.Rating]*fsrs.Outcome) []OutcomePreviewResponse {
	out := make([]OutcomePreviewResponse, 0, len(preview))
	for _, rating := range domain.AllRatings {
		outcome, ok := preview[rating]
		if !ok {
			continue
		}
		out = append(out, OutcomePreviewResponse{
			Rating:          string(rating),
			Stability:       outcome.Card.Stability,
			Difficulty:      outcome.Card.Difficulty,
			IntervalMinutes: outcome.IntervalMinutes,
			DueAt:           outcome.Card.DueAt,
		})
	}
	return out
}

// sessionToResponse converts a domain.ReviewSession to a SessionResponse.
func sessionToResponse(session *domain.ReviewSession) SessionResponse {
	return SessionResponse{
		ID:         session.ID.String(),
		DeckID:     session.DeckID.String(),
		StartedAt:  session.StartedAt,
		EndedAt:    session.EndedAt,
		GoalTotal:  session.GoalTotal,
		DoneUnique: session.DoneUnique,
	}
}

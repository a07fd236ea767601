package models

import (
	"time"
)

// UserStats is the freshly computed engagement snapshot for one user. It is
// recomputed on every evaluation and never persisted.
type UserStats struct {
	UserID        string `json:"user_id"`
	TotalUptoes   int    `json:"total_uptoes"`
	FollowerCount int    `json:"follower_count"`
}

// BadgeRecord represents one row of the shared badge registry. BadgeID is
// empty for legacy rows written by the old browser client; those are matched
// by label and backfilled on the next award.
type BadgeRecord struct {
	ID        string    `json:"id"`
	BadgeID   string    `json:"badge_id,omitempty"`
	Label     string    `json:"label"`
	Color     string    `json:"color"`
	Holders   []string  `json:"holders"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasHolder reports whether the given user already holds this badge
func (r *BadgeRecord) HasHolder(userID string) bool {
	for _, holder := range r.Holders {
		if holder == userID {
			return true
		}
	}
	return false
}

// TriggerRequest is the payload for a badge re-evaluation trigger
type TriggerRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	TriggerType string `json:"trigger_type"`
}

// FailedAward describes a single badge whose write failed during an
// evaluation; sibling awards are unaffected.
type FailedAward struct {
	BadgeID string `json:"badge_id"`
	Label   string `json:"label"`
	Error   string `json:"error"`
}

// TriggerResponse summarizes one evaluate-and-award cycle
type TriggerResponse struct {
	UserID      string        `json:"user_id"`
	TriggerType string        `json:"trigger_type"`
	Stats       UserStats     `json:"stats"`
	Awarded     []string      `json:"awarded"`
	Failures    []FailedAward `json:"failures,omitempty"`
}

// UserBadgesResponse lists the badges held by one user
type UserBadgesResponse struct {
	UserID string        `json:"user_id"`
	Badges []BadgeRecord `json:"badges"`
}

// ErrorResponse is the generic error envelope
type ErrorResponse struct {
	Error string `json:"error"`
}

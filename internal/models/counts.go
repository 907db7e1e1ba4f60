// ABOUTME: Aggregate counts and interaction records attached to prayer requests
// ABOUTME: Prayers and encouragements are written separately and tallied per request

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CountKind names one of the per-request aggregates.
type CountKind string

const (
	KindEncouragement CountKind = "encouragement"
	KindPrayer        CountKind = "prayer"
)

// CountKinds lists every aggregate the feed displays.
var CountKinds = []CountKind{KindEncouragement, KindPrayer}

// ParseCountKind validates a count kind string.
func ParseCountKind(s string) (CountKind, error) {
	switch CountKind(s) {
	case KindEncouragement, KindPrayer:
		return CountKind(s), nil
	default:
		return "", fmt.Errorf("invalid count kind %q", s)
	}
}

// Counts holds the aggregates for a single request.
type Counts struct {
	Encouragements int `json:"encouragement_count"`
	Prayers        int `json:"prayer_count"`
}

// Get returns the value for kind.
func (c Counts) Get(kind CountKind) int {
	switch kind {
	case KindEncouragement:
		return c.Encouragements
	case KindPrayer:
		return c.Prayers
	}
	return 0
}

// With returns a copy of c with kind set to n. Negative values clamp to zero.
func (c Counts) With(kind CountKind, n int) Counts {
	if n < 0 {
		n = 0
	}
	switch kind {
	case KindEncouragement:
		c.Encouragements = n
	case KindPrayer:
		c.Prayers = n
	}
	return c
}

// Prayer records that someone prayed for a request.
type Prayer struct {
	ID        string    `json:"id"`
	RequestID string    `json:"prayer_request_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPrayer creates a Prayer with a generated ID.
func NewPrayer(requestID, userID string) *Prayer {
	return &Prayer{
		ID:        uuid.New().String(),
		RequestID: requestID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}

// Encouragement is a short message left on a request.
type Encouragement struct {
	ID        string    `json:"id"`
	RequestID string    `json:"prayer_request_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEncouragement creates an Encouragement with a generated ID.
func NewEncouragement(requestID, userID, message string) *Encouragement {
	return &Encouragement{
		ID:        uuid.New().String(),
		RequestID: requestID,
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

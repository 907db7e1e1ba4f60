// ABOUTME: Request model representing a single prayer request in the feed
// ABOUTME: Tracks urgency, category, answered status, and optional author for anonymous posts

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a prayer request.
type Status string

const (
	StatusActive   Status = "active"
	StatusAnswered Status = "answered"
)

// Urgency indicates how time-sensitive a request is.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// DefaultCategory is used when a request is posted without one.
const DefaultCategory = "general"

// Request is a prayer request as it appears in the feed.
type Request struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Urgency     Urgency   `json:"urgency_level"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	AuthorID    *string   `json:"user_id,omitempty"` // nil when posted anonymously
}

// NewRequest creates an active Request with a generated ID and the current time.
func NewRequest(title, description string) *Request {
	return &Request{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Category:    DefaultCategory,
		Urgency:     UrgencyNormal,
		Status:      StatusActive,
		CreatedAt:   time.Now(),
	}
}

// IsAnonymous reports whether the request has no author attached.
func (r *Request) IsAnonymous() bool {
	return r.AuthorID == nil || *r.AuthorID == ""
}

// MarkAnswered flags the request as answered.
func (r *Request) MarkAnswered() {
	r.Status = StatusAnswered
}

// Reopen returns an answered request to the active state.
func (r *Request) Reopen() {
	r.Status = StatusActive
}

// ShortID returns the first n characters of the ID for display.
func (r *Request) ShortID(n int) string {
	if len(r.ID) <= n {
		return r.ID
	}
	return r.ID[:n]
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusAnswered:
		return StatusAnswered, nil
	default:
		return "", fmt.Errorf("invalid status %q (want active or answered)", s)
	}
}

// ParseUrgency validates an urgency string. Empty means normal.
func ParseUrgency(s string) (Urgency, error) {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case "":
		return UrgencyNormal, nil
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyUrgent:
		return u, nil
	default:
		return "", fmt.Errorf("invalid urgency %q (want low, normal, high, or urgent)", s)
	}
}

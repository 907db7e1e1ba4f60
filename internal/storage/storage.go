// ABOUTME: Storage interface and types for amenity data persistence
// ABOUTME: Defines the contract for prayer requests, prayers, encouragements, and aggregate counts

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/harper/amenity/internal/models"
)

// MinPrefixLength is the shortest ID prefix accepted by prefix lookups.
const MinPrefixLength = 6

// ErrNotFound is returned when a request does not exist.
var ErrNotFound = errors.New("not found")

// Stats represents overall statistics.
type Stats struct {
	TotalRequests  int `json:"total_requests"`
	Active         int `json:"active"`
	Answered       int `json:"answered"`
	Prayers        int `json:"prayers"`
	Encouragements int `json:"encouragements"`
}

// Store defines the storage interface for amenity data.
type Store interface {
	// Close closes the store and releases resources.
	Close() error

	// Request Operations

	// CreateRequest stores a new prayer request.
	CreateRequest(ctx context.Context, req *models.Request) error

	// GetRequest retrieves a request by ID.
	GetRequest(ctx context.Context, id string) (*models.Request, error)

	// GetRequestByPrefix finds a request by ID prefix (min 6 chars).
	GetRequestByPrefix(ctx context.Context, prefix string) (*models.Request, error)

	// ListRequests returns a page of requests, newest first.
	// A limit of zero or less returns every request after offset.
	ListRequests(ctx context.Context, limit, offset int) ([]*models.Request, error)

	// UpdateRequestStatus changes a request's status.
	UpdateRequestStatus(ctx context.Context, id string, status models.Status) error

	// DeleteRequest removes a request and its prayers and encouragements.
	DeleteRequest(ctx context.Context, id string) error

	// Interaction Operations

	// AddPrayer records a prayer for a request.
	AddPrayer(ctx context.Context, p *models.Prayer) error

	// AddEncouragement records an encouragement message for a request.
	AddEncouragement(ctx context.Context, e *models.Encouragement) error

	// ListPrayers returns prayers for a request, oldest first.
	ListPrayers(ctx context.Context, requestID string) ([]*models.Prayer, error)

	// ListEncouragements returns encouragements for a request, newest first.
	ListEncouragements(ctx context.Context, requestID string, limit int) ([]*models.Encouragement, error)

	// Aggregates

	// CountAggregate returns the number of prayers or encouragements for a request.
	CountAggregate(ctx context.Context, requestID string, kind models.CountKind) (int, error)

	// CountBatch returns counts for several requests in one call.
	// Requests with no interactions are present with a zero value.
	CountBatch(ctx context.Context, requestIDs []string, kind models.CountKind) (map[string]int, error)

	// Search performs a text search over titles and descriptions.
	Search(ctx context.Context, query string, limit int) ([]*models.Request, error)

	// Stats retrieves overall statistics.
	Stats(ctx context.Context) (*Stats, error)
}

// GetRequestByIDOrPrefix tries to get a request by exact ID first,
// then falls back to prefix matching if not found.
func GetRequestByIDOrPrefix(ctx context.Context, s Store, ref string) (*models.Request, error) {
	req, err := s.GetRequest(ctx, ref)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	req, err = s.GetRequestByPrefix(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", ref, err)
	}
	return req, nil
}

// checkPrefix validates a prefix lookup argument.
func checkPrefix(prefix string) error {
	if len(prefix) < MinPrefixLength {
		return fmt.Errorf("prefix must be at least %d characters", MinPrefixLength)
	}
	return nil
}

// pickPrefixMatch returns the single match or an ambiguity/not-found error.
func pickPrefixMatch(prefix string, matches []*models.Request) (*models.Request, error) {
	if len(matches) == 0 {
		return nil, fmt.Errorf("no request found with prefix %s: %w", prefix, ErrNotFound)
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("ambiguous prefix %s matches %d requests", prefix, len(matches))
	}
	return matches[0], nil
}

// paginate applies offset and limit to an already-sorted slice.
func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

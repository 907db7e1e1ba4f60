// ABOUTME: Data migration between amenity storage backends
// ABOUTME: Copies requests, prayers, and encouragements from source to destination store

package storage

import (
	"context"
	"fmt"
	"os"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Requests       int
	Prayers        int
	Encouragements int
}

// MigrateData copies all data from src to dst storage.
// The destination should be empty before calling this function.
func MigrateData(ctx context.Context, src, dst Store) (*MigrateSummary, error) {
	summary := &MigrateSummary{}

	requests, err := src.ListRequests(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list source requests: %w", err)
	}

	for _, req := range requests {
		if err := dst.CreateRequest(ctx, req); err != nil {
			return nil, fmt.Errorf("create request %s: %w", req.ID, err)
		}
		summary.Requests++

		if err := migrateInteractions(ctx, src, dst, req.ID, summary); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// migrateInteractions copies prayers and encouragements for a single request.
func migrateInteractions(ctx context.Context, src, dst Store, requestID string, summary *MigrateSummary) error {
	prayers, err := src.ListPrayers(ctx, requestID)
	if err != nil {
		return fmt.Errorf("list prayers for %s: %w", requestID, err)
	}
	for _, p := range prayers {
		if err := dst.AddPrayer(ctx, p); err != nil {
			return fmt.Errorf("create prayer %s: %w", p.ID, err)
		}
		summary.Prayers++
	}

	encouragements, err := src.ListEncouragements(ctx, requestID, 0)
	if err != nil {
		return fmt.Errorf("list encouragements for %s: %w", requestID, err)
	}
	for _, e := range encouragements {
		if err := dst.AddEncouragement(ctx, e); err != nil {
			return fmt.Errorf("create encouragement %s: %w", e.ID, err)
		}
		summary.Encouragements++
	}
	return nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}

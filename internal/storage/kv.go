// ABOUTME: Charm KV storage backend using the transactional Do API
// ABOUTME: Short-lived connections so several amenity processes can share one local database

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"

	"github.com/harper/amenity/internal/models"
)

const (
	// Key prefixes for KV store
	requestPrefix       = "request:"
	prayerPrefix        = "prayer:"
	encouragementPrefix = "encouragement:"

	// DefaultCharmHost is used when CHARM_HOST is unset.
	DefaultCharmHost = "charm.2389.dev"

	// KVDBName is the name of the charm kv database for amenity.
	KVDBName = "amenity"
)

// KVStore implements Store on top of Charm KV.
// It does NOT hold a persistent connection: each operation opens the
// database, performs the operation, and closes it.
type KVStore struct {
	dbName   string
	autoSync bool
}

// Compile-time check that KVStore implements Store.
var _ Store = (*KVStore)(nil)

// NewKVStore creates a KV-backed store with auto-sync enabled.
func NewKVStore() (*KVStore, error) {
	if os.Getenv("CHARM_HOST") == "" {
		os.Setenv("CHARM_HOST", DefaultCharmHost)
	}
	return &KVStore{dbName: KVDBName, autoSync: true}, nil
}

// NewKVStoreWithDBName creates a KV store against a named database.
// Use this for isolated test databases; autoSync is usually false there.
func NewKVStoreWithDBName(dbName string, autoSync bool) *KVStore {
	return &KVStore{dbName: dbName, autoSync: autoSync}
}

// doReadOnly executes fn with read-only database access.
func (s *KVStore) doReadOnly(fn func(k *kv.KV) error) error {
	return kv.DoReadOnly(s.dbName, fn)
}

// do executes fn with write access, syncing afterwards when enabled.
func (s *KVStore) do(fn func(k *kv.KV) error) error {
	return kv.Do(s.dbName, func(k *kv.KV) error {
		if err := fn(k); err != nil {
			return err
		}
		if s.autoSync {
			return k.Sync()
		}
		return nil
	})
}

// Sync manually triggers a sync with the Charm server.
func (s *KVStore) Sync() error {
	return kv.Do(s.dbName, func(k *kv.KV) error {
		return k.Sync()
	})
}

// Close is a no-op; connections close after each operation.
func (s *KVStore) Close() error {
	return nil
}

func requestKey(id string) []byte {
	return []byte(requestPrefix + id)
}

func interactionKey(prefix, requestID, id string) []byte {
	return []byte(prefix + requestID + ":" + id)
}

// scanPrefix decodes every value whose key starts with prefix.
// Corrupt values are skipped with a single warning.
func scanPrefix[T any](k *kv.KV, prefix string) ([]*T, error) {
	keys, err := k.Keys()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	out := make([]*T, 0)
	warned := false
	for _, key := range keys {
		if !strings.HasPrefix(string(key), prefix) {
			continue
		}
		data, err := k.Get(key)
		if err == nil {
			var v T
			if err = json.Unmarshal(data, &v); err == nil {
				out = append(out, &v)
				continue
			}
		}
		if !warned {
			fmt.Fprintf(os.Stderr, "Warning: some records under %q may be corrupted\n", prefix)
			warned = true
		}
	}
	return out, nil
}

// countPrefix counts keys starting with prefix without decoding values.
func countPrefix(k *kv.KV, prefix string) (int, error) {
	keys, err := k.Keys()
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}
	n := 0
	for _, key := range keys {
		if strings.HasPrefix(string(key), prefix) {
			n++
		}
	}
	return n, nil
}

func sortRequests(reqs []*models.Request) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID > reqs[j].ID
		}
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}

// Request Operations

// CreateRequest stores a new prayer request.
func (s *KVStore) CreateRequest(_ context.Context, req *models.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return s.do(func(k *kv.KV) error {
		return k.Set(requestKey(req.ID), data)
	})
}

// GetRequest retrieves a request by ID.
func (s *KVStore) GetRequest(_ context.Context, id string) (*models.Request, error) {
	var req models.Request
	err := s.doReadOnly(func(k *kv.KV) error {
		data, err := k.Get(requestKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && data == nil) {
			return fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		return json.Unmarshal(data, &req)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestByPrefix finds a request by ID prefix (min 6 chars).
func (s *KVStore) GetRequestByPrefix(_ context.Context, prefix string) (*models.Request, error) {
	if err := checkPrefix(prefix); err != nil {
		return nil, err
	}
	var matches []*models.Request
	err := s.doReadOnly(func(k *kv.KV) error {
		var err error
		matches, err = scanPrefix[models.Request](k, requestPrefix+prefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pickPrefixMatch(prefix, matches)
}

// ListRequests returns a page of requests, newest first.
func (s *KVStore) ListRequests(_ context.Context, limit, offset int) ([]*models.Request, error) {
	var reqs []*models.Request
	err := s.doReadOnly(func(k *kv.KV) error {
		var err error
		reqs, err = scanPrefix[models.Request](k, requestPrefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortRequests(reqs)
	return paginate(reqs, limit, offset), nil
}

// UpdateRequestStatus changes a request's status.
func (s *KVStore) UpdateRequestStatus(ctx context.Context, id string, status models.Status) error {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	req.Status = status
	return s.CreateRequest(ctx, req) // overwrite
}

// DeleteRequest removes a request and all its interactions (cascade).
func (s *KVStore) DeleteRequest(ctx context.Context, id string) error {
	if _, err := s.GetRequest(ctx, id); err != nil {
		return err
	}
	return s.do(func(k *kv.KV) error {
		keys, err := k.Keys()
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}
		if err := deleteKeys(interactionKeys(keys, id), k.Delete); err != nil {
			return fmt.Errorf("delete interactions: %w", err)
		}
		if err := k.Delete(requestKey(id)); err != nil {
			return fmt.Errorf("delete request: %w", err)
		}
		return nil
	})
}

// interactionKeys picks the prayer and encouragement keys belonging to id.
func interactionKeys(keys [][]byte, id string) [][]byte {
	var out [][]byte
	for _, key := range keys {
		ks := string(key)
		if strings.HasPrefix(ks, prayerPrefix+id+":") || strings.HasPrefix(ks, encouragementPrefix+id+":") {
			out = append(out, key)
		}
	}
	return out
}

// deleteKeys stops at the first failure, leaving the request itself in place.
func deleteKeys(keys [][]byte, del func([]byte) error) error {
	for _, key := range keys {
		if err := del(key); err != nil {
			return fmt.Errorf("key %s: %w", key, err)
		}
	}
	return nil
}

// Interaction Operations

// AddPrayer records a prayer for a request.
func (s *KVStore) AddPrayer(_ context.Context, p *models.Prayer) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prayer: %w", err)
	}
	return s.do(func(k *kv.KV) error {
		return k.Set(interactionKey(prayerPrefix, p.RequestID, p.ID), data)
	})
}

// AddEncouragement records an encouragement message for a request.
func (s *KVStore) AddEncouragement(_ context.Context, e *models.Encouragement) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal encouragement: %w", err)
	}
	return s.do(func(k *kv.KV) error {
		return k.Set(interactionKey(encouragementPrefix, e.RequestID, e.ID), data)
	})
}

// ListPrayers returns prayers for a request, oldest first.
func (s *KVStore) ListPrayers(_ context.Context, requestID string) ([]*models.Prayer, error) {
	var prayers []*models.Prayer
	err := s.doReadOnly(func(k *kv.KV) error {
		var err error
		prayers, err = scanPrefix[models.Prayer](k, prayerPrefix+requestID+":")
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(prayers, func(i, j int) bool {
		return prayers[i].CreatedAt.Before(prayers[j].CreatedAt)
	})
	return prayers, nil
}

// ListEncouragements returns encouragements for a request, newest first.
func (s *KVStore) ListEncouragements(_ context.Context, requestID string, limit int) ([]*models.Encouragement, error) {
	var out []*models.Encouragement
	err := s.doReadOnly(func(k *kv.KV) error {
		var err error
		out, err = scanPrefix[models.Encouragement](k, encouragementPrefix+requestID+":")
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, limit, 0), nil
}

func kindPrefix(kind models.CountKind) (string, error) {
	switch kind {
	case models.KindPrayer:
		return prayerPrefix, nil
	case models.KindEncouragement:
		return encouragementPrefix, nil
	default:
		return "", fmt.Errorf("unknown count kind %q", kind)
	}
}

// CountAggregate returns the number of prayers or encouragements for a request.
func (s *KVStore) CountAggregate(_ context.Context, requestID string, kind models.CountKind) (int, error) {
	prefix, err := kindPrefix(kind)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.doReadOnly(func(k *kv.KV) error {
		var err error
		n, err = countPrefix(k, prefix+requestID+":")
		return err
	})
	return n, err
}

// CountBatch counts interactions for several requests in one key scan.
func (s *KVStore) CountBatch(_ context.Context, requestIDs []string, kind models.CountKind) (map[string]int, error) {
	prefix, err := kindPrefix(kind)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(requestIDs))
	for _, id := range requestIDs {
		counts[id] = 0
	}
	if len(requestIDs) == 0 {
		return counts, nil
	}

	err = s.doReadOnly(func(k *kv.KV) error {
		keys, err := k.Keys()
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}
		for _, key := range keys {
			rest, ok := strings.CutPrefix(string(key), prefix)
			if !ok {
				continue
			}
			reqID, _, ok := strings.Cut(rest, ":")
			if !ok {
				continue
			}
			if _, wanted := counts[reqID]; wanted {
				counts[reqID]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Search does a case-insensitive substring match on title and description.
func (s *KVStore) Search(ctx context.Context, query string, limit int) ([]*models.Request, error) {
	all, err := s.ListRequests(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	matches := make([]*models.Request, 0)
	for _, req := range all {
		if strings.Contains(strings.ToLower(req.Title), q) || strings.Contains(strings.ToLower(req.Description), q) {
			matches = append(matches, req)
		}
	}
	return paginate(matches, limit, 0), nil
}

// Stats retrieves overall statistics.
func (s *KVStore) Stats(ctx context.Context) (*Stats, error) {
	reqs, err := s.ListRequests(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	st := &Stats{TotalRequests: len(reqs)}
	for _, req := range reqs {
		if req.Status == models.StatusAnswered {
			st.Answered++
		} else {
			st.Active++
		}
	}

	err = s.doReadOnly(func(k *kv.KV) error {
		var err error
		if st.Prayers, err = countPrefix(k, prayerPrefix); err != nil {
			return err
		}
		st.Encouragements, err = countPrefix(k, encouragementPrefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

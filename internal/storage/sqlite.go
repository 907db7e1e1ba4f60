// ABOUTME: SQLite storage implementation using modernc.org/sqlite (pure Go)
// ABOUTME: Provides request and interaction persistence with FTS5 full-text search

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/harper/amenity/internal/models"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite storage instance.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Use 0700 (owner only) - prayer requests are personal data
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS prayer_requests (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			category TEXT DEFAULT 'general',
			urgency_level TEXT DEFAULT 'normal',
			status TEXT DEFAULT 'active',
			user_id TEXT,
			created_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_requests_created_at ON prayer_requests(created_at);

		CREATE TABLE IF NOT EXISTS prayers (
			id TEXT PRIMARY KEY,
			prayer_request_id TEXT NOT NULL REFERENCES prayer_requests(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_prayers_request ON prayers(prayer_request_id);

		CREATE TABLE IF NOT EXISTS encouragements (
			id TEXT PRIMARY KEY,
			prayer_request_id TEXT NOT NULL REFERENCES prayer_requests(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_encouragements_request ON encouragements(prayer_request_id);

		-- FTS5 for request search
		CREATE VIRTUAL TABLE IF NOT EXISTS requests_fts USING fts5(
			title,
			description,
			content=prayer_requests,
			content_rowid=rowid
		);

		-- Triggers to keep FTS in sync
		CREATE TRIGGER IF NOT EXISTS requests_ai AFTER INSERT ON prayer_requests BEGIN
			INSERT INTO requests_fts(rowid, title, description)
			VALUES (new.rowid, new.title, new.description);
		END;

		CREATE TRIGGER IF NOT EXISTS requests_ad AFTER DELETE ON prayer_requests BEGIN
			INSERT INTO requests_fts(requests_fts, rowid, title, description)
			VALUES ('delete', old.rowid, old.title, old.description);
		END;

		CREATE TRIGGER IF NOT EXISTS requests_au AFTER UPDATE ON prayer_requests BEGIN
			INSERT INTO requests_fts(requests_fts, rowid, title, description)
			VALUES ('delete', old.rowid, old.title, old.description);
			INSERT INTO requests_fts(rowid, title, description)
			VALUES (new.rowid, new.title, new.description);
		END;
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const requestColumns = `id, title, description, category, urgency_level, status, user_id, created_at`

// Request Operations

// CreateRequest stores a new prayer request.
func (s *SQLiteStore) CreateRequest(ctx context.Context, req *models.Request) error {
	query := `
		INSERT INTO prayer_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		req.ID, req.Title, req.Description, req.Category,
		string(req.Urgency), string(req.Status), req.AuthorID, req.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// GetRequest retrieves a request by ID.
func (s *SQLiteStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM prayer_requests WHERE id = ?`
	req, err := scanRequest(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return req, err
}

// GetRequestByPrefix finds a request by ID prefix (min 6 chars).
func (s *SQLiteStore) GetRequestByPrefix(ctx context.Context, prefix string) (*models.Request, error) {
	if err := checkPrefix(prefix); err != nil {
		return nil, err
	}

	query := `SELECT ` + requestColumns + ` FROM prayer_requests WHERE id LIKE ? LIMIT 2`
	matches, err := s.queryRequests(ctx, query, prefix+"%")
	if err != nil {
		return nil, err
	}
	return pickPrefixMatch(prefix, matches)
}

// ListRequests returns a page of requests, newest first.
func (s *SQLiteStore) ListRequests(ctx context.Context, limit, offset int) ([]*models.Request, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT ` + requestColumns + ` FROM prayer_requests
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return s.queryRequests(ctx, query, limit, offset)
}

// UpdateRequestStatus changes a request's status.
func (s *SQLiteStore) UpdateRequestStatus(ctx context.Context, id string, status models.Status) error {
	result, err := s.db.ExecContext(ctx, `UPDATE prayer_requests SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteRequest removes a request and its interactions (cascade).
func (s *SQLiteStore) DeleteRequest(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM prayer_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return nil
}

// Interaction Operations

// AddPrayer records a prayer for a request.
func (s *SQLiteStore) AddPrayer(ctx context.Context, p *models.Prayer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prayers (id, prayer_request_id, user_id, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.RequestID, p.UserID, p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert prayer: %w", err)
	}
	return nil
}

// AddEncouragement records an encouragement message for a request.
func (s *SQLiteStore) AddEncouragement(ctx context.Context, e *models.Encouragement) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO encouragements (id, prayer_request_id, user_id, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.RequestID, e.UserID, e.Message, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert encouragement: %w", err)
	}
	return nil
}

// ListPrayers returns prayers for a request, oldest first.
func (s *SQLiteStore) ListPrayers(ctx context.Context, requestID string) ([]*models.Prayer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prayer_request_id, user_id, created_at FROM prayers WHERE prayer_request_id = ? ORDER BY created_at ASC`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("query prayers: %w", err)
	}
	defer rows.Close()

	var prayers []*models.Prayer
	for rows.Next() {
		var p models.Prayer
		if err := rows.Scan(&p.ID, &p.RequestID, &p.UserID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prayer: %w", err)
		}
		prayers = append(prayers, &p)
	}
	return prayers, rows.Err()
}

// ListEncouragements returns encouragements for a request, newest first.
func (s *SQLiteStore) ListEncouragements(ctx context.Context, requestID string, limit int) ([]*models.Encouragement, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prayer_request_id, user_id, message, created_at FROM encouragements
		WHERE prayer_request_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, requestID, limit)
	if err != nil {
		return nil, fmt.Errorf("query encouragements: %w", err)
	}
	defer rows.Close()

	var out []*models.Encouragement
	for rows.Next() {
		var e models.Encouragement
		if err := rows.Scan(&e.ID, &e.RequestID, &e.UserID, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan encouragement: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Aggregates

// countTable maps a count kind to its backing table.
func countTable(kind models.CountKind) (string, error) {
	switch kind {
	case models.KindPrayer:
		return "prayers", nil
	case models.KindEncouragement:
		return "encouragements", nil
	default:
		return "", fmt.Errorf("unknown count kind %q", kind)
	}
}

// CountAggregate returns the number of prayers or encouragements for a request.
func (s *SQLiteStore) CountAggregate(ctx context.Context, requestID string, kind models.CountKind) (int, error) {
	table, err := countTable(kind)
	if err != nil {
		return 0, err
	}
	var n int
	query := `SELECT COUNT(*) FROM ` + table + ` WHERE prayer_request_id = ?`
	if err := s.db.QueryRowContext(ctx, query, requestID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// CountBatch returns counts for several requests with a single grouped query.
func (s *SQLiteStore) CountBatch(ctx context.Context, requestIDs []string, kind models.CountKind) (map[string]int, error) {
	table, err := countTable(kind)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(requestIDs))
	if len(requestIDs) == 0 {
		return counts, nil
	}

	args := make([]any, len(requestIDs))
	for i, id := range requestIDs {
		args[i] = id
		counts[id] = 0
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(requestIDs)), ",")
	query := `
		SELECT prayer_request_id, COUNT(*) FROM ` + table + `
		WHERE prayer_request_id IN (` + placeholders + `)
		GROUP BY prayer_request_id
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count %s batch: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Search performs full-text search on request titles and descriptions.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]*models.Request, error) {
	if limit <= 0 {
		limit = -1
	}
	sqlQuery := `
		SELECT r.id, r.title, r.description, r.category, r.urgency_level, r.status, r.user_id, r.created_at
		FROM prayer_requests r
		INNER JOIN requests_fts fts ON r.rowid = fts.rowid
		WHERE requests_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`
	requests, err := s.queryRequests(ctx, sqlQuery, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search requests: %w", err)
	}
	return requests, nil
}

// Stats retrieves overall statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	query := `
		SELECT
			(SELECT COUNT(*) FROM prayer_requests),
			(SELECT COUNT(*) FROM prayer_requests WHERE status = 'active'),
			(SELECT COUNT(*) FROM prayer_requests WHERE status = 'answered'),
			(SELECT COUNT(*) FROM prayers),
			(SELECT COUNT(*) FROM encouragements)
	`
	if err := s.db.QueryRowContext(ctx, query).Scan(
		&st.TotalRequests, &st.Active, &st.Answered, &st.Prayers, &st.Encouragements,
	); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return &st, nil
}

// Compact performs database maintenance (VACUUM).
func (s *SQLiteStore) Compact() error {
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// Helper functions

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var req models.Request
	var urgency, status string
	var author sql.NullString
	if err := row.Scan(
		&req.ID, &req.Title, &req.Description, &req.Category,
		&urgency, &status, &author, &req.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan request: %w", err)
	}
	req.Urgency = models.Urgency(urgency)
	req.Status = models.Status(status)
	if author.Valid {
		req.AuthorID = &author.String
	}
	return &req, nil
}

func (s *SQLiteStore) queryRequests(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

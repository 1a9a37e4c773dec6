// Package cache persists Road-Graph Matrix Builder output (internal/graph)
// across process runs so a repeated solve over the same scenario doesn't
// repay the full N² Dijkstra fan-out every time. Grounded on the teacher's
// internal/sqlite/store.go + internal/sqlite/distance_cache.go: same
// sql.DB-over-modernc.org/sqlite setup, same RWMutex-guarded Store, same
// prepared-statement batch insert inside a transaction, retargeted from
// per-coordinate-pair OSRM lookups to per-fingerprint whole-matrix blobs.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/homecare/carelinesolver/internal/model"
)

// Store is a SQLite-backed cache of previously-built travel-time/distance
// matrices, keyed by a Fingerprint of the scenario that produced them.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates (or attaches to) a SQLite cache database at dbPath.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	log.Printf("[CACHE] opening matrix cache at: %s", dbPath)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);
	INSERT OR IGNORE INTO schema_version (version) VALUES (1);

	CREATE TABLE IF NOT EXISTS matrix_cache (
		fingerprint TEXT NOT NULL,
		origin_idx  INTEGER NOT NULL,
		dest_idx    INTEGER NOT NULL,
		travel_s    INTEGER NOT NULL,
		distance_m  INTEGER NOT NULL,
		PRIMARY KEY (fingerprint, origin_idx, dest_idx)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Fingerprint derives a stable cache key from the depot+visit coordinates
// and the road-graph edge set, so two different scenarios never share a
// cached matrix even if they happen to produce the same dimensions.
func Fingerprint(depot model.Coordinates, visits []model.Coordinates, g *model.RoadGraph) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(depot)
	_ = enc.Encode(visits)
	_ = enc.Encode(g.Nodes)
	_ = enc.Encode(g.Edges)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached matrix for fingerprint, or ok=false if no (or a
// partial) entry is present — a partial hit is treated as a miss, since a
// matrix is only useful to the solver as a complete NxN whole.
func (s *Store) Get(ctx context.Context, fingerprint string, n int) (model.Matrices, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := n + 1
	T := make([][]int, size)
	D := make([][]int, size)
	for i := range T {
		T[i] = make([]int, size)
		D[i] = make([]int, size)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT origin_idx, dest_idx, travel_s, distance_m FROM matrix_cache WHERE fingerprint = ?`,
		fingerprint)
	if err != nil {
		return model.Matrices{}, false, fmt.Errorf("failed to query matrix cache: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var i, j, travel, dist int
		if err := rows.Scan(&i, &j, &travel, &dist); err != nil {
			return model.Matrices{}, false, fmt.Errorf("failed to scan matrix cache row: %w", err)
		}
		if i >= size || j >= size {
			continue
		}
		T[i][j] = travel
		D[i][j] = dist
		count++
	}
	if err := rows.Err(); err != nil {
		return model.Matrices{}, false, fmt.Errorf("failed to iterate matrix cache rows: %w", err)
	}

	if count != size*size {
		return model.Matrices{}, false, nil
	}
	return model.Matrices{T: T, D: D}, true, nil
}

// Put stores m under fingerprint, replacing any prior entry, inside a
// single transaction so a concurrent Get never observes a half-written
// matrix.
func (s *Store) Put(ctx context.Context, fingerprint string, m model.Matrices) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM matrix_cache WHERE fingerprint = ?`, fingerprint); err != nil {
		return fmt.Errorf("failed to clear previous matrix cache entry: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matrix_cache (fingerprint, origin_idx, dest_idx, travel_s, distance_m) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	size := m.N() + 1
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if _, err := stmt.ExecContext(ctx, fingerprint, i, j, m.T[i][j], m.D[i][j]); err != nil {
				return fmt.Errorf("failed to insert matrix cache entry: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Clear removes every cached matrix.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM matrix_cache")
	if err != nil {
		return fmt.Errorf("failed to clear matrix cache: %w", err)
	}
	return nil
}

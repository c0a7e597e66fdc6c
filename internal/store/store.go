// Package store is the durable block repository. One SQLite table
// keyed by (p, q, x, y, z) with insert-or-replace semantics; the
// rowid doubles as the monotonic cursor clients use for incremental
// chunk hydration.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Row is one stored block as returned by ScanChunk.
type Row struct {
	RowID      int64
	X, Y, Z, W int
}

// Store wraps the database handle and the currently open transaction.
// All writes accumulate in the transaction until Commit. The store is
// single-owner: only the model loop may touch it, so no locking here.
type Store struct {
	db *sql.DB
	tx *sql.Tx
}

var schema = []string{
	`create table if not exists block (
		p int not null,
		q int not null,
		x int not null,
		y int not null,
		z int not null,
		w int not null
	);`,
	`create index if not exists block_xyz_idx on block (x, y, z);`,
	`create unique index if not exists block_pqxyz_idx on block (p, q, x, y, z);`,
}

// Open opens or creates the block database at path and leaves a fresh
// transaction pending. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection keeps the pending transaction and all scans
	// on the same SQLite handle (and keeps ":memory:" a single db).
	db.SetMaxOpenConns(1)

	for _, q := range schema {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: create schema: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.begin(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	s.tx = tx
	return nil
}

// Upsert inserts or replaces the row keyed by (p, q, x, y, z). A
// replace assigns a fresh rowid, which is what keeps the chunk cursor
// monotonic across overwrites.
func (s *Store) Upsert(p, q, x, y, z, w int) error {
	_, err := s.tx.Exec(
		`insert or replace into block (p, q, x, y, z, w) values (?, ?, ?, ?, ?, ?);`,
		p, q, x, y, z, w,
	)
	if err != nil {
		return fmt.Errorf("store: upsert (%d,%d,%d,%d,%d): %w", p, q, x, y, z, err)
	}
	return nil
}

// ScanChunk returns the rows of chunk (p, q) with rowid greater than
// after. Pending writes in the open transaction are visible.
func (s *Store) ScanChunk(p, q int, after int64) ([]Row, error) {
	rows, err := s.tx.Query(
		`select rowid, x, y, z, w from block where p = ? and q = ? and rowid > ?;`,
		p, q, after,
	)
	if err != nil {
		return nil, fmt.Errorf("store: scan chunk (%d,%d): %w", p, q, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.RowID, &r.X, &r.Y, &r.Z, &r.W); err != nil {
			return nil, fmt.Errorf("store: scan chunk (%d,%d): %w", p, q, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scan chunk (%d,%d): %w", p, q, err)
	}
	return out, nil
}

// Commit flushes the pending transaction durably and opens the next one.
func (s *Store) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return s.begin()
}

// Close commits any pending writes and releases the database.
func (s *Store) Close() error {
	cerr := s.tx.Commit()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	if cerr != nil {
		return fmt.Errorf("store: final commit: %w", cerr)
	}
	return nil
}

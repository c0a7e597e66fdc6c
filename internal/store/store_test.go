package store

import (
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndScan(t *testing.T) {
	s := openTemp(t)

	assert.NilError(t, s.Upsert(0, 0, 16, 50, 0, 5))
	assert.NilError(t, s.Upsert(0, 0, 17, 50, 0, 7))

	rows, err := s.ScanChunk(0, 0, 0)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)

	rows, err = s.ScanChunk(1, 0, 0)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 0)
}

func TestUpsertReplaces(t *testing.T) {
	s := openTemp(t)

	assert.NilError(t, s.Upsert(0, 0, 16, 50, 0, 5))
	assert.NilError(t, s.Upsert(0, 0, 16, 50, 0, 9))

	rows, err := s.ScanChunk(0, 0, 0)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].W, 9)
}

func TestScanCursor(t *testing.T) {
	s := openTemp(t)

	assert.NilError(t, s.Upsert(0, 0, 1, 50, 1, 1))
	assert.NilError(t, s.Upsert(0, 0, 2, 50, 2, 2))

	rows, err := s.ScanChunk(0, 0, 0)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	var maxID int64
	for _, r := range rows {
		if r.RowID > maxID {
			maxID = r.RowID
		}
	}
	assert.Assert(t, maxID > 0)

	// Replaying the cursor returns nothing new.
	rows, err = s.ScanChunk(0, 0, maxID)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 0)

	// One more edit is visible past the cursor, with a larger rowid.
	assert.NilError(t, s.Upsert(0, 0, 3, 50, 3, 3))
	rows, err = s.ScanChunk(0, 0, maxID)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].X, 3)
	assert.Assert(t, rows[0].RowID > maxID)
}

func TestReplaceKeepsCursorMonotonic(t *testing.T) {
	s := openTemp(t)

	assert.NilError(t, s.Upsert(0, 0, 1, 50, 1, 1))
	rows, err := s.ScanChunk(0, 0, 0)
	assert.NilError(t, err)
	first := rows[0].RowID

	// Overwriting the same key must surface the row past the old cursor.
	assert.NilError(t, s.Upsert(0, 0, 1, 50, 1, 4))
	rows, err = s.ScanChunk(0, 0, first)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].W, 4)
	assert.Assert(t, rows[0].RowID > first)
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "craft.db")

	s, err := Open(path)
	assert.NilError(t, err)
	assert.NilError(t, s.Upsert(0, 0, 16, 50, 0, 5))
	assert.NilError(t, s.Commit())
	assert.NilError(t, s.Close())

	s, err = Open(path)
	assert.NilError(t, err)
	defer s.Close()

	rows, err := s.ScanChunk(0, 0, 0)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].W, 5)
}

func TestCloseCommitsPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "craft.db")

	s, err := Open(path)
	assert.NilError(t, err)
	assert.NilError(t, s.Upsert(-1, -1, -1, 20, -1, 3))
	assert.NilError(t, s.Close())

	s, err = Open(path)
	assert.NilError(t, err)
	defer s.Close()

	rows, err := s.ScanChunk(-1, -1, 0)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
}

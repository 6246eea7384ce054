package valuation

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE portfolio_values (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id       INTEGER NOT NULL,
			total_value   REAL NOT NULL,
			calculated_at TEXT NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func testSnapshotRepo(t *testing.T) (*SnapshotRepository, *sql.DB) {
	db := setupTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewSnapshotRepository(db, log), db
}

func TestLatest_NilWithoutSnapshots(t *testing.T) {
	repo, db := testSnapshotRepo(t)
	defer db.Close()

	snap, err := repo.Latest(1)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestInsertAndLatest(t *testing.T) {
	repo, db := testSnapshotRepo(t)
	defer db.Close()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, value := range []float64{1000, 1100, 1050} {
		_, err := repo.Insert(1, value, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	snap, err := repo.Latest(1)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1050.0, snap.TotalValue)
	assert.True(t, snap.CalculatedAt.Equal(base.Add(2*time.Hour)))
}

func TestRange_BoundsAreInclusive(t *testing.T) {
	repo, db := testSnapshotRepo(t)
	defer db.Close()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := repo.Insert(1, float64(1000+i), base.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 3)
	snaps, err := repo.Range(1, &from, &to)
	require.NoError(t, err)

	require.Len(t, snaps, 3)
	assert.Equal(t, 1001.0, snaps[0].TotalValue)
	assert.Equal(t, 1003.0, snaps[2].TotalValue)
}

func TestRange_NilBoundsReturnEverythingAscending(t *testing.T) {
	repo, db := testSnapshotRepo(t)
	defer db.Close()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	// Inserted out of order; the query must sort by time
	_, err := repo.Insert(1, 1002, base.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = repo.Insert(1, 1000, base)
	require.NoError(t, err)
	_, err = repo.Insert(1, 1001, base.Add(time.Hour))
	require.NoError(t, err)

	snaps, err := repo.Range(1, nil, nil)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, 1000.0, snaps[0].TotalValue)
	assert.Equal(t, 1002.0, snaps[2].TotalValue)
}

func TestRange_ScopedToUser(t *testing.T) {
	repo, db := testSnapshotRepo(t)
	defer db.Close()

	now := time.Now().UTC()
	_, err := repo.Insert(1, 1000, now)
	require.NoError(t, err)
	_, err = repo.Insert(2, 2000, now)
	require.NoError(t, err)

	snaps, err := repo.Range(1, nil, nil)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 1000.0, snaps[0].TotalValue)
}

func TestLastKRecords_NewestSelectionAscendingOrder(t *testing.T) {
	repo, db := testSnapshotRepo(t)
	defer db.Close()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		_, err := repo.Insert(1, float64(1000+i), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	snaps, err := repo.LastKRecords(1, 3)
	require.NoError(t, err)

	// The 3 newest records, re-sorted oldest first
	require.Len(t, snaps, 3)
	assert.Equal(t, 1007.0, snaps[0].TotalValue)
	assert.Equal(t, 1008.0, snaps[1].TotalValue)
	assert.Equal(t, 1009.0, snaps[2].TotalValue)
}

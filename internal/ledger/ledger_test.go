package ledger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadadeltub/green-smart-pedal/internal/ledger"
	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

func testOpen(t testing.TB, path string) *ledger.Ledger {
	l, err := ledger.OpenOrCreate(path, log2.NewTest(t, log2.LDebug))
	require.NoError(t, err)
	return l
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "points.xlsx")
	l := testOpen(t, path)

	cases := []struct {
		card   string
		points int
	}{
		{"0006296170", 0},
		{"0001945121", 7},
		{"card-with-dash", 100500},
	}
	for _, c := range cases {
		require.NoError(t, l.Upsert(c.card, c.points))
		p, found, err := l.Find(c.card)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, c.points, p)
	}
}

func TestIdempotentCreate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "points.xlsx")
	l1 := testOpen(t, path)
	require.NoError(t, l1.Upsert("X1", 5))
	require.NoError(t, l1.Close())

	l2 := testOpen(t, path)
	p, found, err := l2.Find("X1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 5, p)
}

func TestUnknownCardIsNotZero(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "points.xlsx")
	l := testOpen(t, path)
	require.NoError(t, l.Upsert("zero-card", 0))

	p, found, err := l.Find("zero-card")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0, p)

	_, found, err = l.Find("never-seen")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpsertOverwritesInPlace(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "points.xlsx")
	l := testOpen(t, path)
	require.NoError(t, l.Upsert("X1", 5))
	require.NoError(t, l.Upsert("X2", 9))
	require.NoError(t, l.Upsert("X1", 7))

	all, err := l.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, [2]string{"X1", "7"}, all[0])
	assert.Equal(t, [2]string{"X2", "9"}, all[1])
}

func TestFindTrimsWhitespace(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "points.xlsx")
	l := testOpen(t, path)
	require.NoError(t, l.Upsert("  X1  ", 3))

	p, found, err := l.Find("X1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, p)

	// no case folding
	_, found, err = l.Find("x1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOpenCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "garbage.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a spreadsheet"), 0o644))

	_, err := ledger.OpenOrCreate(path, log2.NewTest(t, log2.LDebug))
	require.Error(t, err)
	assert.True(t, types.IsStorageError(err))
}

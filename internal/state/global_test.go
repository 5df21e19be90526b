package state_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	state_new "github.com/ahmadadeltub/green-smart-pedal/internal/state/new"
)

func TestRecoverSession(t *testing.T) {
	t.Parallel()
	conf := fmt.Sprintf(`persist { root = "%s" }`, t.TempDir())
	_, g := state_new.NewTestContext(t, "", conf)
	require.True(t, g.Journal.Enabled())
	require.NoError(t, g.Journal.Store("R5", 4))

	g.RecoverSession()

	l, err := g.LedgerStore()
	require.NoError(t, err)
	points, found, err := l.Find("R5")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4, points)

	// journal cleared, second boot does nothing
	_, _, ok, err := g.Journal.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecoverSessionEmptyJournal(t *testing.T) {
	t.Parallel()
	conf := fmt.Sprintf(`persist { root = "%s" }`, t.TempDir())
	_, g := state_new.NewTestContext(t, "", conf)

	g.RecoverSession()

	l, err := g.LedgerStore()
	require.NoError(t, err)
	rows, err := l.All()
	require.NoError(t, err)
	assert.Len(t, rows, 0)
}

func TestRecoverSessionDisabled(t *testing.T) {
	t.Parallel()
	_, g := state_new.NewTestContext(t, "", "")
	assert.False(t, g.Journal.Enabled())
	g.RecoverSession() // must not panic or touch the ledger
	l, err := g.LedgerStore()
	require.NoError(t, err)
	rows, err := l.All()
	require.NoError(t, err)
	assert.Len(t, rows, 0)
}

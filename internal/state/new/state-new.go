// Bootstrap helpers shared by main and tests.
package state_new

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/temoto/alive/v2"

	"github.com/ahmadadeltub/green-smart-pedal/internal/state"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

func NewContext(log *log2.Log) (context.Context, *state.Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &state.Global{
		Alive: alive.NewAlive(),
		Log:   log,
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, state.ContextKey, g)

	return ctx, g
}

func NewTestContext(t testing.TB, buildVersion string, confString string) (context.Context, *state.Global) {
	fs := state.NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	var log *log2.Log
	if os.Getenv("kiosk_test_log_stderr") == "1" {
		log = log2.NewStderr(log2.LDebug) // useful with panics
	} else {
		log = log2.NewTest(t, log2.LDebug)
	}
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log)
	g.BuildVersion = buildVersion

	cfg := state.MustReadConfig(log, fs, "test-inline")
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger.xlsx")
	}
	g.MustInit(ctx, cfg)

	return ctx, g
}

package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"

	"github.com/ahmadadeltub/green-smart-pedal/internal/ledger"
	"github.com/ahmadadeltub/green-smart-pedal/internal/persist"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

const ContextKey = "run/state-global"

const defaultLedgerPath = "./green-points.xlsx"

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Config       *Config
	Hardware     hardware // hardware.go
	Journal      *persist.Journal
	Log          *log2.Log

	ledger struct {
		sync.Mutex
		store *ledger.Ledger
	}

	_copy_guard sync.Mutex //nolint:unused
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If Init fails, consider Global is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg

	g.Log.Infof("build version=%s", g.BuildVersion)

	if g.Config.Ledger.Path == "" {
		g.Config.Ledger.Path = defaultLedgerPath
		g.Log.Errorf("config: ledger.path=empty changed=%s", g.Config.Ledger.Path)
	}

	g.Journal = new(persist.Journal)
	if err := g.Journal.Init(g.Config.Persist.Root, g.Log); err != nil {
		return errors.Annotate(err, "journal init")
	}

	// Ledger open is retried on demand; a bad disk at boot must not stop
	// the session loop, only flag it.
	if _, err := g.LedgerStore(); err != nil {
		g.Log.Error(errors.Annotate(err, "ledger open at boot"))
	}

	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

// LedgerStore opens the backing file on first use and caches it.
// Errors are returned fresh on every call so a replaced SD card or fixed
// permissions recover without restart.
func (g *Global) LedgerStore() (*ledger.Ledger, error) {
	g.ledger.Lock()
	defer g.ledger.Unlock()
	if g.ledger.store != nil {
		return g.ledger.store, nil
	}
	l, err := ledger.OpenOrCreate(g.Config.Ledger.Path, g.Log)
	if err != nil {
		return nil, errors.Trace(err)
	}
	g.ledger.store = l
	return l, nil
}

// RecoverSession flushes an interrupted session's journal into the
// ledger. Called once at boot, before the session loop starts.
func (g *Global) RecoverSession() {
	card, count, ok, err := g.Journal.Load()
	if err != nil {
		g.Log.Error(errors.Annotate(err, "session recovery"))
		return
	}
	if !ok {
		return
	}
	l, err := g.LedgerStore()
	if err == nil {
		err = l.Upsert(card, count)
	}
	if err != nil {
		// journal kept, next boot retries
		g.Log.Error(errors.Annotatef(err, "session recovery card=%s count=%d", card, count))
		return
	}
	if err = g.Journal.Clear(); err != nil {
		g.Log.Error(err)
	}
	g.Log.Infof("session recovered card=%s count=%d", card, count)
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(err)
	}
}

func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Log.Fatal(err)
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}

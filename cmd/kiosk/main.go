// Pedal kiosk entry point. Reads config, acquires hardware, recovers an
// interrupted session, runs the session loop until SIGTERM.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"

	"github.com/ahmadadeltub/green-smart-pedal/internal/state"
	state_new "github.com/ahmadadeltub/green-smart-pedal/internal/state/new"
	"github.com/ahmadadeltub/green-smart-pedal/internal/ui"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

var BuildVersion string = "unknown" // set by ldflags -X

func main() {
	flagConfig := flag.String("config", "kiosk.hcl", "")
	flagVersion := flag.Bool("version", false, "print build version and exit")
	flag.Parse()
	if *flagVersion {
		fmt.Printf("green-smart-pedal %s\n", BuildVersion)
		return
	}

	log := log2.NewStderr(log2.LDebug)
	log.SetFlags(log2.LInteractiveFlags)
	if sdnotify(log, daemon.SdNotifyReady) {
		// under systemd timestamps come from the journal
		log.SetFlags(log2.LServiceFlags)
	}
	log.Debugf("hello")

	ctx, g := state_new.NewContext(log)
	g.BuildVersion = BuildVersion

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	g.MustInit(ctx, config)
	log.Debugf("config=%+v", config)

	if err := g.InitHardware(ctx); err != nil {
		g.Fatal(errors.Annotate(err, "hardware init"))
	}
	defer g.ReleaseHardware()

	// a crash mid-session must not lose counted pedals
	g.RecoverSession()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Infof("signal=%v", sig)
		sdnotify(log, daemon.SdNotifyStopping)
		g.Alive.Stop()
	}()

	uisys := &ui.UI{}
	if err := uisys.Init(ctx); err != nil {
		g.Fatal(errors.Annotate(err, "ui init"))
	}
	log.Infof("init complete, running")
	uisys.Loop(ctx)

	if !g.StopWait(5 * time.Second) {
		log.Errorf("shutdown timeout")
	}
	log.Infof("goodbye")
}

func sdnotify(log *log2.Log, s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal(errors.Annotate(err, "sdnotify"))
	}
	return ok
}

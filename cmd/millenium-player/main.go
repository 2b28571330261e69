// millenium-player is the CLI entry point for the playback engine,
// wiring the message bus, player thread, playlist controller, and IPC
// server together the same way the teacher's cmd/main.go parses flags
// and drives a single long-running loop (spec.md §6).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jdisanti/millenium-player-sub000/internal/events"
	"github.com/jdisanti/millenium-player-sub000/internal/ipc"
	"github.com/jdisanti/millenium-player-sub000/internal/player"
	"github.com/jdisanti/millenium-player-sub000/internal/playlist"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("millenium-player: %v", err)
	}
}

func run(args []string) error {
	mode, rest := splitSubcommand(args)

	switch mode {
	case "library":
		return runLibrary(rest)
	default:
		// "simple" is the default mode; an unrecognized leading
		// argument falls back to being treated as a simple-mode
		// location, per spec.md §6.
		return runSimple(rest)
	}
}

// splitSubcommand reports "library" only when args[0] is exactly that
// literal; anything else (including an option like "-foo" or a bare
// location) stays in rest for simple mode to consume.
func splitSubcommand(args []string) (string, []string) {
	if len(args) > 0 && args[0] == "library" {
		return "library", args[1:]
	}
	if len(args) > 0 && args[0] == "simple" {
		return "simple", args[1:]
	}
	return "simple", args
}

func runSimple(args []string) error {
	fs := flag.NewFlagSet("simple", flag.ContinueOnError)
	addr := fs.String("listen", "127.0.0.1:8787", "address for the IPC HTTP server")
	assets := fs.String("assets", "", "directory to serve UI assets from")
	if err := fs.Parse(args); err != nil {
		return err
	}

	engine, err := newEngine(*addr, *assets)
	if err != nil {
		return err
	}
	if fs.NArg() > 0 {
		engine.bus.Broadcast(events.Message{Kind: events.KindLoadLocations, Locations: fs.Args()})
	}
	return engine.runForeground()
}

// runLibrary is reserved per spec.md §6 ("library [--storage-path P]
// [--audio-path P]"); the engine wiring is identical to simple mode,
// library/database management itself is out of scope (spec.md §1
// Non-goals).
func runLibrary(args []string) error {
	fs := flag.NewFlagSet("library", flag.ContinueOnError)
	_ = fs.String("storage-path", "", "reserved: path to the track library database")
	_ = fs.String("audio-path", "", "reserved: root directory to scan for audio files")
	addr := fs.String("listen", "127.0.0.1:8787", "address for the IPC HTTP server")
	assets := fs.String("assets", "", "directory to serve UI assets from")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("library mode takes no positional arguments, got %v", fs.Args())
	}

	engine, err := newEngine(*addr, *assets)
	if err != nil {
		return err
	}
	return engine.runForeground()
}

// engine bundles the wiring newEngine performs: the bus, the player thread,
// the playlist controller, and the IPC server, matching spec.md §2's
// "one player worker thread" plus a main/UI-side controller.
type engine struct {
	bus      *events.Bus
	pl       *player.Player
	list     *playlist.Controller
	ipc      *ipc.Server
	addr     string
}

func newEngine(addr, assets string) (*engine, error) {
	bus := events.NewBus()
	pl := player.New(bus)
	list := playlist.New(bus)
	server := ipc.New(bus, pl, list, assets)

	return &engine{bus: bus, pl: pl, list: list, ipc: server, addr: addr}, nil
}

// runForeground starts the player thread and playlist controller and
// blocks serving IPC until the HTTP server returns. A Quit message ends
// the player and playlist goroutines; it does not stop the HTTP server,
// and nothing here waits for the player goroutine to finish.
func (e *engine) runForeground() error {
	go e.pl.Run()
	go e.list.Run()

	log.Printf("millenium-player: serving IPC on %s", e.addr)
	return e.ipc.Run(e.addr)
}

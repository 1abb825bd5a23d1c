// Command watch-edges is a manual test for the button edge sources.
// It prints every rising and falling edge after routing it through the
// event dispatcher, the same path the peripheral uses.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/watch-edges [--source key|pin] [--pin GPIO17] [--pull down]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chaz8081/ble-button/internal/board"
	"github.com/chaz8081/ble-button/internal/dispatch"
	"github.com/chaz8081/ble-button/internal/edge"
	"github.com/chaz8081/ble-button/internal/hotkey"
)

// printSink prints each state update.
type printSink struct{ n int }

func (s *printSink) Update(pressed bool) {
	s.n++
	if pressed {
		fmt.Printf(">>> #%d PRESSED\n", s.n)
	} else {
		fmt.Printf("<<< #%d RELEASED\n", s.n)
	}
}

func main() {
	source := flag.String("source", "key", "edge source: key or pin")
	pinName := flag.String("pin", "GPIO17", "GPIO pin name for --source pin")
	pullName := flag.String("pull", "down", "pin pull: up, down or none")
	keys := flag.String("keys", "ctrl+shift+b", "key combination for --source key")
	capacity := flag.Int("capacity", dispatch.DefaultCapacity, "event queue capacity")
	flag.Parse()

	var src edge.Source
	switch *source {
	case "pin":
		pin, err := board.Host(nil)(*pinName)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		pull, err := edge.ParsePull(*pullName)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		ps, err := edge.NewPinSource(pin, pull)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		src = ps
		fmt.Printf("Watching pin %s (pull %s)...\n", *pinName, *pullName)
	default:
		ks, err := hotkey.New(strings.Split(*keys, "+"))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		go ks.Start()
		src = ks
		fmt.Printf("Listening for %s...\n", *keys)
	}
	fmt.Println("Press Ctrl+C to exit.")

	q := dispatch.New(*capacity)
	edge.Bind(src, q, &printSink{}, false)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Blocks until interrupted
	_ = q.Run(ctx)

	fmt.Println("\nShutting down...")
	_ = src.Close()
	if n := q.Dropped(); n > 0 {
		fmt.Printf("Dropped %d edges (queue full).\n", n)
	}
	fmt.Println("Done.")
}

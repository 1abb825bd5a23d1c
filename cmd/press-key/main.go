// Command press-key is a manual test for the keyboard button source.
// It waits 3 seconds, then presses and releases the key combination the
// given number of times. Run ble-button or watch-edges first.
//
// Usage:
//
//	go run ./cmd/press-key [--keys ctrl+shift+b] [--count 3] [--hold 200ms]
package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
)

func main() {
	keys := flag.String("keys", "ctrl+shift+b", "key combination to press")
	count := flag.Int("count", 3, "number of presses")
	hold := flag.Duration("hold", 200*time.Millisecond, "how long each press is held")
	gap := flag.Duration("gap", 500*time.Millisecond, "pause between presses")
	flag.Parse()

	parts := strings.Split(*keys, "+")
	key, modifiers := parts[len(parts)-1], parts[:len(parts)-1]

	fmt.Printf("Will press %q %d times in 3 seconds...\n", *keys, *count)
	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	for i := 0; i < *count; i++ {
		if err := toggle(key, modifiers, "down"); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		time.Sleep(*hold)
		if err := toggle(key, modifiers, "up"); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Press %d done\n", i+1)
		time.Sleep(*gap)
	}

	fmt.Println("\nDone!")
}

// toggle moves the modifiers and key to the given state ("down" or "up").
// Modifiers go down before the key and come up after it.
func toggle(key string, modifiers []string, state string) error {
	if state == "down" {
		for _, m := range modifiers {
			if err := robotgo.KeyToggle(m, "down"); err != nil {
				return fmt.Errorf("toggle %s down: %w", m, err)
			}
		}
	}
	if err := robotgo.KeyToggle(key, state); err != nil {
		return fmt.Errorf("toggle %s %s: %w", key, state, err)
	}
	if state == "up" {
		for i := len(modifiers) - 1; i >= 0; i-- {
			if err := robotgo.KeyToggle(modifiers[i], "up"); err != nil {
				return fmt.Errorf("toggle %s up: %w", modifiers[i], err)
			}
		}
	}
	return nil
}

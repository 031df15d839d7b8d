package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

const timeFormat = "15:04:05.000"

func main() {
	var (
		natsURL    = flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
		prefix     = flag.String("prefix", "mmo.events", "Subject prefix")
		command    = flag.String("cmd", "tail", "Command: tail, stats, types")
		eventTypes = flag.String("types", "", "Event kinds filter (comma-separated, e.g. attack,loot)")
		duration   = flag.Duration("for", 0, "Stop after this duration (0 = until Ctrl+C)")
		limit      = flag.Int("limit", 0, "Stop after N events (tail only, 0 = unlimited)")
	)
	flag.Parse()

	kinds, err := parseKinds(*eventTypes)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if *command == "types" {
		showTypes(*prefix)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	bridge, err := eventbus.NewNATSBridge(eventbus.NATSConfig{URL: *natsURL, Prefix: *prefix},
		logging.NewConsoleLogger("event-cli", os.Stderr, logging.WARN))
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bridge.Close()

	switch *command {
	case "tail":
		if err := tailEvents(ctx, cancel, bridge, kinds, *limit); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}
	case "stats":
		if err := showStats(ctx, bridge, kinds); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}
	default:
		log.Fatalf("❌ Unknown command: %s", *command)
	}
}

// tailEvents печатает события по мере поступления
func tailEvents(ctx context.Context, stop context.CancelFunc, bridge *eventbus.NATSBridge, kinds []events.Kind, limit int) error {
	var mu sync.Mutex
	seen := 0

	sub, err := bridge.Subscribe(func(ev events.Event) {
		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && seen >= limit {
			return
		}
		seen++
		fmt.Printf("%s %-14s %s\n", time.Now().Format(timeFormat), ev.Kind(), formatEvent(ev))
		if limit > 0 && seen >= limit {
			stop()
		}
	}, kinds...)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Printf("📡 Tailing %s (Ctrl+C to stop)\n", describeKinds(kinds))
	<-ctx.Done()
	return nil
}

// showStats считает события по видам до остановки
func showStats(ctx context.Context, bridge *eventbus.NATSBridge, kinds []events.Kind) error {
	var mu sync.Mutex
	counts := make(map[events.Kind]int)
	started := time.Now()

	sub, err := bridge.Subscribe(func(ev events.Event) {
		mu.Lock()
		counts[ev.Kind()]++
		mu.Unlock()
	}, kinds...)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Printf("📊 Collecting %s (Ctrl+C to print)\n", describeKinds(kinds))
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	elapsed := time.Since(started).Seconds()
	order := make([]events.Kind, 0, len(counts))
	total := 0
	for k, n := range counts {
		order = append(order, k)
		total += n
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	fmt.Printf("\n%-20s %10s %10s\n", "KIND", "COUNT", "PER SEC")
	for _, k := range order {
		fmt.Printf("%-20s %10d %10.1f\n", k, counts[k], float64(counts[k])/elapsed)
	}
	fmt.Printf("%-20s %10d %10.1f\n", "total", total, float64(total)/elapsed)
	return nil
}

func showTypes(prefix string) {
	fmt.Printf("%-4s %-20s %s\n", "ID", "KIND", "SUBJECT")
	for _, k := range events.AllKinds() {
		fmt.Printf("%-4d %-20s %s\n", uint8(k), k, eventbus.Subject(prefix, k))
	}
}

func formatEvent(ev events.Event) string {
	switch e := ev.(type) {
	case events.ActorSpawned:
		return fmt.Sprintf("#%d %s at (%.0f, %.0f) hp=%d", e.Actor.ActorID, e.Actor.ActorType, e.Actor.X, e.Actor.Y, e.Actor.Health)
	case events.ActorDied:
		return fmt.Sprintf("#%d", e.ActorID)
	case events.Attack:
		if e.Damage == 0 {
			return fmt.Sprintf("#%d -> #%d miss", e.AttackerID, e.VictimID)
		}
		return fmt.Sprintf("#%d -> #%d dmg=%d", e.AttackerID, e.VictimID, e.Damage)
	case events.Heal:
		return fmt.Sprintf("#%d +%d", e.ActorID, e.Amount)
	case events.Loot:
		return fmt.Sprintf("#%d +%d", e.ActorID, e.Amount)
	case events.SetTarget:
		return fmt.Sprintf("#%d -> #%d", e.ActorID, e.TargetID)
	default:
		return fmt.Sprintf("%+v", ev)
	}
}

func parseKinds(s string) ([]events.Kind, error) {
	if s == "" {
		return nil, nil
	}
	byName := make(map[string]events.Kind)
	for _, k := range events.AllKinds() {
		byName[k.String()] = k
	}
	var out []events.Kind
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		k, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown event kind %q", name)
		}
		out = append(out, k)
	}
	return out, nil
}

func describeKinds(kinds []events.Kind) string {
	if len(kinds) == 0 {
		return "all events"
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}

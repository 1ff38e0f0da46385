package run

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/tinyland-inc/partyline/cmd/partyline/internal"
	"github.com/tinyland-inc/partyline/pkg/bus"
	"github.com/tinyland-inc/partyline/pkg/chat"
	"github.com/tinyland-inc/partyline/pkg/logger"
	"github.com/tinyland-inc/partyline/pkg/metrics"
	"github.com/tinyland-inc/partyline/pkg/sweeper"
)

func runCmd(debug bool, user, client, events string) error {
	_ = godotenv.Load(".env")

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if debug || cfg.Log.Debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	store := chat.NewStore(chat.Options{
		RetentionLimit:       cfg.Chat.RetentionLimit,
		TypingTTL:            cfg.Typing.TTL(),
		TypingMinDuration:    cfg.Typing.Min(),
		SnapshotMessageLimit: cfg.Chat.SnapshotMessageLimit,
	})
	if user != "" {
		store.SetCurrentUserID(user)
	}
	if client != "" {
		store.SetSelfClientID(client)
	}

	statePath := cfg.StatePath()
	state, err := internal.LoadState(statePath)
	if err != nil {
		return fmt.Errorf("error loading state: %w", err)
	}
	store.Hydrate(state)
	fmt.Printf("✓ State loaded: %d sessions\n", store.SessionCount())

	var in io.ReadCloser
	if events == "-" || events == "" {
		in = os.Stdin
	} else {
		in, err = os.Open(events)
		if err != nil {
			return fmt.Errorf("error opening event stream: %w", err)
		}
		defer in.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := bus.NewEventBus()
	meters := metrics.NewMeterStore()

	var sw *sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		sw = sweeper.New(store, cfg.Sweeper.Schedule, func(s chat.StoredState) error {
			return internal.SaveState(statePath, s)
		})
		sw.Start(ctx)
		fmt.Printf("✓ Sweeper started (schedule: %s)\n", cfg.Sweeper.Schedule)
	}

	go produceEvents(ctx, in, eventBus)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	fmt.Println("✓ Ingesting events (Ctrl+C to stop)")
	consumeEvents(ctx, store, eventBus, meters, sigChan)

	fmt.Println("\nShutting down...")
	if sw != nil {
		sw.Stop()
	}
	eventBus.Close()
	cancel()

	if err := internal.SaveState(statePath, store.ToStoredState()); err != nil {
		return fmt.Errorf("error saving state: %w", err)
	}

	totals := meters.Totals()
	fmt.Printf("✓ State saved to %s\n", statePath)
	fmt.Printf("  sessions: %d  applied: %d  dropped: %d\n",
		store.SessionCount(), totals.EventsApplied, totals.EventsDropped)

	return nil
}

// produceEvents decodes newline-delimited envelopes and feeds them onto the
// bus. Lines that do not parse as an envelope are skipped with a debug log.
func produceEvents(ctx context.Context, in io.Reader, eventBus *bus.EventBus) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env chat.Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			logger.DebugCF("run", "Skipping malformed line", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		if err := eventBus.PublishEvent(ctx, env); err != nil {
			return
		}
	}
	eventBus.Close()
}

func consumeEvents(
	ctx context.Context,
	store *chat.Store,
	eventBus *bus.EventBus,
	meters *metrics.MeterStore,
	sigChan <-chan os.Signal,
) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			env, ok := eventBus.ConsumeEvent(ctx)
			if !ok {
				return
			}
			applied := store.ApplyEnvelope(env)
			meters.RecordEvent(env.SessionID(), applied)
			if applied && env.Type == chat.EventMessage {
				meters.RecordMessage(env.SessionID())
			}
		}
	}()

	select {
	case <-sigChan:
	case <-done:
	}
}

package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tinyland-inc/partyline/cmd/partyline/internal"
	"github.com/tinyland-inc/partyline/pkg/bus"
	"github.com/tinyland-inc/partyline/pkg/chat"
	"github.com/tinyland-inc/partyline/pkg/logger"
	"github.com/tinyland-inc/partyline/pkg/metrics"
)

type session struct {
	store    *chat.Store
	eventBus *bus.EventBus
	meters   *metrics.MeterStore
	state    string
}

func replCmd(debug bool, user, client string) error {
	_ = godotenv.Load(".env")

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if debug || cfg.Log.Debug {
		logger.SetLevel(logger.DEBUG)
	}

	store := chat.NewStore(chat.Options{
		RetentionLimit:       cfg.Chat.RetentionLimit,
		TypingTTL:            cfg.Typing.TTL(),
		TypingMinDuration:    cfg.Typing.Min(),
		SnapshotMessageLimit: cfg.Chat.SnapshotMessageLimit,
	})
	store.SetCurrentUserID(user)
	if client != "" {
		store.SetSelfClientID(client)
	}

	statePath := cfg.StatePath()
	state, err := internal.LoadState(statePath)
	if err != nil {
		return fmt.Errorf("error loading state: %w", err)
	}
	store.Hydrate(state)

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		store:    store,
		eventBus: bus.NewEventBus(),
		meters:   metrics.NewMeterStore(),
		state:    statePath,
	}
	defer s.eventBus.Close()
	defer cancel()

	go s.loopback(ctx, user)
	go s.consume(ctx)

	fmt.Printf("%s partyline repl as %q (%d sessions, help for commands)\n\n",
		internal.Logo, user, store.SessionCount())
	interactiveMode(s)

	if err := internal.SaveState(statePath, store.ToStoredState()); err != nil {
		fmt.Printf("Error saving state: %v\n", err)
	}
	return nil
}

// loopback plays the server for local sends: every send request is echoed
// back as an acknowledged message event carrying the client message id.
func (s *session) loopback(ctx context.Context, user string) {
	for {
		req, ok := s.eventBus.ConsumeSend(ctx)
		if !ok {
			return
		}
		payload, err := json.Marshal(chat.MessageEventPayload{
			ConversationID:  req.SessionID,
			SenderID:        user,
			ID:              "srv-" + uuid.NewString(),
			ClientMessageID: req.ClientMessageID,
			Body:            req.Body,
			SentAt:          time.Now().UTC().Format(time.RFC3339Nano),
			Attachments:     req.Attachments,
			TaskID:          req.TaskID,
			TaskTitle:       req.TaskTitle,
		})
		if err != nil {
			continue
		}
		env := chat.Envelope{Type: chat.EventMessage, Payload: payload}
		if s.eventBus.PublishEvent(ctx, env) == nil {
			s.meters.RecordAck(req.SessionID)
		}
	}
}

func (s *session) consume(ctx context.Context) {
	for {
		env, ok := s.eventBus.ConsumeEvent(ctx)
		if !ok {
			return
		}
		applied := s.store.ApplyEnvelope(env)
		s.meters.RecordEvent(env.SessionID(), applied)
	}
}

func interactiveMode(s *session) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s > ", internal.Logo),
		HistoryFile:     filepath.Join(os.TempDir(), ".partyline_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		if err := s.dispatch(input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func (s *session) dispatch(input string) error {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "help":
		printHelp()
	case "sessions", "ls":
		s.printSessions()
	case "open":
		if rest == "" {
			return errors.New("usage: open <session-id>")
		}
		s.store.EnsureSession(chat.SessionDescriptor{ID: rest})
		s.store.SetActiveSession(rest)
		fmt.Printf("Opened %s\n", rest)
	case "send":
		if rest == "" {
			return errors.New("usage: send <text>")
		}
		return s.send(rest)
	case "messages", "read":
		s.printMessages()
	case "friends":
		s.printFriends()
	case "typing":
		s.printTyping()
	case "stats":
		s.printStats()
	case "save":
		if err := internal.SaveState(s.state, s.store.ToStoredState()); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", s.state)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (s *session) send(body string) error {
	active := s.store.ActiveSessionID()
	if active == "" {
		return errors.New("no session open (use: open <session-id>)")
	}

	msg, _, err := s.store.PrepareLocalMessage(active, body, chat.LocalMessageOptions{})
	if err != nil {
		return err
	}
	s.meters.RecordSend(active)

	return s.eventBus.PublishSend(context.Background(), bus.SendRequest{
		SessionID:       active,
		ClientMessageID: msg.ID,
		Body:            msg.Body,
	})
}

func (s *session) printSessions() {
	views := s.store.RenderSnapshot()
	if len(views) == 0 {
		fmt.Println("No sessions.")
		return
	}
	active := s.store.ActiveSessionID()
	for _, v := range views {
		marker := " "
		if v.ID == active {
			marker = "*"
		}
		unread := ""
		if v.UnreadCount > 0 {
			unread = fmt.Sprintf(" (%d unread)", v.UnreadCount)
		}
		fmt.Printf("%s %-24s %-6s %s%s\n", marker, v.ID, v.Type, v.Title, unread)
		if v.LastMessagePreview != "" {
			fmt.Printf("    %s\n", v.LastMessagePreview)
		}
	}
}

func (s *session) printMessages() {
	active := s.store.ActiveSessionID()
	if active == "" {
		fmt.Println("No session open.")
		return
	}
	msgs := s.store.Messages(active)
	if len(msgs) == 0 {
		fmt.Println("No messages.")
		return
	}
	for _, m := range msgs {
		status := ""
		if m.Status != chat.StatusSent {
			status = fmt.Sprintf(" [%s]", m.Status)
		}
		fmt.Printf("%s %s: %s%s\n", m.SentAt, m.AuthorID, m.Body, status)
	}
	s.store.MarkRead(active)
}

func (s *session) printFriends() {
	all := s.store.Friends().All()
	if len(all) == 0 {
		fmt.Println("No friends known.")
		return
	}
	for _, f := range all {
		fmt.Printf("%-24s %s (%s)\n", f.UserID, f.Name, f.Status)
	}
}

func (s *session) printTyping() {
	active := s.store.ActiveSessionID()
	if active == "" {
		fmt.Println("No session open.")
		return
	}
	typing := s.store.TypingParticipants(active)
	if len(typing) == 0 {
		fmt.Println("Nobody is typing.")
		return
	}
	for _, p := range typing {
		fmt.Printf("%s is typing...\n", p.Name)
	}
}

func (s *session) printStats() {
	totals := s.meters.Totals()
	fmt.Printf("sessions: %d  applied: %d  dropped: %d  sends: %d  acks: %d\n",
		s.store.SessionCount(),
		totals.EventsApplied, totals.EventsDropped,
		totals.SendsPrepared, totals.AcksResolved)
	for id, m := range s.meters.GetAllMeters() {
		fmt.Printf("  %-24s events=%d messages=%d sends=%d acks=%d\n",
			id, m.Events, m.Messages, m.Sends, m.Acks)
	}
}

func printHelp() {
	fmt.Println(`Commands:
  sessions          List sessions (unread counts, previews)
  open <id>         Open a session and mark it active
  send <text>       Send a message to the active session
  messages          Show messages in the active session (marks read)
  friends           List the friend directory
  typing            Show live typing indicators
  stats             Show pipeline counters
  save              Persist the snapshot now
  exit              Quit (saves on the way out)`)
}

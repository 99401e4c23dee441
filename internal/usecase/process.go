package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/llm"
)

const (
	defaultCallTimeout = 5 * time.Second
	voicePrefix        = "[Áudio] "
)

type Status string

const (
	StatusReplied   Status = "replied"
	StatusDuplicate Status = "duplicate"
)

type Guard interface {
	AlreadyHandled(ctx context.Context, conversationID, eventID string) bool
}

type Memory interface {
	AppendTurn(ctx context.Context, conversationID string, role domain.Role, content string) error
	RecentTurns(ctx context.Context, conversationID string, limit int) []domain.Turn
	Reset(ctx context.Context, conversationID string) (int, error)
	HistoryLimit() int
}

type Classifier interface {
	Classify(ctx context.Context, text string, history []domain.Turn, isVoice bool) domain.Intent
}

type Dispatcher interface {
	Dispatch(ctx context.Context, conversationID string, in domain.Intent, rawText string) string
	ListFolder(ctx context.Context, conversationID, name string) string
	Summary(ctx context.Context, conversationID string) string
}

// Messenger is the messaging platform as seen by the pipeline.
type Messenger interface {
	SendText(ctx context.Context, conversationID, text string) error
	SendMenu(ctx context.Context, conversationID, text string, options []domain.MenuOption) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type ProcessOutput struct {
	ConversationID string
	Status         Status
	Reply          string
	Intent         domain.IntentKind
	Delivered      bool
}

// Orchestrator turns one inbound event into exactly one reply.
type Orchestrator struct {
	guard       Guard
	memory      Memory
	classifier  Classifier
	dispatcher  Dispatcher
	messenger   Messenger
	transcriber llm.Transcriber
	callTimeout time.Duration
	logger      *slog.Logger
}

type Option func(*Orchestrator)

func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func NewOrchestrator(g Guard, m Memory, c Classifier, d Dispatcher, msg Messenger, t llm.Transcriber, opts ...Option) (*Orchestrator, error) {
	switch {
	case g == nil:
		return nil, errors.New("usecase: guard must not be nil")
	case m == nil:
		return nil, errors.New("usecase: memory must not be nil")
	case c == nil:
		return nil, errors.New("usecase: classifier must not be nil")
	case d == nil:
		return nil, errors.New("usecase: dispatcher must not be nil")
	case msg == nil:
		return nil, errors.New("usecase: messenger must not be nil")
	case t == nil:
		return nil, errors.New("usecase: transcriber must not be nil")
	}
	o := &Orchestrator{
		guard:       g,
		memory:      m,
		classifier:  c,
		dispatcher:  d,
		messenger:   msg,
		transcriber: t,
		callTimeout: defaultCallTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o, nil
}

// Process runs the pipeline for one event: dedup, commands, transcription,
// history, classification, dispatch and delivery. Only malformed events
// return an error; every accepted event is marked processed before any
// collaborator is called, whatever happens afterwards.
func (o *Orchestrator) Process(ctx context.Context, ev domain.InboundEvent) (ProcessOutput, error) {
	conversationID := strings.TrimSpace(ev.ConversationID)
	if conversationID == "" {
		return ProcessOutput{}, newError(ErrorInvalidInput, "missing_conversation_id", nil)
	}
	if strings.TrimSpace(ev.Text) == "" && !ev.IsVoice() && ev.CallbackData == "" {
		return ProcessOutput{}, newError(ErrorInvalidInput, "empty_event", nil)
	}
	out := ProcessOutput{ConversationID: conversationID, Status: StatusReplied}
	log := o.logger.With("conversation_id", conversationID, "event_id", ev.EventID)

	if o.guard.AlreadyHandled(ctx, conversationID, ev.EventID) {
		log.Info("duplicate event skipped")
		out.Status = StatusDuplicate
		return out, nil
	}

	text := strings.TrimSpace(ev.Text)
	if ev.CallbackData != "" {
		text = menuText(ev.CallbackData)
	}
	if ev.IsVoice() {
		transcript, err := o.transcribe(ctx, ev.VoiceFileID)
		if err != nil || transcript == "" {
			log.Warn("voice transcription failed", "code", Classify(err), "err", err)
			out.Reply = audioFailed
			out.Delivered = o.send(ctx, conversationID, out.Reply)
			return out, nil
		}
		text = transcript
	}

	if !ev.IsVoice() {
		if cmd, arg, ok := parseCommand(text); ok {
			if handled := o.runCommand(ctx, conversationID, cmd, arg, &out); handled {
				log.Info("command handled", "command", cmd, "delivered", out.Delivered)
				return out, nil
			}
		}
	}

	history := o.recentTurns(ctx, conversationID)
	userTurn := text
	if ev.IsVoice() {
		userTurn = voicePrefix + text
	}
	o.appendUserTurn(ctx, conversationID, userTurn)

	intent := o.classifier.Classify(ctx, text, history, ev.IsVoice())
	out.Intent = intent.Kind
	out.Reply = o.dispatcher.Dispatch(ctx, conversationID, intent, text)
	out.Delivered = o.send(ctx, conversationID, out.Reply)

	log.Info("event processed", "intent", intent.Kind, "voice", ev.IsVoice(), "delivered", out.Delivered)
	return out, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, fileID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*o.callTimeout)
	defer cancel()
	audio, filename, err := o.messenger.DownloadFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	transcript, err := o.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(transcript), nil
}

// recentTurns is read before the inbound turn is stored, so the classifier
// never sees the current message twice.
func (o *Orchestrator) recentTurns(ctx context.Context, conversationID string) []domain.Turn {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.memory.RecentTurns(ctx, conversationID, o.memory.HistoryLimit())
}

func (o *Orchestrator) appendUserTurn(ctx context.Context, conversationID, content string) {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	if err := o.memory.AppendTurn(ctx, conversationID, domain.RoleUser, content); err != nil {
		o.logger.Warn("failed to store user turn", "conversation_id", conversationID, "err", err)
	}
}

func (o *Orchestrator) send(ctx context.Context, conversationID, text string) bool {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	if err := o.messenger.SendText(ctx, conversationID, text); err != nil {
		o.logger.Error("failed to deliver reply", "conversation_id", conversationID, "code", Classify(err), "err", err)
		return false
	}
	return true
}

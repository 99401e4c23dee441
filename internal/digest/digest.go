// Package digest sends the morning message ("bom dia") to every known
// conversation.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/llm"
)

const (
	defaultCallTimeout  = 5 * time.Second
	defaultSendInterval = 100 * time.Millisecond
	maxTasksListed      = 5

	greeting = "☀️ Bom dia!\n\n"
)

type Conversations interface {
	ListConversations(ctx context.Context) ([]string, error)
}

type Agenda interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error)
}

type Tasks interface {
	PendingTasks(ctx context.Context, conversationID string) ([]domain.Task, error)
}

type Notifier interface {
	SendText(ctx context.Context, conversationID, text string) error
}

type Deps struct {
	Conversations Conversations
	Agenda        Agenda
	Tasks         Tasks
	Generator     llm.Generator
	Notifier      Notifier
}

// Report is the outcome of one run.
type Report struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type Runner struct {
	Deps

	loc         *time.Location
	callTimeout time.Duration
	limiter     *rate.Limiter
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*Runner)

func WithLocation(loc *time.Location) Option {
	return func(r *Runner) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithSendInterval spaces out notifications. Zero disables throttling.
func WithSendInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRunner(deps Deps, opts ...Option) (*Runner, error) {
	switch {
	case deps.Conversations == nil:
		return nil, errors.New("digest: conversations must not be nil")
	case deps.Agenda == nil:
		return nil, errors.New("digest: agenda must not be nil")
	case deps.Tasks == nil:
		return nil, errors.New("digest: tasks must not be nil")
	case deps.Generator == nil:
		return nil, errors.New("digest: generator must not be nil")
	case deps.Notifier == nil:
		return nil, errors.New("digest: notifier must not be nil")
	}
	r := &Runner{
		Deps:        deps,
		loc:         time.UTC,
		callTimeout: defaultCallTimeout,
		limiter:     rate.NewLimiter(rate.Every(defaultSendInterval), 1),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "digest")
	return r, nil
}

// Run notifies every conversation. A failure for one conversation is counted
// and the loop goes on; only failing to enumerate conversations, or ctx
// ending, returns an error.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	lctx, cancel := context.WithTimeout(ctx, 3*r.callTimeout)
	convs, err := r.Conversations.ListConversations(lctx)
	cancel()
	if err != nil {
		return Report{}, fmt.Errorf("digest: list conversations: %w", err)
	}

	report := Report{Total: len(convs)}
	if len(convs) == 0 {
		return report, nil
	}

	// One calendar serves every conversation.
	events, agendaOK := r.todayEvents(ctx)

	for i, conv := range convs {
		if err := r.limiter.Wait(ctx); err != nil {
			report.Failed += len(convs) - i
			return report, fmt.Errorf("digest: interrupted: %w", err)
		}
		if err := r.notify(ctx, conv, events, agendaOK); err != nil {
			report.Failed++
			r.logger.Warn("digest not delivered", "conversation_id", conv, "err", err)
			continue
		}
		report.Sent++
	}
	r.logger.Info("digest finished", "total", report.Total, "sent", report.Sent, "failed", report.Failed)
	return report, nil
}

func (r *Runner) todayEvents(ctx context.Context) ([]domain.CalendarEvent, bool) {
	now := r.now().In(r.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	events, err := r.Agenda.ListEvents(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		r.logger.Warn("agenda unavailable for digest", "err", err)
		return nil, false
	}
	return events, true
}

func (r *Runner) notify(ctx context.Context, conversationID string, events []domain.CalendarEvent, agendaOK bool) error {
	tctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	tasks, err := r.Tasks.PendingTasks(tctx, conversationID)
	cancel()
	tasksOK := err == nil
	if err != nil {
		r.logger.Warn("tasks unavailable for digest", "conversation_id", conversationID, "err", err)
	}

	eventText := r.eventLines(events, agendaOK)
	taskText := taskLines(tasks, tasksOK)

	message := r.compose(ctx, eventText, taskText)
	if message == "" {
		message = fallbackMessage(eventText, taskText)
	}

	sctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.Notifier.SendText(sctx, conversationID, greeting+message)
}

func (r *Runner) compose(ctx context.Context, eventText, taskText string) string {
	ctx, cancel := context.WithTimeout(ctx, 3*r.callTimeout)
	defer cancel()
	out, err := r.Generator.Generate(ctx, llm.Request{
		System: "Você é o Jarvis, um assistente pessoal. Responda em português do Brasil.",
		Prompt: fmt.Sprintf("Gere uma mensagem de bom dia motivacional (máximo 3 linhas) incluindo:\n\n"+
			"Eventos de hoje:\n%s\n\nTarefas pendentes:\n%s\n\nSeja positivo e energizante!", eventText, taskText),
	})
	if err != nil {
		r.logger.Warn("digest generation failed, using fallback", "err", err)
		return ""
	}
	return strings.TrimSpace(out)
}

func (r *Runner) eventLines(events []domain.CalendarEvent, ok bool) string {
	if !ok {
		return "Agenda indisponível."
	}
	if len(events) == 0 {
		return "Nenhum evento agendado."
	}
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.AllDay {
			lines = append(lines, fmt.Sprintf("• %s (dia todo)", ev.Title))
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s %s", ev.Start.In(r.loc).Format("15:04"), ev.Title))
	}
	return strings.Join(lines, "\n")
}

func taskLines(tasks []domain.Task, ok bool) string {
	if !ok {
		return "Tarefas indisponíveis."
	}
	if len(tasks) == 0 {
		return "Nenhuma tarefa pendente."
	}
	var b strings.Builder
	for i, t := range tasks {
		if i == maxTasksListed {
			fmt.Fprintf(&b, "\n… e mais %d", len(tasks)-maxTasksListed)
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• " + t.Title)
	}
	return b.String()
}

func fallbackMessage(eventText, taskText string) string {
	return "📅 Hoje:\n" + eventText + "\n\n📝 Tarefas:\n" + taskText + "\n\nTenha um ótimo dia! 💪"
}

// Package dispatch executes a classified intent against the productivity
// collaborators and produces the reply text.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/llm"
)

type Calendar interface {
	CreateEvent(ctx context.Context, ev domain.CalendarEvent) error
	ListEvents(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error)
}

type Tasks interface {
	AddTask(ctx context.Context, conversationID, title string) (domain.Task, error)
	PendingTasks(ctx context.Context, conversationID string) ([]domain.Task, error)
	CompleteTask(ctx context.Context, conversationID, taskID string) error
}

type Expenses interface {
	AddExpense(ctx context.Context, conversationID string, e domain.Expense) (domain.Expense, error)
	ExpensesBetween(ctx context.Context, conversationID string, from, to time.Time) ([]domain.Expense, error)
}

// Files reads folder listings and document content.
type Files interface {
	ListChildren(ctx context.Context, folderID string) ([]domain.Resource, error)
	ReadPrefix(ctx context.Context, res domain.Resource, maxChars int) (string, error)
	// ServiceAccountEmail is the identity folders must be shared with.
	ServiceAccountEmail() string
}

type Resolver interface {
	Resolve(ctx context.Context, query string) (domain.Resource, bool, error)
}

type Memory interface {
	AppendTurn(ctx context.Context, conversationID string, role domain.Role, content string) error
	GetFolderContext(ctx context.Context, conversationID string) (domain.FolderContext, bool)
	SetFolderContext(ctx context.Context, conversationID string, fc domain.FolderContext) error
}

// Deps are the collaborators, constructed once at startup.
type Deps struct {
	Calendar   Calendar
	Tasks      Tasks
	Expenses   Expenses
	Files      Files
	Resolver   Resolver
	Memory     Memory
	Summarizer llm.Generator
}

type Dispatcher struct {
	Deps
	loc             *time.Location
	callTimeout     time.Duration
	readPrefixChars int
	logger          *slog.Logger
	now             func() time.Time
}

type Option func(*Dispatcher)

func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithCallTimeout bounds each collaborator call. Summarization gets three
// times this budget.
func WithCallTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.callTimeout = t
		}
	}
}

func WithReadPrefixChars(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.readPrefixChars = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func New(deps Deps, opts ...Option) (*Dispatcher, error) {
	switch {
	case deps.Calendar == nil:
		return nil, errors.New("dispatch: calendar must not be nil")
	case deps.Tasks == nil:
		return nil, errors.New("dispatch: tasks must not be nil")
	case deps.Expenses == nil:
		return nil, errors.New("dispatch: expenses must not be nil")
	case deps.Files == nil:
		return nil, errors.New("dispatch: files must not be nil")
	case deps.Resolver == nil:
		return nil, errors.New("dispatch: resolver must not be nil")
	case deps.Memory == nil:
		return nil, errors.New("dispatch: memory must not be nil")
	case deps.Summarizer == nil:
		return nil, errors.New("dispatch: summarizer must not be nil")
	}
	d := &Dispatcher{
		Deps:            deps,
		loc:             time.UTC,
		callTimeout:     5 * time.Second,
		readPrefixChars: 3000,
		logger:          slog.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatch")
	return d, nil
}

// Dispatch runs one intent and returns the reply. It is total over the intent
// vocabulary: unknown kinds get the converse reply and collaborator failures
// become apology replies.
//
// Mutating and conversational branches append their reply as an assistant
// turn; read-only branches (agenda query, task list, expense report, folder
// analysis) do not, to keep large payloads out of the rolling window.
func (d *Dispatcher) Dispatch(ctx context.Context, conversationID string, in domain.Intent, rawText string) string {
	var (
		reply    string
		remember = true
	)
	switch in.Kind {
	case domain.IntentScheduleCreate:
		reply = d.scheduleCreate(ctx, in)
	case domain.IntentScheduleQuery:
		reply, remember = d.scheduleQuery(ctx, in), false
	case domain.IntentTaskCreate:
		reply = d.taskCreate(ctx, conversationID, in)
	case domain.IntentTaskList:
		reply, remember = d.taskList(ctx, conversationID), false
	case domain.IntentTaskComplete:
		reply = d.taskComplete(ctx, conversationID, in)
	case domain.IntentExpenseCreate:
		reply = d.expenseCreate(ctx, conversationID, in, rawText)
	case domain.IntentExpenseReport:
		reply, remember = d.expenseReport(ctx, conversationID), false
	case domain.IntentResourceAnalyze:
		reply, remember = d.resourceAnalyze(ctx, conversationID, in, rawText), false
	default:
		reply = d.converse(in)
	}

	if remember {
		d.remember(ctx, conversationID, reply)
	}
	d.logger.Info("intent dispatched", "conversation_id", conversationID, "intent", in.Kind, "remembered", remember)
	return reply
}

func (d *Dispatcher) converse(in domain.Intent) string {
	if in.Reply == "" {
		return genericPrompt
	}
	return in.Reply
}

func (d *Dispatcher) remember(ctx context.Context, conversationID, reply string) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	if err := d.Memory.AppendTurn(ctx, conversationID, domain.RoleAssistant, reply); err != nil {
		d.logger.Warn("failed to store assistant turn", "conversation_id", conversationID, "err", err)
	}
}

func (d *Dispatcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.callTimeout)
}

func (d *Dispatcher) localNow() time.Time {
	return d.now().In(d.loc)
}

func startOfDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, t.Location())
}

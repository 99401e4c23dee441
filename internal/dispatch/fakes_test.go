package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/llm"
)

var saoPaulo = time.FixedZone("America/Sao_Paulo", -3*60*60)

// 09:00 local.
var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fakeCalendar struct {
	created  []domain.CalendarEvent
	events   []domain.CalendarEvent
	err      error
	block    bool
	from, to time.Time
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev domain.CalendarEvent) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, ev)
	return nil
}

func (f *fakeCalendar) ListEvents(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.from, f.to = from, to
	return f.events, f.err
}

type fakeTasks struct {
	tasks     []domain.Task
	listErr   error
	added     []string
	completed []string
}

func (f *fakeTasks) AddTask(_ context.Context, _ string, title string) (domain.Task, error) {
	f.added = append(f.added, title)
	return domain.Task{ID: "t1", Title: title, Status: domain.TaskPending}, nil
}

func (f *fakeTasks) PendingTasks(context.Context, string) ([]domain.Task, error) {
	return f.tasks, f.listErr
}

func (f *fakeTasks) CompleteTask(_ context.Context, _ string, taskID string) error {
	f.completed = append(f.completed, taskID)
	return nil
}

type fakeExpenses struct {
	added    []domain.Expense
	list     []domain.Expense
	err      error
	from, to time.Time
}

func (f *fakeExpenses) AddExpense(_ context.Context, _ string, e domain.Expense) (domain.Expense, error) {
	if f.err != nil {
		return domain.Expense{}, f.err
	}
	f.added = append(f.added, e)
	return e, nil
}

func (f *fakeExpenses) ExpensesBetween(_ context.Context, _ string, from, to time.Time) ([]domain.Expense, error) {
	f.from, f.to = from, to
	return f.list, f.err
}

type fakeFiles struct {
	children  map[string][]domain.Resource
	content   map[string]string
	email     string
	listCalls int
	reads     []string
}

func (f *fakeFiles) ListChildren(_ context.Context, folderID string) ([]domain.Resource, error) {
	f.listCalls++
	c, ok := f.children[folderID]
	if !ok {
		return nil, errors.New("folder not found")
	}
	return c, nil
}

func (f *fakeFiles) ReadPrefix(_ context.Context, res domain.Resource, _ int) (string, error) {
	f.reads = append(f.reads, res.ID)
	return f.content[res.ID], nil
}

func (f *fakeFiles) ServiceAccountEmail() string { return f.email }

type fakeResolver struct {
	res   domain.Resource
	found bool
	err   error
	calls int
}

func (f *fakeResolver) Resolve(context.Context, string) (domain.Resource, bool, error) {
	f.calls++
	return f.res, f.found, f.err
}

type fakeMemory struct {
	assistant []string
	fc        domain.FolderContext
	hasFC     bool
	saved     []domain.FolderContext
}

func (f *fakeMemory) AppendTurn(_ context.Context, _ string, role domain.Role, content string) error {
	if role == domain.RoleAssistant {
		f.assistant = append(f.assistant, content)
	}
	return nil
}

func (f *fakeMemory) GetFolderContext(context.Context, string) (domain.FolderContext, bool) {
	return f.fc, f.hasFC
}

func (f *fakeMemory) SetFolderContext(_ context.Context, _ string, fc domain.FolderContext) error {
	f.saved = append(f.saved, fc)
	return nil
}

type fakeSummarizer struct {
	reply string
	err   error
	calls int
	last  llm.Request
}

func (f *fakeSummarizer) Generate(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

type fixture struct {
	calendar   *fakeCalendar
	tasks      *fakeTasks
	expenses   *fakeExpenses
	files      *fakeFiles
	resolver   *fakeResolver
	memory     *fakeMemory
	summarizer *fakeSummarizer
}

func newFixture() *fixture {
	return &fixture{
		calendar:   &fakeCalendar{},
		tasks:      &fakeTasks{},
		expenses:   &fakeExpenses{},
		files:      &fakeFiles{children: map[string][]domain.Resource{}, content: map[string]string{}},
		resolver:   &fakeResolver{},
		memory:     &fakeMemory{},
		summarizer: &fakeSummarizer{},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Calendar:   f.calendar,
		Tasks:      f.tasks,
		Expenses:   f.expenses,
		Files:      f.files,
		Resolver:   f.resolver,
		Memory:     f.memory,
		Summarizer: f.summarizer,
	}
}

func (f *fixture) dispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := New(f.deps(), append([]Option{WithLocation(saoPaulo)}, opts...)...)
	require.NoError(t, err)
	d.now = func() time.Time { return fixedNow }
	return d
}

package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jarvis-agent/internal/domain"
)

func TestNew_RejectsMissingDeps(t *testing.T) {
	f := newFixture()
	deps := f.deps()
	deps.Summarizer = nil
	_, err := New(deps)
	require.Error(t, err)

	deps = f.deps()
	deps.Resolver = nil
	_, err = New(deps)
	require.Error(t, err)
}

func TestDispatch_ExpenseCreate_TakesAmountFromRawText(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{
		Kind:       domain.IntentExpenseCreate,
		AmountText: "4590",
	}, "Adicione gasto 45,90 almoço")

	require.Equal(t, "💸 Gasto registrado: R$ 45,90 - almoço (outros)", reply)
	require.Len(t, f.expenses.added, 1)
	got := f.expenses.added[0]
	require.Equal(t, 45.90, got.Amount)
	require.Equal(t, "outros", got.Category)
	require.Equal(t, "almoço", got.Item)
	require.Equal(t, []string{reply}, f.memory.assistant)
}

func TestDispatch_ExpenseCreate_LowercasesCategory(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)

	d.Dispatch(context.Background(), "100", domain.Intent{
		Kind:     domain.IntentExpenseCreate,
		Category: "Mercado",
		Item:     "feira",
	}, "gastei 120 na feira")

	require.Len(t, f.expenses.added, 1)
	require.Equal(t, "mercado", f.expenses.added[0].Category)
	require.Equal(t, "feira", f.expenses.added[0].Item)
	require.Equal(t, 120.0, f.expenses.added[0].Amount)
}

func TestDispatch_ExpenseCreate_NoAmountAsks(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentExpenseCreate}, "registra um gasto")

	require.Equal(t, askExpenseAmount, reply)
	require.Empty(t, f.expenses.added)
}

func TestDispatch_ScheduleCreate_MissingStartAsksForDetails(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentScheduleCreate, Title: "Dentista"}, "agendar dentista")

	require.Equal(t, askScheduleDetails, reply)
	require.Empty(t, f.calendar.created)
	require.Equal(t, []string{askScheduleDetails}, f.memory.assistant)
}

func TestDispatch_ScheduleCreate_DefaultsToOneHour(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)
	start := time.Date(2026, 10, 16, 15, 0, 0, 0, saoPaulo)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{
		Kind:  domain.IntentScheduleCreate,
		Title: "Dentista",
		Start: start,
	}, "Agendar dentista amanhã às 15h")

	require.Equal(t, "✅ Agendado: Dentista em 16/10 às 15:00.", reply)
	require.Len(t, f.calendar.created, 1)
	require.True(t, f.calendar.created[0].End.Equal(start.Add(time.Hour)))
}

func TestDispatch_ScheduleCreate_TimeoutBecomesApology(t *testing.T) {
	f := newFixture()
	f.calendar.block = true
	d := f.dispatcher(t, WithCallTimeout(10*time.Millisecond))

	reply := d.Dispatch(context.Background(), "100", domain.Intent{
		Kind:  domain.IntentScheduleCreate,
		Title: "Dentista",
		Start: time.Date(2026, 10, 16, 15, 0, 0, 0, saoPaulo),
	}, "Agendar dentista amanhã às 15h")

	require.Equal(t, scheduleFailed, reply)
}

func TestDispatch_ScheduleQuery_DefaultsToToday(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentScheduleQuery}, "o que tenho hoje?")

	require.Equal(t, agendaEmpty, reply)
	require.True(t, f.calendar.from.Equal(time.Date(2026, 10, 15, 0, 0, 0, 0, saoPaulo)), "from=%s", f.calendar.from)
	require.True(t, f.calendar.to.Equal(time.Date(2026, 10, 16, 0, 0, 0, 0, saoPaulo)), "to=%s", f.calendar.to)
	require.Empty(t, f.memory.assistant)
}

func TestDispatch_ScheduleQuery_FormatsEvents(t *testing.T) {
	f := newFixture()
	f.calendar.events = []domain.CalendarEvent{
		{Title: "Reunião", Start: time.Date(2026, 10, 15, 13, 0, 0, 0, time.UTC)},
		{Title: "Feriado", Start: time.Date(2026, 10, 15, 0, 0, 0, 0, saoPaulo), AllDay: true},
	}
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentScheduleQuery}, "agenda de hoje")

	require.Equal(t, "📅 Agenda:\n• 10:00 - Reunião\n• (dia todo) - Feriado", reply)
}

func TestDispatch_TaskComplete_MatchesSubstring(t *testing.T) {
	f := newFixture()
	f.tasks.tasks = []domain.Task{
		{ID: "1", Title: "Comprar pão"},
		{ID: "2", Title: "Pagar conta de luz"},
		{ID: "3", Title: "Pagar CONTA de água"},
	}
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentTaskComplete, Item: "Conta"}, "concluí a conta")

	require.Equal(t, "✔️ Tarefa concluída: Pagar conta de luz", reply)
	require.Equal(t, []string{"2"}, f.tasks.completed)
}

func TestDispatch_TaskComplete_NoMatch(t *testing.T) {
	f := newFixture()
	f.tasks.tasks = []domain.Task{{ID: "1", Title: "Comprar pão"}}
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentTaskComplete, Item: "academia"}, "concluí academia")

	require.Equal(t, `Não encontrei a tarefa "academia" entre as pendentes.`, reply)
	require.Empty(t, f.tasks.completed)
}

func TestDispatch_TaskCreateAndList(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentTaskCreate, Item: "Comprar pão"}, "anota comprar pão")
	require.Equal(t, "📝 Tarefa anotada: Comprar pão", reply)
	require.Equal(t, []string{"Comprar pão"}, f.tasks.added)

	f.tasks.tasks = []domain.Task{{ID: "1", Title: "Comprar pão"}, {ID: "2", Title: "Ligar pro banco"}}
	reply = d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentTaskList}, "minhas tarefas")
	require.Equal(t, "📋 Tarefas pendentes:\n1. Comprar pão\n2. Ligar pro banco", reply)

	require.Len(t, f.memory.assistant, 1, "task list is not remembered")
}

func TestDispatch_ExpenseReport_Empty(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentExpenseReport}, "relatório de gastos")

	require.Equal(t, reportEmpty, reply)
	require.True(t, f.expenses.from.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, saoPaulo)))
	require.True(t, f.expenses.to.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, saoPaulo)))
	require.Empty(t, f.memory.assistant)
}

func TestDispatch_ExpenseReport_GroupsByCategory(t *testing.T) {
	f := newFixture()
	f.expenses.list = []domain.Expense{
		{Amount: 40, Category: "mercado", Item: "feira", At: time.Date(2026, 10, 3, 15, 0, 0, 0, time.UTC)},
		{Amount: 20.5, Category: "alimentação", Item: "almoço", At: time.Date(2026, 10, 10, 15, 0, 0, 0, time.UTC)},
	}
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentExpenseReport}, "relatório de gastos")

	want := strings.Join([]string{
		"💰 Gastos de outubro/2026",
		"",
		"Por categoria:",
		"• alimentação: R$ 20,50",
		"• mercado: R$ 40,00",
		"",
		"Total: R$ 60,50",
		"",
		"Lançamentos:",
		"• 03/10 feira - R$ 40,00",
		"• 10/10 almoço - R$ 20,50",
	}, "\n")
	require.Equal(t, want, reply)
}

func TestDispatch_Analyze_UsesFolderContextWithoutLookup(t *testing.T) {
	f := newFixture()
	f.memory.hasFC = true
	f.memory.fc = domain.FolderContext{
		FolderID: "f1",
		Name:     "Projeto Beta",
		Children: []domain.Resource{
			{ID: "d1", Name: "Proposta"},
			{ID: "sub", Name: "Anexos", MimeType: domain.FolderMimeType},
			{ID: "d2", Name: "Orçamento"},
			{ID: "d3", Name: "Contrato"},
		},
	}
	f.files.content = map[string]string{"d1": "texto um", "d2": "texto dois", "d3": "texto três"}
	f.summarizer.reply = "Resumo."
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentResourceAnalyze}, "resuma os arquivos")

	require.Equal(t, "📊 Análise de \"Projeto Beta\":\n\nResumo.", reply)
	require.Zero(t, f.resolver.calls)
	require.Zero(t, f.files.listCalls)
	require.Equal(t, []string{"d1", "d2"}, f.files.reads)
	require.Contains(t, f.summarizer.last.Prompt, "resuma os arquivos")
	require.NotContains(t, f.summarizer.last.Prompt, "texto três")
	require.Len(t, f.memory.saved, 1)
	require.Equal(t, "f1", f.memory.saved[0].FolderID)
	require.Empty(t, f.memory.assistant)
}

func TestDispatch_Analyze_NoContextAsksForFolder(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentResourceAnalyze}, "resuma os arquivos")

	require.Equal(t, askFolder, reply)
	require.Zero(t, f.summarizer.calls)
}

func TestDispatch_Analyze_NamedFolderNotFound(t *testing.T) {
	f := newFixture()
	f.files.email = "jarvis@project.iam.gserviceaccount.com"
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentResourceAnalyze, Resource: "Financeiro"}, "analise a pasta Financeiro")

	require.Equal(t, `📂 Não encontrei a pasta "Financeiro". Verifique se ela foi compartilhada com jarvis@project.iam.gserviceaccount.com.`, reply)
	require.Equal(t, 1, f.resolver.calls)
}

func TestDispatch_Analyze_SummarizerFailure(t *testing.T) {
	f := newFixture()
	f.resolver.res = domain.Resource{ID: "f1", Name: "Projeto Beta", MimeType: domain.FolderMimeType}
	f.resolver.found = true
	f.files.children["f1"] = []domain.Resource{{ID: "d1", Name: "Proposta"}}
	f.files.content["d1"] = "texto"
	f.summarizer.err = errors.New("upstream")
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentResourceAnalyze, Resource: "beta"}, "analise beta")

	require.Equal(t, summaryFailed, reply)
	require.Equal(t, 1, f.files.listCalls)
	require.Len(t, f.memory.saved, 1)
}

func TestDispatch_Analyze_UnreadableFolderSummarizesListing(t *testing.T) {
	f := newFixture()
	f.resolver.res = domain.Resource{ID: "f1", Name: "Contratos", MimeType: domain.FolderMimeType}
	f.resolver.found = true
	f.files.children["f1"] = []domain.Resource{
		{ID: "p1", Name: "contrato-2026.pdf", MimeType: "application/pdf"},
		{ID: "sub", Name: "Aditivos", MimeType: domain.FolderMimeType},
	}
	f.summarizer.reply = "A pasta tem um contrato e uma subpasta de aditivos."
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentResourceAnalyze, Resource: "contratos"}, "o que tem em contratos?")

	require.Equal(t, "📊 Análise de \"Contratos\":\n\nA pasta tem um contrato e uma subpasta de aditivos.", reply)
	require.Equal(t, 1, f.summarizer.calls)
	require.Contains(t, f.summarizer.last.Prompt, "Arquivos disponíveis:\n- contrato-2026.pdf\n- Aditivos")
	require.Equal(t, []string{"p1"}, f.files.reads)
}

func TestDispatch_Analyze_PromptListsEveryChild(t *testing.T) {
	f := newFixture()
	f.memory.hasFC = true
	f.memory.fc = domain.FolderContext{
		FolderID: "f1",
		Name:     "Projeto Beta",
		Children: []domain.Resource{
			{ID: "d1", Name: "Proposta"},
			{ID: "d2", Name: "Orçamento"},
			{ID: "d3", Name: "Contrato"},
		},
	}
	f.files.content = map[string]string{"d1": "texto um", "d2": "texto dois", "d3": "texto três"}
	f.summarizer.reply = "Resumo."
	d := f.dispatcher(t)

	d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentResourceAnalyze}, "resuma")

	require.Contains(t, f.summarizer.last.Prompt, "- Contrato")
	require.NotContains(t, f.summarizer.last.Prompt, "texto três")
}

func TestDispatch_Analyze_EmptyFolder(t *testing.T) {
	f := newFixture()
	f.resolver.res = domain.Resource{ID: "f1", Name: "Vazia", MimeType: domain.FolderMimeType}
	f.resolver.found = true
	f.files.children["f1"] = []domain.Resource{}
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentResourceAnalyze, Resource: "vazia"}, "analise vazia")

	require.Equal(t, "📂 A pasta \"Vazia\" está vazia.", reply)
	require.Zero(t, f.summarizer.calls)
}

func TestDispatch_ConverseAndUnknown(t *testing.T) {
	f := newFixture()
	d := f.dispatcher(t)

	reply := d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentConverse, Reply: "Oi! Tudo bem?"}, "oi")
	require.Equal(t, "Oi! Tudo bem?", reply)

	reply = d.Dispatch(context.Background(), "100", domain.Intent{Kind: domain.IntentKind("weather")}, "vai chover?")
	require.Equal(t, genericPrompt, reply)

	require.Equal(t, []string{"Oi! Tudo bem?", genericPrompt}, f.memory.assistant)
}

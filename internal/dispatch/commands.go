package dispatch

import (
	"context"
	"fmt"
	"strings"

	"jarvis-agent/internal/amount"
	"jarvis-agent/internal/domain"
)

const maxListedChildren = 10

// ListFolder resolves a folder by name, lists its contents and makes it the
// conversation's folder context so "resuma os arquivos" works next.
func (d *Dispatcher) ListFolder(ctx context.Context, conversationID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return askFolderName
	}
	folder, reply, ok := d.resolveFolder(ctx, name)
	if !ok {
		return reply
	}
	children, err := d.listChildren(ctx, folder.ID)
	if err != nil {
		d.logger.Warn("list children failed", "folder", folder.Name, "err", err)
		return driveFailed
	}
	d.saveFolderContext(ctx, conversationID, folder, children)

	names := domain.FolderContext{Children: children}.ChildNames()
	d.remember(ctx, conversationID, fmt.Sprintf("Listei os arquivos da pasta %s: %s", folder.Name, strings.Join(names, ", ")))

	if len(children) == 0 {
		return fmt.Sprintf(folderEmpty, folder.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📂 %s", folder.Name)
	for i, c := range children {
		if i == maxListedChildren {
			fmt.Fprintf(&b, "\n… e mais %d", len(children)-maxListedChildren)
			break
		}
		icon := "📄"
		if c.IsFolder() {
			icon = "📁"
		}
		fmt.Fprintf(&b, "\n%s %s", icon, c.Name)
	}
	b.WriteString("\n\nPeça \"resuma os arquivos\" para uma análise.")
	return b.String()
}

// Summary is the day overview: today's events, pending tasks and the month's
// spending. Each section degrades on its own.
func (d *Dispatcher) Summary(ctx context.Context, conversationID string) string {
	now := d.localNow()
	var sections []string

	from := startOfDay(now)
	ectx, cancel := d.withTimeout(ctx)
	events, err := d.Calendar.ListEvents(ectx, from, from.AddDate(0, 0, 1))
	cancel()
	switch {
	case err != nil:
		d.logger.Warn("summary: calendar unavailable", "err", err)
		sections = append(sections, "📅 Agenda indisponível.")
	case len(events) == 0:
		sections = append(sections, "📅 Nenhum compromisso hoje.")
	default:
		sections = append(sections, fmt.Sprintf("📅 %d compromisso(s) hoje:\n%s", len(events), formatEvents(events, d.loc, false)))
	}

	tctx, cancel := d.withTimeout(ctx)
	tasks, err := d.Tasks.PendingTasks(tctx, conversationID)
	cancel()
	switch {
	case err != nil:
		d.logger.Warn("summary: tasks unavailable", "err", err)
		sections = append(sections, "📝 Tarefas indisponíveis.")
	default:
		sections = append(sections, fmt.Sprintf("📝 %d tarefa(s) pendente(s).", len(tasks)))
	}

	expenses, _, err := d.monthExpenses(ctx, conversationID)
	switch {
	case err != nil:
		d.logger.Warn("summary: expenses unavailable", "err", err)
		sections = append(sections, "💸 Gastos indisponíveis.")
	default:
		var total float64
		for _, e := range expenses {
			total += e.Amount
		}
		sections = append(sections, "💸 Gastos no mês: "+amount.FormatBRL(total))
	}

	return fmt.Sprintf("📊 Resumo de %s\n\n%s", now.Format("02/01"), strings.Join(sections, "\n\n"))
}

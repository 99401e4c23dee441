package dispatch

import (
	"context"
	"fmt"
	"strings"

	"jarvis-agent/internal/domain"
)

func (d *Dispatcher) taskCreate(ctx context.Context, conversationID string, in domain.Intent) string {
	if in.Item == "" {
		return askTaskItem
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	task, err := d.Tasks.AddTask(ctx, conversationID, in.Item)
	if err != nil {
		d.logger.Warn("add task failed", "conversation_id", conversationID, "err", err)
		return taskFailed
	}
	return "📝 Tarefa anotada: " + task.Title
}

func (d *Dispatcher) taskList(ctx context.Context, conversationID string) string {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	tasks, err := d.Tasks.PendingTasks(ctx, conversationID)
	if err != nil {
		d.logger.Warn("list tasks failed", "conversation_id", conversationID, "err", err)
		return taskFailed
	}
	if len(tasks) == 0 {
		return tasksEmpty
	}
	var b strings.Builder
	b.WriteString("📋 Tarefas pendentes:")
	for i, t := range tasks {
		fmt.Fprintf(&b, "\n%d. %s", i+1, t.Title)
	}
	return b.String()
}

// taskComplete completes the first pending task whose title contains the
// requested item, ignoring case.
func (d *Dispatcher) taskComplete(ctx context.Context, conversationID string, in domain.Intent) string {
	query := strings.ToLower(strings.TrimSpace(in.Item))
	if query == "" {
		return askTaskToComplete
	}
	listCtx, cancel := d.withTimeout(ctx)
	tasks, err := d.Tasks.PendingTasks(listCtx, conversationID)
	cancel()
	if err != nil {
		d.logger.Warn("list tasks failed", "conversation_id", conversationID, "err", err)
		return taskFailed
	}

	for _, t := range tasks {
		if !strings.Contains(strings.ToLower(t.Title), query) {
			continue
		}
		doneCtx, cancel := d.withTimeout(ctx)
		err := d.Tasks.CompleteTask(doneCtx, conversationID, t.ID)
		cancel()
		if err != nil {
			d.logger.Warn("complete task failed", "conversation_id", conversationID, "task_id", t.ID, "err", err)
			return taskFailed
		}
		return "✔️ Tarefa concluída: " + t.Title
	}
	return fmt.Sprintf("Não encontrei a tarefa \"%s\" entre as pendentes.", in.Item)
}

package usecase

import (
	"context"
	"strings"

	"jarvis-agent/internal/domain"
)

const (
	audioFailed  = "Não consegui entender o áudio."
	resetDone    = "🧠 Memória limpa."
	resetFailed  = "❌ Não consegui limpar a memória agora."
	menuGreeting = "Olá! Sou o Jarvis. Escolha uma opção ou me escreva o que precisa:"
)

var menuOptions = []domain.MenuOption{
	{Label: "📅 Agenda", Data: "menu_agenda"},
	{Label: "📝 Tarefas", Data: "menu_tasks"},
	{Label: "💰 Financeiro", Data: "menu_finance"},
	{Label: "📂 Drive", Data: "menu_drive"},
}

var menuActions = map[string]string{
	"menu_agenda":  "o que tenho na agenda hoje?",
	"menu_tasks":   "listar tarefas",
	"menu_finance": "relatório de gastos",
	"menu_drive":   "/pasta",
}

// menuText turns a button press into the text the user would have typed.
// Unknown buttons reopen the menu.
func menuText(data string) string {
	if text, ok := menuActions[data]; ok {
		return text
	}
	return "/menu"
}

// parseCommand splits "/pasta@JarvisBot Projeto Beta" into ("pasta",
// "Projeto Beta").
func parseCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, arg, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(arg), true
}

// runCommand handles the slash commands and reports whether cmd was one.
// Unknown commands go through classification like any other text.
func (o *Orchestrator) runCommand(ctx context.Context, conversationID, cmd, arg string, out *ProcessOutput) bool {
	switch cmd {
	case "reset":
		out.Reply = o.reset(ctx, conversationID)
	case "menu", "start":
		out.Reply = menuGreeting
		out.Delivered = o.sendMenu(ctx, conversationID)
		return true
	case "resumo":
		out.Reply = o.dispatcher.Summary(ctx, conversationID)
	case "pasta", "arquivos":
		out.Reply = o.dispatcher.ListFolder(ctx, conversationID, arg)
	default:
		return false
	}
	out.Delivered = o.send(ctx, conversationID, out.Reply)
	return true
}

// reset clears recent turns only; tasks, expenses and the folder context
// stay.
func (o *Orchestrator) reset(ctx context.Context, conversationID string) string {
	ctx, cancel := context.WithTimeout(ctx, 3*o.callTimeout)
	defer cancel()
	n, err := o.memory.Reset(ctx, conversationID)
	if err != nil {
		o.logger.Warn("reset failed", "conversation_id", conversationID, "deleted", n, "err", err)
		return resetFailed
	}
	o.logger.Info("memory reset", "conversation_id", conversationID, "deleted", n)
	return resetDone
}

func (o *Orchestrator) sendMenu(ctx context.Context, conversationID string) bool {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	if err := o.messenger.SendMenu(ctx, conversationID, menuGreeting, menuOptions); err != nil {
		o.logger.Error("failed to deliver menu", "conversation_id", conversationID, "code", Classify(err), "err", err)
		return false
	}
	return true
}

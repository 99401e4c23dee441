package classifier

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/textfold"
)

const (
	// GenericPrompt replaces replies that merely echo the user.
	GenericPrompt = "Entendi. Como posso ajudar?"

	// CapabilityMenu replaces low-information deflections.
	CapabilityMenu = "Posso ajudar com:\n" +
		"📅 Agenda: \"agendar reunião amanhã às 10h\", \"o que tenho hoje?\"\n" +
		"📝 Tarefas: \"anotar comprar pão\", \"listar tarefas\"\n" +
		"💸 Gastos: \"gastei 45,90 no almoço\", \"relatório de gastos\"\n" +
		"📂 Pastas: \"/pasta Projeto Beta\", \"resuma os arquivos\""

	// Apology is the converse reply when classification failed outright.
	Apology = "Desculpe, não consegui processar. Tente de novo."

	maxVacuousRunes = 80
)

// vacuousPatterns match short replies that carry no information. They are
// checked against the folded reply.
var vacuousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(ok|okay|certo|beleza|tudo bem|claro|entendido|entendi)[.!]*$`),
	regexp.MustCompile(`^(como|em que) (eu )?posso (te )?ajudar( hoje)?\?*$`),
	regexp.MustCompile(`^(desculpe,? )?(nao|não) (entendi|sei|tenho certeza)[.!]*$`),
	regexp.MustCompile(`^(nao|não) (posso|consigo) ajudar com isso[.!]*$`),
	regexp.MustCompile(`^(how can i help( you)?( today)?|i'?m not sure|i don'?t know)[.!?]*$`),
	regexp.MustCompile(`^\.*$`),
}

// applyGuards corrects converse replies that must never reach the user: an
// echo of the input (or nothing) becomes GenericPrompt; a vacuous deflection
// becomes CapabilityMenu.
func applyGuards(in domain.Intent, userText string) domain.Intent {
	if in.Kind != domain.IntentConverse && in.Kind != domain.IntentUnknown {
		return in
	}
	if isEcho(in.Reply, userText) {
		in.Reply = GenericPrompt
		return in
	}
	if isVacuous(in.Reply) {
		in.Reply = CapabilityMenu
	}
	return in
}

func isEcho(reply, userText string) bool {
	r := strings.Join(strings.Fields(strings.ToLower(reply)), " ")
	if r == "" {
		return true
	}
	return r == strings.Join(strings.Fields(strings.ToLower(userText)), " ")
}

func isVacuous(reply string) bool {
	if utf8.RuneCountInString(reply) > maxVacuousRunes {
		return false
	}
	folded := textfold.Fold(reply)
	for _, p := range vacuousPatterns {
		if p.MatchString(folded) {
			return true
		}
	}
	return false
}

package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jarvis-agent/internal/domain"
)

var weekdaysPT = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}

// intentSchema is the strict structured-output contract. Every field is
// required and empty strings mean "not provided".
var intentSchema = json.RawMessage(`{
	"type":"object",
	"additionalProperties":false,
	"properties":{
		"intent":{"type":"string","enum":["converse","schedule_create","schedule_query","task_create","task_list","task_complete","expense_create","expense_report","resource_analyze"]},
		"title":{"type":"string"},
		"start":{"type":"string"},
		"end":{"type":"string"},
		"description":{"type":"string"},
		"time_min":{"type":"string"},
		"time_max":{"type":"string"},
		"amount":{"type":"string"},
		"category":{"type":"string"},
		"item":{"type":"string"},
		"folder":{"type":"string"},
		"response":{"type":"string"}
	},
	"required":["intent","title","start","end","description","time_min","time_max","amount","category","item","folder","response"]
}`)

const systemPrompt = "Você é o Jarvis, um assistente pessoal que responde em português do Brasil. " +
	"Classifique a mensagem do usuário em exatamente uma intenção e devolva somente JSON."

func buildPrompt(now time.Time, text string, history []domain.Turn, isVoice bool) string {
	source := "texto digitado"
	if isVoice {
		source = "transcrição de áudio (pode conter erros de reconhecimento)"
	}
	return strings.Join([]string{
		"Data e hora atuais:",
		fmt.Sprintf("%s, %s (%s)", weekdaysPT[now.Weekday()], now.Format("02/01/2006 15:04"), now.Location()),
		"",
		"Intenções:",
		vocabulary(),
		"",
		"Regras:",
		rules(),
		"",
		"Exemplos:",
		examples(),
		"",
		"Histórico recente:",
		formatHistory(history),
		"",
		"Mensagem (" + source + "):",
		strings.TrimSpace(text),
	}, "\n")
}

func vocabulary() string {
	return strings.Join([]string{
		"- converse: conversa livre. Preencha response com a resposta ao usuário.",
		"- schedule_create: criar compromisso. Obrigatórios: title, start. Opcionais: end, description.",
		"- schedule_query: consultar a agenda. Opcionais: time_min, time_max (vazios = hoje).",
		"- task_create: anotar tarefa. Obrigatório: item.",
		"- task_list: listar tarefas pendentes.",
		"- task_complete: concluir tarefa. Obrigatório: item (parte do nome basta).",
		"- expense_create: registrar gasto. Obrigatório: amount (copie o valor como escrito). Opcionais: category, item.",
		"- expense_report: relatório de gastos do mês.",
		"- resource_analyze: ler e resumir arquivos de uma pasta. Opcional: folder (vazio = última pasta listada).",
	}, "\n")
}

func rules() string {
	return strings.Join([]string{
		"1) Nunca repita a mensagem do usuário em response.",
		"2) Datas e horas em formato ISO 8601 no fuso local, ex.: 2026-10-16T15:00:00.",
		"3) Resolva datas relativas (amanhã, sexta) a partir da data atual.",
		"4) Campos que não se aplicam ficam como string vazia.",
		"5) Responda em português do Brasil, de forma breve.",
	}, "\n")
}

func examples() string {
	return strings.Join([]string{
		`"Agendar dentista amanhã às 15h" -> {"intent":"schedule_create","title":"Dentista","start":"<amanhã>T15:00:00",...}`,
		`"O que tenho hoje?" -> {"intent":"schedule_query","time_min":"","time_max":"",...}`,
		`"Me lembra de comprar pão" -> {"intent":"task_create","item":"comprar pão",...}`,
		`"Terminei a tarefa do pão" -> {"intent":"task_complete","item":"pão",...}`,
		`"Adicione gasto 45,90 almoço" -> {"intent":"expense_create","amount":"45,90","category":"","item":"almoço",...}`,
		`"Quanto gastei este mês?" -> {"intent":"expense_report",...}`,
		`"Resume os arquivos da pasta Projeto Beta" -> {"intent":"resource_analyze","folder":"Projeto Beta",...}`,
		`"Oi" -> {"intent":"converse","response":"Olá! Em que posso ajudar hoje?",...}`,
	}, "\n")
}

func formatHistory(history []domain.Turn) string {
	if len(history) == 0 {
		return "(vazio)"
	}
	lines := make([]string, 0, len(history))
	for _, t := range history {
		who := "Usuário"
		if t.Role == domain.RoleAssistant {
			who = "Jarvis"
		}
		lines = append(lines, who+": "+normalizePromptInput(t.Content))
	}
	return strings.Join(lines, "\n")
}

func normalizePromptInput(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

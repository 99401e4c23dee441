package classifier

import (
	"strings"

	"jarvis-agent/internal/amount"
	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/textfold"
)

var (
	scheduleWords = []string{"agendar", "agende", "agenda um", "agenda uma", "marcar", "marque", "marca um", "marca uma"}
	queryWords    = []string{"agenda", "compromisso", "calendario", "eventos", "o que tenho"}
	expenseWords  = []string{"gasto", "gastei", "despesa", "paguei"}
)

// keywordFallback picks an intent from trigger words when the model output is
// unusable. Schedule and query fallbacks carry no timestamps, so the
// dispatcher will ask for them or default to today.
func keywordFallback(text string) domain.Intent {
	raw := strings.TrimSpace(text)
	switch {
	case textfold.ContainsAny(raw, scheduleWords...):
		return domain.Intent{Kind: domain.IntentScheduleCreate, Title: raw}
	case textfold.ContainsAny(raw, queryWords...):
		return domain.Intent{Kind: domain.IntentScheduleQuery}
	case textfold.ContainsAny(raw, expenseWords...) && amount.Parse(raw) > 0:
		return domain.Intent{Kind: domain.IntentExpenseCreate, AmountText: raw}
	default:
		return domain.Intent{Kind: domain.IntentConverse, Reply: Apology}
	}
}

package domain

import (
	"strings"
	"time"
)

// IntentKind is the closed set of actions the classifier can select.
type IntentKind string

const (
	IntentUnknown         IntentKind = ""
	IntentConverse        IntentKind = "converse"
	IntentScheduleCreate  IntentKind = "schedule_create"
	IntentScheduleQuery   IntentKind = "schedule_query"
	IntentTaskCreate      IntentKind = "task_create"
	IntentTaskList        IntentKind = "task_list"
	IntentTaskComplete    IntentKind = "task_complete"
	IntentExpenseCreate   IntentKind = "expense_create"
	IntentExpenseReport   IntentKind = "expense_report"
	IntentResourceAnalyze IntentKind = "resource_analyze"
)

// IntentKinds lists every known kind in prompt order.
var IntentKinds = []IntentKind{
	IntentConverse,
	IntentScheduleCreate,
	IntentScheduleQuery,
	IntentTaskCreate,
	IntentTaskList,
	IntentTaskComplete,
	IntentExpenseCreate,
	IntentExpenseReport,
	IntentResourceAnalyze,
}

var intentAliases = map[string]IntentKind{
	"conversa":         IntentConverse,
	"agendar":          IntentScheduleCreate,
	"consultar_agenda": IntentScheduleQuery,
	"add_task":         IntentTaskCreate,
	"list_tasks":       IntentTaskList,
	"complete_task":    IntentTaskComplete,
	"add_expense":      IntentExpenseCreate,
	"finance_report":   IntentExpenseReport,
	"analyze_project":  IntentResourceAnalyze,
}

// ParseIntentKind maps a wire tag to a kind. Hyphenated tags and the legacy
// Portuguese tags are accepted; anything else is IntentUnknown.
func ParseIntentKind(tag string) IntentKind {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.ReplaceAll(tag, "-", "_")
	for _, k := range IntentKinds {
		if string(k) == tag {
			return k
		}
	}
	return intentAliases[tag]
}

// Intent is a validated classifier result. Only the fields relevant to Kind
// are populated.
type Intent struct {
	Kind IntentKind

	// schedule_create
	Title       string
	Start       time.Time
	End         time.Time
	Description string

	// schedule_query
	TimeMin time.Time
	TimeMax time.Time

	// expense_create. AmountText is the classifier's rendering and is never
	// trusted for the stored amount.
	AmountText string
	Category   string

	// task_create, task_complete, expense_create
	Item string

	// resource_analyze
	Resource string

	// converse
	Reply string
}

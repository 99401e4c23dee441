package domain

import "time"

const (
	TaskPending = "pending"
	TaskDone    = "done"

	// DefaultExpenseCategory is used when no category is given.
	DefaultExpenseCategory = "outros"
)

type Task struct {
	ID        string
	Title     string
	Status    string
	CreatedAt time.Time
}

type Expense struct {
	ID       string
	Amount   float64
	Category string
	Item     string
	At       time.Time
}

// CalendarEvent is a calendar entry. AllDay events carry only a date in Start.
type CalendarEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"jarvis-agent/internal/amount"
	"jarvis-agent/internal/domain"
)

// expenseCreate takes the amount from the user's own words, never from the
// classifier's field, which models tend to reformat.
func (d *Dispatcher) expenseCreate(ctx context.Context, conversationID string, in domain.Intent, rawText string) string {
	value := amount.Parse(rawText)
	if value <= 0 {
		return askExpenseAmount
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		category = domain.DefaultExpenseCategory
	}
	item := strings.TrimSpace(in.Item)
	if item == "" {
		item = amount.Remainder(rawText)
	}
	if item == "" {
		item = "Gasto"
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	e, err := d.Expenses.AddExpense(ctx, conversationID, domain.Expense{
		Amount:   value,
		Category: category,
		Item:     item,
		At:       d.now(),
	})
	if err != nil {
		d.logger.Warn("add expense failed", "conversation_id", conversationID, "err", err)
		return expenseFailed
	}
	return fmt.Sprintf("💸 Gasto registrado: %s - %s (%s)", amount.FormatBRL(e.Amount), e.Item, e.Category)
}

func monthBounds(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	from := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}

func (d *Dispatcher) monthExpenses(ctx context.Context, conversationID string) ([]domain.Expense, time.Time, error) {
	from, to := monthBounds(d.localNow())
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	expenses, err := d.Expenses.ExpensesBetween(ctx, conversationID, from, to)
	return expenses, from, err
}

// expenseReport aggregates the current calendar month. An empty month gets an
// explicit message, never a zero-filled report.
func (d *Dispatcher) expenseReport(ctx context.Context, conversationID string) string {
	expenses, from, err := d.monthExpenses(ctx, conversationID)
	if err != nil {
		d.logger.Warn("expense report failed", "conversation_id", conversationID, "err", err)
		return reportFailed
	}
	if len(expenses) == 0 {
		return reportEmpty
	}

	byCategory := map[string]float64{}
	var total float64
	for _, e := range expenses {
		byCategory[e.Category] += e.Amount
		total += e.Amount
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var b strings.Builder
	fmt.Fprintf(&b, "💰 Gastos de %s/%d\n\nPor categoria:", monthsPT[from.Month()-1], from.Year())
	for _, c := range categories {
		fmt.Fprintf(&b, "\n• %s: %s", c, amount.FormatBRL(byCategory[c]))
	}
	fmt.Fprintf(&b, "\n\nTotal: %s\n\nLançamentos:", amount.FormatBRL(total))
	for _, e := range expenses {
		fmt.Fprintf(&b, "\n• %s %s - %s", e.At.In(d.loc).Format("02/01"), e.Item, amount.FormatBRL(e.Amount))
	}
	return b.String()
}

package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jarvis-agent/internal/domain"
)

func (d *Dispatcher) scheduleCreate(ctx context.Context, in domain.Intent) string {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.Start.IsZero() {
		return askScheduleDetails
	}
	start := in.Start.In(d.loc)
	end := in.End
	if end.IsZero() || !end.After(start) {
		end = start.Add(time.Hour)
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	err := d.Calendar.CreateEvent(ctx, domain.CalendarEvent{
		Title:       title,
		Description: in.Description,
		Start:       start,
		End:         end.In(d.loc),
	})
	if err != nil {
		d.logger.Warn("calendar create failed", "err", err)
		return scheduleFailed
	}
	return fmt.Sprintf("✅ Agendado: %s em %s às %s.", title, start.Format("02/01"), start.Format("15:04"))
}

func (d *Dispatcher) scheduleQuery(ctx context.Context, in domain.Intent) string {
	from, to := d.queryBounds(in)

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	events, err := d.Calendar.ListEvents(ctx, from, to)
	if err != nil {
		d.logger.Warn("calendar list failed", "err", err)
		return agendaFailed
	}
	if len(events) == 0 {
		return agendaEmpty
	}
	multiDay := to.Sub(from) > 24*time.Hour
	return "📅 Agenda:\n" + formatEvents(events, d.loc, multiDay)
}

// queryBounds defaults empty bounds to today, full day, in local time. A lone
// lower bound covers that day.
func (d *Dispatcher) queryBounds(in domain.Intent) (time.Time, time.Time) {
	from, to := in.TimeMin, in.TimeMax
	if from.IsZero() {
		from = startOfDay(d.localNow())
		if !to.IsZero() && !to.After(from) {
			from = startOfDay(to.In(d.loc))
		}
	}
	from = from.In(d.loc)
	if to.IsZero() || !to.After(from) {
		to = startOfDay(from).AddDate(0, 0, 1)
	}
	return from, to.In(d.loc)
}

func formatEvents(events []domain.CalendarEvent, loc *time.Location, withDate bool) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		start := ev.Start.In(loc)
		var when string
		switch {
		case ev.AllDay && withDate:
			when = ev.Start.Format("02/01") + " (dia todo)"
		case ev.AllDay:
			when = "(dia todo)"
		case withDate:
			when = start.Format("02/01 15:04")
		default:
			when = start.Format("15:04")
		}
		lines = append(lines, "• "+when+" - "+ev.Title)
	}
	return strings.Join(lines, "\n")
}

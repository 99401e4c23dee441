// Package gcal is the calendar collaborator backed by Google Calendar v3.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"jarvis-agent/internal/domain"
)

const maxPages = 20

// eventsAPI is the slice of the Calendar service the client uses.
type eventsAPI interface {
	Insert(ctx context.Context, calendarID string, ev *calendar.Event) (*calendar.Event, error)
	List(ctx context.Context, calendarID string, from, to time.Time, pageToken string) (*calendar.Events, error)
}

type serviceAPI struct {
	svc *calendar.Service
}

func (a serviceAPI) Insert(ctx context.Context, calendarID string, ev *calendar.Event) (*calendar.Event, error) {
	return a.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
}

func (a serviceAPI) List(ctx context.Context, calendarID string, from, to time.Time, pageToken string) (*calendar.Events, error) {
	call := a.svc.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

type Client struct {
	api        eventsAPI
	calendarID string
	loc        *time.Location
}

// NewService builds a Calendar service authenticated with a service-account
// JSON document.
func NewService(ctx context.Context, credentialsJSON []byte) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(calendar.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("gcal: NewService: %w", err)
	}
	return svc, nil
}

// New wraps svc. Naive times and all-day dates are read in loc.
func New(svc *calendar.Service, calendarID string, loc *time.Location) (*Client, error) {
	if svc == nil {
		return nil, errors.New("gcal: service must not be nil")
	}
	return newClient(serviceAPI{svc: svc}, calendarID, loc)
}

func newClient(api eventsAPI, calendarID string, loc *time.Location) (*Client, error) {
	if api == nil {
		return nil, errors.New("gcal: api must not be nil")
	}
	calendarID = strings.TrimSpace(calendarID)
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{api: api, calendarID: calendarID, loc: loc}, nil
}

func (c *Client) CreateEvent(ctx context.Context, ev domain.CalendarEvent) error {
	if strings.TrimSpace(ev.Title) == "" || ev.Start.IsZero() {
		return errors.New("gcal: CreateEvent: title and start are required")
	}
	end := ev.End
	if !end.After(ev.Start) {
		end = ev.Start.Add(time.Hour)
	}
	_, err := c.api.Insert(ctx, c.calendarID, &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       c.eventTime(ev.Start),
		End:         c.eventTime(end),
	})
	if err != nil {
		return fmt.Errorf("gcal: CreateEvent: %w", err)
	}
	return nil
}

func (c *Client) eventTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.In(c.loc).Format(time.RFC3339),
		TimeZone: c.loc.String(),
	}
}

// ListEvents returns the single (expanded) events overlapping [from, to),
// ordered by start.
func (c *Client) ListEvents(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error) {
	var (
		out       []domain.CalendarEvent
		pageToken string
	)
	for page := 0; page < maxPages; page++ {
		res, err := c.api.List(ctx, c.calendarID, from, to, pageToken)
		if err != nil {
			return nil, fmt.Errorf("gcal: ListEvents: %w", err)
		}
		for _, item := range res.Items {
			if item == nil || item.Status == "cancelled" {
				continue
			}
			ev, err := c.toDomain(item)
			if err != nil {
				return nil, fmt.Errorf("gcal: ListEvents: %w", err)
			}
			out = append(out, ev)
		}
		if res.NextPageToken == "" || res.NextPageToken == pageToken {
			break
		}
		pageToken = res.NextPageToken
	}
	return out, nil
}

func (c *Client) toDomain(item *calendar.Event) (domain.CalendarEvent, error) {
	ev := domain.CalendarEvent{Title: item.Summary, Description: item.Description}
	if ev.Title == "" {
		ev.Title = "(sem título)"
	}
	var err error
	if ev.Start, ev.AllDay, err = c.parseTime(item.Start); err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("event %s start: %w", item.Id, err)
	}
	if ev.End, _, err = c.parseTime(item.End); err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("event %s end: %w", item.Id, err)
	}
	return ev, nil
}

func (c *Client) parseTime(dt *calendar.EventDateTime) (time.Time, bool, error) {
	switch {
	case dt == nil:
		return time.Time{}, false, nil
	case dt.DateTime != "":
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, false, err
	case dt.Date != "":
		t, err := time.ParseInLocation("2006-01-02", dt.Date, c.loc)
		return t, true, err
	}
	return time.Time{}, false, nil
}

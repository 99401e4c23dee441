package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"jarvis-agent/internal/domain"
)

var fencePattern = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*(.*?)\\s*```$")

// textValue accepts a JSON string, number or null. Models outside strict mode
// sometimes emit amounts as numbers.
type textValue string

func (v *textValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = textValue(s)
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		*v = textValue(b)
	default:
		return fmt.Errorf("unsupported JSON value %s", b)
	}
	return nil
}

type wireIntent struct {
	Intent      textValue `json:"intent"`
	Title       textValue `json:"title"`
	Start       textValue `json:"start"`
	End         textValue `json:"end"`
	Description textValue `json:"description"`
	TimeMin     textValue `json:"time_min"`
	TimeMax     textValue `json:"time_max"`
	Amount      textValue `json:"amount"`
	Category    textValue `json:"category"`
	Item        textValue `json:"item"`
	Folder      textValue `json:"folder"`
	Response    textValue `json:"response"`
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// parseIntent decodes the model output into a validated Intent. Unknown tags
// become IntentUnknown; unparseable timestamps are dropped so the dispatcher
// asks for them.
func parseIntent(raw string, loc *time.Location) (domain.Intent, error) {
	var w wireIntent
	dec := json.NewDecoder(strings.NewReader(stripFences(raw)))
	if err := dec.Decode(&w); err != nil {
		return domain.Intent{}, fmt.Errorf("classifier: decode intent: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return domain.Intent{}, errors.New("classifier: decode intent: multiple JSON values")
		}
		return domain.Intent{}, fmt.Errorf("classifier: decode intent trailing data: %w", err)
	}
	if strings.TrimSpace(string(w.Intent)) == "" {
		return domain.Intent{}, errors.New("classifier: intent tag is missing")
	}

	in := domain.Intent{Kind: domain.ParseIntentKind(string(w.Intent))}
	switch in.Kind {
	case domain.IntentScheduleCreate:
		in.Title = clean(w.Title)
		in.Start = parseTimestamp(string(w.Start), loc)
		in.End = parseTimestamp(string(w.End), loc)
		in.Description = clean(w.Description)
	case domain.IntentScheduleQuery:
		in.TimeMin = parseTimestamp(string(w.TimeMin), loc)
		in.TimeMax = parseTimestamp(string(w.TimeMax), loc)
	case domain.IntentTaskCreate, domain.IntentTaskComplete:
		in.Item = clean(w.Item)
	case domain.IntentExpenseCreate:
		in.AmountText = clean(w.Amount)
		in.Category = clean(w.Category)
		in.Item = clean(w.Item)
	case domain.IntentResourceAnalyze:
		in.Resource = clean(w.Folder)
	case domain.IntentConverse, domain.IntentUnknown:
		in.Reply = strings.TrimSpace(string(w.Response))
	}
	return in, nil
}

func clean(v textValue) string {
	return strings.TrimSpace(string(v))
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339 or a naive local timestamp interpreted in
// loc. It returns the zero time when s is empty or unparseable.
func parseTimestamp(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc)
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

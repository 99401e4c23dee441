package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Role identifies who authored a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry in a conversation's rolling history.
type Turn struct {
	Role    Role
	Content string
	At      time.Time
}

// FolderContext is the last folder a conversation inspected. There is at most
// one per conversation and it is always overwritten.
type FolderContext struct {
	FolderID string
	Name     string
	Children []Resource
	At       time.Time
}

// ChildNames returns the names of the folder's children in listing order.
func (f FolderContext) ChildNames() []string {
	names := make([]string, 0, len(f.Children))
	for _, c := range f.Children {
		names = append(names, c.Name)
	}
	return names
}

// ConversationID normalizes a chat identifier into the string form used for
// every storage key. Numeric identifiers arrive as int64, float64 or
// json.Number depending on the decoder.
func ConversationID(v any) (string, error) {
	var id string
	switch t := v.(type) {
	case string:
		id = strings.TrimSpace(t)
	case json.Number:
		id = strings.TrimSpace(t.String())
	case int:
		id = strconv.Itoa(t)
	case int64:
		id = strconv.FormatInt(t, 10)
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return "", fmt.Errorf("domain: conversation id %v is not an integer", t)
		}
		id = strconv.FormatInt(int64(t), 10)
	case nil:
		return "", errors.New("domain: conversation id is required")
	default:
		return "", fmt.Errorf("domain: unsupported conversation id type %T", v)
	}
	if id == "" {
		return "", errors.New("domain: conversation id is required")
	}
	return id, nil
}

package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// tokenPayload is the JSON shape API tokens are stored in.
type tokenPayload struct {
	Token string `json:"token"`
}

// Secret is a named parameter with a decoding rule. It is read through its
// Getter on every use; *Client caches values for its TTL.
type Secret struct {
	getter Getter
	name   string
	decode func(string) (string, error)
}

// NewToken returns a Secret holding an API token stored as {"token": "..."}.
func NewToken(g Getter, name string) (*Secret, error) {
	return newSecret(g, name, decodeToken)
}

// NewRaw returns a Secret whose parameter value is used verbatim, e.g. a
// service-account JSON document.
func NewRaw(g Getter, name string) (*Secret, error) {
	return newSecret(g, name, func(v string) (string, error) {
		if strings.TrimSpace(v) == "" {
			return "", errors.New("paramstore: secret value is empty")
		}
		return v, nil
	})
}

func newSecret(g Getter, name string, decode func(string) (string, error)) (*Secret, error) {
	if g == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: secret name is empty")
	}
	return &Secret{getter: g, name: name, decode: decode}, nil
}

func (s *Secret) Name() string {
	return s.name
}

func (s *Secret) Value(ctx context.Context) (string, error) {
	raw, err := s.getter.GetParameter(ctx, s.name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch %s: %w", s.name, err)
	}
	return s.decode(raw)
}

func decodeToken(raw string) (string, error) {
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("paramstore: API token is empty")
	}
	return tp.Token, nil
}

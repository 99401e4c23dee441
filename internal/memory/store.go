// Package memory is the conversational context store: the short rolling
// history given to the classifier and the sticky folder context.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"jarvis-agent/internal/domain"
)

const (
	DefaultHistoryLimit = 6
	DefaultResetLimit   = 50
)

// Backend is the document store the context store is built on.
type Backend interface {
	AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error
	LatestTurns(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
	DeleteRecentTurns(ctx context.Context, conversationID string, limit int) (int, error)
	SetFolderContext(ctx context.Context, conversationID string, fc domain.FolderContext) error
	GetFolderContext(ctx context.Context, conversationID string) (domain.FolderContext, bool, error)
}

type Store struct {
	backend      Backend
	historyLimit int
	resetLimit   int
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*Store)

func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithResetLimit bounds how many of the most recent turns a reset removes.
func WithResetLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.resetLimit = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(b Backend, opts ...Option) (*Store, error) {
	if b == nil {
		return nil, errors.New("memory: backend must not be nil")
	}
	s := &Store{
		backend:      b,
		historyLimit: DefaultHistoryLimit,
		resetLimit:   DefaultResetLimit,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "memory")
	return s, nil
}

// HistoryLimit is the default window used by RecentTurns.
func (s *Store) HistoryLimit() int {
	return s.historyLimit
}

func (s *Store) AppendTurn(ctx context.Context, conversationID string, role domain.Role, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	turn := domain.Turn{Role: role, Content: content, At: s.now().UTC()}
	if err := s.backend.AppendTurn(ctx, conversationID, turn); err != nil {
		return fmt.Errorf("memory: append turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turns oldest first. A failing or empty
// store yields an empty history.
func (s *Store) RecentTurns(ctx context.Context, conversationID string, limit int) []domain.Turn {
	if limit <= 0 {
		limit = s.historyLimit
	}
	turns, err := s.backend.LatestTurns(ctx, conversationID, limit)
	if err != nil {
		s.logger.Warn("history unavailable, continuing without it", "conversation_id", conversationID, "err", err)
		return []domain.Turn{}
	}
	out := slices.Clone(turns)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b domain.Turn) int {
		return a.At.Compare(b.At)
	})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Reset removes the most recent turns, up to the configured bound. Tasks,
// expenses and the folder context are left alone.
func (s *Store) Reset(ctx context.Context, conversationID string) (int, error) {
	n, err := s.backend.DeleteRecentTurns(ctx, conversationID, s.resetLimit)
	if err != nil {
		return 0, fmt.Errorf("memory: reset: %w", err)
	}
	s.logger.Info("history reset", "conversation_id", conversationID, "deleted", n)
	return n, nil
}

func (s *Store) SetFolderContext(ctx context.Context, conversationID string, fc domain.FolderContext) error {
	if fc.At.IsZero() {
		fc.At = s.now().UTC()
	}
	if err := s.backend.SetFolderContext(ctx, conversationID, fc); err != nil {
		return fmt.Errorf("memory: set folder context: %w", err)
	}
	return nil
}

// GetFolderContext returns the sticky folder context. Store failures read as
// absent.
func (s *Store) GetFolderContext(ctx context.Context, conversationID string) (domain.FolderContext, bool) {
	fc, ok, err := s.backend.GetFolderContext(ctx, conversationID)
	if err != nil {
		s.logger.Warn("folder context unavailable", "conversation_id", conversationID, "err", err)
		return domain.FolderContext{}, false
	}
	return fc, ok
}

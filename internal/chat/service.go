package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"yashubustudio/sentiment/internal/sentiment"
)

// Analyzer scores text.
type Analyzer interface {
	Score(ctx context.Context, text string) (sentiment.Result, error)
}

// Translator converts text into the language the model understands. On
// failure implementations return the input unchanged alongside the error.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Service posts and lists chat messages.
type Service struct {
	repo       Repository
	analyzer   Analyzer
	translator Translator
	clock      clockwork.Clock
	logger     *zap.Logger
}

// NewService wires a repository, analyzer and translator. A nil clock uses
// wall time; a nil analyzer stores every message as SentimentUnknown.
func NewService(repo Repository, analyzer Analyzer, translator Translator, clock clockwork.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		analyzer:   analyzer,
		translator: translator,
		clock:      clock,
		logger:     logger,
	}
}

// Post stores a message with the sentiment of its (translated) text.
// Scoring problems never fail the post; the label falls back to Unknown.
func (s *Service) Post(ctx context.Context, nickname, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrInvalidMessage
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = AnonymousNickname
	}

	now := s.clock.Now().UTC()
	user, err := s.repo.FindOrCreateUser(ctx, nickname, now)
	if err != nil {
		return Message{}, fmt.Errorf("find user: %w", err)
	}

	msg := Message{
		UserID:    user.ID,
		Nickname:  user.Nickname,
		Text:      text,
		Sentiment: s.label(ctx, text),
		CreatedAt: now,
	}
	if err := s.repo.SaveMessage(ctx, &msg); err != nil {
		return Message{}, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}

func (s *Service) label(ctx context.Context, text string) string {
	input := text
	if s.translator != nil {
		translated, err := s.translator.Translate(ctx, text)
		if err != nil {
			s.logger.Warn("Translation failed, scoring original text", zap.Error(err))
		} else if strings.TrimSpace(translated) != "" {
			input = translated
		}
	}
	if s.analyzer == nil {
		return SentimentUnknown
	}
	res, err := s.analyzer.Score(ctx, input)
	if err != nil {
		s.logger.Error("Sentiment scoring failed", zap.Error(err))
		return SentimentUnknown
	}
	return res.Label
}

// List returns the newest messages first.
func (s *Service) List(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	msgs, err := s.repo.ListMessages(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

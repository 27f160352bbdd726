package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/sentiment/internal/sentiment"
)

type stubAnalyzer struct {
	labels map[string]string
	err    error
	seen   []string
}

func (s *stubAnalyzer) Score(_ context.Context, text string) (sentiment.Result, error) {
	s.seen = append(s.seen, text)
	if s.err != nil {
		return sentiment.Result{}, s.err
	}
	if l, ok := s.labels[text]; ok {
		return sentiment.Result{Label: l}, nil
	}
	return sentiment.Result{Label: sentiment.LabelNeutral}, nil
}

type stubTranslator struct {
	out string
	err error
}

func (s stubTranslator) Translate(_ context.Context, text string) (string, error) {
	if s.err != nil {
		return text, s.err
	}
	return s.out, nil
}

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(analyzer Analyzer, translator Translator) (*Service, *MemoryRepository, *clockwork.FakeClock) {
	repo := NewMemoryRepository()
	clock := clockwork.NewFakeClockAt(epoch)
	return NewService(repo, analyzer, translator, clock, nil), repo, clock
}

func TestPost_ScoresTranslatedText(t *testing.T) {
	analyzer := &stubAnalyzer{labels: map[string]string{"I am very happy": sentiment.LabelPositive}}
	svc, _, _ := newTestService(analyzer, stubTranslator{out: "I am very happy"})

	msg, err := svc.Post(context.Background(), "  ayse ", "Çok mutluyum")
	require.NoError(t, err)

	assert.Equal(t, int64(1), msg.ID)
	assert.Equal(t, "ayse", msg.Nickname)
	assert.Equal(t, "Çok mutluyum", msg.Text, "original text is stored")
	assert.Equal(t, sentiment.LabelPositive, msg.Sentiment)
	assert.Equal(t, epoch, msg.CreatedAt)
	assert.Equal(t, []string{"I am very happy"}, analyzer.seen)
}

func TestPost_TranslationFailureFallsBack(t *testing.T) {
	analyzer := &stubAnalyzer{}
	svc, _, _ := newTestService(analyzer, stubTranslator{err: errors.New("quota exceeded")})

	_, err := svc.Post(context.Background(), "bob", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, analyzer.seen)
}

func TestPost_ScoringFailureStoresUnknown(t *testing.T) {
	svc, _, _ := newTestService(&stubAnalyzer{err: errors.New("session closed")}, nil)

	msg, err := svc.Post(context.Background(), "bob", "hello")
	require.NoError(t, err)
	assert.Equal(t, SentimentUnknown, msg.Sentiment)
}

func TestPost_Validation(t *testing.T) {
	svc, _, _ := newTestService(&stubAnalyzer{}, nil)

	_, err := svc.Post(context.Background(), "bob", "   ")
	assert.ErrorIs(t, err, ErrInvalidMessage)

	msg, err := svc.Post(context.Background(), " ", "hi")
	require.NoError(t, err)
	assert.Equal(t, AnonymousNickname, msg.Nickname)
}

func TestPost_ReusesUsers(t *testing.T) {
	svc, _, _ := newTestService(&stubAnalyzer{}, nil)

	first, err := svc.Post(context.Background(), "bob", "one")
	require.NoError(t, err)
	second, err := svc.Post(context.Background(), "bob", "two")
	require.NoError(t, err)
	other, err := svc.Post(context.Background(), "alice", "three")
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
	assert.NotEqual(t, first.UserID, other.UserID)
}

func TestList_NewestFirstAndLimits(t *testing.T) {
	svc, _, clock := newTestService(&stubAnalyzer{}, nil)
	for _, text := range []string{"a", "b", "c"} {
		_, err := svc.Post(context.Background(), "bob", text)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	msgs, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "c", msgs[0].Text)
	assert.Equal(t, "a", msgs[2].Text)

	msgs, err = svc.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

type limitSpy struct {
	*MemoryRepository
	got int
}

func (l *limitSpy) ListMessages(ctx context.Context, limit int) ([]Message, error) {
	l.got = limit
	return l.MemoryRepository.ListMessages(ctx, limit)
}

func TestList_ClampsLimit(t *testing.T) {
	spy := &limitSpy{MemoryRepository: NewMemoryRepository()}
	svc := NewService(spy, &stubAnalyzer{}, nil, clockwork.NewFakeClock(), nil)

	_, err := svc.List(context.Background(), -5)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, spy.got)

	_, err = svc.List(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, spy.got)
}

func TestMemoryRepository_SameTimestampOrdersByID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for _, text := range []string{"first", "second"} {
		require.NoError(t, repo.SaveMessage(ctx, &Message{Text: text, CreatedAt: epoch}))
	}
	msgs, err := repo.ListMessages(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "second", msgs[0].Text)
	assert.NoError(t, repo.Ping(ctx))
}

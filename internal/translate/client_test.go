package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	state    int
}

func (r *recordingObserver) ObserveTranslation(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingObserver) SetBreakerState(state int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

func TestTranslate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Çok güzel", r.URL.Query().Get("q"))
		assert.Equal(t, "tr|en", r.URL.Query().Get("langpair"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"Very nice","match":1},"responseStatus":200}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewClient(srv.URL, "tr|en", time.Second, obs, nil)

	got, err := c.Translate(context.Background(), "Çok güzel")
	require.NoError(t, err)
	assert.Equal(t, "Very nice", got)
	assert.Equal(t, []string{"ok"}, obs.outcomes)
}

func TestTranslate_FailuresReturnOriginal(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
		{"missing text", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"responseData":{}}`))
		}},
		{"quota exceeded", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"responseData":{"translatedText":"MYMEMORY WARNING: YOU USED ALL AVAILABLE FREE TRANSLATIONS FOR TODAY."},"responseStatus":429}`))
		}},
		{"invalid langpair as string status", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"responseData":{"translatedText":"INVALID LANGUAGE PAIR SPECIFIED"},"responseStatus":"403"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, "tr|en", time.Second, nil, nil)
			got, err := c.Translate(context.Background(), "merhaba")
			assert.Error(t, err)
			assert.Equal(t, "merhaba", got)
		})
	}
}

func TestTranslate_QuotaWarningCountsAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"MYMEMORY WARNING: QUOTA"},"responseStatus":429}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewClient(srv.URL, "tr|en", time.Second, obs, nil)
	for i := 0; i < 5; i++ {
		got, err := c.Translate(context.Background(), "selam")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Equal(t, "selam", got)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())
}

func TestResponseStatus(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{``, 0, false},
		{`null`, 0, false},
		{`200`, 200, true},
		{`"200"`, 200, true},
		{`"429"`, 429, true},
		{`{}`, -1, true},
	}
	for _, tt := range tests {
		got, ok := responseStatus([]byte(tt.raw))
		assert.Equal(t, tt.wantOK, ok, "raw %q", tt.raw)
		assert.Equal(t, tt.want, got, "raw %q", tt.raw)
	}
}

func TestTranslate_BreakerOpens(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewClient(srv.URL, "tr|en", time.Second, obs, nil)

	for i := 0; i < 5; i++ {
		_, err := c.Translate(context.Background(), "x")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())
	assert.Equal(t, int(gobreaker.StateOpen), obs.state)

	got, err := c.Translate(context.Background(), "x")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, "x", got)
	assert.Equal(t, 5, calls, "open breaker must not reach the server")
	assert.Equal(t, "rejected", obs.outcomes[len(obs.outcomes)-1])
}

func TestNop(t *testing.T) {
	got, err := Nop{}.Translate(context.Background(), "aynen")
	require.NoError(t, err)
	assert.Equal(t, "aynen", got)
}

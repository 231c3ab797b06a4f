package oauthutil

import (
	"sync"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeSource struct {
	mu     sync.Mutex
	tokens []*oauth2.Token
	i      int
}

func (f *fakeSource) Token() (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := f.tokens[f.i]
	if f.i < len(f.tokens)-1 {
		f.i++
	}
	return tok, nil
}

func TestNotifyingTokenSourceNotifiesOnlyOnChange(t *testing.T) {
	fs := &fakeSource{tokens: []*oauth2.Token{
		{AccessToken: "a"},
		{AccessToken: "b"},
	}}

	var mu sync.Mutex
	var seen []string
	s := &NotifyingTokenSource{
		src: fs,
		notify: func(tok *oauth2.Token) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, tok.AccessToken)
			return nil
		},
		log: (*logging.TestLogger)(t),
	}

	for i := 0; i < 3; i++ {
		_, err := s.Token()
		require.NoError(t, err)
	}
	fs.i = 1
	for i := 0; i < 3; i++ {
		_, err := s.Token()
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestNotifyingTokenSourceIsConcurrencySafe(t *testing.T) {
	fs := &fakeSource{tokens: []*oauth2.Token{{AccessToken: "only"}}}
	s := &NotifyingTokenSource{
		src:    fs,
		notify: func(*oauth2.Token) error { return nil },
		log:    (*logging.TestLogger)(t),
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Token()
			assert.NoError(t, err)
		}()
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out, likely deadlock")
	}
}

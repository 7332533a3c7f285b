package gopixel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

const (
	successBody  = `{"success":true}`
	throttleBody = `{"success":false,"cause":"Key throttle","throttle":true,"global":true}`
)

type recordedCall struct {
	path      string
	key       string
	query     url.Values
	rawQuery  string
	userAgent string
}

// fakeAPI is an httptest server that records every call and answers with
// respond.
type fakeAPI struct {
	*httptest.Server

	mu    sync.Mutex
	calls []recordedCall
}

func newFakeAPI(t *testing.T, respond func(call recordedCall) (int, string)) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{
			path:      r.URL.Path,
			key:       r.URL.Query().Get("key"),
			query:     r.URL.Query(),
			rawQuery:  r.URL.RawQuery,
			userAgent: r.Header.Get("User-Agent"),
		}
		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.mu.Unlock()

		status, body := respond(call)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) base() string {
	return f.URL + "/"
}

func (f *fakeAPI) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func (f *fakeAPI) keys() []string {
	calls := f.recorded()
	keys := make([]string, len(calls))
	for i, call := range calls {
		keys[i] = call.key
	}
	return keys
}

func (f *fakeAPI) hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// sleepRecorder replaces the retry wait so tests run instantly.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}

func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *settings) {
		s.sleep = sleep
	}
}

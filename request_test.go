package gopixel

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequesterCall(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusOK, `{"success":true,"booster":[{"amount":3}]}`
	})

	r, err := NewRequester()
	if err != nil {
		t.Fatalf("NewRequester() error = %v", err)
	}

	resp, err := r.Call(context.Background(), api.base(), "boosters", Params{"key": "secret"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !resp.Success() {
		t.Errorf("Expected success, got %v", resp)
	}
	if _, ok := resp["booster"].([]interface{}); !ok {
		t.Errorf("Expected booster array, got %T", resp["booster"])
	}

	calls := api.recorded()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(calls))
	}
	if calls[0].path != "/boosters" {
		t.Errorf("Expected path /boosters, got %s", calls[0].path)
	}
	if calls[0].key != "secret" {
		t.Errorf("Expected key=secret, got %q", calls[0].key)
	}
	if calls[0].userAgent != "application/json" {
		t.Errorf("Expected User-Agent application/json, got %q", calls[0].userAgent)
	}
}

func TestRequesterEscapesParams(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusOK, successBody
	})

	r, _ := NewRequester()
	_, err := r.Call(context.Background(), api.base(), "findGuild", Params{"key": "k", "byName": "Rock & Roll=1"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	call := api.recorded()[0]
	if got := call.query.Get("byName"); got != "Rock & Roll=1" {
		t.Errorf("Expected byName to survive encoding, got %q", got)
	}
	if call.rawQuery != "byName=Rock+%26+Roll%3D1&key=k" {
		t.Errorf("Unexpected raw query %q", call.rawQuery)
	}
}

func TestRequesterUnescapedQuery(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusOK, successBody
	})

	r, _ := NewRequester(WithUnescapedQuery())
	_, err := r.Call(context.Background(), api.base(), "player", Params{"key": "k", "name": "Notch"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if raw := api.recorded()[0].rawQuery; raw != "key=k&name=Notch" {
		t.Errorf("Expected key=k&name=Notch, got %q", raw)
	}
}

func TestRequesterNoParams(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusOK, successBody
	})

	r, _ := NewRequester()
	if _, err := r.Call(context.Background(), api.base(), "leaderboards", nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if raw := api.recorded()[0].rawQuery; raw != "" {
		t.Errorf("Expected empty query, got %q", raw)
	}
}

func TestRequesterNon2xx(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusForbidden, `{"success":false,"cause":"Invalid API key"}`
	})

	r, _ := NewRequester()
	resp, err := r.Call(context.Background(), api.base(), "key", Params{"key": "secret"})
	if resp != nil {
		t.Errorf("Expected nil response, got %v", resp)
	}
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected ErrTransport, got %v", err)
	}

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("Expected *ClientError, got %T", err)
	}
	if clientErr.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", clientErr.StatusCode)
	}
	if clientErr.Action != "key" {
		t.Errorf("Expected action key, got %q", clientErr.Action)
	}
	if strings.Contains(clientErr.URL, "secret") || strings.Contains(err.Error(), "secret") {
		t.Errorf("Key leaked into error: %q / %q", clientErr.URL, err.Error())
	}
	if !strings.Contains(clientErr.URL, "key=REDACTED") {
		t.Errorf("Expected redacted key in URL, got %q", clientErr.URL)
	}
	if IsRetryable(err) {
		t.Error("403 should not be retryable")
	}
}

func TestRequesterStatusPassthrough(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusTooManyRequests, throttleBody
	})

	r, _ := NewRequester(WithStatusPassthrough(http.StatusTooManyRequests))
	resp, err := r.Call(context.Background(), api.base(), "boosters", Params{"key": "k"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !resp.Throttled() {
		t.Errorf("Expected throttled response, got %v", resp)
	}
}

func TestRequesterDecodeErrors(t *testing.T) {
	bodies := []string{"not json", "[1,2,3]", "null", ""}

	for _, body := range bodies {
		api := newFakeAPI(t, func(recordedCall) (int, string) {
			return http.StatusOK, body
		})

		r, _ := NewRequester()
		_, err := r.Call(context.Background(), api.base(), "boosters", Params{"key": "k"})
		if !errors.Is(err, ErrDecode) {
			t.Errorf("body %q: expected ErrDecode, got %v", body, err)
		}
	}
}

func TestRequesterConnectionFailure(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusOK, successBody
	})
	base := api.base()
	api.Close()

	r, _ := NewRequester(WithTimeout(time.Second))
	_, err := r.Call(context.Background(), base, "boosters", Params{"key": "k"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected ErrTransport, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("Connection failures should be retryable")
	}
}

func TestRequesterMiddleware(t *testing.T) {
	var order []string
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		order = append(order, "server")
		return http.StatusOK, successBody
	})

	trace := func(name string) Middleware {
		return func(req *http.Request, next RoundTripper) (*http.Response, error) {
			order = append(order, name)
			return next.RoundTrip(req)
		}
	}

	r, _ := NewRequester(WithMiddleware(trace("first"), trace("second")))
	if _, err := r.Call(context.Background(), api.base(), "boosters", nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	want := []string{"first", "second", "server"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("Expected order %v, got %v", want, order)
	}
}

func TestRequesterCache(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusOK, `{"success":true,"guild":null}`
	})
	metrics := NewMetricsCollectorWithRegistry(prometheus.NewRegistry())

	r, _ := NewRequester(WithCache(time.Minute), WithMetricsCollector(metrics))
	ctx := context.Background()

	for _, key := range []string{"k0", "k1", "k0"} {
		if _, err := r.Call(ctx, api.base(), "guild", Params{"key": key, "id": "g1"}); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}
	if api.hits() != 1 {
		t.Errorf("Expected 1 request for the same params under different keys, got %d", api.hits())
	}

	if _, err := r.Call(ctx, api.base(), "guild", Params{"key": "k0", "id": "g2"}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if api.hits() != 2 {
		t.Errorf("Expected a miss for other params, got %d requests", api.hits())
	}

	if got := testutil.ToFloat64(metrics.cacheHits.WithLabelValues("guild")); got != 2 {
		t.Errorf("Expected 2 cache hits, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.cacheMisses.WithLabelValues("guild")); got != 2 {
		t.Errorf("Expected 2 cache misses, got %v", got)
	}
}

func TestRequesterCacheSkipsThrottledAndFailed(t *testing.T) {
	bodies := []string{throttleBody, `{"success":false,"cause":"Invalid"}`}

	for _, body := range bodies {
		api := newFakeAPI(t, func(recordedCall) (int, string) {
			return http.StatusOK, body
		})

		r, _ := NewRequester(WithCache(time.Minute))
		for i := 0; i < 2; i++ {
			if _, err := r.Call(context.Background(), api.base(), "boosters", Params{"key": "k"}); err != nil {
				t.Fatalf("Call() error = %v", err)
			}
		}
		if api.hits() != 2 {
			t.Errorf("body %s: expected 2 requests, got %d", body, api.hits())
		}
	}
}

func TestRequesterCacheSkipsKeyInfo(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusOK, `{"success":true,"record":{"queriesInPastMin":1}}`
	})

	r, _ := NewRequester(WithCache(time.Minute))
	for i := 0; i < 2; i++ {
		if _, err := r.Call(context.Background(), api.base(), "key", Params{"key": "k"}); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}
	if api.hits() != 2 {
		t.Errorf("Expected key info to bypass the cache, got %d requests", api.hits())
	}
}

func TestEncodeQuery(t *testing.T) {
	got := EncodeQuery(Params{"name": "a b", "key": "k", "byName": "x&y"})
	want := "byName=x%26y&key=k&name=a+b"
	if got != want {
		t.Errorf("EncodeQuery() = %q, want %q", got, want)
	}

	params, err := ParseQuery("?" + got)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if params["byName"] != "x&y" || params["name"] != "a b" || params["key"] != "k" {
		t.Errorf("ParseQuery() = %v", params)
	}

	if EncodeQuery(nil) != "" {
		t.Error("Expected empty query for nil params")
	}
}

func TestParseQueryFirstValueWins(t *testing.T) {
	params, err := ParseQuery("key=a&key=b")
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if params["key"] != "a" {
		t.Errorf("Expected first value, got %q", params["key"])
	}

	if _, err := ParseQuery("%zz"); err == nil {
		t.Error("Expected error for malformed query")
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.example.test/boosters?key=secret", "https://api.example.test/boosters?key=REDACTED"},
		{"https://api.example.test/player?key=secret&name=Notch", "https://api.example.test/player?key=REDACTED&name=Notch"},
		{"https://api.example.test/leaderboards", "https://api.example.test/leaderboards"},
		{"://bad\x7f?key=secret", "://bad\x7f"},
	}

	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("Expected nil for zero delay, got %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Expected nil after short delay, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if err := sleepContext(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled for zero delay on a done context, got %v", err)
	}
}

func TestRequesterConnectionFailureHidesKey(t *testing.T) {
	api := newFakeAPI(t, func(recordedCall) (int, string) {
		return http.StatusOK, successBody
	})
	base := api.base()
	api.Close()

	r, _ := NewRequester()
	_, err := r.Call(context.Background(), base, "boosters", Params{"key": "secret"})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("Key leaked into error: %v", err)
	}
}

func TestRequesterInvalidURLHidesKey(t *testing.T) {
	r, _ := NewRequester(WithUnescapedQuery())

	_, err := r.Call(context.Background(), "http://127.0.0.1:1/", "friends", Params{"key": "SECRETKEY", "player": "a\nb"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected ErrTransport, got %v", err)
	}
	if strings.Contains(err.Error(), "SECRETKEY") {
		t.Errorf("Key leaked into error: %v", err)
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) && strings.Contains(clientErr.URL, "SECRETKEY") {
		t.Errorf("Key leaked into URL: %q", clientErr.URL)
	}
}

func TestRedactError(t *testing.T) {
	err := redactError(&url.Error{Op: "Get", URL: "https://api.example.test/key?key=secret", Err: errors.New("refused")})
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("Key leaked: %v", err)
	}

	plain := errors.New("plain")
	if redactError(plain) != plain {
		t.Error("Errors without a URL must pass through unchanged")
	}
}

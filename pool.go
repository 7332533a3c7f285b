package gopixel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MultiKeyClient spreads calls over a pool of keys. Every call goes to the
// current key; when the service answers with a throttle the pool moves to
// the next key, waits and tries again until some key answers. Transport and
// decode errors are returned as-is and never move the pool.
//
// It is safe for concurrent use. The position in the pool is shared: a
// throttle seen by one caller moves every caller to the next key, and two
// callers throttled on the same key move the pool only once.
type MultiKeyClient struct {
	clients []*Client

	mu    sync.Mutex
	index int

	delay   time.Duration
	debug   bool
	policy  RetryPolicy
	sleep   func(ctx context.Context, d time.Duration) error
	logger  Logger
	metrics *MetricsCollector
}

var _ API = (*MultiKeyClient)(nil)

// NewMultiKeyClient builds a pool over keys. delay is the wait after each
// throttle (DefaultRetryDelay is the usual choice); debug logs every key
// change.
func NewMultiKeyClient(keys []string, delay time.Duration, debug bool, options ...Option) (*MultiKeyClient, error) {
	if len(keys) == 0 {
		return nil, newError(ErrorTypeEmptyPool, "at least one API key is required", nil)
	}
	if delay < 0 {
		return nil, newError(ErrorTypeValidation, "retry delay must be non-negative", nil)
	}

	s := newSettings(options...)
	if debug {
		s.enableDebug()
	}
	if err := s.ValidateConfiguration(); err != nil {
		return nil, err
	}

	requester := s.requester()
	clients := make([]*Client, 0, len(keys))
	for i, key := range keys {
		client, err := newClient(key, s.baseURL, requester)
		if err != nil {
			var clientErr *ClientError
			if errors.As(err, &clientErr) {
				clientErr.KeyIndex = i
				clientErr.Message = fmt.Sprintf("key %d: %s", i, clientErr.Message)
			}
			return nil, err
		}
		clients = append(clients, client)
	}

	policy := s.retryPolicy
	if policy == nil {
		policy = NewFixedDelayPolicy(delay, s.maxAttempts)
	}

	m := &MultiKeyClient{
		clients: clients,
		delay:   delay,
		debug:   debug || (s.debug != nil && s.debug.Enabled && s.debug.LogRotations),
		policy:  policy,
		sleep:   s.sleep,
		logger:  s.logger,
		metrics: s.metrics,
	}
	m.metrics.RecordKeyIndex(0)
	return m, nil
}

// Size returns the number of keys in the pool.
func (m *MultiKeyClient) Size() int {
	return len(m.clients)
}

// CurrentIndex returns the position of the key the next call will use.
func (m *MultiKeyClient) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Client returns the single-key client at position i.
func (m *MultiKeyClient) Client(i int) *Client {
	return m.clients[i]
}

// Delay returns the configured wait after a throttle.
func (m *MultiKeyClient) Delay() time.Duration {
	return m.delay
}

// Sync flushes the pool's logger when it buffers, e.g. the zap logger
// NewMultiKeyClientFromConfig builds. Call it before the program exits.
func (m *MultiKeyClient) Sync() error {
	if syncer, ok := m.logger.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

func (m *MultiKeyClient) KeyInfo(ctx context.Context) (Response, error) {
	return m.do(ctx, "key", func(c *Client) (Response, error) { return c.KeyInfo(ctx) })
}

func (m *MultiKeyClient) Boosters(ctx context.Context) (Response, error) {
	return m.do(ctx, "boosters", func(c *Client) (Response, error) { return c.Boosters(ctx) })
}

func (m *MultiKeyClient) Leaderboards(ctx context.Context) (Response, error) {
	return m.do(ctx, "leaderboards", func(c *Client) (Response, error) { return c.Leaderboards(ctx) })
}

func (m *MultiKeyClient) Friends(ctx context.Context, who Named) (Response, error) {
	return m.do(ctx, "friends", func(c *Client) (Response, error) { return c.Friends(ctx, who) })
}

func (m *MultiKeyClient) GuildByMember(ctx context.Context, who Named) (Response, error) {
	return m.do(ctx, "findGuild", func(c *Client) (Response, error) { return c.GuildByMember(ctx, who) })
}

func (m *MultiKeyClient) GuildByName(ctx context.Context, name string) (Response, error) {
	return m.do(ctx, "findGuild", func(c *Client) (Response, error) { return c.GuildByName(ctx, name) })
}

func (m *MultiKeyClient) GuildByID(ctx context.Context, guildID string) (Response, error) {
	return m.do(ctx, "guild", func(c *Client) (Response, error) { return c.GuildByID(ctx, guildID) })
}

func (m *MultiKeyClient) Session(ctx context.Context, who Named) (Response, error) {
	return m.do(ctx, "session", func(c *Client) (Response, error) { return c.Session(ctx, who) })
}

func (m *MultiKeyClient) UserByUUID(ctx context.Context, who Identified) (Response, error) {
	return m.do(ctx, "player", func(c *Client) (Response, error) { return c.UserByUUID(ctx, who) })
}

func (m *MultiKeyClient) UserByName(ctx context.Context, who Named) (Response, error) {
	return m.do(ctx, "player", func(c *Client) (Response, error) { return c.UserByName(ctx, who) })
}

// Call invokes action on the current key, rotating on throttles.
func (m *MultiKeyClient) Call(ctx context.Context, action string, args Params) (Response, error) {
	return m.do(ctx, action, func(c *Client) (Response, error) { return c.Call(ctx, action, args) })
}

func (m *MultiKeyClient) do(ctx context.Context, action string, call func(*Client) (Response, error)) (Response, error) {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		index, client := m.current()

		resp, err := call(client)
		if err != nil {
			var clientErr *ClientError
			if errors.As(err, &clientErr) && clientErr.KeyIndex < 0 {
				clientErr.KeyIndex = index
				clientErr.Attempt = attempt
			}
			return nil, err
		}

		if !resp.Throttled() {
			return resp, nil
		}

		m.metrics.RecordThrottle(index)
		next := m.advance(index)

		if m.debug && m.logger != nil {
			m.logger.Info("Throttled, changing instance", "action", action, "from", index, "to", next, "attempt", attempt)
		}

		delay, retry := m.policy.ShouldRetry(resp, attempt)
		if !retry {
			clientErr := newError(ErrorTypeRetryLimit, "every attempt was throttled", nil)
			clientErr.Action = action
			clientErr.KeyIndex = index
			clientErr.Attempt = attempt
			clientErr.Duration = time.Since(start)
			m.metrics.RecordError(ErrorTypeRetryLimit, action)
			return resp, clientErr
		}

		if err := m.sleep(ctx, delay); err != nil {
			clientErr := newError(ErrorTypeCanceled, "gave up waiting to retry", err)
			clientErr.Action = action
			clientErr.KeyIndex = next
			clientErr.Attempt = attempt
			clientErr.Duration = time.Since(start)
			m.metrics.RecordError(ErrorTypeCanceled, action)
			return nil, clientErr
		}
	}
}

func (m *MultiKeyClient) current() (int, *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index, m.clients[m.index]
}

// advance moves past the key at from unless another caller already has,
// and returns the position now in use.
func (m *MultiKeyClient) advance(from int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index == from {
		m.index = (from + 1) % len(m.clients)
		m.metrics.RecordRotation(m.index)
	}
	return m.index
}

package gopixel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	keyParam    = "key"
	userAgent   = "application/json"
	maxBodySize = 10 << 20
)

// Requester builds request URLs, performs the GET and decodes the JSON
// body. It never retries. It is safe for concurrent use.
type Requester struct {
	httpClient     *http.Client
	middleware     []Middleware
	unescapedQuery bool
	passthrough    map[int]bool
	cache          Cache
	cacheTTL       time.Duration
	metrics        *MetricsCollector
	debug          *DebugConfig
	logger         Logger
}

// NewRequester constructs a Requester from the transport, cache, metrics
// and logging options.
func NewRequester(options ...Option) (*Requester, error) {
	s := newSettings(options...)
	if err := s.ValidateConfiguration(); err != nil {
		return nil, err
	}
	return s.requester(), nil
}

func (s *settings) requester() *Requester {
	passthrough := make(map[int]bool, len(s.passthrough))
	for code, ok := range s.passthrough {
		passthrough[code] = ok
	}
	return &Requester{
		httpClient:     s.httpClient,
		middleware:     append([]Middleware(nil), s.middleware...),
		unescapedQuery: s.unescapedQuery,
		passthrough:    passthrough,
		cache:          s.cache,
		cacheTTL:       s.cacheTTL,
		metrics:        s.metrics,
		debug:          s.debug,
		logger:         s.logger,
	}
}

// Call performs GET baseURL+action?params and decodes the body.
// Connection failures and non-2xx statuses return a Transport error, an
// undecodable body a Decode error. Service-level failures such as
// success=false or a throttle are returned as a normal Response.
func (r *Requester) Call(ctx context.Context, baseURL, action string, params Params) (Response, error) {
	start := time.Now()
	requestID := r.requestID()

	cacheKey := ""
	if r.cacheable(action) {
		cacheKey = cacheKeyFor(action, params)
		if resp, found := r.cache.Get(cacheKey); found {
			if r.debugOn(r.debug != nil && r.debug.LogCache) {
				r.logger.Debug("Cache hit", "requestID", requestID, "cacheKey", cacheKey)
			}
			r.metrics.RecordCacheHit(action)
			r.metrics.RecordRequest(action, OutcomeCached, time.Since(start))
			return resp, nil
		}
		r.metrics.RecordCacheMiss(action)
	}

	target := baseURL + action
	if query := r.encode(params); query != "" {
		target += "?" + query
	}

	if r.debugOn(r.debug != nil && r.debug.LogRequests) {
		r.logger.Debug("Starting request", "requestID", requestID, "action", action, "url", redactURL(target))
	}

	body, status, err := r.fetch(ctx, target)
	if err != nil {
		return nil, r.fail(ErrorTypeTransport, "request failed", err, requestID, action, target, status, start)
	}

	resp, err := decodeResponse(body)
	if err != nil {
		return nil, r.fail(ErrorTypeDecode, "response is not a JSON object", err, requestID, action, target, status, start)
	}

	r.metrics.RecordRequest(action, outcomeOf(resp), time.Since(start))

	if r.debugOn(r.debug != nil && r.debug.LogRequests) {
		r.logger.Debug("Request finished", "requestID", requestID, "action", action,
			"status", status, "success", resp.Success(), "throttled", resp.Throttled(), "duration", time.Since(start))
	}

	if cacheKey != "" && resp.Success() && !resp.Throttled() {
		r.cache.Set(cacheKey, resp, r.cacheTTL)
		if r.debugOn(r.debug != nil && r.debug.LogCache) {
			r.logger.Debug("Response cached", "requestID", requestID, "cacheKey", cacheKey, "ttl", r.cacheTTL)
		}
	}

	return resp, nil
}

// fetch GETs target and returns the body and status. A non-2xx status
// outside the passthrough set is an error; the body is still returned.
func (r *Requester) fetch(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, redactError(err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.executeMiddleware(req)
	if err != nil {
		return nil, 0, redactError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	if (resp.StatusCode < 200 || resp.StatusCode > 299) && !r.passthrough[resp.StatusCode] {
		return body, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func (r *Requester) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(r.middleware) == 0 {
		return r.httpClient.Do(req)
	}

	current := RoundTripperFunc(r.httpClient.Do)

	for i := len(r.middleware) - 1; i >= 0; i-- {
		middleware := r.middleware[i]
		next := current
		current = RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return middleware(req, next)
		})
	}

	return current.RoundTrip(req)
}

func (r *Requester) fail(errorType, message string, cause error, requestID, action, target string, status int, start time.Time) *ClientError {
	clientErr := newError(errorType, message, cause)
	clientErr.RequestID = requestID
	clientErr.Action = action
	clientErr.URL = redactURL(target)
	clientErr.StatusCode = status
	clientErr.Duration = time.Since(start)

	r.metrics.RecordError(errorType, action)
	r.metrics.RecordRequest(action, OutcomeError, clientErr.Duration)

	if r.debugOn(r.debug != nil && r.debug.LogRequests) {
		r.logger.Warn("Request failed", "requestID", requestID, "action", action, "type", errorType, "error", cause)
	}
	return clientErr
}

func (r *Requester) cacheable(action string) bool {
	return r.cache != nil && action != "key"
}

func (r *Requester) encode(params Params) string {
	if r.unescapedQuery {
		return rawQuery(params)
	}
	return EncodeQuery(params)
}

func (r *Requester) requestID() string {
	if r.debug != nil && r.debug.Enabled && r.debug.RequestIDGen != nil {
		return r.debug.RequestIDGen()
	}
	return ""
}

func (r *Requester) debugOn(category bool) bool {
	return category && r.debug.Enabled && r.logger != nil
}

// EncodeQuery renders params as a percent-encoded query string with keys
// in sorted order.
func EncodeQuery(params Params) string {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

// ParseQuery is the inverse of EncodeQuery. For repeated keys the first
// value wins.
func ParseQuery(query string) (Params, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return nil, err
	}
	params := make(Params, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params, nil
}

// rawQuery joins key=value pairs without escaping.
func rawQuery(params Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

func decodeResponse(body []byte) (Response, error) {
	var resp Response
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("body is not a JSON object")
	}
	return resp, nil
}

func outcomeOf(resp Response) string {
	switch {
	case resp.Throttled():
		return OutcomeThrottled
	case resp.Success():
		return OutcomeSuccess
	default:
		return OutcomeFailure
	}
}

// redactURL hides the key value so URLs can be logged and returned in errors.
func redactURL(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		if i := strings.IndexByte(target, '?'); i >= 0 {
			return target[:i]
		}
		return target
	}
	query := u.Query()
	if query.Has(keyParam) {
		query.Set(keyParam, "REDACTED")
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// redactError hides the key in the URL a *url.Error carries in its message.
func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

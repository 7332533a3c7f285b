package gopixel

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the root every action path is appended to.
	DefaultBaseURL = "https://api.hypixel.net/"
	// DefaultLookupURL resolves a display name to a uuid; %s is the name.
	DefaultLookupURL = "https://api.mojang.com/users/profiles/minecraft/%s"
	// DefaultRetryDelay is the wait between attempts after a throttle.
	DefaultRetryDelay = 5 * time.Second
	// DefaultIdentityTTL is how long resolved uuids are remembered.
	DefaultIdentityTTL = 10 * time.Minute
)

// settings is the shared configuration built by Options.
type settings struct {
	httpClient     *http.Client
	timeout        time.Duration
	baseURL        string
	lookupURL      string
	unescapedQuery bool
	passthrough    map[int]bool
	middleware     []Middleware
	cache          Cache
	cacheTTL       time.Duration
	identityTTL    time.Duration
	metrics        *MetricsCollector
	debug          *DebugConfig
	logger         Logger
	retryPolicy    RetryPolicy
	maxAttempts    int
	sleep          func(ctx context.Context, d time.Duration) error
}

func newSettings(options ...Option) *settings {
	s := &settings{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		timeout:     30 * time.Second,
		baseURL:     DefaultBaseURL,
		lookupURL:   DefaultLookupURL,
		passthrough: map[int]bool{},
		middleware:  []Middleware{},
		cacheTTL:    time.Minute,
		identityTTL: DefaultIdentityTTL,
		debug:       DefaultDebugConfig(),
		sleep:       sleepContext,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// WithHTTPClient uses a copy of client for every request. The copy shares
// client's Transport and gets the configured timeout; client itself is
// left untouched.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client == nil {
			s.httpClient = nil
			return
		}
		own := *client
		if s.timeout != 0 {
			own.Timeout = s.timeout
		}
		s.httpClient = &own
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
		if s.httpClient != nil {
			s.httpClient.Timeout = d
		}
	}
}

// WithBaseURL points the client at another deployment of the service.
// A missing trailing slash is added.
func WithBaseURL(base string) Option {
	return func(s *settings) {
		if base != "" && !strings.HasSuffix(base, "/") {
			base += "/"
		}
		s.baseURL = base
	}
}

// WithLookupURL sets the identity lookup URL template; %s is replaced by
// the display name.
func WithLookupURL(template string) Option {
	return func(s *settings) {
		s.lookupURL = template
	}
}

// WithUnescapedQuery sends parameter values verbatim instead of
// percent-encoding them. Only useful for byte-exact compatibility with
// older deployments; values containing '&', '=' or spaces break the query.
func WithUnescapedQuery() Option {
	return func(s *settings) {
		s.unescapedQuery = true
	}
}

// WithStatusPassthrough decodes responses with the given non-2xx status
// codes instead of failing them as transport errors. Passing 429 lets a
// throttle body reach the key rotation.
func WithStatusPassthrough(codes ...int) Option {
	return func(s *settings) {
		for _, code := range codes {
			s.passthrough[code] = true
		}
	}
}

// WithMiddleware adds middleware to the transport chain
func WithMiddleware(middleware ...Middleware) Option {
	return func(s *settings) {
		s.middleware = append(s.middleware, middleware...)
	}
}

// WithCache enables response caching with the default in-memory cache
func WithCache(ttl time.Duration) Option {
	return func(s *settings) {
		s.cache = NewInMemoryCache(ttl)
		s.cacheTTL = ttl
	}
}

// WithCustomCache sets a custom cache implementation
func WithCustomCache(cache Cache, ttl time.Duration) Option {
	return func(s *settings) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithIdentityCacheTTL sets how long resolved uuids are kept.
func WithIdentityCacheTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.identityTTL = ttl
	}
}

// WithMetrics enables Prometheus metrics on the default registerer
func WithMetrics() Option {
	return func(s *settings) {
		s.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(s *settings) {
		s.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(s *settings) {
		s.enableDebug()
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(s *settings) {
		s.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithSimpleLogger enables debug logging to stderr
func WithSimpleLogger() Option {
	return func(s *settings) {
		s.logger = NewSimpleLogger()
		s.enableDebug()
	}
}

// WithZapLogger enables debug logging through l
func WithZapLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.logger = NewZapLogger(l)
		s.enableDebug()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(s *settings) {
		if s.debug == nil {
			s.debug = DefaultDebugConfig()
		}
		s.debug.RequestIDGen = gen
	}
}

// WithMaxAttempts bounds how many throttled attempts a MultiKeyClient makes
// for one call. Zero keeps retrying until a key answers.
func WithMaxAttempts(n int) Option {
	return func(s *settings) {
		s.maxAttempts = n
	}
}

// WithRetryPolicy replaces the fixed-delay throttle policy of a
// MultiKeyClient. The delay and WithMaxAttempts are then ignored.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *settings) {
		s.retryPolicy = policy
	}
}

func (s *settings) enableDebug() {
	if s.debug == nil {
		s.debug = DefaultDebugConfig()
	}
	s.debug.Enabled = true
	if s.logger == nil {
		s.logger = NewSimpleLogger()
	}
}

// ValidateConfiguration reports every invalid setting at once.
func (s *settings) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, s.validateTransportConfig()...)
	errors = append(errors, s.validateCacheConfig()...)
	errors = append(errors, s.validateDebugConfig()...)
	errors = append(errors, s.validateRetryConfig()...)

	if len(errors) > 0 {
		return newError(ErrorTypeValidation, "configuration validation failed",
			fmt.Errorf("validation errors: %v", errors))
	}

	return nil
}

func (s *settings) validateTransportConfig() []string {
	var errors []string

	if s.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}
	if s.timeout <= 0 {
		errors = append(errors, "timeout must be positive")
	}
	if s.baseURL == "" {
		errors = append(errors, "base URL cannot be empty")
	}
	if !strings.Contains(s.lookupURL, "%s") {
		errors = append(errors, "lookup URL must contain %s")
	}
	for i, middleware := range s.middleware {
		if middleware == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return errors
}

func (s *settings) validateCacheConfig() []string {
	var errors []string

	if s.cache != nil && s.cacheTTL <= 0 {
		errors = append(errors, "cacheTTL must be positive when cache is enabled")
	}
	if s.identityTTL < 0 {
		errors = append(errors, "identity cache TTL must be non-negative")
	}

	return errors
}

func (s *settings) validateDebugConfig() []string {
	var errors []string

	if s.debug != nil && s.debug.Enabled {
		if s.debug.RequestIDGen == nil {
			errors = append(errors, "debug RequestIDGen must be set when debug is enabled")
		}
		if s.logger == nil {
			errors = append(errors, "logger must be set when debug is enabled")
		}
	}

	return errors
}

func (s *settings) validateRetryConfig() []string {
	var errors []string

	if s.maxAttempts < 0 {
		errors = append(errors, "maxAttempts must be non-negative")
	}
	if s.sleep == nil {
		errors = append(errors, "sleep function cannot be nil")
	}

	return errors
}

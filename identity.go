package gopixel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ELChris414/gopixel/internal/singleflight"
)

// Resolver turns display names into uuids through the profile lookup
// service. Results are cached and concurrent lookups of the same name
// share one request.
type Resolver struct {
	requester *Requester
	lookupURL string
	cache     *gocache.Cache
	flight    *singleflight.Group[string]
	metrics   *MetricsCollector
	now       func() time.Time
}

// NewResolver builds a Resolver. WithLookupURL, WithIdentityCacheTTL and
// the transport options apply.
func NewResolver(options ...Option) (*Resolver, error) {
	s := newSettings(options...)
	if err := s.ValidateConfiguration(); err != nil {
		return nil, err
	}
	return newResolver(s), nil
}

func newResolver(s *settings) *Resolver {
	ttl := s.identityTTL
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := 2 * s.identityTTL
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &Resolver{
		requester: s.requester(),
		lookupURL: s.lookupURL,
		cache:     gocache.New(ttl, cleanup),
		flight:    singleflight.New[string](),
		metrics:   s.metrics,
		now:       time.Now,
	}
}

// Resolve returns the uuid registered for name. Unknown names return an
// error matching ErrPlayerNotFound.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", newError(ErrorTypeValidation, "player name cannot be empty", nil)
	}

	key := strings.ToLower(name)
	if v, ok := r.cache.Get(key); ok {
		r.metrics.RecordIdentityLookup("cached")
		return v.(string), nil
	}

	// The lookup is shared, so it must outlive whichever caller started it.
	// The HTTP client timeout still bounds it.
	lookupCtx := context.WithoutCancel(ctx)
	id, err, _ := r.flight.DoContext(ctx, key, func() (string, error) {
		id, err := r.lookup(lookupCtx, name)
		if err == nil {
			r.cache.SetDefault(key, id)
		}
		return id, err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrPlayerNotFound):
			r.metrics.RecordIdentityLookup("not_found")
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			r.metrics.RecordIdentityLookup("error")
			clientErr := newError(ErrorTypeCanceled, "gave up waiting for identity lookup", err)
			clientErr.Action = "lookup"
			return "", clientErr
		default:
			r.metrics.RecordIdentityLookup("error")
		}
		return "", err
	}

	r.metrics.RecordIdentityLookup("resolved")
	return id, nil
}

// Forget drops a cached resolution and detaches any lookup of name that is
// still running, so the next Resolve asks the service again.
func (r *Resolver) Forget(name string) {
	key := strings.ToLower(name)
	r.cache.Delete(key)
	r.flight.Forget(key)
}

func (r *Resolver) lookup(ctx context.Context, name string) (string, error) {
	start := time.Now()
	target := fmt.Sprintf(r.lookupURL, url.PathEscape(name)) +
		"?" + EncodeQuery(Params{"at": strconv.FormatInt(r.now().Unix(), 10)})

	body, status, err := r.requester.fetch(ctx, target)
	if err != nil && status == http.StatusNotFound {
		return "", r.lookupError(ErrorTypeLookup, fmt.Sprintf("no player named %q", name), nil, target, status, start)
	}
	if err != nil {
		return "", r.lookupError(ErrorTypeTransport, "identity lookup failed", err, target, status, start)
	}

	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return "", r.lookupError(ErrorTypeLookup, fmt.Sprintf("no player named %q", name), nil, target, status, start)
	}

	resp, err := decodeResponse(body)
	if err != nil {
		return "", r.lookupError(ErrorTypeDecode, "identity response is not a JSON object", err, target, status, start)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		msg := fmt.Sprintf("no player named %q", name)
		if reason, ok := resp["errorMessage"].(string); ok && reason != "" {
			msg = fmt.Sprintf("%s: %s", msg, reason)
		}
		return "", r.lookupError(ErrorTypeLookup, msg, nil, target, status, start)
	}
	return id, nil
}

func (r *Resolver) lookupError(errorType, message string, cause error, target string, status int, start time.Time) *ClientError {
	clientErr := newError(errorType, message, cause)
	clientErr.Action = "lookup"
	clientErr.URL = target
	clientErr.StatusCode = status
	clientErr.Duration = time.Since(start)
	r.metrics.RecordError(errorType, "lookup")
	return clientErr
}

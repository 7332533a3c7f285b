package gopixel

import (
	"context"
	"net/http"
)

// Params holds the query parameters of one API call.
type Params map[string]string

// Response is the decoded JSON object returned by one API call.
type Response map[string]any

// Throttled reports whether the service rejected the call because the
// key used for it is over its rate limit. Only the presence of the
// "throttle" field matters, its value is not examined.
func (r Response) Throttled() bool {
	_, ok := r["throttle"]
	return ok
}

// Success reports whether the service flagged the call as successful.
func (r Response) Success() bool {
	ok, _ := r["success"].(bool)
	return ok
}

// Cause returns the failure reason sent alongside success=false.
func (r Response) Cause() string {
	cause, _ := r["cause"].(string)
	return cause
}

// Named is anything that can be looked up by display name.
type Named interface {
	PlayerName() string
}

// Identified is anything that can be looked up by uuid.
type Identified interface {
	PlayerUUID() string
}

// Name is a raw display name.
type Name string

// PlayerName implements Named.
func (n Name) PlayerName() string { return string(n) }

// UUID is a raw player identifier.
type UUID string

// PlayerUUID implements Identified.
func (u UUID) PlayerUUID() string { return string(u) }

// API is the operation set shared by Client and MultiKeyClient.
type API interface {
	KeyInfo(ctx context.Context) (Response, error)
	Boosters(ctx context.Context) (Response, error)
	Leaderboards(ctx context.Context) (Response, error)
	Friends(ctx context.Context, who Named) (Response, error)
	GuildByMember(ctx context.Context, who Named) (Response, error)
	GuildByName(ctx context.Context, name string) (Response, error)
	GuildByID(ctx context.Context, guildID string) (Response, error)
	Session(ctx context.Context, who Named) (Response, error)
	UserByUUID(ctx context.Context, who Identified) (Response, error)
	UserByName(ctx context.Context, who Named) (Response, error)
	Call(ctx context.Context, action string, args Params) (Response, error)
}

// Middleware wraps the transport call of every outgoing request.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option configures a Client, MultiKeyClient or Resolver.
type Option func(*settings)

package gopixel

import (
	"context"
	"strings"
)

// Client calls the service with a single key. It holds no mutable state
// and is safe for concurrent use.
type Client struct {
	key        string
	baseURL    string
	baseParams Params
	requester  *Requester
}

var _ API = (*Client)(nil)

// NewClient constructs a Client for key.
func NewClient(key string, options ...Option) (*Client, error) {
	s := newSettings(options...)
	if err := s.ValidateConfiguration(); err != nil {
		return nil, err
	}
	return newClient(key, s.baseURL, s.requester())
}

func newClient(key, baseURL string, requester *Requester) (*Client, error) {
	if strings.TrimSpace(key) == "" {
		return nil, newError(ErrorTypeValidation, "API key cannot be empty", nil)
	}
	return &Client{
		key:        key,
		baseURL:    baseURL,
		baseParams: Params{keyParam: key},
		requester:  requester,
	}, nil
}

// KeyInfo returns usage statistics for this client's key.
func (c *Client) KeyInfo(ctx context.Context) (Response, error) {
	return c.Call(ctx, "key", nil)
}

// Boosters returns the active network boosters.
func (c *Client) Boosters(ctx context.Context) (Response, error) {
	return c.Call(ctx, "boosters", nil)
}

// Leaderboards returns every game leaderboard.
func (c *Client) Leaderboards(ctx context.Context) (Response, error) {
	return c.Call(ctx, "leaderboards", nil)
}

// Friends returns the friend list of who.
func (c *Client) Friends(ctx context.Context, who Named) (Response, error) {
	name, err := nameOf(who)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, "friends", Params{"player": name})
}

// GuildByMember finds the guild who belongs to.
func (c *Client) GuildByMember(ctx context.Context, who Named) (Response, error) {
	name, err := nameOf(who)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, "findGuild", Params{"byPlayer": name})
}

// GuildByName finds a guild by its name.
func (c *Client) GuildByName(ctx context.Context, name string) (Response, error) {
	return c.Call(ctx, "findGuild", Params{"byName": name})
}

// GuildByID returns the guild with guildID.
func (c *Client) GuildByID(ctx context.Context, guildID string) (Response, error) {
	return c.Call(ctx, "guild", Params{"id": guildID})
}

// Session returns the current game session of who.
func (c *Client) Session(ctx context.Context, who Named) (Response, error) {
	name, err := nameOf(who)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, "session", Params{"player": name})
}

// UserByUUID returns the player with who's uuid.
func (c *Client) UserByUUID(ctx context.Context, who Identified) (Response, error) {
	if who == nil {
		return nil, newError(ErrorTypeValidation, "player uuid is required", nil)
	}
	return c.Call(ctx, "player", Params{"uuid": who.PlayerUUID()})
}

// UserByName returns the player with who's name.
func (c *Client) UserByName(ctx context.Context, who Named) (Response, error) {
	name, err := nameOf(who)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, "player", Params{"name": name})
}

// Call invokes action with args plus the client's key. The key always
// wins: an args entry named "key" is overwritten.
func (c *Client) Call(ctx context.Context, action string, args Params) (Response, error) {
	return c.requester.Call(ctx, c.baseURL, action, c.mergeParams(args))
}

// mergeParams starts from the caller's args and overlays the fixed params.
func (c *Client) mergeParams(args Params) Params {
	merged := make(Params, len(args)+len(c.baseParams))
	for k, v := range args {
		merged[k] = v
	}
	for k, v := range c.baseParams {
		merged[k] = v
	}
	return merged
}

func nameOf(who Named) (string, error) {
	if who == nil {
		return "", newError(ErrorTypeValidation, "player name is required", nil)
	}
	return who.PlayerName(), nil
}

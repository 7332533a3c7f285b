package gopixel

import "context"

// Player pairs a display name with its resolved uuid and, optionally, the
// API its shortcut methods call. Player satisfies Named and Identified, so
// it can be passed to any API operation directly.
type Player struct {
	name   string
	uuid   string
	api    API
	strict bool
}

// PlayerOption configures NewPlayer.
type PlayerOption func(*playerSettings)

type playerSettings struct {
	api       API
	lookupURL string
	resolver  *Resolver
	strict    bool
}

// WithPlayerAPI binds the API used when a shortcut method gets none.
func WithPlayerAPI(api API) PlayerOption {
	return func(ps *playerSettings) {
		ps.api = api
	}
}

// WithPlayerLookupURL resolves the uuid through another lookup service;
// %s is replaced by the name.
func WithPlayerLookupURL(template string) PlayerOption {
	return func(ps *playerSettings) {
		ps.lookupURL = template
	}
}

// WithPlayerResolver reuses an existing Resolver and its cache.
func WithPlayerResolver(resolver *Resolver) PlayerOption {
	return func(ps *playerSettings) {
		ps.resolver = resolver
	}
}

// WithStrictBinding makes shortcut methods fail with ErrNoClientBound
// instead of returning an empty Response when no API is available.
func WithStrictBinding() PlayerOption {
	return func(ps *playerSettings) {
		ps.strict = true
	}
}

// NewPlayer resolves name to a uuid once and returns the handle. A failed
// lookup is returned as the error.
func NewPlayer(ctx context.Context, name string, options ...PlayerOption) (*Player, error) {
	ps := &playerSettings{}
	for _, option := range options {
		option(ps)
	}

	resolver := ps.resolver
	if resolver == nil {
		var resolverOptions []Option
		if ps.lookupURL != "" {
			resolverOptions = append(resolverOptions, WithLookupURL(ps.lookupURL))
		}
		var err error
		resolver, err = NewResolver(resolverOptions...)
		if err != nil {
			return nil, err
		}
	}

	id, err := resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	return &Player{
		name:   name,
		uuid:   id,
		api:    ps.api,
		strict: ps.strict,
	}, nil
}

// PlayerName implements Named.
func (p *Player) PlayerName() string { return p.name }

// PlayerUUID implements Identified.
func (p *Player) PlayerUUID() string { return p.uuid }

// API returns the bound API, or nil.
func (p *Player) API() API { return p.api }

// Friends returns this player's friends through api, or the bound API
// when api is nil.
func (p *Player) Friends(ctx context.Context, api API) (Response, error) {
	return p.forward(api, func(target API) (Response, error) {
		return target.Friends(ctx, p)
	})
}

// Info returns this player's profile, looked up by uuid.
func (p *Player) Info(ctx context.Context, api API) (Response, error) {
	return p.forward(api, func(target API) (Response, error) {
		return target.UserByUUID(ctx, p)
	})
}

// Guild returns the guild this player belongs to.
func (p *Player) Guild(ctx context.Context, api API) (Response, error) {
	return p.forward(api, func(target API) (Response, error) {
		return target.GuildByMember(ctx, p)
	})
}

// Session returns this player's current session.
func (p *Player) Session(ctx context.Context, api API) (Response, error) {
	return p.forward(api, func(target API) (Response, error) {
		return target.Session(ctx, p)
	})
}

// forward calls op on the per-call api, else the bound one. With neither
// it returns an empty Response, or ErrNoClientBound for strict players.
func (p *Player) forward(api API, op func(API) (Response, error)) (Response, error) {
	if !isNilAPI(api) {
		return op(api)
	}
	if !isNilAPI(p.api) {
		return op(p.api)
	}
	if p.strict {
		return nil, newError(ErrorTypeNoClient, "player "+p.name+" has no API bound", nil)
	}
	return Response{}, nil
}

// isNilAPI also catches nil *Client and *MultiKeyClient values stored in
// the interface.
func isNilAPI(api API) bool {
	switch v := api.(type) {
	case nil:
		return true
	case *Client:
		return v == nil
	case *MultiKeyClient:
		return v == nil
	default:
		return false
	}
}

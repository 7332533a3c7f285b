// Package gopixel is a client for the Hypixel statistics API.
//
//   - Client performs GET requests with a single API key
//   - MultiKeyClient spreads calls over a pool of keys and moves to the
//     next key whenever the service answers with a throttle
//   - Player resolves a display name to its uuid once and offers shortcut
//     methods for the per-player operations
//   - Resolver caches name to uuid lookups and coalesces concurrent ones
//
// Responses are returned as decoded JSON objects. Service-level failures
// (success=false, throttle) are data, not errors; only transport and
// decode failures are returned as errors.
//
// Typical usage:
//
//	pool, err := gopixel.NewMultiKeyClient(keys, gopixel.DefaultRetryDelay, false,
//	    gopixel.WithCache(time.Minute),
//	    gopixel.WithStatusPassthrough(http.StatusTooManyRequests),
//	)
//	if err != nil {
//	    return err
//	}
//	player, err := gopixel.NewPlayer(ctx, "Notch", gopixel.WithPlayerAPI(pool))
//	if err != nil {
//	    return err
//	}
//	info, err := player.Info(ctx, nil)
//
// Every client is safe for concurrent use. Logging is off unless a Logger
// is supplied (WithSimpleLogger, WithZapLogger) or debug is enabled.
package gopixel

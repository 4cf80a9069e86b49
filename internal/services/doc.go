// Package services talks to the Spotify Web API and to the authorization code exchange.
//
// # Gateway
//
// [Gateway] is the single path for authorized calls. It attaches the bearer token from a [TokenSource],
// throttles with a [rate.Limiter] when configured, and classifies responses:
//   - 401 : the token source is cleared before returning [shared.ErrUnauthorized]
//   - other non-2xx : [*shared.APIError] with status and body
//   - 2xx : buffered [Response]
//
// No request is ever retried here.
//
// # Spotify Client
//
// [SpotifyClient] implements [Player] and [Library] on top of the gateway. It decodes into its own wire
// types, or zmb3/spotify types where those match the payload, and normalizes every track with
// [models.NormalizeTrack]. [SpotifyClient.CurrentPlayback] reports found=false on 204 so callers can keep
// their previous snapshot.
//
// # Exchangers
//
// [Exchanger] produces the authorization URL and exchanges the one-time code:
//   - [RemoteExchanger] : external exchange service, `{action, code}` JSON contract, errors as [*ExchangeError]
//   - [OAuthExchanger] : local exchange through zmb3/spotify/v2/auth and golang.org/x/oauth2
package services

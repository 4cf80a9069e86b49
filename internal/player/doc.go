// Package player keeps local playback state in sync with the remote Spotify player.
//
// # Components
//
//   - [TokenStore] : the single bearer token, persisted through [TokenStorage], broadcast on presence changes
//   - [Poller] : fixed-interval snapshot polling while a token is present
//   - [Dispatcher] : optimistic transport commands with revert on failure and delayed reconciliation
//   - [Queue] : client-only tracks played when remote "next" fails
//   - [Searcher] : validated, debounced track search
//   - [Session] : wires the above to one [services.Gateway]
//
// # Timers
//
// Every timer has exactly one owner. The poller stops its ticker when the token is cleared; the
// dispatcher owns its fire-once reconciliation timers and the searcher its debounce timer, and the
// [Session] cancels both when the token disappears. [Session.Close] tears everything down.
//
// # Notifications
//
// User-visible failures (play/pause, previous, track selection, an exhausted "next") are sent to a
// [Notifier] as [Notification] values. Toggle failures revert silently; seek and volume failures are only logged.
package player

// Package models defines the player's domain values.
//
// Values fall into two groups:
//
// 1. Catalog values fetched on demand and never cached beyond a view
//   - [Track] : normalized track with artists, parent [Album], duration and optional play time
//   - [Playlist] : playlist summary with owner and track count
//   - [AlbumDetails] : album with its tracks
//   - [User], [Device]
//
// 2. Playback state
//   - [Snapshot] : the whole remote player state, replaced wholesale on every poll
//   - [RepeatMode] : off, context or track, cycled by [RepeatMode.Next]
//
// [NormalizeTrack] is applied to every track read from the remote API so rendering code may assume
// list fields are present, only possibly empty.
package models

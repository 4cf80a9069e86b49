// Package ui implements the interactive player using bubbletea's Elm architecture.
//
// The TUI has five tabs and two drill-down views:
//  1. [NowPlayingView] : current track, progress, shuffle/repeat/liked state and volume
//  2. [RecentView] : recently played tracks with how long ago they played
//  3. [PlaylistsView] : the user's playlists, opening [PlaylistTracksView]
//  4. [SearchView] : debounced track search
//  5. [QueueView] : the local queue consumed by next when nothing follows remotely
//
// [AlbumView] opens from any track with o.
//
// The [Model] only consumes state. Playback snapshots, notifications and search results arrive as
// messages read from channels, and every playback command runs as a [tea.Cmd] against a
// [Controller]. A one second clock advances the displayed progress locally between polls.
//
// Selecting a track in a playlist plays it within that playlist. Selecting from any other view
// plays the single track and drops the playlist context.
package ui

package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	playPause key.Binding
	next      key.Binding
	prev      key.Binding
	shuffle   key.Binding
	repeat    key.Binding
	like      key.Binding
	volUp     key.Binding
	volDown   key.Binding
	seekBack  key.Binding
	seekFwd   key.Binding
	enqueue   key.Binding
	dequeue   key.Binding
	album     key.Binding
	enter     key.Binding
	search    key.Binding
	nextView  key.Binding
	prevView  key.Binding
	back      key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		playPause: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		shuffle:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		repeat:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		like:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		volUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volDown:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		seekBack:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-10s")),
		seekFwd:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+10s")),
		enqueue:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to queue")),
		dequeue:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		album:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open album")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		nextView:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		prevView:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev view")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.playPause, k.next, k.prev, k.nextView, k.search, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.playPause, k.next, k.prev, k.seekBack, k.seekFwd},
		{k.shuffle, k.repeat, k.like, k.volUp, k.volDown},
		{k.enter, k.enqueue, k.dequeue, k.album, k.search},
		{k.nextView, k.prevView, k.back, k.help, k.quit},
	}
}

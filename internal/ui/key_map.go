package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	camera   key.Binding
	capture  key.Binding
	file     key.Binding
	detect   key.Binding
	play     key.Binding
	current  key.Binding
	next     key.Binding
	previous key.Binding
	stop     key.Binding
	login    key.Binding
	logout   key.Binding
	cancel   key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		camera:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open camera")),
		capture:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "capture")),
		file:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "choose file")),
		detect:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "detect & recommend")),
		play:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play selected")),
		current:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		previous: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev")),
		stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		login:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "sign in")),
		logout:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "sign out")),
		cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.camera, k.capture, k.file, k.detect, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.camera, k.capture, k.file, k.detect},
		{k.play, k.current, k.previous, k.next, k.stop},
		{k.logout, k.help, k.quit},
	}
}

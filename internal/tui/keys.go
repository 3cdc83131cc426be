// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Brighter key.Binding
	Dimmer   key.Binding
	Sync     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "device")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "device")),
		Next:     key.NewBinding(key.WithKeys("right", "l", "tab"), key.WithHelp("→", "next effect")),
		Prev:     key.NewBinding(key.WithKeys("left", "h", "shift+tab"), key.WithHelp("←", "prev effect")),
		Brighter: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "brighter")),
		Dimmer:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "dimmer")),
		Sync:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Next, k.Brighter, k.Dimmer, k.Sync, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Next, k.Prev},
		{k.Brighter, k.Dimmer, k.Sync, k.Quit},
	}
}

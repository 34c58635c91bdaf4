package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Select key.Binding
	Upload key.Binding
	Ask    key.Binding
	Focus  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select file")),
		Upload: key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "upload")),
		Ask:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "ask")),
		Focus:  key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch field")),
		Help:   key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "toggle help")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Upload, k.Ask, k.Focus, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Select, k.Upload},
		{k.Ask, k.Focus},
		{k.Help, k.Quit},
	}
}

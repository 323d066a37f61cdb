package dashboard

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Add         key.Binding
	Cancel      key.Binding
	Focus       key.Binding
	NextChip    key.Binding
	PrevChip    key.Binding
	Remove      key.Binding
	CursorLeft  key.Binding
	CursorRight key.Binding
	Window      key.Binding
	Theme       key.Binding
	Sort        key.Binding
	Reload      key.Binding
	Help        key.Binding
	Quit        key.Binding

	inputMode bool
}

func defaultKeyMap() keyMap {
	return keyMap{
		Add: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "add package"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "tab"),
			key.WithHelp("esc", "browse chart"),
		),
		Focus: key.NewBinding(
			key.WithKeys("/", "a", "i"),
			key.WithHelp("/", "add package"),
		),
		NextChip: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next package"),
		),
		PrevChip: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev package"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x", "d", "delete", "backspace"),
			key.WithHelp("x", "remove package"),
		),
		CursorLeft: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/→", "move cursor"),
		),
		CursorRight: key.NewBinding(
			key.WithKeys("right", "l"),
		),
		Window: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "window"),
		),
		Theme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "theme"),
		),
		Sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	if k.inputMode {
		return []key.Binding{k.Add, k.Cancel}
	}
	return []key.Binding{k.Focus, k.Remove, k.CursorLeft, k.Window, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	if k.inputMode {
		return [][]key.Binding{{k.Add, k.Cancel}}
	}
	return [][]key.Binding{
		{k.Focus, k.NextChip, k.PrevChip, k.Remove},
		{k.CursorLeft, k.Window, k.Sort},
		{k.Theme, k.Reload, k.Help, k.Quit},
	}
}

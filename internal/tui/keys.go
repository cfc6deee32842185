package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the player
type KeyMap struct {
	// Navigation
	Up     key.Binding
	Down   key.Binding
	Home   key.Binding
	End    key.Binding
	Escape key.Binding

	// Transport
	Toggle   key.Binding
	Play     key.Binding
	Next     key.Binding
	Previous key.Binding
	Mode     key.Binding
	Sleep    key.Binding

	// Queue editing
	Select   key.Binding
	Remove   key.Binding
	Clear    key.Binding
	MoveDown key.Binding
	MoveUp   key.Binding
	Filter   key.Binding

	// Server
	Favorite key.Binding
	Mark     key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Home: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter/selection"),
		),

		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		Play: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "play"),
		),
		Next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next"),
		),
		Previous: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous"),
		),
		Mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mode"),
		),
		Sleep: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sleep timer"),
		),

		Select: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "select"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "remove"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "move down"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "move up"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),

		Favorite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "favorite"),
		),
		Mark: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "mark"),
		),

		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Previous, k.Mode, k.Sleep, k.Filter, k.Favorite, k.Help, k.Quit}
}

// FullHelp returns every binding grouped by column
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Home, k.End, k.Escape},
		{k.Toggle, k.Play, k.Next, k.Previous, k.Mode, k.Sleep},
		{k.Select, k.Remove, k.Clear, k.MoveDown, k.MoveUp, k.Filter},
		{k.Favorite, k.Mark, k.Help, k.Quit},
	}
}

// Keys is the global key bindings instance
var Keys = DefaultKeyMap()

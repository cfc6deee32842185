package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cantoplayer/canto/internal/favorites"
	"github.com/cantoplayer/canto/internal/tui/styles"
)

// Fixed rows around the queue: now playing, badges, blank, status, help
const chromeHeight = 5

// View renders the player
func (m Model) View() string {
	width := m.Width
	if width <= 0 {
		width = 80
	}

	sections := []string{
		m.renderNowPlaying(width),
		m.renderBadges(),
		"",
	}
	if m.filtering || m.filterQuery != "" {
		sections = append(sections, m.renderFilter())
	}
	sections = append(sections,
		m.renderQueue(width),
		m.renderStatus(width),
		m.help.View(Keys),
	)

	view := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.noteModal.IsVisible() && m.Width > 0 && m.Height > 0 {
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, m.noteModal.View())
	}
	return view
}

// queueHeight is the number of queue rows that fit on screen, 0 before the first resize
func (m Model) queueHeight() int {
	if m.Height <= 0 {
		return 0
	}
	h := m.Height - chromeHeight
	if m.filtering || m.filterQuery != "" {
		h--
	}
	if m.help.ShowAll {
		h -= len(Keys.FullHelp()[1]) - 1
	}
	return max(1, h)
}

func (m Model) renderNowPlaying(width int) string {
	item, ok := m.state.Current()
	if !ok {
		return styles.HeaderStyle.Render(styles.DimStyle.Render("Nothing playing"))
	}

	icon := styles.PausedChar
	if m.state.IsPlaying {
		icon = styles.PlayingChar
	}

	title := item.Name
	if item.Artist != "" {
		title = item.Artist + " - " + item.Name
	}

	position := ""
	if m.opts.Position != nil {
		position = favorites.FormatOffset(m.opts.Position.Position())
	}

	// icon, spaces and position take the rest of the line
	room := width - lipgloss.Width(position) - 6
	line := styles.AccentStyle.Render(icon) + " " +
		styles.TitleStyle.Render(styles.Truncate(title, room))
	if position != "" {
		line += "  " + styles.DimStyle.Render(position)
	}
	return styles.HeaderStyle.Render(line)
}

func (m Model) renderBadges() string {
	badges := []string{styles.BadgeStyle.Render(m.state.PlayMode.Label())}

	if remaining := m.sleepRemaining(); remaining != "" {
		badges = append(badges, styles.BadgeStyle.Render("sleep "+remaining))
	}

	count := fmt.Sprintf("%d tracks", len(m.state.Items))
	if len(m.state.Items) == 1 {
		count = "1 track"
	}
	badges = append(badges, styles.DimBadgeStyle.Render(count))

	if n := len(m.selected); n > 0 {
		badges = append(badges, styles.DimBadgeStyle.Render(fmt.Sprintf("%d selected", n)))
	}

	return styles.HeaderStyle.Render(strings.Join(badges, " "))
}

// sleepRemaining prefers the synchronizer's countdown, which is refreshed on
// its own tick, and falls back to the store
func (m Model) sleepRemaining() string {
	if m.opts.Sleep != nil {
		if s := m.opts.Sleep.SleepRemaining(); s != "" {
			return s
		}
	}
	if d, ok := m.store.SleepRemaining(); ok {
		return favorites.FormatOffset(d)
	}
	return ""
}

func (m Model) renderFilter() string {
	if m.filtering {
		return " " + m.filterInput.View()
	}
	return " " + styles.FilterPromptStyle.Render("/") + styles.FilterStyle.Render(m.filterQuery) +
		styles.DimStyle.Render(fmt.Sprintf("  %d matches", len(m.filtered)))
}

func (m Model) renderQueue(width int) string {
	rows := m.rows()
	if len(rows) == 0 {
		msg := "Queue is empty"
		if m.filterQuery != "" {
			msg = "No matches"
		}
		return styles.HeaderStyle.Render(styles.DimStyle.Render(msg))
	}

	visible := m.queueHeight()
	if visible <= 0 {
		visible = len(rows)
	}
	end := min(len(rows), m.offset+visible)

	numWidth := len(fmt.Sprint(len(m.state.Items)))
	accent := styles.Accent
	dim := styles.DimGray

	lines := make([]string, 0, end-m.offset)
	for pos := m.offset; pos < end; pos++ {
		idx := rows[pos]
		item := m.state.Items[idx]

		marker := " "
		var markerFg *lipgloss.Color
		if idx == m.state.CurrentIndex {
			marker = styles.PausedChar
			if m.state.IsPlaying {
				marker = styles.PlayingChar
			}
			markerFg = &accent
		}

		sel := " "
		if m.selected[item.ID] {
			sel = styles.SelectedChar
		}

		num := fmt.Sprintf("%*d ", numWidth, idx+1)
		room := width - numWidth - 8 - len([]rune(item.Artist))
		parts := []styles.RowPart{
			{Text: marker + " ", Foreground: markerFg},
			{Text: sel + " ", Foreground: &accent},
			{Text: num, Foreground: &dim},
			{Text: styles.Truncate(item.Name, max(room, 10))},
		}
		if item.Artist != "" {
			parts = append(parts, styles.RowPart{Text: "  " + item.Artist, Foreground: &dim})
		}
		lines = append(lines, styles.RenderListRow(parts, pos == m.cursor, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatus(width int) string {
	if m.StatusMsg == "" {
		return ""
	}
	style := styles.SuccessStyle
	if m.StatusIsErr {
		style = styles.ErrorStyle
	}
	return styles.HeaderStyle.Render(style.Render(styles.Truncate(m.StatusMsg, width-2)))
}

package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/snakestats/internal/chart"
	"github.com/verte-zerg/snakestats/internal/selection"
	"github.com/verte-zerg/snakestats/internal/theme"
)

const (
	minPlotHeight = 6
	maxPlotHeight = 20
)

type renderKey struct {
	seq    int
	slug   string
	window int
	sorted bool
	width  int
	height int
	cursor int
	dark   bool
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.viewport.View(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(m.renderHeader())
	footerHeight = lipgloss.Height(m.renderFooter())
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.viewport.Width = m.width
	m.viewport.Height = bodyHeight
	promptWidth := lipgloss.Width(m.input.Prompt)
	m.input.Width = maxInt(10, m.width-promptWidth-2)
	m.refreshContent()
}

func (m *Model) refreshContent() {
	m.viewport.SetContent(m.renderBody())
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("snakestats")
	parts := []string{title, m.renderWindowSelector()}
	order := "insertion order"
	if m.cfg.SortByDate {
		order = "by date"
	}
	parts = append(parts, headerStyle.Render(fmt.Sprintf("%s  theme: %s", order, theme.Current())))
	if m.loading {
		parts = append(parts, m.spinner.View()+headerStyle.Render(" loading"))
	}
	lines := []string{clipLine(strings.Join(parts, "  "), m.width)}
	if chips := m.renderChips(); chips != "" {
		lines = append(lines, chips)
	}
	if m.inputMode {
		lines = append(lines, m.input.View())
	} else {
		lines = append(lines, headerStyle.Render(fmt.Sprintf("%d/%d packages  route %s", len(m.selection), m.cfg.MaxPackages, selection.Path(m.selection))))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderWindowSelector() string {
	parts := make([]string, 0, len(chart.WindowOptions))
	for _, days := range chart.WindowOptions {
		label := fmt.Sprintf("%dd", days)
		if days == m.cfg.WindowDays {
			parts = append(parts, activeWindowStyle.Render(label))
		} else {
			parts = append(parts, windowStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) renderChips() string {
	if len(m.selection) == 0 {
		return ""
	}
	view := m.currentView()
	chips := make([]string, 0, len(view.Series))
	for i, s := range view.Series {
		style := chipStyle
		if !m.inputMode && i == m.chipIndex {
			style = focusedChipStyle
		}
		chips = append(chips, style.Render(seriesStyle(s.Color).Render("●")+" "+s.Label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

func (m *Model) renderFooter() string {
	footer := m.help.View(m.keys)
	if m.errMsg != "" {
		footer += "\n" + errorStyle.Render(m.errMsg)
	}
	return footer
}

// renderBody draws the chart area. An empty selection draws no chart at all.
func (m *Model) renderBody() string {
	if len(m.selection) == 0 {
		return mutedStyle.Render("No packages selected. Type a package name and press enter.")
	}
	if m.loadedSeq == 0 && m.loading {
		return m.spinner.View() + " Fetching download stats..."
	}
	view := m.currentView()
	var sections []string
	if len(view.Rows) == 0 {
		if !m.loading {
			sections = append(sections, mutedStyle.Render("No download data for the selected packages."))
		}
	} else {
		sections = append(sections, m.renderChart(view))
		if tooltip := m.renderTooltip(view); tooltip != "" {
			sections = append(sections, tooltip)
		}
	}
	if notice := m.renderMissing(); notice != "" {
		sections = append(sections, notice)
	}
	return strings.Join(sections, "\n")
}

func (m *Model) renderChart(view chart.View) string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	key := renderKey{
		seq:    m.loadedSeq,
		slug:   selection.Slug(m.selection),
		window: m.cfg.WindowDays,
		sorted: m.cfg.SortByDate,
		width:  width,
		height: m.plotHeight(),
		cursor: m.cursorIndex(view),
		dark:   theme.IsDark(),
	}
	if cached, ok := m.cache.Get(key); ok {
		return cached
	}
	out := chart.PlotString(view, chart.PlotOptions{
		Width:  chart.PlotWidthFor(width),
		Height: key.height,
		Color:  true,
		Cursor: key.cursor,
	})
	m.cache.Add(key, out)
	return out
}

func (m *Model) renderTooltip(view chart.View) string {
	idx := m.cursorIndex(view)
	if idx < 0 {
		return ""
	}
	row := view.Rows[idx]
	lines := chart.Tooltip(row, view.Series)
	// Tooltip skips series without a value; walk the same subset for markers.
	line := 1
	for _, s := range view.Series {
		if _, ok := row.Value(s.Label); !ok {
			continue
		}
		lines[line] = seriesStyle(s.Color).Render("●") + " " + lines[line]
		line++
	}
	return tooltipStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderMissing() string {
	if len(m.missing) == 0 || m.loading {
		return ""
	}
	return mutedStyle.Render("No data for: " + strings.Join(m.missing, ", "))
}

func (m *Model) plotHeight() int {
	_, bodyHeight, _ := m.layoutHeights()
	// Leave room for the tick line, legend and tooltip box.
	h := bodyHeight - 2 - (len(m.selection) + 3)
	if h < minPlotHeight {
		return minPlotHeight
	}
	if h > maxPlotHeight {
		return maxPlotHeight
	}
	return h
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// clipLine cuts a styled line to width cells.
func clipLine(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

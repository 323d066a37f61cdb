// Package dashboard provides the interactive Bubble Tea download dashboard.
package dashboard

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/verte-zerg/snakestats/internal/aggregate"
	"github.com/verte-zerg/snakestats/internal/chart"
	"github.com/verte-zerg/snakestats/internal/logger"
	"github.com/verte-zerg/snakestats/internal/model"
	"github.com/verte-zerg/snakestats/internal/pypistats"
	"github.com/verte-zerg/snakestats/internal/selection"
	"github.com/verte-zerg/snakestats/internal/theme"
)

const renderCacheSize = 64

// Options configures a dashboard Model.
type Options struct {
	Fetcher pypistats.Fetcher
	// Store receives the selection after every change. Nil keeps it in memory.
	Store     selection.Store
	Selection selection.Set
	Dashboard model.DashboardConfig
}

// loadedMsg carries the result of one aggregation. seq identifies the load so
// results for a superseded selection can be dropped.
type loadedMsg struct {
	seq   int
	ids   selection.Set
	table model.Table
}

// Model implements the Bubble Tea dashboard.
type Model struct {
	fetcher pypistats.Fetcher
	store   selection.Store
	cfg     model.DashboardConfig

	selection selection.Set
	raw       model.Table
	table     model.Table
	missing   []string
	loading   bool
	loadSeq   int
	loadedSeq int
	errMsg    string

	inputMode  bool
	input      textinput.Model
	chipIndex  int
	cursorBack int
	showHelp   bool

	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	viewport viewport.Model
	cache    *lru.Cache[renderKey, string]

	width  int
	height int
}

// NewModel constructs a dashboard model. The initial selection is normalised
// through selection.From so it honours the configured limit.
func NewModel(opts Options) *Model {
	cfg := opts.Dashboard
	if cfg.MaxPackages <= 0 {
		cfg.MaxPackages = selection.DefaultMaxPackages
	}
	if !chart.ValidWindow(cfg.WindowDays) {
		cfg.WindowDays = chart.DefaultWindow
	}
	store := opts.Store
	if store == nil {
		store = selection.NewMemoryStore(cfg.MaxPackages)
	}
	cache, err := lru.New[renderKey, string](renderCacheSize)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	m := &Model{
		fetcher:   opts.Fetcher,
		store:     store,
		cfg:       cfg,
		selection: selection.From(opts.Selection, cfg.MaxPackages),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:      help.New(),
		keys:      defaultKeyMap(),
		viewport:  viewport.New(0, 0),
		cache:     cache,
	}
	m.input = newPackageInput()
	if len(m.selection) == 0 {
		m.setInputMode(true)
	}
	return m
}

func newPackageInput() textinput.Model {
	input := textinput.New()
	input.Prompt = "Package: "
	input.Placeholder = "requests"
	input.CharLimit = 128
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if len(m.selection) > 0 {
		cmds = append(cmds, m.reload())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.updateLayout()
		return m, nil
	case loadedMsg:
		m.applyLoaded(msg)
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.inputMode {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	if m.inputMode {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Add):
		value := m.input.Value()
		m.input.SetValue("")
		next := selection.Add(m.selection, value, m.cfg.MaxPackages)
		if sameSet(next, m.selection) {
			return m, nil
		}
		return m, m.changeSelection(next)
	case key.Matches(msg, m.keys.Cancel):
		m.setInputMode(false)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Focus):
		return m, m.setInputMode(true)
	case key.Matches(msg, m.keys.NextChip):
		m.moveChip(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevChip):
		m.moveChip(-1)
		return m, nil
	case key.Matches(msg, m.keys.Remove):
		if len(m.selection) == 0 {
			return m, nil
		}
		next := selection.Remove(m.selection, m.selection[m.chipIndex])
		return m, m.changeSelection(next)
	case key.Matches(msg, m.keys.CursorLeft):
		m.moveCursor(1)
		return m, nil
	case key.Matches(msg, m.keys.CursorRight):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, m.keys.Window):
		m.cfg.WindowDays = chart.NextWindow(m.cfg.WindowDays)
		m.clampCursor()
		m.refreshContent()
		return m, nil
	case key.Matches(msg, m.keys.Sort):
		m.cfg.SortByDate = !m.cfg.SortByDate
		m.deriveTable()
		m.refreshContent()
		return m, nil
	case key.Matches(msg, m.keys.Theme):
		next := theme.Next(theme.Current())
		if err := theme.Set(context.Background(), next); err != nil {
			logger.Warn("%v", err)
			m.errMsg = err.Error()
		}
		m.refreshContent()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		if len(m.selection) == 0 {
			return m, nil
		}
		return m, m.reload()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.updateLayout()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// changeSelection saves the new selection as the current route and reloads
// the aggregation for it.
func (m *Model) changeSelection(next selection.Set) tea.Cmd {
	m.selection = next
	if m.chipIndex >= len(next) {
		m.chipIndex = maxInt(0, len(next)-1)
	}
	m.errMsg = ""
	if err := m.store.Save(context.Background(), next); err != nil {
		logger.Warn("failed to save route %s: %v", selection.Path(next), err)
		m.errMsg = fmt.Sprintf("failed to save selection: %v", err)
	}
	logger.Info("route %s", selection.Path(next))
	if len(next) == 0 {
		m.loadSeq++
		m.loading = false
		m.raw = nil
		m.table = nil
		m.missing = nil
		m.refreshContent()
		return m.setInputMode(true)
	}
	return m.reload()
}

// reload starts an aggregation for the current selection.
func (m *Model) reload() tea.Cmd {
	m.loadSeq++
	m.loading = true
	m.refreshContent()
	return tea.Batch(m.spinner.Tick, m.load(m.loadSeq, m.selection))
}

func (m *Model) load(seq int, ids selection.Set) tea.Cmd {
	fetcher := m.fetcher
	return func() tea.Msg {
		table := aggregate.Aggregate(context.Background(), fetcher, ids.Strings())
		return loadedMsg{seq: seq, ids: ids, table: table}
	}
}

func (m *Model) applyLoaded(msg loadedMsg) {
	if msg.seq != m.loadSeq {
		logger.Debug("dropping stale load %d (current %d)", msg.seq, m.loadSeq)
		return
	}
	m.loading = false
	m.loadedSeq = msg.seq
	m.raw = msg.table
	m.missing = aggregate.Missing(msg.ids.Strings(), msg.table)
	if len(m.missing) > 0 {
		logger.Info("no data for %v", m.missing)
	}
	m.cursorBack = 0
	m.deriveTable()
	m.refreshContent()
}

func (m *Model) deriveTable() {
	if m.cfg.SortByDate {
		m.table = m.raw.SortedByDate()
	} else {
		m.table = m.raw
	}
}

func (m *Model) setInputMode(on bool) tea.Cmd {
	m.inputMode = on
	m.keys.inputMode = on
	if on {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

func (m *Model) moveChip(delta int) {
	count := len(m.selection)
	if count == 0 {
		m.chipIndex = 0
		return
	}
	m.chipIndex = (m.chipIndex + delta + count) % count
}

// moveCursor moves the tooltip cursor; positive delta moves back in time.
func (m *Model) moveCursor(delta int) {
	m.cursorBack += delta
	m.clampCursor()
	m.refreshContent()
}

func (m *Model) clampCursor() {
	rows := len(m.currentView().Rows)
	if m.cursorBack > rows-1 {
		m.cursorBack = rows - 1
	}
	if m.cursorBack < 0 {
		m.cursorBack = 0
	}
}

func (m *Model) currentView() chart.View {
	return chart.Present(m.table, m.selection, m.cfg.WindowDays)
}

// cursorIndex returns the view row under the tooltip cursor, or -1.
func (m *Model) cursorIndex(view chart.View) int {
	if len(view.Rows) == 0 {
		return -1
	}
	return len(view.Rows) - 1 - m.cursorBack
}

func sameSet(a, b selection.Set) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

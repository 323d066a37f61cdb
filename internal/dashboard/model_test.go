package dashboard

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/snakestats/internal/model"
	"github.com/verte-zerg/snakestats/internal/selection"
	"github.com/verte-zerg/snakestats/internal/theme"
)

type stubFetcher map[string]model.PackageSeries

func (f stubFetcher) Fetch(_ context.Context, pkg string) (model.PackageSeries, bool) {
	s, ok := f[pkg]
	return s, ok
}

func daySeries(pkg string, values ...int64) model.PackageSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]model.SeriesPoint, len(values))
	for i, v := range values {
		points[i] = model.SeriesPoint{Category: "without_mirrors", Date: start.AddDate(0, 0, i), Downloads: v}
	}
	return model.PackageSeries{Package: pkg, Reported: pkg, Type: "overall_downloads", Points: points}
}

func newTestModel(t *testing.T, fetcher stubFetcher, initial selection.Set, limit int) (*Model, *selection.MemoryStore) {
	t.Helper()
	store := selection.NewMemoryStore(limit)
	m := NewModel(Options{
		Fetcher:   fetcher,
		Store:     store,
		Selection: initial,
		Dashboard: model.DashboardConfig{MaxPackages: limit, WindowDays: 180, SortByDate: true},
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, store
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func press(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func pressRune(m *Model, r rune) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return cmd
}

// finishLoad runs the pending aggregation synchronously and feeds the result back.
func finishLoad(m *Model) {
	msg := m.load(m.loadSeq, m.selection)()
	m.Update(msg)
}

func TestEmptySelectionRendersNoChart(t *testing.T) {
	m, _ := newTestModel(t, stubFetcher{}, nil, selection.DefaultMaxPackages)
	if !m.inputMode {
		t.Fatalf("expected input mode with empty selection")
	}
	out := m.View()
	if !strings.Contains(out, "No packages selected") {
		t.Fatalf("expected empty-state message, got:\n%s", out)
	}
	if strings.ContainsAny(out, "⡀⢀⠁⠈") {
		t.Fatalf("expected no chart surface for empty selection")
	}
}

func TestAddPackageSavesRouteAndLoads(t *testing.T) {
	m, store := newTestModel(t, stubFetcher{"flask": daySeries("flask", 10, 20, 30)}, nil, selection.DefaultMaxPackages)
	typeText(m, "flask")
	cmd := press(m, tea.KeyEnter)
	if cmd == nil {
		t.Fatalf("expected load command")
	}
	if !reflect.DeepEqual(m.selection, selection.Set{"flask"}) {
		t.Fatalf("unexpected selection: %v", m.selection)
	}
	if store.Route() != "/flask" {
		t.Fatalf("expected route saved, got %q", store.Route())
	}
	if !m.loading {
		t.Fatalf("expected loading state")
	}
	finishLoad(m)
	if m.loading || len(m.table) != 3 {
		t.Fatalf("expected loaded table, loading=%v rows=%d", m.loading, len(m.table))
	}
	out := m.View()
	if !strings.Contains(out, "Jan 3, 2024") || !strings.Contains(out, "flask: 30") {
		t.Fatalf("expected tooltip for the latest row, got:\n%s", out)
	}
}

func TestAddIgnoresDuplicatesAndCapacity(t *testing.T) {
	m, store := newTestModel(t, stubFetcher{}, selection.Set{"a", "b"}, 2)
	press(m, tea.KeyEsc)
	pressRune(m, '/')
	typeText(m, "c")
	if cmd := press(m, tea.KeyEnter); cmd != nil {
		t.Fatalf("expected no command when at capacity")
	}
	typeText(m, "a")
	if cmd := press(m, tea.KeyEnter); cmd != nil {
		t.Fatalf("expected no command for duplicate")
	}
	if !reflect.DeepEqual(m.selection, selection.Set{"a", "b"}) {
		t.Fatalf("selection changed: %v", m.selection)
	}
	if store.Route() != "/" {
		t.Fatalf("expected no route write, got %q", store.Route())
	}
}

func TestAddIgnoresRouteSeparator(t *testing.T) {
	m, store := newTestModel(t, stubFetcher{}, nil, selection.DefaultMaxPackages)
	typeText(m, "a+b")
	if cmd := press(m, tea.KeyEnter); cmd != nil {
		t.Fatalf("expected no command for an identifier containing +")
	}
	if len(m.selection) != 0 || store.Route() != "/" {
		t.Fatalf("expected unchanged selection, got %v %q", m.selection, store.Route())
	}
}

func TestStaleLoadIsDropped(t *testing.T) {
	fetcher := stubFetcher{
		"a": daySeries("a", 1, 2),
		"b": daySeries("b", 5, 6, 7),
	}
	m, _ := newTestModel(t, fetcher, selection.Set{"a"}, selection.DefaultMaxPackages)
	m.Init()
	staleSeq, staleIDs := m.loadSeq, m.selection
	stale := m.load(staleSeq, staleIDs)()

	pressRune(m, '/')
	typeText(m, "b")
	press(m, tea.KeyEnter)
	m.Update(stale)
	if !m.loading || m.table != nil {
		t.Fatalf("stale result applied: loading=%v table=%v", m.loading, m.table)
	}
	finishLoad(m)
	if cols := m.table.Columns(); !reflect.DeepEqual(cols, []string{"a", "b"}) {
		t.Fatalf("unexpected columns: %v", cols)
	}
}

func TestRemoveChip(t *testing.T) {
	m, store := newTestModel(t, stubFetcher{}, selection.Set{"a", "b", "c"}, selection.DefaultMaxPackages)
	if m.inputMode {
		t.Fatalf("expected browse mode with a selection")
	}
	press(m, tea.KeyTab)
	if cmd := pressRune(m, 'x'); cmd == nil {
		t.Fatalf("expected reload after removal")
	}
	if !reflect.DeepEqual(m.selection, selection.Set{"a", "c"}) {
		t.Fatalf("unexpected selection: %v", m.selection)
	}
	if store.Route() != "/a+c" {
		t.Fatalf("unexpected route %q", store.Route())
	}
	pressRune(m, 'x')
	pressRune(m, 'x')
	if len(m.selection) != 0 || store.Route() != "/" {
		t.Fatalf("expected empty selection and root route, got %v %q", m.selection, store.Route())
	}
	if !m.inputMode {
		t.Fatalf("expected input mode after removing the last package")
	}
}

func TestMissingPackageNotice(t *testing.T) {
	m, _ := newTestModel(t, stubFetcher{"real": daySeries("real", 4)}, selection.Set{"ghost", "real"}, selection.DefaultMaxPackages)
	m.Init()
	finishLoad(m)
	if !reflect.DeepEqual(m.missing, []string{"ghost"}) {
		t.Fatalf("unexpected missing list: %v", m.missing)
	}
	if out := m.View(); !strings.Contains(out, "No data for: ghost") {
		t.Fatalf("expected missing notice, got:\n%s", out)
	}
}

func TestWindowAndCursorKeys(t *testing.T) {
	values := make([]int64, 40)
	for i := range values {
		values[i] = int64(i + 1)
	}
	m, _ := newTestModel(t, stubFetcher{"a": daySeries("a", values...)}, selection.Set{"a"}, selection.DefaultMaxPackages)
	m.Init()
	finishLoad(m)

	pressRune(m, 'w')
	if m.cfg.WindowDays != 30 {
		t.Fatalf("expected window 30, got %d", m.cfg.WindowDays)
	}
	if rows := len(m.currentView().Rows); rows != 30 {
		t.Fatalf("expected 30 rows in view, got %d", rows)
	}
	for i := 0; i < 50; i++ {
		press(m, tea.KeyLeft)
	}
	if m.cursorBack != 29 {
		t.Fatalf("expected cursor clamped to first row, got %d", m.cursorBack)
	}
	press(m, tea.KeyRight)
	if m.cursorBack != 28 {
		t.Fatalf("expected cursor to move forward, got %d", m.cursorBack)
	}
	pressRune(m, 'w')
	pressRune(m, 'w')
	if m.cfg.WindowDays != 180 {
		t.Fatalf("expected window to wrap to 180, got %d", m.cfg.WindowDays)
	}
}

func TestSortToggle(t *testing.T) {
	fetcher := stubFetcher{
		"a": {Package: "a", Points: []model.SeriesPoint{
			{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Downloads: 3},
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Downloads: 1},
		}},
	}
	m, _ := newTestModel(t, fetcher, selection.Set{"a"}, selection.DefaultMaxPackages)
	m.Init()
	finishLoad(m)
	if m.table[0].Date.Day() != 1 {
		t.Fatalf("expected date-sorted table")
	}
	pressRune(m, 's')
	if m.table[0].Date.Day() != 3 {
		t.Fatalf("expected insertion order after toggle")
	}
}

func TestThemeKeyCyclesPreference(t *testing.T) {
	restore := theme.SetDeviceDetector(func() bool { return true })
	t.Cleanup(func() {
		restore()
		theme.Init(context.Background(), nil, theme.Default)
	})
	theme.Init(context.Background(), nil, theme.Light)

	m, _ := newTestModel(t, stubFetcher{}, selection.Set{"a"}, selection.DefaultMaxPackages)
	pressRune(m, 't')
	if theme.Current() != theme.Dark {
		t.Fatalf("expected dark theme, got %q", theme.Current())
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t, stubFetcher{}, selection.Set{"a"}, selection.DefaultMaxPackages)
	cmd := pressRune(m, 'q')
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}

	m.setInputMode(true)
	pressRune(m, 'q')
	if m.input.Value() != "q" {
		t.Fatalf("expected q to be typed in input mode, got %q", m.input.Value())
	}
}

// ABOUTME: Interactive prayer feed browser built on bubbletea.
// ABOUTME: Renders the synchronizer's snapshot and turns keys, focus, and ticks into feed operations.

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harper/amenity/internal/appstate"
	"github.com/harper/amenity/internal/content"
	"github.com/harper/amenity/internal/feedsync"
	"github.com/harper/amenity/internal/models"
	"github.com/harper/amenity/internal/storage"
	"github.com/harper/amenity/internal/timeutil"
)

// UserID attributes prayers and encouragements made from the browser.
const UserID = "tui"

// loadMoreThreshold is how close to the last row the cursor gets before
// the next page is requested.
const loadMoreThreshold = 2

// chromeLines is the header and footer height around the list.
const chromeLines = 6

const refreshingStatus = "Refreshing..."

var (
	rowStyle      = lipgloss.NewStyle()
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	novelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	urgentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	answeredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// updateMsg arrives when the synchronizer's state changed.
type updateMsg struct{}

// pollMsg fires on the polling interval.
type pollMsg time.Time

// actionMsg reports the outcome of a pray or encourage write.
type actionMsg struct {
	status string
	err    error
}

// FeedModel is the bubbletea model for browsing the feed.
type FeedModel struct {
	ctx   context.Context
	feed  *feedsync.Syncer
	store storage.Store
	state *appstate.State

	updates     <-chan struct{}
	unsubscribe func()

	snap   feedsync.Snapshot
	cursor int
	top    int
	width  int
	height int

	composing bool
	input     textinput.Model
	status    string
	quitting  bool
	now       func() time.Time
}

// NewFeedModel creates a browser over feed. Writes go to store and bump
// state so other views refresh their counts.
func NewFeedModel(ctx context.Context, feed *feedsync.Syncer, store storage.Store, state *appstate.State) FeedModel {
	updates, unsubscribe := feed.Subscribe()
	// Later bumps refresh counts; the current value is only a baseline.
	feed.OnRefreshSignal(ctx, state.Counter())

	input := textinput.New()
	input.Placeholder = "Write an encouragement..."
	input.CharLimit = 280
	input.Width = 60

	return FeedModel{
		ctx:         ctx,
		feed:        feed,
		store:       store,
		state:       state,
		updates:     updates,
		unsubscribe: unsubscribe,
		snap:        feed.Snapshot(),
		input:       input,
		height:      24,
		width:       80,
		now:         time.Now,
	}
}

// Close stops listening for synchronizer updates.
func (m FeedModel) Close() {
	m.unsubscribe()
}

// Init implements tea.Model.
func (m FeedModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForUpdate(), m.loadInitial(false)}
	if m.feed.Options().PollingEnabled {
		cmds = append(cmds, m.poll())
	}
	return tea.Batch(cmds...)
}

func (m FeedModel) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return updateMsg{}
	}
}

func (m FeedModel) loadInitial(force bool) tea.Cmd {
	return func() tea.Msg {
		m.feed.LoadInitial(m.ctx, force)
		return nil
	}
}

func (m FeedModel) loadMore() tea.Cmd {
	return func() tea.Msg {
		m.feed.LoadMore(m.ctx)
		return nil
	}
}

func (m FeedModel) onFocus() tea.Cmd {
	return func() tea.Msg {
		m.feed.OnFocus(m.ctx)
		return nil
	}
}

func (m FeedModel) poll() tea.Cmd {
	return tea.Tick(m.feed.Options().PollInterval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

// Update implements tea.Model.
func (m FeedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.snap = m.feed.Snapshot()
		if m.status == refreshingStatus && !m.snap.LoadingInitial {
			m.status = ""
		}
		m.clampCursor()
		return m, m.waitForUpdate()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampCursor()
		return m, nil

	case tea.FocusMsg:
		return m, m.onFocus()

	case pollMsg:
		return m, tea.Batch(m.onFocus(), m.poll())

	case actionMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = msg.status
		}
		return m, nil

	case tea.KeyMsg:
		if m.composing {
			return m.updateCompose(msg)
		}
		return m.updateKeys(msg)
	}

	if m.composing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m FeedModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "down", "j":
		return m.moveCursor(1)
	case "up", "k":
		return m.moveCursor(-1)
	case "pgdown":
		return m.moveCursor(m.visibleRows())
	case "pgup":
		return m.moveCursor(-m.visibleRows())
	case "G", "end":
		return m.moveCursor(len(m.snap.Items))
	case "g", "home":
		return m.moveCursor(-len(m.snap.Items))
	case "r":
		m.status = refreshingStatus
		return m, m.loadInitial(true)
	case "p":
		req := m.selected()
		if req == nil {
			return m, nil
		}
		return m, m.pray(req)
	case "e":
		if m.selected() == nil {
			return m, nil
		}
		m.composing = true
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m FeedModel) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEscape:
		m.composing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.composing = false
		m.input.Blur()
		req := m.selected()
		if text == "" || req == nil {
			return m, nil
		}
		return m, m.encourage(req, text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// moveCursor shifts the selection and asks for the next page when the
// cursor lands near the end of what is loaded.
func (m FeedModel) moveCursor(delta int) (tea.Model, tea.Cmd) {
	m.cursor += delta
	m.clampCursor()

	if m.nearBottom() && m.snap.Window.HasMore && !m.snap.LoadingMore {
		return m, m.loadMore()
	}
	return m, nil
}

func (m FeedModel) nearBottom() bool {
	return len(m.snap.Items) > 0 && m.cursor >= len(m.snap.Items)-1-loadMoreThreshold
}

func (m *FeedModel) clampCursor() {
	if m.cursor >= len(m.snap.Items) {
		m.cursor = len(m.snap.Items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	rows := m.visibleRows()
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if m.cursor >= m.top+rows {
		m.top = m.cursor - rows + 1
	}
	if m.top < 0 {
		m.top = 0
	}
}

func (m FeedModel) visibleRows() int {
	rows := m.height - chromeLines
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m FeedModel) selected() *models.Request {
	if m.cursor < 0 || m.cursor >= len(m.snap.Items) {
		return nil
	}
	return m.snap.Items[m.cursor]
}

// afterWrite bumps the shared counter and lets the feed refresh counts.
func (m FeedModel) afterWrite() {
	m.feed.OnRefreshSignal(m.ctx, m.state.Bump())
}

func (m FeedModel) pray(req *models.Request) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.AddPrayer(m.ctx, models.NewPrayer(req.ID, UserID)); err != nil {
			return actionMsg{err: fmt.Errorf("record prayer: %w", err)}
		}
		m.afterWrite()
		return actionMsg{status: fmt.Sprintf("Prayed for %q", req.Title)}
	}
}

func (m FeedModel) encourage(req *models.Request, text string) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.AddEncouragement(m.ctx, models.NewEncouragement(req.ID, UserID, text)); err != nil {
			return actionMsg{err: fmt.Errorf("add encouragement: %w", err)}
		}
		m.afterWrite()
		return actionMsg{status: fmt.Sprintf("Encouraged %q", req.Title)}
	}
}

// View implements tea.Model.
func (m FeedModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(brandStyle.Render("AMENITY"))
	b.WriteString(titleStyle.Render(" - Prayer Feed"))
	b.WriteString("\n\n")

	switch {
	case len(m.snap.Items) == 0 && m.snap.LoadingInitial:
		b.WriteString(metaStyle.Render("Loading requests..."))
		b.WriteString("\n")
	case len(m.snap.Items) == 0:
		b.WriteString(metaStyle.Render("No prayer requests yet. Post one with `amenity post`."))
		b.WriteString("\n")
	default:
		end := m.top + m.visibleRows()
		if end > len(m.snap.Items) {
			end = len(m.snap.Items)
		}
		now := m.now()
		for i := m.top; i < end; i++ {
			b.WriteString(m.renderRow(i, now))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m FeedModel) renderRow(i int, now time.Time) string {
	req := m.snap.Items[i]
	counts := m.snap.CountsFor(req.ID)

	marker := "  "
	style := rowStyle
	if m.snap.IsNovel(req.ID) {
		marker = "+ "
		style = novelStyle
	}
	if i == m.cursor {
		marker = "> "
		style = cursorStyle
	}

	title := req.Title
	if m.width > 40 {
		title = content.Excerpt(title, m.width-40)
	}
	line := style.Render(marker + title)
	if req.Status == models.StatusAnswered {
		line += " " + answeredStyle.Render("(answered)")
	}
	if req.Urgency == models.UrgencyUrgent || req.Urgency == models.UrgencyHigh {
		line += " " + urgentStyle.Render("!"+string(req.Urgency))
	}

	meta := fmt.Sprintf("  %s · %d prayers · %d encouragements · %s",
		req.Category, counts.Prayers, counts.Encouragements, timeutil.Ago(req.CreatedAt, now))
	return line + metaStyle.Render(meta)
}

func (m FeedModel) footer() string {
	var b strings.Builder
	if m.composing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter send · esc cancel"))
		return b.String()
	}

	switch {
	case m.snap.LoadingMore:
		b.WriteString(metaStyle.Render("Loading more..."))
	case len(m.snap.Items) > 0 && !m.snap.Window.HasMore:
		b.WriteString(metaStyle.Render(fmt.Sprintf("%d requests · end of feed", len(m.snap.Items))))
	case len(m.snap.Items) > 0:
		b.WriteString(metaStyle.Render(fmt.Sprintf("%d requests loaded", len(m.snap.Items))))
	}
	if m.status != "" {
		b.WriteString("  ")
		b.WriteString(successStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k move · p pray · e encourage · r refresh · q quit"))
	return b.String()
}

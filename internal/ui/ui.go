package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/plbop/internal/formatter"
	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ProgressView ViewState = iota
	ResultView
)

// number of progress messages kept on screen
const historySize = 5

// how long Run waits for a cancelled run to return before giving up on it
const drainTimeout = 5 * time.Second

// RunFunc starts a fill run that reports on progress. It is called once, off the UI goroutine.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.FillResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	run          RunFunc
	width        int
	height       int
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan runOutcome
	finished     chan struct{}
	progress     tasks.ProgressUpdate
	history      []string
	trackList    list.Model
	result       *tasks.FillResult
	err          error
	help         help.Model
	keys         keyMap
}

var _ list.Item = trackItem{}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string {
	if i.track.Title == "" {
		return i.track.ID
	}
	return i.track.Title
}
func (i trackItem) Description() string {
	return fmt.Sprintf("%s • %s", i.track.Artist, formatter.FormatDuration(i.track.Duration))
}

// NewModel creates a TUI model that drives run.
func NewModel(ctx context.Context, run RunFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		view:    ProgressView,
		run:     run,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Run shows the TUI until the user quits and returns the outcome of the fill run.
func Run(ctx context.Context, run RunFunc) (*tasks.FillResult, error) {
	m := NewModel(ctx, run)
	defer m.cancel()

	final, err := tea.NewProgram(m).Run()
	// the run may still be writing its journal entry after an early quit
	m.cancel()
	m.wait(drainTimeout)
	if err != nil {
		return nil, err
	}

	fm := final.(*Model)
	if fm.view != ResultView {
		return fm.result, context.Canceled
	}
	return fm.result, fm.err
}

// Init starts the spinner and the fill run.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ResultView {
			m.trackList.SetSize(m.listSize())
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}
		if m.view == ResultView {
			var cmd tea.Cmd
			m.trackList, cmd = m.trackList.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != ProgressView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.progress = update
			m.history = append(m.history, update.Message)
			if len(m.history) > historySize {
				m.history = m.history[len(m.history)-historySize:]
			}
			return m, m.waitForProgress()
		case MsgRunComplete:
			outcome := msg.data.(runOutcome)
			m.result = outcome.result
			m.err = outcome.err
			m.view = ResultView
			m.trackList = m.newTrackList()
			return m, nil
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ProgressView:
		return m.renderProgress()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan runOutcome, 1)
	m.finished = make(chan struct{})

	go func(progress chan tasks.ProgressUpdate, done chan<- runOutcome, finished chan struct{}) {
		result, err := m.run(m.ctx, progress)
		close(finished)
		close(progress)
		done <- runOutcome{result, err}
	}(m.progressChan, m.doneChan, m.finished)

	return m.waitForProgress()
}

// wait blocks until the run returns or timeout passes, and reports whether it returned.
func (m *Model) wait(timeout time.Duration) bool {
	if m.finished == nil {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-m.finished:
		return true
	case <-timer.C:
		return false
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			outcome := <-done
			return runCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 20), max(m.height-16, 5)
}

func (m *Model) newTrackList() list.Model {
	var tracks []models.Track
	if m.result != nil {
		tracks = m.result.Tracks
	}

	items := make([]list.Item, len(tracks))
	for i, track := range tracks {
		items[i] = trackItem{track: track}
	}

	w, h := m.listSize()
	l := list.New(items, list.NewDefaultDelegate(), w, h)
	l.Title = "Selected tracks"
	l.SetShowHelp(false)
	return l
}

func phaseLabel(p tasks.ProgressUpdate) string {
	switch p.Phase {
	case tasks.FetchSeeds:
		return "Reading seed playlist"
	case tasks.Recommend:
		return fmt.Sprintf("Requesting recommendations (%d/%d)", p.Step, p.Total)
	case tasks.ScanKnown:
		return "Removing tracks you already have"
	case tasks.Shuffle:
		return "Shuffling candidates"
	case tasks.Replace:
		return "Writing destination playlist"
	case tasks.Done:
		return "Finishing up"
	default:
		return "Starting"
	}
}

func (m *Model) renderProgress() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Filling playlist"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), phaseLabel(m.progress))
	for _, line := range m.history {
		b.WriteString(styles.help.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Fill failed: %v", m.err)) +
			"\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit})
	}
	if m.result == nil {
		return styles.err.Render("No result available") +
			"\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit})
	}

	title := styles.ok.Render("✓ Playlist filled")
	if m.result.DryRun {
		title = styles.warn.Render("Dry run: destination left unchanged")
	}

	summary := styles.box.Render(renderSummary(m.result))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.quit})

	return lipgloss.JoinVertical(lipgloss.Left, title, summary, m.trackList.View(), helpView)
}

// renderSummary lays out the counts of a run as label/value rows.
func renderSummary(r *tasks.FillResult) string {
	seed := "-"
	if r.SeedPlaylist != nil {
		seed = r.SeedPlaylist.Name
	}
	dest := r.DestPlaylistID
	if dest == "" {
		dest = "-"
	}

	rows := [][2]string{
		{"Seed", seed},
		{"Destination", dest},
		{"User", r.UserID},
		{"Seeds", fmt.Sprintf("%d read, %d sampled, %d requests", r.SeedCount, r.SampledCount, r.ChunkCount)},
		{"Known", fmt.Sprintf("%d tracks in %d playlists", r.KnownCount, r.ScannedPlaylists)},
		{"Recommended", fmt.Sprintf("%d (%d removed)", len(r.Recommended), len(r.Removed))},
		{"Selected", fmt.Sprintf("%d", len(r.Tracks))},
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = lipgloss.JoinHorizontal(lipgloss.Top, styles.label.Render(row[0]), row[1])
	}
	return strings.Join(lines, "\n")
}

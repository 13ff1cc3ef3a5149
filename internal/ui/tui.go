package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer draws progress with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *progressModel
	tracker *ProgressTracker
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails when the output is not a
// terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newProgressModel(tracker, cfg.Title)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start runs the program on its own goroutine. ctx cancellation ends it.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// send forwards msg to the running program. Before Start it is dropped;
// the tracker already holds the state the next frame will draw.
func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.tracker.Apply(event)
	r.send(refreshMsg{})
}

func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.tracker.AddError(event)
	r.send(refreshMsg{})
}

// Complete swaps the live view for the summary panel and ends the program.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.tracker.Apply(ProgressEvent{Stage: StageComplete})
	r.send(completeMsg(stats))
}

// Stop quits the program and waits briefly for the terminal to be restored.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p == nil {
		return nil
	}
	p.Quit()

	t := time.NewTimer(2 * time.Second)
	defer t.Stop()
	select {
	case <-r.done:
	case <-t.C:
	}
	return nil
}

type refreshMsg struct{}
type completeMsg CompletionStats
type tickMsg time.Time

// progressModel is the bubbletea model.
type progressModel struct {
	tracker  *ProgressTracker
	title    string
	width    int
	quitting bool
	complete bool
	stats    CompletionStats
	spinner  spinner.Model
	bar      progress.Model
	styles   Styles
}

func newProgressModel(tracker *ProgressTracker, title string) *progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &progressModel{
		tracker: tracker,
		title:   title,
		width:   80,
		spinner: s,
		bar:     progress.New(progress.WithSolidFill(ColorAccent), progress.WithWidth(50), progress.WithoutPercentage()),
		styles:  DefaultStyles(),
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(20, msg.Width-20)
	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit
	case tickMsg:
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	stats := m.tracker.Stats()
	width := max(40, m.width-4)

	var lines []string
	lines = append(lines, m.renderStages(stats.Stage))
	lines = append(lines, m.styles.Dim.Render(strings.Repeat("─", width-4)))

	if stats.Total == 0 {
		lines = append(lines, fmt.Sprintf("%s %s...", m.spinner.View(), stats.Stage))
	} else {
		pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", stats.Progress*100))
		lines = append(lines, m.bar.ViewAs(stats.Progress)+"  "+pct)
		count := fmt.Sprintf("%d / %d documents", stats.Current, stats.Total)
		if stats.ETA > 0 {
			count += "  •  ETA " + formatDuration(stats.ETA)
		}
		lines = append(lines, m.styles.Label.Render(count))
	}
	if stats.Document != "" {
		lines = append(lines, m.styles.Dim.Render(truncate(stats.Document, width-6)))
	}

	panel := m.styles.Panel.Width(width).Render(strings.Join(lines, "\n"))
	return m.styles.Header.Render(m.title) + "\n" + panel + "\n" + m.renderStatusBar(stats) + "\n"
}

func (m *progressModel) renderStages(current Stage) string {
	var parts []string
	for _, s := range []Stage{StageUploading, StageEmbedding} {
		switch {
		case s < current:
			parts = append(parts, m.styles.Success.Render("● "+s.String()))
		case s == current:
			parts = append(parts, m.styles.Active.Render(m.spinner.View()+" "+s.String()))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+s.String()))
		}
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *progressModel) renderStatusBar(stats ProgressStats) string {
	var parts []string
	if stats.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", stats.WarnCount)))
	}
	if stats.ErrorCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", stats.ErrorCount)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *progressModel) renderComplete() string {
	lines := []string{
		m.styles.Success.Render("✓ " + m.title + " complete"),
		"",
		m.styles.Label.Render("Documents: ") + m.styles.Active.Render(fmt.Sprintf("%d", m.stats.Documents)),
		m.styles.Label.Render("Chunks:    ") + m.styles.Active.Render(fmt.Sprintf("%d", m.stats.Chunks)),
		m.styles.Label.Render("Duration:  ") + m.styles.Active.Render(formatDuration(m.stats.Duration)),
	}
	if m.stats.Embedder.Model != "" {
		lines = append(lines, m.styles.Label.Render("Embedder:  ")+
			fmt.Sprintf("%s (%s, %d dims)", m.stats.Embedder.Provider, m.stats.Embedder.Model, m.stats.Embedder.Dimensions))
	}
	if m.stats.Errors > 0 {
		lines = append(lines, "", m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.stats.Errors)))
	}
	return m.styles.Panel.Padding(1, 2).Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration for humans.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		m, s := int(d.Minutes()), int(d.Seconds())%60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// truncate shortens s to maxLen runes, keeping the end.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen < 4 || len(r) <= maxLen {
		return s
	}
	return "..." + string(r[len(r)-maxLen+3:])
}

var _ Renderer = (*TUIRenderer)(nil)

// internal/tui/app.go
//
// The terminal front end for questify. It follows The Elm Architecture:
// key presses become messages, Update hands them to the orchestrator or the
// widgets, and View renders a snapshot of the session.
//
// Update is the only place session state changes. Network calls run inside
// tea.Cmd goroutines and come back as messages the orchestrator owns.

package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/questify/internal/logbook"
	"github.com/kingrea/questify/internal/orchestrator"
	"github.com/kingrea/questify/internal/session"
)

type focusArea int

const (
	focusFile focusArea = iota
	focusQuestion
)

// StatFunc resolves a path typed by the user. It matches os.Stat.
type StatFunc func(path string) (os.FileInfo, error)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook attaches the session log shown in the log panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithStat overrides how typed file paths are checked.
func WithStat(stat StatFunc) AppOption {
	return func(a *App) {
		if stat != nil {
			a.stat = stat
		}
	}
}

// WithBackendLabel sets the backend description shown in the header.
func WithBackendLabel(label string) AppOption {
	return func(a *App) {
		a.backend = strings.TrimSpace(label)
	}
}

// App is the bubbletea model for the whole screen.
type App struct {
	orch    *orchestrator.Orchestrator
	logbook *logbook.Logbook
	stat    StatFunc
	backend string

	keys     keyMap
	help     help.Model
	path     textinput.Model
	question textarea.Model
	spinner  spinner.Model
	focus    focusArea

	statusMsg string
	spinning  bool

	width  int
	height int
}

// NewApp creates the TUI around an orchestrator.
func NewApp(orch *orchestrator.Orchestrator, opts ...AppOption) *App {
	path := textinput.New()
	path.Placeholder = "path/to/document.pdf"
	path.Prompt = "File › "
	path.CharLimit = 4096
	path.Focus()

	question := textarea.New()
	question.Placeholder = "Ask something about the document..."
	question.ShowLineNumbers = false
	question.SetHeight(3)
	question.CharLimit = 2000
	question.Blur()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = labelStyle

	app := &App{
		orch:     orch,
		stat:     os.Stat,
		keys:     defaultKeyMap(),
		help:     help.New(),
		path:     path,
		question: question,
		spinner:  spin,
		focus:    focusFile,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	a.logInfo("Session opened · model %s", a.orch.Model())
	return textinput.Blink
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if orchestrator.Owns(msg) {
		cmd := a.orch.Update(msg)
		return a, tea.Batch(cmd, a.ensureSpinner())
	}
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		inner := max(20, msg.Width-8)
		a.path.Width = inner - len(a.path.Prompt)
		a.question.SetWidth(inner)
		a.help.Width = msg.Width
		return a, nil

	case spinner.TickMsg:
		if !a.busy() {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, a.updateFocused(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.logInfo("Session closed")
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil
	case key.Matches(msg, a.keys.Focus):
		return a, a.toggleFocus()
	case key.Matches(msg, a.keys.Upload):
		return a, a.upload()
	case key.Matches(msg, a.keys.Ask):
		return a, a.ask()
	case a.focus == focusFile && key.Matches(msg, a.keys.Select):
		a.selectPath()
		return a, nil
	}
	return a, a.updateFocused(msg)
}

func (a *App) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.focus {
	case focusQuestion:
		before := a.question.Value()
		a.question, cmd = a.question.Update(msg)
		if after := a.question.Value(); after != before {
			a.orch.SetQuestion(after)
		}
	default:
		a.path, cmd = a.path.Update(msg)
	}
	return cmd
}

func (a *App) toggleFocus() tea.Cmd {
	if a.focus == focusFile {
		a.focus = focusQuestion
		a.path.Blur()
		return a.question.Focus()
	}
	a.focus = focusFile
	a.question.Blur()
	return a.path.Focus()
}

// selectPath turns the typed path into the session's selected file.
func (a *App) selectPath() {
	raw := strings.TrimSpace(a.path.Value())
	if raw == "" {
		a.statusMsg = "Type a file path first."
		return
	}
	info, err := a.stat(raw)
	if err != nil {
		a.statusMsg = fmt.Sprintf("Cannot open %s: %v", raw, err)
		a.logWarn("File · %s unavailable: %v", raw, err)
		return
	}
	if info.IsDir() {
		a.statusMsg = fmt.Sprintf("%s is a directory", raw)
		return
	}
	a.orch.SelectFile(session.File{Name: filepath.Base(raw), Path: raw, Size: info.Size()})
	a.question.Reset()
	a.statusMsg = fmt.Sprintf("Selected %s (%s)", filepath.Base(raw), humanizeBytes(info.Size()))
}

func (a *App) upload() tea.Cmd {
	if snap := a.orch.Snapshot(); snap.SelectedFile == nil && strings.TrimSpace(a.path.Value()) != "" {
		a.selectPath()
	}
	cmd := a.orch.Upload()
	if cmd == nil {
		return nil
	}
	a.statusMsg = ""
	return tea.Batch(cmd, a.ensureSpinner())
}

func (a *App) ask() tea.Cmd {
	a.orch.SetQuestion(a.question.Value())
	cmd := a.orch.Ask()
	if cmd == nil {
		return nil
	}
	return tea.Batch(cmd, a.ensureSpinner())
}

// ensureSpinner starts the spinner tick loop if a request is running and
// the loop is not already active.
func (a *App) ensureSpinner() tea.Cmd {
	if !a.busy() || a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

func (a *App) busy() bool {
	snap := a.orch.Snapshot()
	return snap.UploadStatus == session.StatusInProgress ||
		snap.SummaryStatus == session.StatusInProgress ||
		snap.AnswerStatus == session.StatusInProgress
}

func humanizeBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/questify/internal/session"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7BD88F"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	focusedBoxStyle = boxStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
)

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	inner := max(20, width-4)
	snap := a.orch.Snapshot()

	header := "⬡ QUESTIFY"
	if a.backend != "" {
		header += labelStyle.Render("  " + a.backend + " · model " + a.orch.Model())
	}
	sections := []string{headerStyle.Render(header)}
	sections = append(sections, a.box(a.renderUpload(snap), inner, a.focus == focusFile))
	if snap.HasDocument() || snap.SummaryStatus != session.StatusIdle {
		sections = append(sections, a.box(a.renderSummary(snap), inner, false))
	}
	sections = append(sections, a.box(a.renderAsk(snap), inner, a.focus == focusQuestion))
	if logPanel := a.renderLogPanel(inner); logPanel != "" {
		sections = append(sections, logPanel)
	}
	if a.statusMsg != "" {
		sections = append(sections, labelStyle.Render(a.statusMsg))
	}
	sections = append(sections, a.help.View(a.keys))
	return strings.Join(sections, "\n")
}

func (a *App) box(content string, width int, focused bool) string {
	style := boxStyle
	if focused {
		style = focusedBoxStyle
	}
	return style.Width(width).Render(content)
}

func (a *App) renderUpload(snap session.State) string {
	lines := []string{titleStyle.Render("Upload"), a.path.View()}
	if snap.SelectedFile != nil {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("Selected: %s · %s", snap.SelectedFile.Name, humanizeBytes(snap.SelectedFile.Size))))
	}
	switch snap.UploadStatus {
	case session.StatusInProgress:
		lines = append(lines, a.spinner.View()+" Uploading...")
	case session.StatusSucceeded:
		lines = append(lines, okStyle.Render(snap.UploadMessage))
		lines = append(lines, labelStyle.Render("Document: "+snap.DocumentID))
	case session.StatusFailed:
		lines = append(lines, errorStyle.Render(snap.UploadMessage))
	default:
		if snap.UploadMessage != "" {
			lines = append(lines, errorStyle.Render(snap.UploadMessage))
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderSummary(snap session.State) string {
	lines := []string{titleStyle.Render("Summary")}
	switch snap.SummaryStatus {
	case session.StatusInProgress:
		lines = append(lines, a.spinner.View()+" Summarizing...")
	case session.StatusFailed:
		lines = append(lines, errorStyle.Render(snap.Summary))
	default:
		lines = append(lines, snap.Summary)
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderAsk(snap session.State) string {
	lines := []string{titleStyle.Render("Ask a question")}
	if !snap.HasDocument() {
		lines = append(lines, mutedStyle.Render("Upload a document to ask about it."))
	}
	lines = append(lines, a.question.View())
	if snap.AskMessage != "" {
		lines = append(lines, errorStyle.Render(snap.AskMessage))
	}
	switch snap.AnswerStatus {
	case session.StatusInProgress:
		lines = append(lines, a.spinner.View()+" Thinking...")
	case session.StatusSucceeded:
		lines = append(lines, titleStyle.Render("Answer"), snap.Answer)
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderLogPanel(width int) string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := titleStyle.Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := mutedStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Width(width).Render(fmt.Sprintf("%s\n%s", head, body))
}

package orchestrator

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/questify/internal/inference"
	"github.com/kingrea/questify/internal/session"
)

type uploadFinishedMsg struct {
	ticket session.UploadTicket
	docID  string
	err    error
}

type summaryFinishedMsg struct {
	ticket  session.SummaryTicket
	summary string
	err     error
}

type askFinishedMsg struct {
	ticket session.AskTicket
	answer string
	err    error
}

func (o *Orchestrator) handleUploadFinished(m uploadFinishedMsg) tea.Cmd {
	res := session.UploadCompleted{Ticket: m.ticket, DocumentID: m.docID, Err: m.err}
	if m.err != nil {
		res.Message = failureMessage(m.err, MsgUploadFailed)
	}
	next, err := o.session.CompleteUpload(res)
	if err != nil {
		o.logDropped("upload", err)
		return nil
	}
	if next.UploadStatus == session.StatusFailed {
		o.logError("Upload · %s failed: %s", m.ticket.File.Name, describe(m.err, next.UploadMessage))
		return nil
	}
	o.logInfo("Upload · %s stored as %s", m.ticket.File.Name, next.DocumentID)
	ticket, ok := next.PendingSummary()
	if !ok {
		return nil
	}
	return o.summarize(ticket)
}

func (o *Orchestrator) handleSummaryFinished(m summaryFinishedMsg) {
	res := session.SummaryCompleted{Ticket: m.ticket, Summary: m.summary, Err: m.err}
	if m.err != nil {
		res.Message = summaryPlaceholder(m.err)
	}
	if _, err := o.session.CompleteSummary(res); err != nil {
		o.logDropped("summary", err)
		return
	}
	if m.err != nil {
		o.logWarn("Summary · %s failed: %v", m.ticket.DocumentID, m.err)
		return
	}
	o.logInfo("Summary · %s received (%d chars)", m.ticket.DocumentID, len(m.summary))
}

func (o *Orchestrator) handleAskFinished(m askFinishedMsg) {
	res := session.AskCompleted{Ticket: m.ticket, Answer: m.answer, Err: m.err}
	if m.err != nil {
		res.Message = failureMessage(m.err, MsgAskFailed)
	}
	if _, err := o.session.CompleteAsk(res); err != nil {
		o.logDropped("ask", err)
		return
	}
	if m.err != nil {
		o.logError("Ask · %s failed: %v", m.ticket.DocumentID, m.err)
		return
	}
	o.logInfo("Ask · %s answered", m.ticket.DocumentID)
}

// failureMessage renders err for the user: the service's own message when it
// sent one, "Error: <cause>" when no response arrived, fallback otherwise.
func failureMessage(err error, fallback string) string {
	if berr, ok := inference.AsBackendError(err); ok {
		if berr.Message != "" {
			return berr.Message
		}
		return fallback
	}
	if terr, ok := inference.AsTransportError(err); ok {
		return "Error: " + terr.Cause()
	}
	return "Error: " + err.Error()
}

// summaryPlaceholder is stored in place of the summary when the lookup fails.
func summaryPlaceholder(err error) string {
	if _, ok := inference.AsBackendError(err); ok {
		return MsgSummaryFailed
	}
	return failureMessage(err, MsgSummaryFailed)
}

func describe(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}

func (o *Orchestrator) logRejected(op string, err error) {
	switch {
	case errors.Is(err, session.ErrUploadInProgress), errors.Is(err, session.ErrAskInProgress):
		o.logInfo("%s · ignored, request already in flight", op)
	default:
		if verr, ok := session.IsValidation(err); ok {
			o.logWarn("%s · rejected: %s", op, verr.Kind)
			return
		}
		o.logError("%s · rejected: %v", op, err)
	}
}

func (o *Orchestrator) logDropped(op string, err error) {
	if session.IsStale(err) {
		o.logWarn("Discarded %s result: %v", op, err)
		return
	}
	o.logError("Could not apply %s result: %v", op, err)
}

func (o *Orchestrator) logInfo(format string, args ...any) {
	if o.logbook == nil {
		return
	}
	o.logbook.Info(format, args...)
}

func (o *Orchestrator) logWarn(format string, args ...any) {
	if o.logbook == nil {
		return
	}
	o.logbook.Warn(format, args...)
}

func (o *Orchestrator) logError(format string, args ...any) {
	if o.logbook == nil {
		return
	}
	o.logbook.Error(format, args...)
}

// Package orchestrator sequences the upload, summarize and ask requests for
// one session. Requests run as bubbletea commands; their results come back
// through Update as messages and are dispatched into the session, where stale
// results are detected and dropped.
package orchestrator

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/questify/internal/inference"
	"github.com/kingrea/questify/internal/logbook"
	"github.com/kingrea/questify/internal/session"
)

// Fallback text shown when the service fails without an error message.
const (
	MsgUploadFailed  = "Upload failed."
	MsgSummaryFailed = "Failed to fetch summary."
	MsgAskFailed     = "Failed to get answer."
)

// DefaultRequestTimeout bounds each remote call.
const DefaultRequestTimeout = 60 * time.Second

// Client is the remote inference service as seen by the orchestrator.
type Client interface {
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
	Summarize(ctx context.Context, docID string) (string, error)
	Ask(ctx context.Context, docID string, ask inference.AskRequest) (string, error)
}

// FileOpener opens the selected document for upload.
type FileOpener func(path string) (io.ReadCloser, error)

// Orchestrator drives the remote operations for a single session.
type Orchestrator struct {
	session *session.Session
	client  Client
	model   string
	timeout time.Duration
	open    FileOpener
	logbook *logbook.Logbook
}

// Option customizes orchestrator construction.
type Option func(*Orchestrator)

// WithModel sets the answer model sent with every question.
func WithModel(model string) Option {
	return func(o *Orchestrator) {
		if m := strings.TrimSpace(model); m != "" {
			o.model = m
		}
	}
}

// WithRequestTimeout bounds each remote call. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.timeout = d
		}
	}
}

// WithLogbook records requests and outcomes.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(o *Orchestrator) {
		o.logbook = lb
	}
}

// WithFileOpener overrides how the selected file is read.
func WithFileOpener(open FileOpener) Option {
	return func(o *Orchestrator) {
		if open != nil {
			o.open = open
		}
	}
}

// New returns an orchestrator bound to sess and client.
func New(sess *session.Session, client Client, opts ...Option) *Orchestrator {
	if sess == nil {
		sess = session.New()
	}
	o := &Orchestrator{
		session: sess,
		client:  client,
		model:   inference.DefaultModel,
		timeout: DefaultRequestTimeout,
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Snapshot returns a copy of the session state for rendering.
func (o *Orchestrator) Snapshot() session.State {
	return o.session.Snapshot()
}

// Model returns the configured answer model.
func (o *Orchestrator) Model() string {
	return o.model
}

// SelectFile makes file the current document and invalidates everything
// derived from the previous one, including requests still in flight.
func (o *Orchestrator) SelectFile(file session.File) {
	next := o.session.SelectFile(file)
	o.logInfo("File · %s selected (epoch %d)", file.Name, next.Epoch)
}

// SetQuestion updates the draft question.
func (o *Orchestrator) SetQuestion(text string) {
	o.session.SetQuestion(text)
}

// Upload starts the upload of the selected file. It returns nil when the
// trigger is rejected locally; the reason is already in the session.
func (o *Orchestrator) Upload() tea.Cmd {
	ticket, err := o.session.BeginUpload()
	if err != nil {
		o.logRejected("Upload", err)
		return nil
	}
	o.logInfo("Upload · %s started", ticket.File.Name)
	return func() tea.Msg {
		ctx, cancel := o.requestContext()
		defer cancel()
		f, err := o.open(ticket.File.Path)
		if err != nil {
			return uploadFinishedMsg{ticket: ticket, err: &inference.TransportError{Op: "upload", Err: err}}
		}
		defer f.Close()
		id, err := o.client.Upload(ctx, ticket.File.Name, f)
		return uploadFinishedMsg{ticket: ticket, docID: id, err: err}
	}
}

// Ask submits the draft question against the current document. It returns
// nil when the trigger is rejected locally.
func (o *Orchestrator) Ask() tea.Cmd {
	ticket, err := o.session.BeginAsk(o.session.Snapshot().Question)
	if err != nil {
		o.logRejected("Ask", err)
		return nil
	}
	o.logInfo("Ask · %q on %s (model %s)", ticket.Question, ticket.DocumentID, o.model)
	req := inference.AskRequest{Question: ticket.Question, Model: o.model}
	return func() tea.Msg {
		ctx, cancel := o.requestContext()
		defer cancel()
		answer, err := o.client.Ask(ctx, ticket.DocumentID, req)
		return askFinishedMsg{ticket: ticket, answer: answer, err: err}
	}
}

// Update applies request results. Messages it does not own return nil.
func (o *Orchestrator) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case uploadFinishedMsg:
		return o.handleUploadFinished(m)
	case summaryFinishedMsg:
		o.handleSummaryFinished(m)
	case askFinishedMsg:
		o.handleAskFinished(m)
	}
	return nil
}

// Owns reports whether msg is a request result produced by this package.
func Owns(msg tea.Msg) bool {
	switch msg.(type) {
	case uploadFinishedMsg, summaryFinishedMsg, askFinishedMsg:
		return true
	}
	return false
}

func (o *Orchestrator) summarize(ticket session.SummaryTicket) tea.Cmd {
	o.logInfo("Summary · requested for %s", ticket.DocumentID)
	return func() tea.Msg {
		ctx, cancel := o.requestContext()
		defer cancel()
		summary, err := o.client.Summarize(ctx, ticket.DocumentID)
		return summaryFinishedMsg{ticket: ticket, summary: summary, err: err}
	}
}

func (o *Orchestrator) requestContext() (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(context.Background(), o.timeout)
	}
	return context.WithCancel(context.Background())
}

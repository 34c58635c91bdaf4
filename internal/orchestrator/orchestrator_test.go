package orchestrator

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/questify/internal/inference"
	"github.com/kingrea/questify/internal/logbook"
	"github.com/kingrea/questify/internal/session"
)

func TestUploadAndSummarizeScenario(t *testing.T) {
	client := &fakeClient{uploadID: "doc_42", summary: "Report covers Q1 results."}
	orch := newTestOrchestrator(t, client)
	orch.SelectFile(session.File{Name: "report.pdf", Path: "report.pdf"})

	runCommands(t, orch, orch.Upload())

	snap := orch.Snapshot()
	if snap.DocumentID != "doc_42" || snap.UploadStatus != session.StatusSucceeded {
		t.Fatalf("unexpected upload state: %+v", snap)
	}
	if snap.Summary != "Report covers Q1 results." || snap.SummaryStatus != session.StatusSucceeded {
		t.Fatalf("unexpected summary state: %+v", snap)
	}
	if client.calls("upload") != 1 || client.calls("summary") != 1 {
		t.Fatalf("calls = %v, want one upload and one summary", client.snapshot())
	}
	if got := client.lastSummaryID(); got != "doc_42" {
		t.Fatalf("summary requested for %q, want doc_42", got)
	}
	if client.uploadedName() != "report.pdf" || client.uploadedBody() != "contents of report.pdf" {
		t.Fatalf("uploaded %q with %q", client.uploadedName(), client.uploadedBody())
	}
}

func TestUploadWithoutFileMakesNoCall(t *testing.T) {
	client := &fakeClient{}
	orch := newTestOrchestrator(t, client)
	if cmd := orch.Upload(); cmd != nil {
		t.Fatalf("expected no command without a file")
	}
	snap := orch.Snapshot()
	if snap.UploadMessage != "Please select a file first." || snap.UploadStatus != session.StatusIdle {
		t.Fatalf("unexpected state: %+v", snap)
	}
	if client.total() != 0 {
		t.Fatalf("expected no network calls, got %v", client.snapshot())
	}
}

func TestUploadBackendErrorIsShownVerbatim(t *testing.T) {
	client := &fakeClient{uploadErr: &inference.BackendError{Op: "upload", StatusCode: 400, Message: "File type not allowed. Allowed: pdf, txt, docx"}}
	orch := newTestOrchestrator(t, client)
	orch.SelectFile(session.File{Name: "a.exe", Path: "a.exe"})
	runCommands(t, orch, orch.Upload())

	snap := orch.Snapshot()
	if snap.UploadStatus != session.StatusFailed || snap.HasDocument() {
		t.Fatalf("unexpected state: %+v", snap)
	}
	if snap.UploadMessage != "File type not allowed. Allowed: pdf, txt, docx" {
		t.Fatalf("upload message = %q", snap.UploadMessage)
	}
	if client.calls("summary") != 0 {
		t.Fatalf("summary must not be requested after a failed upload")
	}
}

func TestUploadFailureMessages(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"backend without message": {err: &inference.BackendError{Op: "upload", StatusCode: 500}, want: "Upload failed."},
		"transport":               {err: &inference.TransportError{Op: "upload", Err: errors.New("connection refused")}, want: "Error: connection refused"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			orch := newTestOrchestrator(t, &fakeClient{uploadErr: tc.err})
			orch.SelectFile(session.File{Name: "a.txt", Path: "a.txt"})
			runCommands(t, orch, orch.Upload())
			if got := orch.Snapshot().UploadMessage; got != tc.want {
				t.Fatalf("upload message = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUnreadableFileIsTransportFailure(t *testing.T) {
	client := &fakeClient{}
	orch := New(session.New(), client, WithFileOpener(func(string) (io.ReadCloser, error) {
		return nil, errors.New("permission denied")
	}))
	orch.SelectFile(session.File{Name: "a.txt", Path: "a.txt"})
	runCommands(t, orch, orch.Upload())
	snap := orch.Snapshot()
	if snap.UploadStatus != session.StatusFailed || snap.UploadMessage != "Error: permission denied" {
		t.Fatalf("unexpected state: %+v", snap)
	}
	if client.total() != 0 {
		t.Fatalf("expected no network calls, got %v", client.snapshot())
	}
}

func TestSummaryFailureDoesNotRevertUpload(t *testing.T) {
	client := &fakeClient{uploadID: "doc_1", summaryErr: &inference.BackendError{Op: "summary", StatusCode: 404, Message: "Document not found"}}
	orch := newTestOrchestrator(t, client)
	orch.SelectFile(session.File{Name: "a.txt", Path: "a.txt"})
	runCommands(t, orch, orch.Upload())

	snap := orch.Snapshot()
	if snap.UploadStatus != session.StatusSucceeded || snap.DocumentID != "doc_1" {
		t.Fatalf("summary failure altered upload: %+v", snap)
	}
	if snap.Summary != "Failed to fetch summary." || snap.SummaryStatus != session.StatusFailed {
		t.Fatalf("unexpected summary: %+v", snap)
	}
}

func TestAskScenario(t *testing.T) {
	client := &fakeClient{uploadID: "doc_42", summary: "s", answer: "$4.2M"}
	orch := uploadedOrchestrator(t, client)
	orch.SetQuestion("What is the total revenue?")
	runCommands(t, orch, orch.Ask())

	snap := orch.Snapshot()
	if snap.Answer != "$4.2M" || snap.AnswerStatus != session.StatusSucceeded {
		t.Fatalf("unexpected answer state: %+v", snap)
	}
	req := client.lastAsk()
	if req.Question != "What is the total revenue?" || req.Model != "bart" {
		t.Fatalf("ask request = %+v", req)
	}
	if client.lastAskDoc() != "doc_42" {
		t.Fatalf("ask sent for %q", client.lastAskDoc())
	}
}

func TestAskBackendFailureShowsMessage(t *testing.T) {
	client := &fakeClient{uploadID: "doc_42", askErr: &inference.BackendError{Op: "ask", StatusCode: 503, Message: "model unavailable"}}
	orch := uploadedOrchestrator(t, client)
	orch.SetQuestion("What is the total revenue?")
	runCommands(t, orch, orch.Ask())

	snap := orch.Snapshot()
	if snap.Answer != "" || snap.AnswerStatus != session.StatusFailed || snap.AskMessage != "model unavailable" {
		t.Fatalf("unexpected state: %+v", snap)
	}
}

func TestAskValidationMakesNoCall(t *testing.T) {
	client := &fakeClient{uploadID: "doc_1"}
	orch := newTestOrchestrator(t, client)
	orch.SetQuestion("   ")
	if cmd := orch.Ask(); cmd != nil {
		t.Fatalf("expected no command for blank question")
	}
	if got := orch.Snapshot().AskMessage; got != "Please enter a question." {
		t.Fatalf("ask message = %q", got)
	}
	orch.SetQuestion("anything?")
	if cmd := orch.Ask(); cmd != nil {
		t.Fatalf("expected no command without a document")
	}
	snap := orch.Snapshot()
	if snap.AskMessage != "No document loaded." || snap.AnswerStatus != session.StatusIdle {
		t.Fatalf("unexpected state: %+v", snap)
	}
	if client.total() != 0 {
		t.Fatalf("expected no network calls, got %v", client.snapshot())
	}
}

func TestAskWhileInProgressIsIgnored(t *testing.T) {
	client := &fakeClient{uploadID: "doc_1", answer: "a"}
	orch := uploadedOrchestrator(t, client)
	orch.SetQuestion("q")
	first := orch.Ask()
	if first == nil {
		t.Fatalf("expected ask command")
	}
	if second := orch.Ask(); second != nil {
		t.Fatalf("expected re-invocation to be ignored")
	}
	runCommands(t, orch, first)
	if client.calls("ask") != 1 {
		t.Fatalf("ask calls = %d, want 1", client.calls("ask"))
	}
}

func TestUploadWhileInProgressIsIgnored(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeClient{uploadID: "doc"})
	orch.SelectFile(session.File{Name: "a.txt", Path: "a.txt"})
	if cmd := orch.Upload(); cmd == nil {
		t.Fatalf("expected upload command")
	}
	if cmd := orch.Upload(); cmd != nil {
		t.Fatalf("expected second upload to be ignored")
	}
}

func TestLateUploadForPreviousFileIsDiscarded(t *testing.T) {
	client := &fakeClient{uploadID: "doc_old", summary: "old"}
	orch := newTestOrchestrator(t, client)
	orch.SelectFile(session.File{Name: "old.txt", Path: "old.txt"})
	pending := orch.Upload()
	orch.SelectFile(session.File{Name: "new.txt", Path: "new.txt"})

	msg := pending()
	if cmd := orch.Update(msg); cmd != nil {
		t.Fatalf("stale upload must not trigger a summary")
	}
	snap := orch.Snapshot()
	if snap.HasDocument() || snap.UploadStatus != session.StatusIdle {
		t.Fatalf("stale upload applied: %+v", snap)
	}
	if client.calls("summary") != 0 {
		t.Fatalf("unexpected summary call")
	}
}

func TestLateAnswerForPreviousDocumentIsDiscarded(t *testing.T) {
	client := &fakeClient{uploadID: "doc_1", summary: "s", answer: "old answer"}
	orch := uploadedOrchestrator(t, client)
	orch.SetQuestion("q")
	pending := orch.Ask()

	client.setUploadID("doc_2")
	orch.SelectFile(session.File{Name: "b.txt", Path: "b.txt"})
	runCommands(t, orch, orch.Upload())

	if cmd := orch.Update(pending()); cmd != nil {
		t.Fatalf("unexpected follow-up command")
	}
	snap := orch.Snapshot()
	if snap.DocumentID != "doc_2" || snap.Answer != "" || snap.AnswerStatus != session.StatusIdle {
		t.Fatalf("stale answer applied: %+v", snap)
	}
}

func TestUpdateIgnoresForeignMessages(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeClient{})
	if cmd := orch.Update(tea.KeyMsg{}); cmd != nil {
		t.Fatalf("expected nil for foreign message")
	}
	if Owns(tea.KeyMsg{}) {
		t.Fatalf("key messages are not orchestrator results")
	}
	if !Owns(askFinishedMsg{}) {
		t.Fatalf("ask results belong to the orchestrator")
	}
}

func TestLogbookRecordsDiscard(t *testing.T) {
	lb, err := logbook.New(filepath.Join(t.TempDir(), "session.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	client := &fakeClient{uploadID: "doc"}
	orch := New(session.New(), client, WithLogbook(lb), WithFileOpener(stringOpener))
	orch.SelectFile(session.File{Name: "a.txt", Path: "a.txt"})
	pending := orch.Upload()
	orch.SelectFile(session.File{Name: "b.txt", Path: "b.txt"})
	orch.Update(pending())

	lines, _ := lb.Tail(10)
	found := false
	for _, line := range lines {
		if strings.Contains(line, "WARN") && strings.Contains(line, "Discarded upload result") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected discard warning in %v", lines)
	}
}

func newTestOrchestrator(t *testing.T, client *fakeClient) *Orchestrator {
	t.Helper()
	return New(session.New(), client, WithFileOpener(stringOpener))
}

func uploadedOrchestrator(t *testing.T, client *fakeClient) *Orchestrator {
	t.Helper()
	orch := newTestOrchestrator(t, client)
	orch.SelectFile(session.File{Name: "report.pdf", Path: "report.pdf"})
	runCommands(t, orch, orch.Upload())
	if !orch.Snapshot().HasDocument() {
		t.Fatalf("upload did not produce a document: %+v", orch.Snapshot())
	}
	return orch
}

func runCommands(t *testing.T, orch *Orchestrator, cmd tea.Cmd) {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		cmd = orch.Update(msg)
	}
}

func stringOpener(path string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("contents of " + path)), nil
}

type fakeClient struct {
	mu sync.Mutex

	uploadID   string
	uploadErr  error
	summary    string
	summaryErr error
	answer     string
	askErr     error

	callLog      []string
	gotName      string
	gotBody      string
	summaryDocID string
	askDocID     string
	askReq       inference.AskRequest
}

func (f *fakeClient) Upload(_ context.Context, filename string, content io.Reader) (string, error) {
	data, _ := io.ReadAll(content)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callLog = append(f.callLog, "upload")
	f.gotName = filename
	f.gotBody = string(data)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadID, nil
}

func (f *fakeClient) Summarize(_ context.Context, docID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callLog = append(f.callLog, "summary")
	f.summaryDocID = docID
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return f.summary, nil
}

func (f *fakeClient) Ask(_ context.Context, docID string, ask inference.AskRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callLog = append(f.callLog, "ask")
	f.askDocID = docID
	f.askReq = ask
	if f.askErr != nil {
		return "", f.askErr
	}
	return f.answer, nil
}

func (f *fakeClient) calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.callLog {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeClient) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.callLog)
}

func (f *fakeClient) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.callLog...)
}

func (f *fakeClient) setUploadID(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadID = id
}

func (f *fakeClient) uploadedName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotName
}

func (f *fakeClient) uploadedBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotBody
}

func (f *fakeClient) lastSummaryID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaryDocID
}

func (f *fakeClient) lastAsk() inference.AskRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.askReq
}

func (f *fakeClient) lastAskDoc() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.askDocID
}

package session

import (
	"errors"
	"math/rand"
	"testing"
)

func TestInitialStateIsIdle(t *testing.T) {
	s := New().Snapshot()
	if s.UploadStatus != StatusIdle || s.AnswerStatus != StatusIdle || s.SummaryStatus != StatusIdle {
		t.Fatalf("expected idle statuses, got %+v", s)
	}
	if s.HasDocument() || s.SelectedFile != nil {
		t.Fatalf("expected empty session, got %+v", s)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("initial state violates invariant: %v", err)
	}
}

func TestBeginUploadWithoutFileIsValidationError(t *testing.T) {
	sess := New()
	_, err := sess.BeginUpload()
	verr, ok := IsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Kind != ValidationNoFile {
		t.Fatalf("kind = %s, want %s", verr.Kind, ValidationNoFile)
	}
	snap := sess.Snapshot()
	if snap.UploadStatus != StatusIdle {
		t.Fatalf("upload status = %s, want idle", snap.UploadStatus)
	}
	if snap.UploadMessage != "Please select a file first." {
		t.Fatalf("upload message = %q", snap.UploadMessage)
	}
}

func TestUploadSuccessSetsDocumentAndPendingSummary(t *testing.T) {
	sess := New()
	sess.SelectFile(File{Name: "report.pdf", Path: "/tmp/report.pdf"})
	ticket, err := sess.BeginUpload()
	if err != nil {
		t.Fatalf("begin upload: %v", err)
	}
	if ticket.File.Name != "report.pdf" {
		t.Fatalf("ticket file = %q", ticket.File.Name)
	}
	next, err := sess.CompleteUpload(UploadCompleted{Ticket: ticket, DocumentID: "doc_42"})
	if err != nil {
		t.Fatalf("complete upload: %v", err)
	}
	if next.DocumentID != "doc_42" || next.UploadStatus != StatusSucceeded {
		t.Fatalf("unexpected state after upload: %+v", next)
	}
	if next.UploadMessage != MsgUploadSucceeded {
		t.Fatalf("upload message = %q", next.UploadMessage)
	}
	summary, ok := next.PendingSummary()
	if !ok || summary.DocumentID != "doc_42" {
		t.Fatalf("expected pending summary for doc_42, got %+v (ok=%v)", summary, ok)
	}
	next, err = sess.CompleteSummary(SummaryCompleted{Ticket: summary, Summary: "Report covers Q1 results."})
	if err != nil {
		t.Fatalf("complete summary: %v", err)
	}
	if next.Summary != "Report covers Q1 results." || next.SummaryStatus != StatusSucceeded {
		t.Fatalf("unexpected summary state: %+v", next)
	}
}

func TestUploadFailureLeavesDocumentUnset(t *testing.T) {
	sess := New()
	sess.SelectFile(File{Name: "a.txt"})
	ticket, err := sess.BeginUpload()
	if err != nil {
		t.Fatalf("begin upload: %v", err)
	}
	next, err := sess.CompleteUpload(UploadCompleted{Ticket: ticket, Err: errors.New("boom"), Message: "File type not allowed"})
	if err != nil {
		t.Fatalf("complete upload: %v", err)
	}
	if next.UploadStatus != StatusFailed || next.HasDocument() {
		t.Fatalf("unexpected state: %+v", next)
	}
	if next.UploadMessage != "File type not allowed" {
		t.Fatalf("upload message = %q", next.UploadMessage)
	}
}

func TestUploadWithoutDocumentIDFails(t *testing.T) {
	sess := New()
	sess.SelectFile(File{Name: "a.txt"})
	ticket, _ := sess.BeginUpload()
	next, err := sess.CompleteUpload(UploadCompleted{Ticket: ticket, DocumentID: "  "})
	if err != nil {
		t.Fatalf("complete upload: %v", err)
	}
	if next.UploadStatus != StatusFailed || next.HasDocument() {
		t.Fatalf("blank id must fail the upload, got %+v", next)
	}
}

func TestSummaryFailureKeepsUploadSucceeded(t *testing.T) {
	sess := uploaded(t, "doc_1")
	ticket, _ := sess.Snapshot().PendingSummary()
	next, err := sess.CompleteSummary(SummaryCompleted{Ticket: ticket, Err: errors.New("500"), Message: "Failed to fetch summary."})
	if err != nil {
		t.Fatalf("complete summary: %v", err)
	}
	if next.UploadStatus != StatusSucceeded || next.DocumentID != "doc_1" {
		t.Fatalf("summary failure altered upload: %+v", next)
	}
	if next.SummaryStatus != StatusFailed || next.Summary != "Failed to fetch summary." {
		t.Fatalf("unexpected summary state: %+v", next)
	}
}

func TestSelectFileResetsEverything(t *testing.T) {
	sess := uploaded(t, "doc_1")
	sess.SetQuestion("what?")
	ticket, err := sess.BeginAsk("what?")
	if err != nil {
		t.Fatalf("begin ask: %v", err)
	}
	if _, err := sess.CompleteAsk(AskCompleted{Ticket: ticket, Answer: "this"}); err != nil {
		t.Fatalf("complete ask: %v", err)
	}
	next := sess.SelectFile(File{Name: "other.txt"})
	if next.HasDocument() || next.Summary != "" || next.Answer != "" || next.Question != "" || next.AskMessage != "" {
		t.Fatalf("select file left stale data: %+v", next)
	}
	if next.UploadStatus != StatusIdle || next.AnswerStatus != StatusIdle || next.SummaryStatus != StatusIdle {
		t.Fatalf("select file left non-idle status: %+v", next)
	}
	if next.SelectedFile == nil || next.SelectedFile.Name != "other.txt" {
		t.Fatalf("selected file = %+v", next.SelectedFile)
	}
}

func TestBeginAskValidationOrder(t *testing.T) {
	sess := New()
	_, err := sess.BeginAsk("   ")
	verr, ok := IsValidation(err)
	if !ok || verr.Kind != ValidationEmptyQuestion {
		t.Fatalf("expected empty question error, got %v", err)
	}
	if got := sess.Snapshot().AskMessage; got != MsgEmptyQuestion {
		t.Fatalf("ask message = %q", got)
	}
	_, err = sess.BeginAsk("What is the total revenue?")
	verr, ok = IsValidation(err)
	if !ok || verr.Kind != ValidationNoDocument {
		t.Fatalf("expected no document error, got %v", err)
	}
	snap := sess.Snapshot()
	if snap.AskMessage != MsgNoDocument {
		t.Fatalf("ask message = %q", snap.AskMessage)
	}
	if snap.AnswerStatus != StatusIdle {
		t.Fatalf("answer status = %s, want idle", snap.AnswerStatus)
	}
}

func TestBeginAskWhileInProgressIsRejected(t *testing.T) {
	sess := uploaded(t, "doc_1")
	if _, err := sess.BeginAsk("first"); err != nil {
		t.Fatalf("begin ask: %v", err)
	}
	if _, err := sess.BeginAsk("second"); !errors.Is(err, ErrAskInProgress) {
		t.Fatalf("expected ErrAskInProgress, got %v", err)
	}
}

func TestBeginUploadWhileInProgressIsRejected(t *testing.T) {
	sess := New()
	sess.SelectFile(File{Name: "a.txt"})
	if _, err := sess.BeginUpload(); err != nil {
		t.Fatalf("begin upload: %v", err)
	}
	if _, err := sess.BeginUpload(); !errors.Is(err, ErrUploadInProgress) {
		t.Fatalf("expected ErrUploadInProgress, got %v", err)
	}
}

func TestStaleUploadIsDiscarded(t *testing.T) {
	sess := New()
	sess.SelectFile(File{Name: "old.txt"})
	oldTicket, _ := sess.BeginUpload()
	sess.SelectFile(File{Name: "new.txt"})
	next, err := sess.CompleteUpload(UploadCompleted{Ticket: oldTicket, DocumentID: "doc_old"})
	if !IsStale(err) {
		t.Fatalf("expected stale error, got %v", err)
	}
	if next.HasDocument() || next.UploadStatus != StatusIdle {
		t.Fatalf("stale upload applied: %+v", next)
	}
}

func TestStaleSummaryAndAnswerAreDiscarded(t *testing.T) {
	sess := uploaded(t, "doc_old")
	summaryTicket, _ := sess.Snapshot().PendingSummary()
	askTicket, err := sess.BeginAsk("question")
	if err != nil {
		t.Fatalf("begin ask: %v", err)
	}
	sess.SelectFile(File{Name: "new.txt"})
	ticket, _ := sess.BeginUpload()
	if _, err := sess.CompleteUpload(UploadCompleted{Ticket: ticket, DocumentID: "doc_new"}); err != nil {
		t.Fatalf("complete upload: %v", err)
	}
	if _, err := sess.CompleteSummary(SummaryCompleted{Ticket: summaryTicket, Summary: "old summary"}); !IsStale(err) {
		t.Fatalf("expected stale summary, got %v", err)
	}
	if _, err := sess.CompleteAsk(AskCompleted{Ticket: askTicket, Answer: "old answer"}); !IsStale(err) {
		t.Fatalf("expected stale answer, got %v", err)
	}
	snap := sess.Snapshot()
	if snap.Summary != "" || snap.Answer != "" {
		t.Fatalf("stale data applied: %+v", snap)
	}
	if snap.DocumentID != "doc_new" {
		t.Fatalf("document id = %q", snap.DocumentID)
	}
}

func TestAskFailureStoresMessage(t *testing.T) {
	sess := uploaded(t, "doc_42")
	ticket, err := sess.BeginAsk("What is the total revenue?")
	if err != nil {
		t.Fatalf("begin ask: %v", err)
	}
	next, err := sess.CompleteAsk(AskCompleted{Ticket: ticket, Err: errors.New("503"), Message: "model unavailable"})
	if err != nil {
		t.Fatalf("complete ask: %v", err)
	}
	if next.AnswerStatus != StatusFailed || next.Answer != "" || next.AskMessage != "model unavailable" {
		t.Fatalf("unexpected ask state: %+v", next)
	}
}

func TestDocumentIDIffUploadSucceeded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sess := New()
	var (
		uploadTickets  []UploadTicket
		summaryTickets []SummaryTicket
		askTickets     []AskTicket
	)
	for step := 0; step < 2000; step++ {
		switch rng.Intn(8) {
		case 0:
			sess.SelectFile(File{Name: "f.txt"})
		case 1:
			if ticket, err := sess.BeginUpload(); err == nil {
				uploadTickets = append(uploadTickets, ticket)
			}
		case 2:
			if len(uploadTickets) > 0 {
				ticket := uploadTickets[rng.Intn(len(uploadTickets))]
				var failure error
				if rng.Intn(3) == 0 {
					failure = errors.New("fail")
				}
				next, _ := sess.CompleteUpload(UploadCompleted{Ticket: ticket, DocumentID: "doc", Err: failure, Message: "x"})
				if ticket, ok := next.PendingSummary(); ok {
					summaryTickets = append(summaryTickets, ticket)
				}
			}
		case 3:
			if len(summaryTickets) > 0 {
				ticket := summaryTickets[rng.Intn(len(summaryTickets))]
				_, _ = sess.CompleteSummary(SummaryCompleted{Ticket: ticket, Summary: "s"})
			}
		case 4:
			sess.SetQuestion("q")
		case 5:
			if ticket, err := sess.BeginAsk("q"); err == nil {
				askTickets = append(askTickets, ticket)
			}
		case 6:
			if len(askTickets) > 0 {
				ticket := askTickets[rng.Intn(len(askTickets))]
				_, _ = sess.CompleteAsk(AskCompleted{Ticket: ticket, Answer: "a"})
			}
		case 7:
			_, _ = sess.BeginAsk("")
		}
		snap := sess.Snapshot()
		if snap.HasDocument() != (snap.UploadStatus == StatusSucceeded) {
			t.Fatalf("step %d: document id %q with upload status %s", step, snap.DocumentID, snap.UploadStatus)
		}
		if err := snap.Check(); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
	}
}

func uploaded(t *testing.T, docID string) *Session {
	t.Helper()
	sess := New()
	sess.SelectFile(File{Name: "report.pdf"})
	ticket, err := sess.BeginUpload()
	if err != nil {
		t.Fatalf("begin upload: %v", err)
	}
	if _, err := sess.CompleteUpload(UploadCompleted{Ticket: ticket, DocumentID: docID}); err != nil {
		t.Fatalf("complete upload: %v", err)
	}
	return sess
}

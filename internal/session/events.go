package session

import (
	"fmt"
	"strings"
)

// Text the reducer writes on a successful upload.
const MsgUploadSucceeded = "File uploaded successfully!"

// MsgUploadMissingID is used when the backend accepts an upload without an id.
const MsgUploadMissingID = "Upload failed."

// Event is a single input to Reduce.
type Event interface {
	Name() string
}

// UploadTicket identifies one upload request.
type UploadTicket struct {
	Epoch uint64
	File  File
}

// SummaryTicket identifies the summarize request that follows an upload.
type SummaryTicket struct {
	Epoch      uint64
	DocumentID string
}

// AskTicket identifies one ask request.
type AskTicket struct {
	Epoch      uint64
	DocumentID string
	Seq        uint64
	Question   string
}

// FileSelected replaces the selected file and resets everything derived from it.
type FileSelected struct {
	File File
}

// QuestionEdited updates the draft question.
type QuestionEdited struct {
	Text string
}

// UploadRequested starts an upload of the selected file.
type UploadRequested struct{}

// UploadCompleted carries the outcome of an upload request. A non-nil Err marks
// a failure and Message is the text to show.
type UploadCompleted struct {
	Ticket     UploadTicket
	DocumentID string
	Message    string
	Err        error
}

// SummaryCompleted carries the outcome of a summarize request. On failure
// Message is the placeholder stored as the summary.
type SummaryCompleted struct {
	Ticket  SummaryTicket
	Summary string
	Message string
	Err     error
}

// AskRequested submits Question against the current document.
type AskRequested struct {
	Question string
}

// AskCompleted carries the outcome of an ask request.
type AskCompleted struct {
	Ticket  AskTicket
	Answer  string
	Message string
	Err     error
}

func (FileSelected) Name() string     { return "file_selected" }
func (QuestionEdited) Name() string   { return "question_edited" }
func (UploadRequested) Name() string  { return "upload_requested" }
func (UploadCompleted) Name() string  { return "upload_completed" }
func (SummaryCompleted) Name() string { return "summary_completed" }
func (AskRequested) Name() string     { return "ask_requested" }
func (AskCompleted) Name() string     { return "ask_completed" }

// Reduce applies ev to s and returns the state to adopt. Validation failures
// return a state carrying the user-facing message together with a
// *ValidationError; stale results and busy triggers return s unchanged.
func Reduce(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case FileSelected:
		next := Initial()
		file := e.File
		next.SelectedFile = &file
		next.Epoch = s.Epoch + 1
		next.askSeq = s.askSeq
		return next, nil

	case QuestionEdited:
		s.Question = e.Text
		return s, nil

	case UploadRequested:
		if s.UploadStatus == StatusInProgress {
			return s, ErrUploadInProgress
		}
		if s.SelectedFile == nil {
			s.UploadMessage = MsgNoFileSelected
			return s, &ValidationError{Kind: ValidationNoFile, Message: MsgNoFileSelected}
		}
		s.Epoch++
		s.UploadStatus = StatusInProgress
		s.UploadMessage = ""
		s.DocumentID = ""
		s.Summary = ""
		s.SummaryStatus = StatusIdle
		s.Answer = ""
		s.AnswerStatus = StatusIdle
		s.AskMessage = ""
		return s, nil

	case UploadCompleted:
		if e.Ticket.Epoch != s.Epoch {
			return s, &StaleResponseError{Op: "upload", Epoch: e.Ticket.Epoch, Reason: "superseded by a newer selection or upload"}
		}
		if s.UploadStatus != StatusInProgress {
			return s, &StaleResponseError{Op: "upload", Epoch: e.Ticket.Epoch, Reason: "no upload pending"}
		}
		if e.Err != nil {
			s.UploadStatus = StatusFailed
			s.UploadMessage = e.Message
			return s, nil
		}
		id := strings.TrimSpace(e.DocumentID)
		if id == "" {
			s.UploadStatus = StatusFailed
			s.UploadMessage = MsgUploadMissingID
			return s, nil
		}
		s.UploadStatus = StatusSucceeded
		s.DocumentID = id
		s.UploadMessage = MsgUploadSucceeded
		s.SummaryStatus = StatusInProgress
		return s, nil

	case SummaryCompleted:
		if e.Ticket.Epoch != s.Epoch || e.Ticket.DocumentID != s.DocumentID {
			return s, &StaleResponseError{Op: "summary", Epoch: e.Ticket.Epoch, DocumentID: e.Ticket.DocumentID, Reason: "document changed"}
		}
		if s.SummaryStatus != StatusInProgress {
			return s, &StaleResponseError{Op: "summary", Epoch: e.Ticket.Epoch, DocumentID: e.Ticket.DocumentID, Reason: "no summary pending"}
		}
		if e.Err != nil {
			s.SummaryStatus = StatusFailed
			s.Summary = e.Message
			return s, nil
		}
		s.SummaryStatus = StatusSucceeded
		s.Summary = e.Summary
		return s, nil

	case AskRequested:
		if s.AnswerStatus == StatusInProgress {
			return s, ErrAskInProgress
		}
		s.Question = e.Question
		if strings.TrimSpace(e.Question) == "" {
			s.AskMessage = MsgEmptyQuestion
			return s, &ValidationError{Kind: ValidationEmptyQuestion, Message: MsgEmptyQuestion}
		}
		if !s.HasDocument() {
			s.AskMessage = MsgNoDocument
			return s, &ValidationError{Kind: ValidationNoDocument, Message: MsgNoDocument}
		}
		s.askSeq++
		s.AnswerStatus = StatusInProgress
		s.Answer = ""
		s.AskMessage = ""
		return s, nil

	case AskCompleted:
		if e.Ticket.Epoch != s.Epoch || e.Ticket.DocumentID != s.DocumentID {
			return s, &StaleResponseError{Op: "ask", Epoch: e.Ticket.Epoch, DocumentID: e.Ticket.DocumentID, Reason: "document changed"}
		}
		if s.AnswerStatus != StatusInProgress || e.Ticket.Seq != s.askSeq {
			return s, &StaleResponseError{Op: "ask", Epoch: e.Ticket.Epoch, DocumentID: e.Ticket.DocumentID, Reason: "question superseded"}
		}
		if e.Err != nil {
			s.AnswerStatus = StatusFailed
			s.Answer = ""
			s.AskMessage = e.Message
			return s, nil
		}
		s.AnswerStatus = StatusSucceeded
		s.Answer = e.Answer
		return s, nil
	}
	return s, fmt.Errorf("session: unknown event %T", ev)
}

// PendingSummary returns the ticket for the summarize request owed after a
// successful upload.
func (s State) PendingSummary() (SummaryTicket, bool) {
	if !s.HasDocument() || s.SummaryStatus != StatusInProgress {
		return SummaryTicket{}, false
	}
	return SummaryTicket{Epoch: s.Epoch, DocumentID: s.DocumentID}, true
}

func (s State) uploadTicket() UploadTicket {
	var file File
	if s.SelectedFile != nil {
		file = *s.SelectedFile
	}
	return UploadTicket{Epoch: s.Epoch, File: file}
}

func (s State) askTicket() AskTicket {
	return AskTicket{Epoch: s.Epoch, DocumentID: s.DocumentID, Seq: s.askSeq, Question: s.Question}
}

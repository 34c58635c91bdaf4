package session

import (
	"fmt"
	"strings"
)

// Status enumerates the lifecycle stage of one remote operation.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// FriendlyName renders the status for display.
func (s Status) FriendlyName() string {
	switch s {
	case StatusInProgress:
		return "In progress"
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	default:
		return "Idle"
	}
}

// File references a document picked by the user but not yet uploaded.
type File struct {
	Name string
	Path string
	Size int64
}

// State is the single source of truth for the running client.
type State struct {
	SelectedFile *File

	DocumentID    string
	UploadStatus  Status
	UploadMessage string

	Summary       string
	SummaryStatus Status

	Question     string
	AnswerStatus Status
	Answer       string
	// AskMessage carries validation, backend or transport text for the ask flow.
	AskMessage string

	// Epoch increments on every file selection and upload attempt; results
	// carrying an older epoch are stale.
	Epoch  uint64
	askSeq uint64
}

// Initial returns the state of a freshly opened session.
func Initial() State {
	return State{
		UploadStatus:  StatusIdle,
		SummaryStatus: StatusIdle,
		AnswerStatus:  StatusIdle,
	}
}

// HasDocument reports whether the backend has accepted the selected file.
func (s State) HasDocument() bool {
	return s.DocumentID != ""
}

// Check reports the first violated invariant, if any.
func (s State) Check() error {
	if s.HasDocument() != (s.UploadStatus == StatusSucceeded) {
		return fmt.Errorf("document id %q inconsistent with upload status %s", s.DocumentID, s.UploadStatus)
	}
	if !s.HasDocument() {
		if s.Summary != "" || s.SummaryStatus != StatusIdle {
			return fmt.Errorf("summary present without a document")
		}
		if s.Answer != "" || s.AnswerStatus == StatusInProgress || s.AnswerStatus == StatusSucceeded {
			return fmt.Errorf("answer state %s without a document", s.AnswerStatus)
		}
	}
	if s.AnswerStatus != StatusSucceeded && s.Answer != "" {
		return fmt.Errorf("answer present with status %s", s.AnswerStatus)
	}
	return nil
}

// CanUpload reports whether the upload trigger is enabled.
func (s State) CanUpload() bool {
	return s.UploadStatus != StatusInProgress
}

// CanAsk reports whether the ask trigger is enabled.
func (s State) CanAsk() bool {
	return s.HasDocument() && s.AnswerStatus != StatusInProgress
}

// QuestionBlank reports whether the draft question is empty or whitespace.
func (s State) QuestionBlank() bool {
	return strings.TrimSpace(s.Question) == ""
}

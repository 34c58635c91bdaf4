package session

import (
	"fmt"
	"sync"
)

// Session owns the State for one running client. All mutation goes through
// Dispatch; readers take copies with Snapshot.
type Session struct {
	mu    sync.RWMutex
	state State
}

// New returns a session in its initial state.
func New() *Session {
	return &Session{state: Initial()}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.state
	if snap.SelectedFile != nil {
		file := *snap.SelectedFile
		snap.SelectedFile = &file
	}
	return snap
}

// Dispatch reduces ev into the session. A reduced state that breaks an
// invariant is refused and the previous state is kept.
func (s *Session) Dispatch(ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Reduce(s.state, ev)
	if cerr := next.Check(); cerr != nil {
		return s.state, fmt.Errorf("session: %s refused: %w", ev.Name(), cerr)
	}
	s.state = next
	return next, err
}

// SelectFile replaces the selected file and clears every derived field.
func (s *Session) SelectFile(file File) State {
	next, _ := s.Dispatch(FileSelected{File: file})
	return next
}

// SetQuestion updates the draft question.
func (s *Session) SetQuestion(text string) State {
	next, _ := s.Dispatch(QuestionEdited{Text: text})
	return next
}

// BeginUpload moves the upload flow to InProgress and returns the ticket the
// eventual result must present.
func (s *Session) BeginUpload() (UploadTicket, error) {
	next, err := s.Dispatch(UploadRequested{})
	if err != nil {
		return UploadTicket{}, err
	}
	return next.uploadTicket(), nil
}

// CompleteUpload applies an upload outcome.
func (s *Session) CompleteUpload(res UploadCompleted) (State, error) {
	return s.Dispatch(res)
}

// CompleteSummary applies a summarize outcome.
func (s *Session) CompleteSummary(res SummaryCompleted) (State, error) {
	return s.Dispatch(res)
}

// BeginAsk submits question and moves the ask flow to InProgress.
func (s *Session) BeginAsk(question string) (AskTicket, error) {
	next, err := s.Dispatch(AskRequested{Question: question})
	if err != nil {
		return AskTicket{}, err
	}
	return next.askTicket(), nil
}

// CompleteAsk applies an ask outcome.
func (s *Session) CompleteAsk(res AskCompleted) (State, error) {
	return s.Dispatch(res)
}

// Package session holds the client-side record of one document's lifecycle:
// the selected file, the upload and summary outcomes, the draft question and
// the last answer. State only changes by dispatching an Event through Reduce,
// which returns a new value, so a transition is applied whole or not at all.
package session

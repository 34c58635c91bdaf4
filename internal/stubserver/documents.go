package stubserver

import (
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

const (
	chunkWords      = 300
	summarySentence = 3
	summaryMaxChars = 600
)

// DefaultModel is used when a request names no model or an unknown one.
const DefaultModel = "bart"

var knownModels = map[string]struct{}{"bart": {}, "gpt2": {}, "bert": {}}

var errDocumentNotFound = errors.New("document not found")

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "what": {}, "which": {},
	"who": {}, "how": {}, "why": {}, "when": {}, "where": {}, "does": {}, "did": {},
	"this": {}, "that": {}, "with": {}, "from": {}, "into": {}, "about": {}, "is": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "a": {}, "an": {}, "it": {}, "its": {},
}

// document is one processed upload.
type document struct {
	ID       string
	Filename string
	Summary  string
	Chunks   []string
}

// store keeps processed documents in memory for the life of the process.
type store struct {
	mu   sync.RWMutex
	docs map[string]document
}

func newStore() *store {
	return &store{docs: map[string]document{}}
}

// add processes text and returns the new document id. An empty text is
// rejected the same way the real service rejects unreadable files.
func (s *store) add(filename, text string) (document, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return document{}, false
	}
	doc := document{
		ID:       uuid.NewString(),
		Filename: filename,
		Summary:  summarize(text),
		Chunks:   chunkText(text, chunkWords),
	}
	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	return doc, true
}

func (s *store) get(id string) (document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return document{}, errDocumentNotFound
	}
	return doc, nil
}

func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// chunkText splits text into runs of size words.
func chunkText(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// summarize keeps the leading sentences of the document.
func summarize(text string) string {
	sentences := splitSentences(strings.Join(strings.Fields(text), " "))
	if len(sentences) > summarySentence {
		sentences = sentences[:summarySentence]
	}
	summary := strings.Join(sentences, " ")
	if runes := []rune(summary); len(runes) > summaryMaxChars {
		summary = strings.TrimSpace(string(runes[:summaryMaxChars])) + "…"
	}
	return summary
}

// answer picks the chunk that shares the most terms with question and
// shapes the reply according to model. bert returns the single most
// relevant sentence, gpt2 the chunk's leading sentences and bart the most
// relevant sentence together with the one that follows it.
func answer(doc document, question, model string) string {
	if len(doc.Chunks) == 0 {
		return ""
	}
	terms := keyTerms(question)
	best, bestScore := 0, -1
	for i, chunk := range doc.Chunks {
		if score := overlap(terms, chunk); score > bestScore {
			best, bestScore = i, score
		}
	}
	sentences := splitSentences(doc.Chunks[best])
	if len(sentences) == 0 {
		return doc.Chunks[best]
	}
	top := bestSentence(terms, sentences)
	switch normalizeModel(model) {
	case "bert":
		return sentences[top]
	case "gpt2":
		return joinSentences(sentences, 0, summarySentence)
	default:
		return joinSentences(sentences, top, 2)
	}
}

// normalizeModel maps an unknown or empty selector to bart.
func normalizeModel(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if _, ok := knownModels[model]; ok {
		return model
	}
	return DefaultModel
}

func bestSentence(terms map[string]struct{}, sentences []string) int {
	best, bestScore := 0, -1
	for i, sentence := range sentences {
		if score := overlap(terms, sentence); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func joinSentences(sentences []string, from, count int) string {
	end := from + count
	if end > len(sentences) {
		end = len(sentences)
	}
	return strings.Join(sentences[from:end], " ")
}

func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			next := i + 1
			if next < len(text) && text[next] != ' ' {
				continue
			}
			if s := strings.TrimSpace(text[start:next]); s != "" {
				sentences = append(sentences, s)
			}
			start = next
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func keyTerms(text string) map[string]struct{} {
	terms := map[string]struct{}{}
	for _, word := range tokenize(text) {
		if _, stop := stopWords[word]; stop || len(word) < 2 {
			continue
		}
		terms[word] = struct{}{}
	}
	return terms
}

func overlap(terms map[string]struct{}, text string) int {
	score := 0
	for _, word := range tokenize(text) {
		if _, ok := terms[word]; ok {
			score++
		}
	}
	return score
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '$'
	})
}

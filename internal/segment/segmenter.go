// Package segment splits narration text into sentence-bounded chunks small
// enough to hand to the speech synthesis provider in one call.
package segment

import (
	"errors"
	"strings"
)

// ErrEmptyInput is returned when the narration carries no sentence content.
var ErrEmptyInput = errors.New("narration contains no sentences")

// Segment is one synthesis-sized chunk of narration.
type Segment struct {
	Index int
	Text  string
}

// Split breaks narration on sentence-terminating periods and accumulates
// sentences into chunks. A chunk is closed as soon as appending the next
// sentence would reach thresholdChars; the sentence that overflowed starts
// the next chunk. Sentences are never split, so a single sentence longer
// than the threshold becomes a chunk on its own.
func Split(text string, thresholdChars int) ([]Segment, error) {
	sentences := sentencesOf(text)
	if len(sentences) == 0 {
		return nil, ErrEmptyInput
	}

	var segments []Segment
	current := ""
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		segments = append(segments, Segment{Index: len(segments), Text: s})
	}

	for _, sentence := range sentences {
		if len(current)+len(sentence) < thresholdChars {
			current += " " + sentence
			continue
		}
		emit(current)
		current = sentence
	}
	emit(current)

	return segments, nil
}

// sentencesOf splits on ".", trims boundary whitespace and re-appends the
// period to every non-empty sentence.
func sentencesOf(text string) []string {
	var sentences []string
	for _, part := range strings.Split(text, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sentences = append(sentences, part+".")
	}
	return sentences
}

// Package timeline models the ordered, gap-free sequence of timed entries
// that make up the assembled video.
package timeline

import (
	"fmt"
	"math"
)

// OutroIndex marks the promotional entry appended after all narration
// segments.
const OutroIndex = -1

// Epsilon is the tolerance used when comparing accumulated float offsets.
const Epsilon = 1e-6

// Entry is one timed slice of the final video.
type Entry struct {
	Index     int     // segment index, or OutroIndex
	Start     float64 // seconds from timeline start
	End       float64
	Caption   string // empty for the outro
	AudioPath string // empty for the outro (silent track)
	ClipPath  string // rendered clip covering [Start, End)
}

// Duration is the entry length in seconds.
func (e Entry) Duration() float64 {
	return e.End - e.Start
}

// Timeline is the ordered entry sequence handed to the encode provider.
type Timeline struct {
	Entries []Entry
}

// TotalDuration is the end offset of the last entry.
func (t Timeline) TotalDuration() float64 {
	if len(t.Entries) == 0 {
		return 0
	}
	return t.Entries[len(t.Entries)-1].End
}

// Validate enforces the timeline invariants: the first entry starts at zero,
// every entry has positive length, and adjacent entries share a boundary.
func (t Timeline) Validate() error {
	if len(t.Entries) == 0 {
		return fmt.Errorf("timeline has no entries")
	}
	if math.Abs(t.Entries[0].Start) > Epsilon {
		return fmt.Errorf("timeline starts at %.6f, want 0", t.Entries[0].Start)
	}
	for i, e := range t.Entries {
		if e.End-e.Start <= 0 {
			return fmt.Errorf("entry %d has non-positive duration [%.6f, %.6f)", i, e.Start, e.End)
		}
		if i > 0 {
			prev := t.Entries[i-1]
			if math.Abs(prev.End-e.Start) > Epsilon {
				return fmt.Errorf("gap between entry %d (end %.6f) and entry %d (start %.6f)", i-1, prev.End, i, e.Start)
			}
		}
	}
	return nil
}

// Builder accumulates entries while advancing the timeline cursor, so start
// and end offsets are always contiguous by construction.
type Builder struct {
	cursor  float64
	entries []Entry
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Cursor is the current end of the timeline, i.e. the start offset the next
// entry will receive.
func (b *Builder) Cursor() float64 {
	return b.cursor
}

// Add appends an entry of the given duration at the cursor and advances it.
func (b *Builder) Add(index int, duration float64, caption, audioPath, clipPath string) Entry {
	e := Entry{
		Index:     index,
		Start:     b.cursor,
		End:       b.cursor + duration,
		Caption:   caption,
		AudioPath: audioPath,
		ClipPath:  clipPath,
	}
	b.entries = append(b.entries, e)
	b.cursor = e.End
	return e
}

// Build returns the assembled timeline.
func (b *Builder) Build() Timeline {
	return Timeline{Entries: b.entries}
}

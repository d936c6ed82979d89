package timeline

import (
	"math"
	"testing"
)

func TestBuilderProducesContiguousEntries(t *testing.T) {
	durations := []float64{3.21, 4.005, 2.7, 1.013}
	const outro = 5.0

	b := NewBuilder()
	for i, d := range durations {
		b.Add(i, d, "caption", "audio.mp3", "clip.mp4")
	}
	b.Add(OutroIndex, outro, "", "", "outro.mp4")
	tl := b.Build()

	if err := tl.Validate(); err != nil {
		t.Fatalf("valid timeline rejected: %v", err)
	}

	if len(tl.Entries) != len(durations)+1 {
		t.Fatalf("expected %d entries, got %d", len(durations)+1, len(tl.Entries))
	}

	want := outro
	for _, d := range durations {
		want += d
	}
	if math.Abs(tl.TotalDuration()-want) > Epsilon {
		t.Errorf("total duration %.9f, want %.9f", tl.TotalDuration(), want)
	}

	if tl.Entries[0].Start != 0 {
		t.Errorf("first entry starts at %f", tl.Entries[0].Start)
	}
	for i := 1; i < len(tl.Entries); i++ {
		if math.Abs(tl.Entries[i-1].End-tl.Entries[i].Start) > Epsilon {
			t.Errorf("entry %d start %.9f != previous end %.9f", i, tl.Entries[i].Start, tl.Entries[i-1].End)
		}
	}

	last := tl.Entries[len(tl.Entries)-1]
	if last.Index != OutroIndex || last.AudioPath != "" {
		t.Errorf("outro entry malformed: %+v", last)
	}
}

func TestValidateRejectsBrokenTimelines(t *testing.T) {
	tests := []struct {
		name string
		tl   Timeline
	}{
		{"empty", Timeline{}},
		{"nonzero start", Timeline{Entries: []Entry{{Index: 0, Start: 1, End: 2}}}},
		{"zero duration", Timeline{Entries: []Entry{{Index: 0, Start: 0, End: 0}}}},
		{"gap", Timeline{Entries: []Entry{
			{Index: 0, Start: 0, End: 1},
			{Index: 1, Start: 1.5, End: 2},
		}}},
		{"overlap", Timeline{Entries: []Entry{
			{Index: 0, Start: 0, End: 2},
			{Index: 1, Start: 1.5, End: 3},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tl.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateToleratesFloatAccumulation(t *testing.T) {
	// Many small float durations accumulate rounding error; the boundary
	// check must tolerate it.
	b := NewBuilder()
	for i := 0; i < 1000; i++ {
		b.Add(i, 0.1, "", "a", "c")
	}
	if err := b.Build().Validate(); err != nil {
		t.Fatalf("accumulated timeline rejected: %v", err)
	}
}

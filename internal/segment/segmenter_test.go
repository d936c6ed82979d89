package segment

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitSingleSegmentUnderThreshold(t *testing.T) {
	segs, err := Split("Hola. Este es un video de prueba. Gracias por ver.", 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	want := "Hola. Este es un video de prueba. Gracias por ver."
	if segs[0].Text != want {
		t.Errorf("got %q, want %q", segs[0].Text, want)
	}
}

func TestSplitOnePerSentenceWithTightThreshold(t *testing.T) {
	segs, err := Split("Hola. Este es un video de prueba. Gracias por ver.", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %v", len(segs), segs)
	}
	wants := []string{"Hola.", "Este es un video de prueba.", "Gracias por ver."}
	for i, w := range wants {
		if segs[i].Text != w {
			t.Errorf("segment %d: got %q, want %q", i, segs[i].Text, w)
		}
		if segs[i].Index != i {
			t.Errorf("segment %d: index %d", i, segs[i].Index)
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "...", ". . ."} {
		if _, err := Split(in, 400); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Split(%q): expected ErrEmptyInput, got %v", in, err)
		}
	}
}

func TestSplitOversizedSentenceStandsAlone(t *testing.T) {
	long := strings.Repeat("palabra ", 30) + "final" // well over 100 chars
	segs, err := Split("Corta. "+long+". Otra corta.", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[0].Text != "Corta." {
		t.Errorf("first segment: %q", segs[0].Text)
	}
	if len(segs[1].Text) <= 100 {
		t.Errorf("oversized sentence should exceed threshold on its own, len=%d", len(segs[1].Text))
	}
	// Every segment except the oversized one honors the bound.
	for i, s := range segs {
		if i != 1 && len(s.Text) >= 100 {
			t.Errorf("segment %d length %d breaches threshold", i, len(s.Text))
		}
	}
}

// The concatenation of emitted segments must reproduce the original sentence
// sequence losslessly, modulo boundary whitespace and the re-appended periods.
func TestSplitIsLossless(t *testing.T) {
	input := "Uno dos tres. Cuatro cinco.   Seis siete ocho nueve. Diez."
	for _, threshold := range []int{10, 25, 40, 400} {
		segs, err := Split(input, threshold)
		if err != nil {
			t.Fatalf("threshold %d: %v", threshold, err)
		}
		var joined []string
		for _, s := range segs {
			joined = append(joined, s.Text)
		}
		got := strings.Join(strings.Fields(strings.Join(joined, " ")), " ")
		want := "Uno dos tres. Cuatro cinco. Seis siete ocho nueve. Diez."
		if got != want {
			t.Errorf("threshold %d: got %q, want %q", threshold, got, want)
		}
	}
}

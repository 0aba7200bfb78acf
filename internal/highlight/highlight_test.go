package highlight

import (
	"testing"

	"github.com/MrWong99/speechcoach/internal/speech"
)

func TestLocate(t *testing.T) {
	a, err := speech.Extract("Um, so I mean, we basically shipped it. So yeah, you know.", 10)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got := Locate(a)

	// um(0) i-mean(2) basically(5) So(8) you-know(10); mid-sentence "so" is not a filler.
	want := []int{0, 2, 5, 8, 10}
	if len(got) != len(want) {
		t.Fatalf("highlights = %+v, want indices %v", got, want)
	}
	for i, h := range got {
		if h.WordIndex != want[i] || h.Type != Filler {
			t.Errorf("highlight[%d] = %+v, want {%d filler}", i, h, want[i])
		}
	}
}

func TestLocate_Invariants(t *testing.T) {
	inputs := []string{
		"um um um um",
		"like, like, like you know like",
		"Okay. Okay. Okay okay.",
		"clean sentence with nothing to flag",
	}
	for _, in := range inputs {
		a, err := speech.Extract(in, 1)
		if err != nil {
			t.Fatalf("Extract(%q): %v", in, err)
		}
		hs := Locate(a)
		for i, h := range hs {
			if h.WordIndex < 0 || h.WordIndex >= a.Metrics.TotalWords {
				t.Errorf("%q: index %d out of range", in, h.WordIndex)
			}
			if i > 0 && h.WordIndex <= hs[i-1].WordIndex {
				t.Errorf("%q: indices not strictly ascending: %+v", in, hs)
			}
		}
		if len(hs) != a.Metrics.FillerCount {
			t.Errorf("%q: %d highlights for %d fillers", in, len(hs), a.Metrics.FillerCount)
		}
	}
}

func TestLocate_EmptyIsNotNil(t *testing.T) {
	if got := Locate(nil); got == nil || len(got) != 0 {
		t.Errorf("Locate(nil) = %#v, want empty slice", got)
	}
}

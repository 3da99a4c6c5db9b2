package window

import "testing"

func TestParseQuartzWindows(t *testing.T) {
	out := []byte(`
{"id":11,"owner":"PokerStars","name":"Table 5","x":10,"y":20,"width":800,"height":600}
{"id":12,"owner":"Finder","name":"","x":0,"y":0,"width":400,"height":300}
{"id":13,"owner":"SystemUIServer","name":"Menubar","x":0,"y":0,"width":1920,"height":24}
{"id":14,"owner":"","name":"","x":0,"y":0,"width":50,"height":50}
not json at all
`)

	got := parseQuartzWindows(out)
	if len(got) != 4 {
		t.Fatalf("parsed %d windows, want 4 (enumeration must not pre-filter)", len(got))
	}

	if got[0].Title != "PokerStars: Table 5" || got[0].ID != "11" {
		t.Errorf("window 0 = %+v, want owner-prefixed title and id 11", got[0])
	}
	if got[1].Title != "Finder" {
		t.Errorf("window 1 title = %q, want bare owner when the name is empty", got[1].Title)
	}

	// The menubar-sized and anonymous entries survive enumeration and are
	// dropped only by the selection filter.
	usable := Filter(got)
	if len(usable) != 2 {
		t.Fatalf("Filter kept %d windows, want 2", len(usable))
	}
	if usable[0].ID != "11" || usable[1].ID != "12" {
		t.Errorf("Filter kept [%s %s], want [11 12]", usable[0].ID, usable[1].ID)
	}
}

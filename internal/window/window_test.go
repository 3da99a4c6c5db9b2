package window

import "testing"

func TestUsable(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want bool
	}{
		{
			name: "normal window",
			info: Info{ID: "0x1", Title: "PokerStars", Width: 800, Height: 600},
			want: true,
		},
		{
			name: "exactly at minimum size",
			info: Info{ID: "0x2", Title: "Lobby", Width: 100, Height: 100},
			want: true,
		},
		{
			name: "width one below minimum",
			info: Info{ID: "0x3", Title: "Tooltip", Width: 99, Height: 600},
			want: false,
		},
		{
			name: "height one below minimum",
			info: Info{ID: "0x4", Title: "Dock", Width: 800, Height: 99},
			want: false,
		},
		{
			name: "no title",
			info: Info{ID: "0x5", Width: 800, Height: 600},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Usable(tt.info); got != tt.want {
				t.Errorf("Usable(%+v) = %v, want %v", tt.info, got, tt.want)
			}
		})
	}
}

func TestFilterKeepsEnumerationOrder(t *testing.T) {
	infos := []Info{
		{ID: "a", Title: "First", Width: 200, Height: 200},
		{ID: "b", Title: "", Width: 200, Height: 200},
		{ID: "c", Title: "Second", Width: 99, Height: 200},
		{ID: "d", Title: "Third", Width: 1024, Height: 768},
	}

	got := Filter(infos)
	if len(got) != 2 {
		t.Fatalf("Filter returned %d windows, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "d" {
		t.Errorf("Filter order = [%s %s], want [a d]", got[0].ID, got[1].ID)
	}
}

func TestInfoString(t *testing.T) {
	info := Info{ID: "0x1", Title: "Table 5", Width: 1024, Height: 768}
	if got, want := info.String(), "Table 5 (1024x768)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

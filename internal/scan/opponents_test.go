package scan

import (
	"sync"
	"testing"
)

func TestNewOpponentsClampsInitial(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		want    int
	}{
		{"below minimum", 0, MinOpponents},
		{"negative", -3, MinOpponents},
		{"in range", 4, 4},
		{"at minimum", 1, 1},
		{"at maximum", 9, 9},
		{"above maximum", 12, MaxOpponents},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOpponents(tt.initial)
			if got := o.Load(); got != tt.want {
				t.Errorf("NewOpponents(%d).Load() = %d, want %d", tt.initial, got, tt.want)
			}
		})
	}
}

func TestOpponentsSaturateAtBounds(t *testing.T) {
	o := NewOpponents(MaxOpponents)
	if got := o.Inc(); got != MaxOpponents {
		t.Errorf("Inc at max = %d, want %d", got, MaxOpponents)
	}

	o = NewOpponents(MinOpponents)
	if got := o.Dec(); got != MinOpponents {
		t.Errorf("Dec at min = %d, want %d", got, MinOpponents)
	}
}

func TestOpponentsConcurrentAdjustStaysInRange(t *testing.T) {
	o := NewOpponents(5)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				n := o.Inc()
				if n < MinOpponents || n > MaxOpponents {
					t.Errorf("Inc returned %d, outside [%d, %d]", n, MinOpponents, MaxOpponents)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				n := o.Dec()
				if n < MinOpponents || n > MaxOpponents {
					t.Errorf("Dec returned %d, outside [%d, %d]", n, MinOpponents, MaxOpponents)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := o.Load(); got < MinOpponents || got > MaxOpponents {
		t.Errorf("final count %d outside [%d, %d]", got, MinOpponents, MaxOpponents)
	}
}

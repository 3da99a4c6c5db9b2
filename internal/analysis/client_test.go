package analysis

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testFrame() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 320, 240))
}

func TestAnalyzeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-License-Key"); got != "test-key" {
			t.Errorf("X-License-Key = %q, want %q", got, "test-key")
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("request is not multipart: %v", err)
		}
		if got := r.FormValue("opponents"); got != "3" {
			t.Errorf("opponents field = %q, want %q", got, "3")
		}
		if _, hdr, err := r.FormFile("image"); err != nil {
			t.Errorf("missing image part: %v", err)
		} else if hdr.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("image content type = %q, want image/jpeg", hdr.Header.Get("Content-Type"))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"hole_cards":      []string{"As", "Kh"},
				"community_cards": []string{"2d", "7c", "Jh"},
				"opponents":       3,
				"win_rate":        0.62,
				"tie_rate":        0.03,
				"lose_rate":       0.35,
				"our_hand_probabilities":      map[string]float64{"One Pair": 0.4},
				"opponent_hand_probabilities": map[string]float64{"High Card": 0.5},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", 90)
	res := c.Analyze(context.Background(), testFrame(), 3)

	if !res.Success {
		t.Fatalf("Analyze failed: %s", res.ErrorMessage)
	}
	if len(res.HoleCards) != 2 || res.HoleCards[0] != "As" {
		t.Errorf("hole cards = %v", res.HoleCards)
	}
	if res.WinRate != 0.62 || res.TieRate != 0.03 || res.LoseRate != 0.35 {
		t.Errorf("rates = %v/%v/%v", res.WinRate, res.TieRate, res.LoseRate)
	}
	if res.OurHandProbabilities["One Pair"] != 0.4 {
		t.Errorf("our probabilities = %v", res.OurHandProbabilities)
	}
}

func TestAnalyzeAPIFailurePassesMessageVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "quota exceeded",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "k", 90)
	res := c.Analyze(context.Background(), testFrame(), 1)

	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.ErrorMessage != "quota exceeded" {
		t.Errorf("error message = %q, want %q", res.ErrorMessage, "quota exceeded")
	}
	if res.WinRate != 0 || res.TieRate != 0 || res.LoseRate != 0 {
		t.Errorf("failure result must carry zero rates, got %v/%v/%v",
			res.WinRate, res.TieRate, res.LoseRate)
	}
}

func TestAnalyzeNon200UsesBodyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{"error": "license expired"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "k", 90)
	res := c.Analyze(context.Background(), testFrame(), 1)

	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.ErrorMessage != "license expired" {
		t.Errorf("error message = %q, want %q", res.ErrorMessage, "license expired")
	}
}

func TestAnalyzeNon200WithoutBodySynthesizesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "k", 90)
	res := c.Analyze(context.Background(), testFrame(), 1)

	if res.Success {
		t.Fatal("expected failure result")
	}
	if want := "API returned status 502"; res.ErrorMessage != want {
		t.Errorf("error message = %q, want %q", res.ErrorMessage, want)
	}
}

func TestAnalyzeNetworkErrorIsSoft(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/detect", "http://127.0.0.1:1/q", "k", 90)
	res := c.Analyze(context.Background(), testFrame(), 1)

	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.ErrorMessage == "" {
		t.Error("failure result must carry a displayable message")
	}
}

func TestIdealQuality(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{
			name: "valid answer",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]int{"quality": 85})
			},
			want: 85,
		},
		{
			name: "out of range keeps default",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]int{"quality": 500})
			},
			want: 100,
		},
		{
			name: "server error keeps default",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, srv.URL, "k", 100)
			if got := c.IdealQuality(context.Background()); got != tt.want {
				t.Errorf("IdealQuality() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAnalyzeHonorsContextDeadline(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, srv.URL, "k", 90)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := c.Analyze(ctx, testFrame(), 1)
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.ErrorMessage != "API request timed out" {
		t.Errorf("error message = %q, want timeout message", res.ErrorMessage)
	}
}

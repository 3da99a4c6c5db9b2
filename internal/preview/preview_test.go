package preview

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func TestFrameEndpointServesLatestCapture(t *testing.T) {
	s := NewServer(0)

	// Before any capture the endpoint 404s.
	rec := httptest.NewRecorder()
	s.handleFrame(rec, httptest.NewRequest(http.MethodGet, "/frame", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty server /frame status = %d, want 404", rec.Code)
	}

	s.Publish(testFrame())

	rec = httptest.NewRecorder()
	s.handleFrame(rec, httptest.NewRequest(http.MethodGet, "/frame", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/frame status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("/frame content type = %q, want image/jpeg", ct)
	}
	if _, err := jpeg.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Errorf("/frame body is not a decodable JPEG: %v", err)
	}
}

func TestPublishNeverBlocksWithoutClients(t *testing.T) {
	s := NewServer(0)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.Publish(testFrame())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-timeout(t):
		t.Fatal("Publish blocked with no connected clients")
	}
}

func TestPublishDropsFramesForSlowClients(t *testing.T) {
	s := NewServer(0)

	// A registered client that never reads; its channel buffer fills and
	// further publishes must drop rather than block.
	stuck := make(chan []byte, 2)
	s.clientsMu.Lock()
	s.clients[stuck] = struct{}{}
	s.clientsMu.Unlock()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.Publish(testFrame())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-timeout(t):
		t.Fatal("Publish blocked on a slow client")
	}
	if len(stuck) != 2 {
		t.Errorf("slow client buffered %d frames, want 2", len(stuck))
	}
}

func TestRunReportsBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	s := NewServer(port)
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run returned nil on an already-bound port")
		}
	case <-timeout(t):
		t.Fatal("Run did not return on an already-bound port")
	}
}

func timeout(t *testing.T) <-chan struct{} {
	t.Helper()
	ch := make(chan struct{})
	tm := time.AfterFunc(2*time.Second, func() { close(ch) })
	t.Cleanup(func() { tm.Stop() })
	return ch
}

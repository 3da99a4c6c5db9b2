// Package preview serves the most recent captured frame over HTTP so the
// region being scanned can be checked from a browser.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/oddseye/oddseye/internal/logger"
)

const jpegQuality = 85

// Server is an MJPEG preview of the scan loop's captures. Publish never
// blocks, so a slow or absent viewer cannot stall the scan cadence. It
// implements scan.FrameSink.
type Server struct {
	port int

	frameMu   sync.RWMutex
	lastFrame []byte
	lastSeen  time.Time

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	srv *http.Server
}

// NewServer builds a preview server for the given port.
func NewServer(port int) *Server {
	s := &Server{
		port:    port,
		clients: make(map[chan []byte]struct{}),
	}

	router := mux.NewRouter()
	router.HandleFunc("/", s.handleIndex).Methods("GET")
	router.HandleFunc("/stream", s.handleStream).Methods("GET")
	router.HandleFunc("/frame", s.handleFrame).Methods("GET")

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: router,
	}
	return s
}

// Publish encodes the frame once and fans it out to connected viewers.
// Slow viewers drop frames instead of backing up the publisher.
func (s *Server) Publish(frame *image.RGBA) {
	log := logger.WithComponent("preview")

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		log.Warn().Err(err).Msg("could not encode preview frame")
		return
	}
	data := buf.Bytes()

	s.frameMu.Lock()
	s.lastFrame = data
	s.lastSeen = time.Now()
	s.frameMu.Unlock()

	s.clientsMu.RLock()
	for ch := range s.clients {
		select {
		case ch <- data:
		default:
		}
	}
	s.clientsMu.RUnlock()
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.WithComponent("preview")
	log.Info().Str("addr", s.srv.Addr).Msg("preview server started")

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("preview server shutdown")
		}
		s.closeClients()
		<-errCh
		return ctx.Err()
	case err, ok := <-errCh:
		s.closeClients()
		if ok && err != nil {
			return fmt.Errorf("preview server: %w", err)
		}
		return nil
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	for ch := range s.clients {
		close(ch)
	}
	s.clients = make(map[chan []byte]struct{})
	s.clientsMu.Unlock()
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("preview")

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "close")

	frameCh := make(chan []byte, 2)
	s.clientsMu.Lock()
	s.clients[frameCh] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()
	log.Info().Int("clients", count).Msg("preview client connected")

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, frameCh)
		count := len(s.clients)
		s.clientsMu.Unlock()
		log.Info().Int("clients", count).Msg("preview client disconnected")
	}()

	// Seed the stream with the latest frame so the viewer is not blank
	// until the next tick.
	s.frameMu.RLock()
	if s.lastFrame != nil {
		select {
		case frameCh <- s.lastFrame:
		default:
		}
	}
	s.frameMu.RUnlock()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-frameCh:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.frameMu.RLock()
	data := s.lastFrame
	s.frameMu.RUnlock()

	if data == nil {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Oddseye Preview</title>
<style>body{margin:0;background:#000;display:flex;justify-content:center;align-items:center;min-height:100vh}img{max-width:100vw;max-height:100vh}</style>
</head>
<body><img src="/stream" alt="capture preview"></body>
</html>`)
}

package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"voicelab/internal/domain"
)

var ErrSourceClosed = errors.New("http source closed")

type queued struct {
	text  string
	clip  domain.Clip
	audio bool
}

// HTTPSource accepts utterances over HTTP: already recognized text on
// POST /text, or a WAV recording on POST /audio when a Transcriber is set.
type HTTPSource struct {
	addr        string
	authToken   string
	transcriber Transcriber
	server      *http.Server
	listener    net.Listener
	queue       chan queued
	logger      *slog.Logger
	mu          sync.Mutex
	running     bool
	closed      bool
	mux         *http.ServeMux
	closeOnce   sync.Once
	rateLimiter *RateLimiter
}

func NewHTTPSource(addr, authToken string, transcriber Transcriber, logger *slog.Logger) *HTTPSource {
	h := &HTTPSource{
		addr:        addr,
		authToken:   authToken,
		transcriber: transcriber,
		queue:       make(chan queued, 10),
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(30, time.Minute),
	}
	h.mux.HandleFunc("POST /text", h.rateLimiter.Middleware(h.authorized(h.handleText)))
	h.mux.HandleFunc("POST /audio", h.rateLimiter.Middleware(h.authorized(h.handleAudio)))
	h.mux.HandleFunc("GET /health", h.handleHealth)
	return h
}

func (h *HTTPSource) Name() string {
	return "http"
}

// Calibrate starts the server; there is no ambient noise to measure.
func (h *HTTPSource) Calibrate(_ context.Context, _ time.Duration) error {
	return h.Start()
}

func (h *HTTPSource) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrSourceClosed
	}
	if h.running {
		return nil
	}

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}

	server := &http.Server{
		Handler:      h.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	h.listener = ln
	h.server = server

	go func() {
		h.logger.Info("HTTP utterance server starting", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", "error", err)
		}
	}()

	h.running = true
	return nil
}

// Addr is the bound address once started.
func (h *HTTPSource) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return h.addr
	}
	return h.listener.Addr().String()
}

// Close stops the server and the queue. Utterances offered afterwards are
// refused; ListenOnce returns ErrSourceClosed once the queue drains.
func (h *HTTPSource) Close() error {
	h.mu.Lock()
	server, running := h.server, h.running
	h.running = false
	h.mu.Unlock()

	var err error
	if running {
		// Handlers in flight need h.mu, so shut down without holding it.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(ctx); shutdownErr != nil {
			h.logger.Warn("graceful shutdown failed, forcing close", "error", shutdownErr)
			if closeErr := server.Close(); closeErr != nil {
				err = fmt.Errorf("closing server: %w", closeErr)
			}
		}
	}

	h.mu.Lock()
	h.closeOnce.Do(func() {
		h.closed = true
		close(h.queue)
	})
	h.mu.Unlock()

	return err
}

func (h *HTTPSource) ListenOnce(ctx context.Context) (domain.Outcome, error) {
	select {
	case <-ctx.Done():
		return domain.Outcome{}, ctx.Err()
	case item, ok := <-h.queue:
		if !ok {
			return domain.Outcome{}, ErrSourceClosed
		}
		if !item.audio {
			return textOutcome(item.text), nil
		}
		if h.transcriber == nil {
			return domain.ServiceError(errors.New("no transcriber configured for audio uploads")), nil
		}
		return transcribe(ctx, h.transcriber, item.clip)
	}
}

func (h *HTTPSource) Handler() http.Handler {
	return h.mux
}

// InjectText queues text as if it had been posted; false when the queue is full.
func (h *HTTPSource) InjectText(text string) bool {
	return h.offer(queued{text: text})
}

// offer queues item without blocking. It reports false once the source is
// closed or the queue is full.
func (h *HTTPSource) offer(item queued) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	select {
	case h.queue <- item:
		return true
	default:
		return false
	}
}

func (h *HTTPSource) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != h.authToken {
				h.logger.Warn("unauthorized utterance request", "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (h *HTTPSource) handleText(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	text := string(bytes.TrimSpace(data))
	if text == "" {
		http.Error(w, "empty text", http.StatusBadRequest)
		return
	}

	h.enqueue(w, queued{text: text}, map[string]any{"status": "received", "text": text})
}

func (h *HTTPSource) handleAudio(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 10*1024*1024))
	if err != nil {
		h.logger.Error("reading audio body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	clip, err := DecodeWAV(bytes.NewReader(data))
	if err != nil {
		http.Error(w, "body must be a PCM wav file", http.StatusBadRequest)
		return
	}
	if clip.Empty() {
		http.Error(w, "empty audio", http.StatusBadRequest)
		return
	}

	h.enqueue(w, queued{clip: clip, audio: true}, map[string]any{"status": "received", "samples": len(clip.Samples)})
}

func (h *HTTPSource) enqueue(w http.ResponseWriter, item queued, reply map[string]any) {
	if !h.offer(item) {
		http.Error(w, "not accepting utterances, try again", http.StatusServiceUnavailable)
		return
	}

	h.logger.Info("received utterance via HTTP", "audio", item.audio)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(reply)
}

func (h *HTTPSource) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	running := h.running
	queueSize := len(h.queue)
	h.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK

	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"running":    running,
		"queue_size": queueSize,
	})
}

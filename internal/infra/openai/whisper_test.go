package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"voicelab/config"
	"voicelab/internal/domain"
	"voicelab/internal/infra/openai"
)

var clip = domain.Clip{Samples: []int16{0, 100, -100}, SampleRate: 16000}

func TestWhisperClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			http.Error(w, "bad auth", http.StatusUnauthorized)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		head := make([]byte, 4)
		if _, err := io.ReadFull(file, head); err != nil || string(head) != "RIFF" {
			http.Error(w, "not wav", http.StatusBadRequest)
			return
		}
		if r.FormValue("language") != "en" {
			http.Error(w, "bad language", http.StatusBadRequest)
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"text": "Turn the light on."})
	}))
	defer server.Close()

	client := openai.NewWhisperClientWithURL("test-key", "en", server.URL)

	text, err := client.Transcribe(context.Background(), clip)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Turn the light on." {
		t.Errorf("text: got %q", text)
	}
}

func TestWhisperClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := openai.NewWhisperClientWithURL("bad", "en", server.URL)

	if _, err := client.Transcribe(context.Background(), clip); err == nil {
		t.Fatal("expected an error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts: got %d, want 1", got)
	}
}

func TestWhisperClient_SendsISOLanguageCode(t *testing.T) {
	cfg := config.Default()
	cfg.Recognizer.Backend = config.BackendWhisper

	tests := []struct {
		language string
		want     string
	}{
		{cfg.Recognizer.Language, "en"},
		{"pt_BR", "pt"},
		{"ES", "es"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.FormValue("language")
				json.NewEncoder(w).Encode(map[string]string{"text": "fan on"})
			}))
			defer server.Close()

			client := openai.NewWhisperClientWithURL("test-key", tt.language, server.URL)
			if _, err := client.Transcribe(context.Background(), clip); err != nil {
				t.Fatalf("Transcribe: %v", err)
			}
			if got != tt.want {
				t.Errorf("language field: got %q, want %q", got, tt.want)
			}
		})
	}
}

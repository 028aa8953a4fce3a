package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"voicelab/internal/domain"
	"voicelab/internal/infra"
	"voicelab/internal/infra/audio"
)

type WhisperClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	language   string
	retry      infra.RetryConfig
}

func NewWhisperClient(apiKey, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, "https://api.openai.com/v1")
}

func NewWhisperClientWithURL(apiKey, language, baseURL string) *WhisperClient {
	return &WhisperClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		language:   whisperLanguage(language),
		retry:      infra.DefaultRetryConfig(),
	}
}

// whisperLanguage reduces a BCP-47 tag such as "en-US" to the ISO-639-1
// code the transcription endpoint accepts.
func whisperLanguage(tag string) string {
	lang, _, _ := strings.Cut(strings.TrimSpace(tag), "-")
	lang, _, _ = strings.Cut(lang, "_")
	return strings.ToLower(lang)
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads clip as a WAV file to the transcription endpoint.
func (c *WhisperClient) Transcribe(ctx context.Context, clip domain.Clip) (string, error) {
	body, contentType, err := c.uploadBody(clip)
	if err != nil {
		return "", err
	}

	var result transcriptionResponse
	err = infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", bytes.NewReader(body))
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := fmt.Errorf("whisper API error %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return apiErr
			}
			return infra.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return infra.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return result.Text, nil
}

// uploadBody renders the multipart form once so every attempt resends the same bytes.
func (c *WhisperClient) uploadBody(clip domain.Clip) ([]byte, string, error) {
	wav, err := audio.EncodeWAV(clip)
	if err != nil {
		return nil, "", fmt.Errorf("encoding clip: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}

	fields := map[string]string{"model": "whisper-1"}
	if c.language != "" {
		fields["language"] = c.language
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("writing %s field: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing writer: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

// Package google transcribes utterances with Google Cloud Speech-to-Text.
package google

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"voicelab/internal/domain"
)

const (
	DefaultLanguage = "en-US"
	// RequestTimeout bounds one Recognize call; callers may pass a context
	// that is never cancelled.
	RequestTimeout = 30 * time.Second
)

// RecognizeClient is the subset of the Cloud Speech client used here.
type RecognizeClient interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

type Recognizer struct {
	client   RecognizeClient
	language string
}

// NewRecognizer connects to Cloud Speech. Without a credentials file the
// client falls back to Application Default Credentials.
func NewRecognizer(ctx context.Context, language, credentialsFile string) (*Recognizer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating speech client: %w", err)
	}

	return NewRecognizerWithClient(client, language), nil
}

func NewRecognizerWithClient(client RecognizeClient, language string) *Recognizer {
	if language == "" {
		language = DefaultLanguage
	}
	return &Recognizer{client: client, language: language}
}

// Transcribe returns the top alternative of every result joined by spaces,
// or "" when the service heard nothing it could transcribe.
func (r *Recognizer) Transcribe(ctx context.Context, clip domain.Clip) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	resp, err := r.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(clip.SampleRate),
			LanguageCode:    r.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcmBytes(clip.Samples)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognizing speech: %w", err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}

	return strings.Join(parts, " "), nil
}

func (r *Recognizer) Close() error {
	return r.client.Close()
}

// pcmBytes lays samples out as little-endian LINEAR16.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

package google_test

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"

	"voicelab/internal/domain"
	"voicelab/internal/infra/google"
)

type fakeClient struct {
	resp *speechpb.RecognizeResponse
	err  error
	req  *speechpb.RecognizeRequest

	hadDeadline bool
}

func (f *fakeClient) Recognize(ctx context.Context, req *speechpb.RecognizeRequest, _ ...gax.CallOption) (*speechpb.RecognizeResponse, error) {
	f.req = req
	_, f.hadDeadline = ctx.Deadline()
	return f.resp, f.err
}

func (f *fakeClient) Close() error { return nil }

func alternative(text string) *speechpb.SpeechRecognitionResult {
	return &speechpb.SpeechRecognitionResult{
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text, Confidence: 0.9}},
	}
}

func TestRecognizer_Transcribe(t *testing.T) {
	client := &fakeClient{
		resp: &speechpb.RecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{alternative("turn the"), alternative(" fan on")},
		},
	}
	r := google.NewRecognizerWithClient(client, "")

	text, err := r.Transcribe(context.Background(), domain.Clip{Samples: []int16{1, -1, 256}, SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "turn the fan on" {
		t.Errorf("text: got %q, want %q", text, "turn the fan on")
	}

	cfg := client.req.GetConfig()
	if cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("encoding: got %s, want LINEAR16", cfg.GetEncoding())
	}
	if cfg.GetSampleRateHertz() != 16000 {
		t.Errorf("sample rate: got %d, want 16000", cfg.GetSampleRateHertz())
	}
	if cfg.GetLanguageCode() != google.DefaultLanguage {
		t.Errorf("language: got %s, want %s", cfg.GetLanguageCode(), google.DefaultLanguage)
	}

	content := client.req.GetAudio().GetContent()
	want := []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x01}
	if string(content) != string(want) {
		t.Errorf("content: got % x, want % x", content, want)
	}
}

func TestRecognizer_NoResults(t *testing.T) {
	r := google.NewRecognizerWithClient(&fakeClient{resp: &speechpb.RecognizeResponse{}}, "en-GB")

	text, err := r.Transcribe(context.Background(), domain.Clip{Samples: []int16{0}, SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Errorf("text: got %q, want empty", text)
	}
}

func TestRecognizer_ServiceError(t *testing.T) {
	r := google.NewRecognizerWithClient(&fakeClient{err: errors.New("unavailable")}, "")

	if _, err := r.Transcribe(context.Background(), domain.Clip{Samples: []int16{0}, SampleRate: 16000}); err == nil {
		t.Error("expected an error")
	}
}

func TestRecognizer_BoundsDetachedContext(t *testing.T) {
	client := &fakeClient{resp: &speechpb.RecognizeResponse{}}
	r := google.NewRecognizerWithClient(client, "en-US")

	ctx := context.WithoutCancel(context.Background())
	if _, err := r.Transcribe(ctx, domain.Clip{Samples: []int16{1}, SampleRate: 16000}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if !client.hadDeadline {
		t.Error("Recognize called without a deadline")
	}
}

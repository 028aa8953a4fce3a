package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"voicelab/internal/domain"
)

var ErrInvalidWAV = errors.New("not a valid wav file")

// EncodeWAV renders clip as a 16-bit mono PCM WAV file.
func EncodeWAV(clip domain.Clip) ([]byte, error) {
	// The encoder seeks back to patch the header, so it needs a seekable sink.
	f, err := afero.NewMemMapFs().Create("utterance.wav")
	if err != nil {
		return nil, fmt.Errorf("creating buffer: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, clip.SampleRate, 16, 1, 1)

	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encoding samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing wav: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding buffer: %w", err)
	}
	return io.ReadAll(f)
}

// DecodeWAV reads a PCM WAV file into a mono 16-bit clip, averaging
// channels and rescaling other bit depths.
func DecodeWAV(r io.ReadSeeker) (domain.Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return domain.Clip{}, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return domain.Clip{}, fmt.Errorf("decoding pcm: %w", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	depth := int(dec.BitDepth)

	samples := make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i+c]
		}
		samples = append(samples, to16(sum/channels, depth))
	}

	return domain.Clip{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

func to16(v, depth int) int16 {
	switch {
	case depth == 8:
		return int16((v - 128) << 8)
	case depth > 16:
		return int16(v >> (depth - 16))
	default:
		return int16(v)
	}
}

package audio

import (
	"math"
	"time"

	"voicelab/internal/domain"
)

type CaptureConfig struct {
	SampleRate      int
	FramesPerBuffer int
	// ListenTimeout bounds the wait for speech to start. Zero waits forever.
	ListenTimeout time.Duration
	// PauseThreshold is the run of quiet audio that ends an utterance.
	PauseThreshold time.Duration
	// PhraseLimit caps the length of one utterance.
	PhraseLimit time.Duration
	// PreRoll is kept from before the speech onset so the first syllable survives.
	PreRoll time.Duration
	// EnergyRatio scales the measured ambient energy into the speech threshold.
	EnergyRatio float64
	MinEnergy   float64
}

func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:      16000,
		FramesPerBuffer: 1024,
		ListenTimeout:   5 * time.Second,
		PauseThreshold:  800 * time.Millisecond,
		PhraseLimit:     10 * time.Second,
		PreRoll:         300 * time.Millisecond,
		EnergyRatio:     1.5,
		MinEnergy:       300,
	}
}

func (c CaptureConfig) samples(d time.Duration) int {
	return int(d.Seconds() * float64(c.SampleRate))
}

// rms is the root mean square amplitude of a frame.
func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// ambientThreshold turns ambient frame energies into a speech threshold.
func ambientThreshold(energies []float64, ratio, floor float64) float64 {
	if len(energies) == 0 {
		return floor
	}
	var sum float64
	for _, e := range energies {
		sum += e
	}
	threshold := sum / float64(len(energies)) * ratio
	return math.Max(threshold, floor)
}

// segmenter cuts one utterance out of a stream of frames using an energy gate.
type segmenter struct {
	threshold   float64
	sampleRate  int
	preRoll     int
	pauseLimit  int
	phraseLimit int
	waitLimit   int

	pre     []int16
	samples []int16
	started bool
	quiet   int
	waited  int
}

func newSegmenter(cfg CaptureConfig, threshold float64) *segmenter {
	return &segmenter{
		threshold:   threshold,
		sampleRate:  cfg.SampleRate,
		preRoll:     cfg.samples(cfg.PreRoll),
		pauseLimit:  cfg.samples(cfg.PauseThreshold),
		phraseLimit: cfg.samples(cfg.PhraseLimit),
		waitLimit:   cfg.samples(cfg.ListenTimeout),
	}
}

// Feed consumes one frame and reports whether the utterance is complete,
// either because speech ended, the phrase limit was hit, or no speech
// began before the listen timeout.
func (s *segmenter) Feed(frame []int16) bool {
	loud := rms(frame) > s.threshold

	if !s.started {
		if loud {
			s.started = true
			s.samples = append(s.samples, s.pre...)
			s.samples = append(s.samples, frame...)
			s.pre = nil
			return s.phraseLimit > 0 && len(s.samples) >= s.phraseLimit
		}

		s.pre = append(s.pre, frame...)
		if over := len(s.pre) - s.preRoll; over > 0 {
			s.pre = append(s.pre[:0:0], s.pre[over:]...)
		}
		s.waited += len(frame)
		return s.waitLimit > 0 && s.waited >= s.waitLimit
	}

	s.samples = append(s.samples, frame...)
	if loud {
		s.quiet = 0
	} else {
		s.quiet += len(frame)
	}

	if s.pauseLimit > 0 && s.quiet >= s.pauseLimit {
		return true
	}
	return s.phraseLimit > 0 && len(s.samples) >= s.phraseLimit
}

// Clip returns the captured utterance; it is empty when speech never started.
func (s *segmenter) Clip() domain.Clip {
	if !s.started {
		return domain.Clip{SampleRate: s.sampleRate}
	}
	return domain.Clip{Samples: s.samples, SampleRate: s.sampleRate}
}

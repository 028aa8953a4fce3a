package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"voicelab/internal/domain"
)

const processedSuffix = ".processed"

// WavDirSource replays recorded utterances dropped into a directory.
// Each *.wav file is played once and then renamed with a .processed suffix.
type WavDirSource struct {
	fs        afero.Fs
	dir       string
	interval  time.Duration
	logger    *slog.Logger
	processed map[string]bool
	mu        sync.Mutex
}

func NewWavDirSource(fs afero.Fs, dir string, logger *slog.Logger) *WavDirSource {
	return &WavDirSource{
		fs:        fs,
		dir:       dir,
		interval:  500 * time.Millisecond,
		logger:    logger,
		processed: make(map[string]bool),
	}
}

func (w *WavDirSource) Name() string {
	return "wav_dir"
}

// Calibrate only makes sure the directory exists; recordings are replayed as is.
func (w *WavDirSource) Calibrate(_ context.Context, _ time.Duration) error {
	if err := w.fs.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating wav dir: %w", err)
	}
	return nil
}

func (w *WavDirSource) Capture(ctx context.Context) (domain.Clip, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		clip, ok, err := w.next()
		if err != nil {
			return domain.Clip{}, err
		}
		if ok {
			return clip, nil
		}

		select {
		case <-ctx.Done():
			return domain.Clip{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *WavDirSource) next() (domain.Clip, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := afero.ReadDir(w.fs, w.dir)
	if err != nil {
		return domain.Clip{}, false, fmt.Errorf("reading dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}

		path := filepath.Join(w.dir, entry.Name())
		if w.processed[path] {
			continue
		}
		w.processed[path] = true

		clip, err := w.load(path)
		if renameErr := w.fs.Rename(path, path+processedSuffix); renameErr != nil {
			w.logger.Warn("marking recording as processed", "path", path, "error", renameErr)
		}
		if err != nil {
			// A broken recording is skipped, not fatal.
			w.logger.Warn("skipping unreadable recording", "path", path, "error", err)
			continue
		}

		w.logger.Debug("replaying recording", "path", path)
		return clip, true, nil
	}

	return domain.Clip{}, false, nil
}

func (w *WavDirSource) load(path string) (domain.Clip, error) {
	f, err := w.fs.Open(path)
	if err != nil {
		return domain.Clip{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return DecodeWAV(f)
}

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// speakerSampleRate is used for the built-in chime and as the initial rate.
const speakerSampleRate = beep.SampleRate(44100)

// BeepPlayer plays assets on the default audio device.
// Supports WAV, OGG, and MP3 files plus the synthesized built-in chime.
type BeepPlayer struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Whether speaker has been initialized
	initialized bool
	sampleRate  beep.SampleRate

	// Decoded buffers keyed by asset path (or name for built-ins)
	cache      map[string]*beep.Buffer
	cacheMutex sync.RWMutex

	// Device hooks, replaced in tests
	speakerInit func(beep.SampleRate, int) error
	speakerPlay func(...beep.Streamer)
}

// NewBeepPlayer creates a new audio player.
func NewBeepPlayer(logger *slog.Logger) *BeepPlayer {
	if logger == nil {
		logger = slog.Default()
	}

	return &BeepPlayer{
		logger:      logger,
		sampleRate:  speakerSampleRate,
		cache:       make(map[string]*beep.Buffer),
		speakerInit: speaker.Init,
		speakerPlay: speaker.Play,
	}
}

// Play queues the asset on the speaker. It returns once playback has been
// handed to the device, or with the first decode or device error.
func (p *BeepPlayer) Play(ctx context.Context, asset Asset, volume float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buffer, err := p.buffer(asset)
	if err != nil {
		return err
	}

	if err := p.ensureInitialized(buffer.Format().SampleRate); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Device init can outlive the caller's deadline; a late sound is not queued
	if err := ctx.Err(); err != nil {
		return err
	}

	var streamer beep.Streamer = buffer.Streamer(0, buffer.Len())
	if buffer.Format().SampleRate != p.sampleRate {
		streamer = beep.Resample(4, buffer.Format().SampleRate, p.sampleRate, streamer)
	}

	volume = min(max(volume, 0), 1)
	if volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeToExponent(volume),
			Silent:   volume == 0,
		}
	}

	p.speakerPlay(streamer)
	p.logger.Debug("sound queued", "asset", asset.String(), "volume", volume)
	return nil
}

// buffer returns the decoded asset, loading it on first use.
func (p *BeepPlayer) buffer(asset Asset) (*beep.Buffer, error) {
	key := asset.String()

	p.cacheMutex.RLock()
	cached, ok := p.cache[key]
	p.cacheMutex.RUnlock()
	if ok {
		return cached, nil
	}

	var (
		buffer *beep.Buffer
		err    error
	)
	if asset.Builtin() {
		buffer, err = synthesizeChime(speakerSampleRate)
	} else {
		buffer, err = loadSound(asset.Path)
	}
	if err != nil {
		p.logger.Warn("failed to load sound", "asset", key, "error", err)
		return nil, err
	}

	p.cacheMutex.Lock()
	p.cache[key] = buffer
	p.cacheMutex.Unlock()

	return buffer, nil
}

// Preload decodes an asset into the cache.
func (p *BeepPlayer) Preload(asset Asset) error {
	_, err := p.buffer(asset)
	return err
}

// Length returns how long the asset plays for.
func (p *BeepPlayer) Length(asset Asset) (time.Duration, error) {
	buffer, err := p.buffer(asset)
	if err != nil {
		return 0, err
	}
	return buffer.Format().SampleRate.D(buffer.Len()), nil
}

// loadSound loads and decodes a sound file into a buffer.
func loadSound(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w: %w", ErrAssetUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("%w: unsupported audio format: %s", ErrAssetUnavailable, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w: %w", ErrAssetUnavailable, err)
	}
	defer func() { _ = streamer.Close() }()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	return buffer, nil
}

// synthesizeChime renders the two-tone built-in notification sound.
func synthesizeChime(sr beep.SampleRate) (*beep.Buffer, error) {
	low, err := generators.SineTone(sr, 880)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize chime: %w", err)
	}
	high, err := generators.SineTone(sr, 1320)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize chime: %w", err)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2})
	buffer.Append(beep.Seq(
		beep.Take(sr.N(90*time.Millisecond), low),
		beep.Take(sr.N(140*time.Millisecond), high),
	))
	return buffer, nil
}

// ensureInitialized initializes the speaker if not already done.
func (p *BeepPlayer) ensureInitialized(sampleRate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	// 100ms buffer keeps latency low without underruns
	bufferSize := sampleRate.N(100 * time.Millisecond)
	if err := p.speakerInit(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	p.sampleRate = sampleRate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

// InvalidateCache removes a specific path from the cache.
func (p *BeepPlayer) InvalidateCache(path string) {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	delete(p.cache, path)
}

// ClearCache drops every decoded sound.
func (p *BeepPlayer) ClearCache() {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.cache = make(map[string]*beep.Buffer)
}

// Close stops all playback and releases the device.
func (p *BeepPlayer) Close() {
	p.mu.Lock()
	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
	p.mu.Unlock()

	p.ClearCache()
	p.logger.Debug("audio player closed")
}

// volumeToExponent converts a linear gain (0-1] into the base-2 exponent
// effects.Volume expects.
func volumeToExponent(volume float64) float64 {
	if volume <= 0 {
		return -10
	}
	return math.Log2(volume)
}

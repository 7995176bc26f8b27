package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/ebitengine/oto/v3"
)

// Device plays PCM on an output
type Device interface {
	// Loop plays samples over and over until the returned Voice is stopped
	Loop(f Format, samples []byte, volume float64) (Voice, error)
}

// Voice is one looping playback
type Voice interface {
	SetVolume(volume float64)
	Stop() error
}

// Ringer owns the alarm sound. At most one loop plays at a time.
type Ringer struct {
	device    Device
	soundsDir string
	log       *slog.Logger

	mu      sync.Mutex
	soundID string
	volume  int
	voice   Voice
}

// NewRinger creates a Ringer on the default audio output
func NewRinger(soundsDir string, log *slog.Logger) *Ringer {
	return NewRingerWithDevice(&otoDevice{log: log}, soundsDir, log)
}

// NewRingerWithDevice creates a Ringer on device
func NewRingerWithDevice(device Device, soundsDir string, log *slog.Logger) *Ringer {
	return &Ringer{
		device:    device,
		soundsDir: soundsDir,
		log:       log.With("component", "ringer"),
		soundID:   models.DefaultSoundID,
	}
}

// UseSound selects the ringtone for the next Start
func (r *Ringer) UseSound(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.soundID = ResolveSound(id).ID
}

// Start begins looping the ringtone. Starting while already playing only
// applies the volume.
func (r *Ringer) Start(volumePercent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.volume = clampVolume(volumePercent)
	if r.voice != nil {
		r.voice.SetVolume(float64(r.volume) / 100)
		return nil
	}

	f, samples, err := loadSound(r.soundsDir, r.soundID)
	if err != nil {
		r.log.Warn("ringtone unavailable, using tone", slog.String("sound", r.soundID), logger.Err(err))
		f, samples = toneFormat, synthTone(toneFormat)
	}

	voice, err := r.device.Loop(f, samples, float64(r.volume)/100)
	if err != nil {
		return fmt.Errorf("start ringer: %w", err)
	}
	r.voice = voice
	r.log.Info("ringing", slog.String("sound", r.soundID), slog.Int("volume", r.volume))
	return nil
}

// Stop silences the ringtone. Stopping a silent ringer is a no-op.
func (r *Ringer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.voice == nil {
		return nil
	}
	err := r.voice.Stop()
	r.voice = nil
	r.log.Info("stopped")
	return err
}

// IsPlaying reports whether the ringtone is sounding
func (r *Ringer) IsPlaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.voice != nil
}

// SetVolume changes the volume of the current and future loops
func (r *Ringer) SetVolume(percent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.volume = clampVolume(percent)
	if r.voice != nil {
		r.voice.SetVolume(float64(r.volume) / 100)
	}
	return nil
}

func clampVolume(v int) int {
	return min(max(v, models.MinVolume), models.MaxVolume)
}

// Global audio context singleton. oto allows one context per process, so
// its format is fixed by the first sound played.
var (
	audioCtx     *oto.Context
	audioFormat  Format
	audioCtxErr  error
	audioCtxOnce sync.Once
)

type otoDevice struct {
	log *slog.Logger
}

func (d *otoDevice) context(f Format) (*oto.Context, Format, error) {
	audioCtxOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			audioCtxErr = fmt.Errorf("init audio context: %w", err)
			return
		}
		// wait for the hardware audio devices to be ready
		<-ready
		audioCtx = ctx
		audioFormat = f
		d.log.Info("audio context initialized", slog.Int("sample_rate", f.SampleRate), slog.Int("channels", f.Channels))
	})
	return audioCtx, audioFormat, audioCtxErr
}

// Loop implements Device
func (d *otoDevice) Loop(f Format, samples []byte, volume float64) (Voice, error) {
	ctx, ctxFormat, err := d.context(f)
	if err != nil {
		return nil, err
	}
	if f != ctxFormat {
		d.log.Warn("sound format differs from output, using tone")
		samples = synthTone(ctxFormat)
	}
	if len(samples) == 0 {
		return nil, errors.New("empty sound")
	}

	p := ctx.NewPlayer(&loopReader{samples: samples})
	p.SetVolume(volume)
	p.Play()
	return &otoVoice{player: p}, nil
}

type otoVoice struct {
	player *oto.Player
}

func (v *otoVoice) SetVolume(volume float64) {
	v.player.SetVolume(volume)
}

func (v *otoVoice) Stop() error {
	v.player.Pause()
	return v.player.Close()
}

// loopReader repeats samples forever
type loopReader struct {
	samples []byte
	pos     int
}

func (l *loopReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		c := copy(p[n:], l.samples[l.pos:])
		n += c
		l.pos = (l.pos + c) % len(l.samples)
	}
	return n, nil
}

var _ io.Reader = (*loopReader)(nil)

// Package feedback plays a short tone for every click so the user can hear a
// wink register without looking at the screen.
package feedback

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/winkmouse/internal/blink"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog/log"
)

// Tone settings.
const (
	SampleRate   = beep.SampleRate(44100)
	ToneDuration = 60 * time.Millisecond
	LeftFreq     = 880.0
	RightFreq    = 660.0
)

// Beeper is a click sink that plays a sine tone per click.
// Left and right clicks use different pitches.
type Beeper struct {
	mu      sync.Mutex
	ready   bool
	play    func(beep.Streamer)
	initErr error
}

// NewBeeper initializes the speaker. Audio failure is not fatal: the
// returned Beeper stays silent and Err reports why.
func NewBeeper() *Beeper {
	b := &Beeper{play: func(s beep.Streamer) { speaker.Play(s) }}
	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
		b.initErr = fmt.Errorf("init speaker: %w", err)
		log.Warn().Err(err).Msg("Audio initialization failed, click tones disabled")
		return b
	}
	b.ready = true
	return b
}

// Err returns the speaker initialization error, if any.
func (b *Beeper) Err() error {
	return b.initErr
}

// Frequency returns the tone pitch for a click side.
func Frequency(c blink.Click) float64 {
	if c == blink.Right {
		return RightFreq
	}
	return LeftFreq
}

// Tone builds the streamer played for a click.
func Tone(c blink.Click) (beep.Streamer, error) {
	sine, err := generators.SineTone(SampleRate, Frequency(c))
	if err != nil {
		return nil, err
	}
	return beep.Take(SampleRate.N(ToneDuration), sine), nil
}

// Click plays the tone for c. It never blocks on playback.
func (b *Beeper) Click(c blink.Click) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return nil
	}

	tone, err := Tone(c)
	if err != nil {
		return fmt.Errorf("build tone: %w", err)
	}
	b.play(tone)
	return nil
}

// Close stops audio output.
func (b *Beeper) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready {
		speaker.Close()
		b.ready = false
	}
}

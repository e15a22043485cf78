package device

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// AudioPlayer plays WAV clips on the default sound card.
type AudioPlayer struct {
	mu   sync.Mutex
	rate beep.SampleRate
}

// NewAudioPlayer returns a player. The speaker is opened on first use with
// the sample rate of that clip.
func NewAudioPlayer() *AudioPlayer {
	return &AudioPlayer{}
}

// Play implements robot.Audio. It blocks until the clip has finished.
func (p *AudioPlayer) Play(clip string, volume int) error {
	f, err := os.Open(clip)
	if err != nil {
		return err
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", clip, err)
	}
	defer streamer.Close()

	rate, err := p.speaker(format.SampleRate)
	if err != nil {
		return err
	}

	var s beep.Streamer = streamer
	if format.SampleRate != rate {
		s = beep.Resample(4, format.SampleRate, rate, s)
	}
	vol := &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   VolumeLevel(volume),
		Silent:   volume <= 0,
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))
	<-done
	return nil
}

func (p *AudioPlayer) speaker(sr beep.SampleRate) (beep.SampleRate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rate != 0 {
		return p.rate, nil
	}
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return 0, fmt.Errorf("init speaker: %w", err)
	}
	p.rate = sr
	return sr, nil
}

// VolumeLevel maps a 0-100 volume onto the base-2 gain used by
// effects.Volume; 100 is unchanged, 50 is half amplitude.
func VolumeLevel(percent int) float64 {
	if percent <= 0 {
		return math.Inf(-1)
	}
	if percent > 100 {
		percent = 100
	}
	return math.Log2(float64(percent) / 100)
}

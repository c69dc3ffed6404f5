package audioplayer

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as m:ss. Undefined, infinite and negative
// values render as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// VolumeToGain maps a 0-100 slider value to a 0.0-1.0 gain.
func VolumeToGain(volume int) float64 {
	return float64(clampInt(volume, 0, 100)) / 100
}

// Player is the control state of one audio element.
type Player struct {
	playing     bool
	currentTime float64
	duration    float64
	volume      int
	seeking     bool
	slider      float64
}

// NewPlayer returns a paused player at full volume with unknown duration.
func NewPlayer() *Player {
	return &Player{volume: 100, duration: math.NaN()}
}

// TogglePlay flips between playing and paused and returns the new state.
func (p *Player) TogglePlay() bool {
	p.playing = !p.playing
	return p.playing
}

// Playing reports whether playback is running.
func (p *Player) Playing() bool {
	return p.playing
}

// SetDuration records the media duration once metadata is available.
func (p *Player) SetDuration(d float64) {
	p.duration = d
}

// DurationKnown reports whether the seek slider can be bound.
func (p *Player) DurationKnown() bool {
	return !math.IsNaN(p.duration) && !math.IsInf(p.duration, 0) && p.duration > 0
}

// OnTimeUpdate follows the playback clock. The slider is left alone while
// the user is dragging it.
func (p *Player) OnTimeUpdate(t float64) {
	p.currentTime = t
	if !p.seeking {
		p.slider = t
	}
}

// BeginSeek starts a slider drag.
func (p *Player) BeginSeek() {
	p.seeking = true
}

// DragSeek moves the slider during a drag.
func (p *Player) DragSeek(v float64) {
	if !p.seeking {
		return
	}
	p.slider = p.clampPosition(v)
}

// EndSeek finishes a drag and returns the playback position, which is set
// directly to the slider value.
func (p *Player) EndSeek() float64 {
	if !p.seeking {
		return p.currentTime
	}
	p.seeking = false
	p.currentTime = p.slider
	return p.currentTime
}

// Seeking reports whether a drag is in progress.
func (p *Player) Seeking() bool {
	return p.seeking
}

// SetVolume sets the 0-100 slider value and returns the resulting gain.
func (p *Player) SetVolume(v int) float64 {
	p.volume = clampInt(v, 0, 100)
	return p.Gain()
}

// Volume returns the slider value.
func (p *Player) Volume() int {
	return p.volume
}

// Gain returns the 0.0-1.0 gain applied to the element.
func (p *Player) Gain() float64 {
	return VolumeToGain(p.volume)
}

// Position returns the slider position.
func (p *Player) Position() float64 {
	return p.slider
}

// CurrentTime returns the playback position.
func (p *Player) CurrentTime() float64 {
	return p.currentTime
}

// Display renders "position / duration". While dragging the position
// previews the slider.
func (p *Player) Display() string {
	pos := p.currentTime
	if p.seeking {
		pos = p.slider
	}
	return FormatTime(pos) + " / " + FormatTime(p.duration)
}

func (p *Player) clampPosition(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if p.DurationKnown() && v > p.duration {
		return p.duration
	}
	return v
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

package synth

import "github.com/laurens-in/fmsynth/src/audio"

// ----- Envelope ----- //

/*
  0.95 +     x
       |    / \
       |   /   \
     s +  /     x-------x
       | /               \
       |/                 \
     0 x-----+---+--------+--x
       |a    |d  |        |r |
       start          release
*/

// attackPeak leaves headroom below 1 for the gain stages that follow.
const attackPeak = 0.95

// envelope is the handle of one scheduled amplitude shape. It is valid
// from start until release.
type envelope struct {
	gain audio.Param
}

// startEnvelope schedules attack and decay on gain, beginning at t.
func startEnvelope(gain audio.Param, c EnvelopeConfig, t float64) *envelope {
	gain.SetValueAtTime(0, t)
	gain.LinearRampToValueAtTime(attackPeak, t+c.Attack)
	gain.LinearRampToValueAtTime(c.Sustain, t+c.Attack+c.Decay)
	return &envelope{gain: gain}
}

// release schedules the tail starting at t and returns when it reaches
// zero. Nothing may stop the voice before that instant.
//
// The gain is re-anchored to the nominal sustain level first so that a
// decay still in flight cannot override the release ramp. When release
// comes during attack or decay the level jumps to sustain rather than
// continuing from the current value.
func (e *envelope) release(c EnvelopeConfig, t float64) float64 {
	end := t + c.Release
	e.gain.SetValueAtTime(c.Sustain, t)
	e.gain.LinearRampToValueAtTime(0, end)
	return end
}

package synth

import (
	"fmt"

	"github.com/laurens-in/fmsynth/src/audio"
)

// ----- Invariant Violation ----- //

// InvariantViolation is raised with panic when the voice state machine is
// bypassed: a second runtime for a sounding slot, or a stop or live update
// without a runtime. Absorbing it would leak or duplicate graphs.
type InvariantViolation struct {
	Op    string
	Slot  int
	State VoiceState
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s on slot %d in state %s", e.Op, e.Slot, e.State)
}

// ----- FM Voice ----- //

/*
  modulator -> modulatorGain -> carrier.frequency
  carrier -> envelope gain -> carrierGain -> bus
*/
type voiceRuntime struct {
	carrier       audio.Oscillator
	carrierGain   audio.Gain
	modulator     audio.Oscillator
	modulatorGain audio.Gain
	envelopeGain  audio.Gain
	envelope      *envelope
}

// activateVoice builds the graph for one voice activation and starts it at
// now. The caller guarantees no other runtime exists for the slot.
func activateVoice(ctx audio.Context, v VoiceConfig, env EnvelopeConfig, bus audio.Node, now float64) *voiceRuntime {
	r := &voiceRuntime{
		carrier:       ctx.NewOscillator(),
		carrierGain:   ctx.NewGain(),
		modulator:     ctx.NewOscillator(),
		modulatorGain: ctx.NewGain(),
		envelopeGain:  ctx.NewGain(),
	}
	r.envelope = startEnvelope(r.envelopeGain.Gain(), env, now)

	r.carrier.Frequency().SetValueAtTime(v.CarrierFrequencyHz, now)
	r.modulator.Frequency().SetValueAtTime(v.ModulatorFrequencyHz(), now)
	r.carrierGain.Gain().SetValueAtTime(v.CarrierAmplitude, now)
	r.modulatorGain.Gain().SetValueAtTime(v.ModulatorDepth, now)

	r.modulator.Connect(r.modulatorGain)
	r.modulatorGain.ConnectParam(r.carrier.Frequency())
	r.carrier.Connect(r.envelopeGain)
	r.envelopeGain.Connect(r.carrierGain)
	r.carrierGain.Connect(bus)

	r.carrier.Start(now)
	r.modulator.Start(now)
	return r
}

// update applies an already stored field change to the live graph.
func (r *voiceRuntime) update(field string, v VoiceConfig, now float64) {
	switch field {
	case fieldCarrierFrequency:
		r.carrier.Frequency().SetValueAtTime(v.CarrierFrequencyHz, now)
		r.modulator.Frequency().SetValueAtTime(v.ModulatorFrequencyHz(), now)
	case fieldCarrierAmplitude:
		r.carrierGain.Gain().SetValueAtTime(v.CarrierAmplitude, now)
	case fieldModulatorIndex:
		r.modulator.Frequency().SetValueAtTime(v.ModulatorFrequencyHz(), now)
	case fieldModulatorDepth:
		r.modulatorGain.Gain().SetValueAtTime(v.ModulatorDepth, now)
	}
}

// deactivate schedules the release and the oscillator stops after it, and
// returns the stop time. The runtime must not be used afterwards even
// though its nodes keep sounding until then.
func (r *voiceRuntime) deactivate(env EnvelopeConfig, now float64) float64 {
	stopTime := r.envelope.release(env, now)
	r.carrier.Stop(stopTime)
	r.modulator.Stop(stopTime)
	return stopTime
}

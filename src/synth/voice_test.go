package synth

import (
	"testing"

	"github.com/laurens-in/fmsynth/src/audio/audiotest"
)

func TestActivateVoiceGraph(t *testing.T) {
	r := audiotest.NewRecorder()
	bus := r.NewGain()
	r.Reset()
	v := NewPatch(1).Voices[0]
	activateVoice(r, v, testEnvelope, bus, 1)
	expectCalls(t, r.Calls, []audiotest.Call{
		{Target: "osc1", Method: "create"},
		{Target: "gain2", Method: "create"},
		{Target: "osc2", Method: "create"},
		{Target: "gain3", Method: "create"},
		{Target: "gain4", Method: "create"},
		{Target: "gain4.gain", Method: "setValueAtTime", Value: 0, Time: 1},
		{Target: "gain4.gain", Method: "linearRampToValueAtTime", Value: 0.95, Time: 1.05},
		{Target: "gain4.gain", Method: "linearRampToValueAtTime", Value: 0.3, Time: 1.15},
		{Target: "osc1.frequency", Method: "setValueAtTime", Value: 300, Time: 1},
		{Target: "osc2.frequency", Method: "setValueAtTime", Value: 60, Time: 1},
		{Target: "gain2.gain", Method: "setValueAtTime", Value: 1, Time: 1},
		{Target: "gain3.gain", Method: "setValueAtTime", Value: 300, Time: 1},
		{Target: "osc2", Method: "connect", Dest: "gain3"},
		{Target: "gain3", Method: "connect", Dest: "osc1.frequency"},
		{Target: "osc1", Method: "connect", Dest: "gain4"},
		{Target: "gain4", Method: "connect", Dest: "gain2"},
		{Target: "gain2", Method: "connect", Dest: "gain1"},
		{Target: "osc1", Method: "start", Time: 1},
		{Target: "osc2", Method: "start", Time: 1},
	})
}

func TestVoiceUpdateCarrierFrequencyMovesModulator(t *testing.T) {
	r := audiotest.NewRecorder()
	v := NewPatch(1).Voices[0]
	rt := activateVoice(r, v, testEnvelope, r.Destination(), 0)
	r.Reset()
	r.Now = 0.5
	expectNoError(t, v.set(fieldCarrierFrequency, 440))
	rt.update(fieldCarrierFrequency, v, r.Now)
	expectCalls(t, r.Calls, []audiotest.Call{
		{Target: "osc1.frequency", Method: "setValueAtTime", Value: 440, Time: 0.5},
		{Target: "osc2.frequency", Method: "setValueAtTime", Value: 88, Time: 0.5},
	})
}

func TestVoiceUpdateFields(t *testing.T) {
	r := audiotest.NewRecorder()
	v := NewPatch(1).Voices[0]
	rt := activateVoice(r, v, testEnvelope, r.Destination(), 0)
	r.Reset()
	expectNoError(t, v.set(fieldModulatorIndex, 2))
	rt.update(fieldModulatorIndex, v, 0.1)
	expectNoError(t, v.set(fieldModulatorDepth, 50))
	rt.update(fieldModulatorDepth, v, 0.2)
	expectNoError(t, v.set(fieldCarrierAmplitude, 0.5))
	rt.update(fieldCarrierAmplitude, v, 0.3)
	expectCalls(t, r.Calls, []audiotest.Call{
		{Target: "osc2.frequency", Method: "setValueAtTime", Value: 600, Time: 0.1},
		{Target: "gain2.gain", Method: "setValueAtTime", Value: 50, Time: 0.2},
		{Target: "gain1.gain", Method: "setValueAtTime", Value: 0.5, Time: 0.3},
	})
}

func TestVoiceDeactivateStopsAfterRelease(t *testing.T) {
	r := audiotest.NewRecorder()
	rt := activateVoice(r, NewPatch(1).Voices[0], testEnvelope, r.Destination(), 0)
	r.Reset()
	stopTime := rt.deactivate(testEnvelope, 0.03)
	expectNearlyEqual(t, stopTime, 1.03)
	expectCalls(t, r.Calls, []audiotest.Call{
		{Target: "gain3.gain", Method: "setValueAtTime", Value: 0.3, Time: 0.03},
		{Target: "gain3.gain", Method: "linearRampToValueAtTime", Value: 0, Time: 1.03},
		{Target: "osc1", Method: "stop", Time: 1.03},
		{Target: "osc2", Method: "stop", Time: 1.03},
	})
}

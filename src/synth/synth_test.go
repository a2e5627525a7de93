package synth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/laurens-in/fmsynth/src/audio/audiotest"
)

func newTestSynth(t *testing.T, presetDir string) (*Synth, *audiotest.Recorder) {
	t.Helper()
	r := audiotest.NewRecorder()
	s, err := New(r, NewPatch(2), Options{
		Triggers:  map[string]int{"a": 0, "s": 1, MidiTrigger(60): 0},
		Pads:      []string{"kick"},
		PresetDir: presetDir,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s, r
}

func TestNewConnectsMaster(t *testing.T) {
	_, r := newTestSynth(t, "")
	expectCalls(t, r.Calls, []audiotest.Call{
		{Target: "gain1", Method: "create"},
		{Target: "gain1.gain", Method: "setValueAtTime", Value: 1},
		{Target: "gain1", Method: "connect", Dest: "destination"},
	})
}

func TestCommands(t *testing.T) {
	s, r := newTestSynth(t, "")
	expectNoError(t, s.Update([]string{"down", "a"}))
	expectEqual(t, s.voices.State(0), VoiceSounding)
	expectNoError(t, s.Update([]string{"up", "a"}))
	expectEqual(t, s.voices.State(0), VoiceReleasing)
	expectNoError(t, s.Update([]string{"down", "s"}))
	expectNoError(t, s.Update([]string{"stop"}))
	expectEqual(t, s.voices.State(0), VoiceIdle)
	expectEqual(t, s.voices.State(1), VoiceIdle)
	expectEqual(t, r.Count("stop"), 4)

	expectNoError(t, s.Update([]string{"down", "unmapped"}))
	expectNoError(t, s.Update([]string{"pad", "0"}))
	expectNoError(t, s.Update([]string{"suspend"}))
	expectEqual(t, r.Suspended, true)
	expectNoError(t, s.Update([]string{"resume"}))
	expectEqual(t, r.Suspended, false)

	for _, command := range [][]string{
		{},
		{"jump"},
		{"down"},
		{"down", "a", "b"},
		{"pad", "x"},
		{"pad", "3"},
		{"preset", "bell"},
		{"set"},
		{"set", "tempo", "1"},
		{"set", "master"},
		{"set", "master", "loud"},
		{"set", "envelope", "attack"},
		{"set", "voice", "x", "modulatorDepth", "1"},
		{"set", "voice", "0", "modulatorDepth"},
	} {
		if err := s.Update(command); err == nil {
			t.Errorf("expected error for %v", command)
		}
	}
}

func TestSetCommands(t *testing.T) {
	s, r := newTestSynth(t, "")
	r.Reset()
	r.Now = 1
	expectNoError(t, s.Update([]string{"set", "master", "0.5"}))
	expectCalls(t, r.Calls, []audiotest.Call{
		{Target: "gain1.gain", Method: "linearRampToValueAtTime", Value: 0.5, Time: 1.02},
	})
	expectNearlyEqual(t, s.patch.Master, 0.5)
	expectError(t, s.Update([]string{"set", "master", "1.5"}))
	expectNearlyEqual(t, s.patch.Master, 0.5)

	expectNoError(t, s.Update([]string{"set", "envelope", "release", "2"}))
	expectNearlyEqual(t, s.patch.Envelope.Release, 2)
	expectError(t, s.Update([]string{"set", "envelope", "sustain", "-1"}))

	expectNoError(t, s.Update([]string{"set", "voice", "1", "carrierFrequencyHz", "220"}))
	expectNearlyEqual(t, s.patch.Voices[1].CarrierFrequencyHz, 220)
	expectError(t, s.Update([]string{"set", "voice", "2", "carrierFrequencyHz", "220"}))
}

func TestReleaseUsesCurrentEnvelope(t *testing.T) {
	s, r := newTestSynth(t, "")
	expectNoError(t, s.Update([]string{"down", "a"}))
	expectNoError(t, s.Update([]string{"up", "a"}))
	expectNoError(t, s.Update([]string{"set", "envelope", "release", "3"}))
	r.Now = 0.5
	expectNoError(t, s.Update([]string{"down", "a"}))
	expectCalls(t, r.Filter("osc1", "stop"), []audiotest.Call{
		{Target: "osc1", Method: "stop", Time: 3.5},
	})
}

func TestReports(t *testing.T) {
	s, _ := newTestSynth(t, "")
	_, ok := s.Report("voices")
	expectEqual(t, ok, false)

	expectNoError(t, s.Update([]string{"down", "s"}))
	report, ok := s.Report("voices")
	expectEqual(t, ok, true)
	expectEqual(t, report, "voices idle sounding")
	_, ok = s.Report("voices")
	expectEqual(t, ok, false)

	expectNoError(t, s.Update([]string{"set", "master", "0.25"}))
	report, ok = s.Report("patch")
	expectEqual(t, ok, true)
	if !strings.HasPrefix(report, `patch {"master":0.25,`) {
		t.Errorf("unexpected report: %s", report)
	}
}

const bellPreset = `{"master":0.8,"envelope":{"attack":0.01,"decay":0.5,"sustain":0.1,"release":2},"voices":[` +
	`{"carrierFrequencyHz":880,"carrierAmplitude":0.7,"modulatorIndex":3.5,"modulatorDepth":400},` +
	`{"carrierFrequencyHz":440,"carrierAmplitude":0.7,"modulatorIndex":3.5,"modulatorDepth":400}]}`

func writePresets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"_list.json":  `{"items":[{"name":"bell"},{"name":"broken"}]}`,
		"bell.json":   bellPreset,
		"broken.json": `{"master":0.8,"voices":[]}`,
		"hidden.json": string(NewPatch(2).ToJSON()),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPresets(t *testing.T) {
	s, r := newTestSynth(t, writePresets(t))
	expectNoError(t, s.Update([]string{"down", "a"}))
	r.Reset()
	r.Now = 1
	expectNoError(t, s.Update([]string{"preset", "bell"}))
	expectNearlyEqual(t, s.patch.Master, 0.8)
	expectNearlyEqual(t, s.patch.Envelope.Release, 2)
	expectNearlyEqual(t, s.patch.Voices[0].ModulatorFrequencyHz(), 880*3.5)
	expectCalls(t, r.Filter("gain1.gain", ""), []audiotest.Call{
		{Target: "gain1.gain", Method: "linearRampToValueAtTime", Value: 0.8, Time: 1.02},
	})
	expectCalls(t, r.Filter("osc1.frequency", ""), []audiotest.Call{
		{Target: "osc1.frequency", Method: "setValueAtTime", Value: 880, Time: 1},
	})

	expectError(t, s.Update([]string{"preset", "broken"}))
	expectError(t, s.Update([]string{"preset", "hidden"}))
	expectNearlyEqual(t, s.patch.Master, 0.8)
}

func TestApplyJSON(t *testing.T) {
	s, _ := newTestSynth(t, "")
	p := NewPatch(2)
	p.Envelope.Attack = 0.2
	expectNoError(t, s.ApplyJSON(p.ToJSON()))
	expectNearlyEqual(t, s.patch.Envelope.Attack, 0.2)
	expectEqual(t, s.Changes.Has("patch"), true)
	expectError(t, s.ApplyJSON(NewPatch(3).ToJSON()))
}

func TestRunStopsVoicesOnCancel(t *testing.T) {
	s, r := newTestSynth(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- s.Run(ctx)
	}()
	s.CommandCh <- []string{"down", "a"}
	s.CommandCh <- []string{"bogus"}
	for deadline := time.Now().Add(time.Second); ; {
		if _, ok := s.Report("voices"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("command was not executed")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	expectNoError(t, <-done)
	s.mu.Lock()
	defer s.mu.Unlock()
	expectEqual(t, s.voices.State(0), VoiceIdle)
	expectEqual(t, len(r.Filter("osc1", "stop")), 1)
}

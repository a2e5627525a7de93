package synth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/laurens-in/fmsynth/src/audio"
	"github.com/laurens-in/fmsynth/src/audio/audiotest"
)

func writeTestSample(t *testing.T, path string, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestUnloadedPadIsSilent(t *testing.T) {
	r := audiotest.NewRecorder()
	pads := NewDrumPads(r, r.Destination(), []string{"kick", "snare"})
	played, err := pads.Trigger(1)
	expectNoError(t, err)
	expectEqual(t, played, false)
	expectEqual(t, len(r.Calls), 0)
}

func TestPadOutOfRange(t *testing.T) {
	r := audiotest.NewRecorder()
	pads := NewDrumPads(r, r.Destination(), []string{"kick"})
	_, err := pads.Trigger(1)
	expectError(t, err)
	_, err = pads.Trigger(-1)
	expectError(t, err)
}

func TestPadPlaysEachTrigger(t *testing.T) {
	r := audiotest.NewRecorder()
	bus := r.NewGain()
	pads := NewDrumPads(r, bus, []string{"kick"})
	b := &audio.Buffer{SampleRate: 44100, Channels: [][]float64{{0.5, 0.25}}}
	pads.SetBuffer(0, b)
	r.Reset()
	r.Now = 1
	played, err := pads.Trigger(0)
	expectNoError(t, err)
	expectEqual(t, played, true)
	r.Now = 1.01
	pads.Trigger(0)
	expectCalls(t, r.Calls, []audiotest.Call{
		{Target: "source1", Method: "create"},
		{Target: "source1", Method: "connect", Dest: "gain1"},
		{Target: "source1", Method: "start", Time: 1},
		{Target: "source2", Method: "create"},
		{Target: "source2", Method: "connect", Dest: "gain1"},
		{Target: "source2", Method: "start", Time: 1.01},
	})
}

func TestLoadDrumKit(t *testing.T) {
	dir := t.TempDir()
	writeTestSample(t, filepath.Join(dir, "kick.wav"), []int{16384, 0, -16384})
	writeTestSample(t, filepath.Join(dir, "snare.wav"), []int{8192})

	r := audiotest.NewRecorder()
	pads := NewDrumPads(r, r.Destination(), []string{"kick", "snare"})
	expectNoError(t, LoadDrumKit(context.Background(), dir, pads))
	expectEqual(t, pads.buffer(0).Len(), 3)
	expectNearlyEqual(t, pads.buffer(0).Channels[0][0], 0.5)
	expectEqual(t, pads.buffer(1).Len(), 1)

	played, err := pads.Trigger(1)
	expectNoError(t, err)
	expectEqual(t, played, true)
	expectEqual(t, r.Calls[0].Target, "source1")
}

func TestLoadDrumKitMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeTestSample(t, filepath.Join(dir, "kick.wav"), []int{16384})

	r := audiotest.NewRecorder()
	pads := NewDrumPads(r, r.Destination(), []string{"kick", "snare"})
	expectError(t, LoadDrumKit(context.Background(), dir, pads))
	played, err := pads.Trigger(1)
	expectNoError(t, err)
	expectEqual(t, played, false)
}

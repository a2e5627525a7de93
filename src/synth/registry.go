package synth

import (
	"fmt"

	"github.com/laurens-in/fmsynth/src/audio"
)

// ----- Voice State ----- //

// VoiceState is the externally visible state of a voice slot.
type VoiceState int

const (
	// VoiceIdle has no runtime.
	VoiceIdle VoiceState = iota
	// VoiceSounding has a runtime and its trigger has not been released yet.
	VoiceSounding
	// VoiceReleasing has a runtime whose trigger was released; the next
	// trigger-down stops it.
	VoiceReleasing
)

func (s VoiceState) String() string {
	switch s {
	case VoiceIdle:
		return "idle"
	case VoiceSounding:
		return "sounding"
	case VoiceReleasing:
		return "releasing"
	}
	return fmt.Sprintf("VoiceState(%d)", int(s))
}

// ----- Slot ----- //

type slot struct {
	index   int
	runtime *voiceRuntime
	// dirty is set on activation and cleared by the first trigger-up.
	// Key repeat sends many downs while held; only a down that follows
	// an up may stop the voice.
	dirty bool
}

func (s *slot) state() VoiceState {
	if s.runtime == nil {
		return VoiceIdle
	}
	if s.dirty {
		return VoiceSounding
	}
	return VoiceReleasing
}

// ----- Registry ----- //

// Registry routes trigger events to voice slots. Triggers are mapped to
// slots once at construction; several triggers may share a slot.
type Registry struct {
	ctx      audio.Context
	patch    *Patch
	bus      audio.Node
	slots    []*slot
	triggers map[string]int
}

// NewRegistry creates one slot per voice of patch.
func NewRegistry(ctx audio.Context, patch *Patch, bus audio.Node, triggers map[string]int) (*Registry, error) {
	r := &Registry{
		ctx:      ctx,
		patch:    patch,
		bus:      bus,
		slots:    make([]*slot, len(patch.Voices)),
		triggers: make(map[string]int, len(triggers)),
	}
	for i := range r.slots {
		r.slots[i] = &slot{index: i}
	}
	for id, i := range triggers {
		if i < 0 || i >= len(r.slots) {
			return nil, fmt.Errorf("trigger %q mapped to slot %d, have %d slots", id, i, len(r.slots))
		}
		r.triggers[id] = i
	}
	return r, nil
}

// TriggerDown handles a press (or a key repeat) of trigger id. It reports
// whether id is mapped.
func (r *Registry) TriggerDown(id string) bool {
	i, ok := r.triggers[id]
	if !ok {
		return false
	}
	s := r.slots[i]
	switch s.state() {
	case VoiceIdle:
		r.activate(s)
	case VoiceReleasing:
		r.deactivate(s)
	}
	return true
}

// TriggerUp handles a release of trigger id. The voice keeps sounding
// until the next TriggerDown.
func (r *Registry) TriggerUp(id string) bool {
	i, ok := r.triggers[id]
	if !ok {
		return false
	}
	s := r.slots[i]
	if s.state() == VoiceSounding {
		s.dirty = false
	}
	return true
}

// Update stores a voice field and, when the voice is sounding, applies it
// to the live graph as well.
func (r *Registry) Update(i int, field string, value float64) error {
	if i < 0 || i >= len(r.slots) {
		return fmt.Errorf("voice %d out of range", i)
	}
	v := &r.patch.Voices[i]
	if err := v.set(field, value); err != nil {
		return err
	}
	if s := r.slots[i]; s.runtime != nil {
		s.runtime.update(field, *v, r.ctx.CurrentTime())
	}
	return nil
}

// refresh pushes every stored field of every live voice to its graph,
// after the patch was replaced as a whole.
func (r *Registry) refresh() {
	now := r.ctx.CurrentTime()
	for _, s := range r.slots {
		if s.runtime == nil {
			continue
		}
		v := r.patch.Voices[s.index]
		for _, field := range []string{fieldCarrierFrequency, fieldCarrierAmplitude, fieldModulatorDepth} {
			s.runtime.update(field, v, now)
		}
	}
}

// State returns the state of slot i.
func (r *Registry) State(i int) VoiceState {
	return r.slots[i].state()
}

// States returns the state of every slot.
func (r *Registry) States() []VoiceState {
	states := make([]VoiceState, len(r.slots))
	for i, s := range r.slots {
		states[i] = s.state()
	}
	return states
}

// StopAll releases every voice that has a runtime.
func (r *Registry) StopAll() {
	for _, s := range r.slots {
		if s.runtime != nil {
			r.deactivate(s)
		}
	}
}

func (r *Registry) activate(s *slot) {
	if s.runtime != nil {
		panic(&InvariantViolation{Op: "activate", Slot: s.index, State: s.state()})
	}
	s.runtime = activateVoice(r.ctx, r.patch.Voices[s.index], r.patch.Envelope, r.bus, r.ctx.CurrentTime())
	s.dirty = true
}

func (r *Registry) deactivate(s *slot) float64 {
	if s.runtime == nil {
		panic(&InvariantViolation{Op: "deactivate", Slot: s.index, State: s.state()})
	}
	stopTime := s.runtime.deactivate(r.patch.Envelope, r.ctx.CurrentTime())
	s.runtime = nil
	s.dirty = false
	return stopTime
}

// Package synth schedules a small FM synthesizer and drum kit against an
// audio.Context: voice lifecycle, envelopes, keyboard routing and patch
// editing.
package synth

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/laurens-in/fmsynth/src/audio"
)

// masterRampTime smooths master level changes.
const masterRampTime = 0.02

// ----- Changes ----- //

// Changes is a set of report keys that became stale.
type Changes struct {
	sync.Mutex
	dict map[string]struct{}
}

func newChanges() *Changes {
	return &Changes{dict: make(map[string]struct{})}
}

// Add marks key as changed.
func (c *Changes) Add(key string) {
	c.Lock()
	c.dict[key] = struct{}{}
	c.Unlock()
}

// Has reports whether key is marked.
func (c *Changes) Has(key string) bool {
	c.Lock()
	_, ok := c.dict[key]
	c.Unlock()
	return ok
}

// Take unmarks key and reports whether it was marked.
func (c *Changes) Take(key string) bool {
	c.Lock()
	_, ok := c.dict[key]
	delete(c.dict, key)
	c.Unlock()
	return ok
}

// ----- Synth ----- //

// Options configures the fixed parts of a session.
type Options struct {
	// Triggers maps trigger ids (key names, "midi:<note>") to voice slots.
	Triggers map[string]int
	// Pads names the drum pads in pad order.
	Pads []string
	// PresetDir holds _list.json and <name>.json patch documents.
	PresetDir string
}

// Synth owns the patch and every component scheduled from it. Commands are
// executed one at a time by Run; the mutex only guards readers of reports.
type Synth struct {
	mu        sync.Mutex
	ctx       audio.Context
	patch     *Patch
	master    audio.Gain
	voices    *Registry
	drums     *DrumPads
	presets   *presetManager
	CommandCh chan []string
	Changes   *Changes
}

// New builds the master bus and the components around patch.
func New(ctx audio.Context, patch *Patch, opts Options) (*Synth, error) {
	master := ctx.NewGain()
	master.Gain().SetValueAtTime(patch.Master, ctx.CurrentTime())
	master.Connect(ctx.Destination())
	voices, err := NewRegistry(ctx, patch, master, opts.Triggers)
	if err != nil {
		return nil, err
	}
	s := &Synth{
		ctx:       ctx,
		patch:     patch,
		master:    master,
		voices:    voices,
		drums:     NewDrumPads(ctx, master, opts.Pads),
		CommandCh: make(chan []string, 256),
		Changes:   newChanges(),
	}
	if opts.PresetDir != "" {
		s.presets = newPresetManager(opts.PresetDir)
	}
	return s, nil
}

// Drums returns the drum pads, e.g. for a sample loader.
func (s *Synth) Drums() *DrumPads {
	return s.drums
}

// Run executes commands from CommandCh until ctx is done or the channel is
// closed. Invalid commands are logged and skipped.
func (s *Synth) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			log.Println("Run() interrupted")
			s.mu.Lock()
			s.voices.StopAll()
			s.mu.Unlock()
			return nil
		case command, ok := <-s.CommandCh:
			if !ok {
				log.Println("Run() ended.")
				return nil
			}
			if err := s.Update(command); err != nil {
				log.Printf("failed to handle %v: %v\n", command, err)
			}
		}
	}
}

// Update executes one command.
func (s *Synth) Update(command []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}
	args := command[1:]
	switch command[0] {
	case "set":
		if err := s.set(args); err != nil {
			return err
		}
		s.Changes.Add("patch")
	case "down":
		if err := expectArgs(args, 1); err != nil {
			return err
		}
		if s.voices.TriggerDown(args[0]) {
			s.Changes.Add("voices")
		}
	case "up":
		if err := expectArgs(args, 1); err != nil {
			return err
		}
		if s.voices.TriggerUp(args[0]) {
			s.Changes.Add("voices")
		}
	case "pad":
		if err := expectArgs(args, 1); err != nil {
			return err
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pad %q", args[0])
		}
		if _, err := s.drums.Trigger(i); err != nil {
			return err
		}
	case "preset":
		if err := expectArgs(args, 1); err != nil {
			return err
		}
		if err := s.applyPreset(args[0]); err != nil {
			return err
		}
		s.Changes.Add("patch")
	case "stop":
		s.voices.StopAll()
		s.Changes.Add("voices")
	case "resume":
		return s.ctx.Resume()
	case "suspend":
		return s.ctx.Suspend()
	default:
		return fmt.Errorf("unknown command %q", command[0])
	}
	return nil
}

func (s *Synth) set(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing target")
	}
	switch args[0] {
	case "master":
		if err := expectArgs(args[1:], 1); err != nil {
			return err
		}
		value, err := parseValue(args[1])
		if err != nil {
			return err
		}
		return s.setMaster(value)
	case "envelope":
		if err := expectArgs(args[1:], 2); err != nil {
			return err
		}
		value, err := parseValue(args[2])
		if err != nil {
			return err
		}
		return s.patch.Envelope.set(args[1], value)
	case "voice":
		if err := expectArgs(args[1:], 3); err != nil {
			return err
		}
		i, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid voice %q", args[1])
		}
		value, err := parseValue(args[3])
		if err != nil {
			return err
		}
		return s.voices.Update(i, args[2], value)
	}
	return fmt.Errorf("unknown target %q", args[0])
}

func (s *Synth) setMaster(value float64) error {
	if !(value >= 0 && value <= 1) {
		return fmt.Errorf("master must be within [0, 1], got %v", value)
	}
	s.patch.Master = value
	s.master.Gain().LinearRampToValueAtTime(value, s.ctx.CurrentTime()+masterRampTime)
	return nil
}

func (s *Synth) applyPreset(name string) error {
	if s.presets == nil {
		return fmt.Errorf("no preset directory")
	}
	if err := s.presets.applyToPatch(name, s.patch); err != nil {
		return err
	}
	log.Printf("applied preset %s\n", name)
	s.master.Gain().LinearRampToValueAtTime(s.patch.Master, s.ctx.CurrentTime()+masterRampTime)
	s.voices.refresh()
	return nil
}

// ApplyJSON replaces the patch, e.g. from a file given at startup.
func (s *Synth) ApplyJSON(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.patch.ApplyJSON(data); err != nil {
		return err
	}
	s.master.Gain().LinearRampToValueAtTime(s.patch.Master, s.ctx.CurrentTime()+masterRampTime)
	s.voices.refresh()
	s.Changes.Add("patch")
	return nil
}

// Report returns the report line for key if it changed since the last call.
func (s *Synth) Report(key string) (string, bool) {
	if !s.Changes.Take(key) {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case "patch":
		return "patch " + string(s.patch.ToJSON()), true
	case "voices":
		states := s.voices.States()
		items := make([]string, len(states))
		for i, state := range states {
			items[i] = state.String()
		}
		return "voices " + strings.Join(items, " "), true
	}
	return "", false
}

func expectArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d arguments, got %v", n, args)
	}
	return nil
}

package synth

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ----- Voice Config ----- //

// VoiceConfig is the stored sound of one FM voice.
type VoiceConfig struct {
	CarrierFrequencyHz float64 // > 0
	CarrierAmplitude   float64 // 0-1
	ModulatorIndex     float64 // > 0, modulator freq = index * carrier freq
	ModulatorDepth     float64 // >= 0, Hz
}

const (
	fieldCarrierFrequency = "carrierFrequencyHz"
	fieldCarrierAmplitude = "carrierAmplitude"
	fieldModulatorIndex   = "modulatorIndex"
	fieldModulatorDepth   = "modulatorDepth"
)

type voiceJSON struct {
	CarrierFrequencyHz float64 `json:"carrierFrequencyHz"`
	CarrierAmplitude   float64 `json:"carrierAmplitude"`
	ModulatorIndex     float64 `json:"modulatorIndex"`
	ModulatorDepth     float64 `json:"modulatorDepth"`
}

// ModulatorFrequencyHz derives the modulator frequency from the stored
// fields, never from a previous result.
func (v *VoiceConfig) ModulatorFrequencyHz() float64 {
	return v.ModulatorIndex * v.CarrierFrequencyHz
}

func (v *VoiceConfig) validate(field string, value float64) error {
	switch field {
	case fieldCarrierFrequency:
		if !(value > 0) {
			return fmt.Errorf("%s must be > 0, got %v", field, value)
		}
	case fieldCarrierAmplitude:
		if !(value >= 0 && value <= 1) {
			return fmt.Errorf("%s must be within [0, 1], got %v", field, value)
		}
	case fieldModulatorIndex:
		if !(value > 0) {
			return fmt.Errorf("%s must be > 0, got %v", field, value)
		}
	case fieldModulatorDepth:
		if !(value >= 0) {
			return fmt.Errorf("%s must be >= 0, got %v", field, value)
		}
	default:
		return fmt.Errorf("unknown voice field %q", field)
	}
	return nil
}

func (v *VoiceConfig) set(field string, value float64) error {
	if err := v.validate(field, value); err != nil {
		return err
	}
	switch field {
	case fieldCarrierFrequency:
		v.CarrierFrequencyHz = value
	case fieldCarrierAmplitude:
		v.CarrierAmplitude = value
	case fieldModulatorIndex:
		v.ModulatorIndex = value
	case fieldModulatorDepth:
		v.ModulatorDepth = value
	}
	return nil
}

func (v *VoiceConfig) applyJSON(data json.RawMessage) error {
	var j voiceJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to apply JSON to voice: %w", err)
	}
	next := VoiceConfig{}
	for _, kv := range []struct {
		field string
		value float64
	}{
		{fieldCarrierFrequency, j.CarrierFrequencyHz},
		{fieldCarrierAmplitude, j.CarrierAmplitude},
		{fieldModulatorIndex, j.ModulatorIndex},
		{fieldModulatorDepth, j.ModulatorDepth},
	} {
		if err := next.set(kv.field, kv.value); err != nil {
			return err
		}
	}
	*v = next
	return nil
}

func (v *VoiceConfig) toJSON() *voiceJSON {
	return &voiceJSON{
		CarrierFrequencyHz: v.CarrierFrequencyHz,
		CarrierAmplitude:   v.CarrierAmplitude,
		ModulatorIndex:     v.ModulatorIndex,
		ModulatorDepth:     v.ModulatorDepth,
	}
}

// ----- Envelope Config ----- //

// EnvelopeConfig is shared by all voices. Times are seconds.
type EnvelopeConfig struct {
	Attack  float64 // > 0
	Decay   float64 // > 0
	Sustain float64 // 0-1
	Release float64 // > 0
}

type envelopeJSON struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

func (e *EnvelopeConfig) set(key string, value float64) error {
	switch key {
	case "attack", "decay", "release":
		if !(value > 0) {
			return fmt.Errorf("%s must be > 0, got %v", key, value)
		}
	case "sustain":
		if !(value >= 0 && value <= 1) {
			return fmt.Errorf("sustain must be within [0, 1], got %v", value)
		}
	default:
		return fmt.Errorf("unknown envelope field %q", key)
	}
	switch key {
	case "attack":
		e.Attack = value
	case "decay":
		e.Decay = value
	case "sustain":
		e.Sustain = value
	case "release":
		e.Release = value
	}
	return nil
}

func (e *EnvelopeConfig) applyJSON(data json.RawMessage) error {
	var j envelopeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to apply JSON to envelope: %w", err)
	}
	next := EnvelopeConfig{}
	for _, kv := range []struct {
		key   string
		value float64
	}{
		{"attack", j.Attack},
		{"decay", j.Decay},
		{"sustain", j.Sustain},
		{"release", j.Release},
	} {
		if err := next.set(kv.key, kv.value); err != nil {
			return err
		}
	}
	*e = next
	return nil
}

func (e *EnvelopeConfig) toJSON() *envelopeJSON {
	return &envelopeJSON{
		Attack:  e.Attack,
		Decay:   e.Decay,
		Sustain: e.Sustain,
		Release: e.Release,
	}
}

// ----- Patch ----- //

// Patch is the whole editable synth state. It is owned by one Synth and
// mutated only through it.
type Patch struct {
	Master   float64 // 0-1
	Envelope EnvelopeConfig
	Voices   []VoiceConfig
}

const defaultVoiceNum = 4

// NewPatch returns the default patch with n voices.
func NewPatch(n int) *Patch {
	if n <= 0 {
		n = defaultVoiceNum
	}
	p := &Patch{
		Master:   1,
		Envelope: EnvelopeConfig{Attack: 0.05, Decay: 0.1, Sustain: 0.3, Release: 1},
		Voices:   make([]VoiceConfig, n),
	}
	for i := range p.Voices {
		p.Voices[i] = VoiceConfig{
			CarrierFrequencyHz: 300,
			CarrierAmplitude:   1,
			ModulatorIndex:     0.2,
			ModulatorDepth:     300,
		}
	}
	return p
}

type patchJSON struct {
	Master   float64           `json:"master"`
	Envelope json.RawMessage   `json:"envelope"`
	Voices   []json.RawMessage `json:"voices"`
}

// ApplyJSON replaces the patch with a JSON document. The voice count is
// fixed for the session, so documents with a different count are rejected.
// On error the patch is left unchanged.
func (p *Patch) ApplyJSON(data []byte) error {
	var j patchJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to apply JSON to patch: %w", err)
	}
	if len(j.Voices) != len(p.Voices) {
		return fmt.Errorf("patch has %d voices, expected %d", len(j.Voices), len(p.Voices))
	}
	if !(j.Master >= 0 && j.Master <= 1) {
		return fmt.Errorf("master must be within [0, 1], got %v", j.Master)
	}
	next := Patch{Master: j.Master, Voices: make([]VoiceConfig, len(p.Voices))}
	if err := next.Envelope.applyJSON(j.Envelope); err != nil {
		return err
	}
	for i, data := range j.Voices {
		if err := next.Voices[i].applyJSON(data); err != nil {
			return fmt.Errorf("voice %d: %w", i, err)
		}
	}
	*p = next
	return nil
}

// ToJSON serializes the patch.
func (p *Patch) ToJSON() []byte {
	voices := make([]json.RawMessage, len(p.Voices))
	for i := range p.Voices {
		voices[i] = toRawMessage(p.Voices[i].toJSON())
	}
	return toRawMessage(&patchJSON{
		Master:   p.Master,
		Envelope: toRawMessage(p.Envelope.toJSON()),
		Voices:   voices,
	})
}

func toRawMessage(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(bytes)
}

func parseValue(s string) (float64, error) {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return value, nil
}

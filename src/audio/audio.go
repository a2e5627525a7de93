// Package audio is the host audio platform the synth is scheduled against:
// a node graph of oscillators, gains and buffer sources whose controls are
// driven by time-stamped automation on a shared transport clock.
package audio

// Param is a control whose value follows an automation timeline.
// Times are seconds on the owning Context's clock.
type Param interface {
	// SetValueAtTime steps the value to v at time t.
	SetValueAtTime(v float64, t float64)
	// LinearRampToValueAtTime ramps linearly from the previous automation
	// point to v, arriving at time t.
	LinearRampToValueAtTime(v float64, t float64)
	// Value returns the automation value at the current time.
	Value() float64
}

// Node is a vertex in the audio graph.
type Node interface {
	// Connect routes the node's output into dst.
	Connect(dst Node)
	// ConnectParam routes the node's output into dst, where it is added to
	// the param's automation value.
	ConnectParam(dst Param)
}

// Oscillator is a tone generator.
type Oscillator interface {
	Node
	Frequency() Param // Hz
	Detune() Param    // cents
	Start(t float64)
	Stop(t float64)
}

// Gain scales its summed inputs by a param.
type Gain interface {
	Node
	Gain() Param
}

// BufferSource plays a decoded Buffer once.
type BufferSource interface {
	Node
	Start(t float64)
}

// Context creates nodes and owns the transport clock.
type Context interface {
	// CurrentTime is monotonically increasing, in seconds.
	CurrentTime() float64
	Destination() Node
	NewOscillator() Oscillator
	NewGain() Gain
	NewBufferSource(b *Buffer) BufferSource
	Resume() error
	Suspend() error
}

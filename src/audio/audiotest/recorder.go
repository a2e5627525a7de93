// Package audiotest provides an audio.Context that renders nothing and
// records every call made against it.
package audiotest

import (
	"fmt"

	"github.com/laurens-in/fmsynth/src/audio"
)

// Call is one recorded operation. Target names the node or param
// ("osc1", "gain2.gain"); Dest is set for connections.
type Call struct {
	Target string
	Method string
	Value  float64
	Time   float64
	Dest   string
}

func (c Call) String() string {
	if c.Dest != "" {
		return fmt.Sprintf("%s.%s(%s)", c.Target, c.Method, c.Dest)
	}
	return fmt.Sprintf("%s.%s(%v, %v)", c.Target, c.Method, c.Value, c.Time)
}

// Recorder implements audio.Context. Now is the transport clock and is
// advanced by the test.
type Recorder struct {
	Now       float64
	Calls     []Call
	Suspended bool
	counts    map[string]int
	dest      *Node
}

var _ audio.Context = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{counts: make(map[string]int)}
	r.dest = &Node{r: r, name: "destination"}
	return r
}

func (r *Recorder) nextName(kind string) string {
	r.counts[kind]++
	return fmt.Sprintf("%s%d", kind, r.counts[kind])
}

func (r *Recorder) record(c Call) {
	r.Calls = append(r.Calls, c)
}

func (r *Recorder) CurrentTime() float64    { return r.Now }
func (r *Recorder) Destination() audio.Node { return r.dest }

func (r *Recorder) NewOscillator() audio.Oscillator {
	name := r.nextName("osc")
	r.record(Call{Target: name, Method: "create"})
	return &Oscillator{
		Node:      Node{r: r, name: name},
		frequency: &Param{r: r, name: name + ".frequency", value: 440},
		detune:    &Param{r: r, name: name + ".detune"},
	}
}

func (r *Recorder) NewGain() audio.Gain {
	name := r.nextName("gain")
	r.record(Call{Target: name, Method: "create"})
	return &Gain{
		Node: Node{r: r, name: name},
		gain: &Param{r: r, name: name + ".gain", value: 1},
	}
}

func (r *Recorder) NewBufferSource(b *audio.Buffer) audio.BufferSource {
	name := r.nextName("source")
	r.record(Call{Target: name, Method: "create"})
	return &BufferSource{Node: Node{r: r, name: name}, Buffer: b}
}

func (r *Recorder) Resume() error {
	r.Suspended = false
	r.record(Call{Target: "context", Method: "resume"})
	return nil
}

func (r *Recorder) Suspend() error {
	r.Suspended = true
	r.record(Call{Target: "context", Method: "suspend"})
	return nil
}

// Filter returns the calls matching target and method; an empty string
// matches anything.
func (r *Recorder) Filter(target, method string) []Call {
	var calls []Call
	for _, c := range r.Calls {
		if (target == "" || c.Target == target) && (method == "" || c.Method == method) {
			calls = append(calls, c)
		}
	}
	return calls
}

// Count returns the number of calls with the given method.
func (r *Recorder) Count(method string) int {
	return len(r.Filter("", method))
}

// Reset forgets recorded calls but keeps node numbering.
func (r *Recorder) Reset() {
	r.Calls = nil
}

// ----- Nodes ----- //

type named interface {
	Name() string
}

// Node is a recorded graph vertex.
type Node struct {
	r    *Recorder
	name string
}

func (n *Node) Name() string { return n.name }

func (n *Node) Connect(dst audio.Node) {
	n.r.record(Call{Target: n.name, Method: "connect", Dest: nameOf(dst)})
}

func (n *Node) ConnectParam(dst audio.Param) {
	n.r.record(Call{Target: n.name, Method: "connect", Dest: nameOf(dst)})
}

func nameOf(v interface{}) string {
	if n, ok := v.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", v)
}

type Oscillator struct {
	Node
	frequency *Param
	detune    *Param
}

func (o *Oscillator) Frequency() audio.Param { return o.frequency }
func (o *Oscillator) Detune() audio.Param    { return o.detune }
func (o *Oscillator) Start(t float64) {
	o.r.record(Call{Target: o.name, Method: "start", Time: t})
}
func (o *Oscillator) Stop(t float64) {
	o.r.record(Call{Target: o.name, Method: "stop", Time: t})
}

type Gain struct {
	Node
	gain *Param
}

func (g *Gain) Gain() audio.Param { return g.gain }

type BufferSource struct {
	Node
	Buffer *audio.Buffer
}

func (s *BufferSource) Start(t float64) {
	s.r.record(Call{Target: s.name, Method: "start", Time: t})
}

// ----- Param ----- //

// Param records automation and tracks the last submitted value.
type Param struct {
	r     *Recorder
	name  string
	value float64
}

func (p *Param) Name() string   { return p.name }
func (p *Param) Value() float64 { return p.value }

func (p *Param) SetValueAtTime(v float64, t float64) {
	p.value = v
	p.r.record(Call{Target: p.name, Method: "setValueAtTime", Value: v, Time: t})
}

func (p *Param) LinearRampToValueAtTime(v float64, t float64) {
	p.value = v
	p.r.record(Call{Target: p.name, Method: "linearRampToValueAtTime", Value: v, Time: t})
}

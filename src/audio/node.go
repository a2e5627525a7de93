package audio

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// ----- Cycle ----- //

// cycle is one render quantum.
type cycle struct {
	pos        int64 // first frame
	frames     int
	sampleRate int
}

func (c *cycle) timeAt(i int) float64 {
	return float64(c.pos+int64(i)) / float64(c.sampleRate)
}
func (c *cycle) end() float64 {
	return c.timeAt(c.frames)
}

func resize(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}

// ----- Node ----- //

type node interface {
	Node
	base() *baseNode
	params() []*param
	process(c *cycle) []float64
	// finished reports whether the node will never produce sound again.
	finished(t float64) bool
}

type baseNode struct {
	e         *Engine
	inputs    []node
	hadInputs bool
	out       []float64
	pos       int64
	pruned    int64
}

func newBaseNode(e *Engine) baseNode {
	return baseNode{e: e, pos: -1, pruned: -1}
}

func (b *baseNode) base() *baseNode {
	return b
}

func (b *baseNode) mix(c *cycle) []float64 {
	b.out = resize(b.out, c.frames)
	for i := range b.out {
		b.out[i] = 0
	}
	for _, in := range b.inputs {
		vecmath.AddBlockInPlace(b.out, in.process(c))
	}
	return b.out
}

func (e *Engine) connect(src node, dst Node) {
	d, ok := dst.(node)
	if !ok {
		panic(fmt.Errorf("audio: cannot connect to %T", dst))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	b := d.base()
	b.inputs = append(b.inputs, src)
	b.hadInputs = true
}

func (e *Engine) connectParam(src node, dst Param) {
	p, ok := dst.(*param)
	if !ok {
		panic(fmt.Errorf("audio: cannot connect to %T", dst))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p.inputs = append(p.inputs, src)
}

// prune detaches finished inputs below n, depth first, so that a voice
// chain disappears from the graph once its oscillators have stopped.
func prune(n node, pos int64, t float64) {
	b := n.base()
	if b.pruned == pos {
		return
	}
	b.pruned = pos
	kept := b.inputs[:0]
	for _, in := range b.inputs {
		prune(in, pos, t)
		if !in.finished(t) {
			kept = append(kept, in)
		}
	}
	b.inputs = kept
	for _, p := range n.params() {
		keptParams := p.inputs[:0]
		for _, in := range p.inputs {
			prune(in, pos, t)
			if !in.finished(t) {
				keptParams = append(keptParams, in)
			}
		}
		p.inputs = keptParams
	}
}

// ----- Gain ----- //

type gain struct {
	baseNode
	gain *param
}

func (e *Engine) NewGain() Gain {
	return &gain{
		baseNode: newBaseNode(e),
		gain:     newParam(e, 1),
	}
}

func (g *gain) Connect(dst Node)       { g.e.connect(g, dst) }
func (g *gain) ConnectParam(dst Param) { g.e.connectParam(g, dst) }
func (g *gain) Gain() Param            { return g.gain }
func (g *gain) params() []*param       { return []*param{g.gain} }

func (g *gain) process(c *cycle) []float64 {
	if g.pos == c.pos {
		return g.out
	}
	g.pos = c.pos
	out := g.mix(c)
	vecmath.MulBlockInPlace(out, g.gain.process(c))
	return out
}

func (g *gain) finished(t float64) bool {
	return g.hadInputs && len(g.inputs) == 0
}

// ----- Destination ----- //

type destination struct {
	baseNode
}

func (d *destination) Connect(dst Node)        { panic("audio: destination has no output") }
func (d *destination) ConnectParam(dst Param)  { panic("audio: destination has no output") }
func (d *destination) params() []*param        { return nil }
func (d *destination) finished(t float64) bool { return false }

func (d *destination) process(c *cycle) []float64 {
	if d.pos == c.pos {
		return d.out
	}
	d.pos = c.pos
	return d.mix(c)
}

// prune keeps the destination's direct inputs for the whole session; only
// what hangs below them is reclaimed.
func (d *destination) prune(pos int64, t float64) {
	for _, in := range d.inputs {
		prune(in, pos, t)
	}
}

package audio

import (
	"math"
	"math/rand"
)

// ----- OSC ----- //

type osc struct {
	baseNode
	frequency *param
	detune    *param
	phase01   float64
	started   bool
	startTime float64
	stopped   bool
	stopTime  float64
}

const defaultFrequency = 440.0

func (e *Engine) NewOscillator() Oscillator {
	return &osc{
		baseNode:  newBaseNode(e),
		frequency: newParam(e, defaultFrequency),
		detune:    newParam(e, 0),
		phase01:   rand.Float64(),
	}
}

func (o *osc) Connect(dst Node)       { o.e.connect(o, dst) }
func (o *osc) ConnectParam(dst Param) { o.e.connectParam(o, dst) }
func (o *osc) Frequency() Param       { return o.frequency }
func (o *osc) Detune() Param          { return o.detune }
func (o *osc) params() []*param       { return []*param{o.frequency, o.detune} }

func (o *osc) Start(t float64) {
	o.e.mu.Lock()
	defer o.e.mu.Unlock()
	if o.started {
		panic("audio: oscillator started twice")
	}
	o.started = true
	o.startTime = t
}

func (o *osc) Stop(t float64) {
	o.e.mu.Lock()
	defer o.e.mu.Unlock()
	if !o.started {
		panic("audio: oscillator stopped before start")
	}
	o.stopped = true
	o.stopTime = math.Max(t, o.startTime)
}

func (o *osc) playingAt(t float64) bool {
	return o.started && t >= o.startTime && !(o.stopped && t >= o.stopTime)
}

func (o *osc) process(c *cycle) []float64 {
	if o.pos == c.pos {
		return o.out
	}
	o.pos = c.pos
	o.out = resize(o.out, c.frames)
	freq := o.frequency.process(c)
	detune := o.detune.process(c)
	for i := range o.out {
		if !o.playingAt(c.timeAt(i)) {
			o.out[i] = 0
			continue
		}
		o.out[i] = math.Sin(2 * math.Pi * o.phase01)
		f := freq[i]
		if detune[i] != 0 {
			f *= math.Pow(2, detune[i]/1200)
		}
		o.phase01 = positiveMod(o.phase01+f/float64(c.sampleRate), 1)
	}
	return o.out
}

func (o *osc) finished(t float64) bool {
	return o.stopped && t >= o.stopTime
}

func positiveMod(a float64, b float64) float64 {
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	return m
}

package audio

import "github.com/cwbudde/algo-vecmath"

// ----- Automation Kind ----- //

const (
	automationSet = iota
	automationLinear
)

type automationEvent struct {
	kind  int
	time  float64 // sec
	value float64
}

// ----- Param ----- //

/*
  Events are kept in submission order, which is also time order: a new
  event drops every pending event later than itself.

   v |        set
     |         x----.   linear
     |        /      `-.
     |   ____/          `-x
     |  anchor
     +--+-----+----------+---
*/
type param struct {
	e           *Engine
	events      []automationEvent
	anchorTime  float64
	anchorValue float64
	inputs      []node
	out         []float64
	pos         int64
}

func newParam(e *Engine, value float64) *param {
	return &param{
		e:           e,
		anchorValue: value,
		pos:         -1,
	}
}

func (p *param) SetValueAtTime(v float64, t float64) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	p.insert(automationEvent{kind: automationSet, time: t, value: v})
}

func (p *param) LinearRampToValueAtTime(v float64, t float64) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	p.insert(automationEvent{kind: automationLinear, time: t, value: v})
}

func (p *param) Value() float64 {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	return p.valueAt(p.e.currentTime())
}

func (p *param) insert(ev automationEvent) {
	if len(p.events) == 0 {
		now := p.e.currentTime()
		p.anchorValue = p.valueAt(now)
		p.anchorTime = now
	}
	kept := p.events[:0]
	for _, pending := range p.events {
		if pending.time <= ev.time {
			kept = append(kept, pending)
		}
	}
	p.events = append(kept, ev)
}

func (p *param) valueAt(t float64) float64 {
	prevTime, prevValue := p.anchorTime, p.anchorValue
	for _, ev := range p.events {
		if ev.time <= t {
			prevTime, prevValue = ev.time, ev.value
			continue
		}
		if ev.kind == automationLinear && ev.time > prevTime {
			r := (t - prevTime) / (ev.time - prevTime)
			return prevValue + (ev.value-prevValue)*r
		}
		return prevValue
	}
	return prevValue
}

// forget drops events that lie entirely in the past, keeping the last one
// as the anchor for whatever follows.
func (p *param) forget(t float64) {
	i := 0
	for ; i < len(p.events) && p.events[i].time <= t; i++ {
		p.anchorTime = p.events[i].time
		p.anchorValue = p.events[i].value
	}
	p.events = append(p.events[:0], p.events[i:]...)
}

func (p *param) process(c *cycle) []float64 {
	if p.pos == c.pos {
		return p.out
	}
	p.pos = c.pos
	p.out = resize(p.out, c.frames)
	for i := range p.out {
		p.out[i] = p.valueAt(c.timeAt(i))
	}
	for _, in := range p.inputs {
		vecmath.AddBlockInPlace(p.out, in.process(c))
	}
	p.forget(c.end())
	return p.out
}

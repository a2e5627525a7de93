package audio

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/hajimehoshi/oto"
)

const (
	DefaultSampleRate = 48000
	channelNum        = 2
	bitDepthInBytes   = 2
	samplesPerCycle   = 1024
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096

// ----- Engine ----- //

// Engine is a software Context rendered by pulling PCM through Read.
type Engine struct {
	mu          sync.Mutex
	ctx         context.Context
	otoContext  *oto.Context
	sampleRate  int
	frames      int64
	suspended   bool
	destination *destination
}

var _ Context = (*Engine)(nil)
var _ io.Reader = (*Engine)(nil)

// NewEngine creates an engine. Nothing is opened until Start.
func NewEngine(sampleRate int) *Engine {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	e := &Engine{
		ctx:        context.Background(),
		sampleRate: sampleRate,
	}
	e.destination = &destination{baseNode: newBaseNode(e)}
	return e
}

// SampleRate returns frames per second.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

func (e *Engine) currentTime() float64 {
	return float64(e.frames) / float64(e.sampleRate)
}

// CurrentTime returns the time of the next frame to be rendered.
func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTime()
}

func (e *Engine) Destination() Node {
	return e.destination
}

// Resume lets the clock run again.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.suspended {
		log.Println("Resuming audio...")
	}
	e.suspended = false
	return nil
}

// Suspend outputs silence and freezes the clock.
func (e *Engine) Suspend() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.suspended {
		log.Println("Suspending audio...")
	}
	e.suspended = true
	return nil
}

func (e *Engine) render(frames int) []float64 {
	c := &cycle{pos: e.frames, frames: frames, sampleRate: e.sampleRate}
	out := e.destination.process(c)
	e.frames += int64(frames)
	e.destination.prune(c.pos, e.currentTime())
	return out
}

// Render advances the clock by frames and returns the mono mix, ignoring
// Suspend. It is for offline rendering and must not be mixed with Start.
func (e *Engine) Render(frames int) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), e.render(frames)...)
}

func (e *Engine) Read(buf []byte) (int, error) {
	select {
	case <-e.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
		e.mu.Lock()
		defer e.mu.Unlock()
		bufSamples := len(buf) / bytesPerSample
		if e.suspended {
			for i := range buf {
				buf[i] = 0
			}
			return len(buf), nil
		}
		out := e.render(bufSamples)
		for ch := 0; ch < channelNum; ch++ {
			writeBuffer(out, buf, ch)
		}
		return len(buf), nil
	}
}

func writeBuffer(out []float64, buf []byte, ch int) {
	sampleLength := len(buf) / bytesPerSample
	for i := 0; i < sampleLength; i++ {
		value := out[i]
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		const max = 32767
		b := int16(value * max)
		buf[bytesPerSample*i+2*ch] = byte(b)
		buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
	}
}

// Start opens the output device and streams until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	otoContext, err := oto.NewContext(e.sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.otoContext = otoContext
	e.ctx = ctx
	e.mu.Unlock()

	p := otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()

	// block until cancel() called
	if _, err := io.CopyBuffer(p, e, make([]byte, bufferSizeInBytes)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

// Close releases the output device.
func (e *Engine) Close() error {
	log.Println("Closing Audio...")
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.otoContext == nil {
		return nil
	}
	err := e.otoContext.Close()
	e.otoContext = nil
	return err
}

package synth

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/laurens-in/fmsynth/src/audio"
	"golang.org/x/sync/errgroup"
)

// ----- Drum Pads ----- //

// DrumPads plays one-shot samples into the bus. Buffers arrive from a
// loader at any time; a pad without a buffer is silent.
type DrumPads struct {
	ctx     audio.Context
	bus     audio.Node
	names   []string
	mu      sync.Mutex
	buffers []*audio.Buffer
}

func NewDrumPads(ctx audio.Context, bus audio.Node, names []string) *DrumPads {
	return &DrumPads{
		ctx:     ctx,
		bus:     bus,
		names:   names,
		buffers: make([]*audio.Buffer, len(names)),
	}
}

// Names returns the pad names in pad order.
func (d *DrumPads) Names() []string {
	return d.names
}

// SetBuffer makes pad i playable.
func (d *DrumPads) SetBuffer(i int, b *audio.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers[i] = b
}

func (d *DrumPads) buffer(i int) *audio.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffers[i]
}

// Trigger plays pad i now. It reports whether anything was played.
func (d *DrumPads) Trigger(i int) (bool, error) {
	if i < 0 || i >= len(d.names) {
		return false, fmt.Errorf("pad %d out of range", i)
	}
	b := d.buffer(i)
	if b == nil {
		log.Printf("pad %s is not loaded yet", d.names[i])
		return false, nil
	}
	playBuffer(d.ctx, b, d.bus, d.ctx.CurrentTime())
	return true, nil
}

// playBuffer fires a buffer once. The source disposes of itself when the
// buffer has played out.
func playBuffer(ctx audio.Context, b *audio.Buffer, bus audio.Node, now float64) {
	source := ctx.NewBufferSource(b)
	source.Connect(bus)
	source.Start(now)
}

// LoadDrumKit decodes <dir>/<name>.wav for every pad concurrently. Pads
// become playable one by one as their files are decoded.
func LoadDrumKit(ctx context.Context, dir string, pads *DrumPads) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range pads.Names() {
		i, name := i, name
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			b, err := loadSample(filepath.Join(dir, name+".wav"))
			if err != nil {
				return fmt.Errorf("failed to load pad %s: %w", name, err)
			}
			pads.SetBuffer(i, b)
			log.Printf("loaded pad %s (%.2fs)\n", name, b.Duration())
			return nil
		})
	}
	return g.Wait()
}

func loadSample(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return audio.DecodeBuffer(f)
}

package audio

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
)

// ----- Buffer ----- //

// Buffer is decoded PCM, one slice per channel, samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float64
}

// Len returns the number of frames.
func (b *Buffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate)
}

// wavFormatPCM is the WAVE_FORMAT_PCM tag. Float and compressed data is
// not supported.
const wavFormatPCM = 1

// DecodeBuffer reads an integer PCM WAV stream into a Buffer.
func DecodeBuffer(r io.ReadSeeker) (*Buffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV data")
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported WAV format %d", decoder.WavAudioFormat)
	}
	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}
	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		return nil, fmt.Errorf("unknown bit depth")
	}
	channelNum := pcm.Format.NumChannels
	if channelNum <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channelNum)
	}
	factor := math.Pow(2, float64(bitDepth-1))
	// 8-bit samples are unsigned, centered on 128.
	offset := 0.0
	if bitDepth == 8 {
		offset = factor
	}
	frames := len(pcm.Data) / channelNum
	b := &Buffer{
		SampleRate: pcm.Format.SampleRate,
		Channels:   make([][]float64, channelNum),
	}
	for ch := range b.Channels {
		b.Channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames*channelNum; i++ {
		b.Channels[i%channelNum][i/channelNum] = (float64(pcm.Data[i]) - offset) / factor
	}
	return b, nil
}

// ----- Buffer Source ----- //

type bufferSource struct {
	baseNode
	buffer    *Buffer
	started   bool
	startTime float64
	position  float64 // frames into buffer
}

func (e *Engine) NewBufferSource(b *Buffer) BufferSource {
	return &bufferSource{
		baseNode: newBaseNode(e),
		buffer:   b,
	}
}

func (s *bufferSource) Connect(dst Node)       { s.e.connect(s, dst) }
func (s *bufferSource) ConnectParam(dst Param) { s.e.connectParam(s, dst) }
func (s *bufferSource) params() []*param       { return nil }

func (s *bufferSource) Start(t float64) {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if s.started {
		panic("audio: buffer source started twice")
	}
	s.started = true
	s.startTime = t
}

func (s *bufferSource) process(c *cycle) []float64 {
	if s.pos == c.pos {
		return s.out
	}
	s.pos = c.pos
	s.out = resize(s.out, c.frames)
	length := s.buffer.Len()
	rate := s.buffer.SampleRate
	if rate <= 0 {
		rate = c.sampleRate
	}
	step := float64(rate) / float64(c.sampleRate)
	channelGain := 1 / float64(len(s.buffer.Channels))
	for i := range s.out {
		s.out[i] = 0
		if !s.started || c.timeAt(i) < s.startTime {
			continue
		}
		j := int(s.position)
		if j >= length {
			continue
		}
		frac := s.position - float64(j)
		for _, ch := range s.buffer.Channels {
			v := ch[j]
			if j+1 < length {
				v += (ch[j+1] - v) * frac
			}
			s.out[i] += v * channelGain
		}
		s.position += step
	}
	return s.out
}

func (s *bufferSource) finished(t float64) bool {
	return s.started && int(s.position) >= s.buffer.Len()
}

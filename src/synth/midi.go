package synth

import (
	"context"
	"log"
	"strconv"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/rtmididrv"
)

// MidiTrigger is the trigger id of a MIDI note.
func MidiTrigger(note int) string {
	return "midi:" + strconv.Itoa(note)
}

// MidiCommand translates a raw note-on/note-off message into a down/up
// command. Other messages yield nil. Note-on with velocity 0 is a note-off.
func MidiCommand(data []byte) []string {
	if len(data) < 3 {
		return nil
	}
	status := data[0] >> 4
	note := int(data[1])
	switch {
	case status == 8 || status == 9 && data[2] == 0:
		return []string{"up", MidiTrigger(note)}
	case status == 9:
		return []string{"down", MidiTrigger(note)}
	}
	return nil
}

// ListenToMidiIn forwards messages from the first MIDI input until ctx is
// done. The channel is closed when listening stops.
func ListenToMidiIn(ctx context.Context) <-chan []byte {
	ch := make(chan []byte, 1024)
	go func() {
		defer close(ch)
		drv, err := rtmididrv.New()
		if err != nil {
			log.Printf("failed to initialize MIDI driver: %v\n", err)
			return
		}
		defer func() {
			err := drv.Close()
			if err != nil {
				log.Printf("failed to close MIDI driver: %v\n", err)
			}
		}()
		in, err := firstIn(drv)
		if err != nil {
			log.Printf("failed to get MIDI IN: %v\n", err)
			return
		}
		if in == nil {
			log.Println("WARN: MIDI IN not found")
			return
		}
		if err := in.Open(); err != nil {
			log.Printf("failed to open MIDI IN: %v\n", err)
			return
		}
		log.Println("opened " + in.String())
		defer func() {
			err := in.Close()
			if err != nil {
				log.Printf("failed to close MIDI IN: %v\n", err)
			}
		}()
		log.Println("start listening MIDI IN...")
		if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
			msg := append([]byte(nil), data...)
			select {
			case ch <- msg:
			default:
				log.Println("[WARN] MIDI message dropped")
			}
		}); err != nil {
			log.Println("failed to set listener: " + err.Error())
			return
		}
		defer func() {
			log.Println("stop listening MIDI IN...")
			err := in.StopListening()
			if err != nil {
				log.Printf("failed to stop listening: %v\n", err)
			}
		}()
		<-ctx.Done()
	}()
	return ch
}

func firstIn(drv midi.Driver) (midi.In, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	log.Printf("MIDI IN: %v\n", ins)
	if len(ins) == 0 {
		return nil, nil
	}
	return ins[0], nil
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/laurens-in/fmsynth/src/audio"
	"github.com/laurens-in/fmsynth/src/synth"
	"golang.org/x/sync/errgroup"
)

var (
	sockFileName = flag.String("sock", "/tmp/fmsynth.sock", "unix socket for commands and reports")
	sampleRate   = flag.Int("rate", audio.DefaultSampleRate, "output sample rate")
	keys         = flag.String("keys", "a,s,d,f", "keyboard keys, one voice per key")
	notes        = flag.String("notes", "60,62,64,65", "MIDI notes mapped to the same voices as -keys")
	pads         = flag.String("pads", "kick,snare,hh-closed,hh-open", "drum pad names")
	samplesDir   = flag.String("samples", "", "directory with <pad>.wav files")
	presetsDir   = flag.String("presets", "", "directory with _list.json and <preset>.json")
	patchFile    = flag.String("patch", "", "initial patch JSON")
	useMidi      = flag.Bool("midi", false, "listen to the first MIDI input")
)

// errPeerClosed ends the session when the UI disconnects.
var errPeerClosed = errors.New("connection closed by peer")

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	triggers, voiceNum, err := parseTriggers(*keys, *notes)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	engine := audio.NewEngine(*sampleRate)
	defer engine.Close()

	s, err := synth.New(engine, synth.NewPatch(voiceNum), synth.Options{
		Triggers:  triggers,
		Pads:      splitList(*pads),
		PresetDir: *presetsDir,
	})
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	if *patchFile != "" {
		data, err := os.ReadFile(*patchFile)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		if err := s.ApplyJSON(data); err != nil {
			log.Fatalf("error: %v\n", err)
		}
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		sig := <-signalCh
		log.Printf("Caught signal %s: shutting down...\n", sig)
		cancel()
	}()
	err = withIPCConnection(ctx, func(conn net.Conn) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return engine.Start(ctx)
		})
		g.Go(func() error {
			return s.Run(ctx)
		})
		g.Go(func() error {
			return receiveCommands(ctx, conn, s.CommandCh)
		})
		g.Go(func() error {
			return sendReports(ctx, conn, s)
		})
		g.Go(func() error {
			<-ctx.Done()
			return conn.SetReadDeadline(time.Now())
		})
		if *samplesDir != "" {
			g.Go(func() error {
				if err := synth.LoadDrumKit(ctx, *samplesDir, s.Drums()); err != nil {
					log.Printf("drum kit incomplete: %v\n", err)
				}
				return nil
			})
		}
		if *useMidi {
			g.Go(func() error {
				return forwardMidi(ctx, synth.ListenToMidiIn(ctx), s.CommandCh)
			})
		}
		return g.Wait()
	})
	if errors.Is(err, errPeerClosed) {
		log.Println("Connection closed by peer")
		err = nil
	}
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

func parseTriggers(keys string, notes string) (map[string]int, int, error) {
	triggers := make(map[string]int)
	keyList := splitList(keys)
	if len(keyList) == 0 {
		return nil, 0, fmt.Errorf("no keys given")
	}
	for i, key := range keyList {
		triggers[key] = i
	}
	for i, item := range splitList(notes) {
		note, err := strconv.Atoi(item)
		if err != nil || note < 0 || note > 127 {
			return nil, 0, fmt.Errorf("invalid MIDI note %q", item)
		}
		if i >= len(keyList) {
			return nil, 0, fmt.Errorf("more notes than voices")
		}
		triggers[synth.MidiTrigger(note)] = i
	}
	return triggers, len(keyList), nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func withIPCConnection(ctx context.Context, f func(net.Conn) error) error {
	os.Remove(*sockFileName)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", *sockFileName)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing IPC...")
		err := listener.Close()
		if err != nil {
			log.Printf("error while closing listener: %v", err)
		}
		os.Remove(*sockFileName)
	}()
	log.Printf("start listening on %s...\n", *sockFileName)
	conn, err := listener.Accept()
	if err != nil {
		return err
	}
	defer func() {
		err := conn.Close()
		if err != nil {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	return f(conn)
}

func receiveCommands(ctx context.Context, conn net.Conn, commandCh chan<- []string) error {
	reader := bufio.NewReader(conn)
	var line []byte
	for {
		next, isPrefix, err := reader.ReadLine()
		if ctx.Err() != nil {
			log.Println("Connection interrupted")
			return nil
		}
		if err == io.EOF {
			return errPeerClosed
		}
		if err != nil {
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		command, err := parseCommand(string(line))
		if err != nil {
			log.Printf("invalid command line %q: %v\n", string(line), err)
			line = line[:0]
			continue
		}
		log.Printf("received: %s\n", string(line))
		line = line[:0]
		select {
		case commandCh <- command:
		case <-ctx.Done():
			return nil
		}
	}
}

func parseCommand(line string) ([]string, error) {
	lineStr := strings.Fields(line)
	for i, item := range lineStr {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		lineStr[i] = escaped
	}
	return lineStr, nil
}

func forwardMidi(ctx context.Context, midiCh <-chan []byte, commandCh chan<- []string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-midiCh:
			if !ok {
				return nil
			}
			command := synth.MidiCommand(data)
			if command == nil {
				continue
			}
			log.Printf("got MIDI %v\n", data)
			select {
			case commandCh <- command:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func sendReports(ctx context.Context, conn net.Conn, s *synth.Synth) error {
	s.Changes.Add("patch")
	s.Changes.Add("voices")
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			return nil
		case <-t.C:
			for _, key := range []string{"patch", "voices"} {
				report, ok := s.Report(key)
				if !ok {
					continue
				}
				if _, err := conn.Write([]byte(report + "\n")); err != nil {
					log.Printf("failed to send report: %v\n", err)
				}
			}
		}
	}
}

// Package midiin connects hardware MIDI inputs to the trainer.
package midiin

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/stats"
)

// Source tags events coming from a MIDI port.
const Source = "midi"

// ErrNoPorts is returned when no MIDI input port is available.
var ErrNoPorts = errors.New("no MIDI input ports available")

// Sink receives translated note events. It runs on the driver's goroutine.
type Sink func(model.NoteEvent)

// Ports lists the names of available MIDI input ports.
func Ports() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// Listener is an open MIDI input port.
type Listener struct {
	port string
	stop func()
}

// Open starts listening on the named port, or on the first port when name is
// empty. Note messages are translated and passed to sink.
func Open(name string, clock stats.Clock, logger *log.Logger, sink Sink) (*Listener, error) {
	if logger == nil {
		logger = log.Default()
	}
	if clock == nil {
		clock = stats.SystemClock{}
	}
	if name == "" {
		ports := Ports()
		if len(ports) == 0 {
			return nil, ErrNoPorts
		}
		name = ports[0]
	}
	in, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("find MIDI input %q: %w", name, err)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		ev, ok := Translate(msg, clock.Now())
		if !ok {
			logger.Debug("ignoring MIDI message", "msg", msg.String())
			return
		}
		sink(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("listen to MIDI input %q: %w", name, err)
	}
	logger.Info("listening to MIDI input", "port", in.String())
	return &Listener{port: in.String(), stop: stop}, nil
}

// Port returns the name of the open port.
func (l *Listener) Port() string {
	return l.port
}

// Close stops listening.
func (l *Listener) Close() {
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
}

// CloseDriver releases the registered MIDI driver.
func CloseDriver() {
	midi.CloseDriver()
}

// Translate converts a raw MIDI message into a note event. Note-on with
// velocity 0 becomes note-off. Other messages report false.
func Translate(msg midi.Message, at time.Time) (model.NoteEvent, bool) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return model.NoteEvent{Kind: model.NoteOn, Pitch: int(key), Velocity: int(vel), At: at, Source: Source}, true
	case msg.GetNoteEnd(&ch, &key):
		return model.NoteEvent{Kind: model.NoteOff, Pitch: int(key), At: at, Source: Source}, true
	default:
		return model.NoteEvent{}, false
	}
}

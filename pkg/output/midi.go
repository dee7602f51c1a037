package output

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

// ExcludedPorts are virtual/system ports skipped when no port name is given
var ExcludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

// MIDI sends commands to a hardware or virtual MIDI output port
type MIDI struct {
	mu      sync.Mutex
	out     drivers.Out
	send    func(midi.Message) error
	channel uint8
	closed  bool
	logger  *log.Logger
}

// ListPorts returns the names of the available MIDI output ports
func ListPorts() ([]string, error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, fmt.Errorf("list MIDI outputs: %w", err)
	}
	names := make([]string, 0, len(outs))
	for _, o := range outs {
		names = append(names, o.String())
	}
	return names, nil
}

// OpenMIDI opens an output port. name may be a port index, a case-insensitive
// substring of the port name, or empty for the first non-virtual port.
func OpenMIDI(name string, channel uint8, logger *log.Logger) (*MIDI, error) {
	if logger == nil {
		logger = log.Default()
	}
	if channel > 15 {
		return nil, fmt.Errorf("MIDI channel %d out of range 0-15", channel)
	}

	outs, err := drivers.Outs()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	idx, err := pickPort(names, name)
	if err != nil {
		return nil, err
	}

	out := outs[idx]
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrNoDevice, out.String(), err)
	}
	logger.Info("output: MIDI port opened", "port", out.String(), "channel", channel)
	return &MIDI{out: out, send: send, channel: channel, logger: logger}, nil
}

// pickPort chooses an index into names for the requested port
func pickPort(names []string, want string) (int, error) {
	if len(names) == 0 {
		return 0, ErrNoDevice
	}
	want = strings.TrimSpace(want)
	if want == "" {
		for i, n := range names {
			if !excluded(n) {
				return i, nil
			}
		}
		return 0, nil
	}
	if i, err := strconv.Atoi(want); err == nil {
		if i < 0 || i >= len(names) {
			return 0, fmt.Errorf("%w: port index %d out of range (have %d)", ErrNoDevice, i, len(names))
		}
		return i, nil
	}
	for i, n := range names {
		if containsCI(n, want) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: no port matching %q", ErrNoDevice, want)
}

func excluded(name string) bool {
	for _, pat := range ExcludedPorts {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Name returns the port name
func (m *MIDI) Name() string {
	return m.out.String()
}

// SelectInstrument sends a program change
func (m *MIDI) SelectInstrument(program uint8) error {
	if err := checkData("program", program); err != nil {
		return err
	}
	return m.write(midi.ProgramChange(m.channel, program))
}

// NoteOn sends a note-on
func (m *MIDI) NoteOn(note, velocity uint8) error {
	if err := checkData("note", note); err != nil {
		return err
	}
	return m.write(midi.NoteOn(m.channel, note, velocity&MaxData))
}

// NoteOff sends a note-off with release velocity
func (m *MIDI) NoteOff(note, velocity uint8) error {
	if err := checkData("note", note); err != nil {
		return err
	}
	return m.write(midi.NoteOffVelocity(m.channel, note, velocity&MaxData))
}

func (m *MIDI) write(msg midi.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg, err)
	}
	return nil
}

// Close closes the port and the driver. Later sends return ErrClosed.
func (m *MIDI) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	err := m.out.Close()
	midi.CloseDriver()
	m.logger.Info("output: MIDI port closed", "port", m.out.String())
	return err
}

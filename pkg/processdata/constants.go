// Package processdata defines the fixed-layout ProcessData block shared
// between the Audio Engine and a plugin subprocess across the shared-memory
// boundary. Every field is a POD type - no pointers, no slices with backing
// arrays outside the block - so the struct can be placed directly in a
// memory-mapped region (see pkg/shm).
package processdata

// Compile-time capacities. Oversize port/channel/event counts are clamped
// rather than growing the block at runtime - the audio thread never
// allocates. Clamping logs no warning.
const (
	MaxPorts    = 4
	MaxChannels = 8
	MaxFrames   = 4096
	MaxEvents   = 256
)

// EventKind discriminates the tagged union stored in Event.
type EventKind uint8

const (
	EventNoteOn EventKind = iota
	EventNoteOff
	EventParamValue
)

// Event is one entry of the fixed-capacity events_in/events_out arrays.
type Event struct {
	Kind     EventKind
	Key      int16 // note key, NoteOn/NoteOff only
	Channel  int16
	Velocity float64 // 0..1, NoteOn/NoteOff only
	ParamID  uint32  // ParamValue only
	Value    float64 // 0..1, ParamValue only
	Delay    uint32  // score-tick delay within the block (NoteOn/Off) or frame offset (internal use)
}

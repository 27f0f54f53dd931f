package processdata

// Transport mirrors the subset of ProcessData that describes playback state,
// duplicated into the plugin-facing transport descriptor in pkg/nativeplugin.
type Transport struct {
	Playing  bool
	LoopOn   bool
	Beats    float64
	Seconds  float64
	LoopStartBeats   float64
	LoopEndBeats     float64
	LoopStartSeconds float64
	LoopEndSeconds   float64
	Bar              int
	BarStartBeats    float64
}

// Block is the fixed-layout ProcessData record for one plugin slot. It is
// placed directly into a shared-memory region by pkg/shm; every field is a
// value type with no internal pointers.
type Block struct {
	SampleRate int
	BPM        float64
	LPB        int
	SteadyTime uint64

	Transport Transport

	NPortsIn  int
	NPortsOut int
	NChannelsIn  [MaxPorts]int
	NChannelsOut [MaxPorts]int

	BufferIn  [MaxPorts][MaxChannels][MaxFrames]float32
	BufferOut [MaxPorts][MaxChannels][MaxFrames]float32

	// ConstantMaskIn/Out: bit k of port p set means channel k is constant
	// for the whole block; only BufferIn[p][k][0] is authoritative in that
	// case.
	ConstantMaskIn  [MaxPorts]uint32
	ConstantMaskOut [MaxPorts]uint32

	NEventsIn  int
	EventsIn   [MaxEvents]Event
	NEventsOut int
	EventsOut  [MaxEvents]Event

	FrameCount int
}

// Reset clears the per-block transient fields (events, frame count) without
// touching sample-rate/transport configuration, called once per block
// before the engine fills inputs.
func (b *Block) Reset(frameCount int) {
	b.FrameCount = frameCount
	b.NEventsIn = 0
	b.NEventsOut = 0
	for p := 0; p < MaxPorts; p++ {
		b.ConstantMaskOut[p] = 0
	}
}

// PushEventIn appends an event to the input queue. When the fixed capacity
// is exceeded the event is dropped and false is returned; nothing is logged,
// and its caller in pkg/track ignores the result.
func (b *Block) PushEventIn(e Event) bool {
	if b.NEventsIn >= MaxEvents {
		return false
	}
	b.EventsIn[b.NEventsIn] = e
	b.NEventsIn++
	return true
}

// PushEventOut appends an event to the output queue, same truncation
// behavior as PushEventIn.
func (b *Block) PushEventOut(e Event) bool {
	if b.NEventsOut >= MaxEvents {
		return false
	}
	b.EventsOut[b.NEventsOut] = e
	b.NEventsOut++
	return true
}

// ConstantBit returns whether channel ch of the constant mask is set.
func ConstantBit(mask uint32, ch int) bool {
	return mask&(1<<uint(ch)) != 0
}

// SetConstantBit returns mask with bit ch set to v.
func SetConstantBit(mask uint32, ch int, v bool) uint32 {
	if v {
		return mask | (1 << uint(ch))
	}
	return mask &^ (1 << uint(ch))
}

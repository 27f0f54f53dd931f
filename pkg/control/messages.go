// Package control implements the bidirectional control-plane protocol
// between the main application (M) and a plugin subprocess (P). Requests
// and responses are a tagged union framed with a 4-byte little-endian
// length prefix.
package control

// Tag discriminates the message taxonomy. Main->plugin requests and
// plugin->main responses share one tag space: TagLoad..TagQuit are
// requests, TagDidLoad..TagDidQuit are responses.
type Tag uint8

const (
	TagLoad Tag = iota
	TagUnload
	TagGuiOpen
	TagStateLoad
	TagStateSave
	TagScan
	TagQuit

	TagDidLoad
	TagDidUnload
	TagDidGuiOpen
	TagDidStateLoad
	TagDidStateSave
	TagDidScan
	TagDidQuit
)

// Load requests a plugin be instantiated into a slot.
type Load struct {
	SlotID     uint64
	PluginID   string
	TrackIndex int
	OpenGUI    bool
}

// Unload tears down the plugin occupying (Track, Module).
type Unload struct {
	Track  int
	Module int
}

// GuiOpen toggles the plugin's editor window.
type GuiOpen struct {
	Track  int
	Module int
}

// StateLoad restores previously-saved opaque plugin state.
type StateLoad struct {
	Track  int
	Module int
	Data   []byte
}

// StateSave requests the plugin serialize its current state.
type StateSave struct {
	Track  int
	Module int
}

// Scan asks the supervisor to (re)enumerate available plugins. The
// filesystem walk itself is the external scanner's job (a non-goal here);
// this message only triggers re-reading its descriptor cache.
type Scan struct{}

// Quit asks both sides to terminate after the response is emitted.
type Quit struct{}

// DidLoad is Load's response. Err is non-empty on failure.
type DidLoad struct {
	SlotID uint64
	Err    string
}

// DidUnload is Unload's response.
type DidUnload struct {
	Track, Module int
}

// DidGuiOpen is GuiOpen's response.
type DidGuiOpen struct {
	Track, Module int
	Open          bool
}

// DidStateLoad is StateLoad's response.
type DidStateLoad struct {
	Track, Module int
	Err           string
}

// DidStateSave is StateSave's response. Data is empty on failure.
type DidStateSave struct {
	Track, Module int
	Data          []byte
}

// DidScan is Scan's response.
type DidScan struct{}

// DidQuit is Quit's response.
type DidQuit struct{}

// Message pairs a Tag with its decoded payload.
type Message struct {
	Tag     Tag
	Load    Load
	Unload  Unload
	GuiOpen GuiOpen
	StateLoad StateLoad
	StateSave StateSave

	DidLoad      DidLoad
	DidUnload    DidUnload
	DidGuiOpen   DidGuiOpen
	DidStateLoad DidStateLoad
	DidStateSave DidStateSave
}

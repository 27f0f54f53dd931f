package model

// ModuleRef addresses a module by the (track, module) pair used throughout
// the engine instead of owning back-pointers.
type ModuleRef struct {
	Track  int
	Module int
}

// AudioInput binds one of a Module's input ports to an upstream module's
// output port. SrcModule must appear earlier than the owning module in the
// track's topological order (checked by the engine's graph builder, not
// here - it is a cross-module invariant).
type AudioInput struct {
	SrcModule ModuleRef
	SrcPort   int
	DstPort   int
}

// AutomationBinding maps a Track's automation target index (referenced by
// Point lane items) to a concrete (module, parameter) pair.
type AutomationBinding struct {
	ModuleIndex int
	ParamID     uint32
}

// Module is one plugin slot within a Track.
type Module struct {
	PluginID    string `json:"pluginId" validate:"required"`
	Name        string `json:"name"`
	AudioInputs []AudioInput `json:"audioInputs,omitempty"`

	// State is the plugin's last-saved opaque state, round-tripped through
	// the plugin's own state extension (see pkg/nativeplugin).
	State []byte `json:"state,omitempty"`
}

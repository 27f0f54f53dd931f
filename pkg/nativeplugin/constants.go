package nativeplugin

import "github.com/ticktrack/core/pkg/processdata"

// maxPorts bounds enumeration so a misbehaving plugin declaring a huge port
// count cannot overflow the fixed-capacity ProcessData buffers it will
// eventually be wired to.
const maxPorts = processdata.MaxPorts

// Severity mirrors the host log extension's severity levels.
type Severity int32

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

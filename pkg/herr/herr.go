// Package herr declares the error-kind taxonomy used across the host:
// Fatal, SlotFatal, Soft and Transient, carried in a struct that also
// records which slot faulted.
package herr

import "fmt"

// Kind is one of the four propagation policies named in §7.
type Kind int

const (
	// Fatal errors terminate the owning process (plugin process() failure,
	// incompatible ABI version, a short pipe read/write).
	Fatal Kind = iota
	// SlotFatal errors unload the offending plugin but keep the app alive
	// (init/activate failure, a required GUI create failure).
	SlotFatal
	// Soft errors are logged and otherwise ignored (unsupported set-scale,
	// unknown automation parameter id, a scan failure for one file).
	Soft
	// Transient errors cause the current block to be skipped and retried
	// next block (a cycle detected in the dependency graph).
	Transient
)

func (k Kind) String() string {
	switch k {
	case Fatal:
		return "fatal"
	case SlotFatal:
		return "slot-fatal"
	case Soft:
		return "soft"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// SlotError wraps an error with its propagation Kind and, where applicable,
// the slot it occurred in.
type SlotError struct {
	Kind Kind
	Slot uint64
	Op   string
	Err  error
}

func (e *SlotError) Error() string {
	if e.Slot != 0 {
		return fmt.Sprintf("%s [slot %d] %s: %v", e.Kind, e.Slot, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind, op description and slot id (0 if not
// slot-specific).
func New(kind Kind, slot uint64, op string, err error) *SlotError {
	if err == nil {
		return nil
	}
	return &SlotError{Kind: kind, Slot: slot, Op: op, Err: err}
}

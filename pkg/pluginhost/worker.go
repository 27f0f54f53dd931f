package pluginhost

import (
	"time"

	"github.com/ticktrack/core/pkg/ipcevent"
)

// workerWaitTimeout bounds how long a slot's audio worker blocks on the
// request event between checking whether the slot has been unloaded. It is
// unrelated to the engine's own ResponseTimeout (pkg/track): this is the
// subprocess side waiting to be *given* work, not the engine waiting for a
// reply.
const workerWaitTimeout = 500 * time.Millisecond

// startAudioWorker launches §5 thread 5: a dedicated goroutine that waits
// on the slot's request event, runs the plugin's process(), and signals
// response - repeating until the slot's quit channel closes. It never
// touches GUI state and never runs on the Supervisor's pinned main thread.
func (s *Supervisor) startAudioWorker(slot *Slot) {
	go func() {
		var steadyTime int64
		for {
			select {
			case <-slot.quit:
				return
			default:
			}

			err := slot.Endpoint.WaitRequest(workerWaitTimeout)
			if err == ipcevent.ErrTimeout {
				continue
			}
			if err != nil {
				s.log.Error("pluginhost: audio worker request wait failed", "slot", slot.ID, "err", err)
				return
			}

			outcome := slot.Wrapper.Process(slot.Endpoint.Block, steadyTime)
			steadyTime += int64(slot.Endpoint.Block.FrameCount)
			if outcome.Fatal {
				s.log.Error("pluginhost: plugin process failed, slot faulted", "slot", slot.ID, "err", outcome.Err)
				_ = slot.Endpoint.SignalResponse()
				return
			}

			if err := slot.Endpoint.SignalResponse(); err != nil {
				s.log.Error("pluginhost: audio worker signal response failed", "slot", slot.ID, "err", err)
				return
			}
		}
	}()
}

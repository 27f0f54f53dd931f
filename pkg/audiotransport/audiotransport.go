// Package audiotransport implements the per-slot audio-plane handshake: a
// named shared-memory ProcessData region plus a request/response
// auto-reset event pair, synchronized once per audio block with no
// queuing - at most one block in flight per slot.
package audiotransport

import (
	"fmt"
	"time"

	"github.com/ticktrack/core/pkg/ipcevent"
	"github.com/ticktrack/core/pkg/processdata"
	"github.com/ticktrack/core/pkg/shm"
)

// names follow the "<app-prefix>.process.data.<slot_id>" convention; event
// names are derived the same way with distinct suffixes.
func regionName(slotID uint64) string  { return fmt.Sprintf("ticktrack.process.data.%d", slotID) }
func requestName(slotID uint64) string { return fmt.Sprintf("ticktrack.process.req.%d", slotID) }
func responseName(slotID uint64) string {
	return fmt.Sprintf("ticktrack.process.resp.%d", slotID)
}

// Endpoint is one side of a slot's audio-plane channel: the mapped
// ProcessData block and its request/response events. Both the engine
// (creator) and the plugin subprocess's audio worker (opener) construct an
// Endpoint over the same slot id.
type Endpoint struct {
	SlotID   uint64
	region   *shm.Region
	Block    *processdata.Block
	request  *ipcevent.Event
	response *ipcevent.Event
	owner    bool
}

// Create allocates the region and events for a new slot. Called by the
// engine when a plugin is loaded into a slot.
func Create(slotID uint64) (*Endpoint, error) {
	region, err := shm.Create(regionName(slotID), int(processdata.Size))
	if err != nil {
		return nil, err
	}
	request, err := ipcevent.New()
	if err != nil {
		region.Close()
		region.Unlink()
		return nil, err
	}
	response, err := ipcevent.New()
	if err != nil {
		request.Close()
		region.Close()
		region.Unlink()
		return nil, err
	}
	return &Endpoint{
		SlotID:   slotID,
		region:   region,
		Block:    processdata.Overlay(region.Ptr()),
		request:  request,
		response: response,
		owner:    true,
	}, nil
}

// Open maps an existing slot's region from the plugin subprocess side. The
// request/response file descriptors are the engine's eventfds, which have
// no filesystem path: the engine attaches them to the Load message over the
// control socket (SCM_RIGHTS), and the caller passes the received fds here.
func Open(slotID uint64, requestFD, responseFD int) (*Endpoint, error) {
	region, err := shm.Open(regionName(slotID), int(processdata.Size))
	if err != nil {
		return nil, err
	}
	return &Endpoint{
		SlotID:   slotID,
		region:   region,
		Block:    processdata.Overlay(region.Ptr()),
		request:  ipcevent.FromFD(requestFD),
		response: ipcevent.FromFD(responseFD),
		owner:    false,
	}, nil
}

// RequestFD/ResponseFD expose the underlying descriptors so the engine can
// send them to the plugin subprocess with the Load message.
func (e *Endpoint) RequestFD() int  { return e.request.FD() }
func (e *Endpoint) ResponseFD() int { return e.response.FD() }

// SignalRequest is called by the engine after filling Block for this block.
func (e *Endpoint) SignalRequest() error { return e.request.Set() }

// WaitRequest is called by the plugin subprocess's audio worker thread,
// which blocks on this slot's request event until the engine signals one.
func (e *Endpoint) WaitRequest(timeout time.Duration) error { return e.request.Wait(timeout) }

// SignalResponse is called by the plugin subprocess after running process().
func (e *Endpoint) SignalResponse() error { return e.response.Set() }

// WaitResponse is called by the engine after SignalRequest, with a bounded
// timeout rather than an indefinite wait: an unresponsive plugin
// subprocess must be detectable and isolatable rather than hanging the
// audio callback forever.
func (e *Endpoint) WaitResponse(timeout time.Duration) error { return e.response.Wait(timeout) }

// Close unmaps the region and closes the event descriptors. Unlink (owner
// only) additionally removes the backing shm object, called once the slot
// is fully unloaded (§5 "Shared memory regions: owned by the creator").
func (e *Endpoint) Close() error {
	var firstErr error
	if err := e.request.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.response.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.region.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Unlink removes the backing shared-memory object; only the owner
// (creator) side should call it, after Close.
func (e *Endpoint) Unlink() error {
	if !e.owner {
		return nil
	}
	return e.region.Unlink()
}

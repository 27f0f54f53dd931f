package pluginhost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ticktrack/core/pkg/control"
)

func newTestSupervisor() *Supervisor {
	return &Supervisor{
		slots:   make(map[uint64]*Slot),
		byTrack: make(map[slotKey]*Slot),
		pluginPaths: func(id string) (string, uint32, error) {
			return "", 0, nil
		},
	}
}

func TestHandleRequestQuit(t *testing.T) {
	s := newTestSupervisor()
	resp, quit := s.handleRequest(context.Background(), control.Message{Tag: control.TagQuit}, nil)
	require.True(t, quit)
	require.Equal(t, control.TagDidQuit, resp.Tag)
}

func TestHandleRequestScan(t *testing.T) {
	s := newTestSupervisor()
	resp, quit := s.handleRequest(context.Background(), control.Message{Tag: control.TagScan}, nil)
	require.False(t, quit)
	require.Equal(t, control.TagDidScan, resp.Tag)
}

func TestHandleUnloadUnknownSlotIsNoop(t *testing.T) {
	s := newTestSupervisor()
	resp := s.handleUnload(control.Unload{Track: 0, Module: 1})
	require.Equal(t, control.TagDidUnload, resp.Tag)
	require.Equal(t, 0, resp.DidUnload.Track)
}

func TestHandleGuiOpenUnknownSlotReturnsClosed(t *testing.T) {
	s := newTestSupervisor()
	resp := s.handleGuiOpen(control.GuiOpen{Track: 2, Module: 0})
	require.False(t, resp.DidGuiOpen.Open)
}

func TestModuleCountForTrack(t *testing.T) {
	s := newTestSupervisor()
	s.byTrack[slotKey{Track: 0, Module: 0}] = &Slot{}
	s.byTrack[slotKey{Track: 0, Module: 1}] = &Slot{}
	s.byTrack[slotKey{Track: 1, Module: 0}] = &Slot{}

	require.Equal(t, 2, s.moduleCountForTrack(0))
	require.Equal(t, 1, s.moduleCountForTrack(1))
	require.Equal(t, 0, s.moduleCountForTrack(2))
}

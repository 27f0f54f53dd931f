package songstate

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Snapshot is the JSON-friendly view of a Block sent to monitor clients.
// The shared-memory Block itself is never serialized directly (it embeds a
// fixed byte array for the path field); Snapshot is a value copy taken once
// per broadcast tick.
type Snapshot struct {
	Playing   bool         `json:"playing"`
	LinePlay  int64        `json:"linePlay"`
	LoopStart int64        `json:"loopStart"`
	LoopEnd   int64        `json:"loopEnd"`
	Recording bool         `json:"recording"`
	Peaks     []TrackPeaks `json:"peaks"`
	CPUUsagePercent float64 `json:"cpuUsagePercent"`
	SongPath  string       `json:"songPath"`
}

func (b *Block) Snapshot() Snapshot {
	peaks := make([]TrackPeaks, b.TrackCount)
	copy(peaks, b.Peaks[:b.TrackCount])
	return Snapshot{
		Playing:         b.Playing,
		LinePlay:        b.LinePlay,
		LoopStart:       b.LoopStart,
		LoopEnd:         b.LoopEnd,
		Recording:       b.Recording,
		Peaks:           peaks,
		CPUUsagePercent: b.CPUUsagePercent,
		SongPath:        b.Path(),
	}
}

// Broadcaster fans out periodic Snapshots to any connected monitor socket.
// It is purely additive: a slow or absent reader never blocks the caller,
// since Publish only ever does a non-blocking send into each client's
// buffered channel.
type Broadcaster struct {
	log      *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	out  chan Snapshot
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster(logger *log.Logger) *Broadcaster {
	return &Broadcaster{
		log:     logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades incoming connections to websockets and registers them
// as monitor clients.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("songstate: websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, out: make(chan Snapshot, 4)}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	go b.writeLoop(c)
}

func (b *Broadcaster) writeLoop(c *client) {
	defer func() {
		b.mu.Lock()
		delete(b.clients, c)
		b.mu.Unlock()
		c.conn.Close()
	}()
	for snap := range c.out {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Publish sends a snapshot to every connected client, dropping it for any
// client whose buffer is full rather than blocking the caller (the audio
// callback thread, if invoked straight from the block tail).
func (b *Broadcaster) Publish(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.out <- snap:
		default:
		}
	}
}

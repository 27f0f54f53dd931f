package control

import (
	"fmt"
	"net"
	"os"
)

// Conn is one end of the control-plane duplex, backed by a Unix domain
// socket: a byte-stream, bidirectional, filesystem-addressed IPC
// primitive, and net.Conn gives us the same Read/Write contract on every
// platform Go targets.
type Conn struct {
	net.Conn
}

// Listen creates the server end of the pipe at path (removing any stale
// socket file first) and returns a listener whose Accept yields *Conn.
// The engine creates this end; the plugin host subprocess dials it.
func Listen(path string) (*Listener, error) {
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("control: listen %s: %w", path, err)
	}
	return &Listener{l: l, path: path}, nil
}

// Listener wraps a net.Listener bound to the control socket path.
type Listener struct {
	l    net.Listener
	path string
}

// Accept blocks for the next client connection.
func (l *Listener) Accept() (*Conn, error) {
	c, err := l.l.Accept()
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: c}, nil
}

// Close closes the listener and removes the backing socket file.
func (l *Listener) Close() error {
	err := l.l.Close()
	_ = os.Remove(l.path)
	return err
}

// Dial connects to the server end of the pipe.
func Dial(path string) (*Conn, error) {
	c, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", path, err)
	}
	return &Conn{Conn: c}, nil
}

// Send encodes and writes one Message, treating any short write as fatal.
func (c *Conn) Send(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	n, err := c.Write(data)
	if err != nil {
		return fmt.Errorf("control: write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("control: short write: wrote %d of %d bytes", n, len(data))
	}
	return nil
}

// Recv reads and decodes the next Message.
func (c *Conn) Recv() (Message, error) {
	return Decode(c)
}

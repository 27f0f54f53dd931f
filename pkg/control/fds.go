package control

import (
	"bytes"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// maxPassedFDs bounds the ancillary-data buffer for RecvWithFDs; a Load
// message ever carries exactly two (the slot's request/response eventfds).
const maxPassedFDs = 4

// SendWithFDs sends m together with ancillary file descriptors (SCM_RIGHTS
// over the control socket). This is how an eventfd - which has no
// filesystem path a subprocess could open by name - crosses into the
// plugin subprocess: the engine creates it, then hands the descriptor
// across the same Unix socket the Load request travels on, rather than
// relying on fork-time fd inheritance, since Go does not expose a portable
// fork+exec-with-extra-fds primitive outside os/exec's ExtraFiles, which
// only works at process spawn, not afterward.
func (c *Conn) SendWithFDs(m Message, fds []int) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	uc, ok := c.Conn.(*net.UnixConn)
	if !ok {
		return fmt.Errorf("control: SendWithFDs requires a unix socket connection")
	}
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	n, oobn, err := uc.WriteMsgUnix(data, oob, nil)
	if err != nil {
		return fmt.Errorf("control: sendmsg: %w", err)
	}
	if n != len(data) || oobn != len(oob) {
		return fmt.Errorf("control: short sendmsg: wrote %d/%d bytes, %d/%d oob", n, len(data), oobn, len(oob))
	}
	return nil
}

// RecvWithFDs reads one framed message along with any file descriptors
// attached to it. The message must arrive in a single recvmsg call (true
// for the small fixed-size messages that ever carry fds - Load is at most
// a few dozen bytes), so unlike Recv it does not support messages split
// across multiple underlying reads.
func (c *Conn) RecvWithFDs() (Message, []int, error) {
	uc, ok := c.Conn.(*net.UnixConn)
	if !ok {
		return Message{}, nil, fmt.Errorf("control: RecvWithFDs requires a unix socket connection")
	}
	buf := make([]byte, 4096)
	oob := make([]byte, unix.CmsgSpace(maxPassedFDs*4))
	n, oobn, _, _, err := uc.ReadMsgUnix(buf, oob)
	if err != nil {
		return Message{}, nil, fmt.Errorf("control: recvmsg: %w", err)
	}
	msg, err := Decode(bytes.NewReader(buf[:n]))
	if err != nil {
		return Message{}, nil, err
	}
	if oobn == 0 {
		return msg, nil, nil
	}
	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return msg, nil, fmt.Errorf("control: parse control message: %w", err)
	}
	var fds []int
	for _, cmsg := range cmsgs {
		parsed, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		fds = append(fds, parsed...)
	}
	return msg, fds, nil
}

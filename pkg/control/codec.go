package control

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Encode serializes a Message to the compact tagged-union wire format: one
// Tag byte followed by the fields relevant to that tag, each written with
// binary.Write/WriteString-style length-prefixed strings.
func Encode(m Message) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := buf.WriteByte(byte(m.Tag)); err != nil {
		return nil, err
	}

	switch m.Tag {
	case TagLoad:
		writeUint64(buf, m.Load.SlotID)
		writeString(buf, m.Load.PluginID)
		writeInt(buf, m.Load.TrackIndex)
		writeBool(buf, m.Load.OpenGUI)
	case TagUnload:
		writeInt(buf, m.Unload.Track)
		writeInt(buf, m.Unload.Module)
	case TagGuiOpen:
		writeInt(buf, m.GuiOpen.Track)
		writeInt(buf, m.GuiOpen.Module)
	case TagStateLoad:
		writeInt(buf, m.StateLoad.Track)
		writeInt(buf, m.StateLoad.Module)
		writeBytes(buf, m.StateLoad.Data)
	case TagStateSave:
		writeInt(buf, m.StateSave.Track)
		writeInt(buf, m.StateSave.Module)
	case TagScan, TagQuit:
		// no payload
	case TagDidLoad:
		writeUint64(buf, m.DidLoad.SlotID)
		writeString(buf, m.DidLoad.Err)
	case TagDidUnload:
		writeInt(buf, m.DidUnload.Track)
		writeInt(buf, m.DidUnload.Module)
	case TagDidGuiOpen:
		writeInt(buf, m.DidGuiOpen.Track)
		writeInt(buf, m.DidGuiOpen.Module)
		writeBool(buf, m.DidGuiOpen.Open)
	case TagDidStateLoad:
		writeInt(buf, m.DidStateLoad.Track)
		writeInt(buf, m.DidStateLoad.Module)
		writeString(buf, m.DidStateLoad.Err)
	case TagDidStateSave:
		writeInt(buf, m.DidStateSave.Track)
		writeInt(buf, m.DidStateSave.Module)
		writeBytes(buf, m.DidStateSave.Data)
	case TagDidScan, TagDidQuit:
		// no payload
	default:
		return nil, fmt.Errorf("control: unknown tag %d", m.Tag)
	}

	body := buf.Bytes()
	framed := new(bytes.Buffer)
	if err := binary.Write(framed, binary.LittleEndian, uint32(len(body))); err != nil {
		return nil, err
	}
	framed.Write(body)
	return framed.Bytes(), nil
}

// Decode reads one framed Message from r. A short write or short read on
// the control pipe is treated as fatal for that subprocess and surfaces
// as a non-nil error with no partial Message.
func Decode(r io.Reader) (Message, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return Message{}, fmt.Errorf("control: read length: %w", err)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("control: short read: %w", err)
	}
	buf := bytes.NewReader(body)

	tagByte, err := buf.ReadByte()
	if err != nil {
		return Message{}, fmt.Errorf("control: read tag: %w", err)
	}
	m := Message{Tag: Tag(tagByte)}

	switch m.Tag {
	case TagLoad:
		m.Load.SlotID = readUint64(buf)
		m.Load.PluginID = readString(buf)
		m.Load.TrackIndex = readInt(buf)
		m.Load.OpenGUI = readBool(buf)
	case TagUnload:
		m.Unload.Track = readInt(buf)
		m.Unload.Module = readInt(buf)
	case TagGuiOpen:
		m.GuiOpen.Track = readInt(buf)
		m.GuiOpen.Module = readInt(buf)
	case TagStateLoad:
		m.StateLoad.Track = readInt(buf)
		m.StateLoad.Module = readInt(buf)
		m.StateLoad.Data = readBytes(buf)
	case TagStateSave:
		m.StateSave.Track = readInt(buf)
		m.StateSave.Module = readInt(buf)
	case TagScan, TagQuit:
	case TagDidLoad:
		m.DidLoad.SlotID = readUint64(buf)
		m.DidLoad.Err = readString(buf)
	case TagDidUnload:
		m.DidUnload.Track = readInt(buf)
		m.DidUnload.Module = readInt(buf)
	case TagDidGuiOpen:
		m.DidGuiOpen.Track = readInt(buf)
		m.DidGuiOpen.Module = readInt(buf)
		m.DidGuiOpen.Open = readBool(buf)
	case TagDidStateLoad:
		m.DidStateLoad.Track = readInt(buf)
		m.DidStateLoad.Module = readInt(buf)
		m.DidStateLoad.Err = readString(buf)
	case TagDidStateSave:
		m.DidStateSave.Track = readInt(buf)
		m.DidStateSave.Module = readInt(buf)
		m.DidStateSave.Data = readBytes(buf)
	case TagDidScan, TagDidQuit:
	default:
		return Message{}, fmt.Errorf("control: unknown tag %d", m.Tag)
	}

	return m, nil
}

func writeUint64(buf *bytes.Buffer, v uint64) { binary.Write(buf, binary.LittleEndian, v) }
func writeInt(buf *bytes.Buffer, v int)       { binary.Write(buf, binary.LittleEndian, int64(v)) }
func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}
func writeBytes(buf *bytes.Buffer, v []byte) {
	binary.Write(buf, binary.LittleEndian, uint32(len(v)))
	buf.Write(v)
}
func writeString(buf *bytes.Buffer, v string) { writeBytes(buf, []byte(v)) }

func readUint64(r *bytes.Reader) uint64 {
	var v uint64
	binary.Read(r, binary.LittleEndian, &v)
	return v
}
func readInt(r *bytes.Reader) int {
	var v int64
	binary.Read(r, binary.LittleEndian, &v)
	return int(v)
}
func readBool(r *bytes.Reader) bool {
	b, _ := r.ReadByte()
	return b != 0
}
func readBytes(r *bytes.Reader) []byte {
	var n uint32
	binary.Read(r, binary.LittleEndian, &n)
	out := make([]byte, n)
	io.ReadFull(r, out)
	return out
}
func readString(r *bytes.Reader) string {
	return string(readBytes(r))
}

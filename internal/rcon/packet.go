package rcon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Packet types. ExecCommand and AuthResponse share the value 2; an
// AuthResponse only ever follows an Auth packet.
const (
	TypeResponseValue int32 = 0
	TypeExecCommand   int32 = 2
	TypeAuthResponse  int32 = 2
	TypeAuth          int32 = 3
)

const (
	// id + type + body terminator + packet terminator
	minPacketLength = 10
	maxPacketLength = 1 << 16
)

var (
	ErrInvalidPayload = errors.New("rcon: payload contains a NUL byte")
	ErrPacketSize     = errors.New("rcon: packet length out of range")
)

type Packet struct {
	ID   int32
	Type int32
	Body string
}

// MarshalBinary encodes p as
// length(int32 LE) | id(int32 LE) | type(int32 LE) | body | 0x00 | 0x00.
func (p Packet) MarshalBinary() ([]byte, error) {
	if bytes.IndexByte([]byte(p.Body), 0) >= 0 {
		return nil, ErrInvalidPayload
	}
	length := minPacketLength + len(p.Body)
	if length > maxPacketLength {
		return nil, ErrPacketSize
	}

	buf := make([]byte, 4+length)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.ID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.Type))
	copy(buf[12:], p.Body)
	return buf, nil
}

func WritePacket(w io.Writer, p Packet) error {
	buf, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func ReadPacket(r io.Reader) (Packet, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Packet{}, err
	}

	length := int32(binary.LittleEndian.Uint32(header[:]))
	if length < minPacketLength || length > maxPacketLength {
		return Packet{}, fmt.Errorf("%w: %d", ErrPacketSize, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Packet{}, err
	}

	body := payload[8:]
	if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}

	return Packet{
		ID:   int32(binary.LittleEndian.Uint32(payload[0:4])),
		Type: int32(binary.LittleEndian.Uint32(payload[4:8])),
		Body: string(body),
	}, nil
}
